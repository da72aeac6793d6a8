package memory

import (
	"bufio"
	"io"
	"math"
	"strings"

	"github.com/sarchlab/memcheck/parsing"
)

const maxLineSize = 1 << 20

// cursor is the address the next byte token is stored at.
type cursor struct {
	addr      uint64
	defined   bool
	exhausted bool
}

func (c cursor) advance() cursor {
	if c.addr == math.MaxUint64 {
		c.exhausted = true
		return c
	}

	c.addr++

	return c
}

// LoadImage parses a memory image in the textual dump format.
//
// Lines starting with '@' move the cursor to the hexadecimal address that
// follows. Every other non-blank line holds whitespace-separated hexadecimal
// bytes that are stored at consecutive addresses starting at the cursor.
func LoadImage(r io.Reader) (*Image, error) {
	img := NewImage()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var cur cursor

	lineNo := 0
	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var err error
		if strings.HasPrefix(line, "@") {
			cur, err = parseAddressMarker(line, lineNo)
		} else {
			cur, err = storeBytes(img, cur, line, lineNo)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, parsing.NewFormatError(lineNo+1, "", "%w", err)
	}

	return img, nil
}

// LoadImageFile loads the memory image stored in the file at path.
func LoadImageFile(path string) (*Image, error) {
	var img *Image

	err := parsing.WithFile(path, func(r io.Reader) error {
		var loadErr error
		img, loadErr = LoadImage(r)

		return loadErr
	})
	if err != nil {
		return nil, err
	}

	return img, nil
}

func parseAddressMarker(line string, lineNo int) (cursor, error) {
	rest := line[1:]
	if rest != "" && !isHexDigit(rest[0]) {
		rest = rest[1:]
	}

	addr, err := parsing.ParseHex(strings.TrimSpace(rest), 64)
	if err != nil {
		return cursor{}, parsing.NewFormatError(
			lineNo, line, "bad address marker: %w", err)
	}

	return cursor{addr: addr, defined: true}, nil
}

func storeBytes(
	img *Image,
	cur cursor,
	line string,
	lineNo int,
) (cursor, error) {
	if !cur.defined {
		return cur, parsing.NewFormatError(
			lineNo, line, "byte data before any address marker, no current address")
	}

	for _, token := range strings.Fields(line) {
		v, err := parsing.ParseHex(token, 8)
		if err != nil {
			return cur, parsing.NewFormatError(lineNo, line, "bad byte: %w", err)
		}

		if cur.exhausted {
			return cur, parsing.NewFormatError(
				lineNo, line, "byte data runs past the last addressable byte")
		}

		img.Set(cur.addr, byte(v))
		cur = cur.advance()
	}

	return cur, nil
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') ||
		('a' <= c && c <= 'f') ||
		('A' <= c && c <= 'F')
}
