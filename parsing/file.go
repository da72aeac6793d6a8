package parsing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WithFile opens the file at path, hands it to consume and closes it again,
// whether consume succeeds or not. Format errors coming out of consume are
// tagged with the path.
func WithFile(path string, consume func(r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFileNotFound, path, unwrapPathError(err))
	}
	defer f.Close()

	err = consume(f)

	var formatErr *FormatError
	if errors.As(err, &formatErr) && formatErr.Path == "" {
		formatErr.Path = path
	}

	return err
}

func unwrapPathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}

	return err
}

// ParseHex parses an unsigned hexadecimal numeral that must fit in bitSize
// bits. An optional 0x prefix is accepted.
func ParseHex(token string, bitSize int) (uint64, error) {
	digits := token
	if len(digits) > 2 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		digits = digits[2:]
	}

	if digits == "" {
		return 0, errors.New("empty hexadecimal numeral")
	}

	v, err := strconv.ParseUint(digits, 16, bitSize)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, fmt.Errorf("%s does not fit in %d bits", token, bitSize)
		}

		return 0, fmt.Errorf("%s is not a hexadecimal numeral", token)
	}

	return v, nil
}
