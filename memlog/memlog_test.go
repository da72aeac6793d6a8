package memlog_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/memcheck/memlog"
	"github.com/sarchlab/memcheck/parsing"
)

func parse(text string) ([]memlog.Entry, error) {
	return memlog.Parse(strings.NewReader(text))
}

var _ = Describe("Parse", func() {
	It("should parse a data line", func() {
		entries, err := parse("1000 -> deadbeef\n")

		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(Equal([]memlog.Entry{
			{Position: 1, Line: 1, Address: 0x1000, Value: 0xdeadbeef},
		}))
	})

	It("should skip lines without a separator", func() {
		entries, err := parse(
			"simulation started\n" +
				"10 -> 1\n" +
				"\n" +
				"# comment 20 > 3\n" +
				"  14->ffffffff  \n")

		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(2))
		Expect(entries[0]).To(Equal(
			memlog.Entry{Position: 1, Line: 2, Address: 0x10, Value: 1}))
		Expect(entries[1]).To(Equal(
			memlog.Entry{Position: 2, Line: 5, Address: 0x14, Value: 0xffffffff}))
	})

	It("should keep file order and duplicates", func() {
		entries, err := parse("20 -> 1\n10 -> 2\n20 -> 1\n")

		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(3))
		Expect(entries[0].Address).To(Equal(uint64(0x20)))
		Expect(entries[1].Address).To(Equal(uint64(0x10)))
		Expect(entries[2].Position).To(Equal(3))
	})

	It("should return no entries for logs without data lines", func() {
		entries, err := parse("nothing\nto see\n")

		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	It("should handle windows line endings", func() {
		entries, err := parse("10 -> ab\r\n")

		Expect(err).ToNot(HaveOccurred())
		Expect(entries[0].Value).To(Equal(uint32(0xab)))
	})

	It("should split on the first separator only", func() {
		_, err := parse("10 -> 20 -> 30\n")

		Expect(errors.Is(err, parsing.ErrInvalidFormat)).To(BeTrue())
	})

	It("should fail on non-hexadecimal tokens", func() {
		_, err := parse("10 -> 1\nxyz -> 1\n")

		var formatErr *parsing.FormatError
		Expect(errors.As(err, &formatErr)).To(BeTrue())
		Expect(formatErr.Line).To(Equal(2))
	})

	It("should fail on an empty side", func() {
		_, err := parse("10 ->\n")

		Expect(errors.Is(err, parsing.ErrInvalidFormat)).To(BeTrue())
	})

	It("should fail on values wider than 32 bits", func() {
		_, err := parse("10 -> 100000000\n")

		Expect(errors.Is(err, parsing.ErrInvalidFormat)).To(BeTrue())
	})
})

var _ = Describe("Entry", func() {
	It("should split the value most significant byte first", func() {
		e := memlog.Entry{Value: 0xaabbccdd}

		Expect(e.Bytes()).To(Equal([4]byte{0xaa, 0xbb, 0xcc, 0xdd}))
	})
})

var _ = Describe("ParseFile", func() {
	It("should parse a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "out.log")
		Expect(os.WriteFile(path, []byte("10 -> 1\n"), 0o644)).To(Succeed())

		entries, err := memlog.ParseFile(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(entries).To(HaveLen(1))
	})

	It("should report missing files", func() {
		_, err := memlog.ParseFile(filepath.Join(GinkgoT().TempDir(), "nope"))

		Expect(errors.Is(err, parsing.ErrFileNotFound)).To(BeTrue())
	})
})
