package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/memcheck/config"
	"github.com/sarchlab/memcheck/datarecording"
	"github.com/sarchlab/memcheck/report"
	"github.com/spf13/cobra"
)

func newShowCommand(args ...string) *cobra.Command {
	c := &cobra.Command{Use: "show"}
	addShowFlags(c)

	ExpectWithOffset(1, c.ParseFlags(args)).To(Succeed())

	return c
}

var _ = Describe("Show", func() {
	var (
		out  *bytes.Buffer
		path string
	)

	BeforeEach(func() {
		out = new(bytes.Buffer)
		path = filepath.Join(GinkgoT().TempDir(), "run")

		_, err := runCheck(config.Config{
			DataFile:   "testdata/image.data",
			LogFile:    "testdata/inconsistent.log",
			Record:     true,
			RecordPath: path,
		}, new(bytes.Buffer))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should print a recorded run as check printed it", func() {
		err := runShow(context.Background(), path, report.Page{}, out)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal(
			"Number of log entries: 6\n" +
				"3 0x1004 0x79 0x56 0x34 0x12 | 0x78 0x56 0x34 0x12\n" +
				"5 0x2000 0xfe 0x0 0x0 0x0 | 0xff -- -- --\n" +
				"Inconsistent lines (line numbers): [3, 5]\n"))
	})

	It("should accept the full file name", func() {
		err := runShow(context.Background(), path+".sqlite3",
			report.Page{Limit: 1}, out)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal(
			"Number of log entries: 6\n" +
				"3 0x1004 0x79 0x56 0x34 0x12 | 0x78 0x56 0x34 0x12\n" +
				"Inconsistent lines (line numbers): [3]\n" +
				"Showing 1 of 2 inconsistencies from #1\n"))
	})

	It("should print the requested page", func() {
		page, err := showPage(newShowCommand("--limit", "1", "--offset", "1"))
		Expect(err).ToNot(HaveOccurred())

		err = runShow(context.Background(), path, page, out)

		Expect(err).ToNot(HaveOccurred())
		Expect(out.String()).To(Equal(
			"Number of log entries: 6\n" +
				"5 0x2000 0xfe 0x0 0x0 0x0 | 0xff -- -- --\n" +
				"Inconsistent lines (line numbers): [5]\n" +
				"Showing 1 of 2 inconsistencies from #2\n"))
	})

	It("should reject negative pages", func() {
		_, err := showPage(newShowCommand("--offset", "-1"))

		Expect(err).To(MatchError(errNegativePage))
	})

	It("should fail on a missing recording", func() {
		err := runShow(context.Background(),
			filepath.Join(GinkgoT().TempDir(), "absent"), report.Page{}, out)

		Expect(errors.Is(err, datarecording.ErrNoRecording)).To(BeTrue())
		Expect(out.String()).To(BeEmpty())
	})
})
