package report

import (
	"bytes"
	"context"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/memcheck/checker"
	"github.com/sarchlab/memcheck/datarecording"
)

var _ = Describe("Recorded", func() {
	var reader datarecording.DataReader

	record := func(res checker.Result) {
		path := filepath.Join(GinkgoT().TempDir(), "run")

		recorder, err := datarecording.New(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(Emit(res, NewRecordingSink(recorder))).To(Succeed())
		Expect(recorder.Close()).To(Succeed())

		reader, err = datarecording.NewReader(path)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(reader.Close)
	}

	inconsistent := checker.Result{
		Entries: 9,
		Inconsistencies: []checker.Inconsistency{
			{
				Position: 2, Address: 0x1000, Value: 0xdeadbeef,
				LogBytes: [4]byte{0xde, 0xad, 0xbe, 0xef},
				Memory:   [4]checker.MemoryByte{present(0xee), {}, {}, {}},
			},
			{
				Position: 4, Address: 0x2000, Value: 0x1,
				LogBytes: [4]byte{0, 0, 0, 1},
			},
			{
				Position: 8, Address: 0x3000, Value: 0x2,
				LogBytes: [4]byte{0, 0, 0, 2},
			},
		},
	}

	It("should print a recorded run like a live one", func() {
		record(inconsistent)

		rec, err := ReadRecording(context.Background(), reader, Page{})
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Complete()).To(BeTrue())

		live := new(bytes.Buffer)
		Expect(Emit(inconsistent, NewPrinter(live))).To(Succeed())

		out := new(bytes.Buffer)
		Expect(PrintRecorded(out, rec)).To(Succeed())
		Expect(out.String()).To(Equal(live.String()))
	})

	It("should page the inconsistencies", func() {
		record(inconsistent)

		rec, err := ReadRecording(context.Background(), reader,
			Page{Limit: 1, Offset: 1})
		Expect(err).ToNot(HaveOccurred())
		Expect(rec.Complete()).To(BeFalse())

		out := new(bytes.Buffer)
		Expect(PrintRecorded(out, rec)).To(Succeed())
		Expect(out.String()).To(Equal(
			"Number of log entries: 9\n" +
				"4 0x2000 0x1 0x0 0x0 0x0 | -- -- -- --\n" +
				"Inconsistent lines (line numbers): [4]\n" +
				"Showing 1 of 3 inconsistencies from #2\n"))
	})

	It("should print a consistent run", func() {
		record(checker.Result{Entries: 3})

		rec, err := ReadRecording(context.Background(), reader, Page{})
		Expect(err).ToNot(HaveOccurred())

		out := new(bytes.Buffer)
		Expect(PrintRecorded(out, rec)).To(Succeed())
		Expect(out.String()).To(Equal(
			"Number of log entries: 3\n" +
				"All log entries are consistent with the data file\n"))
	})

	It("should reject a recording without a summary", func() {
		path := filepath.Join(GinkgoT().TempDir(), "partial")

		recorder, err := datarecording.New(path)
		Expect(err).ToNot(HaveOccurred())
		NewRecordingSink(recorder)
		Expect(recorder.Close()).To(Succeed())

		reader, err = datarecording.NewReader(path)
		Expect(err).ToNot(HaveOccurred())
		DeferCleanup(reader.Close)

		_, err = ReadRecording(context.Background(), reader, Page{})
		Expect(err).To(MatchError(ErrIncompleteRecording))
	})
})
