package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/sarchlab/memcheck/datarecording"
	"github.com/sarchlab/memcheck/report"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var errNegativePage = errors.New("--limit and --offset must not be negative")

var showCmd = &cobra.Command{
	Use:   "show [flags] record",
	Short: "Print a run recorded with check --record.",
	Long: `Print a run recorded with check --record, in the same layout check
	uses. The ".sqlite3" suffix of the record may be omitted. Use --limit and
	--offset to print part of a long list of inconsistencies.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		page, err := showPage(cmd)
		if err != nil {
			log.Error(err)
			atexit.Exit(2)
		}

		err = runShow(cmd.Context(), args[0], page, os.Stdout)
		if err != nil {
			log.Error(err)
			atexit.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	addShowFlags(showCmd)
}

func addShowFlags(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0,
		"print at most this many inconsistencies (0 prints all)")
	cmd.Flags().Int("offset", 0, "skip this many inconsistencies")
}

func showPage(cmd *cobra.Command) (report.Page, error) {
	var page report.Page
	var err error

	page.Limit, err = cmd.Flags().GetInt("limit")
	if err != nil {
		return page, err
	}

	page.Offset, err = cmd.Flags().GetInt("offset")
	if err != nil {
		return page, err
	}

	if page.Limit < 0 || page.Offset < 0 {
		return page, errNegativePage
	}

	return page, nil
}

// runShow reads one page of the recording at path and prints it to out.
func runShow(
	ctx context.Context,
	path string,
	page report.Page,
	out io.Writer,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	rec, err := report.ReadRecording(ctx, reader, page)
	if err != nil {
		return err
	}

	return report.PrintRecorded(out, rec)
}
