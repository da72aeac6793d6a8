package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/sarchlab/memcheck/checker"
	"github.com/sarchlab/memcheck/config"
	"github.com/sarchlab/memcheck/datarecording"
	"github.com/sarchlab/memcheck/memlog"
	"github.com/sarchlab/memcheck/memory"
	"github.com/sarchlab/memcheck/monitoring"
	"github.com/sarchlab/memcheck/report"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [data_file log_file]",
	Short: "Check a simulation log against an expected memory image.",
	Long: `Check a simulation log against an expected memory image.
	The data file is a textual memory dump made of "@ <address>" markers
	followed by hexadecimal bytes. The log file holds "<address> -> <value>"
	lines recording 32-bit writes. Paths may also come from the
	MEMCHECK_DATA_FILE and MEMCHECK_LOG_FILE environment variables.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := checkConfig(cmd, args)
		if err != nil {
			log.Error(err)
			atexit.Exit(2)
		}

		if cfg.Verbose {
			log.SetLevel(log.DebugLevel)
		}

		res, err := runCheck(cfg, os.Stdout)
		if err != nil {
			log.Error(err)
			atexit.Exit(1)
		}

		if cfg.Monitor {
			err = serveResult(cfg, res)
			if err != nil {
				log.Error(err)
				atexit.Exit(1)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("record", false,
		"record the result into a SQLite database")
	cmd.Flags().String("record-path", "",
		"database to record into (default memcheck_<id>.sqlite3)")
	cmd.Flags().Bool("monitor", false,
		"serve the result over HTTP until interrupted")
	cmd.Flags().Int("port", 0, "port of the monitoring server")
	cmd.Flags().Bool("open", false,
		"open the monitoring page in a browser")
}

// checkConfig merges the environment with the command line. Arguments and
// flags win.
func checkConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return config.Config{}, err
	}

	var dataFile, logFile string
	if len(args) > 0 {
		dataFile = args[0]
	}

	if len(args) > 1 {
		logFile = args[1]
	}

	cfg = cfg.WithInputs(dataFile, logFile)

	flags := cmd.Flags()

	if flags.Changed("record-path") {
		cfg.RecordPath, _ = flags.GetString("record-path")
		cfg.Record = true
	}

	if flags.Changed("record") {
		cfg.Record = getFlag(cmd, "record")
	}

	if flags.Changed("port") {
		cfg.MonitorPort, _ = flags.GetInt("port")
		cfg.Monitor = true
	}

	if flags.Changed("monitor") {
		cfg.Monitor = getFlag(cmd, "monitor")
	}

	cfg.OpenBrowser = getFlag(cmd, "open")
	if cfg.OpenBrowser {
		cfg.Monitor = true
	}

	cfg.Verbose = cfg.Verbose || getFlag(cmd, "verbose")

	return cfg, cfg.Validate()
}

// runCheck loads both inputs, checks them and reports the result to out and,
// if enabled, to the recording database. The database is only created once
// both inputs have been read, so a failed run leaves nothing behind.
func runCheck(cfg config.Config, out io.Writer) (checker.Result, error) {
	begin := time.Now()

	img, err := memory.LoadImageFile(cfg.DataFile)
	if err != nil {
		return checker.Result{}, err
	}

	log.Debugf("Loaded %d bytes from %s in %s",
		img.Len(), cfg.DataFile, time.Since(begin))

	start := time.Now()

	entries, err := memlog.ParseFile(cfg.LogFile)
	if err != nil {
		return checker.Result{}, err
	}

	log.Debugf("Parsed %d log entries from %s in %s",
		len(entries), cfg.LogFile, time.Since(start))

	res := checker.Check(img, entries)

	sinks := []report.Sink{report.NewPrinter(out)}

	var execRecorder *datarecording.ExecRecorder

	if cfg.Record {
		recorder, err := datarecording.New(cfg.RecordPath)
		if err != nil {
			return checker.Result{}, err
		}
		defer recorder.Close()

		execRecorder = datarecording.NewExecRecorder(recorder)
		execRecorder.StartAt(begin)
		execRecorder.Add("Data File", cfg.DataFile)
		execRecorder.Add("Log File", cfg.LogFile)

		sinks = append(sinks, report.NewRecordingSink(recorder))
	}

	err = report.Emit(res, sinks...)
	if err != nil {
		return checker.Result{}, err
	}

	if execRecorder != nil {
		execRecorder.End()
	}

	return res, nil
}

// serveResult serves the result until the process is interrupted.
func serveResult(cfg config.Config, res checker.Result) error {
	m := monitoring.NewMonitor().WithPortNumber(cfg.MonitorPort)
	m.RegisterResult(cfg.DataFile, cfg.LogFile, res)

	url, err := m.StartServer()
	if err != nil {
		return err
	}
	defer m.Close()

	if cfg.OpenBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			log.Warnf("Cannot open browser: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Press Ctrl+C to stop the monitoring server")
	<-ctx.Done()

	return nil
}
