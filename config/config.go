// Package config collects the settings of a check run from a dotenv file,
// the environment and the command line.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is loaded when no env file is given explicitly. It is fine
// for it not to exist.
const DefaultEnvFile = ".env"

// Environment variables that configure a run.
const (
	EnvDataFile    = "MEMCHECK_DATA_FILE"
	EnvLogFile     = "MEMCHECK_LOG_FILE"
	EnvRecord      = "MEMCHECK_RECORD"
	EnvRecordPath  = "MEMCHECK_RECORD_PATH"
	EnvMonitorPort = "MEMCHECK_MONITOR_PORT"
	EnvVerbose     = "MEMCHECK_VERBOSE"
)

// ErrMissingInput is returned by Validate when an input path is not set.
var ErrMissingInput = errors.New("missing input file")

// Config holds the settings of one check run.
type Config struct {
	// DataFile is the path of the expected memory image.
	DataFile string

	// LogFile is the path of the execution log.
	LogFile string

	// Record enables recording the result into a SQLite database at
	// RecordPath. An empty RecordPath gets a generated name.
	Record     bool
	RecordPath string

	Monitor     bool
	MonitorPort int
	OpenBrowser bool
	Verbose     bool
}

// Load reads envFile, if any, and then builds a Config from the
// environment. Variables already set in the environment take precedence over
// the file. An empty envFile means DefaultEnvFile, which may be absent.
func Load(envFile string) (Config, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = DefaultEnvFile
	}

	err := godotenv.Load(envFile)
	if err != nil && (explicit || !errors.Is(err, fs.ErrNotExist)) {
		return Config{}, fmt.Errorf("loading %s: %w", envFile, err)
	}

	return FromEnv()
}

// FromEnv builds a Config from the environment variables only.
func FromEnv() (Config, error) {
	c := Config{
		DataFile:   os.Getenv(EnvDataFile),
		LogFile:    os.Getenv(EnvLogFile),
		RecordPath: os.Getenv(EnvRecordPath),
	}

	// A path alone turns recording on, like --record-path does.
	c.Record = c.RecordPath != ""
	if v, ok := os.LookupEnv(EnvRecord); ok {
		c.Record = isTrue(v)
	}

	if port, ok := os.LookupEnv(EnvMonitorPort); ok && port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %q is not a port number",
				EnvMonitorPort, port)
		}

		c.Monitor = true
		c.MonitorPort = n
	}

	if v, ok := os.LookupEnv(EnvVerbose); ok {
		c.Verbose = isTrue(v)
	}

	return c, nil
}

// WithInputs overrides the input paths with those that are non-empty.
func (c Config) WithInputs(dataFile, logFile string) Config {
	if dataFile != "" {
		c.DataFile = dataFile
	}

	if logFile != "" {
		c.LogFile = logFile
	}

	return c
}

// Validate checks that both inputs are known.
func (c Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("%w: data file (set %s or pass it as argument)",
			ErrMissingInput, EnvDataFile)
	}

	if c.LogFile == "" {
		return fmt.Errorf("%w: log file (set %s or pass it as argument)",
			ErrMissingInput, EnvLogFile)
	}

	return nil
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}
