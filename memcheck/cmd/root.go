// Package cmd provides the command-line interface of memcheck.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Version is filled when building with make, but *not* when installing via "go
// install".
var Version string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "memcheck",
	Short: "Check simulation memory logs against expected memory images.",
	Long: `memcheck verifies that the memory writes recorded by a simulation ` +
		`agree with an expected memory image, and reports the log entries ` +
		`that do not.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if getFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if !getFlag(cmd, "version") {
			fmt.Println(cmd.UsageString())
			return
		}

		fmt.Print("memcheck ")

		if Version != "" {
			fmt.Printf("%s", Version)
		} else if info, ok := debug.ReadBuildInfo(); ok {
			fmt.Printf("%s", info.Main.Version)
		} else {
			fmt.Printf("(unknown version)")
		}

		fmt.Println()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	atexit.Exit(exitCode(rootCmd.Execute()))
}

// exitCode maps the error returned by cobra to the exit status. Commands exit
// by themselves on failure, so cobra only returns the errors of parsing the
// command line, which are configuration errors.
func exitCode(err error) int {
	if err != nil {
		return 2
	}

	return 0
}

func init() {
	log.SetOutput(os.Stderr)

	rootCmd.Flags().Bool("version", false, "Report version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"increase logging verbosity")
	rootCmd.PersistentFlags().String("env-file", "",
		"dotenv file to read settings from (default .env, if present)")
}

// Get an expected flag, or panic if an error arises.
func getFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		panic(err)
	}

	return r
}
