// Command tablegen recovers, inspects, normalizes and synthesizes tabular
// data from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablegen/internal/config"
	"github.com/JonMunkholm/tablegen/internal/logging"
)

var version = "dev"

var (
	outputFile string
	logLevel   string
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tablegen",
		Short: "Recover, validate and synthesize tabular data",
		Long: `tablegen turns loosely formatted model output into validated tables,
infers primary keys and relationships across CSV files, normalizes free-text
columns and drives external synthesizers to produce synthetic datasets.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupWriter(cmd.ErrOrStderr(), logLevel, "text")
		},
	}
	root.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		newRecoverCmd(),
		newSchemaCmd(),
		newNormalizeCmd(),
		newGenerateCmd(),
		newSynthCmd(),
		newRunsCmd(),
		newMCPCmd(),
	)
	return root
}

// output opens the --output file, or returns w when none is set.
func output(w io.Writer) (io.Writer, func() error, error) {
	if outputFile == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// loadConfig reads .env and the environment for commands that need engines
// or stores.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	return config.Load()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
