package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tablegen/internal/app"
	"github.com/JonMunkholm/tablegen/internal/core"
	"github.com/JonMunkholm/tablegen/internal/formatter"
	"github.com/JonMunkholm/tablegen/internal/mcptool"
)

var (
	recoverFormat       string
	schemaFormat        string
	normalizeMode       string
	normalizeMaxTextLen int
	generateFormat      string
	synthMode           string
	synthRows           int
	synthMaxTextLen     int
	runsLimit           int
)

func newRecoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recover [file]",
		Short: "Recover a table from generated text",
		Long: `Recover reads text produced by a language model (from a file or stdin),
strips code fences and prose and writes the table it contains.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := core.ParseFormat(recoverFormat, core.FormatCSV)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			raw, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			table, err := core.RecoverTable(string(raw))
			if err != nil {
				return err
			}
			return writeTable(cmd, table, f)
		},
	}
	cmd.Flags().StringVarP(&recoverFormat, "format", "f", "csv", "Output format: csv, xlsx or parquet")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema <file.csv>...",
		Short: "Infer primary keys and relationships",
		Long: `Schema classifies the columns of each CSV file, picks a primary key per
table and reports advisory foreign-key links between tables. Table names come
from the file names.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := readTables(args)
			if err != nil {
				return err
			}
			schema, err := core.InferSchema(tables)
			if err != nil {
				return err
			}

			w, closeOut, err := output(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			f, err := formatter.New(schemaFormat, w)
			if err != nil {
				_ = closeOut()
				return err
			}
			if err := f.Format(schema); err != nil {
				_ = closeOut()
				return fmt.Errorf("failed to format output: %w", err)
			}
			return closeOut()
		},
	}
	cmd.Flags().StringVarP(&schemaFormat, "format", "f", formatter.FormatText, "Output format: "+strings.Join(formatter.Formats, ", "))
	return cmd
}

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize <file.csv>",
		Short: "Fingerprint or truncate free-text columns",
		Long: `Normalize prepares a table for a synthesizer. Single mode replaces
free-text values with stable integer fingerprints; multi mode cuts them to
--max-text-len characters.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := core.ParseMode(normalizeMode)
			if err != nil {
				return err
			}
			t, err := core.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			out, err := core.Normalize(t, core.NormalizeOptions{Mode: m, MaxTextLen: normalizeMaxTextLen})
			if err != nil {
				return err
			}
			return writeTable(cmd, out, core.FormatCSV)
		},
	}
	cmd.Flags().StringVarP(&normalizeMode, "mode", "m", string(core.ModeSingle), "Normalization mode: single or multi")
	cmd.Flags().IntVar(&normalizeMaxTextLen, "max-text-len", core.DefaultMaxTextLen, "Characters kept per free-text value in multi mode")
	return cmd
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate a dataset from a prompt",
		Long: `Generate asks the configured text generator (GENERATOR_COMMAND,
GENERATOR_MODEL) for a dataset, recovers the table from its output and writes
the assembled document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := core.ParseFormat(generateFormat, "")
			if err != nil {
				return err
			}
			res, err := a.Service.GenerateFromPrompt(ctx, strings.Join(args, " "), f)
			if err != nil {
				var re *core.RecoveryError
				if errors.As(err, &re) {
					return fmt.Errorf("model did not output valid CSV: %w", err)
				}
				return err
			}

			art := res.Artifacts[0]
			if outputFile == "" {
				outputFile = art.Name
			}
			if err := copyArtifact(ctx, a.Service, res.RunID, art.Name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d rows, %d columns, run %s)\n", outputFile, art.Rows, art.Columns, res.RunID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&generateFormat, "format", "f", "", "Output format: xlsx, csv or parquet (default: GENERATOR_FORMAT)")
	return cmd
}

func newSynthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "synth <file.csv>...",
		Short: "Train a synthesizer and sample synthetic tables",
		Long: `Synth normalizes the given tables, trains the external synthesizer
(SYNTH_COMMAND) and stores synthetic_<table>.csv for every sampled table in
the artifact store. Single mode uses the first file only.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			tables, err := readTables(args)
			if err != nil {
				return err
			}
			m, err := core.ParseMode(synthMode)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.Synthesize(ctx, core.SynthesizeRequest{
				Mode:       m,
				Tables:     tables,
				Rows:       synthRows,
				MaxTextLen: synthMaxTextLen,
			})
			if err != nil {
				return err
			}

			w, closeOut, err := output(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				_ = closeOut()
				return err
			}
			return closeOut()
		},
	}
	cmd.Flags().StringVarP(&synthMode, "mode", "m", string(core.ModeSingle), "Synthesis mode: single or multi")
	cmd.Flags().IntVarP(&synthRows, "rows", "n", 0, "Rows to sample (default: SYNTH_DEFAULT_ROWS)")
	cmd.Flags().IntVar(&synthMaxTextLen, "max-text-len", 0, "Free-text truncation in multi mode (default: SYNTH_MAX_TEXT_LEN)")
	return cmd
}

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs from the history store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			runs, err := a.Service.RecentRuns(cmd.Context(), runsLimit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range runs {
				status := string(r.Status)
				if r.FailureKind != "" {
					status += " (" + r.FailureKind + ")"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d rows\t%s\n", r.ID, r.Kind, status, r.Rows, r.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve recovery, schema and normalization tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return mcptool.ServeStdio(ctx, version)
		},
	}
}

func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return app.New(ctx, cfg)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func readTables(paths []string) ([]*core.Table, error) {
	tables := make([]*core.Table, 0, len(paths))
	for _, p := range paths {
		t, err := core.ReadTableFile(p)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func writeTable(cmd *cobra.Command, t *core.Table, f core.Format) error {
	w, closeOut, err := output(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := core.Assemble(w, t, f); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

func copyArtifact(ctx context.Context, svc *core.Service, runID, name string) error {
	rc, err := svc.OpenArtifact(ctx, runID, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
