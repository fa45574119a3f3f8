package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/tchat/internal"
	"github.com/iksnae/tchat/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// maxParallelFetches bounds concurrent session downloads during export
const maxParallelFetches = 4

var (
	format    string
	outputDir string
	toStdout  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export [session-id...]",
	Short: "Export saved sessions to file",
	Long: `Export saved sessions to various formats (jsonl, md, yaml, json).

Without ids every saved session is exported. Use 'tchat sessions list' to see
available session IDs.`,
	Example: `  tchat export                          # All sessions as JSONL into ./exports
  tchat export 42 --format md           # One session as Markdown
  tchat export 42 --format yaml --stdout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Create exporter
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		ids := make([]internal.SessionID, 0, len(args))
		for _, arg := range args {
			id, err := parseSessionID(arg)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if toStdout && len(ids) != 1 {
			return fmt.Errorf("--stdout needs exactly one session id")
		}

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if _, err := a.requireLogin(ctx, "export sessions"); err != nil {
			return err
		}

		if len(ids) == 0 {
			summaries, err := a.client.ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			for _, s := range summaries {
				ids = append(ids, s.ID)
			}
		}
		if len(ids) == 0 {
			internal.PrintInfo("No sessions to export")
			return nil
		}

		normalizer := internal.NewNormalizer()
		transcripts := make([]*internal.Transcript, len(ids))
		fetch := func() error {
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(maxParallelFetches)
			for i, id := range ids {
				g.Go(func() error {
					detail, err := a.client.GetSession(gctx, id)
					if err != nil {
						if internal.IsNotFound(err) {
							return fmt.Errorf("session not found: %d (use 'tchat sessions list' to see available sessions)", id)
						}
						return fmt.Errorf("failed to load session %d: %w", id, err)
					}
					t, err := normalizer.NormalizeDetail(detail)
					if err != nil {
						return err
					}
					transcripts[i] = t
					return nil
				})
			}
			return g.Wait()
		}

		if toStdout {
			if err := fetch(); err != nil {
				return err
			}
			return exporter.Export(transcripts[0], cmd.OutOrStdout())
		}

		if err := internal.ShowProgress(ctx, fmt.Sprintf("Fetching %d session(s)", len(ids)), fetch); err != nil {
			return err
		}

		// Ensure output directory exists
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(transcripts), outputDir), func() error {
			for _, t := range transcripts {
				if err := writeTranscript(exporter, t, outputDir); err != nil {
					internal.PrintError(err.Error())
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(fmt.Sprintf("Export complete: %d session(s) exported to %s", exported, outputDir))
		if exported < len(transcripts) {
			return fmt.Errorf("%d session(s) failed to export", len(transcripts)-exported)
		}
		return nil
	},
}

// writeTranscript writes one transcript to dir as session_<id>.<ext>
func writeTranscript(exporter export.Exporter, t *internal.Transcript, dir string) error {
	filename := fmt.Sprintf("session_%d.%s", t.SessionID, exporter.Extension())
	path := filepath.Join(dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := exporter.Export(t, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: exporter.Extension(), Path: path, Err: err}
	}
	internal.LogDebug("Wrote %s", path)
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write a single session to standard output")
}
