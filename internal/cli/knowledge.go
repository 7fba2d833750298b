package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// KnowledgeCmd returns the knowledge command group.
func KnowledgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "knowledge",
		Aliases: []string{"kb"},
		Short:   "Manage the knowledge store",
		Long:    "Index documents into, inspect, and reset the knowledge store",
	}

	cmd.AddCommand(knowledgeIngestCmd())
	cmd.AddCommand(knowledgeStatsCmd())
	cmd.AddCommand(knowledgeResetCmd())

	return cmd
}

func knowledgeIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Index local documents",
		Long:  "Extract, chunk, embed and store one or more PDF, text or image files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := adminApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.BuildServices(); err != nil {
				return err
			}
			return ingestFiles(ctx, cmd, app, args)
		},
	}
}

func ingestFiles(ctx context.Context, cmd *cobra.Command, app *App, paths []string) error {
	out := cmd.OutOrStdout()
	total := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))

		result, err := app.KnowledgeService.IngestDocument(ctx, filepath.Base(path), contentType, data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		fmt.Fprintln(out, result.Message())
		total += result.Indexed
	}
	if len(paths) > 1 {
		fmt.Fprintf(out, "Total: %d chunk(s), store now holds %d\n", total, app.Knowledge.Len())
	}
	return nil
}

func knowledgeStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge store size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := adminApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			outputFormat, _ := cmd.Flags().GetString("output")
			return printStats(cmd, app, outputFormat)
		},
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func printStats(cmd *cobra.Command, app *App, outputFormat string) error {
	out := cmd.OutOrStdout()
	stats := map[string]any{
		"chunks":    app.Knowledge.Len(),
		"dimension": app.Knowledge.Dimension(),
		"sources":   app.Knowledge.Sources(),
	}
	if outputFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	fmt.Fprintf(out, "Chunks:    %d\n", app.Knowledge.Len())
	fmt.Fprintf(out, "Dimension: %d\n", app.Knowledge.Dimension())
	sources := app.Knowledge.Sources()
	fmt.Fprintf(out, "Sources:   %d\n", len(sources))
	for _, s := range sources {
		fmt.Fprintf(out, "  - %s\n", s)
	}
	return nil
}

func knowledgeResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove every indexed chunk",
		Long:  "Remove every indexed chunk. Required after switching between keyword and embedding retrieval, since stored vectors do not carry over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			ctx := cmd.Context()
			app, err := adminApp(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			n := app.Knowledge.Len()
			if err := app.Knowledge.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d chunk(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Confirm the reset")

	return cmd
}
