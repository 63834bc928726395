package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/export"
	"github.com/matsen/folio/internal/source"
	"github.com/matsen/folio/internal/storage"
)

var (
	exportNotebook string
	exportKeys     string
	exportAppend   string
)

func init() {
	exportCmd.PersistentFlags().StringVar(&exportNotebook, "notebook", "", "Export only this notebook's sources")
	exportCmd.PersistentFlags().StringVar(&exportKeys, "keys", "", "Export only specified source IDs (comma-separated)")
	exportBibtexCmd.Flags().StringVar(&exportAppend, "append", "", "Append entries missing from this .bib file instead of printing")

	exportCmd.AddCommand(exportBibtexCmd, exportJSONLCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sources to BibTeX or JSONL",
}

// selectSources returns the sources named by --keys, or those of
// --notebook, or every source.
func selectSources(ctx context.Context, db *storage.DB) []source.Source {
	if exportKeys != "" {
		var srcs []source.Source
		for _, key := range strings.Split(exportKeys, ",") {
			key = strings.TrimSpace(key)
			src, err := db.GetSource(ctx, key)
			if err != nil {
				exitWithError(exitCodeFor(err), "getting source %s: %v", key, err)
			}
			srcs = append(srcs, src)
		}
		return srcs
	}

	if exportNotebook != "" {
		raw, err := db.ListNotebookSources(ctx, exportNotebook)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		srcs, _ := source.Normalize(raw)
		return srcs
	}

	srcs, err := db.ListSources(ctx)
	if err != nil {
		exitWithError(ExitError, "listing sources: %v", err)
	}
	return srcs
}

var exportBibtexCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Export sources as BibTeX",
	Long: `Export sources as BibTeX entries.

With --append, entries whose DOI or key already appear in the file are
skipped and the rest are appended.

Examples:
  folio export bibtex > refs.bib
  folio export bibtex --notebook nb-123
  folio export bibtex --notebook nb-123 --append paper/refs.bib`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		srcs := selectSources(ctx, db)

		if exportAppend == "" {
			// BibTeX is always text output, never JSON
			fmt.Print(export.ToBibTeXList(srcs))
			return nil
		}

		idx, err := export.ParseBibTeXFile(exportAppend)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		missing := idx.Missing(srcs)
		if len(missing) > 0 {
			if err := export.AppendToBibFile(exportAppend, export.ToBibTeXList(missing)); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		if humanOutput {
			outputHuman("Appended %d of %d entries to %s\n", len(missing), len(srcs), exportAppend)
		} else {
			outputJSON(StatusResponse{Status: "appended", Path: exportAppend, Count: len(missing)})
		}
		return nil
	},
}

var exportJSONLCmd = &cobra.Command{
	Use:   "jsonl",
	Short: "Export sources as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		if err := storage.EncodeSourcesJSONL(os.Stdout, selectSources(ctx, db)); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		return nil
	},
}
