package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/document"
)

var (
	notebookFormat  string
	notebookContent string
)

func init() {
	notebookRenderCmd.Flags().StringVar(&notebookFormat, "format", "", "Citation format (simple, apa, mla, chicago)")
	notebookSaveCmd.Flags().StringVar(&notebookContent, "content", "-", "Document JSON file, or - for stdin")

	notebookCmd.AddCommand(notebookNewCmd, notebookListCmd, notebookShowCmd, notebookRenderCmd, notebookSaveCmd)
	rootCmd.AddCommand(notebookCmd)
}

var notebookCmd = &cobra.Command{
	Use:   "notebook",
	Short: "Create, inspect and render notebooks",
}

var notebookNewCmd = &cobra.Command{
	Use:   "new <title>",
	Short: "Create an empty notebook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		nb, err := db.CreateNotebook(context.Background(), args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			outputHuman("Created notebook %s: %s\n", nb.ID, nb.Title)
		} else {
			outputJSON(nb)
		}
		return nil
	},
}

var notebookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notebooks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		nbs, err := db.ListNotebooks(context.Background())
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			for _, nb := range nbs {
				outputHuman("%s  %s\n", nb.ID, truncateString(nb.Title, ListTitleMaxLen))
			}
			if len(nbs) == 0 {
				outputHuman("No notebooks\n")
			}
		} else {
			outputJSON(nbs)
		}
		return nil
	},
}

var notebookShowCmd = &cobra.Command{
	Use:   "show [notebook-id]",
	Short: "Show a notebook's text and sources",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		sess := mustOpenSession(ctx, db, cfg, notebookArg(args, 0), "")
		defer sess.Close()

		if humanOutput {
			outputHuman("%s  %s\n\n%s\n", sess.Notebook.ID, sess.Notebook.Title, sess.Doc().Text())
			srcs := sess.Catalog.List()
			outputHuman("\nSources (%d):\n", len(srcs))
			for _, src := range srcs {
				outputHuman("  %s\n", formatSourceLine(src))
			}
			return nil
		}

		outputJSON(struct {
			ID      string      `json:"id"`
			Title   string      `json:"title"`
			Text    string      `json:"text"`
			Doc     interface{} `json:"doc"`
			Sources interface{} `json:"sources"`
		}{
			ID:      sess.Notebook.ID,
			Title:   sess.Notebook.Title,
			Text:    sess.Doc().Text(),
			Doc:     sess.Doc(),
			Sources: sess.Catalog.List(),
		})
		return nil
	},
}

var notebookRenderCmd = &cobra.Command{
	Use:   "render [notebook-id]",
	Short: "Render every citation in a notebook",
	Long: `Render every citation mark in a notebook against its source catalog.

Citations whose source has been deleted render with the stored label and
are reported as dangling.

Examples:
  folio notebook render nb-123
  folio notebook render nb-123 --format apa --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		sess := mustOpenSession(ctx, db, cfg, notebookArg(args, 0), notebookFormat)
		defer sess.Close()

		renderings, err := sess.Render()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		dangling := sess.Binder.Dangling(sess.Doc())
		if dangling == nil {
			dangling = []string{}
		}

		if humanOutput {
			for _, r := range renderings {
				outputHuman("%-20s %-9s %s\n", r.Label, r.State, r.Tooltip)
			}
			if len(dangling) > 0 {
				outputHuman("\n%d dangling citation(s)\n", len(dangling))
			}
			return nil
		}

		outputJSON(RenderResponse{
			NotebookID: sess.Notebook.ID,
			Format:     string(sess.Binder.Format()),
			Citations:  renderings,
			Dangling:   dangling,
		})
		return nil
	},
}

var notebookSaveCmd = &cobra.Command{
	Use:   "save [notebook-id]",
	Short: "Replace a notebook's document",
	Long: `Replace a notebook's document with the given JSON.

Examples:
  folio notebook save nb-123 --content doc.json
  cat doc.json | folio notebook save nb-123`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		data, err := readContent(notebookContent)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		doc, err := document.Parse(data)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}

		sess := mustOpenSession(ctx, db, cfg, notebookArg(args, 0), "")
		defer sess.Close()

		if err := sess.Replace(doc); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if err := sess.Save(ctx); err != nil {
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			outputHuman("Saved notebook %s\n", sess.Notebook.ID)
		} else {
			outputJSON(StatusResponse{Status: "saved", ID: sess.Notebook.ID})
		}
		return nil
	},
}

// readContent reads path, or stdin when path is "-".
func readContent(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}
