package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/catalog"
	"github.com/matsen/folio/internal/clipboard"
	"github.com/matsen/folio/internal/config"
	"github.com/matsen/folio/internal/importer"
	"github.com/matsen/folio/internal/query"
	"github.com/matsen/folio/internal/source"
	"github.com/matsen/folio/internal/storage"
)

// sourceFlags holds the field flags shared by add and update.
var sourceFlags struct {
	title       string
	authors     []string
	typ         string
	publication string
	date        string
	url         string
	doi         string
	paper       string
}

var (
	sourceNotebook string
	rebuildFrom    string

	getCopy   bool
	getShort  bool
	getFormat string
)

func init() {
	for _, c := range []*cobra.Command{sourceAddCmd, sourceUpdateCmd} {
		c.Flags().StringVar(&sourceFlags.title, "title", "", "Title")
		c.Flags().StringArrayVar(&sourceFlags.authors, "author", nil, "Author (repeatable, in order)")
		c.Flags().StringVar(&sourceFlags.typ, "type", "", "Source type (website, book, article, video, podcast, paper, other)")
		c.Flags().StringVar(&sourceFlags.publication, "publication", "", "Journal, publisher or site")
		c.Flags().StringVar(&sourceFlags.date, "date", "", "Publication date (YYYY-MM-DD)")
		c.Flags().StringVar(&sourceFlags.url, "url", "", "URL")
		c.Flags().StringVar(&sourceFlags.doi, "doi", "", "DOI")
		c.Flags().StringVar(&sourceFlags.paper, "paper", "", "Linked library paper ID")
	}
	sourceAddCmd.Flags().StringVar(&sourceNotebook, "notebook", "", "Attach the new source to this notebook")
	sourceListCmd.Flags().StringVar(&sourceNotebook, "notebook", "", "List only this notebook's sources")
	sourceGetCmd.Flags().BoolVar(&getCopy, "copy", false, "Copy the formatted citation to the clipboard")
	sourceGetCmd.Flags().BoolVar(&getShort, "short", false, "With --copy, copy the in-text label instead of the full citation")
	sourceGetCmd.Flags().StringVar(&getFormat, "format", "", "Citation format for --short (simple, apa, mla, chicago)")
	sourceImportCmd.Flags().StringVar(&sourceNotebook, "notebook", "", "Attach imported sources to this notebook")
	sourceRebuildCmd.Flags().StringVar(&rebuildFrom, "from", "", "JSONL file to load (default: .folio/sources.jsonl)")

	sourceCmd.AddCommand(sourceAddCmd, sourceListCmd, sourceGetCmd, sourceUpdateCmd, sourceDeleteCmd,
		sourceAttachCmd, sourceDetachCmd, sourceRebuildCmd, sourceImportCmd)
	rootCmd.AddCommand(sourceCmd)
}

var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Manage bibliographic sources",
}

// partialFromFlags builds an update request from the flags the user set.
func partialFromFlags(cmd *cobra.Command) source.Partial {
	var p source.Partial
	set := func(name string, dst **string, v string) {
		if cmd.Flags().Changed(name) {
			s := v
			*dst = &s
		}
	}
	set("title", &p.Title, sourceFlags.title)
	set("publication", &p.Publication, sourceFlags.publication)
	set("date", &p.PublicationDate, sourceFlags.date)
	set("url", &p.URL, sourceFlags.url)
	set("doi", &p.DOI, sourceFlags.doi)
	set("paper", &p.PaperID, sourceFlags.paper)

	if cmd.Flags().Changed("author") {
		authors := make([]string, 0, len(sourceFlags.authors))
		for _, a := range sourceFlags.authors {
			if a = strings.TrimSpace(a); a != "" {
				authors = append(authors, a)
			}
		}
		p.Authors = &authors
	}
	if cmd.Flags().Changed("type") {
		t, ok := source.ParseType(sourceFlags.typ)
		if !ok {
			exitWithError(ExitDataError, "unknown source type: %s", sourceFlags.typ)
		}
		p.Type = &t
	}
	return p
}

// openCatalog loads the catalog of one notebook.
func openCatalog(ctx context.Context, db *storage.DB, cfg *config.Config, notebookID string) *catalog.Catalog {
	cat := catalog.New(notebookID, db, query.NewClient(cfg.StaleDuration()))
	if err := cat.Refresh(ctx); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return cat
}

// syncSourcesJSONL rewrites the JSONL backup after a mutation.
func syncSourcesJSONL(ctx context.Context, repoRoot string, db *storage.DB) {
	srcs, err := db.ListSources(ctx)
	if err != nil {
		exitWithError(ExitError, "listing sources: %v", err)
	}
	if err := storage.WriteSourcesJSONL(config.SourcesPath(repoRoot), srcs); err != nil {
		exitWithError(ExitError, "%v", err)
	}
}

func outputSource(verb string, src source.Source) {
	if humanOutput {
		outputHuman("%s %s: %s\n", verb, src.ID, src.Title)
	} else {
		outputJSON(src)
	}
}

var sourceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a source",
	Long: `Create a source, optionally attaching it to a notebook.

Examples:
  folio source add --title "Sketch of the Analytical Engine" --author "Ada Lovelace" --date 1843
  folio source add --notebook nb-123 --type paper --paper p-9 --title "..." --doi 10.1000/xyz`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		p := partialFromFlags(cmd)
		if source.Value(p.Title) == "" {
			exitWithError(ExitError, "--title is required")
		}

		var src source.Source
		var err error
		switch {
		case sourceNotebook != "" && p.PaperID != nil && p.Type == nil:
			cat := openCatalog(ctx, db, cfg, sourceNotebook)
			var authors []string
			if p.Authors != nil {
				authors = *p.Authors
			}
			src, err = cat.CreateFromPaper(ctx, *p.PaperID, *p.Title, authors,
				source.Value(p.DOI), source.Value(p.Publication))
		case sourceNotebook != "":
			src, err = openCatalog(ctx, db, cfg, sourceNotebook).Create(ctx, p)
		default:
			src, err = db.CreateSource(ctx, p)
		}
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}

		syncSourcesJSONL(ctx, repoRoot, db)
		outputSource("Created", src)
		return nil
	},
}

var sourceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		var srcs []source.Source
		if sourceNotebook != "" {
			srcs = openCatalog(ctx, db, cfg, sourceNotebook).List()
		} else {
			var err error
			if srcs, err = db.ListSources(ctx); err != nil {
				exitWithError(ExitError, "%v", err)
			}
		}

		if humanOutput {
			for _, src := range srcs {
				outputHuman("%s\n", formatSourceLine(src))
			}
			if len(srcs) == 0 {
				outputHuman("No sources\n")
			}
		} else {
			if srcs == nil {
				srcs = []source.Source{}
			}
			outputJSON(srcs)
		}
		return nil
	},
}

var sourceGetCmd = &cobra.Command{
	Use:   "get <source-id>",
	Short: "Show one source",
	Long: `Show one source.

Examples:
  folio source get src-456
  folio source get src-456 --copy
  folio source get src-456 --copy --short --format apa`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		src, err := db.GetSource(context.Background(), args[0])
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}

		if getCopy {
			format := config.ResolveFormat(getFormat, mustLoadConfig(repoRoot))
			text, err := clipboard.CopyCitation(&src, getShort, format)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
			if humanOutput {
				outputHuman("Copied: %s\n", text)
			} else {
				outputJSON(map[string]string{"status": "copied", "text": text})
			}
			return nil
		}

		if humanOutput {
			outputHuman("%s", formatSourceDetail(src))
		} else {
			outputJSON(src)
		}
		return nil
	},
}

var sourceUpdateCmd = &cobra.Command{
	Use:   "update <source-id>",
	Short: "Change fields of a source",
	Long: `Change fields of a source. Only the flags given are changed.

Examples:
  folio source update src-456 --title "Corrected title"
  folio source update src-456 --author "Ada Lovelace" --author "L. F. Menabrea"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		src, err := db.UpdateSource(ctx, args[0], partialFromFlags(cmd))
		if err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		syncSourcesJSONL(ctx, repoRoot, db)
		outputSource("Updated", src)
		return nil
	},
}

var sourceDeleteCmd = &cobra.Command{
	Use:   "delete <source-id>",
	Short: "Delete a source",
	Long: `Delete a source and its notebook associations.

Citation marks that point at the source stay in their notebooks and
render as dangling.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		if err := db.DeleteSource(ctx, args[0]); err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		syncSourcesJSONL(ctx, repoRoot, db)

		if humanOutput {
			outputHuman("Deleted %s\n", args[0])
		} else {
			outputJSON(StatusResponse{Status: "deleted", ID: args[0]})
		}
		return nil
	},
}

// associationCmd builds attach and detach, which differ only in the
// catalog operation they call.
func associationCmd(use, short, status string, op func(*catalog.Catalog, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <notebook-id> <source-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			repoRoot := mustFindRepository()
			cfg := mustLoadConfig(repoRoot)
			db := mustOpenDatabase(repoRoot)
			defer db.Close()

			cat := openCatalog(ctx, db, cfg, args[0])
			if err := op(cat, ctx, args[1]); err != nil {
				exitWithError(exitCodeFor(err), "%v", err)
			}

			if humanOutput {
				outputHuman("%s: %s (%d sources)\n", status, args[1], cat.Len())
			} else {
				outputJSON(StatusResponse{Status: status, ID: args[1], Count: cat.Len()})
			}
			return nil
		},
	}
}

var sourceAttachCmd = associationCmd("attach", "Attach an existing source to a notebook", "attached", (*catalog.Catalog).Attach)

var sourceDetachCmd = associationCmd("detach", "Detach a source from a notebook without deleting it", "detached", (*catalog.Catalog).Detach)

var sourceRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Reload the sources table from a JSONL backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		path := rebuildFrom
		if path == "" {
			path = config.SourcesPath(repoRoot)
		}
		n, err := db.RebuildSourcesFromJSONL(ctx, path)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}

		if humanOutput {
			outputHuman("Loaded %d sources from %s\n", n, path)
		} else {
			outputJSON(StatusResponse{Status: "rebuilt", Path: path, Count: n})
		}
		return nil
	},
}

var sourceImportCmd = &cobra.Command{
	Use:   "import <paperpile.json>",
	Short: "Import sources from a Paperpile JSON export",
	Long: `Import sources from a Paperpile JSON export.

Entries whose DOI matches an existing source are skipped. Entries without
a title are reported and skipped.

Examples:
  folio source import ~/Downloads/Paperpile.json
  folio source import export.json --notebook nb-123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		db := mustOpenDatabase(repoRoot)
		defer db.Close()

		data, err := readContent(args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		partials, errs := importer.ParsePaperpile(data)
		if partials == nil && len(errs) > 0 {
			exitWithError(ExitDataError, "%v", errs[0])
		}

		existing, err := db.ListSources(ctx)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		seen := make(map[string]bool, len(existing))
		for _, src := range existing {
			if doi := strings.ToLower(source.Value(src.DOI)); doi != "" {
				seen[doi] = true
			}
		}

		var cat *catalog.Catalog
		if sourceNotebook != "" {
			cat = openCatalog(ctx, db, cfg, sourceNotebook)
		}

		var imported, skipped int
		for _, p := range partials {
			doi := strings.ToLower(source.Value(p.DOI))
			if doi != "" && seen[doi] {
				skipped++
				continue
			}
			if cat != nil {
				_, err = cat.Create(ctx, p)
			} else {
				_, err = db.CreateSource(ctx, p)
			}
			if err != nil {
				exitWithError(exitCodeFor(err), "%v", err)
			}
			if doi != "" {
				seen[doi] = true
			}
			imported++
		}
		if imported > 0 {
			syncSourcesJSONL(ctx, repoRoot, db)
		}

		messages := make([]string, len(errs))
		for i, e := range errs {
			messages[i] = e.Error()
		}
		if humanOutput {
			outputHuman("Imported %d sources, skipped %d duplicates\n", imported, skipped)
			for _, m := range messages {
				outputHuman("  warning: %s\n", m)
			}
		} else {
			outputJSON(ImportResponse{Imported: imported, Skipped: skipped, Errors: messages})
		}
		return nil
	},
}
