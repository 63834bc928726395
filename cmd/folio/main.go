// Package main provides the folio CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/config"
	"github.com/matsen/folio/internal/notebook"
	"github.com/matsen/folio/internal/query"
	"github.com/matsen/folio/internal/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	verbose     bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Notebook citations and PDF highlights",
	Long: `folio keeps research notebooks, the sources they cite, and the
highlights made on the papers behind those sources.

Core features:
  - Per-notebook source catalogs with inline citation marks
  - Citation rendering in simple, APA, MLA and Chicago styles
  - PDF highlights stored in a resolution-independent form
  - BibTeX and JSONL export

Data is stored in SQLite under .folio/ with a JSONL backup of sources.
All commands output JSON by default; pass --human for text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Ignore errors - .env file is optional
		_ = godotenv.Load()

		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.WarnLevel)
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a repository.
// FOLIO_ROOT or the global default_root win over the working directory.
func getStartingDirectory() (string, int) {
	if root := config.GetDefaultRoot(); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the repository, exits on error.
// Returns the repository root path.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return repoRoot
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	db.SetUserID(config.GetUserID())
	return db
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenSession opens a notebook session backed by db, exits on error.
// The caller is responsible for calling Close() on the returned session.
func mustOpenSession(ctx context.Context, db *storage.DB, cfg *config.Config, notebookID, format string) *notebook.Session {
	sess, err := notebook.Open(ctx, notebookID, db, db, notebook.Options{
		Format:        config.ResolveFormat(format, cfg),
		AutosaveDelay: cfg.AutosaveDuration(),
		Queries:       query.NewClient(cfg.StaleDuration()),
	})
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}
	return sess
}

// notebookArg returns the notebook named on the command line or the
// configured default.
func notebookArg(args []string, i int) string {
	if len(args) > i && args[i] != "" {
		return args[i]
	}
	if id := config.GetDefaultNotebook(); id != "" {
		return id
	}
	exitWithError(ExitError, "no notebook given and no default_notebook configured")
	return ""
}
