package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/config"
	"github.com/matsen/folio/internal/storage"
)

var initPDFRoot string

func init() {
	initCmd.Flags().StringVar(&initPDFRoot, "pdf-root", "", "Directory that relative PDF paths resolve against")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a folio repository",
	Long: `Create a folio repository in the given directory (default: current directory).

Creates .folio/ with config.json, an empty SQLite database and an empty
sources.jsonl backup.

Examples:
  folio init
  folio init ~/notes --pdf-root ~/papers`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = config.ExpandPath(args[0])
	}

	if config.IsRepository(root) {
		exitWithError(ExitConfigError, "already a folio repository: %s", config.FolioPath(root))
	}

	if err := config.ValidatePDFRoot(initPDFRoot); err != nil {
		exitWithError(ExitConfigError, "pdf-root: %v", err)
	}

	if err := os.MkdirAll(config.FolioPath(root), 0755); err != nil {
		exitWithError(ExitError, "creating %s: %v", config.FolioPath(root), err)
	}

	cfg := &config.Config{PDFRoot: config.ExpandPath(initPDFRoot)}
	if err := cfg.Save(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "creating database: %v", err)
	}
	db.Close()

	if err := storage.WriteSourcesJSONL(config.SourcesPath(root), nil); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("Initialized folio repository in %s\n", config.FolioPath(root))
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: config.FolioPath(root)})
	}
	return nil
}
