package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/folio/internal/citation"
	"github.com/matsen/folio/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set repository configuration values.

Usage:
  folio config                          # Show all config
  folio config pdf-root                 # Get specific value
  folio config pdf-root ~/papers        # Set value
  folio config citation-format apa      # Set default citation format

Keys:
  pdf-root         Directory that relative PDF paths resolve against
  citation-format  Default citation format (simple, apa, mla, chicago)
  autosave-delay   Quiet period before notebook autosave (e.g. 2s)
  stale-time       How long catalog reads are cached (e.g. 1m)`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

// configField maps a CLI key onto a Config field.
func configField(cfg *config.Config, key string) (*string, bool) {
	switch key {
	case "pdf-root":
		return &cfg.PDFRoot, true
	case "citation-format":
		return &cfg.CitationFormat, true
	case "autosave-delay":
		return &cfg.AutosaveDelay, true
	case "stale-time":
		return &cfg.StaleTime, true
	}
	return nil, false
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("pdf-root:        %s\n", cfg.PDFRoot)
			fmt.Printf("citation-format: %s\n", config.ResolveFormat("", cfg))
			fmt.Printf("autosave-delay:  %s\n", cfg.AutosaveDuration())
			fmt.Printf("stale-time:      %s\n", cfg.StaleDuration())
		} else {
			outputJSON(cfg)
		}
		return nil
	}

	key := args[0]
	field, ok := configField(cfg, key)
	if !ok {
		exitWithError(ExitError, "unknown configuration key: %s", key)
	}

	// One arg: get specific value
	if len(args) == 1 {
		if humanOutput {
			fmt.Println(*field)
		} else {
			outputJSON(map[string]string{key: *field})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	switch key {
	case "pdf-root":
		value = config.ExpandPath(value)
	case "citation-format":
		f, ok := citation.ParseFormat(value)
		if !ok {
			exitWithError(ExitError, "unknown citation format: %s", value)
		}
		value = string(f)
	}
	*field = value

	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(repoRoot); err != nil {
		exitWithError(ExitError, "saving config: %v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
	} else {
		outputJSON(map[string]string{"status": "updated", "key": key, "value": value})
	}
	return nil
}
