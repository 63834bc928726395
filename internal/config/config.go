// Package config handles repository and global configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cast"

	"github.com/matsen/folio/internal/citation"
)

// Config represents repository configuration stored in .folio/config.json.
type Config struct {
	PDFRoot        string `json:"pdf_root"`                  // Directory that relative PDF paths resolve against
	CitationFormat string `json:"citation_format,omitempty"` // simple, apa, mla or chicago
	AutosaveDelay  string `json:"autosave_delay,omitempty"`  // Quiet period before autosave, e.g. "2s"
	StaleTime      string `json:"stale_time,omitempty"`      // How long catalog reads are cached, e.g. "1m"
}

const (
	FolioDir    = ".folio"
	ConfigFile  = "config.json"
	DBFile      = "folio.db"
	SourcesFile = "sources.jsonl"
)

// Defaults applied when a duration is unset.
const (
	DefaultAutosaveDelay = 2 * time.Second
	DefaultStaleTime     = time.Minute
)

// FolioPath returns the path to the .folio directory from a root path.
func FolioPath(root string) string {
	return filepath.Join(root, FolioDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, FolioDir, ConfigFile)
}

// DBPath returns the path to folio.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, FolioDir, DBFile)
}

// SourcesPath returns the path to the sources.jsonl backup from a root path.
func SourcesPath(root string) string {
	return filepath.Join(root, FolioDir, SourcesFile)
}

// IsRepository checks if the given path contains a folio repository.
func IsRepository(root string) bool {
	info, err := os.Stat(FolioPath(root))
	return err == nil && info.IsDir()
}

// FindRepository walks up from the given path to find a folio repository.
// Returns the repository root path or an error if not found.
func FindRepository(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsRepository(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("not in a folio repository (no .folio directory found)")
		}
		abs = parent
	}
}

// Load reads configuration from the repository at the given root.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Save writes configuration to the repository at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks every field that has a value.
func (c *Config) Validate() error {
	if err := ValidatePDFRoot(c.PDFRoot); err != nil {
		return fmt.Errorf("pdf_root: %w", err)
	}
	if c.CitationFormat != "" {
		if _, ok := citation.ParseFormat(c.CitationFormat); !ok {
			return fmt.Errorf("invalid citation_format: %s", c.CitationFormat)
		}
	}
	if _, err := parseDuration(c.AutosaveDelay, DefaultAutosaveDelay); err != nil {
		return fmt.Errorf("autosave_delay: %w", err)
	}
	if _, err := parseDuration(c.StaleTime, DefaultStaleTime); err != nil {
		return fmt.Errorf("stale_time: %w", err)
	}
	return nil
}

// AutosaveDuration returns the configured autosave delay or the default.
func (c *Config) AutosaveDuration() time.Duration {
	d, err := parseDuration(c.AutosaveDelay, DefaultAutosaveDelay)
	if err != nil {
		return DefaultAutosaveDelay
	}
	return d
}

// StaleDuration returns the configured cache stale time or the default.
func (c *Config) StaleDuration() time.Duration {
	d, err := parseDuration(c.StaleTime, DefaultStaleTime)
	if err != nil {
		return DefaultStaleTime
	}
	return d
}

// parseDuration accepts Go duration strings ("2s", "1m30s"). Empty
// yields def.
func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	d, err := cast.ToDurationE(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// ValidatePDFRoot checks that the PDF root path exists and is a directory.
func ValidatePDFRoot(path string) error {
	if path == "" {
		return nil // Empty is allowed (not yet configured)
	}

	expandedPath := ExpandPath(path)

	info, err := os.Stat(expandedPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", expandedPath)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", expandedPath)
	}

	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, path[1:])
}
