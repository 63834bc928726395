package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matsen/folio/internal/citation"
)

// GlobalConfig represents configuration stored in ~/.config/folio/config.yml.
type GlobalConfig struct {
	DefaultRoot     string `yaml:"default_root,omitempty"`
	DefaultNotebook string `yaml:"default_notebook,omitempty"`
	UserID          string `yaml:"user_id,omitempty"`
	CitationFormat  string `yaml:"citation_format,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "folio"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the global config.
const (
	EnvRoot = "FOLIO_ROOT"
	EnvUser = "FOLIO_USER"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/folio/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.DefaultRoot != "" {
		cfg.DefaultRoot = ExpandPath(cfg.DefaultRoot)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable envKey when set,
// otherwise cfgValue.
func GetConfigValue(envKey, cfgValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return cfgValue
}

// GetDefaultRoot returns the repository used when the working directory
// is not inside one. FOLIO_ROOT wins over default_root.
func GetDefaultRoot() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		cfg = &GlobalConfig{}
	}
	return ExpandPath(GetConfigValue(EnvRoot, cfg.DefaultRoot))
}

// GetUserID returns the owner stamped on new sources. FOLIO_USER wins
// over user_id.
func GetUserID() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		cfg = &GlobalConfig{}
	}
	return GetConfigValue(EnvUser, cfg.UserID)
}

// GetDefaultNotebook returns the notebook used when a command names none.
func GetDefaultNotebook() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.DefaultNotebook
}

// ResolveFormat picks the citation format: an explicit flag value first,
// then the repository config, then the global config, then the default.
// Values that do not name a format are skipped.
func ResolveFormat(flag string, repo *Config) citation.Format {
	candidates := []string{flag}
	if repo != nil {
		candidates = append(candidates, repo.CitationFormat)
	}
	if cfg, err := LoadGlobalConfig(); err == nil {
		candidates = append(candidates, cfg.CitationFormat)
	}
	for _, c := range candidates {
		if f, ok := citation.ParseFormat(c); ok {
			return f
		}
	}
	return citation.DefaultFormat
}

// HelpfulConfigMessage explains how to point folio at a repository.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No folio repository found.

Run 'folio init' in a directory, or create %s to set a default:
  mkdir -p %s
  echo 'default_root: /path/to/your/notes' > %s

Setting %s in the environment or a .env file also works.`,
		configPath,
		filepath.Dir(configPath),
		configPath,
		EnvRoot)
}
