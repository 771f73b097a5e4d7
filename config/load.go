package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/e4code/e4/editor"
)

// EnvPrefix prefixes environment overrides, e.g. E4_TAB_WIDTH.
const EnvPrefix = "E4"

// Load reads configuration from path. An empty path means DefaultPath. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("theme", cfg.Theme)
	v.SetDefault("font_family", cfg.FontFamily)
	v.SetDefault("font_size", cfg.FontSize)
	v.SetDefault("tab_width", cfg.TabWidth)
	v.SetDefault("insert_spaces", cfg.InsertSpaces)
	v.SetDefault("history.limit", cfg.History.Limit)
	v.SetDefault("history.coalesce_window_ms", cfg.History.CoalesceWindowMS)
	v.SetDefault("highlight.background", cfg.Highlight.Background)
	v.SetDefault("highlight.batch_lines", cfg.Highlight.BatchLines)
	v.SetDefault("highlight.debounce_ms", cfg.Highlight.DebounceMS)
	v.SetDefault("brackets.max_scan_bytes", cfg.Brackets.MaxScanBytes)
	v.SetDefault("search.regex_timeout_ms", cfg.Search.RegexTimeoutMS)
	v.SetDefault("search.cache_size", cfg.Search.CacheSize)
	v.SetDefault("search.wrap", cfg.Search.Wrap)
	v.SetDefault("files.ignore", cfg.Files.Ignore)
	v.SetDefault("session.last_opened_files", cfg.Session.LastOpenedFiles)
	v.SetDefault("session.last_opened_directory", cfg.Session.LastOpenedDirectory)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.InConfig("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if len(cfg.Session.LastOpenedFiles) == 0 {
		cfg.Session.LastOpenedFiles = nil
	}
	expandPaths(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.TabWidth < 1 || cfg.TabWidth > 16 {
		return fmt.Errorf("tab_width must be between 1 and 16, got %d", cfg.TabWidth)
	}
	if cfg.FontSize <= 0 {
		return fmt.Errorf("font_size must be positive, got %d", cfg.FontSize)
	}
	if strings.TrimSpace(cfg.Theme) == "" {
		return fmt.Errorf("theme must not be empty")
	}
	if cfg.History.Limit < 0 {
		return fmt.Errorf("history.limit must not be negative")
	}
	if cfg.History.CoalesceWindowMS < 0 || cfg.Highlight.DebounceMS < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if cfg.Highlight.BatchLines < 1 {
		return fmt.Errorf("highlight.batch_lines must be positive, got %d", cfg.Highlight.BatchLines)
	}
	if cfg.Brackets.MaxScanBytes < 0 {
		return fmt.Errorf("brackets.max_scan_bytes must not be negative")
	}
	if cfg.Search.RegexTimeoutMS < 1 {
		return fmt.Errorf("search.regex_timeout_ms must be positive, got %d", cfg.Search.RegexTimeoutMS)
	}
	if cfg.Search.CacheSize < 1 {
		return fmt.Errorf("search.cache_size must be positive, got %d", cfg.Search.CacheSize)
	}
	return nil
}

func expandPaths(cfg *Config) {
	cfg.Session.LastOpenedDirectory = expand(cfg.Session.LastOpenedDirectory)
	for i, p := range cfg.Session.LastOpenedFiles {
		cfg.Session.LastOpenedFiles[i] = expand(p)
	}
}

func expand(path string) string {
	if path == "" {
		return path
	}
	if out, err := homedir.Expand(path); err == nil {
		return out
	}
	return path
}

// Save writes cfg to path, replacing any existing file atomically. An empty
// path means DefaultPath.
func Save(path string, cfg Config) (string, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}
	cfg.ConfigVersion = CurrentConfigVersion
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if err := (editor.OSFileIO{}).WriteFile(path, data); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// RememberSession records the open files and directory for the next start.
func (c *Config) RememberSession(files []string, dir string) {
	c.Session.LastOpenedFiles = append([]string(nil), files...)
	if dir != "" {
		c.Session.LastOpenedDirectory = dir
	}
}
