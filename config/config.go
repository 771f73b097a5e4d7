// Package config holds the editor settings file.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
)

// Config is the top-level settings document.
type Config struct {
	ConfigVersion int             `mapstructure:"config_version" yaml:"config_version"`
	Theme         string          `mapstructure:"theme" yaml:"theme"`
	FontFamily    string          `mapstructure:"font_family" yaml:"font_family"`
	FontSize      int             `mapstructure:"font_size" yaml:"font_size"`
	TabWidth      int             `mapstructure:"tab_width" yaml:"tab_width"`
	InsertSpaces  bool            `mapstructure:"insert_spaces" yaml:"insert_spaces"`
	History       HistoryConfig   `mapstructure:"history" yaml:"history"`
	Highlight     HighlightConfig `mapstructure:"highlight" yaml:"highlight"`
	Brackets      BracketsConfig  `mapstructure:"brackets" yaml:"brackets"`
	Search        SearchConfig    `mapstructure:"search" yaml:"search"`
	Files         FilesConfig     `mapstructure:"files" yaml:"files"`
	Session       SessionConfig   `mapstructure:"session" yaml:"session"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// HistoryConfig controls undo.
type HistoryConfig struct {
	Limit            int `mapstructure:"limit" yaml:"limit"`
	CoalesceWindowMS int `mapstructure:"coalesce_window_ms" yaml:"coalesce_window_ms"`
}

// CoalesceWindow returns the typing merge window.
func (c HistoryConfig) CoalesceWindow() time.Duration {
	return time.Duration(c.CoalesceWindowMS) * time.Millisecond
}

// HighlightConfig controls incremental highlighting.
type HighlightConfig struct {
	Background bool `mapstructure:"background" yaml:"background"`
	BatchLines int  `mapstructure:"batch_lines" yaml:"batch_lines"`
	DebounceMS int  `mapstructure:"debounce_ms" yaml:"debounce_ms"`
}

// Debounce returns the delay before a highlight pass.
func (c HighlightConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// BracketsConfig controls bracket matching.
type BracketsConfig struct {
	MaxScanBytes int `mapstructure:"max_scan_bytes" yaml:"max_scan_bytes"`
}

// SearchConfig controls find and replace.
type SearchConfig struct {
	RegexTimeoutMS int  `mapstructure:"regex_timeout_ms" yaml:"regex_timeout_ms"`
	CacheSize      int  `mapstructure:"cache_size" yaml:"cache_size"`
	Wrap           bool `mapstructure:"wrap" yaml:"wrap"`
}

// RegexTimeout returns the per-search regex budget.
func (c SearchConfig) RegexTimeout() time.Duration {
	return time.Duration(c.RegexTimeoutMS) * time.Millisecond
}

// FilesConfig controls the directory listing.
type FilesConfig struct {
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`
}

// SessionConfig is restored on start.
type SessionConfig struct {
	LastOpenedFiles     []string `mapstructure:"last_opened_files" yaml:"last_opened_files"`
	LastOpenedDirectory string   `mapstructure:"last_opened_directory" yaml:"last_opened_directory"`
}

// IndentUnit returns the text one indent level inserts.
func (c Config) IndentUnit() string {
	if !c.InsertSpaces {
		return "\t"
	}
	return strings.Repeat(" ", max(c.TabWidth, 1))
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		ConfigVersion: CurrentConfigVersion,
		Theme:         "dark",
		FontFamily:    "Monospace",
		FontSize:      14,
		TabWidth:      4,
		InsertSpaces:  true,
		History: HistoryConfig{
			Limit:            1000,
			CoalesceWindowMS: 1000,
		},
		Highlight: HighlightConfig{
			Background: true,
			BatchLines: 256,
			DebounceMS: 50,
		},
		Brackets: BracketsConfig{
			MaxScanBytes: 0,
		},
		Search: SearchConfig{
			RegexTimeoutMS: 2000,
			CacheSize:      32,
			Wrap:           true,
		},
		Files: FilesConfig{
			Ignore: []string{".git", "node_modules", "vendor"},
		},
	}
}

// DefaultPath returns the standard settings path.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "e4", "config.yaml"), nil
}
