package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Selectors locate comment parts in a forum page.
type Selectors struct {
	Item    string `json:"item,omitempty"`
	Date    string `json:"date,omitempty"`
	Time    string `json:"time,omitempty"`
	Author  string `json:"author,omitempty"`
	Content string `json:"content,omitempty"`
}

// Config holds application configuration.
type Config struct {
	// Backend selects where the visit blob lives: sqlite, file, redis or memory.
	Backend string `json:"backend,omitempty"`

	// RedisURL is used when Backend is "redis" (redis://host:port/db).
	RedisURL string `json:"redis_url,omitempty"`

	// StorageKey is the single key the visit blob is stored under.
	StorageKey string `json:"storage_key,omitempty"`

	// RetentionDays is how long a visit record survives without being refreshed.
	RetentionDays int `json:"retention_days,omitempty"`

	// Timezone is the IANA zone comment dates are written in. "Local" uses the host zone.
	Timezone string `json:"timezone,omitempty"`

	// PreviewChars is the number of body characters kept in a comment preview.
	PreviewChars int `json:"preview_chars,omitempty"`

	// UserAgent is sent with every page fetch.
	UserAgent string `json:"user_agent,omitempty"`

	// RequestTimeoutSecs bounds a single page fetch.
	RequestTimeoutSecs int `json:"request_timeout_secs,omitempty"`

	// RequestsPerSecond paces fetches when several pages are checked in one run.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`

	// Selectors override the default comment markup selectors field by field.
	Selectors Selectors `json:"selectors,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `json:"log_level,omitempty"`

	// LogFormat is "console" (default) or "json".
	LogFormat string `json:"log_format,omitempty"`
}

// DefaultSelectors returns the markup selectors of the exler comment pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Item:    ".comments-item",
		Date:    ".comment-date .blog-item-date",
		Time:    "span",
		Author:  ".comment-author-name",
		Content: ".comment-content",
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:            BackendSQLite,
		StorageKey:         "exler_comments_data",
		RetentionDays:      DefaultRetentionDays,
		Timezone:           "Local",
		PreviewChars:       DefaultPreviewChars,
		UserAgent:          "ctrack/1.0 (+https://github.com/hpungsan/ctrack)",
		RequestTimeoutSecs: DefaultRequestTimeoutSecs,
		RequestsPerSecond:  1,
		Selectors:          DefaultSelectors(),
		LogLevel:           "info",
		LogFormat:          "console",
	}
}

// Defaults for fields that must stay positive.
const (
	DefaultRetentionDays      = 30
	DefaultPreviewChars       = 100
	DefaultRequestTimeoutSecs = 20
)

// Retention returns the visit retention window as a duration.
// Non-positive RetentionDays means DefaultRetentionDays.
func (c *Config) Retention() time.Duration {
	days := c.RetentionDays
	if days <= 0 {
		days = DefaultRetentionDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// RequestTimeout returns the per-fetch timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// Location resolves Timezone. Unknown zones fall back to time.Local;
// Load rejects them, so this only happens for hand-built configs.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from baseDir/config.json, then applies
// environment overrides (including an optional baseDir/.env file).
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.ctrack.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := LoadEnvFile(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	ApplyEnv(cfg)
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize resets non-positive sizes to their defaults and rejects an
// unknown timezone, which would shift every parsed comment date.
func (c *Config) normalize() error {
	if c.RetentionDays <= 0 {
		c.RetentionDays = DefaultRetentionDays
	}
	if c.PreviewChars <= 0 {
		c.PreviewChars = DefaultPreviewChars
	}
	if c.RequestTimeoutSecs <= 0 {
		c.RequestTimeoutSecs = DefaultRequestTimeoutSecs
	}
	if c.Timezone != "" && !strings.EqualFold(c.Timezone, "local") {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides config fields from CTRACK_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CTRACK_BACKEND")); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_STORAGE_KEY")); v != "" {
		cfg.StorageKey = v
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_TIMEZONE")); v != "" {
		cfg.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("CTRACK_RETENTION_DAYS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RetentionDays = n
		}
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Backend = pickString(overlay.Backend, base.Backend)
	result.RedisURL = pickString(overlay.RedisURL, base.RedisURL)
	result.StorageKey = pickString(overlay.StorageKey, base.StorageKey)
	result.Timezone = pickString(overlay.Timezone, base.Timezone)
	result.UserAgent = pickString(overlay.UserAgent, base.UserAgent)
	result.LogLevel = pickString(overlay.LogLevel, base.LogLevel)
	result.LogFormat = pickString(overlay.LogFormat, base.LogFormat)

	result.RetentionDays = pickInt(overlay.RetentionDays, base.RetentionDays)
	result.PreviewChars = pickInt(overlay.PreviewChars, base.PreviewChars)
	result.RequestTimeoutSecs = pickInt(overlay.RequestTimeoutSecs, base.RequestTimeoutSecs)
	result.DBMaxOpenConns = pickInt(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = pickInt(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	result.RequestsPerSecond = overlay.RequestsPerSecond
	if result.RequestsPerSecond == 0 {
		result.RequestsPerSecond = base.RequestsPerSecond
	}

	result.Selectors = Selectors{
		Item:    pickString(overlay.Selectors.Item, base.Selectors.Item),
		Date:    pickString(overlay.Selectors.Date, base.Selectors.Date),
		Time:    pickString(overlay.Selectors.Time, base.Selectors.Time),
		Author:  pickString(overlay.Selectors.Author, base.Selectors.Author),
		Content: pickString(overlay.Selectors.Content, base.Selectors.Content),
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func pickString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func pickInt(overlay, base int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
