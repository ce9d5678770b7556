package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"repodash/models"
)

// ErrInvalidConfig is returned for configuration that cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	Host         string
	Token        string
	ClientID     string
	ClientSecret string
	TokenFile    string
	DatabaseDSN  string
	LogLevel     string
	LogEncoding  string

	Settings *Settings
}

// Load reads configuration from path (optional; a missing file is not an
// error) and from REPODASH_* environment variables. GITHUB_TOKEN is accepted
// as a fallback for the token.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("REPODASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("token", "REPODASH_TOKEN", "GITHUB_TOKEN")
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	c := &Config{
		Host:         strings.TrimRight(v.GetString("host"), "/"),
		Token:        v.GetString("token"),
		ClientID:     v.GetString("client_id"),
		ClientSecret: v.GetString("client_secret"),
		TokenFile:    v.GetString("token_file"),
		DatabaseDSN:  v.GetString("database.dsn"),
		LogLevel:     v.GetString("log.level"),
		LogEncoding:  v.GetString("log.encoding"),
	}
	if c.TokenFile == "" {
		c.TokenFile = defaultTokenFile()
	}

	values, err := readDashboard(v)
	if err != nil {
		return nil, err
	}
	values.Host = c.Host

	if err := c.validate(values); err != nil {
		return nil, err
	}

	c.Settings = newSettings(values, path)
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "https://github.com")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("dashboard.scope", string(models.ScopeAll))
	v.SetDefault("dashboard.only_with", string(models.OnlyWithNone))
	v.SetDefault("dashboard.include_forks", false)
	v.SetDefault("dashboard.include_archived", false)
	v.SetDefault("dashboard.sort", string(models.SortActivity))
	v.SetDefault("dashboard.limit", 20)
	v.SetDefault("dashboard.max_age_days", 0)
	v.SetDefault("dashboard.pinned", []string{})
	v.SetDefault("dashboard.hidden", []string{})
	v.SetDefault("dashboard.pin_priority", true)
	v.SetDefault("dashboard.show_heatmap", true)
	v.SetDefault("dashboard.heatmap_span_weeks", 12)
	v.SetDefault("dashboard.activity_scope", string(models.MyActivity))
	v.SetDefault("dashboard.activity_limit", 25)
	v.SetDefault("dashboard.hydration_concurrency", 4)
	v.SetDefault("dashboard.repository_fetch_limit", 100)

	v.SetDefault("refresh.interval", "5m")
	v.SetDefault("refresh.credential_interval", "1m")
}

func readDashboard(v *viper.Viper) (Dashboard, error) {
	var d Dashboard
	var err error

	if d.Scope, err = models.ParseScope(v.GetString("dashboard.scope")); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d.OnlyWith, err = models.ParseOnlyWith(v.GetString("dashboard.only_with")); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d.SortKey, err = models.ParseSortKey(v.GetString("dashboard.sort")); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d.ActivityScope, err = models.ParseActivityScope(v.GetString("dashboard.activity_scope")); err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	d.IncludeForks = v.GetBool("dashboard.include_forks")
	d.IncludeArchived = v.GetBool("dashboard.include_archived")
	d.Limit = v.GetInt("dashboard.limit")
	d.MaxAgeDays = v.GetInt("dashboard.max_age_days")
	d.Pinned = dedupe(v.GetStringSlice("dashboard.pinned"))
	d.Hidden = dedupe(v.GetStringSlice("dashboard.hidden"))
	d.PinPriority = v.GetBool("dashboard.pin_priority")
	d.ShowHeatmap = v.GetBool("dashboard.show_heatmap")
	d.HeatmapSpanWeeks = v.GetInt("dashboard.heatmap_span_weeks")
	d.ActivityLimit = v.GetInt("dashboard.activity_limit")
	d.HydrationConcurrency = v.GetInt("dashboard.hydration_concurrency")
	d.RepositoryFetchLimit = v.GetInt("dashboard.repository_fetch_limit")

	if d.RefreshInterval, err = parseInterval(v, "refresh.interval"); err != nil {
		return d, err
	}
	if d.CredentialRefreshInterval, err = parseInterval(v, "refresh.credential_interval"); err != nil {
		return d, err
	}

	return d, nil
}

func parseInterval(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %s %q: %v", ErrInvalidConfig, key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, key, raw)
	}
	return d, nil
}

func (c *Config) validate(d Dashboard) error {
	u, err := url.Parse(c.Host)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return fmt.Errorf("%w: host %q must be an http(s) URL", ErrInvalidConfig, c.Host)
	}
	if d.Limit < 0 {
		return fmt.Errorf("%w: dashboard.limit must not be negative", ErrInvalidConfig)
	}
	if d.MaxAgeDays < 0 {
		return fmt.Errorf("%w: dashboard.max_age_days must not be negative", ErrInvalidConfig)
	}
	if d.HydrationConcurrency < 1 {
		return fmt.Errorf("%w: dashboard.hydration_concurrency must be at least 1", ErrInvalidConfig)
	}
	if d.HeatmapSpanWeeks < 1 || d.HeatmapSpanWeeks > 52 {
		return fmt.Errorf("%w: dashboard.heatmap_span_weeks must be within 1..52", ErrInvalidConfig)
	}
	if d.ActivityLimit < 1 {
		return fmt.Errorf("%w: dashboard.activity_limit must be at least 1", ErrInvalidConfig)
	}
	if d.RepositoryFetchLimit < 1 {
		return fmt.Errorf("%w: dashboard.repository_fetch_limit must be at least 1", ErrInvalidConfig)
	}
	for _, name := range append(append([]string{}, d.Pinned...), d.Hidden...) {
		if _, _, ok := models.SplitFullName(name); !ok {
			return fmt.Errorf("%w: %q is not an owner/name pair", ErrInvalidConfig, name)
		}
	}
	return nil
}

// DefaultPath returns the config file used when none is given, or "" if the
// user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "repodash", "config.yaml")
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "repodash", "tokens.json")
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
