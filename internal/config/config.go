package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/pagination"
	"github.com/billie-coop/pqdash/internal/refresh"
	"github.com/spf13/viper"
)

// Keys shared by flags, environment variables and the config file.
const (
	KeyConfig           = "config"
	KeyServer           = "server"
	KeyRefreshInterval  = "refresh-interval"
	KeyPageSize         = "page-size"
	KeySearchDebounce   = "search-debounce"
	KeyRequestTimeout   = "request-timeout"
	KeyRetries          = "retries"
	KeyExcludeProcessed = "exclude-processed"
	KeyOrderBy          = "order-by"
	KeyTheme            = "theme"
	KeyLogFile          = "log-file"
	KeyLogLevel         = "log-level"
	KeyMetricsListen    = "metrics-listen"
)

const (
	DefaultServer         = "http://localhost:9182"
	DefaultSearchDebounce = 500 * time.Millisecond
	DefaultRequestTimeout = 10 * time.Second
	DefaultRetries        = 3
	DefaultTheme          = "dark"
	DefaultLogLevel       = "info"

	// EnvPrefix prefixes every environment variable, e.g. PQDASH_SERVER.
	EnvPrefix = "PQDASH"
	// FileName is the config file looked up in DefaultDir.
	FileName = "config.yaml"
)

// Themes lists the accepted values of the theme key.
var Themes = []string{"dark", "light"}

// Config represents the pqdash client configuration
type Config struct {
	Server           string        `yaml:"server"`
	RefreshInterval  time.Duration `yaml:"refresh-interval"`
	PageSize         int           `yaml:"page-size"`
	SearchDebounce   time.Duration `yaml:"search-debounce"`
	RequestTimeout   time.Duration `yaml:"request-timeout"`
	Retries          int           `yaml:"retries"`
	ExcludeProcessed bool          `yaml:"exclude-processed"`
	OrderBy          api.OrderBy   `yaml:"order-by"`
	Theme            string        `yaml:"theme"`
	LogFile          string        `yaml:"log-file"`
	LogLevel         string        `yaml:"log-level"`
	MetricsListen    string        `yaml:"metrics-listen"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server:          DefaultServer,
		RefreshInterval: refresh.DefaultInterval,
		PageSize:        api.DefaultLimit,
		SearchDebounce:  DefaultSearchDebounce,
		RequestTimeout:  DefaultRequestTimeout,
		Retries:         DefaultRetries,
		OrderBy:         api.DefaultOrder,
		Theme:           DefaultTheme,
		LogFile:         DefaultLogFile(),
		LogLevel:        DefaultLogLevel,
	}
}

// SetDefaults registers DefaultConfig on v so unset keys resolve.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyServer, d.Server)
	v.SetDefault(KeyRefreshInterval, d.RefreshInterval)
	v.SetDefault(KeyPageSize, d.PageSize)
	v.SetDefault(KeySearchDebounce, d.SearchDebounce)
	v.SetDefault(KeyRequestTimeout, d.RequestTimeout)
	v.SetDefault(KeyRetries, d.Retries)
	v.SetDefault(KeyExcludeProcessed, d.ExcludeProcessed)
	v.SetDefault(KeyOrderBy, string(d.OrderBy))
	v.SetDefault(KeyTheme, d.Theme)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyMetricsListen, d.MetricsListen)
}

// BindEnv makes every key readable from PQDASH_* variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// Load reads a Config out of v. String values have $VAR and ${VAR}
// expanded, the refresh interval is snapped to the nearest allowed value
// and the order is normalized.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server:           expandString(v.GetString(KeyServer)),
		RefreshInterval:  refresh.Snap(v.GetDuration(KeyRefreshInterval)),
		PageSize:         v.GetInt(KeyPageSize),
		SearchDebounce:   v.GetDuration(KeySearchDebounce),
		RequestTimeout:   v.GetDuration(KeyRequestTimeout),
		Retries:          v.GetInt(KeyRetries),
		ExcludeProcessed: v.GetBool(KeyExcludeProcessed),
		OrderBy:          api.ParseOrderBy(expandString(v.GetString(KeyOrderBy))),
		Theme:            strings.ToLower(expandString(v.GetString(KeyTheme))),
		LogFile:          expandString(v.GetString(KeyLogFile)),
		LogLevel:         strings.ToLower(expandString(v.GetString(KeyLogLevel))),
		MetricsListen:    expandString(v.GetString(KeyMetricsListen)),
	}
	if cfg.LogFile != "" {
		p, err := ExpandPath(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("expand log file %q: %w", cfg.LogFile, err)
		}
		cfg.LogFile = p
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.Server)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("server: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("server: unsupported scheme %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("server: missing host"))
	}
	if !validPageSize(c.PageSize) {
		errs = append(errs, fmt.Errorf("page-size: %d is not one of %v", c.PageSize, pagination.PageSizes))
	}
	if c.SearchDebounce < 0 {
		errs = append(errs, errors.New("search-debounce: must not be negative"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request-timeout: must be positive"))
	}
	if c.Retries < 0 {
		errs = append(errs, errors.New("retries: must not be negative"))
	}
	if !validTheme(c.Theme) {
		errs = append(errs, fmt.Errorf("theme: unknown theme %q", c.Theme))
	}
	return errors.Join(errs...)
}

func validPageSize(n int) bool {
	for _, s := range pagination.PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

func validTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

// DefaultDir is $XDG_CONFIG_HOME/pqdash, or the platform equivalent.
func DefaultDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pqdash"), nil
}

// DefaultLogFile is $XDG_STATE_HOME/pqdash/pqdash.log, falling back to
// ~/.local/state.
func DefaultLogFile() string {
	state := os.Getenv("XDG_STATE_HOME")
	if state == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "pqdash.log")
		}
		state = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(state, "pqdash", "pqdash.log")
}

// ExpandPath resolves a leading ~ and makes p absolute.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if len(p) == 1 {
			p = home
		} else if p[1] == '/' || p[1] == '\\' {
			p = filepath.Join(home, p[2:])
		}
	}
	return filepath.Abs(p)
}

// envPattern matches $VAR or ${VAR}
var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString expands environment variables in a string. Unknown
// variables are left as written.
func expandString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return match
	})
}
