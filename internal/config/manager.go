package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Manager owns a viper instance and the Config loaded from it.
type Manager struct {
	v    *viper.Viper
	path string

	mu     sync.RWMutex
	config *Config
}

// NewManager creates a manager for the config file at path. An empty path
// means no file; flags, environment and defaults still apply.
func NewManager(v *viper.Viper, path string) *Manager {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	BindEnv(v)
	return &Manager{v: v, path: path, config: DefaultConfig()}
}

// Path returns the config file path, if any.
func (m *Manager) Path() string {
	return m.path
}

// Viper exposes the underlying instance so flags can be bound to it.
func (m *Manager) Viper() *viper.Viper {
	return m.v
}

// Load reads the config file, when there is one, and resolves the Config.
func (m *Manager) Load() error {
	if m.path != "" {
		m.v.SetConfigFile(m.path)
		if err := m.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("read config file %q: %w", m.path, err)
			}
		}
	}

	cfg, err := Load(m.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Set updates a configuration value and saves. The previous value is kept
// if the result does not validate.
func (m *Manager) Set(key, value string) error {
	if !knownKey(key) {
		return fmt.Errorf("unknown config key: %s", key)
	}
	prev := m.v.Get(key)
	m.v.Set(key, value)

	cfg, err := Load(m.v)
	if err != nil {
		m.v.Set(key, prev)
		return fmt.Errorf("set %s: %w", key, err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// Save writes the current configuration to the config file as YAML.
func (m *Manager) Save() error {
	if m.path == "" {
		return errors.New("no config file configured")
	}
	data, err := yaml.Marshal(m.Get())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Watch reloads the config whenever the file changes on disk and passes
// the result to fn. A reload that fails validation keeps the previous
// config and reports the error. Watch does nothing without a file.
func (m *Manager) Watch(fn func(*Config, error)) {
	if m.path == "" {
		return
	}
	if _, err := os.Stat(m.path); err != nil {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(m.v)
		if err == nil {
			m.mu.Lock()
			m.config = cfg
			m.mu.Unlock()
		}
		if fn != nil {
			fn(cfg, err)
		}
	})
	m.v.WatchConfig()
}

// Changed lists the keys whose values differ between a and b.
func Changed(a, b *Config) []string {
	var keys []string
	if a.Server != b.Server {
		keys = append(keys, KeyServer)
	}
	if a.RefreshInterval != b.RefreshInterval {
		keys = append(keys, KeyRefreshInterval)
	}
	if a.PageSize != b.PageSize {
		keys = append(keys, KeyPageSize)
	}
	if a.SearchDebounce != b.SearchDebounce {
		keys = append(keys, KeySearchDebounce)
	}
	if a.RequestTimeout != b.RequestTimeout {
		keys = append(keys, KeyRequestTimeout)
	}
	if a.Retries != b.Retries {
		keys = append(keys, KeyRetries)
	}
	if a.ExcludeProcessed != b.ExcludeProcessed {
		keys = append(keys, KeyExcludeProcessed)
	}
	if a.OrderBy != b.OrderBy {
		keys = append(keys, KeyOrderBy)
	}
	if a.Theme != b.Theme {
		keys = append(keys, KeyTheme)
	}
	if a.LogFile != b.LogFile {
		keys = append(keys, KeyLogFile)
	}
	if a.LogLevel != b.LogLevel {
		keys = append(keys, KeyLogLevel)
	}
	if a.MetricsListen != b.MetricsListen {
		keys = append(keys, KeyMetricsListen)
	}
	return keys
}

func knownKey(key string) bool {
	switch key {
	case KeyServer, KeyRefreshInterval, KeyPageSize, KeySearchDebounce, KeyRequestTimeout,
		KeyRetries, KeyExcludeProcessed, KeyOrderBy, KeyTheme, KeyLogFile, KeyLogLevel, KeyMetricsListen:
		return true
	}
	return false
}

// yamlConfig renders durations the way they are written by hand.
type yamlConfig struct {
	Server           string `yaml:"server"`
	RefreshInterval  string `yaml:"refresh-interval"`
	PageSize         int    `yaml:"page-size"`
	SearchDebounce   string `yaml:"search-debounce"`
	RequestTimeout   string `yaml:"request-timeout"`
	Retries          int    `yaml:"retries"`
	ExcludeProcessed bool   `yaml:"exclude-processed"`
	OrderBy          string `yaml:"order-by"`
	Theme            string `yaml:"theme"`
	LogFile          string `yaml:"log-file,omitempty"`
	LogLevel         string `yaml:"log-level"`
	MetricsListen    string `yaml:"metrics-listen,omitempty"`
}

// MarshalYAML implements yaml.Marshaler.
func (c Config) MarshalYAML() (any, error) {
	return yamlConfig{
		Server:           c.Server,
		RefreshInterval:  formatDuration(c.RefreshInterval),
		PageSize:         c.PageSize,
		SearchDebounce:   formatDuration(c.SearchDebounce),
		RequestTimeout:   formatDuration(c.RequestTimeout),
		Retries:          c.Retries,
		ExcludeProcessed: c.ExcludeProcessed,
		OrderBy:          string(c.OrderBy),
		Theme:            c.Theme,
		LogFile:          c.LogFile,
		LogLevel:         c.LogLevel,
		MetricsListen:    c.MetricsListen,
	}, nil
}

func formatDuration(d time.Duration) string {
	return d.String()
}
