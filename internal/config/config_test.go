package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if keys := Changed(cfg, want); len(keys) != 0 {
		t.Errorf("defaults differ in %v", keys)
	}
	if cfg.RefreshInterval != 5*time.Second || cfg.PageSize != 10 || cfg.OrderBy != api.OrderEnqueuedAsc {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_Normalizes(t *testing.T) {
	v := newViper()
	v.Set(KeyRefreshInterval, "7s")
	v.Set(KeyOrderBy, "bogus")
	v.Set(KeyTheme, "LIGHT")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RefreshInterval != 5*time.Second {
		t.Errorf("RefreshInterval = %v, want snapped to 5s", cfg.RefreshInterval)
	}
	if cfg.OrderBy != api.DefaultOrder {
		t.Errorf("OrderBy = %q", cfg.OrderBy)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("PQDASH_TEST_HOST", "queue.internal:9000")
	v := newViper()
	v.Set(KeyServer, "http://${PQDASH_TEST_HOST}")
	v.Set(KeyMetricsListen, "$PQDASH_TEST_UNSET_VAR")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "http://queue.internal:9000" {
		t.Errorf("Server = %q", cfg.Server)
	}
	if cfg.MetricsListen != "$PQDASH_TEST_UNSET_VAR" {
		t.Errorf("unset variable was replaced: %q", cfg.MetricsListen)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PQDASH_PAGE_SIZE", "50")
	t.Setenv("PQDASH_EXCLUDE_PROCESSED", "true")
	v := newViper()
	BindEnv(v)

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PageSize != 50 || !cfg.ExcludeProcessed {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"scheme", func(c *Config) { c.Server = "ftp://x" }, "unsupported scheme"},
		{"host", func(c *Config) { c.Server = "http://" }, "missing host"},
		{"page size", func(c *Config) { c.PageSize = 15 }, "page-size"},
		{"timeout", func(c *Config) { c.RequestTimeout = 0 }, "request-timeout"},
		{"retries", func(c *Config) { c.Retries = -1 }, "retries"},
		{"theme", func(c *Config) { c.Theme = "neon" }, "theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestManager_LoadSetSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("refresh-interval: 30s\npage-size: 20\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(viper.New(), path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got.RefreshInterval != 30*time.Second || got.PageSize != 20 {
		t.Fatalf("cfg = %+v", got)
	}

	if err := m.Set(KeyPageSize, "15"); err == nil {
		t.Fatal("Set accepted an invalid page size")
	}
	if m.Get().PageSize != 20 {
		t.Errorf("failed Set changed the config")
	}
	if err := m.Set("nope", "1"); err == nil {
		t.Error("Set accepted an unknown key")
	}
	if err := m.Set(KeyTheme, "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var saved map[string]any
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("saved file: %v", err)
	}
	if saved["theme"] != "light" || saved["refresh-interval"] != "30s" {
		t.Errorf("saved = %v", saved)
	}

	reloaded := NewManager(viper.New(), path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if keys := Changed(m.Get(), reloaded.Get()); len(keys) != 0 {
		t.Errorf("round trip changed %v", keys)
	}
}

func TestManager_MissingFile(t *testing.T) {
	m := NewManager(nil, filepath.Join(t.TempDir(), "absent.yaml"))
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get().Server != DefaultServer {
		t.Errorf("Server = %q", m.Get().Server)
	}
}

func TestManager_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("refresh-interval: 5s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManager(viper.New(), path)
	if err := m.Load(); err != nil {
		t.Fatal(err)
	}

	reloads := make(chan *Config, 4)
	m.Watch(func(cfg *Config, err error) {
		if err == nil {
			reloads <- cfg
		}
	})

	if err := os.WriteFile(path, []byte("refresh-interval: 60s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-reloads:
			if cfg.RefreshInterval == time.Minute {
				return
			}
		case <-deadline:
			t.Fatal("no reload after the file changed")
		}
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/pqdash/config.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, "pqdash", "config.yaml"); got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}
}
