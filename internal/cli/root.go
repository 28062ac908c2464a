// Package cli is the pqdash command line: the dashboard by default, plus
// one-shot stats, cleanup, cancel, ping and config commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/config"
	"github.com/billie-coop/pqdash/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context, args []string) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	ctx = withSignalCancel(ctx)
	if _, err := cmd.ExecuteContextC(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err)
		}
		return 1
	}
	return 0
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	v   *viper.Viper
	mgr *config.Manager
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "pqdash",
		Short:         "pqdash is a terminal dashboard for pq queues",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: `
  # Watch a local pq server
  pqdash --server http://localhost:9182

  # Queue counts, then clear processed items from two queues
  pqdash stats
  pqdash cleanup emails,reports
`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(config.KeyConfig, "", "path to a YAML config file (default $XDG_CONFIG_HOME/pqdash/config.yaml)")
	flags.String(config.KeyServer, d.Server, "pq server base URL")
	flags.Duration(config.KeyRefreshInterval, d.RefreshInterval, "dashboard refresh interval (1s, 5s, 10s, 30s, 1m or 5m)")
	flags.Int(config.KeyPageSize, d.PageSize, "items per page (10, 20, 50 or 100)")
	flags.Duration(config.KeySearchDebounce, d.SearchDebounce, "pause after typing before a search runs")
	flags.Duration(config.KeyRequestTimeout, d.RequestTimeout, "timeout for each request attempt")
	flags.Int(config.KeyRetries, d.Retries, "attempts for read requests")
	flags.Bool(config.KeyExcludeProcessed, d.ExcludeProcessed, "hide processed items")
	flags.String(config.KeyOrderBy, string(d.OrderBy), "item sort order, e.g. enqueuedAt_DESC")
	flags.String(config.KeyTheme, d.Theme, "color theme (dark or light)")
	flags.String(config.KeyLogFile, d.LogFile, "dashboard log file")
	flags.String(config.KeyLogLevel, d.LogLevel, "log level (trace, debug, info, warn, error)")
	flags.String(config.KeyMetricsListen, d.MetricsListen, "serve Prometheus metrics on this address, e.g. :9464")

	for _, name := range []string{
		config.KeyConfig, config.KeyServer, config.KeyRefreshInterval, config.KeyPageSize,
		config.KeySearchDebounce, config.KeyRequestTimeout, config.KeyRetries,
		config.KeyExcludeProcessed, config.KeyOrderBy, config.KeyTheme,
		config.KeyLogFile, config.KeyLogLevel, config.KeyMetricsListen,
	} {
		bindFlag(a.v, flags, name)
	}

	cmd.AddCommand(newDashboardCommand(a))
	cmd.AddCommand(newStatsCommand(a))
	cmd.AddCommand(newCleanupCommand(a))
	cmd.AddCommand(newCancelCommand(a))
	cmd.AddCommand(newPingCommand(a))
	cmd.AddCommand(newConfigCommand(a))
	return cmd
}

func bindFlag(v *viper.Viper, flags *pflag.FlagSet, name string) {
	flag := flags.Lookup(name)
	if flag == nil {
		panic(fmt.Sprintf("flag %q not found", name))
	}
	if err := v.BindPFlag(name, flag); err != nil {
		panic(err)
	}
}

// loadConfig resolves the config file and builds the manager.
func (a *app) loadConfig() error {
	config.BindEnv(a.v)
	path, err := configFilePath(a.v)
	if err != nil {
		return err
	}
	a.mgr = config.NewManager(a.v, path)
	return a.mgr.Load()
}

// configFilePath returns the file named by --config (which must exist) or
// the default file when present. Empty means no file.
func configFilePath(v *viper.Viper) (string, error) {
	cfgPath := strings.TrimSpace(v.GetString(config.KeyConfig))
	explicit := cfgPath != ""

	if cfgPath == "" {
		if dir, err := config.DefaultDir(); err == nil {
			candidate := filepath.Join(dir, config.FileName)
			if _, err := os.Stat(candidate); err == nil {
				cfgPath = candidate
			}
		}
	}
	if cfgPath == "" {
		return "", nil
	}

	expanded, err := config.ExpandPath(cfgPath)
	if err != nil {
		return "", fmt.Errorf("expand config path %q: %w", cfgPath, err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return "", nil
		}
		return "", fmt.Errorf("config file %q: %w", expanded, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config file %q is a directory", expanded)
	}
	return expanded, nil
}

// client builds an API client from the loaded config.
func (a *app) client(logger zerolog.Logger) (*api.Client, error) {
	cfg := a.mgr.Get()
	return api.NewClient(cfg.Server,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithRetries(cfg.Retries),
		api.WithLogger(logging.Component(logger, "api")),
	)
}

// cliLogger logs to stderr for one-shot commands.
func (a *app) cliLogger(w io.Writer) zerolog.Logger {
	logger, _, err := logging.New(logging.Options{
		Level:   a.mgr.Get().LogLevel,
		Console: true,
		Writer:  w,
	})
	if err != nil {
		return zerolog.Nop()
	}
	return logger
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}

// splitList parses a comma-separated command argument, dropping blanks
// and duplicates.
func splitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}
