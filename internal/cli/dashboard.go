package cli

import (
	"context"
	"fmt"

	"github.com/billie-coop/pqdash/internal/config"
	"github.com/billie-coop/pqdash/internal/dashboard"
	"github.com/billie-coop/pqdash/internal/events"
	"github.com/billie-coop/pqdash/internal/logging"
	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/spf13/cobra"
)

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Run the interactive dashboard (the default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd.Context())
		},
	}
}

// runDashboard logs to a file, serves metrics when asked, watches the
// config file and runs the terminal UI until quit.
func (a *app) runDashboard(ctx context.Context) error {
	cfg := a.mgr.Get()

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	client, err := a.client(logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.MetricsListen != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsListen, logging.Component(logger, "metrics")); err != nil {
				logger.Error().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	broker := events.NewBroker()
	defer broker.Close()

	prev := cfg
	a.mgr.Watch(func(next *config.Config, err error) {
		payload := events.ConfigChangedPayload{Err: err}
		if err == nil {
			payload.Keys = config.Changed(prev, next)
			payload.Config = next
			prev = next
		}
		if err == nil && len(payload.Keys) == 0 {
			return
		}
		broker.Publish(events.Event{Type: events.ConfigChangedEvent, Payload: payload})
	})

	logger.Info().Str("server", cfg.Server).Dur("refresh", cfg.RefreshInterval).Msg("dashboard starting")
	if err := dashboard.Run(ctx, dashboard.Options{
		API:    client,
		Config: cfg,
		Server: client.BaseURL(),
		Broker: broker,
		Logger: logger,
	}); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
