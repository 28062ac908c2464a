package cli

import (
	"fmt"
	"time"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/spf13/cobra"
)

func newPingCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the server is up and can reach its database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.cliLogger(cmd.ErrOrStderr())
			client, err := a.client(logger)
			if err != nil {
				return err
			}

			start := time.Now()
			err = client.Health(cmd.Context())
			took := time.Since(start).Round(time.Millisecond)
			switch {
			case api.IsUnavailable(err):
				return fmt.Errorf("%s is up but cannot reach its database", client.BaseURL())
			case err != nil:
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s ok (%s)\n", client.BaseURL(), took)
			return nil
		},
	}
}
