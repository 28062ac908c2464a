package cli

import (
	"fmt"
	"path/filepath"

	"github.com/billie-coop/pqdash/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the client configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.mgr.Get())
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.mgr.Path()
			if path == "" {
				path = "(none)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a key in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.mgr.Path() == "" {
				dir, err := config.DefaultDir()
				if err != nil {
					return fmt.Errorf("resolve config dir: %w", err)
				}
				a.mgr = config.NewManager(a.v, filepath.Join(dir, config.FileName))
				if err := a.mgr.Load(); err != nil {
					return err
				}
			}
			if err := a.mgr.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", args[0], args[1], a.mgr.Path())
			return nil
		},
	})
	return cmd
}
