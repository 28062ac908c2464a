package cli

import (
	"fmt"
	"io"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newStatsCommand(a *app) *cobra.Command {
	var queues []string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print item counts per queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := a.cliLogger(cmd.ErrOrStderr())
			client, err := a.client(logger)
			if err != nil {
				return err
			}

			var (
				all     []api.Queue
				backend api.BackendConfig
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				all, err = client.Queues(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				backend, err = client.Config(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writeBackend(out, backend)
			selected := filterQueues(all, queues)
			if len(selected) == 0 {
				fmt.Fprintln(out, "no queues matched")
				return nil
			}
			fmt.Fprintln(out, statsTable(selected))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&queues, "queues", nil, "only show these queues (comma-separated)")
	return cmd
}

// filterQueues keeps the queues named in names, in server order. No names
// keeps everything.
func filterQueues(all []api.Queue, names []string) []api.Queue {
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []api.Queue
	for _, q := range all {
		if want[q.Name] {
			out = append(out, q)
		}
	}
	return out
}

func statsTable(queues []api.Queue) string {
	var queued, processed, total int
	rows := make([][]string, 0, len(queues)+1)
	for _, q := range queues {
		rows = append(rows, []string{
			q.Name,
			humanize.Comma(int64(q.Queued)),
			humanize.Comma(int64(q.Processed)),
			humanize.Comma(int64(q.Total)),
		})
		queued += q.Queued
		processed += q.Processed
		total += q.Total
	}
	if len(queues) > 1 {
		rows = append(rows, []string{"(all)", humanize.Comma(int64(queued)), humanize.Comma(int64(processed)), humanize.Comma(int64(total))})
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	number := cell.Align(lipgloss.Right)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Name", "Queued", "Processed", "Total").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col > 0:
				return number
			}
			return cell
		}).
		String()
}

func writeBackend(w io.Writer, cfg api.BackendConfig) {
	if len(cfg) == 0 {
		return
	}
	fmt.Fprintf(w, "Database %s on %s@%s:%s, table %s\n",
		orDash(cfg["DATABASE"]), orDash(cfg["PGUSER"]), orDash(cfg["PGHOST"]), orDash(cfg["PGPORT"]), orDash(cfg["QUEUE_TABLE"]))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
