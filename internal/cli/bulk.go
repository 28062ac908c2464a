package cli

import (
	"context"
	"fmt"

	"github.com/billie-coop/pqdash/internal/api"
	"github.com/billie-coop/pqdash/internal/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// bulkOp is a whole-queue delete run by cleanup and cancel.
type bulkOp struct {
	name  string
	count func(api.Queue) int
	run   func(c *api.Client, ctx context.Context, queue string) error
	done  string
}

var (
	cleanupOp = bulkOp{
		name:  "delete-processed",
		count: func(q api.Queue) int { return q.Processed },
		run:   (*api.Client).DeleteProcessed,
		done:  "Cleaned up %d processed items from queue %s",
	}
	cancelOp = bulkOp{
		name:  "delete-queued",
		count: func(q api.Queue) int { return q.Queued },
		run:   (*api.Client).DeleteQueued,
		done:  "Cancelled all %d queued items from queue %s",
	}
)

func newCleanupCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup QUEUES",
		Short: "Delete processed items from a comma-separated list of queues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBulk(cmd, cleanupOp, splitList(args[0]))
		},
	}
}

func newCancelCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel QUEUES",
		Short: "Delete queued items from a comma-separated list of queues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBulk(cmd, cancelOp, splitList(args[0]))
		},
	}
}

// runBulk applies op to every named queue concurrently and prints one line
// per queue in the order given. Unknown queues are reported and skipped.
func (a *app) runBulk(cmd *cobra.Command, op bulkOp, names []string) error {
	if len(names) == 0 {
		return fmt.Errorf("no queues given")
	}
	logger := a.cliLogger(cmd.ErrOrStderr())
	client, err := a.client(logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	queues, err := client.Queues(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]api.Queue, len(queues))
	for _, q := range queues {
		byName[q.Name] = q
	}

	lines := make([]string, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		q, ok := byName[name]
		if !ok {
			lines[i] = "Unknown queue: " + name
			continue
		}
		g.Go(func() error {
			err := op.run(client, gctx, name)
			metrics.Mutation(op.name, err)
			if err != nil {
				logger.Warn().Err(err).Str("queue", name).Str("op", op.name).Msg("bulk delete failed")
				return fmt.Errorf("queue %s: %w", name, err)
			}
			lines[i] = fmt.Sprintf(op.done, op.count(q), name)
			return nil
		})
	}
	err = g.Wait()

	out := cmd.OutOrStdout()
	for _, line := range lines {
		if line != "" {
			fmt.Fprintln(out, line)
		}
	}
	return err
}
