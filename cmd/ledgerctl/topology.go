package main

import (
	"fmt"
	"io"

	"async-ledger/internal/adapter/messaging/rabbitmq"

	"github.com/spf13/cobra"
)

func topologyCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "topology",
		Short: "Declare the sharded settlement exchanges and queues",
		Long: `Declare the main, retry and dead-letter exchanges and, for every shard,
the main, retry and dead-letter queues with their bindings.

Declaration is idempotent. Changing shard_count on an existing topology
requires draining the queues first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := rabbitmq.NewTopology(a.cfg.RabbitMQ)
			if dryRun {
				printTopology(cmd.OutOrStdout(), t)
				return nil
			}

			mq := rabbitmq.NewConnectionManager(a.cfg.RabbitMQ, a.log)
			if err := mq.Open(); err != nil {
				return fmt.Errorf("connecting to rabbitmq: %w", err)
			}
			defer mq.Close() //nolint:errcheck

			if err := rabbitmq.DeclareTopology(mq, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Declared topology with %d shards on %s\n", t.ShardCount, t.Exchange)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the names without connecting")

	return cmd
}

func printTopology(w io.Writer, t rabbitmq.Topology) {
	fmt.Fprintf(w, "exchanges: %s %s %s\n", t.Exchange, t.RetryExchange(), t.DeadLetterExchange())
	for i := 0; i < t.ShardCount; i++ {
		fmt.Fprintf(w, "shard %d: key=%s queue=%s retry=%s dlq=%s\n",
			i, t.RoutingKey(i), t.Queue(i), t.RetryQueue(i), t.DeadLetterQueue(i))
	}
}
