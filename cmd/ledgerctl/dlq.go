package main

import (
	"fmt"

	"async-ledger/internal/adapter/messaging/rabbitmq"

	"github.com/spf13/cobra"
)

func dlqCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay dead-lettered settlement messages",
	}
	cmd.AddCommand(dlqReplayCmd(a))
	return cmd
}

func dlqReplayCmd(a *app) *cobra.Command {
	var (
		shardIdx int
		limit    int
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Move messages from a shard's dead-letter queue back to its main queue",
		Long: `Move dead-lettered messages back onto the main exchange with the attempt
counter reset. Each message is acked on the dead-letter queue only after the
broker confirmed the republish.

Examples:
  ledgerctl dlq replay --shard 3
  ledgerctl dlq replay --shard 3 --limit 10
  ledgerctl dlq replay --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := rabbitmq.NewTopology(a.cfg.RabbitMQ)

			shards := []int{shardIdx}
			if all {
				shards = shards[:0]
				for i := 0; i < t.ShardCount; i++ {
					shards = append(shards, i)
				}
			} else if !t.ValidShard(shardIdx) {
				return fmt.Errorf("shard %d out of range [0,%d)", shardIdx, t.ShardCount)
			}

			mq := rabbitmq.NewConnectionManager(a.cfg.RabbitMQ, a.log)
			if err := mq.Open(); err != nil {
				return fmt.Errorf("connecting to rabbitmq: %w", err)
			}
			defer mq.Close() //nolint:errcheck

			publisher := rabbitmq.NewPublisher(mq, t, rabbitmq.PublishOptionsFromConfig(a.cfg.RabbitMQ), a.log)
			replayer := rabbitmq.NewReplayer(mq, publisher, t, a.log)

			total := 0
			for _, s := range shards {
				n, err := replayer.Replay(cmd.Context(), s, limit)
				total += n
				if err != nil {
					return fmt.Errorf("replaying shard %d after %d messages: %w", s, n, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "shard %d: replayed %d\n", s, n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d messages\n", total)
			return nil
		},
	}
	cmd.Flags().IntVar(&shardIdx, "shard", -1, "shard whose dead-letter queue to replay")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum messages per shard (0 drains the queue)")
	cmd.Flags().BoolVar(&all, "all", false, "replay every shard")
	cmd.MarkFlagsMutuallyExclusive("shard", "all")
	cmd.MarkFlagsOneRequired("shard", "all")

	return cmd
}
