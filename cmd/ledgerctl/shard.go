package main

import (
	"fmt"
	"strconv"

	"async-ledger/pkg/shard"

	"github.com/spf13/cobra"
)

func shardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shard <owner-id>",
		Short: "Print the shard, routing key and queue serving an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("owner id must be an integer: %w", err)
			}

			mq := a.cfg.RabbitMQ
			router, err := shard.NewRouter(mq.ShardCount, mq.RoutingKeyBase, mq.QueueBase)
			if err != nil {
				return err
			}

			key := shard.OwnerKey(ownerID)
			idx := router.Shard(key)
			fmt.Fprintf(cmd.OutOrStdout(), "owner=%d shard=%d key=%s queue=%s\n",
				ownerID, idx, router.RoutingKey(key), shard.Queue(mq.QueueBase, idx))
			return nil
		},
	}
}
