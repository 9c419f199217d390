package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"async-ledger/config"
	"async-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var Version = "dev"

// app carries the state shared by every subcommand once the root has loaded config.
type app struct {
	configPath string
	cfg        *config.Config
	log        zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tool for the async ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("LEDGER_CONFIG"), "path to config file")

	rootCmd.AddCommand(topologyCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(dlqCmd(a))
	rootCmd.AddCommand(shardCmd(a))

	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
