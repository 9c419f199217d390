package main

import (
	"fmt"

	pgStorage "async-ledger/internal/adapter/storage/postgres"

	"github.com/spf13/cobra"
)

func migrateCmd(a *app) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the ledger schema to PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), pgStorage.Schema())
				return nil
			}

			ctx := cmd.Context()
			pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pgStorage.Migrate(ctx, pool); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schema applied to %s\n", a.cfg.Database.DBName)
			return nil
		},
	}
	cmd.Flags().BoolVar(&printOnly, "print", false, "print the schema instead of applying it")

	return cmd
}
