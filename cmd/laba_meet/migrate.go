package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rx3lixir/laba_meet/internal/storage/postgres"
)

var printSchema bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema for user accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if printSchema {
			fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
			return nil
		}

		c, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(c)
		if err != nil {
			return err
		}

		pool, err := postgres.NewPool(cmd.Context(), c.MainDBParams.GetDSN())
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.Migrate(cmd.Context(), pool); err != nil {
			return err
		}

		log.Info("Schema applied", "db", c.MainDBParams.Name)
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&printSchema, "print", false, "print the schema instead of applying it")
}
