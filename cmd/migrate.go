package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/store"
)

func migrateCMD() *cobra.Command {
	var cfgPath string
	var dir string
	var steps int
	var mig = &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply report archive migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			dsn := cfg.Storage.Postgres.DSN()
			if dsn == "" {
				return fmt.Errorf("postgres not configured (storage.postgres.url or host/dbname)")
			}
			return store.Migrate(dir, dsn, args[0], steps)
		},
	}
	mig.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	mig.Flags().StringVar(&dir, "dir", "file://migrations", "migration source")
	mig.Flags().IntVar(&steps, "steps", 0, "limit to N steps (0 = all)")

	return mig
}
