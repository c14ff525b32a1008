package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/index"
)

func indexCMD() *cobra.Command {
	var cfgPath string
	var ix = &cobra.Command{
		Use:   "index",
		Short: "Manage the similarity index",
	}
	ix.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")

	var reset = &cobra.Command{
		Use:   "reset",
		Short: "Delete the persisted vector/metadata pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			// works on a corrupt pair too, which Open would refuse to load
			if err := index.ResetDir(cfg.Index.Dir); err != nil {
				return err
			}
			cmd.Printf("index at %s reset\n", cfg.Index.Dir)
			return nil
		},
	}
	ix.AddCommand(reset)

	return ix
}
