package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/pipeline"
)

func searchCMD() *cobra.Command {
	var cfgPath string
	var topK int
	var bias string
	var keyword bool
	var search = &cobra.Command{
		Use:   "search [query]",
		Short: "Search previously indexed articles and reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)

			ctx := context.Background()
			rt, err := pipeline.NewRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			if keyword {
				hits, err := rt.Keyword.Search(args[0], topK)
				if err != nil {
					return err
				}
				if len(hits) == 0 {
					cmd.Println("no matches")
					return nil
				}
				for i, h := range hits {
					cmd.Printf("%d. %s (score %.3f)\n", i+1, h.ID, h.Score)
					if rt.Archive != nil {
						if r, err := rt.Archive.GetReport(ctx, h.ID); err == nil {
							cmd.Printf("   %s [%s]\n   %s\n", r.Headline, r.Bias, r.URL)
						}
					}
				}
				return nil
			}

			hits, err := rt.Index.Search(ctx, args[0], topK)
			if err != nil {
				return err
			}
			shown := 0
			for _, h := range hits {
				if bias != "" && h.Meta.Bias != bias {
					continue
				}
				shown++
				cmd.Printf("%d. %s (distance %.4f)\n", shown, h.Meta.Title, h.Distance)
				if h.Meta.URL != "" {
					cmd.Printf("   %s\n", h.Meta.URL)
				}
				if h.Meta.Bias != "" {
					cmd.Printf("   bias: %s\n", h.Meta.Bias)
				}
			}
			if shown == 0 {
				cmd.Println("no matches")
			}
			return nil
		},
	}
	search.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	search.Flags().IntVarP(&topK, "top", "k", 5, "number of results")
	search.Flags().StringVar(&bias, "bias", "", fmt.Sprintf("filter by bias label %v", pipeline.BiasLabels))
	search.Flags().BoolVar(&keyword, "keyword", false, "use the keyword report index instead of vectors")

	return search
}
