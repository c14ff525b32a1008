package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/pipeline"
)

func runCMD() *cobra.Command {
	var cfgPath string
	var maxArticles int
	var critique bool
	var run = &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run the analysis pipeline once for a prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			if !cmd.Flags().Changed("critique") {
				critique = cfg.Pipeline.RunCritique
			}

			ctx := context.Background()
			rt, err := pipeline.NewRuntime(ctx, cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			st := rt.Orchestrator.Run(ctx, strings.Join(args, " "), pipeline.Options{
				MaxArticles: maxArticles,
				RunCritique: critique,
			})
			printState(cmd, st)
			return nil
		},
	}
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config)")
	run.Flags().IntVar(&maxArticles, "max-articles", 0, "override configured article cap")
	run.Flags().BoolVar(&critique, "critique", true, "run the bias critic step")

	return run
}

func printState(cmd *cobra.Command, st pipeline.State) {
	section := func(title, body string) {
		cmd.Printf("\n===== %s =====\n%s\n", title, body)
	}

	cmd.Printf("run %s (%s)\n", st.RunID, st.CompletedAt.Sub(st.StartedAt))
	section("QUERY", fmt.Sprintf("query=%q from=%q to=%q", st.StructuredQuery.Query, st.StructuredQuery.From, st.StructuredQuery.To))

	var hits strings.Builder
	for i, h := range st.Hits {
		fmt.Fprintf(&hits, "%d. %s\n   %s\n", i+1, h.Title, h.Link)
	}
	if hits.Len() == 0 {
		hits.WriteString("(none)")
	}
	section("ARTICLES", hits.String())
	section("SYNTHESIS", st.Synthesis)
	section("CRITIQUE", st.Critique)
	section(fmt.Sprintf("REPORT [bias=%s proxy=%d]", st.BiasLabel, st.ProxyScore), st.FinalReport)

	if len(st.Errors) > 0 {
		section("DEGRADED STEPS", strings.Join(st.Errors, "\n"))
	}
}
