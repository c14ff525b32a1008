package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/newsight/config"
	"github.com/mohammad-safakhou/newsight/internal/index"
	"github.com/mohammad-safakhou/newsight/internal/store"
	"github.com/mohammad-safakhou/newsight/internal/telemetry"
	"github.com/mohammad-safakhou/newsight/news"
	"github.com/mohammad-safakhou/newsight/provider"
	"github.com/mohammad-safakhou/newsight/tools/web_fetch"
)

// Retriever resolves a structured query to candidate articles, never failing.
type Retriever interface {
	Retrieve(ctx context.Context, q news.Query, max int) []news.Article
}

// BodyCache is an optional cache of extracted article bodies.
type BodyCache interface {
	Get(ctx context.Context, url string) (string, bool)
	Set(ctx context.Context, url, text string)
}

// Options carries per-run overrides of the configured defaults.
type Options struct {
	MaxArticles int
	RunCritique bool
}

// Orchestrator sequences the pipeline stages. Strictly linear, no retries
// between stages: every stage owns its internal degrade-not-fail policy, so
// a run always reaches a structurally complete terminal state.
type Orchestrator struct {
	cfg       config.PipelineConfig
	routing   config.LLMRoutingConfig
	genOpts   map[string]interface{}
	llm       provider.Provider
	retriever Retriever
	fetcher   web_fetch.WebFetcher
	bodyCache BodyCache
	embedder  index.Embedder
	dedup     *index.Index
	dupThresh float64
	keyword   *index.Keyword
	archive   *store.Store
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	workers   int
	now       func() time.Time
}

// NewOrchestrator wires a pipeline from its collaborators. dedup, keyword,
// archive, bodyCache and tele may be nil; the matching features are skipped.
func NewOrchestrator(
	cfg *config.Config,
	llm provider.Provider,
	retriever Retriever,
	fetcher web_fetch.WebFetcher,
	bodyCache BodyCache,
	embedder index.Embedder,
	dedup *index.Index,
	keyword *index.Keyword,
	archive *store.Store,
	tele *telemetry.Telemetry,
	logger *log.Logger,
) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	workers := cfg.Fetch.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		cfg:       cfg.Pipeline,
		routing:   cfg.LLM.Routing,
		genOpts:   map[string]interface{}{"num_ctx": cfg.LLM.NumCtx, "temperature": cfg.LLM.Temperature},
		llm:       llm,
		retriever: retriever,
		fetcher:   fetcher,
		bodyCache: bodyCache,
		embedder:  embedder,
		dedup:     dedup,
		dupThresh: cfg.Index.DuplicateThreshold,
		keyword:   keyword,
		archive:   archive,
		telemetry: tele,
		logger:    logger,
		workers:   workers,
		now:       time.Now,
	}
}

// Run executes one full pipeline pass. It never returns an error: the
// returned state is complete on every path, worst case with sentinel text
// in every field and the causes recorded in Errors.
func (o *Orchestrator) Run(ctx context.Context, userPrompt string, opts Options) State {
	maxArticles := opts.MaxArticles
	if maxArticles <= 0 {
		maxArticles = o.cfg.MaxArticles
	}

	st := State{
		RunID:       uuid.New().String(),
		UserPrompt:  userPrompt,
		MaxArticles: maxArticles,
		RunCritique: opts.RunCritique,
		StartedAt:   o.now(),
	}
	o.telemetry.RunStarted()
	o.logger.Printf("run %s: %q (max_articles=%d critique=%v)", st.RunID, userPrompt, maxArticles, opts.RunCritique)

	stages := []struct {
		name string
		fn   func(context.Context, State) State
	}{
		{StagePreprocess, o.preprocessStage},
		{StageSearch, o.searchStage},
		{StageFetch, o.fetchStage},
		{StageSummarize, o.summarizeStage},
		{StageCritique, o.critiqueStage},
		{StageWrite, o.writeStage},
	}

	for _, s := range stages {
		t0 := o.now()
		before := len(st.Errors)
		st = s.fn(ctx, st)
		o.telemetry.ObserveStage(s.name, o.now().Sub(t0))
		if len(st.Errors) > before {
			o.telemetry.StageError(s.name)
		}
	}

	st.CompletedAt = o.now()
	o.finish(ctx, &st)
	o.logger.Printf("run %s done in %s (%d hits, %d errors)", st.RunID, st.CompletedAt.Sub(st.StartedAt), len(st.Hits), len(st.Errors))
	return st
}

// finish archives and indexes the completed run. Persistence failures are
// recorded, not raised: the run already has its result.
func (o *Orchestrator) finish(ctx context.Context, st *State) {
	link := ""
	if len(st.Hits) > 0 {
		link = st.Hits[0].Link
	}
	headline := st.Headline()

	var reportID string
	if o.archive != nil {
		id, err := o.archive.SaveReport(ctx, store.Report{
			RunID:     st.RunID,
			Prompt:    st.UserPrompt,
			Headline:  headline,
			URL:       link,
			Bias:      st.BiasLabel,
			Synthesis: st.Synthesis,
			Critique:  st.Critique,
			Body:      st.FinalReport,
		})
		if err != nil {
			o.logger.Printf("run %s: archive failed: %v", st.RunID, err)
			st.Errors = append(st.Errors, fmt.Sprintf("archive failed: %v", err))
		} else {
			reportID = id
		}
	}

	if o.keyword != nil && reportID != "" {
		err := o.keyword.Index(reportID, index.Meta{Title: headline, URL: link, Bias: st.BiasLabel, Report: st.FinalReport})
		if err != nil {
			o.logger.Printf("run %s: keyword index failed: %v", st.RunID, err)
			st.Errors = append(st.Errors, fmt.Sprintf("keyword index failed: %v", err))
		}
	}

	if o.cfg.IndexReports && o.dedup != nil && st.Synthesis != NoContentSentinel {
		err := o.dedup.Insert(ctx, headline+"\n"+st.FinalReport, index.Meta{
			Title:  headline,
			URL:    link,
			Bias:   st.BiasLabel,
			Report: st.FinalReport,
		})
		if err != nil {
			o.logger.Printf("run %s: report indexing failed: %v", st.RunID, err)
			st.Errors = append(st.Errors, fmt.Sprintf("report indexing failed: %v", err))
		}
	}
}

// generate is the single funnel for text-generation calls: routes to the
// model, strips any leading reasoning trace, records telemetry.
func (o *Orchestrator) generate(ctx context.Context, prompt, model string) (string, error) {
	out, err := o.llm.Generate(ctx, prompt, model, o.genOpts)
	o.telemetry.LLMCall(model, err)
	if err != nil {
		return "", err
	}
	return provider.StripReasoning(out), nil
}

func (o *Orchestrator) modelFor(stage string) string {
	switch stage {
	case StagePreprocess:
		if o.routing.Preprocess != "" {
			return o.routing.Preprocess
		}
	case StageCritique:
		if o.routing.Critic != "" {
			return o.routing.Critic
		}
	case StageWrite:
		if o.routing.Writer != "" {
			return o.routing.Writer
		}
	}
	return o.routing.Summarize
}
