package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mohammad-safakhou/newsight/internal/index"
	"github.com/mohammad-safakhou/newsight/news"
)

// preprocessStage turns the vague user prompt into a structured query. A
// failed generation call degrades to treating the prompt itself as the
// query; malformed output is absorbed by the normalizer.
func (o *Orchestrator) preprocessStage(ctx context.Context, st State) State {
	raw, err := o.generate(ctx, preprocessPrompt(st.UserPrompt, o.now()), o.modelFor(StagePreprocess))
	if err != nil {
		o.logger.Printf("run %s: preprocess failed: %v", st.RunID, err)
		st.Errors = append(st.Errors, fmt.Sprintf("preprocess failed: %v", err))
		st.StructuredQuery = NormalizeQuery(st.UserPrompt).Query
		return st
	}
	nq := NormalizeQuery(raw)
	if !nq.Parsed {
		o.logger.Printf("run %s: preprocess output was not JSON, using text as query", st.RunID)
	}
	st.StructuredQuery = nq.Query
	return st
}

// searchStage retrieves candidates and optionally filters near-duplicates
// through the similarity index. This is the one stage the orchestrator
// guards against panics: a blown-up retrieval becomes empty hits plus a
// recorded error, and the run still completes.
func (o *Orchestrator) searchStage(ctx context.Context, st State) (out State) {
	out = st
	defer func() {
		if r := recover(); r != nil {
			out = st
			out.Hits = nil
			out.Errors = append(out.Errors, fmt.Sprintf("search failed: %v", r))
			o.logger.Printf("run %s: search panicked: %v", st.RunID, r)
		}
	}()

	hits := o.retriever.Retrieve(ctx, st.StructuredQuery, st.MaxArticles)
	if o.cfg.DedupCandidates && o.dedup != nil && len(hits) > 0 {
		hits = o.dropDuplicates(ctx, &out, hits)
	}
	out.Hits = hits
	return out
}

// dropDuplicates embeds candidate titles and keeps only those whose nearest
// indexed neighbor is farther than the duplicate threshold. Accepted titles
// are inserted so they screen later candidates. Embedding failure disables
// the filter for this run rather than losing candidates.
func (o *Orchestrator) dropDuplicates(ctx context.Context, st *State, hits []news.Article) []news.Article {
	titles := make([]string, len(hits))
	for i, h := range hits {
		titles[i] = h.Title
	}
	vecs, err := o.embedder.EmbedMany(ctx, titles)
	if err != nil || len(vecs) != len(hits) {
		o.logger.Printf("run %s: dedup disabled, embedding failed: %v", st.RunID, err)
		st.Errors = append(st.Errors, fmt.Sprintf("dedup disabled: %v", err))
		return hits
	}

	kept := make([]news.Article, 0, len(hits))
	for i, h := range hits {
		if o.dedup.IsDuplicate(vecs[i], o.dupThresh) {
			o.telemetry.DuplicateSkipped()
			o.logger.Printf("run %s: skipping near-duplicate: %s", st.RunID, h.Title)
			continue
		}
		if err := o.dedup.Add(vecs[i], index.Meta{Title: h.Title, URL: h.Link}); err != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("dedup insert failed: %v", err))
		}
		kept = append(kept, h)
	}
	return kept
}

// fetchStage resolves every hit to a body, in parallel with bounded
// workers, writing results positionally: Bodies[i] always corresponds to
// Hits[i], failures included.
func (o *Orchestrator) fetchStage(ctx context.Context, st State) State {
	bodies := make([]ArticleBody, len(st.Hits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, hit := range st.Hits {
		g.Go(func() error {
			bodies[i] = o.fetchOne(gctx, hit)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures land in the body text

	st.Bodies = bodies
	return st
}

func (o *Orchestrator) fetchOne(ctx context.Context, hit news.Article) ArticleBody {
	body := ArticleBody{Title: hit.Title, Link: hit.Link}
	if hit.Link == "" {
		return body
	}
	if o.bodyCache != nil {
		if text, ok := o.bodyCache.Get(ctx, hit.Link); ok {
			body.Text = text
			return body
		}
	}

	res, err := o.fetcher.Exec(ctx, hit.Link)
	if err != nil {
		body.Text = fmt.Sprintf("[Fetch error for %s: %v]", hit.Link, err)
		return body
	}
	body.Text = res.Text
	if body.Title == "" {
		body.Title = res.Title
	}
	if o.bodyCache != nil {
		o.bodyCache.Set(ctx, hit.Link, res.Text)
	}
	return body
}

// summarizeStage summarizes each body above the minimum-length threshold
// and synthesizes across them. Nothing qualifying short-circuits to the
// no-content sentinel without touching the model.
func (o *Orchestrator) summarizeStage(ctx context.Context, st State) State {
	var qualifying []string
	for _, b := range st.Bodies {
		text := strings.TrimSpace(b.Text)
		if len(text) > o.cfg.MinArticleChars {
			qualifying = append(qualifying, text)
		}
	}
	if len(qualifying) == 0 {
		st.Summaries = nil
		st.Synthesis = NoContentSentinel
		return st
	}

	summaries := make([]string, 0, len(qualifying))
	for _, text := range qualifying {
		out, err := o.generate(ctx, summaryPrompt(text), o.modelFor(StageSummarize))
		if err != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("summarize failed: %v", err))
			out = fmt.Sprintf("[Error summarizing article: %v]", err)
		}
		summaries = append(summaries, out)
	}
	st.Summaries = summaries

	synth, err := o.generate(ctx, synthesisPrompt(summaries), o.modelFor(StageSummarize))
	if err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("synthesis failed: %v", err))
		synth = fmt.Sprintf("[Error during synthesis: %v]", err)
	}
	st.Synthesis = synth
	return st
}

// critiqueStage computes the bias proxy over a bounded window of raw text
// and, when enabled, asks the critic for a refined judgment. The proxy is
// always computed: the writer consumes it whether or not the critic ran.
func (o *Orchestrator) critiqueStage(ctx context.Context, st State) State {
	window := o.proxyWindow(st.Bodies)
	st.ProxyScore, st.ProxyFlags = AnalyzeBias(window)

	if !st.RunCritique {
		st.Critique = NoCritiquePlaceholder
		st.BiasLabel = "Undetermined"
		return st
	}

	out, err := o.generate(ctx, criticPrompt(st.Synthesis, window, st.ProxyScore, st.ProxyFlags), o.modelFor(StageCritique))
	if err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("critique failed: %v", err))
		out = fmt.Sprintf("[Error during critic analysis: %v]", err)
	}
	st.Critique = out
	st.BiasLabel = ExtractBiasLabel(out)
	return st
}

// proxyWindow joins the first two bodies, bounded to keep prompts sane.
func (o *Orchestrator) proxyWindow(bodies []ArticleBody) string {
	var parts []string
	for i, b := range bodies {
		if i >= 2 {
			break
		}
		parts = append(parts, b.Text)
	}
	window := strings.Join(parts, "\n\n")
	if len(window) > o.cfg.ProxyWindow {
		window = window[:o.cfg.ProxyWindow]
	}
	return window
}

// writeStage produces the final report. The stage has no fallback beyond
// the literal error string: the pipeline always terminates with a value.
func (o *Orchestrator) writeStage(ctx context.Context, st State) State {
	out, err := o.generate(ctx, writerPrompt(st.Synthesis, st.Critique, st.ProxyScore, st.ProxyFlags), o.modelFor(StageWrite))
	if err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("write failed: %v", err))
		out = fmt.Sprintf("[Error during writer agent generation: %v]", err)
	}
	st.FinalReport = out
	return st
}
