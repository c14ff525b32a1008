package pipeline

import (
	"strings"
	"time"

	"github.com/mohammad-safakhou/newsight/news"
)

// Stage names, in execution order.
const (
	StagePreprocess = "preprocess"
	StageSearch     = "search"
	StageFetch      = "fetch"
	StageSummarize  = "summarize"
	StageCritique   = "critique"
	StageWrite      = "write"
)

// Sentinel values stages substitute when they degrade instead of failing.
const (
	NoContentSentinel     = "No fetchable article bodies."
	NoCritiquePlaceholder = "No critic step executed."
)

// Bias labels the critic may emit.
var BiasLabels = []string{"Left", "Right", "Neutral", "Mixed", "Undetermined"}

// ArticleBody is one fetched article. Failed fetches keep their slot with
// the error text in Text so Bodies stays 1:1 with Hits.
type ArticleBody struct {
	Title string `json:"title"`
	Link  string `json:"link"`
	Text  string `json:"text"`
}

// State is the accumulating record threaded through the pipeline. Each
// stage receives a copy and returns an updated copy; fields are set once by
// their owning stage. The terminal state is always structurally complete:
// on total failure every textual field holds a sentinel or error string,
// never a surprise absence.
type State struct {
	RunID      string `json:"run_id"`
	UserPrompt string `json:"user_prompt"`

	StructuredQuery news.Query `json:"structured_query"`

	Hits   []news.Article `json:"hits"`
	Bodies []ArticleBody  `json:"bodies"`

	Summaries []string `json:"summaries"`
	Synthesis string   `json:"synthesis"`

	Critique    string   `json:"critique"`
	BiasLabel   string   `json:"bias_label"`
	ProxyScore  int      `json:"proxy_score"`
	ProxyFlags  []string `json:"proxy_flags,omitempty"`
	FinalReport string   `json:"final_report"`

	MaxArticles int  `json:"max_articles"`
	RunCritique bool `json:"run_critique"`

	Errors []string `json:"errors,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Headline pulls the generated headline out of the final report, falling
// back to the structured query when the writer omitted one.
func (s State) Headline() string {
	for _, line := range strings.Split(s.FinalReport, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Headline:"); ok {
			if h := strings.TrimSpace(rest); h != "" {
				return h
			}
		}
	}
	if s.StructuredQuery.Query != "" {
		return s.StructuredQuery.Query
	}
	return strings.TrimSpace(s.UserPrompt)
}

// ExtractBiasLabel parses the refined judgment line out of critique text.
// Anything unparseable maps to Undetermined.
func ExtractBiasLabel(critique string) string {
	for _, line := range strings.Split(critique, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "REFINED BIAS JUDGMENT:")
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		for _, label := range BiasLabels {
			if strings.HasPrefix(rest, label) {
				return label
			}
		}
	}
	return "Undetermined"
}
