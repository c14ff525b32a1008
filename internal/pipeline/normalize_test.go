package pipeline

import (
	"testing"

	"github.com/mohammad-safakhou/newsight/news"
)

func TestNormalizeQuery(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		want   news.Query
		parsed bool
	}{
		{
			name:   "strict json",
			raw:    `{"query":"Singapore","from":"2026-08-31","to":"2026-08-31"}`,
			want:   news.Query{Query: "Singapore", From: "2026-08-31", To: "2026-08-31"},
			parsed: true,
		},
		{
			name:   "json buried in prose",
			raw:    "Sure! Here is the query:\n{\"query\":\"Ukraine\"}\nHope that helps.",
			want:   news.Query{Query: "Ukraine"},
			parsed: true,
		},
		{
			name:   "reasoning trace then json",
			raw:    "<think>the user wants {recent} news</think>{\"query\":\"Moon\",\"from\":\"2025-01-01\",\"to\":\"2025-12-31\"}",
			want:   news.Query{Query: "Moon", From: "2025-01-01", To: "2025-12-31"},
			parsed: true,
		},
		{
			name:   "non-string values coerced",
			raw:    `{"query": 42, "from": null}`,
			want:   news.Query{Query: "42"},
			parsed: true,
		},
		{
			name:   "truncated json falls back to text",
			raw:    `{"query":"Singapo`,
			want:   news.Query{Query: `{"query":"Singapo`},
			parsed: false,
		},
		{
			name:   "plain text",
			raw:    "  what happened in Singapore today  ",
			want:   news.Query{Query: "what happened in Singapore today"},
			parsed: false,
		},
		{
			name:   "braces but not an object",
			raw:    "set {x} to {y}",
			want:   news.Query{Query: "set {x} to {y}"},
			parsed: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeQuery(tc.raw)
			if got.Parsed != tc.parsed {
				t.Fatalf("Parsed = %v, want %v", got.Parsed, tc.parsed)
			}
			if got.Query != tc.want {
				t.Fatalf("Query = %+v, want %+v", got.Query, tc.want)
			}
		})
	}
}

func TestExtractBiasLabel(t *testing.T) {
	cases := []struct {
		name     string
		critique string
		want     string
	}{
		{"plain", "REFINED BIAS JUDGMENT: Neutral\n\nREASONING:\n- calm tone", "Neutral"},
		{"indented", "  REFINED BIAS JUDGMENT: Left", "Left"},
		{"trailing text", "REFINED BIAS JUDGMENT: Mixed (leaning left)", "Mixed"},
		{"unknown label", "REFINED BIAS JUDGMENT: Centrist", "Undetermined"},
		{"missing line", "The article seems neutral overall.", "Undetermined"},
		{"error placeholder", "[Error during critic analysis: timeout]", "Undetermined"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractBiasLabel(tc.critique); got != tc.want {
				t.Fatalf("ExtractBiasLabel = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHeadline(t *testing.T) {
	st := State{FinalReport: "Headline: Vote counting begins\nSummary: ..."}
	if got := st.Headline(); got != "Vote counting begins" {
		t.Fatalf("Headline = %q", got)
	}

	st = State{FinalReport: "no structure here", StructuredQuery: news.Query{Query: "Singapore"}}
	if got := st.Headline(); got != "Singapore" {
		t.Fatalf("Headline fallback = %q, want query", got)
	}

	st = State{FinalReport: "Headline:\nempty value", UserPrompt: " anything new? "}
	if got := st.Headline(); got != "anything new?" {
		t.Fatalf("Headline fallback = %q, want trimmed prompt", got)
	}
}

func TestAnalyzeBias(t *testing.T) {
	score, flags := AnalyzeBias("The minister outlined the budget for next year.")
	if score != 0 || flags != nil {
		t.Fatalf("neutral text: score=%d flags=%v", score, flags)
	}

	score, flags = AnalyzeBias("Critics SLAMMED the reckless plan as a corrupt scheme.")
	if score != -1 {
		t.Fatalf("charged text score = %d, want -1", score)
	}
	if len(flags) != 4 {
		t.Fatalf("flags = %v, want slammed/reckless/corrupt/scheme", flags)
	}

	long := "slammed blasted reckless disastrous radical extremist outrageous"
	_, flags = AnalyzeBias(long)
	if len(flags) != 5 {
		t.Fatalf("flag cap: got %d flags, want 5", len(flags))
	}
}
