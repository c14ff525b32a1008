package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/newsight/news"
	"github.com/mohammad-safakhou/newsight/provider"
)

// NormalizedQuery is the tagged outcome of query normalization: either a
// structured query parsed from model output, or a fallback built from the
// raw text itself.
type NormalizedQuery struct {
	Query  news.Query
	Parsed bool
}

// NormalizeQuery coerces raw preprocessor output into a structured query.
// The input may be strict JSON, JSON buried in explanatory prose, prose
// with a leading reasoning trace, or plain text. It never fails: when no
// JSON object can be parsed the trimmed text becomes the query verbatim.
func NormalizeQuery(raw string) NormalizedQuery {
	text := strings.TrimSpace(provider.StripReasoning(raw))

	jsonPart := extractObject(text)
	if jsonPart != "" {
		var obj map[string]interface{}
		if err := json.Unmarshal([]byte(jsonPart), &obj); err == nil {
			return NormalizedQuery{
				Query: news.Query{
					Query: coerce(obj["query"]),
					From:  coerce(obj["from"]),
					To:    coerce(obj["to"]),
				},
				Parsed: true,
			}
		}
	}

	return NormalizedQuery{Query: news.Query{Query: text}}
}

// extractObject returns the first-{ to last-} substring, or "" when the
// text contains no plausible object.
func extractObject(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

func coerce(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", t))
	}
}
