package pipeline

import "strings"

// chargedPhrases is a small lexicon of loaded framing terms. Matching any
// of them marks the text as potentially biased. Deliberately crude: the
// proxy is a cheap signal the critic is told may be wrong.
var chargedPhrases = []string{
	"slammed",
	"blasted",
	"reckless",
	"disastrous",
	"radical",
	"extremist",
	"outrageous",
	"shameful",
	"witch hunt",
	"fake news",
	"so-called",
	"scheme",
	"propaganda",
	"catastrophic",
	"corrupt",
}

const maxProxyFlags = 5

// AnalyzeBias computes the bias proxy for a window of article text:
// -1 when charged framing is present, 0 otherwise, plus the phrases that
// triggered it. The score convention follows the critic prompt: it is a
// subjectivity signal, not a left/right direction.
func AnalyzeBias(text string) (int, []string) {
	lower := strings.ToLower(text)
	var flags []string
	for _, phrase := range chargedPhrases {
		if strings.Contains(lower, phrase) {
			flags = append(flags, phrase)
			if len(flags) >= maxProxyFlags {
				break
			}
		}
	}
	if len(flags) > 0 {
		return -1, flags
	}
	return 0, nil
}
