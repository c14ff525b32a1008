package pipeline

import (
	"fmt"
	"strings"
	"time"
)

func preprocessPrompt(userPrompt string, now time.Time) string {
	today := now.Format("2006-01-02")
	lastWeekStart := now.AddDate(0, 0, -7).Format("2006-01-02")
	lastYear := now.Year() - 1

	return fmt.Sprintf(`You are a Preprocessor Agent.
Convert a vague news prompt into STRICT JSON:
{
  "query": "<short keyword/topic, no quotes or filler>",
  "from": "YYYY-MM-DD",
  "to": "YYYY-MM-DD"
}

Rules:
- If the prompt says "today", set both from/to to %[1]s.
- If it says "last week", set from to %[2]s and to to %[1]s.
- If it says "last year", set from to "%[3]d-01-01" and to to "%[3]d-12-31".
- If no dates are implied, omit "from" and "to".
- The "query" must be a short keyword string (e.g., "Singapore elections", "Ukraine").

Examples (INPUT -> OUTPUT):
- "Singapore today" ->
{"query":"Singapore","from":"%[1]s","to":"%[1]s"}
- "Moon last year" ->
{"query":"Moon","from":"%[3]d-01-01","to":"%[3]d-12-31"}
- "Ukraine last week" ->
{"query":"Ukraine","from":"%[2]s","to":"%[1]s"}

Return ONLY the JSON. No extra text.

INPUT: "%[4]s"`, today, lastWeekStart, lastYear, userPrompt)
}

func summaryPrompt(articleText string) string {
	return fmt.Sprintf(`You are a news summarizer. Produce a rich but compact, structured summary.

Return ONLY the following sections:

TITLE: <infer a short, neutral title from the article>
TL;DR: <2-3 sentence neutral abstract>

KEY POINTS:
- <5-10 concise bullets capturing facts, actors, numbers, dates, locations>
- <avoid opinions; stick to what the article states>

CONTEXT & BACKGROUND:
- <2-4 bullets on prior events, timelines, comparisons if present in the article>

NUMBERS & QUOTES:
- <list any dollar amounts, stats, dates, and up to 2 short quotes with speakers>

FRAMING/LANGUAGE NOTES:
- <list 2-5 phrases with charged tone or framing (if any); else 'None'>

ARTICLE TEXT:
%s`, articleText)
}

func synthesisPrompt(summaries []string) string {
	return fmt.Sprintf(`You are a cross-article synthesizer.

Given several article summaries below, produce:
1) A neutral, cohesive synthesis (6-10 bullet points).
2) 3-5 themes or trends that emerge.
3) Notable disagreements or uncertainties (if any).
4) A short overall TL;DR (2-3 sentences).

Return ONLY those sections in a clean, readable format.

SUMMARIES:
%s`, strings.Join(summaries, "\n\n---\n\n"))
}

func criticPrompt(synthesis, original string, score int, flags []string) string {
	flagged := "None"
	if len(flags) > 0 {
		flagged = strings.Join(flags, ", ")
	}
	return fmt.Sprintf(`You are the Bias Critic. You receive:
1) A structured summary (with KEY POINTS and FRAMING/LANGUAGE NOTES)
2) The original article text
3) A simple bias proxy signal (score + flagged tokens), which might be wrong

TASK:
- Decide a refined political-bias judgment: one of [Left, Right, Neutral, Mixed, Undetermined].
- Explain WHY you reached that judgment, citing exact phrases and how they map to your decision rule.
- If the topic is non-political (e.g., sports match, prize money, transfer rumors), explicitly say the mapping to Left/Right is weak and default to Neutral unless policy/ideology is discussed.
- Keep it compact but specific.

Return EXACTLY this format:

REFINED BIAS JUDGMENT: <Left|Right|Neutral|Mixed|Undetermined>

REASONING:
- <bullet 1 referencing phrases and their interpretation>
- <bullet 2>
- <bullet 3>
- <add a bullet noting if the domain is sports/entertainment/business-without-policy and why that weakens political mapping>

TRIGGER PHRASES:
- "<quote 1>" -> <explain>
- "<quote 2>" -> <explain>
- (max 5 items)

NOTES ON PROXY:
- <when the proxy (score/flags) helped or misled, and why>

INPUTS
--- SUMMARY ---
%s

--- PROXY ---
Score: %d
Flagged: %s

--- ORIGINAL ---
%s`, synthesis, score, flagged, original)
}

func writerPrompt(synthesis, critique string, score int, flags []string) string {
	flagged := "None"
	if len(flags) > 0 {
		flagged = strings.Join(flags, ", ")
	}
	return fmt.Sprintf(`You are a Writer Agent.
Prepare a final structured news bias report.

Inputs:
Summary: %s
Bias Proxy Score: %d
Flagged Phrases: %s
Critic Output: %s

Format the output as:
Headline: <generated if missing>
Summary: <from summary input>
Bias Assessment: <refined judgment from critic>
Context Notes: <any relevant context or flagged terms>`, synthesis, score, flagged, critique)
}
