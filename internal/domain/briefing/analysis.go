package briefing

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Truncation bounds for analysis input and fallback summaries.
const (
	// MaxAnalysisBodyLength bounds the body text sent to the analysis
	// backend, keeping cost and latency predictable.
	MaxAnalysisBodyLength = 2000
	// FallbackSummaryLength bounds the heuristic summary.
	FallbackSummaryLength = 150
	// TruncationMarker is appended whenever text was cut short so the
	// summary visibly reflects partial context.
	TruncationMarker = "..."
)

// EmailContent is the input to email analysis: the raw fields of one email
// before any normalization of its judgment.
type EmailContent struct {
	Subject    string
	Body       string
	From       string
	ReceivedAt time.Time
	// Importance is the provider-native importance hint ("high", "normal",
	// or empty when the provider exposes none).
	Importance string
}

// Analysis is the structured judgment produced for one email. All fields are
// always populated; partial results never cross the analysis boundary.
type Analysis struct {
	Summary       string   `json:"summary"`
	Priority      Priority `json:"priority"`
	NeedsResponse bool     `json:"needsResponse"`
	ActionItems   []string `json:"actionItems"`
	Category      string   `json:"category"`
}

// subject markers that raise or lower heuristic priority
var (
	urgencyMarkers = []string{"urgent", "asap", "important"}
	replyMarkers   = []string{"re:", "fw:"}
	requestPhrases = []string{"please", "could you", "can you", "need your", "action required"}
)

const shortBodyThreshold = 100

// TruncateBody cuts body down to at most max bytes, appending the truncation
// marker when anything was removed. The cut always lands on a rune boundary so
// the result stays valid UTF-8. A body at or under the bound is returned
// unchanged.
func TruncateBody(body string, max int) string {
	if len(body) <= max {
		return body
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + TruncationMarker
}

// HeuristicAnalysis is the deterministic, offline fallback used whenever the
// analysis backend is disabled or fails. It is a pure function: identical
// input always yields an identical result.
func HeuristicAnalysis(email EmailContent) Analysis {
	subject := strings.ToLower(email.Subject)
	body := strings.ToLower(email.Body)

	priority := PriorityMedium
	switch {
	case email.Importance == "high" || containsAny(subject, urgencyMarkers):
		priority = PriorityHigh
	case containsAny(subject, replyMarkers) || len(body) < shortBodyThreshold:
		priority = PriorityLow
	}

	needsResponse := strings.Contains(body, "?") || containsAny(body, requestPhrases)
	if strings.Contains(body, "no reply") {
		needsResponse = false
	}

	return Analysis{
		Summary:       TruncateBody(email.Body, FallbackSummaryLength),
		Priority:      priority,
		NeedsResponse: needsResponse,
		ActionItems:   []string{},
		Category:      "general",
	}
}

// Normalize fills gaps in an analysis result produced by an external model,
// so downstream consumers never see partially filled judgments.
func (a Analysis) Normalize(email EmailContent) Analysis {
	if a.Summary == "" {
		a.Summary = email.Subject
	}
	if !a.Priority.IsValid() {
		a.Priority = PriorityMedium
	}
	if a.ActionItems == nil {
		a.ActionItems = []string{}
	}
	if a.Category == "" {
		a.Category = "general"
	}
	return a
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
