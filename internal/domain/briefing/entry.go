package briefing

import (
	"errors"
	"time"
)

// Kind discriminates what a briefing entry represents. It determines which
// optional fields of Entry are populated.
type Kind string

const (
	KindEmail    Kind = "email"
	KindCalendar Kind = "calendar"
	KindTicket   Kind = "ticket"
)

// IsValid returns true if the kind is valid
func (k Kind) IsValid() bool {
	switch k {
	case KindEmail, KindCalendar, KindTicket:
		return true
	default:
		return false
	}
}

// String returns the string representation of Kind
func (k Kind) String() string {
	return string(k)
}

// Priority represents the urgency of a briefing entry. It is never empty:
// absence of any signal resolves to PriorityMedium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid returns true if the priority is valid
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of Priority
func (p Priority) String() string {
	return string(p)
}

// ParsePriority maps a provider-native priority string onto Priority.
// Unknown or empty values resolve to PriorityMedium; "urgent" counts as high.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high", "urgent":
		return PriorityHigh
	case "medium", "normal":
		return PriorityMedium
	default:
		return PriorityMedium
	}
}

var (
	// ErrNoTimestamp is returned when a provider item carries no usable
	// point in time. Such items are excluded from the feed rather than
	// sorted arbitrarily.
	ErrNoTimestamp = errors.New("briefing: entry has no usable timestamp")
)

// Defaults substituted for malformed provider data.
const (
	NoSubjectPlaceholder  = "(No subject)"
	NoLocationPlaceholder = "No location"
)

// Entry is one normalized unit of the aggregated feed: an email, a calendar
// event or a support ticket. Entries are constructed fresh on every
// aggregation request and never mutated after analysis completes.
type Entry struct {
	Kind     Kind     `json:"type"`
	Priority Priority `json:"priority"`
	Source   string   `json:"source"`
	Title    string   `json:"title"`
	Summary  string   `json:"summary"`
	Sender   string   `json:"sender,omitempty"`

	// Timestamp orders the feed: received time for email, start time for
	// calendar events, last-updated time for tickets.
	Timestamp time.Time `json:"timestamp"`

	// DurationLabel is populated for calendar entries only.
	DurationLabel string `json:"duration,omitempty"`

	// Analysis-derived fields, populated for email entries when analysis
	// ran successfully. AIAnalyzed stays false on the fallback path.
	NeedsResponse bool     `json:"needs_response"`
	ActionItems   []string `json:"action_items"`
	Category      string   `json:"category"`
	AIAnalyzed    bool     `json:"ai_analyzed"`

	// Metadata carries opaque provider-specific identifiers (original id,
	// address) needed for future read/reply actions. The aggregator never
	// interprets it.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ApplyAnalysis overwrites the analysis-derived fields of an email entry
// with the given result and marks the entry as analyzed.
func (e *Entry) ApplyAnalysis(a Analysis) {
	e.Priority = a.Priority
	e.Summary = a.Summary
	e.NeedsResponse = a.NeedsResponse
	e.ActionItems = a.ActionItems
	e.Category = a.Category
	e.AIAnalyzed = true
}
