package briefing

import (
	"strings"

	"github.com/briefing/backend/internal/domain/provider"
)

// Normalization maps each provider-native item shape onto Entry. These are
// pure functions: no side effects, no I/O. Items without a usable timestamp
// are rejected with ErrNoTimestamp and never reach the feed.

// NormalizeEmail converts a raw provider email into an email entry with a
// provisional priority. Outlook marks importance explicitly; Gmail's metadata
// fetch does not expose importance, so its entries start at medium.
func NormalizeEmail(source provider.Code, m provider.RawEmail) (Entry, error) {
	if m.ReceivedAt.IsZero() {
		return Entry{}, ErrNoTimestamp
	}

	priority := PriorityMedium
	if m.Importance == "high" {
		priority = PriorityHigh
	}

	// Gmail supplies a combined "Name <address>" From header; Outlook
	// supplies a bare display name, which passes through unchanged.
	sender := senderDisplayName(m.SenderName)

	title := m.Subject
	if title == "" {
		title = NoSubjectPlaceholder
	}

	return Entry{
		Kind:      KindEmail,
		Priority:  priority,
		Source:    source.String(),
		Title:     title,
		Summary:   m.Preview,
		Sender:    sender,
		Timestamp: m.ReceivedAt,
		Metadata: map[string]string{
			"id":   m.ID,
			"from": m.SenderAddress,
		},
	}, nil
}

// NormalizeEvent converts a raw calendar event into a calendar entry.
// Calendar entries are always medium priority; the summary shows the
// location or a placeholder when absent.
func NormalizeEvent(source provider.Code, ev provider.RawEvent) (Entry, error) {
	if ev.StartAt.IsZero() {
		return Entry{}, ErrNoTimestamp
	}

	title := ev.Subject
	if title == "" {
		title = NoSubjectPlaceholder
	}

	summary := ev.Location
	if summary == "" {
		summary = NoLocationPlaceholder
	}

	return Entry{
		Kind:          KindCalendar,
		Priority:      PriorityMedium,
		Source:        source.String(),
		Title:         title,
		Summary:       summary,
		Timestamp:     ev.StartAt,
		DurationLabel: FormatDuration(ev.StartAt, ev.EndAt),
		Metadata: map[string]string{
			"id":       ev.ID,
			"location": ev.Location,
		},
	}, nil
}

// NormalizeTicket converts a raw support ticket into a ticket entry, taking
// the provider priority when present and falling back to medium.
func NormalizeTicket(source provider.Code, t provider.RawTicket) (Entry, error) {
	if t.UpdatedAt.IsZero() {
		return Entry{}, ErrNoTimestamp
	}

	title := t.Subject
	if title == "" {
		title = NoSubjectPlaceholder
	}

	return Entry{
		Kind:      KindTicket,
		Priority:  ParsePriority(t.Priority),
		Source:    source.String(),
		Title:     title,
		Summary:   t.Description,
		Sender:    t.RequesterName,
		Timestamp: t.UpdatedAt,
		Metadata: map[string]string{
			"id":     t.ID,
			"status": t.Status,
		},
	}, nil
}

// senderDisplayName extracts the display name from a combined
// "Name <address>" header, returning the full value when no angle bracket
// is present.
func senderDisplayName(from string) string {
	if i := strings.Index(from, "<"); i >= 0 {
		return strings.TrimSpace(from[:i])
	}
	return strings.TrimSpace(from)
}
