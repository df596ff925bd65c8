package briefing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefing/backend/internal/domain/provider"
)

func TestNormalizeEmail(t *testing.T) {
	received := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)

	t.Run("outlook high importance", func(t *testing.T) {
		entry, err := NormalizeEmail(provider.CodeOutlook, provider.RawEmail{
			ID:            "msg-1",
			Subject:       "Board meeting agenda",
			Preview:       "Attached is the agenda for...",
			SenderName:    "Pat Jones",
			SenderAddress: "pat@example.edu",
			ReceivedAt:    received,
			Importance:    "high",
		})

		require.NoError(t, err)
		assert.Equal(t, KindEmail, entry.Kind)
		assert.Equal(t, PriorityHigh, entry.Priority)
		assert.Equal(t, "outlook", entry.Source)
		assert.Equal(t, "Board meeting agenda", entry.Title)
		assert.Equal(t, "Attached is the agenda for...", entry.Summary)
		assert.Equal(t, "Pat Jones", entry.Sender)
		assert.Equal(t, received, entry.Timestamp)
		assert.Equal(t, "msg-1", entry.Metadata["id"])
		assert.Equal(t, "pat@example.edu", entry.Metadata["from"])
	})

	t.Run("outlook normal importance is medium", func(t *testing.T) {
		entry, err := NormalizeEmail(provider.CodeOutlook, provider.RawEmail{
			Subject:    "Minutes",
			ReceivedAt: received,
			Importance: "normal",
		})
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, entry.Priority)
	})

	t.Run("gmail combined from header", func(t *testing.T) {
		entry, err := NormalizeEmail(provider.CodeGmail, provider.RawEmail{
			Subject:    "Enrollment numbers",
			SenderName: "Casey Lee <casey@example.com>",
			ReceivedAt: received,
		})
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, entry.Priority)
		assert.Equal(t, "gmail", entry.Source)
		assert.Equal(t, "Casey Lee", entry.Sender)
	})

	t.Run("missing subject gets placeholder", func(t *testing.T) {
		entry, err := NormalizeEmail(provider.CodeGmail, provider.RawEmail{ReceivedAt: received})
		require.NoError(t, err)
		assert.Equal(t, NoSubjectPlaceholder, entry.Title)
	})

	t.Run("missing timestamp excluded", func(t *testing.T) {
		_, err := NormalizeEmail(provider.CodeOutlook, provider.RawEmail{Subject: "x"})
		assert.ErrorIs(t, err, ErrNoTimestamp)
	})
}

func TestNormalizeEvent(t *testing.T) {
	start := time.Date(2025, 3, 4, 14, 0, 0, 0, time.UTC)

	t.Run("maps fields and duration", func(t *testing.T) {
		entry, err := NormalizeEvent(provider.CodeOutlook, provider.RawEvent{
			ID:       "ev-1",
			Subject:  "Budget review",
			Location: "Room 204",
			StartAt:  start,
			EndAt:    start.Add(90 * time.Minute),
		})

		require.NoError(t, err)
		assert.Equal(t, KindCalendar, entry.Kind)
		assert.Equal(t, PriorityMedium, entry.Priority)
		assert.Equal(t, "Room 204", entry.Summary)
		assert.Equal(t, "1h 30m", entry.DurationLabel)
		assert.Equal(t, start, entry.Timestamp)
	})

	t.Run("missing location gets placeholder", func(t *testing.T) {
		entry, err := NormalizeEvent(provider.CodeOutlook, provider.RawEvent{
			Subject: "1:1",
			StartAt: start,
			EndAt:   start.Add(30 * time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, NoLocationPlaceholder, entry.Summary)
	})

	t.Run("missing start excluded", func(t *testing.T) {
		_, err := NormalizeEvent(provider.CodeOutlook, provider.RawEvent{Subject: "x"})
		assert.ErrorIs(t, err, ErrNoTimestamp)
	})
}

func TestNormalizeTicket(t *testing.T) {
	updated := time.Date(2025, 3, 4, 8, 15, 0, 0, time.UTC)

	t.Run("maps fields with provider priority", func(t *testing.T) {
		entry, err := NormalizeTicket(provider.CodeZendesk, provider.RawTicket{
			ID:            "8841",
			Subject:       "Cannot log in to portal",
			Description:   "User reports login failure since Monday.",
			Status:        "open",
			Priority:      "urgent",
			RequesterName: "Sam Fields",
			UpdatedAt:     updated,
		})

		require.NoError(t, err)
		assert.Equal(t, KindTicket, entry.Kind)
		assert.Equal(t, PriorityHigh, entry.Priority)
		assert.Equal(t, "zendesk", entry.Source)
		assert.Equal(t, "Sam Fields", entry.Sender)
		assert.Equal(t, updated, entry.Timestamp)
		assert.Equal(t, "open", entry.Metadata["status"])
	})

	t.Run("empty priority defaults to medium", func(t *testing.T) {
		entry, err := NormalizeTicket(provider.CodeZendesk, provider.RawTicket{
			Subject:   "Printer jam",
			UpdatedAt: updated,
		})
		require.NoError(t, err)
		assert.Equal(t, PriorityMedium, entry.Priority)
	})

	t.Run("missing updated time excluded", func(t *testing.T) {
		_, err := NormalizeTicket(provider.CodeZendesk, provider.RawTicket{Subject: "x"})
		assert.ErrorIs(t, err, ErrNoTimestamp)
	})
}
