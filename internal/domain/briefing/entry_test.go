package briefing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryApplyAnalysis(t *testing.T) {
	entry := Entry{
		Kind:     KindEmail,
		Priority: PriorityMedium,
		Source:   "outlook",
		Title:    "Budget review",
		Summary:  "Raw preview text",
	}

	entry.ApplyAnalysis(Analysis{
		Summary:       "Budget review needs sign-off by Friday",
		Priority:      PriorityHigh,
		NeedsResponse: true,
		ActionItems:   []string{"Approve budget"},
		Category:      "finance",
	})

	assert.Equal(t, PriorityHigh, entry.Priority)
	assert.Equal(t, "Budget review needs sign-off by Friday", entry.Summary)
	assert.True(t, entry.NeedsResponse)
	assert.Equal(t, []string{"Approve budget"}, entry.ActionItems)
	assert.Equal(t, "finance", entry.Category)
	assert.True(t, entry.AIAnalyzed)
}

func TestEntryJSONKeepsAnalysisFields(t *testing.T) {
	entry := Entry{
		Kind:      KindEmail,
		Priority:  PriorityLow,
		Source:    "gmail",
		Title:     "Newsletter",
		Summary:   "Monthly digest",
		Timestamp: time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC),
	}
	entry.ApplyAnalysis(Analysis{
		Summary:     "Monthly digest, no action needed",
		Priority:    PriorityLow,
		ActionItems: []string{},
		Category:    "general",
	})

	raw, err := json.Marshal(entry)
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, `"action_items":[]`)
	assert.Contains(t, body, `"needs_response":false`)
	assert.Contains(t, body, `"category":"general"`)
	assert.Contains(t, body, `"ai_analyzed":true`)
}
