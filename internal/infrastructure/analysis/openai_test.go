package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefing/backend/internal/domain/briefing"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestOpenAIConfig_Validate(t *testing.T) {
	t.Run("valid config gets defaults", func(t *testing.T) {
		config := NewOpenAIConfig("sk-test")
		require.NoError(t, config.Validate())
		assert.Equal(t, OpenAIProductionAPIURL, config.BaseURL)
		assert.Equal(t, DefaultModel, config.Model)
		assert.Equal(t, briefing.MaxAnalysisBodyLength, config.MaxBodySize)
		assert.True(t, config.Timeout > 0)
	})

	t.Run("missing API key", func(t *testing.T) {
		config := &OpenAIConfig{}
		assert.ErrorIs(t, config.Validate(), ErrOpenAIConfigMissingAPIKey)
	})
}

// ---------------------------------------------------------------------------
// Analyzer Tests
// ---------------------------------------------------------------------------

func newTestAnalyzer(t *testing.T, handler http.HandlerFunc) *OpenAIAnalyzer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	analyzer, err := NewOpenAIAnalyzer(&OpenAIConfig{
		BaseURL: server.URL,
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	})
	require.NoError(t, err)
	return analyzer
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func testEmail() briefing.EmailContent {
	return briefing.EmailContent{
		Subject:    "Q3 Budget Review",
		Body:       "Please review the attached budget and confirm by Friday.",
		From:       "CFO",
		ReceivedAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		Importance: "high",
	}
}

func TestOpenAIAnalyzer_AnalyzeEmail(t *testing.T) {
	t.Run("successful analysis", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

			var req chatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o-mini", req.Model)
			assert.Equal(t, "json_object", req.ResponseFormat.Type)
			require.Len(t, req.Messages, 2)
			assert.Contains(t, req.Messages[1].Content, "Q3 Budget Review")
			assert.Contains(t, req.Messages[1].Content, "Importance: high")

			json.NewEncoder(w).Encode(completionResponse(
				`{"summary":"CFO asks for budget review by Friday.","priority":"high","needsResponse":true,"actionItems":["Review budget","Confirm by Friday"],"category":"request"}`,
			))
		})

		result, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		require.NoError(t, err)
		assert.Equal(t, "CFO asks for budget review by Friday.", result.Summary)
		assert.Equal(t, briefing.PriorityHigh, result.Priority)
		assert.True(t, result.NeedsResponse)
		assert.Equal(t, []string{"Review budget", "Confirm by Friday"}, result.ActionItems)
		assert.Equal(t, "request", result.Category)
	})

	t.Run("partial judgment is normalized", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(completionResponse(`{"needsResponse":false}`))
		})

		result, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		require.NoError(t, err)
		assert.Equal(t, "Q3 Budget Review", result.Summary)
		assert.Equal(t, briefing.PriorityMedium, result.Priority)
		assert.NotNil(t, result.ActionItems)
		assert.Equal(t, "general", result.Category)
	})

	t.Run("long body is truncated in prompt", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			var req chatCompletionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Contains(t, req.Messages[1].Content, briefing.TruncationMarker)
			assert.NotContains(t, req.Messages[1].Content, "TAIL-SENTINEL")

			json.NewEncoder(w).Encode(completionResponse(`{"summary":"ok","priority":"low"}`))
		})

		email := testEmail()
		email.Body = strings.Repeat("x", briefing.MaxAnalysisBodyLength+50) + "TAIL-SENTINEL"
		_, err := analyzer.AnalyzeEmail(context.Background(), email)
		require.NoError(t, err)
	})

	t.Run("HTTP error", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrOpenAIRequestFailed)
	})

	t.Run("API error payload", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "quota exceeded", "type": "insufficient_quota"},
			})
		})

		_, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrOpenAIRequestFailed)
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("empty choices", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		})

		_, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrOpenAIInvalidResponse)
	})

	t.Run("completion is not JSON", func(t *testing.T) {
		analyzer := newTestAnalyzer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(completionResponse("Sure! Here is the analysis you asked for."))
		})

		_, err := analyzer.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrOpenAIInvalidResponse)
	})

	t.Run("connection refused", func(t *testing.T) {
		analyzer, err := NewOpenAIAnalyzer(&OpenAIConfig{
			BaseURL: "http://127.0.0.1:1",
			APIKey:  "sk-test",
			Timeout: time.Second,
		})
		require.NoError(t, err)

		_, err = analyzer.AnalyzeEmail(context.Background(), testEmail())
		assert.ErrorIs(t, err, ErrOpenAIUnavailable)
	})
}
