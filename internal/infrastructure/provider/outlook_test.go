package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briefing/backend/internal/domain/provider"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestOutlookConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		config := NewOutlookConfig()
		require.NoError(t, config.Validate())
		assert.Equal(t, OutlookProductionAPIURL, config.BaseURL)
		assert.True(t, config.Timeout > 0)
	})

	t.Run("missing base URL", func(t *testing.T) {
		config := &OutlookConfig{}
		assert.ErrorIs(t, config.Validate(), ErrOutlookConfigMissingBaseURL)
	})

	t.Run("zero timeout gets default", func(t *testing.T) {
		config := &OutlookConfig{BaseURL: "https://example.com"}
		require.NoError(t, config.Validate())
		assert.Equal(t, 10*time.Second, config.Timeout)
	})
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

func newTestOutlookClient(t *testing.T, handler http.HandlerFunc) (*OutlookClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewOutlookClient(&OutlookConfig{BaseURL: server.URL}, NewStaticTokenSource("test_token"))
	require.NoError(t, err)
	return client, server
}

func TestOutlookClient_Code(t *testing.T) {
	client, err := NewOutlookClient(NewOutlookConfig(), NewStaticTokenSource("token"))
	require.NoError(t, err)
	assert.Equal(t, provider.CodeOutlook, client.Code())
}

func TestOutlookClient_IsConnected(t *testing.T) {
	t.Run("with token", func(t *testing.T) {
		client, err := NewOutlookClient(NewOutlookConfig(), NewStaticTokenSource("token"))
		require.NoError(t, err)
		assert.True(t, client.IsConnected(context.Background()))
	})

	t.Run("without token", func(t *testing.T) {
		client, err := NewOutlookClient(NewOutlookConfig(), NewStaticTokenSource(""))
		require.NoError(t, err)
		assert.False(t, client.IsConnected(context.Background()))
	})
}

func TestOutlookClient_FetchRecentEmails(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		received := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/me/messages", r.URL.Path)
			assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))
			assert.Equal(t, "5", r.URL.Query().Get("$top"))
			assert.Equal(t, "receivedDateTime DESC", r.URL.Query().Get("$orderby"))

			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{
					{
						"id":          "msg-1",
						"subject":     "Q3 Budget Review",
						"bodyPreview": "Please review the attached budget",
						"from": map[string]any{
							"emailAddress": map[string]any{
								"name":    "Jane Doe",
								"address": "jane@acme.com",
							},
						},
						"receivedDateTime": received.Format(time.RFC3339),
						"importance":       "high",
					},
				},
			})
		})

		emails, err := client.FetchRecentEmails(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, emails, 1)
		assert.Equal(t, "msg-1", emails[0].ID)
		assert.Equal(t, "Q3 Budget Review", emails[0].Subject)
		assert.Equal(t, "Jane Doe", emails[0].SenderName)
		assert.Equal(t, "jane@acme.com", emails[0].SenderAddress)
		assert.Equal(t, "high", emails[0].Importance)
		assert.True(t, emails[0].ReceivedAt.Equal(received))
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "10", r.URL.Query().Get("$top"))
			json.NewEncoder(w).Encode(map[string]any{"value": []map[string]any{}})
		})

		emails, err := client.FetchRecentEmails(context.Background(), 0)
		require.NoError(t, err)
		assert.Empty(t, emails)
	})

	t.Run("auth failure", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		_, err := client.FetchRecentEmails(context.Background(), 5)
		assert.ErrorIs(t, err, provider.ErrAuthFailed)
	})

	t.Run("rate limited", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := client.FetchRecentEmails(context.Background(), 5)
		assert.ErrorIs(t, err, provider.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		_, err := client.FetchRecentEmails(context.Background(), 5)
		assert.ErrorIs(t, err, provider.ErrRequestFailed)
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})

		_, err := client.FetchRecentEmails(context.Background(), 5)
		assert.ErrorIs(t, err, provider.ErrInvalidResponse)
	})

	t.Run("missing token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("request should not reach the server without a token")
		}))
		defer server.Close()

		client, err := NewOutlookClient(&OutlookConfig{BaseURL: server.URL}, NewStaticTokenSource(""))
		require.NoError(t, err)

		_, err = client.FetchRecentEmails(context.Background(), 5)
		assert.ErrorIs(t, err, provider.ErrNotConnected)
	})
}

func TestOutlookClient_FetchTodayEvents(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/me/calendarview", r.URL.Path)
			assert.NotEmpty(t, r.URL.Query().Get("startDateTime"))
			assert.NotEmpty(t, r.URL.Query().Get("endDateTime"))
			assert.Equal(t, "start/dateTime", r.URL.Query().Get("$orderby"))

			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{
					{
						"id":      "evt-1",
						"subject": "Board Meeting",
						"start":   map[string]any{"dateTime": "2026-03-10T14:00:00.0000000", "timeZone": "UTC"},
						"end":     map[string]any{"dateTime": "2026-03-10T15:30:00.0000000", "timeZone": "UTC"},
						"location": map[string]any{
							"displayName": "Conference Room A",
						},
					},
				},
			})
		})

		events, err := client.FetchTodayEvents(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt-1", events[0].ID)
		assert.Equal(t, "Board Meeting", events[0].Subject)
		assert.Equal(t, "Conference Room A", events[0].Location)
		assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), events[0].StartAt.UTC())
		assert.Equal(t, time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC), events[0].EndAt.UTC())
	})

	t.Run("events without start time are skipped", func(t *testing.T) {
		client, _ := newTestOutlookClient(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"value": []map[string]any{
					{"id": "evt-broken", "subject": "No Start"},
					{
						"id":      "evt-ok",
						"subject": "Standup",
						"start":   map[string]any{"dateTime": "2026-03-10T09:00:00", "timeZone": "UTC"},
						"end":     map[string]any{"dateTime": "2026-03-10T09:15:00", "timeZone": "UTC"},
					},
				},
			})
		})

		events, err := client.FetchTodayEvents(context.Background())
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, "evt-ok", events[0].ID)
	})
}

func TestOutlookClient_FetchOpenTickets(t *testing.T) {
	client, err := NewOutlookClient(NewOutlookConfig(), NewStaticTokenSource("token"))
	require.NoError(t, err)

	tickets, err := client.FetchOpenTickets(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestParseGraphTime(t *testing.T) {
	tests := []struct {
		name    string
		input   graphDateTime
		want    time.Time
		wantErr bool
	}{
		{
			name:  "graph format with fractional seconds",
			input: graphDateTime{DateTime: "2026-03-10T14:00:00.0000000", TimeZone: "UTC"},
			want:  time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			name:  "RFC3339",
			input: graphDateTime{DateTime: "2026-03-10T14:00:00Z"},
			want:  time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			name:    "empty",
			input:   graphDateTime{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGraphTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}
