package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/briefing/backend/internal/domain/provider"
)

// OutlookProductionAPIURL is the Microsoft Graph production endpoint
const OutlookProductionAPIURL = "https://graph.microsoft.com/v1.0"

// defaultEmailLimit is used when the caller passes a non-positive limit
const defaultEmailLimit = 10

// OutlookConfig holds configuration for the Microsoft Graph integration
type OutlookConfig struct {
	// BaseURL is the Graph API base URL
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// ErrOutlookConfigMissingBaseURL indicates an empty Graph base URL
var ErrOutlookConfigMissingBaseURL = errors.New("outlook: base URL is required")

// NewOutlookConfig creates an Outlook configuration with defaults
func NewOutlookConfig() *OutlookConfig {
	return &OutlookConfig{
		BaseURL: OutlookProductionAPIURL,
		Timeout: 10 * time.Second,
	}
}

// Validate validates the Outlook configuration
func (c *OutlookConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrOutlookConfigMissingBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}

// OutlookClient implements the provider.Client port for Microsoft Outlook
// via the Graph API. Emails and calendar events are supported; tickets are
// not an Outlook capability.
type OutlookClient struct {
	config     *OutlookConfig
	tokens     TokenSource
	httpClient *http.Client
}

// NewOutlookClient creates an Outlook client with the given configuration
// and token source.
func NewOutlookClient(config *OutlookConfig, tokens TokenSource) (*OutlookClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &OutlookClient{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Code returns the provider code this client handles
func (c *OutlookClient) Code() provider.Code {
	return provider.CodeOutlook
}

// IsConnected reports whether a usable access token is available
func (c *OutlookClient) IsConnected(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

// ---------------------------------------------------------------------------
// Graph response types
// ---------------------------------------------------------------------------

type graphListResponse[T any] struct {
	Value []T `json:"value"`
}

type graphMessage struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	BodyPreview string `json:"bodyPreview"`
	From        struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
	Importance       string    `json:"importance"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type graphEvent struct {
	ID       string        `json:"id"`
	Subject  string        `json:"subject"`
	Start    graphDateTime `json:"start"`
	End      graphDateTime `json:"end"`
	Location struct {
		DisplayName string `json:"displayName"`
	} `json:"location"`
}

// ---------------------------------------------------------------------------
// Fetch Operations
// ---------------------------------------------------------------------------

// FetchRecentEmails returns the most recent inbox messages, newest first
func (c *OutlookClient) FetchRecentEmails(ctx context.Context, limit int) ([]provider.RawEmail, error) {
	if limit <= 0 {
		limit = defaultEmailLimit
	}

	query := url.Values{}
	query.Set("$select", "id,subject,bodyPreview,from,receivedDateTime,importance")
	query.Set("$orderby", "receivedDateTime DESC")
	query.Set("$top", strconv.Itoa(limit))

	body, err := c.doGet(ctx, "/me/messages", query)
	if err != nil {
		return nil, err
	}

	var resp graphListResponse[graphMessage]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: outlook messages: %v", provider.ErrInvalidResponse, err)
	}

	emails := make([]provider.RawEmail, 0, len(resp.Value))
	for _, m := range resp.Value {
		emails = append(emails, provider.RawEmail{
			ID:            m.ID,
			Subject:       m.Subject,
			Preview:       m.BodyPreview,
			Body:          m.BodyPreview,
			SenderName:    m.From.EmailAddress.Name,
			SenderAddress: m.From.EmailAddress.Address,
			ReceivedAt:    m.ReceivedDateTime,
			Importance:    m.Importance,
		})
	}
	return emails, nil
}

// FetchTodayEvents returns the calendar events between the start and end of
// the current day, ordered by start time.
func (c *OutlookClient) FetchTodayEvents(ctx context.Context) ([]provider.RawEvent, error) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	query := url.Values{}
	query.Set("startDateTime", startOfDay.Format(time.RFC3339))
	query.Set("endDateTime", endOfDay.Format(time.RFC3339))
	query.Set("$select", "id,subject,start,end,location")
	query.Set("$orderby", "start/dateTime")

	body, err := c.doGet(ctx, "/me/calendarview", query)
	if err != nil {
		return nil, err
	}

	var resp graphListResponse[graphEvent]
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: outlook calendar: %v", provider.ErrInvalidResponse, err)
	}

	events := make([]provider.RawEvent, 0, len(resp.Value))
	for _, ev := range resp.Value {
		startAt, err := parseGraphTime(ev.Start)
		if err != nil {
			continue
		}
		endAt, _ := parseGraphTime(ev.End)

		events = append(events, provider.RawEvent{
			ID:       ev.ID,
			Subject:  ev.Subject,
			Location: ev.Location.DisplayName,
			StartAt:  startAt,
			EndAt:    endAt,
		})
	}
	return events, nil
}

// FetchOpenTickets returns an empty list; Outlook has no ticketing capability
func (c *OutlookClient) FetchOpenTickets(_ context.Context, _ int) ([]provider.RawTicket, error) {
	return []provider.RawTicket{}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET against the Graph API
func (c *OutlookClient) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrNotConnected, err)
	}

	reqURL := c.config.BaseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("outlook: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return doRequest(c.httpClient, req)
}

// parseGraphTime parses a Graph date-time pair. Graph omits the UTC offset
// from dateTime and carries the zone separately in timeZone.
func parseGraphTime(v graphDateTime) (time.Time, error) {
	if v.DateTime == "" {
		return time.Time{}, provider.ErrInvalidResponse
	}
	if t, err := time.Parse(time.RFC3339, v.DateTime); err == nil {
		return t, nil
	}

	loc := time.UTC
	if v.TimeZone != "" {
		if l, err := time.LoadLocation(v.TimeZone); err == nil {
			loc = l
		}
	}

	// Trim fractional seconds (Graph uses 7 digits, e.g. "...T09:00:00.0000000")
	value := v.DateTime
	if len(value) > 19 {
		value = value[:19]
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, loc)
}

// Ensure OutlookClient implements the provider.Client interface
var _ provider.Client = (*OutlookClient)(nil)
