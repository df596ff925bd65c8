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

// defaultTicketLimit is used when the caller passes a non-positive limit
const defaultTicketLimit = 10

// ZendeskConfig holds configuration for the Zendesk API integration
type ZendeskConfig struct {
	// Subdomain is the Zendesk account subdomain ({subdomain}.zendesk.com)
	Subdomain string
	// BaseURL overrides the derived API base URL when set (used in tests)
	BaseURL string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// ErrZendeskConfigMissingSubdomain indicates neither subdomain nor base URL is set
var ErrZendeskConfigMissingSubdomain = errors.New("zendesk: subdomain is required")

// NewZendeskConfig creates a Zendesk configuration with defaults
func NewZendeskConfig(subdomain string) *ZendeskConfig {
	return &ZendeskConfig{
		Subdomain: subdomain,
		Timeout:   10 * time.Second,
	}
}

// Validate validates the Zendesk configuration and derives the base URL
func (c *ZendeskConfig) Validate() error {
	if c.BaseURL == "" {
		if c.Subdomain == "" {
			return ErrZendeskConfigMissingSubdomain
		}
		c.BaseURL = fmt.Sprintf("https://%s.zendesk.com/api/v2", c.Subdomain)
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}

// ZendeskClient implements the provider.Client port for Zendesk support
// tickets. Zendesk has no email or calendar capability.
type ZendeskClient struct {
	config     *ZendeskConfig
	tokens     TokenSource
	httpClient *http.Client
}

// NewZendeskClient creates a Zendesk client with the given configuration
// and token source.
func NewZendeskClient(config *ZendeskConfig, tokens TokenSource) (*ZendeskClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &ZendeskClient{
		config: config,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Code returns the provider code this client handles
func (c *ZendeskClient) Code() provider.Code {
	return provider.CodeZendesk
}

// IsConnected reports whether a usable API token is available
func (c *ZendeskClient) IsConnected(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

// ---------------------------------------------------------------------------
// Zendesk response types
// ---------------------------------------------------------------------------

type zendeskTicket struct {
	ID          int64     `json:"id"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	RequesterID int64     `json:"requester_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type zendeskUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type zendeskTicketListResponse struct {
	Tickets []zendeskTicket `json:"tickets"`
	Users   []zendeskUser   `json:"users"`
}

// ---------------------------------------------------------------------------
// Fetch Operations
// ---------------------------------------------------------------------------

// FetchRecentEmails returns an empty list; Zendesk has no mailbox capability
func (c *ZendeskClient) FetchRecentEmails(_ context.Context, _ int) ([]provider.RawEmail, error) {
	return []provider.RawEmail{}, nil
}

// FetchTodayEvents returns an empty list; Zendesk has no calendar capability
func (c *ZendeskClient) FetchTodayEvents(_ context.Context) ([]provider.RawEvent, error) {
	return []provider.RawEvent{}, nil
}

// FetchOpenTickets returns the most recently updated tickets that are still
// open. Requester users are sideloaded so entries carry a display name
// instead of a numeric ID.
func (c *ZendeskClient) FetchOpenTickets(ctx context.Context, limit int) ([]provider.RawTicket, error) {
	if limit <= 0 {
		limit = defaultTicketLimit
	}

	query := url.Values{}
	query.Set("sort_by", "updated_at")
	query.Set("sort_order", "desc")
	query.Set("per_page", strconv.Itoa(limit))
	query.Set("include", "users")

	body, err := c.doGet(ctx, "/tickets.json", query)
	if err != nil {
		return nil, err
	}

	var resp zendeskTicketListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: zendesk tickets: %v", provider.ErrInvalidResponse, err)
	}

	requesters := make(map[int64]string, len(resp.Users))
	for _, u := range resp.Users {
		requesters[u.ID] = u.Name
	}

	tickets := make([]provider.RawTicket, 0, len(resp.Tickets))
	for _, t := range resp.Tickets {
		if t.Status == "solved" || t.Status == "closed" {
			continue
		}

		requester := requesters[t.RequesterID]
		if requester == "" && t.RequesterID != 0 {
			requester = fmt.Sprintf("Requester #%d", t.RequesterID)
		}

		tickets = append(tickets, provider.RawTicket{
			ID:            strconv.FormatInt(t.ID, 10),
			Subject:       t.Subject,
			Description:   t.Description,
			Status:        t.Status,
			Priority:      t.Priority,
			RequesterName: requester,
			UpdatedAt:     t.UpdatedAt,
		})
	}
	return tickets, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doGet performs an authenticated GET against the Zendesk API
func (c *ZendeskClient) doGet(ctx context.Context, path string, query url.Values) ([]byte, error) {
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
		return nil, fmt.Errorf("zendesk: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	return doRequest(c.httpClient, req)
}

// Ensure ZendeskClient implements the provider.Client interface
var _ provider.Client = (*ZendeskClient)(nil)
