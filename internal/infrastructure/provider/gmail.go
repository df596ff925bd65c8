package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/briefing/backend/internal/domain/provider"
)

// gmailInboxLabel restricts message listing to the inbox
const gmailInboxLabel = "INBOX"

// GmailConfig holds configuration for the Gmail API integration
type GmailConfig struct {
	// Endpoint overrides the Gmail API endpoint when set (used in tests)
	Endpoint string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
}

// NewGmailConfig creates a Gmail configuration with defaults
func NewGmailConfig() *GmailConfig {
	return &GmailConfig{
		Timeout: 10 * time.Second,
	}
}

// Validate validates the Gmail configuration
func (c *GmailConfig) Validate() error {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return nil
}

// GmailClient implements the provider.Client port for Gmail. Only the inbox
// is exposed; calendar and tickets are not Gmail capabilities. Messages are
// fetched in metadata format, so the snippet stands in for the body.
type GmailClient struct {
	config *GmailConfig
	tokens TokenSource
}

// NewGmailClient creates a Gmail client with the given configuration and
// token source.
func NewGmailClient(config *GmailConfig, tokens TokenSource) (*GmailClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &GmailClient{
		config: config,
		tokens: tokens,
	}, nil
}

// Code returns the provider code this client handles
func (c *GmailClient) Code() provider.Code {
	return provider.CodeGmail
}

// IsConnected reports whether a usable access token is available
func (c *GmailClient) IsConnected(ctx context.Context) bool {
	token, err := c.tokens.Token(ctx)
	return err == nil && token != ""
}

// ---------------------------------------------------------------------------
// Fetch Operations
// ---------------------------------------------------------------------------

// FetchRecentEmails lists the most recent inbox messages and fetches the
// From/Subject/Date headers plus snippet for each.
func (c *GmailClient) FetchRecentEmails(ctx context.Context, limit int) ([]provider.RawEmail, error) {
	if limit <= 0 {
		limit = defaultEmailLimit
	}

	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	list, err := svc.Users.Messages.List("me").
		MaxResults(int64(limit)).
		LabelIds(gmailInboxLabel).
		Context(ctx).Do()
	if err != nil {
		return nil, mapGoogleError(err)
	}

	emails := make([]provider.RawEmail, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).Do()
		if err != nil {
			return nil, mapGoogleError(err)
		}
		emails = append(emails, convertGmailMessage(msg))
	}
	return emails, nil
}

// FetchTodayEvents returns an empty list; calendar access is not wired for
// Gmail connections.
func (c *GmailClient) FetchTodayEvents(_ context.Context) ([]provider.RawEvent, error) {
	return []provider.RawEvent{}, nil
}

// FetchOpenTickets returns an empty list; Gmail has no ticketing capability
func (c *GmailClient) FetchOpenTickets(_ context.Context, _ int) ([]provider.RawTicket, error) {
	return []provider.RawTicket{}, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// service builds a Gmail service authenticated with the current token
func (c *GmailClient) service(ctx context.Context) (*gmail.Service, error) {
	if _, err := c.tokens.Token(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrNotConnected, err)
	}

	httpClient := oauth2.NewClient(ctx, NewOAuth2TokenSource(ctx, c.tokens))
	httpClient.Timeout = c.config.Timeout

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.config.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.config.Endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gmail service: %v", provider.ErrUnavailable, err)
	}
	return svc, nil
}

// convertGmailMessage maps a metadata-format Gmail message onto RawEmail.
// The From header combines display name and address; both forms are kept so
// normalization can split them later.
func convertGmailMessage(msg *gmail.Message) provider.RawEmail {
	email := provider.RawEmail{
		ID:      msg.Id,
		Preview: msg.Snippet,
		Body:    msg.Snippet,
	}

	if msg.Payload == nil {
		return email
	}
	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			email.Subject = h.Value
		case "From":
			email.SenderName = h.Value
			if addr, err := mail.ParseAddress(h.Value); err == nil {
				email.SenderAddress = addr.Address
			}
		case "Date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				email.ReceivedAt = t
			}
		}
	}
	return email
}

// mapGoogleError maps Google API errors onto the provider sentinel errors
func mapGoogleError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: HTTP %d", provider.ErrAuthFailed, apiErr.Code)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: HTTP %d", provider.ErrRateLimited, apiErr.Code)
		case apiErr.Code >= 400:
			return fmt.Errorf("%w: HTTP %d", provider.ErrRequestFailed, apiErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", provider.ErrUnavailable, err)
}

// Ensure GmailClient implements the provider.Client interface
var _ provider.Client = (*GmailClient)(nil)
