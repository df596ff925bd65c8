package provider

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Provider Errors
// ---------------------------------------------------------------------------

var (
	ErrNotConfigured   = errors.New("provider: not configured")
	ErrNotConnected    = errors.New("provider: not connected")
	ErrUnavailable     = errors.New("provider: temporarily unavailable")
	ErrRequestFailed   = errors.New("provider: request failed")
	ErrInvalidResponse = errors.New("provider: invalid response")
	ErrAuthFailed      = errors.New("provider: authentication failed")
	ErrTokenExpired    = errors.New("provider: token expired")
	ErrRateLimited     = errors.New("provider: rate limited")
	ErrUnknownProvider = errors.New("provider: unknown provider code")
)

// ---------------------------------------------------------------------------
// Code identifies an external provider
// ---------------------------------------------------------------------------

// Code represents the type of external provider
type Code string

const (
	// CodeOutlook represents Microsoft Outlook (Graph API)
	CodeOutlook Code = "outlook"
	// CodeGmail represents Google Gmail
	CodeGmail Code = "gmail"
	// CodeZendesk represents Zendesk support
	CodeZendesk Code = "zendesk"
)

// IsValid returns true if the provider code is valid
func (c Code) IsValid() bool {
	switch c {
	case CodeOutlook, CodeGmail, CodeZendesk:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the provider
func (c Code) DisplayName() string {
	switch c {
	case CodeOutlook:
		return "Outlook"
	case CodeGmail:
		return "Gmail"
	case CodeZendesk:
		return "Zendesk"
	default:
		return string(c)
	}
}

// ---------------------------------------------------------------------------
// Raw item value objects
// ---------------------------------------------------------------------------

// RawEmail is one email as fetched from a provider, before normalization.
type RawEmail struct {
	// ID is the provider-native message identifier
	ID string
	// Subject is the message subject line
	Subject string
	// Preview is the provider-supplied body preview or snippet
	Preview string
	// Body is the message body when the provider exposes it (may equal Preview)
	Body string
	// SenderName is the display name of the sender
	SenderName string
	// SenderAddress is the sender's email address
	SenderAddress string
	// ReceivedAt is when the message was received
	ReceivedAt time.Time
	// Importance is the provider-native importance flag ("high", "normal",
	// empty when not exposed)
	Importance string
}

// RawEvent is one calendar event as fetched from a provider.
type RawEvent struct {
	// ID is the provider-native event identifier
	ID string
	// Subject is the event title
	Subject string
	// Location is the event location display name (may be empty)
	Location string
	// StartAt is the event start time
	StartAt time.Time
	// EndAt is the event end time
	EndAt time.Time
}

// RawTicket is one support ticket as fetched from a provider.
type RawTicket struct {
	// ID is the provider-native ticket identifier
	ID string
	// Subject is the ticket subject
	Subject string
	// Description is the ticket description text
	Description string
	// Status is the provider-native ticket status
	Status string
	// Priority is the provider-native priority (may be empty)
	Priority string
	// RequesterName is the display name of the requester
	RequesterName string
	// UpdatedAt is when the ticket was last updated
	UpdatedAt time.Time
}

// ---------------------------------------------------------------------------
// Client port interface
// ---------------------------------------------------------------------------

// Client defines the port interface for external briefing providers. It is
// defined in the domain layer; concrete adapters (Outlook, Gmail, Zendesk)
// live in the infrastructure layer. Every fetch must fail cleanly with an
// error rather than hang when credentials are missing; a capability the
// provider does not have (e.g. Zendesk calendars) returns an empty slice.
type Client interface {
	// Code returns the provider code this client handles
	Code() Code

	// IsConnected reports whether the client currently holds usable
	// credentials. It must not block on network retries.
	IsConnected(ctx context.Context) bool

	// FetchRecentEmails returns up to limit most recent emails
	FetchRecentEmails(ctx context.Context, limit int) ([]RawEmail, error)

	// FetchTodayEvents returns the calendar events for the current day
	FetchTodayEvents(ctx context.Context) ([]RawEvent, error)

	// FetchOpenTickets returns up to limit open tickets ordered by recency
	FetchOpenTickets(ctx context.Context, limit int) ([]RawTicket, error)
}

// Registry provides access to configured provider clients and decides which
// of them are worth querying for a given user before fan-out.
type Registry interface {
	// GetClient returns the client for the specified code
	GetClient(code Code) (Client, error)

	// ListClients returns all registered clients
	ListClients() []Client

	// ListConnected returns the clients enabled and connected for the user,
	// in deterministic registration order
	ListConnected(ctx context.Context, userID uuid.UUID) []Client
}
