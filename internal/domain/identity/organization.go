package identity

import (
	"strings"
	"time"

	"github.com/briefing/backend/internal/domain/shared"
)

// OrgStatus represents the status of an organization
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusInactive  OrgStatus = "inactive"
	OrgStatusSuspended OrgStatus = "suspended"
)

// OrgSettings holds configurable settings for an organization
type OrgSettings struct {
	Timezone         string `json:"timezone"`
	EmailFetchLimit  int    `json:"email_fetch_limit"`
	TicketFetchLimit int    `json:"ticket_fetch_limit"`
	AnalysisEnabled  bool   `json:"analysis_enabled"`
	MaxUsers         int    `json:"max_users"`
}

// DefaultOrgSettings returns the default settings for a new organization
func DefaultOrgSettings() OrgSettings {
	return OrgSettings{
		Timezone:         "UTC",
		EmailFetchLimit:  10,
		TicketFetchLimit: 10,
		AnalysisEnabled:  true,
		MaxUsers:         50,
	}
}

// Organization represents a customer organization. Users, provider
// connections and audit records are all scoped to an organization.
type Organization struct {
	shared.BaseAggregateRoot
	Name     string      `gorm:"type:varchar(200);not null"`
	Domain   string      `gorm:"type:varchar(200);uniqueIndex"` // Email domain used to match new users
	Status   OrgStatus   `gorm:"type:varchar(20);not null;default:'active'"`
	LogoURL  string      `gorm:"type:varchar(500)"`
	Settings OrgSettings `gorm:"embedded;embeddedPrefix:settings_"`
	Notes    string      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates a new organization with required fields
func NewOrganization(name, domain string) (*Organization, error) {
	if err := validateOrgName(name); err != nil {
		return nil, err
	}
	if err := validateOrgDomain(domain); err != nil {
		return nil, err
	}

	return &Organization{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Domain:            strings.ToLower(strings.TrimSpace(domain)),
		Status:            OrgStatusActive,
		Settings:          DefaultOrgSettings(),
	}, nil
}

// Rename updates the organization name
func (o *Organization) Rename(name string) error {
	if err := validateOrgName(name); err != nil {
		return err
	}
	o.Name = strings.TrimSpace(name)
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// SetDomain updates the email domain used to match new users
func (o *Organization) SetDomain(domain string) error {
	if err := validateOrgDomain(domain); err != nil {
		return err
	}
	o.Domain = strings.ToLower(strings.TrimSpace(domain))
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// SetLogoURL sets the organization's logo URL
func (o *Organization) SetLogoURL(url string) error {
	if url != "" && len(url) > 500 {
		return shared.NewDomainError("INVALID_URL", "Logo URL cannot exceed 500 characters")
	}
	o.LogoURL = url
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// SetNotes sets the organization's notes
func (o *Organization) SetNotes(notes string) {
	o.Notes = notes
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// UpdateSettings replaces the organization settings
func (o *Organization) UpdateSettings(settings OrgSettings) error {
	if settings.EmailFetchLimit < 0 {
		return shared.NewDomainError("INVALID_FETCH_LIMIT", "Email fetch limit cannot be negative")
	}
	if settings.TicketFetchLimit < 0 {
		return shared.NewDomainError("INVALID_FETCH_LIMIT", "Ticket fetch limit cannot be negative")
	}
	if settings.MaxUsers < 0 {
		return shared.NewDomainError("INVALID_MAX_USERS", "Max users cannot be negative")
	}
	if settings.Timezone != "" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return shared.NewDomainError("INVALID_TIMEZONE", "Unknown timezone")
		}
	}

	o.Settings = settings
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// Activate activates the organization
func (o *Organization) Activate() error {
	if o.Status == OrgStatusActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Organization is already active")
	}
	o.Status = OrgStatusActive
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// Deactivate deactivates the organization
func (o *Organization) Deactivate() error {
	if o.Status == OrgStatusInactive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Organization is already inactive")
	}
	o.Status = OrgStatusInactive
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// Suspend suspends the organization; suspended organizations cannot log in
func (o *Organization) Suspend() error {
	if o.Status == OrgStatusSuspended {
		return shared.NewDomainError("ALREADY_SUSPENDED", "Organization is already suspended")
	}
	o.Status = OrgStatusSuspended
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
	return nil
}

// IsActive returns true if the organization is active
func (o *Organization) IsActive() bool {
	return o.Status == OrgStatusActive
}

// IsSuspended returns true if the organization is suspended
func (o *Organization) IsSuspended() bool {
	return o.Status == OrgStatusSuspended
}

// MatchesEmailDomain reports whether the email address belongs to the
// organization's domain.
func (o *Organization) MatchesEmailDomain(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || o.Domain == "" {
		return false
	}
	return strings.EqualFold(email[at+1:], o.Domain)
}

// CanAddUser returns true if the organization can add more users
func (o *Organization) CanAddUser(currentUserCount int) bool {
	if o.Settings.MaxUsers == 0 {
		return true
	}
	return currentUserCount < o.Settings.MaxUsers
}

func validateOrgName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Organization name cannot exceed 200 characters")
	}
	return nil
}

func validateOrgDomain(domain string) error {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return shared.NewDomainError("INVALID_DOMAIN", "Organization domain cannot be empty")
	}
	if len(domain) > 200 {
		return shared.NewDomainError("INVALID_DOMAIN", "Organization domain cannot exceed 200 characters")
	}
	if strings.ContainsAny(domain, "@ \t") || !strings.Contains(domain, ".") {
		return shared.NewDomainError("INVALID_DOMAIN", "Organization domain must be a bare domain like example.com")
	}
	return nil
}
