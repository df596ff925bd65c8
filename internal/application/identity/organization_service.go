package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appaudit "github.com/briefing/backend/internal/application/audit"
	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/identity"
	"github.com/briefing/backend/internal/domain/shared"
)

// OrganizationService handles organization management operations
type OrganizationService struct {
	orgRepo identity.OrganizationRepository
	audits  *appaudit.Service
	logger  *zap.Logger
}

// NewOrganizationService creates a new organization service. audits is
// optional.
func NewOrganizationService(
	orgRepo identity.OrganizationRepository,
	audits *appaudit.Service,
	logger *zap.Logger,
) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{
		orgRepo: orgRepo,
		audits:  audits,
		logger:  logger,
	}
}

// CreateOrganizationInput contains input for creating an organization
type CreateOrganizationInput struct {
	Name    string
	Domain  string
	LogoURL string
	Notes   string
	Actor   Actor
}

// UpdateOrganizationInput contains input for updating an organization
type UpdateOrganizationInput struct {
	ID      uuid.UUID
	Name    *string
	Domain  *string
	LogoURL *string
	Notes   *string
	Actor   Actor
}

// OrgSettingsInput contains input for updating organization settings
type OrgSettingsInput struct {
	Timezone         *string
	EmailFetchLimit  *int
	TicketFetchLimit *int
	AnalysisEnabled  *bool
	MaxUsers         *int
}

// OrganizationDTO represents organization data transfer object
type OrganizationDTO struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	Status    string          `json:"status"`
	LogoURL   string          `json:"logo_url,omitempty"`
	Settings  OrgSettingsDTO  `json:"settings"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrgSettingsDTO represents organization settings
type OrgSettingsDTO struct {
	Timezone         string `json:"timezone"`
	EmailFetchLimit  int    `json:"email_fetch_limit"`
	TicketFetchLimit int    `json:"ticket_fetch_limit"`
	AnalysisEnabled  bool   `json:"analysis_enabled"`
	MaxUsers         int    `json:"max_users"`
}

// OrganizationFilter represents filter for querying organizations
type OrganizationFilter struct {
	Page     int
	PageSize int
	SortBy   string
	SortDir  string
	Keyword  string
	Status   string
}

// ToSharedFilter converts OrganizationFilter to shared.Filter
func (f OrganizationFilter) ToSharedFilter() shared.Filter {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return shared.Filter{
		Page:     page,
		PageSize: pageSize,
		OrderBy:  f.SortBy,
		OrderDir: f.SortDir,
		Search:   f.Keyword,
	}
}

// OrganizationListResult represents paginated organization list result
type OrganizationListResult struct {
	Organizations []OrganizationDTO `json:"organizations"`
	Total         int64             `json:"total"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	TotalPages    int               `json:"total_pages"`
}

// OrganizationStatsDTO represents organization statistics
type OrganizationStatsDTO struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Inactive  int64 `json:"inactive"`
	Suspended int64 `json:"suspended"`
}

// Create creates a new organization
func (s *OrganizationService) Create(ctx context.Context, input CreateOrganizationInput) (*OrganizationDTO, error) {
	s.logger.Info("Creating new organization",
		zap.String("name", input.Name),
		zap.String("domain", input.Domain))

	exists, err := s.orgRepo.ExistsByDomain(ctx, input.Domain)
	if err != nil {
		s.logger.Error("Failed to check domain existence", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
	}
	if exists {
		return nil, shared.NewDomainError("DOMAIN_EXISTS", "Domain already exists")
	}

	org, err := identity.NewOrganization(input.Name, input.Domain)
	if err != nil {
		return nil, err
	}

	if input.LogoURL != "" {
		if err := org.SetLogoURL(input.LogoURL); err != nil {
			return nil, err
		}
	}
	if input.Notes != "" {
		org.SetNotes(input.Notes)
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to create organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create organization")
	}

	s.record(ctx, input.Actor, org.ID, audit.ActionOrgCreated, "Created organization "+org.Name)

	s.logger.Info("Organization created successfully",
		zap.String("org_id", org.ID.String()),
		zap.String("domain", org.Domain))

	return toOrganizationDTO(org), nil
}

// GetByID retrieves an organization by ID
func (s *OrganizationService) GetByID(ctx context.Context, id uuid.UUID) (*OrganizationDTO, error) {
	org, err := s.findOrg(ctx, id)
	if err != nil {
		return nil, err
	}
	return toOrganizationDTO(org), nil
}

// GetByDomain retrieves an organization by email domain
func (s *OrganizationService) GetByDomain(ctx context.Context, domain string) (*OrganizationDTO, error) {
	org, err := s.orgRepo.FindByDomain(ctx, domain)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
		}
		s.logger.Error("Failed to find organization by domain", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find organization")
	}
	return toOrganizationDTO(org), nil
}

// List retrieves a paginated list of organizations
func (s *OrganizationService) List(ctx context.Context, filter OrganizationFilter) (*OrganizationListResult, error) {
	sharedFilter := filter.ToSharedFilter()

	var orgs []identity.Organization
	var err error

	if filter.Status != "" {
		orgs, err = s.orgRepo.FindByStatus(ctx, identity.OrgStatus(filter.Status), sharedFilter)
	} else {
		orgs, err = s.orgRepo.FindAll(ctx, sharedFilter)
	}
	if err != nil {
		s.logger.Error("Failed to list organizations", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list organizations")
	}

	total, err := s.orgRepo.Count(ctx, sharedFilter)
	if err != nil {
		s.logger.Error("Failed to count organizations", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to count organizations")
	}

	pageSize := sharedFilter.PageSize
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	dtos := make([]OrganizationDTO, len(orgs))
	for i := range orgs {
		dtos[i] = *toOrganizationDTO(&orgs[i])
	}

	return &OrganizationListResult{
		Organizations: dtos,
		Total:         total,
		Page:          sharedFilter.Page,
		PageSize:      pageSize,
		TotalPages:    totalPages,
	}, nil
}

// Update updates an organization's information
func (s *OrganizationService) Update(ctx context.Context, input UpdateOrganizationInput) (*OrganizationDTO, error) {
	org, err := s.findOrg(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if err := org.Rename(*input.Name); err != nil {
			return nil, err
		}
	}

	if input.Domain != nil {
		if *input.Domain != org.Domain {
			exists, err := s.orgRepo.ExistsByDomain(ctx, *input.Domain)
			if err != nil {
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check domain availability")
			}
			if exists {
				return nil, shared.NewDomainError("DOMAIN_EXISTS", "Domain already exists")
			}
		}
		if err := org.SetDomain(*input.Domain); err != nil {
			return nil, err
		}
	}

	if input.LogoURL != nil {
		if err := org.SetLogoURL(*input.LogoURL); err != nil {
			return nil, err
		}
	}

	if input.Notes != nil {
		org.SetNotes(*input.Notes)
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to update organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update organization")
	}

	s.record(ctx, input.Actor, org.ID, audit.ActionOrgUpdated, "Updated organization "+org.Name)

	s.logger.Info("Organization updated", zap.String("org_id", input.ID.String()))

	return toOrganizationDTO(org), nil
}

// UpdateSettings updates an organization's settings
func (s *OrganizationService) UpdateSettings(ctx context.Context, id uuid.UUID, input OrgSettingsInput, actor Actor) (*OrganizationDTO, error) {
	org, err := s.findOrg(ctx, id)
	if err != nil {
		return nil, err
	}

	settings := org.Settings
	if input.Timezone != nil {
		settings.Timezone = *input.Timezone
	}
	if input.EmailFetchLimit != nil {
		settings.EmailFetchLimit = *input.EmailFetchLimit
	}
	if input.TicketFetchLimit != nil {
		settings.TicketFetchLimit = *input.TicketFetchLimit
	}
	if input.AnalysisEnabled != nil {
		settings.AnalysisEnabled = *input.AnalysisEnabled
	}
	if input.MaxUsers != nil {
		settings.MaxUsers = *input.MaxUsers
	}

	if err := org.UpdateSettings(settings); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to update organization settings", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update organization settings")
	}

	s.record(ctx, actor, org.ID, audit.ActionOrgUpdated, "Updated settings for "+org.Name)

	s.logger.Info("Organization settings updated", zap.String("org_id", id.String()))

	return toOrganizationDTO(org), nil
}

// Activate activates an organization
func (s *OrganizationService) Activate(ctx context.Context, id uuid.UUID, actor Actor) (*OrganizationDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionOrgUpdated, "Activated organization", func(o *identity.Organization) error {
		return o.Activate()
	})
}

// Deactivate deactivates an organization
func (s *OrganizationService) Deactivate(ctx context.Context, id uuid.UUID, actor Actor) (*OrganizationDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionOrgUpdated, "Deactivated organization", func(o *identity.Organization) error {
		return o.Deactivate()
	})
}

// Suspend suspends an organization; its users can no longer log in
func (s *OrganizationService) Suspend(ctx context.Context, id uuid.UUID, actor Actor) (*OrganizationDTO, error) {
	return s.transition(ctx, id, actor, audit.ActionOrgSuspended, "Suspended organization", func(o *identity.Organization) error {
		return o.Suspend()
	})
}

// Delete deletes an organization
func (s *OrganizationService) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	org, err := s.findOrg(ctx, id)
	if err != nil {
		return err
	}

	// Only inactive organizations can be deleted
	if org.Status != identity.OrgStatusInactive {
		return shared.NewDomainError("ORG_NOT_INACTIVE", "Only inactive organizations can be deleted")
	}

	if err := s.orgRepo.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete organization", zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to delete organization")
	}

	s.record(ctx, actor, org.ID, audit.ActionOrgUpdated, "Deleted organization "+org.Name)

	s.logger.Info("Organization deleted", zap.String("org_id", id.String()))

	return nil
}

// Count returns the total number of organizations
func (s *OrganizationService) Count(ctx context.Context) (int64, error) {
	return s.orgRepo.Count(ctx, shared.DefaultFilter())
}

// GetStats returns organization statistics
func (s *OrganizationService) GetStats(ctx context.Context) (*OrganizationStatsDTO, error) {
	filter := shared.DefaultFilter()

	total, err := s.orgRepo.Count(ctx, filter)
	if err != nil {
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get stats")
	}

	stats := &OrganizationStatsDTO{Total: total}
	counts := []struct {
		status identity.OrgStatus
		out    *int64
	}{
		{identity.OrgStatusActive, &stats.Active},
		{identity.OrgStatusInactive, &stats.Inactive},
		{identity.OrgStatusSuspended, &stats.Suspended},
	}
	for _, c := range counts {
		orgs, err := s.orgRepo.FindByStatus(ctx, c.status, filter)
		if err != nil {
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to get stats")
		}
		*c.out = int64(len(orgs))
	}

	return stats, nil
}

func (s *OrganizationService) transition(
	ctx context.Context,
	id uuid.UUID,
	actor Actor,
	action audit.Action,
	detail string,
	apply func(*identity.Organization) error,
) (*OrganizationDTO, error) {
	org, err := s.findOrg(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := apply(org); err != nil {
		return nil, err
	}

	if err := s.orgRepo.Save(ctx, org); err != nil {
		s.logger.Error("Failed to save organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to update organization")
	}

	s.record(ctx, actor, org.ID, action, detail+" "+org.Name)

	s.logger.Info("Organization status changed",
		zap.String("org_id", id.String()),
		zap.String("status", string(org.Status)))

	return toOrganizationDTO(org), nil
}

func (s *OrganizationService) findOrg(ctx context.Context, id uuid.UUID) (*identity.Organization, error) {
	org, err := s.orgRepo.FindByID(ctx, id)
	if err != nil {
		if err == shared.ErrNotFound {
			return nil, shared.NewDomainError("ORG_NOT_FOUND", "Organization not found")
		}
		s.logger.Error("Failed to find organization", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to find organization")
	}
	return org, nil
}

func (s *OrganizationService) record(ctx context.Context, actor Actor, orgID uuid.UUID, action audit.Action, detail string) {
	if s.audits == nil || actor.ID == uuid.Nil {
		return
	}
	err := s.audits.Record(ctx, appaudit.RecordInput{
		OrgID:          orgID,
		ActorID:        actor.ID,
		ActorEmail:     actor.Email,
		ImpersonatorID: actor.ImpersonatorID,
		Action:         action,
		TargetType:     "organization",
		TargetID:       orgID.String(),
		Detail:         detail,
		IP:             actor.IP,
		UserAgent:      actor.UserAgent,
	})
	if err != nil {
		s.logger.Warn("Failed to record audit entry",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

// toOrganizationDTO converts domain Organization to OrganizationDTO
func toOrganizationDTO(org *identity.Organization) *OrganizationDTO {
	return &OrganizationDTO{
		ID:      org.ID,
		Name:    org.Name,
		Domain:  org.Domain,
		Status:  string(org.Status),
		LogoURL: org.LogoURL,
		Settings: OrgSettingsDTO{
			Timezone:         org.Settings.Timezone,
			EmailFetchLimit:  org.Settings.EmailFetchLimit,
			TicketFetchLimit: org.Settings.TicketFetchLimit,
			AnalysisEnabled:  org.Settings.AnalysisEnabled,
			MaxUsers:         org.Settings.MaxUsers,
		},
		Notes:     org.Notes,
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}
