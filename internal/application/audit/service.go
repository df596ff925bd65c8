package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/briefing/backend/internal/domain/audit"
	"github.com/briefing/backend/internal/domain/shared"
)

// Service records and queries the audit trail. Records are append-only;
// nothing in the application ever updates or deletes them.
type Service struct {
	records audit.Repository
	logger  *zap.Logger
}

// NewService creates a new audit service
func NewService(records audit.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		records: records,
		logger:  logger,
	}
}

// RecordInput describes one auditable action
type RecordInput struct {
	OrgID          uuid.UUID
	ActorID        uuid.UUID
	ActorEmail     string
	ImpersonatorID *uuid.UUID
	Action         audit.Action
	TargetType     string
	TargetID       string
	Detail         string
	IP             string
	UserAgent      string
}

// RecordDTO represents one audit trail entry
type RecordDTO struct {
	ID             uuid.UUID  `json:"id"`
	OrgID          uuid.UUID  `json:"org_id"`
	ActorID        uuid.UUID  `json:"actor_id"`
	ActorEmail     string     `json:"actor_email,omitempty"`
	ImpersonatorID *uuid.UUID `json:"impersonator_id,omitempty"`
	Action         string     `json:"action"`
	TargetType     string     `json:"target_type,omitempty"`
	TargetID       string     `json:"target_id,omitempty"`
	Detail         string     `json:"detail,omitempty"`
	IPAddress      string     `json:"ip_address,omitempty"`
	UserAgent      string     `json:"user_agent,omitempty"`
	OccurredAt     time.Time  `json:"occurred_at"`
}

// RecordListResult represents a paginated audit trail page
type RecordListResult struct {
	Records    []RecordDTO `json:"records"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// ListQuery narrows an audit trail query
type ListQuery struct {
	ActorID    *uuid.UUID
	Action     string
	TargetType string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

func (q ListQuery) toFilter() audit.Filter {
	filter := audit.NewFilter()
	filter.ActorID = q.ActorID
	if q.Action != "" {
		action := audit.Action(q.Action)
		filter.Action = &action
	}
	filter.TargetType = q.TargetType
	filter.From = q.From
	filter.To = q.To
	if q.Page > 0 {
		filter.Page = q.Page
	}
	if q.PageSize > 0 {
		filter.PageSize = q.PageSize
	}
	return filter
}

// Record appends one entry to the audit trail
func (s *Service) Record(ctx context.Context, input RecordInput) error {
	record, err := audit.NewRecord(input.OrgID, input.ActorID, input.ActorEmail, input.Action)
	if err != nil {
		return err
	}

	record.WithTarget(input.TargetType, input.TargetID).
		WithDetail(input.Detail).
		WithRequest(input.IP, input.UserAgent)
	if input.ImpersonatorID != nil {
		record.WithImpersonator(*input.ImpersonatorID)
	}

	if err := s.records.Append(ctx, record); err != nil {
		s.logger.Error("Failed to append audit record",
			zap.String("action", string(input.Action)),
			zap.String("actor_id", input.ActorID.String()),
			zap.Error(err))
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to record audit entry")
	}

	return nil
}

// List returns the organization's audit trail, newest first
func (s *Service) List(ctx context.Context, orgID uuid.UUID, query ListQuery) (*RecordListResult, error) {
	filter := query.toFilter()

	records, total, err := s.records.FindByOrg(ctx, orgID, filter)
	if err != nil {
		s.logger.Error("Failed to list audit records", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list audit records")
	}

	return s.toListResult(records, total, filter), nil
}

// ListByActor returns the audit trail for one actor, newest first
func (s *Service) ListByActor(ctx context.Context, actorID uuid.UUID, query ListQuery) (*RecordListResult, error) {
	filter := query.toFilter()

	records, total, err := s.records.FindByActor(ctx, actorID, filter)
	if err != nil {
		s.logger.Error("Failed to list audit records by actor", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to list audit records")
	}

	return s.toListResult(records, total, filter), nil
}

func (s *Service) toListResult(records []*audit.Record, total int64, filter audit.Filter) *RecordListResult {
	dtos := make([]RecordDTO, len(records))
	for i, record := range records {
		dtos[i] = toRecordDTO(record)
	}

	pageSize := filter.Limit()
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &RecordListResult{
		Records:    dtos,
		Total:      total,
		Page:       filter.Page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

func toRecordDTO(record *audit.Record) RecordDTO {
	return RecordDTO{
		ID:             record.ID,
		OrgID:          record.OrgID,
		ActorID:        record.ActorID,
		ActorEmail:     record.ActorEmail,
		ImpersonatorID: record.ImpersonatorID,
		Action:         string(record.Action),
		TargetType:     record.TargetType,
		TargetID:       record.TargetID,
		Detail:         record.Detail,
		IPAddress:      record.IPAddress,
		UserAgent:      record.UserAgent,
		OccurredAt:     record.OccurredAt,
	}
}
