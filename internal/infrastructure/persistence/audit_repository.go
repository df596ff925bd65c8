package persistence

import (
	"context"

	"github.com/briefing/backend/internal/domain/audit"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements audit.Repository using GORM.
// Audit records are append-only: there is no update or delete.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append persists a new audit record
func (r *GormAuditRepository) Append(ctx context.Context, record *audit.Record) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// FindByOrg returns audit records for an organization, newest first
func (r *GormAuditRepository) FindByOrg(ctx context.Context, orgID uuid.UUID, filter audit.Filter) ([]*audit.Record, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&audit.Record{}).
		Where("org_id = ?", orgID)

	return r.findPage(query, filter)
}

// FindByActor returns audit records produced by a specific actor, newest first
func (r *GormAuditRepository) FindByActor(ctx context.Context, actorID uuid.UUID, filter audit.Filter) ([]*audit.Record, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&audit.Record{}).
		Where("actor_id = ?", actorID)

	return r.findPage(query, filter)
}

// findPage applies the filter, counts, and returns one page of records
func (r *GormAuditRepository) findPage(query *gorm.DB, filter audit.Filter) ([]*audit.Record, int64, error) {
	query = r.applyFilter(query, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []*audit.Record
	if err := query.
		Order("occurred_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// applyFilter applies filter options to the query
func (r *GormAuditRepository) applyFilter(query *gorm.DB, filter audit.Filter) *gorm.DB {
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at < ?", *filter.To)
	}
	return query
}

// Ensure GormAuditRepository implements audit.Repository
var _ audit.Repository = (*GormAuditRepository)(nil)
