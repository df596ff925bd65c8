package persistence

import (
	"context"
	"errors"

	"github.com/briefing/backend/internal/domain/connection"
	"github.com/briefing/backend/internal/domain/provider"
	"github.com/briefing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormConnectionRepository implements connection.Repository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// Save creates or updates a connection
func (r *GormConnectionRepository) Save(ctx context.Context, conn *connection.Connection) error {
	return r.db.WithContext(ctx).Save(conn).Error
}

// Delete deletes a connection by ID
func (r *GormConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&connection.Connection{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a connection by ID
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*connection.Connection, error) {
	var conn connection.Connection
	if err := r.db.WithContext(ctx).First(&conn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// FindByUser finds all connections for a user, ordered by provider
func (r *GormConnectionRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]*connection.Connection, error) {
	var conns []*connection.Connection
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("provider ASC").
		Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// FindByUserAndProvider finds a user's connection for a specific provider
func (r *GormConnectionRepository) FindByUserAndProvider(ctx context.Context, userID uuid.UUID, code provider.Code) (*connection.Connection, error) {
	var conn connection.Connection
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, code).
		First(&conn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &conn, nil
}

// CountByProvider counts active connections per provider for an organization
func (r *GormConnectionRepository) CountByProvider(ctx context.Context, orgID uuid.UUID) (map[provider.Code]int64, error) {
	type row struct {
		Provider provider.Code
		Total    int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&connection.Connection{}).
		Select("provider, COUNT(*) AS total").
		Where("org_id = ? AND status = ?", orgID, connection.StatusActive).
		Group("provider").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[provider.Code]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Provider] = rw.Total
	}
	return counts, nil
}

// Ensure GormConnectionRepository implements connection.Repository
var _ connection.Repository = (*GormConnectionRepository)(nil)
