package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Filter narrows audit queries
type Filter struct {
	ActorID    *uuid.UUID
	Action     *Action
	TargetType string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// NewFilter returns a filter with default pagination
func NewFilter() Filter {
	return Filter{Page: 1, PageSize: 50}
}

// Offset returns the pagination offset
func (f Filter) Offset() int {
	if f.Page <= 0 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}

// Limit returns the pagination limit, capped at 200
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return 50
	}
	if f.PageSize > 200 {
		return 200
	}
	return f.PageSize
}

// Repository defines the interface for audit persistence. Records are
// append-only; there is no update or delete.
type Repository interface {
	// Append persists a record
	Append(ctx context.Context, record *Record) error

	// FindByOrg returns records for an organization, newest first
	FindByOrg(ctx context.Context, orgID uuid.UUID, filter Filter) ([]*Record, int64, error)

	// FindByActor returns records for one actor, newest first
	FindByActor(ctx context.Context, actorID uuid.UUID, filter Filter) ([]*Record, int64, error)
}
