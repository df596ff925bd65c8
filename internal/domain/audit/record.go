package audit

import (
	"strings"
	"time"

	"github.com/briefing/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Action identifies what happened. Actions use the "resource.verb" form so
// the audit trail can be filtered by resource.
type Action string

const (
	ActionUserLogin         Action = "user.login"
	ActionUserLogout        Action = "user.logout"
	ActionUserCreated       Action = "user.created"
	ActionUserUpdated       Action = "user.updated"
	ActionUserDeleted       Action = "user.deleted"
	ActionUserLocked        Action = "user.locked"
	ActionUserUnlocked      Action = "user.unlocked"
	ActionPasswordReset     Action = "user.password_reset"
	ActionRolesChanged      Action = "user.roles_changed"
	ActionImpersonateStart  Action = "user.impersonate_start"
	ActionImpersonateStop   Action = "user.impersonate_stop"
	ActionRoleCreated       Action = "role.created"
	ActionRoleUpdated       Action = "role.updated"
	ActionRoleDeleted       Action = "role.deleted"
	ActionOrgCreated        Action = "organization.created"
	ActionOrgUpdated        Action = "organization.updated"
	ActionOrgSuspended      Action = "organization.suspended"
	ActionConnectionAdded   Action = "connection.added"
	ActionConnectionRemoved Action = "connection.removed"
	ActionBriefingViewed    Action = "briefing.viewed"
)

// Record is an immutable audit trail entry. Records are never updated or
// deleted through the application.
type Record struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrgID      uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorEmail string    `gorm:"type:varchar(255)"`
	// ImpersonatorID is set when the actor was an admin acting as ActorID
	ImpersonatorID *uuid.UUID `gorm:"type:uuid"`
	Action         Action     `gorm:"type:varchar(50);not null;index"`
	TargetType     string     `gorm:"type:varchar(50)"`
	TargetID       string     `gorm:"type:varchar(100)"`
	Detail         string     `gorm:"type:text"`
	IPAddress      string     `gorm:"type:varchar(45)"`
	UserAgent      string     `gorm:"type:varchar(500)"`
	OccurredAt     time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "audit_records"
}

// NewRecord creates an audit record for an action by an actor
func NewRecord(orgID, actorID uuid.UUID, actorEmail string, action Action) (*Record, error) {
	if action == "" {
		return nil, shared.NewDomainError("INVALID_ACTION", "Audit action cannot be empty")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Audit actor cannot be empty")
	}

	return &Record{
		ID:         uuid.New(),
		OrgID:      orgID,
		ActorID:    actorID,
		ActorEmail: strings.ToLower(actorEmail),
		Action:     action,
		OccurredAt: time.Now(),
	}, nil
}

// WithTarget sets the record's target
func (r *Record) WithTarget(targetType, targetID string) *Record {
	r.TargetType = targetType
	r.TargetID = targetID
	return r
}

// WithDetail sets a human-readable detail message
func (r *Record) WithDetail(detail string) *Record {
	r.Detail = detail
	return r
}

// WithRequest records the client IP and user agent
func (r *Record) WithRequest(ip, userAgent string) *Record {
	r.IPAddress = ip
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}
	r.UserAgent = userAgent
	return r
}

// WithImpersonator marks the record as performed while impersonating
func (r *Record) WithImpersonator(adminID uuid.UUID) *Record {
	r.ImpersonatorID = &adminID
	return r
}

// Resource returns the resource part of the action code
func (r *Record) Resource() string {
	if i := strings.Index(string(r.Action), "."); i > 0 {
		return string(r.Action)[:i]
	}
	return string(r.Action)
}
