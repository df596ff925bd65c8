package audit

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	orgID := uuid.New()
	actorID := uuid.New()

	t.Run("creates record with timestamp", func(t *testing.T) {
		rec, err := NewRecord(orgID, actorID, "Admin@Acme.com", ActionUserCreated)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Equal(t, "admin@acme.com", rec.ActorEmail)
		assert.False(t, rec.OccurredAt.IsZero())
		assert.Nil(t, rec.ImpersonatorID)
	})

	t.Run("rejects empty action", func(t *testing.T) {
		_, err := NewRecord(orgID, actorID, "admin@acme.com", "")
		assert.Error(t, err)
	})

	t.Run("rejects nil actor", func(t *testing.T) {
		_, err := NewRecord(orgID, uuid.Nil, "admin@acme.com", ActionUserLogin)
		assert.Error(t, err)
	})
}

func TestRecordBuilders(t *testing.T) {
	adminID := uuid.New()
	rec, err := NewRecord(uuid.New(), uuid.New(), "admin@acme.com", ActionRolesChanged)
	require.NoError(t, err)

	rec.WithTarget("user", "bob@acme.com").
		WithDetail("assigned manager role").
		WithRequest("10.1.2.3", "Mozilla/5.0").
		WithImpersonator(adminID)

	assert.Equal(t, "user", rec.TargetType)
	assert.Equal(t, "bob@acme.com", rec.TargetID)
	assert.Equal(t, "assigned manager role", rec.Detail)
	assert.Equal(t, "10.1.2.3", rec.IPAddress)
	require.NotNil(t, rec.ImpersonatorID)
	assert.Equal(t, adminID, *rec.ImpersonatorID)
}

func TestRecordUserAgentTruncation(t *testing.T) {
	rec, err := NewRecord(uuid.New(), uuid.New(), "a@b.co", ActionUserLogin)
	require.NoError(t, err)

	rec.WithRequest("127.0.0.1", strings.Repeat("x", 600))
	assert.Len(t, rec.UserAgent, 500)
}

func TestRecordResource(t *testing.T) {
	rec, err := NewRecord(uuid.New(), uuid.New(), "a@b.co", ActionConnectionAdded)
	require.NoError(t, err)
	assert.Equal(t, "connection", rec.Resource())
}
