package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPermission(t *testing.T) {
	t.Run("builds code from resource and action", func(t *testing.T) {
		perm, err := NewPermission("Users", "Create")
		require.NoError(t, err)
		assert.Equal(t, "users.create", perm.Code())
	})

	t.Run("parses code", func(t *testing.T) {
		perm, err := NewPermissionFromCode("briefing.read")
		require.NoError(t, err)
		assert.Equal(t, "briefing", perm.Resource)
		assert.Equal(t, "read", perm.Action)
	})

	t.Run("rejects malformed code", func(t *testing.T) {
		_, err := NewPermissionFromCode("briefing")
		assert.Error(t, err)
	})

	t.Run("rejects empty segments", func(t *testing.T) {
		_, err := NewPermission("", "read")
		assert.Error(t, err)
		_, err = NewPermission("users", " ")
		assert.Error(t, err)
	})
}

func TestNewRole(t *testing.T) {
	orgID := uuid.New()

	t.Run("creates enabled role with lowered code", func(t *testing.T) {
		role, err := NewRole(orgID, "manager", "Manager")
		require.NoError(t, err)

		assert.Equal(t, "manager", role.Code)
		assert.Equal(t, "Manager", role.Name)
		assert.True(t, role.IsEnabled)
		assert.False(t, role.IsSystem)
		assert.Equal(t, orgID, role.OrgID)
		assert.Empty(t, role.Permissions)
	})

	t.Run("system role cannot be deleted", func(t *testing.T) {
		role, err := NewSystemRole(orgID, RoleCodeAdmin, "Administrator")
		require.NoError(t, err)

		assert.True(t, role.IsSystem)
		assert.False(t, role.CanDelete())
	})

	t.Run("rejects invalid code", func(t *testing.T) {
		for _, code := range []string{"", "9admin", "with space", "UPPER CASE!"} {
			_, err := NewRole(orgID, code, "Name")
			assert.Error(t, err, "code %q should be rejected", code)
		}
	})
}

func TestRolePermissions(t *testing.T) {
	role, err := NewRole(uuid.New(), "manager", "Manager")
	require.NoError(t, err)

	t.Run("grant and check", func(t *testing.T) {
		require.NoError(t, role.GrantPermissionByCode("users.manage"))
		assert.True(t, role.HasPermission("users.manage"))
		assert.False(t, role.HasPermission("roles.manage"))
	})

	t.Run("duplicate grant fails", func(t *testing.T) {
		err := role.GrantPermissionByCode("users.manage")
		assert.Error(t, err)
		assert.Len(t, role.Permissions, 1)
	})

	t.Run("wildcard action grants resource", func(t *testing.T) {
		require.NoError(t, role.GrantPermissionByCode("briefing.*"))
		assert.True(t, role.HasPermission("briefing.read"))
		assert.False(t, role.HasPermission("audit.read"))
	})

	t.Run("revoke", func(t *testing.T) {
		require.NoError(t, role.RevokePermission("users.manage"))
		assert.False(t, role.HasPermission("users.manage"))

		err := role.RevokePermission("users.manage")
		assert.Error(t, err)
	})

	t.Run("set permissions deduplicates", func(t *testing.T) {
		p1, _ := NewPermissionFromCode("audit.read")
		p2, _ := NewPermissionFromCode("audit.read")
		p3, _ := NewPermissionFromCode("users.manage")

		require.NoError(t, role.SetPermissions([]Permission{*p1, *p2, *p3}))
		assert.Len(t, role.Permissions, 2)
	})
}

func TestRoleLifecycle(t *testing.T) {
	t.Run("disable and enable", func(t *testing.T) {
		role, err := NewRole(uuid.New(), "contractor", "Contractor")
		require.NoError(t, err)

		require.NoError(t, role.Disable())
		assert.False(t, role.IsEnabled)
		assert.Error(t, role.Disable())

		require.NoError(t, role.Enable())
		assert.True(t, role.IsEnabled)
		assert.Error(t, role.Enable())
	})

	t.Run("system role cannot be disabled", func(t *testing.T) {
		role, err := NewSystemRole(uuid.New(), RoleCodeAdmin, "Administrator")
		require.NoError(t, err)

		assert.Error(t, role.Disable())
		assert.True(t, role.IsEnabled)
	})

	t.Run("rename validates", func(t *testing.T) {
		role, err := NewRole(uuid.New(), "user", "User")
		require.NoError(t, err)

		require.NoError(t, role.SetName("Member"))
		assert.Equal(t, "Member", role.Name)
		assert.Error(t, role.SetName(""))
	})
}
