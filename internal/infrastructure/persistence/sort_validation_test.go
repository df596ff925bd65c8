package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty defaults to DESC", "", "DESC"},
		{"ASC uppercase", "ASC", "ASC"},
		{"asc lowercase", "asc", "ASC"},
		{"DESC uppercase", "DESC", "DESC"},
		{"invalid value defaults to DESC", "SIDEWAYS", "DESC"},
		{"injection attempt defaults to DESC", "ASC; DROP TABLE provider_connections;--", "DESC"},
		{"whitespace only defaults to DESC", "   ", "DESC"},
		{"whitespace around asc", "  asc  ", "ASC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := ConnectionSortFields

	tests := []struct {
		name         string
		input        string
		defaultField string
		want         string
	}{
		{"empty returns default", "", "created_at", "created_at"},
		{"allowed field passes", "provider", "created_at", "provider"},
		{"allowed field last_synced_at passes", "last_synced_at", "created_at", "last_synced_at"},
		{"unknown field returns default", "favorite_color", "created_at", "created_at"},
		{"injection attempt returns default", "id; DROP TABLE provider_connections;--", "created_at", "created_at"},
		{"matching is case sensitive", "PROVIDER", "created_at", "created_at"},
		{"whitespace only returns default", "   ", "created_at", "created_at"},
		{"whitespace around allowed field passes", "  provider  ", "created_at", "provider"},
		{"embedded space returns default", "provider connections", "created_at", "created_at"},
		{"quote returns default", "provider'--", "created_at", "created_at"},
		{"empty default with allowed field", "status", "", "status"},
		{"empty default with unknown field", "nope", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSortField(tt.input, allowed, tt.defaultField))
		})
	}
}

func TestSortFieldWhitelists(t *testing.T) {
	whitelists := map[string]map[string]bool{
		"UserSortFields":         UserSortFields,
		"OrganizationSortFields": OrganizationSortFields,
		"RoleSortFields":         RoleSortFields,
		"ConnectionSortFields":   ConnectionSortFields,
	}

	for name, whitelist := range whitelists {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "%s should allow %q", name, field)
			}
			assert.Greater(t, len(whitelist), 3)
		})
	}

	// Audit records sort on occurrence time, not row timestamps.
	t.Run("AuditRecordSortFields", func(t *testing.T) {
		assert.True(t, AuditRecordSortFields["occurred_at"])
		assert.True(t, AuditRecordSortFields["action"])
		assert.False(t, AuditRecordSortFields["updated_at"])
	})
}

func TestSortValidationRejectsInjectionPayloads(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE provider_connections;--",
		"id' OR '1'='1",
		"id\"; DROP TABLE users;--",
		"id UNION SELECT * FROM users",
		"id ORDER BY 1",
		"id, (SELECT password_hash FROM users)",
		"CASE WHEN 1=1 THEN id ELSE provider END",
		"id/**/;DROP TABLE audit_records",
		"id\n; DROP TABLE users",
		"id\t; DROP TABLE users",
		"' OR ''='",
		"1; EXEC xp_cmdshell('dir')",
	}

	for _, payload := range payloads {
		label := payload
		if len(label) > 30 {
			label = label[:30]
		}

		t.Run("field "+label, func(t *testing.T) {
			assert.Equal(t, "created_at", ValidateSortField(payload, ConnectionSortFields, "created_at"))
		})

		t.Run("order "+label, func(t *testing.T) {
			assert.Equal(t, "DESC", ValidateSortOrder(payload))
		})
	}
}
