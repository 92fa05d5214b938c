package privacy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect/sql"
	"github.com/syssam/sqlmap/internal/entitytest"
	"github.com/syssam/sqlmap/privacy"
)

func owned(id int) *entitytest.Pet {
	return &entitytest.Pet{Name: "Rex", OwnerID: &id}
}

// TestViewerContext tests storing viewers in a context.
func TestViewerContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, privacy.ViewerFromContext(ctx))

	viewer := &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}, TenantID: "acme"}
	ctx = privacy.WithViewer(ctx, viewer)
	got := privacy.ViewerFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.GetID())
	assert.Equal(t, []string{"admin"}, got.GetRoles())
	assert.Equal(t, "acme", got.GetTenantID())
}

// TestDenyIfNoViewer tests the authentication guard.
func TestDenyIfNoViewer(t *testing.T) {
	rule := privacy.DenyIfNoViewer()
	assert.ErrorIs(t, rule.EvalMutation(context.Background(), &mockMutation{}), privacy.Deny)

	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "1"})
	assert.ErrorIs(t, rule.EvalQuery(ctx, sql.Select[entitytest.Pet]()), privacy.Skip)
}

// TestHasAnyRole tests the role rules.
func TestHasAnyRole(t *testing.T) {
	tests := []struct {
		name       string
		rule       privacy.QueryMutationRule
		viewer     *privacy.SimpleViewer
		wantResult error
	}{
		{
			name:       "has_role",
			rule:       privacy.HasRole("admin"),
			viewer:     &privacy.SimpleViewer{Roles: []string{"user", "admin"}},
			wantResult: privacy.Allow,
		},
		{
			name:       "missing_role",
			rule:       privacy.HasRole("admin"),
			viewer:     &privacy.SimpleViewer{Roles: []string{"user"}},
			wantResult: privacy.Skip,
		},
		{
			name:       "any_role",
			rule:       privacy.HasAnyRole("admin", "moderator"),
			viewer:     &privacy.SimpleViewer{Roles: []string{"moderator"}},
			wantResult: privacy.Allow,
		},
		{
			name:       "no_viewer",
			rule:       privacy.HasAnyRole("admin"),
			wantResult: privacy.Skip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			assert.ErrorIs(t, tt.rule.EvalQuery(ctx, sql.Select[entitytest.Pet]()), tt.wantResult)
			assert.ErrorIs(t, tt.rule.EvalMutation(ctx, &mockMutation{}), tt.wantResult)
		})
	}
}

// TestIsOwner tests the IsOwner rule.
func TestIsOwner(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		ents       []any
		viewer     *privacy.SimpleViewer
		wantResult error
	}{
		{
			name:       "allows_owner",
			field:      "OwnerID",
			ents:       []any{owned(1), owned(1)},
			viewer:     &privacy.SimpleViewer{UserID: "1"},
			wantResult: privacy.Allow,
		},
		{
			name:       "skips_partial_owner",
			field:      "OwnerID",
			ents:       []any{owned(1), owned(2)},
			viewer:     &privacy.SimpleViewer{UserID: "1"},
			wantResult: privacy.Skip,
		},
		{
			name:       "skips_without_owner",
			field:      "OwnerID",
			ents:       []any{&entitytest.Pet{Name: "Rex"}},
			viewer:     &privacy.SimpleViewer{UserID: "1"},
			wantResult: privacy.Skip,
		},
		{
			name:       "skips_unknown_field",
			field:      "UserID",
			ents:       []any{owned(1)},
			viewer:     &privacy.SimpleViewer{UserID: "1"},
			wantResult: privacy.Skip,
		},
		{
			name:       "skips_without_entities",
			field:      "OwnerID",
			viewer:     &privacy.SimpleViewer{UserID: "1"},
			wantResult: privacy.Skip,
		},
		{
			name:       "skips_without_viewer",
			field:      "OwnerID",
			ents:       []any{owned(1)},
			wantResult: privacy.Skip,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.viewer != nil {
				ctx = privacy.WithViewer(ctx, tt.viewer)
			}
			err := privacy.IsOwner(tt.field).EvalMutation(ctx, &mockMutation{op: sqlmap.OpUpdate, ents: tt.ents})
			assert.ErrorIs(t, err, tt.wantResult)
		})
	}
}

// TestTenantRule tests tenant isolation of mutations.
func TestTenantRule(t *testing.T) {
	rule := privacy.TenantRule("Name")
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "1", TenantID: "Rex"})

	err := rule.EvalMutation(ctx, &mockMutation{ents: []any{owned(1)}})
	assert.ErrorIs(t, err, privacy.Allow)

	err = rule.EvalMutation(ctx, &mockMutation{ents: []any{owned(1), &entitytest.Pet{Name: "Tom"}}})
	assert.ErrorIs(t, err, privacy.Deny)
	assert.Contains(t, err.Error(), "tenant mismatch")

	noTenant := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "1"})
	assert.ErrorIs(t, rule.EvalMutation(noTenant, &mockMutation{ents: []any{owned(1)}}), privacy.Skip)
}

// TestQueryFilterRules tests the rules narrowing queries.
func TestQueryFilterRules(t *testing.T) {
	t.Run("owner", func(t *testing.T) {
		rule := privacy.OwnerQueryRule("OwnerID")
		assert.ErrorIs(t, rule.EvalQuery(context.Background(), sql.Select[entitytest.Pet]()), privacy.Deny)

		ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "7"})
		s := sql.Select[entitytest.Pet]()
		require.ErrorIs(t, rule.EvalQuery(ctx, s), privacy.Skip)
		assert.Equal(t, `SELECT "Id", "Name", "Kind", "OwnerId" FROM "Pet" WHERE "Pet"."OwnerId" = '7'`, query(t, s))
	})

	t.Run("tenant", func(t *testing.T) {
		rule := privacy.TenantQueryRule("Name")
		ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "7"})
		assert.ErrorIs(t, rule.EvalQuery(ctx, sql.Select[entitytest.Pet]()), privacy.Deny)

		ctx = privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "7", TenantID: "acme"})
		s := sql.Select[entitytest.Pet]()
		require.ErrorIs(t, rule.EvalQuery(ctx, s), privacy.Skip)
		assert.Equal(t, `SELECT "Id", "Name", "Kind", "OwnerId" FROM "Pet" WHERE "Pet"."Name" = 'acme'`, query(t, s))
	})
}
