package privacy

import (
	"context"
	"fmt"
	"slices"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect/sql"
	ql "github.com/syssam/sqlmap/querylanguage"
)

// Viewer represents the authenticated user making a request.
// This interface should be implemented by application-specific user types.
type Viewer interface {
	// GetID returns the viewer's unique identifier.
	GetID() string
	// GetRoles returns the viewer's roles.
	GetRoles() []string
	// GetTenantID returns the viewer's tenant identifier for multi-tenancy.
	// Returns empty string if not applicable.
	GetTenantID() string
}

// viewerCtxKey is the context key for storing the viewer.
type viewerCtxKey struct{}

// WithViewer returns a new context with the viewer attached.
func WithViewer(ctx context.Context, viewer Viewer) context.Context {
	return context.WithValue(ctx, viewerCtxKey{}, viewer)
}

// ViewerFromContext retrieves the viewer from the context.
// Returns nil if no viewer is present.
func ViewerFromContext(ctx context.Context) Viewer {
	v, _ := ctx.Value(viewerCtxKey{}).(Viewer)
	return v
}

// SimpleViewer is a basic implementation of the Viewer interface.
type SimpleViewer struct {
	UserID   string
	Roles    []string
	TenantID string
}

// GetID returns the user ID.
func (v *SimpleViewer) GetID() string {
	return v.UserID
}

// GetRoles returns the user's roles.
func (v *SimpleViewer) GetRoles() []string {
	return v.Roles
}

// GetTenantID returns the tenant ID.
func (v *SimpleViewer) GetTenantID() string {
	return v.TenantID
}

// DenyIfNoViewer returns a rule that denies access if no viewer is present in the context.
// This is typically used as the first rule in a policy to require authentication.
//
//	privacy.MutationPolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.HasRole("admin"),
//	    privacy.AlwaysDenyRule(),
//	}
func DenyIfNoViewer() QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		if ViewerFromContext(ctx) == nil {
			return Denyf("privacy: viewer required")
		}
		return Skip
	})
}

// HasRole returns a rule that allows access if the viewer has the specified role.
// Skips if the viewer doesn't have the role (allows next rule to evaluate).
func HasRole(role string) QueryMutationRule {
	return HasAnyRole(role)
}

// HasAnyRole returns a rule that allows access if the viewer has any of the specified roles.
// Skips if the viewer doesn't have any of the roles.
func HasAnyRole(roles ...string) QueryMutationRule {
	return ContextQueryMutationRule(func(ctx context.Context) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerRoles := viewer.GetRoles()
		for _, role := range roles {
			if slices.Contains(viewerRoles, role) {
				return Allow
			}
		}
		return Skip
	})
}

// IsOwner returns a mutation rule that allows access if the viewer owns
// every written entity, that is the given field holds the viewer's ID.
// Mutations without entities are skipped.
//
//	privacy.MutationPolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.IsOwner("OwnerID"),
//	    privacy.AlwaysDenyRule(),
//	}
func IsOwner(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		values, ok := fieldValues(m, field)
		if !ok {
			return Skip
		}
		for _, v := range values {
			if v != viewer.GetID() {
				return Skip
			}
		}
		return Allow
	})
}

// OwnerQueryRule returns a query rule restricting queries to the entities
// whose field holds the viewer's ID. Queries without viewer are denied.
func OwnerQueryRule(field string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, s *sql.Selector) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("privacy: viewer required for owner-filtered query")
		}
		s.Where(ql.FieldEQ(field, viewer.GetID()))
		return Skip
	})
}

// TenantRule returns a mutation rule that allows access if the viewer's tenant
// matches the tenant of every written entity, and denies it otherwise.
//
//	privacy.MutationPolicy{
//	    privacy.DenyIfNoViewer(),
//	    privacy.TenantRule("TenantID"),
//	    privacy.AlwaysDenyRule(),
//	}
func TenantRule(field string) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Skip
		}
		viewerTenant := viewer.GetTenantID()
		if viewerTenant == "" {
			return Skip
		}
		values, ok := fieldValues(m, field)
		if !ok {
			return Skip
		}
		for _, v := range values {
			if v != viewerTenant {
				return Denyf("privacy: tenant mismatch")
			}
		}
		return Allow
	})
}

// TenantQueryRule returns a query rule restricting queries to the viewer's
// tenant. Queries without viewer or tenant are denied.
func TenantQueryRule(field string) QueryRule {
	return QueryRuleFunc(func(ctx context.Context, s *sql.Selector) error {
		viewer := ViewerFromContext(ctx)
		if viewer == nil {
			return Denyf("privacy: viewer required for tenant-filtered query")
		}
		if viewer.GetTenantID() == "" {
			return Denyf("privacy: tenant required")
		}
		s.Where(ql.FieldEQ(field, viewer.GetTenantID()))
		return Skip
	})
}

// AllowMutationOperationRule returns a rule allowing specified mutation operation.
func AllowMutationOperationRule(op sqlmap.Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, _ Mutation) error {
		return Allow
	})
	return OnMutationOperation(rule, op)
}

// fieldValues returns the values of the given field of the written
// entities in their string form. It reports false when the mutation has no
// entity or the entity has no such field.
func fieldValues(m Mutation, field string) ([]string, bool) {
	ents := m.Entities()
	if len(ents) == 0 {
		return nil, false
	}
	c, ok := m.Entity().Field(field)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(ents))
	for _, e := range ents {
		v, err := c.Get(e)
		if err != nil || v == nil {
			return nil, false
		}
		values = append(values, fmt.Sprint(v))
	}
	return values, true
}
