// Package privacy provides privacy layer types and rule implementations.
//
// Policies are evaluated by the client before a statement reaches the
// database. A query policy sees the *sql.Selector about to run and may
// narrow it with predicates. A mutation policy sees the operation, the
// entity type and the written entities.
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: Grants access and stops evaluation
//   - Deny: Denies access and stops evaluation
//   - Skip: Continues to the next rule
//
// A policy whose rules all skip allows the operation. End a policy with
// AlwaysDenyRule to deny by default.
//
//	c, err := client.New(drv, client.WithPolicy(privacy.Policy{
//	    Query: privacy.QueryPolicy{
//	        privacy.HasRole("admin"),
//	        privacy.TenantQueryRule("TenantID"),
//	    },
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),
//	        privacy.HasRole("admin"),
//	        privacy.IsOwner("OwnerID"),
//	        privacy.AlwaysDenyRule(),
//	    },
//	}))
//
// # Viewer
//
// The viewer is stored in context and retrieved during policy evaluation:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//	pets, err := client.SelectAll[Pet](ctx, c)
//
// A decision attached with DecisionContext bypasses the policies, which is
// how system tasks run with full access:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
