// Package privacy provides sets of types and helpers for writing privacy
// rules evaluated by the client before statements reach the database.
package privacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/sqlmap"
	"github.com/syssam/sqlmap/dialect/sql"
	ql "github.com/syssam/sqlmap/querylanguage"
	"github.com/syssam/sqlmap/schema"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from policy rules to indicate
// how the policy evaluation should proceed. Use errors.Is() to check
// for these values:
//
//	if errors.Is(err, privacy.Allow) { ... }
//	if errors.Is(err, privacy.Deny) { ... }
//	if errors.Is(err, privacy.Skip) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("sqlmap/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("sqlmap/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule in the chain.
	Skip = errors.New("sqlmap/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() QueryMutationRule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() QueryMutationRule {
	return fixedDecision{Deny}
}

// ContextQueryMutationRule creates a query/mutation rule from a context evaluation function.
// The provided function receives the context and should return Allow, Deny, Skip, or nil.
// Returning nil is equivalent to returning Skip.
func ContextQueryMutationRule(eval func(context.Context) error) QueryMutationRule {
	return contextDecision{eval}
}

type (
	// Mutation is the write operation seen by mutation rules.
	Mutation interface {
		// Op returns the operation performed.
		Op() sqlmap.Op
		// Entity returns the descriptor of the written entity type.
		Entity() *schema.Descriptor
		// Entities returns the written entities. Statements writing rows
		// matched by a predicate return none.
		Entities() []any
	}

	// QueryRule defines the interface deciding whether a
	// query is allowed and optionally modify it.
	QueryRule interface {
		EvalQuery(context.Context, *sql.Selector) error
	}

	// QueryPolicy combines multiple query rules into a single policy.
	QueryPolicy []QueryRule

	// MutationRule defines the interface deciding whether a
	// mutation is allowed and optionally modify it.
	MutationRule interface {
		EvalMutation(context.Context, Mutation) error
	}

	// MutationPolicy combines multiple mutation rules into a single policy.
	MutationPolicy []MutationRule

	// QueryMutationRule is an interface which groups query and mutation rules.
	QueryMutationRule interface {
		QueryRule
		MutationRule
	}
)

// MutationRuleFunc type is an adapter which allows the use of
// ordinary functions as mutation rules.
type MutationRuleFunc func(context.Context, Mutation) error

// EvalMutation returns f(ctx, m).
func (f MutationRuleFunc) EvalMutation(ctx context.Context, m Mutation) error {
	return f(ctx, m)
}

// QueryRuleFunc type is an adapter which allows the use of
// ordinary functions as query rules.
type QueryRuleFunc func(context.Context, *sql.Selector) error

// EvalQuery returns f(ctx, s).
func (f QueryRuleFunc) EvalQuery(ctx context.Context, s *sql.Selector) error {
	return f(ctx, s)
}

// OnMutationOperation evaluates the given rule only on a given mutation operation.
func OnMutationOperation(rule MutationRule, op sqlmap.Op) MutationRule {
	return MutationRuleFunc(func(ctx context.Context, m Mutation) error {
		if m.Op().Is(op) {
			return rule.EvalMutation(ctx, m)
		}
		return Skip
	})
}

// DenyMutationOperationRule returns a rule denying specified mutation operation.
func DenyMutationOperationRule(op sqlmap.Op) MutationRule {
	rule := MutationRuleFunc(func(_ context.Context, m Mutation) error {
		return Denyf("sqlmap/privacy: operation %s is not allowed", m.Op())
	})
	return OnMutationOperation(rule, op)
}

// Policy groups query and mutation policies.
type Policy struct {
	Query    QueryPolicy
	Mutation MutationPolicy
}

// EvalQuery forwards evaluation to the query policy. A decision attached
// to ctx takes precedence. Allow decisions are returned as nil.
func (p Policy) EvalQuery(ctx context.Context, s *sql.Selector) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	return final(p.Query.EvalQuery(ctx, s))
}

// EvalMutation forwards evaluation to the mutation policy. A decision
// attached to ctx takes precedence. Allow decisions are returned as nil.
func (p Policy) EvalMutation(ctx context.Context, m Mutation) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	return final(p.Mutation.EvalMutation(ctx, m))
}

func final(decision error) error {
	if errors.Is(decision, Allow) {
		return nil
	}
	return decision
}

// EvalQuery evaluates a query against a query policy.
func (policies QueryPolicy) EvalQuery(ctx context.Context, s *sql.Selector) error {
	for _, policy := range policies {
		switch decision := policy.EvalQuery(ctx, s); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

// EvalMutation evaluates a mutation against a mutation policy.
func (policies MutationPolicy) EvalMutation(ctx context.Context, m Mutation) error {
	for _, policy := range policies {
		switch decision := policy.EvalMutation(ctx, m); {
		case decision == nil || errors.Is(decision, Skip):
		default:
			return decision
		}
	}
	return nil
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attach to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalQuery(context.Context, *sql.Selector) error {
	return f.decision
}

func (f fixedDecision) EvalMutation(context.Context, Mutation) error {
	return f.decision
}

type contextDecision struct {
	eval func(context.Context) error
}

func (c contextDecision) EvalQuery(ctx context.Context, _ *sql.Selector) error {
	return c.eval(ctx)
}

func (c contextDecision) EvalMutation(ctx context.Context, _ Mutation) error {
	return c.eval(ctx)
}

// Filter is the interface that wraps the WhereP method for restricting
// the rows read or written by a statement.
type Filter interface {
	// WhereP appends predicates joined with AND.
	WhereP(...ql.P)
}

// Filterable is implemented by mutations writing rows matched by a
// predicate.
type Filterable interface {
	Filter() Filter
}

// FilterFunc is an adapter that allows using ordinary functions as
// query/mutation rules that apply predicates to filter results.
//
//	privacy.FilterFunc(func(ctx context.Context, f privacy.Filter) error {
//	    f.WhereP(ql.FieldEQ("TenantID", tenant))
//	    return privacy.Skip
//	})
type FilterFunc func(context.Context, Filter) error

// EvalQuery calls f with a filter over the selector.
func (f FilterFunc) EvalQuery(ctx context.Context, s *sql.Selector) error {
	return f(ctx, selectorFilter{s})
}

// EvalMutation calls f(ctx, m.Filter()) if the mutation implements Filterable.
func (f FilterFunc) EvalMutation(ctx context.Context, m Mutation) error {
	fr, ok := m.(Filterable)
	if !ok {
		return Denyf("sqlmap/privacy: %s of %s does not support filtering", m.Op(), m.Entity().Name)
	}
	return f(ctx, fr.Filter())
}

type selectorFilter struct{ s *sql.Selector }

func (f selectorFilter) WhereP(ps ...ql.P) {
	for _, p := range ps {
		f.s.Where(p)
	}
}

var _ QueryMutationRule = FilterFunc(nil)
