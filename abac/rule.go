package abac

import "github.com/arboric-proxy/arboric/graphql"

// Decision is the tri-state result of a single Rule against an operation.
// Collapsing this to bool would lose the "rule did not apply" state that
// Policy.decideOperation needs to fold correctly (spec §4.2, design notes §9).
type Decision int

const (
	// NoOpinion means the rule's pattern did not match the operation.
	NoOpinion Decision = iota
	// Permit means an Allow rule's pattern matched.
	Permit
	// Deny means a Deny rule's pattern matched.
	Deny
)

// Effect is Allow or Deny, the verdict a Rule wraps around a Pattern.
type Effect int

const (
	// EffectAllow marks a Rule as an allow rule.
	EffectAllow Effect = iota
	// EffectDeny marks a Rule as a deny rule.
	EffectDeny
)

// Rule pairs a graphql.Pattern with an Allow/Deny verdict (spec §4.2).
// Rule is an immutable value.
type Rule struct {
	Effect  Effect
	Pattern graphql.Pattern
}

// AllowRule constructs an Allow(pattern) Rule.
func AllowRule(p graphql.Pattern) Rule {
	return Rule{Effect: EffectAllow, Pattern: p}
}

// DenyRule constructs a Deny(pattern) Rule.
func DenyRule(p graphql.Pattern) Rule {
	return Rule{Effect: EffectDeny, Pattern: p}
}

// Matches delegates to the inner Pattern regardless of Effect.
func (r Rule) Matches(op *graphql.Operation) bool {
	return r.Pattern.Matches(op)
}

// Decide returns Permit if an Allow pattern matches, Deny if a Deny pattern
// matches, and NoOpinion if the pattern does not match at all. An
// Allow(foo) rule gives no opinion on a request that doesn't mention foo —
// it never denies it.
func (r Rule) Decide(op *graphql.Operation) Decision {
	if !r.Matches(op) {
		return NoOpinion
	}
	if r.Effect == EffectDeny {
		return Deny
	}
	return Permit
}
