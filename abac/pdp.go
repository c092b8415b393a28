// Package abac implements the attribute-based access-control Policy
// Decision Point: Pattern-wrapping Rules, claim-predicate MatchAttributes,
// Policies that combine them, and the PDP that aggregates Policies into a
// single allow/deny verdict for a Request (spec §4.3–§4.5).
package abac

import "github.com/arboric-proxy/arboric/graphql"

// PDP aggregates Policies and computes the final allow/deny decision for a
// Request. Order among policies is not load-bearing: the combining rule is
// existential (spec §4.5).
type PDP struct {
	Policies []Policy
}

// NewPDP constructs a PDP from the given policies.
func NewPDP(policies ...Policy) PDP {
	return PDP{Policies: policies}
}

// DefaultPDP mirrors the original Rust implementation's default PDP
// (Policy::Allow(Pattern::parse("query:*"))): a single policy that applies
// to every request and allows any query. It is a convenience for tests and
// the starting PDP of config.NewListenerConfigBuilder. It is NOT a fallback
// used on configuration-parse failure (spec §9 explicitly rejects that
// fallback), and a listener loaded from YAML with no policies entries gets
// an empty PDP, which denies every request.
func DefaultPDP() PDP {
	return NewPDP(Policy{
		Rules: []Rule{AllowRule(graphql.Parse("query:*"))},
	})
}

// Decide returns the PDP's allow/deny decision for req, per spec §4.5:
//   - zero policies -> deny
//   - otherwise, permit iff any applicable policy (AppliesTo true) decides
//     true; a request no policy applies to is denied (default deny).
func (pdp PDP) Decide(req Request) bool {
	if len(pdp.Policies) == 0 {
		return false
	}
	for _, policy := range pdp.Policies {
		if policy.AppliesTo(req) && policy.Decide(req) {
			return true
		}
	}
	return false
}
