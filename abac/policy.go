package abac

import "github.com/arboric-proxy/arboric/graphql"

// Policy is a conjunction of MatchAttributes gating an ordered list of
// Rules (spec §3, §4.4). Both lists preserve configured order; rule order
// is load-bearing when patterns overlap. Policy is an immutable value.
type Policy struct {
	Attributes []MatchAttribute
	Rules      []Rule
}

// AppliesTo reports whether every MatchAttribute matches the request's
// claims. An empty attribute list applies to every request.
func (p Policy) AppliesTo(req Request) bool {
	for _, attr := range p.Attributes {
		if !attr.Matches(req.Claims) {
			return false
		}
	}
	return true
}

// Decide computes the policy's verdict for req, assuming AppliesTo(req) is
// true — callers that haven't checked AppliesTo get an unspecified answer.
//
// A Policy with zero Rules neither allows nor denies anything: its
// contribution is "no opinion", which at the policy level counts as deny
// (spec §3 invariants) — distinct from a Rule within a non-empty list that
// simply doesn't match an operation, which leaves that operation
// unconstrained (spec §4.4's tie-break: "if no rule has any opinion the
// operation is permitted").
//
// Otherwise the verdict is the AND, across every top-level definition in the
// document, of decideOperation — and a top-level fragment definition (not an
// operation at all) always trips the AND to false (spec §4.4: non-Operation
// top-level definitions yield false), matching
// original_source/src/arboric/abac/mod.rs's decide, which folds over every
// definition and has no permissive arm for anything but a recognized
// operation.
func (p Policy) Decide(req Request) bool {
	if len(p.Rules) == 0 {
		return false
	}
	if len(req.Document.Fragments) > 0 {
		return false
	}
	for _, op := range req.Document.Operations {
		if !p.decideOperation(op) {
			return false
		}
	}
	return true
}

// decideOperation folds the policy's ordered rules against a single
// operation: any explicit Deny match beats any Allow match (tie-break), an
// Allow match with no opposing Deny permits, and an operation no rule has
// any opinion on is permitted (spec §4.4).
func (p Policy) decideOperation(op *graphql.Operation) bool {
	sawPermit := false
	for _, rule := range p.Rules {
		switch rule.Decide(op) {
		case Deny:
			return false
		case Permit:
			sawPermit = true
		case NoOpinion:
			// no opinion: keep folding
		}
	}
	if sawPermit {
		return true
	}
	// Zero rules, or no rule had any opinion: unconstrained, permitted.
	return true
}
