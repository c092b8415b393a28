package abac

import "strings"

// MatchAttributeKind discriminates the MatchAttribute variants (spec §3).
type MatchAttributeKind int

const (
	// AttrAny matches every request's claims.
	AttrAny MatchAttributeKind = iota
	// AttrClaimPresent matches when a named claim key exists.
	AttrClaimPresent
	// AttrClaimEquals matches when a named claim's string value equals a
	// configured value.
	AttrClaimEquals
	// AttrClaimIncludes matches when a named claim's comma-separated
	// string value includes a configured element.
	AttrClaimIncludes
)

// MatchAttribute is a single claim predicate tested against a Request's
// claim set (spec §3, §4.3). MatchAttribute is an immutable value.
type MatchAttribute struct {
	Kind  MatchAttributeKind
	Claim string
	Value string // used by AttrClaimEquals
	Elem  string // used by AttrClaimIncludes
}

// AnyAttribute is the MatchAttribute that matches every request.
var AnyAttribute = MatchAttribute{Kind: AttrAny}

// ClaimPresent builds an AttrClaimPresent MatchAttribute.
func ClaimPresent(claim string) MatchAttribute {
	return MatchAttribute{Kind: AttrClaimPresent, Claim: claim}
}

// ClaimEquals builds an AttrClaimEquals MatchAttribute.
func ClaimEquals(claim, value string) MatchAttribute {
	return MatchAttribute{Kind: AttrClaimEquals, Claim: claim, Value: value}
}

// ClaimIncludes builds an AttrClaimIncludes MatchAttribute.
func ClaimIncludes(claim, elem string) MatchAttribute {
	return MatchAttribute{Kind: AttrClaimIncludes, Claim: claim, Elem: elem}
}

// Matches tests the predicate against claims, per spec §4.3. Equals and
// Includes fail (return false, never error) when the claim key is absent
// or the value is not a JSON string.
func (m MatchAttribute) Matches(claims Claims) bool {
	switch m.Kind {
	case AttrAny:
		return true
	case AttrClaimPresent:
		_, ok := claims[m.Claim]
		return ok
	case AttrClaimEquals:
		v, ok := claims.stringClaim(m.Claim)
		return ok && v == m.Value
	case AttrClaimIncludes:
		v, ok := claims.stringClaim(m.Claim)
		if !ok {
			return false
		}
		for _, elem := range strings.Split(v, ",") {
			if elem == m.Elem {
				return true
			}
		}
		return false
	default:
		return false
	}
}
