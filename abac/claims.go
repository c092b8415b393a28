package abac

import "github.com/arboric-proxy/arboric/graphql"

// Claims is the JSON claim set extracted from a validated bearer token, or
// the empty map when a listener has no signing key configured (spec §4.6).
// Keys are unique; insertion order is irrelevant. Claims are immutable once
// constructed.
type Claims map[string]any

// Request is the (Claims, Document) tuple handed to the PDP for a single
// HTTP exchange (spec §3).
type Request struct {
	Claims   Claims
	Document *graphql.Document
}

// stringClaim returns the claim value as a string and whether it is present
// and actually a JSON string, per spec §3: Equals/Includes fail (not error)
// when the claim is absent or not a string.
func (c Claims) stringClaim(name string) (string, bool) {
	v, ok := c[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
