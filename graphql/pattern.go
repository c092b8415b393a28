// Package graphql implements the Pattern matcher used to express ABAC rules
// against parsed GraphQL operations, and thin helpers around the
// vektah/gqlparser/v2 AST used as Arboric's Document representation.
package graphql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// FieldPattern is a glob over a GraphQL field name. '*' matches any
// substring; the match is anchored at both ends and case-sensitive. The
// glob is compiled to a regular expression once, at construction, so a
// Pattern built from config can be matched repeatedly on the hot path
// without recompiling.
type FieldPattern struct {
	raw      string
	compiled *regexp.Regexp
}

// NewFieldPattern compiles a glob string into a FieldPattern.
func NewFieldPattern(glob string) FieldPattern {
	quoted := regexp.QuoteMeta(glob)
	quoted = strings.ReplaceAll(quoted, `\*`, ".*")
	return FieldPattern{
		raw:      glob,
		compiled: regexp.MustCompile("^" + quoted + "$"),
	}
}

// Matches reports whether name satisfies the glob.
func (fp FieldPattern) Matches(name string) bool {
	return fp.compiled.MatchString(name)
}

func (fp FieldPattern) String() string {
	return fp.raw
}

// PatternKind discriminates the three Pattern variants.
type PatternKind int

const (
	// KindAny matches every operation unconditionally.
	KindAny PatternKind = iota
	// KindQuery matches a Query (or anonymous shorthand) operation whose
	// top-level field names satisfy the inner FieldPattern.
	KindQuery
	// KindMutation matches a Mutation operation whose top-level field
	// names satisfy the inner FieldPattern.
	KindMutation
)

// Pattern is the tagged sum Any | Query(FieldPattern) | Mutation(FieldPattern)
// described in spec §3. Patterns are immutable values; equality is
// structural via Equal (two Patterns built from the same Parse input are
// Equal). The == operator also compares the compiled regular expression by
// pointer, so it does not report such Patterns equal.
type Pattern struct {
	Kind  PatternKind
	Field FieldPattern
}

// Equal reports whether p and q have the same Kind and the same glob text.
func (p Pattern) Equal(q Pattern) bool {
	return p.Kind == q.Kind && p.Field.raw == q.Field.raw
}

// Any is the Pattern that matches every operation.
var Any = Pattern{Kind: KindAny}

// Parse parses a pattern string per the grammar in spec §3. It never fails:
//   - "*"                -> Any
//   - "query:<rest>"     -> Query(<rest>)
//   - "mutation:<rest>"  -> Mutation(<rest>)
//   - anything else      -> Query(<whole string>)
func Parse(s string) Pattern {
	if s == "*" {
		return Any
	}
	if rest, ok := strings.CutPrefix(s, "query:"); ok {
		return Pattern{Kind: KindQuery, Field: NewFieldPattern(rest)}
	}
	if rest, ok := strings.CutPrefix(s, "mutation:"); ok {
		return Pattern{Kind: KindMutation, Field: NewFieldPattern(rest)}
	}
	return Pattern{Kind: KindQuery, Field: NewFieldPattern(s)}
}

// String is the inverse of Parse: Parse(p.String()) yields a Pattern equal
// to p for every canonical form.
func (p Pattern) String() string {
	switch p.Kind {
	case KindAny:
		return "*"
	case KindMutation:
		return fmt.Sprintf("mutation:%s", p.Field)
	default:
		return fmt.Sprintf("query:%s", p.Field)
	}
}

// Matches reports whether the Pattern matches op, per spec §4.1:
//   - Any matches unconditionally.
//   - Query(fp) matches a Query or anonymous-shorthand operation with at
//     least one top-level Field selection whose name satisfies fp.
//   - Mutation(fp) matches a Mutation operation with at least one top-level
//     Field selection whose name satisfies fp.
func (p Pattern) Matches(op *ast.OperationDefinition) bool {
	if p.Kind == KindAny {
		return true
	}
	switch p.Kind {
	case KindQuery:
		if op.Operation != ast.Query {
			return false
		}
	case KindMutation:
		if op.Operation != ast.Mutation {
			return false
		}
	}
	return AnyTopLevelField(op.SelectionSet, p.Field)
}

// Document is Arboric's parsed-AST representation (spec §3): the
// vektah/gqlparser/v2 query document produced by ingest.Parse.
type Document = ast.QueryDocument

// Operation is a single Definition of the Document (spec §3).
type Operation = ast.OperationDefinition

// AnyTopLevelField reports whether any top-level Field selection in set has
// a name satisfying fp. Non-Field selections (FragmentSpread,
// InlineFragment) are ignored, per spec §3's "other selection kinds are
// treated as non-matching".
func AnyTopLevelField(set ast.SelectionSet, fp FieldPattern) bool {
	for _, sel := range set {
		if field, ok := sel.(*ast.Field); ok && fp.Matches(field.Name) {
			return true
		}
	}
	return false
}
