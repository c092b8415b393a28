// Package ingest decodes an inbound GraphQL request body and parses it to
// an AST, per spec §4.7.
package ingest

import (
	"encoding/json"
	"log/slog"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/arboric-proxy/arboric/apierr"
	"github.com/arboric-proxy/arboric/graphql"
)

// FieldCounts maps a top-level field name to the number of occurrences
// across all operations in a Document. Purely for telemetry; it never
// influences authorization (spec §4.7).
type FieldCounts map[string]int

// jsonBody is the application/json wire shape: {"query": string,
// "operationName"?: string, "variables"?: object} (spec §4.7, §6).
type jsonBody struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Ingest decodes body according to contentType and parses the resulting
// query text to a Document, also computing per-field counts for
// telemetry.
//
//   - "application/graphql" -> body is the raw query document.
//   - "application/json"    -> body is jsonBody; its "query" field is
//     parsed.
//   - any other type        -> 400 Bad Request.
//   - absent Content-Type   -> attempt application/graphql and log a
//     warning.
func Ingest(contentType string, body []byte, log *slog.Logger) (*graphql.Document, FieldCounts, *apierr.Error) {
	var query string

	switch contentType {
	case "application/graphql":
		query = string(body)
	case "application/json":
		var parsed jsonBody
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, nil, apierr.BadRequest("malformed JSON request body", err)
		}
		query = parsed.Query
	case "":
		if log != nil {
			log.Warn("request has no Content-Type; treating body as application/graphql")
		}
		query = string(body)
	default:
		return nil, nil, apierr.BadRequest("unsupported Content-Type: "+contentType, nil)
	}

	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: query})
	if gqlErr != nil {
		return nil, nil, apierr.BadRequest("could not parse GraphQL document", gqlErr)
	}

	return doc, countTopLevelFields(doc), nil
}

func countTopLevelFields(doc *graphql.Document) FieldCounts {
	counts := FieldCounts{}
	for _, op := range doc.Operations {
		for _, sel := range op.SelectionSet {
			if field, ok := sel.(*ast.Field); ok {
				counts[field.Name]++
			}
		}
	}
	return counts
}
