package ingest_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arboric-proxy/arboric/ingest"
)

func TestIngestRawGraphQL(t *testing.T) {
	doc, counts, err := ingest.Ingest("application/graphql", []byte("{hero{name} hero{id}}"), nil)
	require.Nil(t, err)
	require.Len(t, doc.Operations, 1)
	assert.Equal(t, 2, counts["hero"])
}

func TestIngestJSONBody(t *testing.T) {
	body := `{"query":"{hero{name}}","operationName":"","variables":{}}`
	doc, counts, err := ingest.Ingest("application/json", []byte(body), nil)
	require.Nil(t, err)
	require.Len(t, doc.Operations, 1)
	assert.Equal(t, 1, counts["hero"])
}

func TestIngestUnsupportedContentType(t *testing.T) {
	_, _, err := ingest.Ingest("text/plain", []byte("whatever"), nil)
	require.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
}

func TestIngestAbsentContentTypeParsesAsGraphQL(t *testing.T) {
	doc, counts, err := ingest.Ingest("", []byte("{hero{name}}"), nil)
	require.Nil(t, err)
	require.Len(t, doc.Operations, 1)
	assert.Equal(t, 1, counts["hero"])
}

func TestIngestParseFailure(t *testing.T) {
	_, _, err := ingest.Ingest("application/graphql", []byte("{ not valid ("), nil)
	require.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
}

func TestIngestMalformedJSON(t *testing.T) {
	_, _, err := ingest.Ingest("application/json", []byte("{not json"), nil)
	require.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
}

func TestIngestCountsAcrossMultipleOperations(t *testing.T) {
	doc, counts, err := ingest.Ingest("application/graphql", []byte(
		"query A { hero { name } } query B { hero { id } villain { name } }"), nil)
	require.Nil(t, err)
	require.Len(t, doc.Operations, 2)
	assert.Equal(t, 2, counts["hero"])
	assert.Equal(t, 1, counts["villain"])
}
