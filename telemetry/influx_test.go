package telemetry_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arboric-proxy/arboric/ingest"
	"github.com/arboric-proxy/arboric/telemetry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWritePointsSendsOnePointPerField(t *testing.T) {
	var received []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := telemetry.NewSink(telemetry.Config{URI: srv.URL, Database: "arboric"}, testLogger())
	defer sink.Close()

	sink.WritePoints(context.Background(), ingest.FieldCounts{"hello": 2})

	require.NotEmpty(t, received)
	assert.True(t, bytes.Contains(received, []byte("queries")))
	assert.True(t, bytes.Contains(received, []byte("hello")))
}

func TestWritePointsWithEmptyCountsIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := telemetry.NewSink(telemetry.Config{URI: srv.URL, Database: "arboric"}, testLogger())
	defer sink.Close()

	sink.WritePoints(context.Background(), ingest.FieldCounts{})
	assert.False(t, called)
}

func TestWritePointsOnNilSinkIsSafe(t *testing.T) {
	var sink *telemetry.Sink
	assert.NotPanics(t, func() {
		sink.WritePoints(context.Background(), ingest.FieldCounts{"x": 1})
		sink.Close()
	})
}

func TestWritePointsSwallowsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := telemetry.NewSink(telemetry.Config{URI: srv.URL, Database: "arboric"}, testLogger())
	defer sink.Close()

	assert.NotPanics(t, func() {
		sink.WritePoints(context.Background(), ingest.FieldCounts{"hello": 1})
	})
}
