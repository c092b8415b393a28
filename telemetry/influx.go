// Package telemetry formats and writes per-field query-count points to an
// InfluxDB time-series sink (spec §4.9). Point/tag/field naming follows the
// original Rust implementation's influx_db_client usage exactly: measurement
// "queries", tag field=<name>, integer field n=<count>, millisecond
// precision.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/arboric-proxy/arboric/ingest"
)

const measurement = "queries"

// Config names an InfluxDB endpoint (spec §6: log_to.influx_db: {uri,
// database}). No token/org is configurable — Arboric writes in InfluxDB
// 1.x compatibility mode, matching the database-only shape the spec names.
type Config struct {
	URI      string
	Database string
}

// Sink writes FieldCounts to InfluxDB. Failures are logged and swallowed:
// telemetry never blocks or fails a request (spec §4.9, §5).
type Sink struct {
	writeAPI api.WriteAPIBlocking
	client   influxdb2.Client
	log      *slog.Logger
}

// NewSink acquires (lazily, on first write) an outbound connection to the
// configured InfluxDB endpoint, writing at millisecond precision to match
// original_source/src/arboric/influxdb/mod.rs's Precision::Milliseconds. The
// connection is reused across writes and released by Close at listener
// shutdown (spec §5).
func NewSink(cfg Config, log *slog.Logger) *Sink {
	opts := influxdb2.DefaultOptions().SetPrecision(time.Millisecond)
	client := influxdb2.NewClientWithOptions(cfg.URI, "", opts)
	return &Sink{
		writeAPI: client.WriteAPIBlocking("", cfg.Database),
		client:   client,
		log:      log,
	}
}

// WritePoints emits one point per (field, n) pair into the "queries"
// measurement. This is fire-and-forget from the pipeline's perspective:
// errors are logged here and never returned to the caller.
func (s *Sink) WritePoints(ctx context.Context, counts ingest.FieldCounts) {
	if s == nil || len(counts) == 0 {
		return
	}
	now := time.Now()
	for field, n := range counts {
		point := influxdb2.NewPoint(
			measurement,
			map[string]string{"field": field},
			map[string]any{"n": n},
			now,
		)
		if err := s.writeAPI.WritePoint(ctx, point); err != nil {
			s.log.Error("telemetry write failed", "field", field, "error", err)
		}
	}
}

// Close releases the sink's outbound connection.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.client.Close()
}
