// Package listener implements the per-connection request-authorization
// pipeline: authenticate -> parse -> authorize -> forward -> telemetry-emit
// (spec §4.8, §5).
package listener

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/config"
	"github.com/arboric-proxy/arboric/telemetry"
	"github.com/arboric-proxy/arboric/token"
)

// defaultUpstreamTimeout bounds the whole request/response cycle to the
// upstream, matching spec §5's "reasonable default (e.g. 30s)".
const defaultUpstreamTimeout = 30 * time.Second

// ListenerContext is the shared, immutable-after-construction state every
// concurrent handler reads: the resolved key bytes (via a Verifier), the
// PDP, the upstream URL, and the telemetry sink handle (spec §4.8, §5). No
// locks are required on the hot path because nothing here is mutated once
// New returns.
type ListenerContext struct {
	pathPrefix string
	upstream   *url.URL
	verifier   *token.Verifier // nil -> authentication is skipped entirely
	pdp        abac.PDP
	sink       *telemetry.Sink // nil -> no telemetry configured
	client     *http.Client
	log        *slog.Logger
}

// NewContext resolves cfg's signing-key source (if any) and constructs the
// shared listener state. A signing-key source that cannot produce bytes
// fails construction (spec §3 invariants); nothing listens until this
// succeeds.
func NewContext(cfg config.ListenerConfig, log *slog.Logger) (*ListenerContext, error) {
	key, err := token.ResolveSigningKey(cfg.KeySource)
	if err != nil {
		return nil, err
	}

	var verifier *token.Verifier
	if key != nil {
		verifier = token.NewVerifier(key)
	}

	var sink *telemetry.Sink
	if cfg.Telemetry != nil {
		sink = telemetry.NewSink(*cfg.Telemetry, log)
	}

	return &ListenerContext{
		pathPrefix: cfg.PathPrefix,
		upstream:   cfg.Upstream,
		verifier:   verifier,
		pdp:        cfg.PDP,
		sink:       sink,
		client:     &http.Client{Timeout: defaultUpstreamTimeout},
		log:        log,
	}, nil
}

// Close releases the telemetry sink's outbound connection (spec §5:
// released at listener shutdown).
func (c *ListenerContext) Close() {
	c.sink.Close()
}
