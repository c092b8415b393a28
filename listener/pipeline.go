package listener

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/apierr"
	"github.com/arboric-proxy/arboric/ingest"
)

// requestIDHeader names the response header a request id is surfaced to the
// client under, matching the teacher's request-tracing convention. The id is
// not added to the request forwarded upstream.
const requestIDHeader = "X-Request-Id"

// telemetryWriteTimeout bounds the fire-and-forget InfluxDB write. It is
// deliberately detached from the inbound request's context: net/http cancels
// that context the instant ServeHTTP returns, which would race the telemetry
// goroutine's write on every ordinary (non-disconnected) request, not just
// the client-disconnect case spec §5 calls out.
const telemetryWriteTimeout = 5 * time.Second

// ServeHTTP runs the pipeline state machine (spec §4.8):
//
//	Accepted   --method--> GetPath | PostPath | Rejected(405)
//	GetPath    --auth(if configured)--> Forwarded | Rejected(401)
//	PostPath   --auth(if configured)--> BodyDrain | Rejected(401)
//	BodyDrain  --parse--> Authorizing | Rejected(400)
//	Authorizing--pdp--> Forwarding | Rejected(401)
//	Forwarding --upstream ok--> Responded
//	Forwarding --upstream error--> Responded(502)
func (c *ListenerContext) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set(requestIDHeader, id)
	log := c.log.With("request_id", id, "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodGet:
		c.serveGet(w, r, log)
	case http.MethodPost:
		c.servePost(w, r, log)
	default:
		apierr.WriteTo(w, apierr.MethodNotAllowed("method not allowed: "+r.Method))
	}
}

// serveGet authenticates (if a key is configured) and forwards the request
// verbatim. GET requests are never parsed or run through the PDP — spec §2
// describes GET as querystring-forwarding only.
func (c *ListenerContext) serveGet(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	if _, apiErr := c.authenticate(r); apiErr != nil {
		log.Warn("rejected GET request", "error", apiErr)
		apierr.WriteTo(w, apiErr)
		return
	}
	c.forward(w, r, http.MethodGet, c.upstreamForGet(r), nil, log)
}

// servePost authenticates, drains and parses the body, authorizes against
// the PDP, forwards to upstream, and fires telemetry once permitted.
func (c *ListenerContext) servePost(w http.ResponseWriter, r *http.Request, log *slog.Logger) {
	claims, apiErr := c.authenticate(r)
	if apiErr != nil {
		log.Warn("rejected POST request", "error", apiErr)
		apierr.WriteTo(w, apiErr)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		apierr.WriteTo(w, apierr.BadRequest("could not read request body", err))
		return
	}
	_ = r.Body.Close()

	doc, counts, apiErr := ingest.Ingest(r.Header.Get("Content-Type"), body, log)
	if apiErr != nil {
		log.Warn("rejected POST request", "error", apiErr)
		apierr.WriteTo(w, apiErr)
		return
	}

	req := abac.Request{Claims: claims, Document: doc}
	if !c.pdp.Decide(req) {
		log.Info("request denied by policy")
		apierr.WriteTo(w, apierr.Unauthorized("request denied by policy"))
		return
	}

	if c.sink != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), telemetryWriteTimeout)
			defer cancel()
			c.sink.WritePoints(ctx, counts)
		}()
	}

	c.forward(w, r, http.MethodPost, c.upstreamForPost(), bytes.NewReader(body), log)
}

// authenticate returns the empty claim set with no error when the listener
// has no signing key configured (spec §4.6: authentication is opt-in per
// listener).
func (c *ListenerContext) authenticate(r *http.Request) (abac.Claims, *apierr.Error) {
	if c.verifier == nil {
		return abac.Claims{}, nil
	}
	return c.verifier.Verify(r.Header.Get("Authorization"))
}

// upstreamForGet appends the inbound query string verbatim to the
// configured upstream's scheme/authority/path (spec §2).
func (c *ListenerContext) upstreamForGet(r *http.Request) *url.URL {
	u := *c.upstream
	u.RawQuery = r.URL.RawQuery
	return &u
}

// upstreamForPost uses the configured upstream URL exactly as configured,
// with no path or query rewriting (spec §2).
func (c *ListenerContext) upstreamForPost() *url.URL {
	u := *c.upstream
	return &u
}

// forward builds and relays the outbound upstream request, streaming the
// upstream's response back to w. Any failure to reach upstream becomes a
// 502 (spec §7).
func (c *ListenerContext) forward(w http.ResponseWriter, r *http.Request, method string, target *url.URL, body io.Reader, log *slog.Logger) {
	outReq, err := http.NewRequestWithContext(r.Context(), method, target.String(), body)
	if err != nil {
		apierr.WriteTo(w, apierr.BadGateway("could not build upstream request", err))
		return
	}
	copyHeaders(r.Header, outReq.Header)

	resp, err := c.client.Do(outReq)
	if err != nil {
		log.Error("upstream request failed", "upstream", target.String(), "error", err)
		apierr.WriteTo(w, apierr.BadGateway("upstream request failed", err))
		return
	}
	defer resp.Body.Close()

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn("error streaming upstream response", "error", err)
	}
}

// copyHeaders copies every inbound header except Host onto the outbound
// request — Host must reflect the upstream, not the original client-facing
// listener (spec §2).
func copyHeaders(in http.Header, out http.Header) {
	for k, vs := range in {
		if strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vs {
			out.Add(k, v)
		}
	}
}
