package listener_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/config"
	"github.com/arboric-proxy/arboric/graphql"
	"github.com/arboric-proxy/arboric/listener"
	"github.com/arboric-proxy/arboric/telemetry"
	"github.com/arboric-proxy/arboric/token"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(t *testing.T, upstream *httptest.Server, keySource token.KeySource, pdp abac.PDP) http.Handler {
	t.Helper()
	return newHandlerWithTelemetry(t, upstream, keySource, pdp, nil)
}

func newHandlerWithTelemetry(t *testing.T, upstream *httptest.Server, keySource token.KeySource, pdp abac.PDP, telemetryCfg *telemetry.Config) http.Handler {
	t.Helper()
	u, err := url.Parse(upstream.URL + "/graphql")
	require.NoError(t, err)

	lc := config.ListenerConfig{
		Bind:      "localhost",
		Port:      4000,
		Upstream:  u,
		KeySource: keySource,
		PDP:       pdp,
		Telemetry: telemetryCfg,
	}
	l, err := listener.New(lc, testLogger())
	require.NoError(t, err)
	return l.Handler()
}

func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream-Method", r.Method)
		w.Header().Set("X-Upstream-Query", r.URL.RawQuery)
		w.WriteHeader(http.StatusOK)
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
}

func TestGetRequestForwardsQuerystringVerbatim(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	h := newHandler(t, upstream, nil, abac.DefaultPDP())

	req := httptest.NewRequest(http.MethodGet, "/?query={hello}", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("X-Upstream-Method"))
	assert.Equal(t, "query={hello}", rec.Header().Get("X-Upstream-Query"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestMethodNotAllowedFor405(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	h := newHandler(t, upstream, nil, abac.DefaultPDP())

	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetRequestRejectedWithoutBearerTokenWhenKeyConfigured(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	h := newHandler(t, upstream, token.Inline{Data: []byte("s3cret")}, abac.DefaultPDP())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestPostRequestDeniedByPolicyReturns401(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	key := []byte("s3cret")
	pdp := abac.NewPDP(abac.Policy{
		Rules: []abac.Rule{abac.DenyRule(graphql.Parse("mutation:*"))},
	})
	h := newHandler(t, upstream, token.Inline{Data: key}, pdp)

	tok := signToken(t, key, jwt.MapClaims{"sub": "user-1"})
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"mutation { doSomething }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostRequestPermittedForwardsBody(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	key := []byte("s3cret")
	pdp := abac.DefaultPDP()
	h := newHandler(t, upstream, token.Inline{Data: key}, pdp)

	tok := signToken(t, key, jwt.MapClaims{"sub": "user-1"})
	body := `{"query":"{ allowed }"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "POST", rec.Header().Get("X-Upstream-Method"))
}

func TestPostRequestPermittedEmitsTelemetry(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	pointsCh := make(chan []byte, 1)
	influx := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		pointsCh <- body
		w.WriteHeader(http.StatusNoContent)
	}))
	defer influx.Close()

	key := []byte("s3cret")
	pdp := abac.DefaultPDP()
	h := newHandlerWithTelemetry(t, upstream, token.Inline{Data: key}, pdp, &telemetry.Config{
		URI:      influx.URL,
		Database: "arboric",
	})

	tok := signToken(t, key, jwt.MapClaims{"sub": "user-1"})
	body := `{"query":"{ allowed }"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case point := <-pointsCh:
		assert.Contains(t, string(point), "queries")
		assert.Contains(t, string(point), "allowed")
	case <-time.After(2 * time.Second):
		t.Fatal("telemetry point was never written")
	}
}

func TestMalformedGraphQLBodyReturns400(t *testing.T) {
	upstream := echoUpstream(t)
	defer upstream.Close()

	h := newHandler(t, upstream, nil, abac.DefaultPDP())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"query":"{ not valid"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpstreamUnreachableReturns502(t *testing.T) {
	upstream := echoUpstream(t)
	upstream.Close() // close immediately so it's unreachable

	h := newHandler(t, upstream, nil, abac.DefaultPDP())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
