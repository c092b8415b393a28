package listener

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arboric-proxy/arboric/config"
)

// Listener binds one configured address/port and mounts its pipeline
// handler under the configured path prefix (spec §6: bind, port,
// path_prefix).
type Listener struct {
	cfg config.ListenerConfig
	ctx *ListenerContext
}

// New constructs a Listener from cfg. It resolves the signing key and
// telemetry sink eagerly, so a bad configuration fails before Serve is ever
// called.
func New(cfg config.ListenerConfig, log *slog.Logger) (*Listener, error) {
	ctx, err := NewContext(cfg, log)
	if err != nil {
		return nil, err
	}
	return &Listener{cfg: cfg, ctx: ctx}, nil
}

// Addr returns the bind:port the listener will serve on.
func (l *Listener) Addr() string {
	return fmt.Sprintf("%s:%d", l.cfg.Bind, l.cfg.Port)
}

// Handler builds the chi router for this listener: every request under the
// configured path prefix (or every request, with no prefix configured) goes
// through the pipeline's ServeHTTP.
func (l *Listener) Handler() http.Handler {
	r := chi.NewRouter()
	h := http.HandlerFunc(l.ctx.ServeHTTP)

	prefix := l.cfg.PathPrefix
	if prefix == "" {
		r.Handle("/*", h)
		return r
	}
	r.Route(prefix, func(sr chi.Router) {
		sr.Handle("/*", h)
	})
	return r
}

// ListenAndServe blocks serving this listener's Handler on Addr.
func (l *Listener) ListenAndServe() error {
	srv := &http.Server{
		Addr:    l.Addr(),
		Handler: l.Handler(),
	}
	return srv.ListenAndServe()
}

// Close releases resources (the telemetry sink's connection) held by the
// listener's pipeline state.
func (l *Listener) Close() {
	l.ctx.Close()
}
