package config

import (
	"net/url"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/telemetry"
	"github.com/arboric-proxy/arboric/token"
)

// ListenerConfigBuilder fluently assembles a ListenerConfig without a YAML
// file on disk, grounded on the original Rust implementation's
// config::builder/config::listener_builder modules. Useful for tests and
// for embedding Arboric in another Go program.
type ListenerConfigBuilder struct {
	cfg ListenerConfig
}

// NewListenerConfigBuilder starts a builder with the default PDP (spec §9
// / original_source: a single allow-all-queries policy) and localhost
// binding.
func NewListenerConfigBuilder() *ListenerConfigBuilder {
	return &ListenerConfigBuilder{cfg: ListenerConfig{
		Bind: "localhost",
		PDP:  abac.DefaultPDP(),
	}}
}

// Bind sets the listener's bind address.
func (b *ListenerConfigBuilder) Bind(addr string) *ListenerConfigBuilder {
	b.cfg.Bind = addr
	return b
}

// Port sets the listener's port.
func (b *ListenerConfigBuilder) Port(port uint16) *ListenerConfigBuilder {
	b.cfg.Port = port
	return b
}

// PathPrefix sets the optional path prefix the listener mounts under.
func (b *ListenerConfigBuilder) PathPrefix(prefix string) *ListenerConfigBuilder {
	b.cfg.PathPrefix = prefix
	return b
}

// Upstream sets the upstream GraphQL API URL.
func (b *ListenerConfigBuilder) Upstream(raw string) *ListenerConfigBuilder {
	u, err := url.Parse(raw)
	if err == nil {
		b.cfg.Upstream = u
	}
	return b
}

// KeySource sets the signing-key source used for bearer-token validation.
// Omitting this call leaves authentication disabled for the listener.
func (b *ListenerConfigBuilder) KeySource(src token.KeySource) *ListenerConfigBuilder {
	b.cfg.KeySource = src
	return b
}

// PDP replaces the default PDP.
func (b *ListenerConfigBuilder) PDP(pdp abac.PDP) *ListenerConfigBuilder {
	b.cfg.PDP = pdp
	return b
}

// Telemetry sets the InfluxDB telemetry sink configuration.
func (b *ListenerConfigBuilder) Telemetry(cfg telemetry.Config) *ListenerConfigBuilder {
	b.cfg.Telemetry = &cfg
	return b
}

// Build validates and returns the assembled ListenerConfig.
func (b *ListenerConfigBuilder) Build() (ListenerConfig, error) {
	if err := b.cfg.Validate(); err != nil {
		return ListenerConfig{}, err
	}
	return b.cfg, nil
}
