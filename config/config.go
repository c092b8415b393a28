// Package config loads Arboric's YAML configuration file (spec §6) into the
// domain types the rest of the pipeline consumes, and provides a fluent
// ListenerConfigBuilder for programmatic construction.
package config

import (
	"fmt"
	"net/url"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/telemetry"
	"github.com/arboric-proxy/arboric/token"
)

// Config is the fully resolved configuration: the global log settings plus
// every configured listener.
type Config struct {
	Log       LogConfig
	Listeners []ListenerConfig
}

// LogConfig mirrors arboric.log from §6: console and/or file sinks with a
// level each.
type LogConfig struct {
	Console *ConsoleLog
	File    *FileLog
}

// ConsoleLog configures the console log sink.
type ConsoleLog struct {
	Level string
}

// FileLog configures the file log sink.
type FileLog struct {
	Level    string
	Location string
}

// ListenerConfig is one entry of listeners: §6.
type ListenerConfig struct {
	Bind       string
	Port       uint16
	PathPrefix string
	Upstream   *url.URL
	KeySource  token.KeySource // nil -> authentication skipped (spec §4.6)
	PDP        abac.PDP
	Telemetry  *telemetry.Config // nil -> no telemetry sink configured
}

// Validate checks the invariants listener construction depends on (spec §3
// invariants): a resolvable, absolute upstream URL and a non-zero port.
func (lc ListenerConfig) Validate() error {
	if lc.Bind == "" {
		return fmt.Errorf("config: listener bind address is required")
	}
	if lc.Port == 0 {
		return fmt.Errorf("config: listener port is required")
	}
	if lc.Upstream == nil || lc.Upstream.Scheme == "" || lc.Upstream.Host == "" {
		return fmt.Errorf("config: listener proxy must be an absolute URL")
	}
	return nil
}
