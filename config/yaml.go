package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arboric-proxy/arboric/abac"
	"github.com/arboric-proxy/arboric/graphql"
	"github.com/arboric-proxy/arboric/telemetry"
	"github.com/arboric-proxy/arboric/token"
)

// LoadYAML reads and parses the Arboric configuration file at path. Any
// problem — unreadable file, invalid YAML, an invalid key-source definition,
// or an invalid upstream URL — is a fatal configuration error (spec §7). The
// key source itself is not read here; listener construction resolves it. This
// repo does not fall back to a permissive default PDP on a parse failure
// the way the original's loader did (spec §9).
func LoadYAML(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	var raw rawConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return raw.resolve()
}

type rawConfig struct {
	Arboric struct {
		Log rawLog `yaml:"log"`
	} `yaml:"arboric"`
	Listeners []rawListener `yaml:"listeners"`
}

type rawLog struct {
	Console *struct {
		Level string `yaml:"level"`
	} `yaml:"console"`
	File *struct {
		Level    string `yaml:"level"`
		Location string `yaml:"location"`
	} `yaml:"file"`
}

type rawListener struct {
	Bind          string          `yaml:"bind"`
	Port          uint16          `yaml:"port"`
	PathPrefix    string          `yaml:"path_prefix"`
	Proxy         string          `yaml:"proxy"`
	JwtSigningKey *rawKeySource   `yaml:"jwt_signing_key"`
	LogTo         *rawLogTo       `yaml:"log_to"`
	Policies      []rawPolicy     `yaml:"policies"`
}

type rawKeySource struct {
	FromEnv *struct {
		Key      string `yaml:"key"`
		Encoding string `yaml:"encoding"`
	} `yaml:"from_env"`
	FromFile *struct {
		Name     string `yaml:"name"`
		Encoding string `yaml:"encoding"`
	} `yaml:"from_file"`
}

type rawLogTo struct {
	InfluxDB *struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"influx_db"`
}

type rawPolicy struct {
	When  []yaml.Node `yaml:"when"`
	Allow []yaml.Node `yaml:"allow"`
	Deny  []yaml.Node `yaml:"deny"`
}

func (raw rawConfig) resolve() (*Config, error) {
	cfg := &Config{Log: raw.Arboric.Log.resolve()}

	for i, rl := range raw.Listeners {
		lc, err := rl.resolve()
		if err != nil {
			return nil, fmt.Errorf("config: listener[%d]: %w", i, err)
		}
		cfg.Listeners = append(cfg.Listeners, lc)
	}
	return cfg, nil
}

func (rl rawLog) resolve() LogConfig {
	var lc LogConfig
	if rl.Console != nil {
		lc.Console = &ConsoleLog{Level: rl.Console.Level}
	}
	if rl.File != nil {
		lc.File = &FileLog{Level: rl.File.Level, Location: rl.File.Location}
	}
	return lc
}

func (rl rawListener) resolve() (ListenerConfig, error) {
	upstream, err := url.Parse(rl.Proxy)
	if err != nil {
		return ListenerConfig{}, fmt.Errorf("invalid proxy URL %q: %w", rl.Proxy, err)
	}

	keySource, err := rl.JwtSigningKey.resolve()
	if err != nil {
		return ListenerConfig{}, err
	}

	pdp, err := resolvePolicies(rl.Policies)
	if err != nil {
		return ListenerConfig{}, err
	}

	lc := ListenerConfig{
		Bind:       rl.Bind,
		Port:       rl.Port,
		PathPrefix: rl.PathPrefix,
		Upstream:   upstream,
		KeySource:  keySource,
		PDP:        pdp,
		Telemetry:  rl.LogTo.resolve(),
	}
	if err := lc.Validate(); err != nil {
		return ListenerConfig{}, err
	}
	return lc, nil
}

func (rk *rawKeySource) resolve() (token.KeySource, error) {
	if rk == nil {
		return nil, nil
	}
	switch {
	case rk.FromEnv != nil:
		enc, err := token.ParseEncoding(rk.FromEnv.Encoding)
		if err != nil {
			return nil, err
		}
		return token.FromEnv{Name: rk.FromEnv.Key, Encoding: enc}, nil
	case rk.FromFile != nil:
		enc, err := token.ParseEncoding(rk.FromFile.Encoding)
		if err != nil {
			return nil, err
		}
		return token.FromFile{Path: rk.FromFile.Name, Encoding: enc}, nil
	default:
		return nil, fmt.Errorf("jwt_signing_key must set from_env or from_file")
	}
}

func (rt *rawLogTo) resolve() *telemetry.Config {
	if rt == nil || rt.InfluxDB == nil {
		return nil
	}
	return &telemetry.Config{URI: rt.InfluxDB.URI, Database: rt.InfluxDB.Database}
}

func resolvePolicies(raws []rawPolicy) (abac.PDP, error) {
	policies := make([]abac.Policy, 0, len(raws))
	for i, rp := range raws {
		policy, err := rp.resolve()
		if err != nil {
			return abac.PDP{}, fmt.Errorf("policies[%d]: %w", i, err)
		}
		policies = append(policies, policy)
	}
	return abac.NewPDP(policies...), nil
}

func (rp rawPolicy) resolve() (abac.Policy, error) {
	attrs := make([]abac.MatchAttribute, 0, len(rp.When))
	for _, node := range rp.When {
		attr, err := parseClaimPredicate(&node)
		if err != nil {
			return abac.Policy{}, err
		}
		attrs = append(attrs, attr)
	}

	var rules []abac.Rule
	for _, node := range rp.Allow {
		pattern, err := parsePatternDef(&node)
		if err != nil {
			return abac.Policy{}, err
		}
		rules = append(rules, abac.AllowRule(pattern))
	}
	for _, node := range rp.Deny {
		pattern, err := parsePatternDef(&node)
		if err != nil {
			return abac.Policy{}, err
		}
		rules = append(rules, abac.DenyRule(pattern))
	}

	return abac.Policy{Attributes: attrs, Rules: rules}, nil
}

// parseClaimPredicate decodes one `when` entry: {claim_is_present: S} |
// {claim: C, equals: V} | {claim: C, includes: E} (spec §6).
func parseClaimPredicate(node *yaml.Node) (abac.MatchAttribute, error) {
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return abac.MatchAttribute{}, fmt.Errorf("invalid claim predicate: %w", err)
	}
	if v, ok := m["claim_is_present"]; ok {
		return abac.ClaimPresent(v), nil
	}
	claim, hasClaim := m["claim"]
	if hasClaim {
		if v, ok := m["equals"]; ok {
			return abac.ClaimEquals(claim, v), nil
		}
		if v, ok := m["includes"]; ok {
			return abac.ClaimIncludes(claim, v), nil
		}
	}
	return abac.MatchAttribute{}, fmt.Errorf("claim predicate must be claim_is_present, claim+equals, or claim+includes")
}

// parsePatternDef decodes one allow/deny entry: {query: S} | {mutation: S}
// | a bare string parsed by the §3 grammar (spec §6).
func parsePatternDef(node *yaml.Node) (graphql.Pattern, error) {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err != nil {
			return graphql.Pattern{}, err
		}
		return graphql.Parse(s), nil
	}

	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return graphql.Pattern{}, fmt.Errorf("invalid pattern definition: %w", err)
	}
	if v, ok := m["query"]; ok {
		return graphql.Parse("query:" + v), nil
	}
	if v, ok := m["mutation"]; ok {
		return graphql.Parse("mutation:" + v), nil
	}
	return graphql.Pattern{}, fmt.Errorf("pattern definition must be a string, {query: ...}, or {mutation: ...}")
}
