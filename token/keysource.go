// Package token validates bearer tokens and extracts their claim sets for
// Arboric's ABAC pipeline (spec §4.6).
package token

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
)

// Encoding names how a signing key source's raw bytes are encoded on disk
// or in the environment.
type Encoding int

const (
	// Raw means the bytes are used as-is.
	Raw Encoding = iota
	// Hex means the source is hex-encoded text.
	Hex
	// Base64 means the source is base64-encoded text.
	Base64
)

// ParseEncoding maps the YAML encoding strings (§6: hex|base64|raw) to an
// Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "raw":
		return Raw, nil
	case "hex":
		return Hex, nil
	case "base64":
		return Base64, nil
	default:
		return 0, fmt.Errorf("token: unknown key encoding %q", s)
	}
}

func decode(enc Encoding, data []byte) ([]byte, error) {
	switch enc {
	case Hex:
		out := make([]byte, hex.DecodedLen(len(data)))
		n, err := hex.Decode(out, data)
		if err != nil {
			return nil, fmt.Errorf("token: hex decode: %w", err)
		}
		return out[:n], nil
	case Base64:
		out, err := base64.StdEncoding.DecodeString(string(data))
		if err != nil {
			return nil, fmt.Errorf("token: base64 decode: %w", err)
		}
		return out, nil
	default:
		return data, nil
	}
}

// KeySource is the sum Inline(bytes, encoding) | FromEnv{name, encoding} |
// FromFile{path, encoding} from spec §3. A KeySource is resolved exactly
// once, at listener construction, into an owned byte buffer.
type KeySource interface {
	Resolve() ([]byte, error)
}

// Inline is a KeySource whose bytes are embedded directly in configuration.
type Inline struct {
	Data     []byte
	Encoding Encoding
}

// Resolve decodes the inline bytes per their Encoding.
func (s Inline) Resolve() ([]byte, error) {
	return decode(s.Encoding, s.Data)
}

// FromEnv is a KeySource read from an environment variable at startup.
type FromEnv struct {
	Name     string
	Encoding Encoding
}

// Resolve reads the named environment variable and decodes it.
func (s FromEnv) Resolve() ([]byte, error) {
	v, ok := os.LookupEnv(s.Name)
	if !ok {
		return nil, fmt.Errorf("token: environment variable %q is not set", s.Name)
	}
	return decode(s.Encoding, []byte(v))
}

// FromFile is a KeySource read from a file, scoped to construction: the
// handle is opened, read, and closed before the listener begins serving
// (spec §5 resource-acquisition model).
type FromFile struct {
	Path     string
	Encoding Encoding
}

// Resolve reads the file and decodes its contents.
func (s FromFile) Resolve() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("token: reading key file %q: %w", s.Path, err)
	}
	return decode(s.Encoding, data)
}

// ResolveSigningKey resolves src, if non-nil, to a non-empty byte buffer.
// Listener construction must fail if the source cannot produce bytes (spec
// §3 invariants). A nil src (no signing key configured) resolves to nil,
// nil — callers use that to skip authentication entirely.
func ResolveSigningKey(src KeySource) ([]byte, error) {
	if src == nil {
		return nil, nil
	}
	key, err := src.Resolve()
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("token: resolved signing key is empty")
	}
	return key, nil
}
