// Package config loads the options spec.md §6 enumerates: listen address,
// TLS material, connection limits, and the static user table. Grounded on
// the teacher's internal/config/config.go DefaultConfig/Load shape
// (pre-populate defaults, then unmarshal on top so only explicitly-set
// keys override them), extended with a YAML path alongside JSON since the
// system this spec describes ships a YAML config file.
package config

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Format selects the encoding Load parses.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// UserEntry is one configured username/password credential.
type UserEntry struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// ServerConfig holds the `server.*` options from spec.md §6.
type ServerConfig struct {
	MaxTCPConnections               int    `json:"max_tcp_connections" yaml:"max_tcp_connections"`
	ConnectionTCPBufferBytes        int    `json:"connection_tcp_buffer_bytes" yaml:"connection_tcp_buffer_bytes"`
	AuthenticateTimeoutMilliseconds int    `json:"authenticate_timeout_milliseconds" yaml:"authenticate_timeout_milliseconds"`
	ListenHost                      string `json:"listen_host" yaml:"listen_host"`
	ListenPort                      int    `json:"listen_port" yaml:"listen_port"`
	DisableTLS                      bool   `json:"disable_tls" yaml:"disable_tls"`
	TLSCertificate                  string `json:"tls_certificate" yaml:"tls_certificate"`
	TLSKey                          string `json:"tls_key" yaml:"tls_key"`
}

// KvsdConfig holds the `kvsd.*` options from spec.md §6.
type KvsdConfig struct {
	Users   []UserEntry `json:"users" yaml:"users"`
	RootDir string      `json:"root_dir" yaml:"root_dir"`
}

// Config is the full set of options the core recognizes.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Kvsd   KvsdConfig   `json:"kvsd" yaml:"kvsd"`
}

// DefaultConfig returns the documented defaults. RootDir has no default —
// it is required.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			MaxTCPConnections:               10240,
			ConnectionTCPBufferBytes:        4096,
			AuthenticateTimeoutMilliseconds: 300,
			ListenHost:                      "127.0.0.1",
			ListenPort:                      7379,
			DisableTLS:                      false,
		},
	}
}

// Load reads r in the given format, applying it on top of DefaultConfig so
// that any key the input omits keeps its default (and a key the input sets
// to its zero/empty value is treated as explicitly set, matching
// encoding/json's and yaml.v3's own unmarshal-over-existing-struct
// behavior).
func Load(r io.Reader, format Format) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := DefaultConfig()
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unknown format %d", format)
	}

	if cfg.Kvsd.RootDir == "" {
		return nil, fmt.Errorf("config: kvsd.root_dir is required")
	}
	return cfg, nil
}
