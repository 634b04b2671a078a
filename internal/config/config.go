// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package config loads Riddlegate configuration from defaults, an optional
// YAML file, and command-line flags, in increasing order of precedence.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/riddlegate/riddlegate/internal/xdg"
)

// DefaultFileName is the config file looked up in the XDG config directory
// when no --config flag is given.
const DefaultFileName = "config.yaml"

// Database holds PostgreSQL connection settings.
type Database struct {
	URL string `koanf:"url"`
}

// Token holds session token signing settings.
type Token struct {
	Secret string        `koanf:"secret"`
	Issuer string        `koanf:"issuer"`
	TTL    time.Duration `koanf:"ttl"`
}

// WebAuthn holds relying-party settings for hardware key ceremonies.
type WebAuthn struct {
	RPID          string   `koanf:"rp_id"`
	RPDisplayName string   `koanf:"rp_display_name"`
	RPOrigins     []string `koanf:"rp_origins"`
}

// TOTP holds one-time code provisioning settings.
type TOTP struct {
	Issuer string `koanf:"issuer"`
}

// Observability holds the metrics/health HTTP server settings.
type Observability struct {
	Addr string `koanf:"addr"`
}

// Logging holds structured logging settings.
type Logging struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// Config is the full Riddlegate configuration.
type Config struct {
	Database      Database      `koanf:"database"`
	Token         Token         `koanf:"token"`
	WebAuthn      WebAuthn      `koanf:"webauthn"`
	TOTP          TOTP          `koanf:"totp"`
	Observability Observability `koanf:"observability"`
	Logging       Logging       `koanf:"logging"`
}

func defaults() map[string]any {
	return map[string]any{
		"token.issuer":             "riddlegate",
		"token.ttl":                24 * time.Hour,
		"webauthn.rp_id":           "localhost",
		"webauthn.rp_display_name": "Riddlegate",
		"webauthn.rp_origins":      []string{"http://localhost"},
		"totp.issuer":              "Riddlegate",
		"observability.addr":       "127.0.0.1:9100",
		"logging.format":           "json",
		"logging.level":            "info",
	}
}

// Load builds a Config from defaults, an optional YAML file, and flags.
//
// When path is empty, the default file under the XDG config directory is
// loaded if it exists. An explicitly given path must exist. Flags override
// file values only when set on the command line; flag names map directly
// to config keys (e.g. --database.url).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	explicit := path != ""
	if !explicit {
		path = filepath.Join(xdg.ConfigDir(), DefaultFileName)
	}

	if _, err := os.Stat(path); err != nil {
		if explicit {
			return nil, oops.Code("CONFIG_NOT_FOUND").With("path", path).Wrap(err)
		}
	} else if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").With("path", path).Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_INVALID").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}

	return &cfg, nil
}

// Validate checks settings required to run the server.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Token.Secret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("token.secret is required")
	}
	if c.Token.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("token.ttl must be positive")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("logging.format must be 'json' or 'text', got %q", c.Logging.Format)
	}
	if c.WebAuthn.RPID == "" {
		return oops.Code("CONFIG_INVALID").Errorf("webauthn.rp_id is required")
	}
	if len(c.WebAuthn.RPOrigins) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("webauthn.rp_origins must not be empty")
	}
	return nil
}
