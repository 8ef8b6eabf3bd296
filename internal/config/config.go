// Package config loads envelope settings from an optional YAML file, a .env
// file and ENVELOPE_ environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: ENVELOPE_SERVER__ADDR sets server.addr.
const EnvPrefix = "ENVELOPE_"

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	GraphQL GraphQLConfig `koanf:"graphql"`
	Auth    AuthConfig    `koanf:"auth"`
	Log     LogConfig     `koanf:"log"`
	OTel    OTelConfig    `koanf:"otel"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	Pretty         bool          `koanf:"pretty"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxBodyBytes   int64         `koanf:"max_body_bytes"`
	CORSOrigins    []string      `koanf:"cors_origins"`
	ForwardHeaders []string      `koanf:"forward_headers"`
	GraphiQL       bool          `koanf:"graphiql"`
}

type GraphQLConfig struct {
	// Schema is the path of the SDL file to serve.
	Schema        string `koanf:"schema"`
	Introspection bool   `koanf:"introspection"`
}

type AuthConfig struct {
	// Database is the SQLite file holding API keys. Empty disables API key
	// authentication.
	Database string `koanf:"database"`
	Header   string `koanf:"header"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

type OTelConfig struct {
	// Endpoint is an OTLP gRPC endpoint, "stdout", or empty to disable.
	Endpoint string `koanf:"endpoint"`
	Service  string `koanf:"service"`
}

var defaults = map[string]any{
	"server.addr":            ":8080",
	"server.timeout":         "10s",
	"server.max_body_bytes":  int64(1 << 20),
	"server.forward_headers": []string{"authorization"},
	"server.graphiql":        true,
	"graphql.introspection":  true,
	"auth.header":            "authorization",
	"log.level":              "info",
	"log.format":             "console",
	"otel.service":           "envelope",
}

// Options selects the sources Load reads.
type Options struct {
	// File is a YAML config path. A missing file is ignored unless Required.
	File     string
	Required bool
	// DotEnv files are loaded into the process environment first. Missing
	// files are ignored.
	DotEnv []string
	// Overrides are applied last, typically from command line flags.
	Overrides map[string]any
}

func Load(opts Options) (*Config, error) {
	for _, f := range opts.DotEnv {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			if opts.Required || !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", opts.File, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.CORSOrigins = splitList(cfg.Server.CORSOrigins)
	cfg.Server.ForwardHeaders = splitList(cfg.Server.ForwardHeaders)
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// splitList accepts both YAML lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
