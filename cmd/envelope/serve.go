package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hanpama/envelope/internal/config"
	"github.com/hanpama/envelope/internal/eventbus"
	"github.com/hanpama/envelope/internal/logging"
	"github.com/hanpama/envelope/internal/otel"
	"github.com/hanpama/envelope/internal/server"
)

var serveFlagKeys = flagKeys{
	"addr":           "server.addr",
	"pretty":         "server.pretty",
	"timeout":        "server.timeout",
	"max-body-bytes": "server.max_body_bytes",
	"cors-origin":    "server.cors_origins",
	"forward-header": "server.forward_headers",
	"graphiql":       "server.graphiql",
	"schema":         "graphql.schema",
	"introspection":  "graphql.introspection",
	"auth-db":        "auth.database",
	"auth-header":    "auth.header",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"log-file":       "log.file",
	"otel-endpoint":  "otel.endpoint",
	"otel-service":   "otel.service",
}

func newServeCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, g, serveFlagKeys)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (default :8080)")
	f.Bool("pretty", false, "pretty-print JSON responses")
	f.Duration("timeout", 0, "per-request timeout (default 10s)")
	f.Int64("max-body-bytes", 0, "request body limit in bytes")
	f.StringSlice("cors-origin", nil, "allowed CORS origin; repeatable")
	f.StringSlice("forward-header", nil, "HTTP header copied into the request context; repeatable")
	f.Bool("graphiql", true, "serve GraphiQL to browsers")
	f.String("schema", "", "GraphQL SDL file")
	f.Bool("introspection", true, "answer __schema and __type queries")
	f.String("auth-db", "", "SQLite API key database; enables API key authentication")
	f.String("auth-header", "", "header carrying the API key (default authorization)")
	f.String("log-level", "", "debug, info, warn or error")
	f.String("log-format", "", "console or json")
	f.String("log-file", "", "also write rotated JSON logs to this file")
	f.String("otel-endpoint", "", `OTLP gRPC endpoint, or "stdout"`)
	f.String("otel-service", "", "OpenTelemetry service name")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eventbus.Use(eventbus.New())
	defer logging.Subscribe(log)()

	shutdownTracing, err := otel.Setup(ctx, cfg.OTel.Endpoint, cfg.OTel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	h, closeRegistry, err := newHandler(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeRegistry() }()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: newRouter(h)}
	errc := make(chan error, 1)
	go func() {
		log.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func newHandler(cfg *config.Config, log *zap.Logger) (*server.Handler, func() error, error) {
	es, err := loadSchema(cfg)
	if err != nil {
		return nil, nil, err
	}
	registry, closeRegistry, err := newRegistry(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	opts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithForwardHeaders(forwardHeaders(cfg)...),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		opts = append(opts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		opts = append(opts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(registry, es, opts...)
	if err != nil {
		_ = closeRegistry()
		return nil, nil, fmt.Errorf("server init: %w", err)
	}
	return h, closeRegistry, nil
}

// forwardHeaders adds the API key header to the configured list when
// authentication is enabled, so the auth plugin can always see it.
func forwardHeaders(cfg *config.Config) []string {
	headers := cfg.Server.ForwardHeaders
	if cfg.Auth.Database == "" || cfg.Auth.Header == "" {
		return headers
	}
	for _, h := range headers {
		if strings.EqualFold(h, cfg.Auth.Header) {
			return headers
		}
	}
	return append(append([]string(nil), headers...), cfg.Auth.Header)
}

func newRouter(h http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "envelope")
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/graphql", h)
	return r
}
