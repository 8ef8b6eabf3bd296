package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/envelope/internal/authstore"
	envelop "github.com/hanpama/envelope/internal/envelop"
)

// HeadersKey is the context key holding forwarded request headers as a
// map[string]string with lower-case names.
const HeadersKey = "headers"

type apiKeyAuth struct {
	store  authstore.Store
	header string
}

type AuthOption func(*apiKeyAuth)

// WithAuthHeader reads the key from header instead of "authorization".
func WithAuthHeader(header string) AuthOption {
	return func(p *apiKeyAuth) { p.header = strings.ToLower(header) }
}

// UseAPIKeyAuth looks the request's API key up in store and extends the
// context with "authenticated", and when the key is known, "apiKey" (the
// *authstore.Key) and "roles". A missing or unknown key is not an error; it
// leaves authenticated false.
func UseAPIKeyAuth(store authstore.Store, opts ...AuthOption) envelop.Plugin {
	p := &apiKeyAuth{store: store, header: "authorization"}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *apiKeyAuth) PluginName() string { return "apiKeyAuth" }

func (p *apiKeyAuth) OnContextBuilding(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
	raw := extractKey(headerValue(api.Context, p.header))
	if raw == "" {
		return nil, api.Extend(map[string]any{"authenticated": false})
	}

	key, err := p.store.Lookup(ctx, raw)
	if errors.Is(err, authstore.ErrNotFound) {
		return nil, api.Extend(map[string]any{"authenticated": false})
	}
	if err != nil {
		return nil, fmt.Errorf("look up api key: %w", err)
	}
	return nil, api.Extend(map[string]any{
		"authenticated": true,
		"apiKey":        key,
		"roles":         key.Roles,
	})
}

func headerValue(ctx map[string]any, name string) string {
	switch h := ctx[HeadersKey].(type) {
	case map[string]string:
		return h[name]
	case map[string]any:
		s, _ := h[name].(string)
		return s
	}
	return ""
}

// extractKey accepts both "Bearer <key>" and a bare key.
func extractKey(value string) string {
	value = strings.TrimSpace(value)
	scheme, rest, found := strings.Cut(value, " ")
	if found && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	if found {
		return ""
	}
	return value
}
