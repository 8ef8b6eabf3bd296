package plugins

import (
	"context"

	envelop "github.com/hanpama/envelope/internal/envelop"
)

// ContextFactory computes fields to merge into the request context from the
// context built so far.
type ContextFactory func(ctx context.Context, current map[string]any) (map[string]any, error)

type extendContext struct {
	factory ContextFactory
}

// UseExtendContext extends the request context with whatever factory returns.
func UseExtendContext(factory ContextFactory) envelop.Plugin {
	return &extendContext{factory: factory}
}

func (p *extendContext) PluginName() string { return "extendContext" }

func (p *extendContext) OnContextBuilding(ctx context.Context, api *envelop.ContextBuildingAPI) (envelop.AfterContextBuildingHook, error) {
	partial, err := p.factory(ctx, api.Context)
	if err != nil {
		return nil, err
	}
	if len(partial) > 0 {
		return nil, api.Extend(partial)
	}
	return nil, nil
}
