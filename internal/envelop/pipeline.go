package envelop

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	eventbus "github.com/hanpama/envelope/internal/eventbus"
	events "github.com/hanpama/envelope/internal/events"
)

// BuildResult is the outcome of a context building run.
type BuildResult struct {
	// Context is the sealed context; the same map every after-hook received.
	Context map[string]any
	State   State
}

type pendingAfter struct {
	plugin string
	hook   AfterContextBuildingHook
}

// BuildContext runs every OnContextBuilding hook in registration order
// starting from a copy of seed, then dispatches the collected after-hooks
// with the sealed context.
//
// A failing before-hook stops the run and its *HookError is returned with a
// nil result. Failing after-hooks do not stop each other; their errors are
// returned together alongside the dispatched result.
func (r *Registry) BuildContext(ctx context.Context, seed map[string]any) (*BuildResult, error) {
	c := NewContainer(seed)
	err := r.buildContext(ctx, c)
	if c.State() == StateFailed {
		return nil, err
	}
	return &BuildResult{Context: c.Value(), State: c.State()}, err
}

func (r *Registry) buildContext(ctx context.Context, c *Container) (err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.ContextBuildingStart{Plugins: len(r.entries)})
	defer func() {
		eventbus.Publish(ctx, events.ContextBuildingFinish{
			Keys:     c.Len(),
			Err:      err,
			Duration: time.Since(start),
		})
	}()

	c.transition(StateBuilding)
	pending, err := r.runBeforeHooks(ctx, c)
	if err != nil {
		c.transition(StateFailed)
		return err
	}
	c.transition(StateSealed)
	return dispatchAfterHooks(ctx, c, pending)
}

func (r *Registry) runBeforeHooks(ctx context.Context, c *Container) ([]pendingAfter, error) {
	var pending []pendingAfter
	for _, e := range r.entries {
		if e.before == nil {
			continue
		}
		api := &ContextBuildingAPI{Context: c.Value(), container: c}
		after, err := callBefore(ctx, e, api)
		api.revoke()
		if err != nil {
			return nil, err
		}
		if after != nil {
			pending = append(pending, pendingAfter{plugin: e.name, hook: after})
		}
	}
	return pending, nil
}

func callBefore(ctx context.Context, e entry, api *ContextBuildingAPI) (after AfterContextBuildingHook, err error) {
	err = guard(ctx, e.name, PhaseContextBuilding, func() (err error) {
		after, err = e.before(ctx, api)
		return err
	})
	if err != nil {
		return nil, err
	}
	return after, nil
}

func dispatchAfterHooks(ctx context.Context, c *Container, pending []pendingAfter) error {
	api := &AfterContextBuildingAPI{Context: c.Value()}
	var errs *multierror.Error
	for _, p := range pending {
		if err := callAfter(ctx, p, api); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	c.transition(StateDispatched)
	return errs.ErrorOrNil()
}

func callAfter(ctx context.Context, p pendingAfter, api *AfterContextBuildingAPI) error {
	return guard(ctx, p.plugin, PhaseAfterContextBuilding, func() error { return p.hook(ctx, api) })
}
