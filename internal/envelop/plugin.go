package envelop

import (
	"context"
	"sync"

	executor "github.com/hanpama/envelope/internal/executor"
	language "github.com/hanpama/envelope/internal/language"
)

// Plugin is any value taking part in the request lifecycle. Which phases it
// joins is decided by the hook interfaces it implements.
type Plugin any

// Named lets a plugin report the name used in errors and events.
type Named interface {
	PluginName() string
}

// ContextBuildingAPI is handed to a single OnContextBuilding call.
type ContextBuildingAPI struct {
	// Context is the live context map. It reflects the seed and every
	// extension made so far. Hooks must not write to it directly, and must
	// not read it while their own goroutines call Extend; use Get or
	// Snapshot there.
	Context map[string]any

	container *Container
	mu        sync.Mutex
	revoked   bool
}

// Extend shallow-merges partial into the context; later keys replace
// earlier ones. It fails once the hook that received the API has returned.
func (api *ContextBuildingAPI) Extend(partial map[string]any) error {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.revoked {
		return ErrExtendRevoked
	}
	return api.container.Extend(partial)
}

// Get reads one key of the context under the container lock.
func (api *ContextBuildingAPI) Get(key string) (any, bool) { return api.container.Get(key) }

// Snapshot copies the context under the container lock.
func (api *ContextBuildingAPI) Snapshot() map[string]any { return api.container.Snapshot() }

func (api *ContextBuildingAPI) revoke() {
	api.mu.Lock()
	api.revoked = true
	api.mu.Unlock()
}

// AfterContextBuildingAPI is handed to every after-hook of a run. Context is
// the sealed map; all after-hooks of a run receive the same instance.
type AfterContextBuildingAPI struct {
	Context map[string]any
}

// AfterContextBuildingHook runs once the context has been sealed.
type AfterContextBuildingHook func(ctx context.Context, api *AfterContextBuildingAPI) error

// ContextBuildingPlugin contributes to the request context. The call must not
// return before the plugin's work is done; the next plugin only starts after
// it returns.
type ContextBuildingPlugin interface {
	OnContextBuilding(ctx context.Context, api *ContextBuildingAPI) (AfterContextBuildingHook, error)
}

// ParseAPI is handed to OnParse hooks.
type ParseAPI struct {
	Query         string
	OperationName string
	// Document is the parsed operation. Hooks may replace it.
	Document *language.QueryDocument
}

// ParsePlugin inspects or replaces the parsed document before context
// building starts.
type ParsePlugin interface {
	OnParse(ctx context.Context, api *ParseAPI) error
}

// ExecuteArgs is the execution about to run.
type ExecuteArgs struct {
	Document      *language.QueryDocument
	OperationName string
	Variables     map[string]any
	RootValue     map[string]any
	// ContextValue is the sealed context.
	ContextValue map[string]any
}

// ExecuteAPI is handed to OnExecute hooks.
type ExecuteAPI struct {
	Args *ExecuteArgs

	stopped *executor.ExecutionResult
}

// SetResultAndStopExecution skips execution and every remaining OnExecute
// hook; result is returned instead.
func (api *ExecuteAPI) SetResultAndStopExecution(result *executor.ExecutionResult) {
	api.stopped = result
}

// AfterExecuteAPI is handed to the hook returned from OnExecute.
type AfterExecuteAPI struct {
	Args   *ExecuteArgs
	Result *executor.ExecutionResult
}

// SetResult replaces the execution result.
func (api *AfterExecuteAPI) SetResult(result *executor.ExecutionResult) {
	api.Result = result
}

// AfterExecuteHook runs after execution, in plugin order.
type AfterExecuteHook func(ctx context.Context, api *AfterExecuteAPI) error

// ExecutePlugin wraps execution.
type ExecutePlugin interface {
	OnExecute(ctx context.Context, api *ExecuteAPI) (AfterExecuteHook, error)
}

// Hooks builds a plugin from plain functions. A nil function means the plugin
// does not take part in that phase.
type Hooks struct {
	Name              string
	OnParse           func(ctx context.Context, api *ParseAPI) error
	OnContextBuilding func(ctx context.Context, api *ContextBuildingAPI) (AfterContextBuildingHook, error)
	OnExecute         func(ctx context.Context, api *ExecuteAPI) (AfterExecuteHook, error)
}

// ContextBuildingFunc adapts a function to ContextBuildingPlugin.
type ContextBuildingFunc func(ctx context.Context, api *ContextBuildingAPI) (AfterContextBuildingHook, error)

func (f ContextBuildingFunc) OnContextBuilding(ctx context.Context, api *ContextBuildingAPI) (AfterContextBuildingHook, error) {
	return f(ctx, api)
}
