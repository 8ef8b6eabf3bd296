// Package envelop builds the per-request GraphQL context through an ordered
// list of plugins and hands the result to the executor.
//
// # Context building
//
// A run starts from the caller's seed (StateSeeded). Plugins implementing
// ContextBuildingPlugin are then called one at a time in registration order
// (StateBuilding). Each call receives a ContextBuildingAPI whose Context is
// the live, ever-growing map and whose Extend shallow-merges new keys into it
// (last write wins). A hook may do asynchronous work, but it must finish
// before it returns: the runner only moves to the next plugin once the
// previous call has returned, so every extension is visible to every later
// plugin. The runner imposes no timeout; a hook that never returns stalls the
// run.
//
// A hook may return an AfterContextBuildingHook. Once the last hook has
// returned the context is sealed (StateSealed) and the collected after-hooks
// run in the same order, all of them receiving the same sealed map
// (StateDispatched). The sealed map is what resolvers see as their context.
//
// # Failures
//
// An error or panic in a before-hook aborts the run: later hooks and every
// after-hook are skipped and the *HookError is returned to the caller. After
// hooks are isolated from each other: all of them run, and their failures are
// returned together as a *multierror.Error.
//
// # Plugins
//
// A Plugin is any value; its capabilities are discovered through the
// ContextBuildingPlugin, ExecutePlugin and ParsePlugin interfaces. Hooks is a
// struct of optional functions for ad-hoc plugins, where a nil function means
// the plugin does not take part in that phase.
package envelop
