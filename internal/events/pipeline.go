package events

import "time"

// ContextBuildingStart is emitted before the first context building hook runs.
type ContextBuildingStart struct {
	Plugins int
}

// ContextBuildingFinish is emitted once the context is sealed and every
// after-hook has been dispatched, or building failed.
type ContextBuildingFinish struct {
	Keys     int
	Err      error
	Duration time.Duration
}

// HookFinish is emitted after a single plugin hook returns.
type HookFinish struct {
	Plugin   string
	Phase    string
	Err      error
	Duration time.Duration
}

// HookStart is emitted before a single plugin hook is called.
type HookStart struct {
	Plugin string
	Phase  string
}
