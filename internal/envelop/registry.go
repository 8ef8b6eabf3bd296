package envelop

import (
	"context"
	"fmt"
)

// entry is a plugin resolved into its hooks. A nil hook is skipped.
type entry struct {
	name    string
	parse   func(ctx context.Context, api *ParseAPI) error
	before  func(ctx context.Context, api *ContextBuildingAPI) (AfterContextBuildingHook, error)
	execute func(ctx context.Context, api *ExecuteAPI) (AfterExecuteHook, error)
}

// Registry is an ordered, immutable list of plugins. It is safe to run many
// requests through one Registry concurrently.
type Registry struct {
	entries []entry
}

// New returns a registry holding plugins in the given order. A *Registry
// passed as a plugin contributes its own plugins in place.
func New(plugins ...Plugin) *Registry {
	r := &Registry{}
	r.entries = appendEntries(nil, plugins)
	return r
}

// Use returns a new registry with plugins appended after the receiver's.
func (r *Registry) Use(plugins ...Plugin) *Registry {
	entries := make([]entry, len(r.entries), len(r.entries)+len(plugins))
	copy(entries, r.entries)
	return &Registry{entries: appendEntries(entries, plugins)}
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int { return len(r.entries) }

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

func appendEntries(entries []entry, plugins []Plugin) []entry {
	for _, p := range plugins {
		switch p := p.(type) {
		case nil:
			continue
		case *Registry:
			entries = append(entries, p.entries...)
		case Hooks:
			entries = append(entries, hooksEntry(&p))
		case *Hooks:
			entries = append(entries, hooksEntry(p))
		default:
			entries = append(entries, pluginEntry(p))
		}
	}
	return entries
}

func hooksEntry(h *Hooks) entry {
	name := h.Name
	if name == "" {
		name = "anonymous"
	}
	return entry{
		name:    name,
		parse:   h.OnParse,
		before:  h.OnContextBuilding,
		execute: h.OnExecute,
	}
}

func pluginEntry(p Plugin) entry {
	e := entry{name: PluginName(p)}
	if v, ok := p.(ParsePlugin); ok {
		e.parse = v.OnParse
	}
	if v, ok := p.(ContextBuildingPlugin); ok {
		e.before = v.OnContextBuilding
	}
	if v, ok := p.(ExecutePlugin); ok {
		e.execute = v.OnExecute
	}
	return e
}

// PluginName returns the name p reports through Named, or its Go type.
func PluginName(p Plugin) string {
	switch v := p.(type) {
	case Named:
		return v.PluginName()
	case Hooks:
		return hooksEntry(&v).name
	case *Hooks:
		return hooksEntry(v).name
	}
	return fmt.Sprintf("%T", p)
}
