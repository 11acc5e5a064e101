package tool

import (
	"github.com/casualjim/strix/internal/registry"
)

// Registry records tool definitions by name for later dispatch.
// It is safe for concurrent use.
type Registry struct {
	tools *registry.Registry[Definition]
}

// NewRegistry creates an empty registry, optionally seeded with definitions.
func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{tools: registry.New[Definition]()}
	for _, def := range defs {
		r.Add(def)
	}
	return r
}

// Add records the definition under its name and returns it unchanged.
// A definition with the same name silently replaces the earlier one.
func (r *Registry) Add(def Definition) Definition {
	r.tools.Add(def.Name, def)
	return def
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (Definition, bool) {
	return r.tools.Get(name)
}

// Remove drops the tool registered under name and reports whether there was one.
func (r *Registry) Remove(name string) bool {
	return r.tools.Del(name)
}

// Definitions returns the registered definitions in registration order.
func (r *Registry) Definitions() []Definition {
	return r.tools.Values()
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return r.tools.Len()
}

// Register adds fn to the registry and hands fn back, so it can wrap a
// function at its declaration:
//
//	var lookup = tool.Register(reg, func(city string) string { ... }, tool.Name("lookup"))
//
// It panics when fn is not a function.
func Register[F any](r *Registry, fn F, options ...Option) F {
	r.Add(Must(fn, options...))
	return fn
}
