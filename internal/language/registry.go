package language

import (
	"path/filepath"
	"strings"
)

// Registry dispatches from file extension to language engine.
// Registration order does not matter as long as extensions are disjoint.
type Registry struct {
	engines []Engine
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry returns a registry with every bundled language.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewGoEngine())
	r.Register(NewJavaScriptEngine())
	r.Register(NewRustEngine())

	return r
}

// Register adds an engine.
func (r *Registry) Register(engine Engine) {
	r.engines = append(r.engines, engine)
}

// Resolve returns the engine handling the path's extension, or nil.
func (r *Registry) Resolve(path string) Engine {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "" {
		return nil
	}

	for _, engine := range r.engines {
		for _, e := range engine.Extensions() {
			if e == ext {
				return engine
			}
		}
	}

	return nil
}

// ByName returns the engine with the given display name, matched
// case-insensitively, or nil.
func (r *Registry) ByName(name string) Engine {
	for _, engine := range r.engines {
		if strings.EqualFold(engine.Name(), name) {
			return engine
		}
	}

	return nil
}

// Languages lists the registered language names.
func (r *Registry) Languages() []string {
	names := make([]string, 0, len(r.engines))
	for _, engine := range r.engines {
		names = append(names, engine.Name())
	}

	return names
}

// Engines returns the registered engines.
func (r *Registry) Engines() []Engine {
	return r.engines
}
