// Package registry holds the merged per-definition configuration loaded from
// manifests. The registry is populated additively during the load phase and
// is read-only afterwards, so it can be shared across concurrent readers
// without locking.
package registry

import (
	"github.com/defbuild/defbuild/internal/core/manifest"
)

// DevVersion is the version recorded for definitions without a semantic
// version, and the version a branch build resolves to.
const DevVersion = "dev"

// =============================================================================
// Registry
// =============================================================================

// Registry maps definition ids to their merged manifest settings.
type Registry struct {
	order []string
	defs  map[string]*manifest.Definition
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		defs: make(map[string]*manifest.Definition),
	}
}

// Add merges one parsed manifest into the registry under the given id.
// A definition marked deprecated is removed entirely, including any
// previously merged copy.
func (r *Registry) Add(id string, def *manifest.Definition) {
	if def == nil {
		return
	}
	if def.Deprecated {
		r.remove(id)
		return
	}
	if _, exists := r.defs[id]; !exists {
		r.order = append(r.order, id)
	}
	r.defs[id] = def
}

func (r *Registry) remove(id string) {
	if _, exists := r.defs[id]; !exists {
		return
	}
	delete(r.defs, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Has reports whether the definition id is known.
func (r *Registry) Has(id string) bool {
	_, ok := r.defs[id]
	return ok
}

// Definition returns the merged settings for a definition id.
func (r *Registry) Definition(id string) (*manifest.Definition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// IDs returns all definition ids in insertion order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Variants returns the ordered variant list for a definition, or nil when
// the id is unknown or declares no variants.
func (r *Registry) Variants(id string) []string {
	def, ok := r.defs[id]
	if !ok {
		return nil
	}
	return def.Variants
}

// Version returns the recorded semantic version for a definition. Unknown
// ids and definitions without a version resolve to DevVersion.
func (r *Registry) Version(id string) string {
	def, ok := r.defs[id]
	if !ok || def.Version == "" {
		return DevVersion
	}
	return def.Version
}

// Architectures returns the declared architecture list for a definition.
func (r *Registry) Architectures(id string) []string {
	def, ok := r.defs[id]
	if !ok {
		return nil
	}
	return def.Build.Architecture
}

// RootDistro returns the declared root distro for a definition.
func (r *Registry) RootDistro(id string) string {
	def, ok := r.defs[id]
	if !ok {
		return ""
	}
	return def.Build.RootDistro
}

// DependencyImages returns the computed per-variant dependency image
// references for a definition.
func (r *Registry) DependencyImages(id string) []string {
	def, ok := r.defs[id]
	if !ok {
		return nil
	}
	return def.Dependencies.ImageVariants
}
