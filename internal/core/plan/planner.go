package plan

import (
	"fmt"
	"strings"

	"github.com/defbuild/defbuild/internal/core/registry"
)

// =============================================================================
// Planner State
// =============================================================================

// planner holds the intermediate state of a single planning invocation:
// the parent buckets, the root list and the variants already consumed into
// a group. Nothing here outlives the Order call.
type planner struct {
	reg     *registry.Registry
	exclude map[string]bool

	roots      []string
	bucketKeys []string
	buckets    map[string][]string
	superseded map[string]bool

	groups   []Group
	consumed map[Item]bool
}

// Order computes the dependency-respecting build groups for every known
// definition, skipping any explicitly excluded id. Group order and member
// order are deterministic: buckets in creation order with members chained
// children-first, then remaining root definitions in registry order.
func Order(reg *registry.Registry, exclude []string) ([]Group, error) {
	p := &planner{
		reg:        reg,
		exclude:    make(map[string]bool, len(exclude)),
		buckets:    make(map[string][]string),
		superseded: make(map[string]bool),
		consumed:   make(map[Item]bool),
	}
	for _, id := range exclude {
		p.exclude[id] = true
	}

	p.bucket()
	if err := p.chain(); err != nil {
		return nil, err
	}
	return p.groups, nil
}

// =============================================================================
// Bucketing Pass
// =============================================================================

// bucket groups definitions by parent relationships. Single-parent chains
// are folded one level only (a parent joins its own parent's bucket, deeper
// ancestry is not resolved recursively). Multi-parent definitions merge the
// buckets of every referenced parent into the bucket of the first mapping
// key's parent.
func (p *planner) bucket() {
	for _, id := range p.reg.IDs() {
		if p.exclude[id] {
			continue
		}
		def, _ := p.reg.Definition(id)
		parent := def.Build.Parent

		switch {
		case parent.IsZero():
			p.roots = append(p.roots, id)

		case parent.IsMapping():
			canonical := parent.ByVariant[0].ID
			p.ensureBucket(canonical)
			for _, pid := range parent.ParentIDs() {
				if pid == canonical {
					continue
				}
				if members, ok := p.buckets[pid]; ok {
					for _, m := range members {
						p.appendToBucket(canonical, m)
					}
					p.dropBucket(pid)
				} else {
					p.appendToBucket(canonical, pid)
				}
				p.superseded[pid] = true
			}
			p.appendToBucket(canonical, id)

		default:
			key := parent.ID
			if pdef, ok := p.reg.Definition(parent.ID); ok && pdef.Build.Parent.ID != "" {
				// Fold the parent into the grandparent's bucket. One level
				// only; deeper chains stay unresolved.
				key = pdef.Build.Parent.ID
				p.ensureBucket(key)
				p.appendToBucket(key, parent.ID)
			}
			p.ensureBucket(key)
			p.appendToBucket(key, id)
		}
	}

	// A root represented by its own bucket (or merged away) is pruned.
	var roots []string
	for _, id := range p.roots {
		if _, isKey := p.buckets[id]; isKey || p.superseded[id] {
			continue
		}
		roots = append(roots, id)
	}
	p.roots = roots
}

func (p *planner) ensureBucket(key string) {
	if _, ok := p.buckets[key]; ok {
		return
	}
	p.buckets[key] = []string{key}
	p.bucketKeys = append(p.bucketKeys, key)
}

func (p *planner) appendToBucket(key, id string) {
	for _, existing := range p.buckets[key] {
		if existing == id {
			return
		}
	}
	p.buckets[key] = append(p.buckets[key], id)
}

func (p *planner) dropBucket(key string) {
	delete(p.buckets, key)
	for i, existing := range p.bucketKeys {
		if existing == key {
			p.bucketKeys = append(p.bucketKeys[:i], p.bucketKeys[i+1:]...)
			break
		}
	}
}

// =============================================================================
// Variant Chaining Pass
// =============================================================================

// chain walks the buckets in creation order, members in reverse insertion
// order (children before the bucket's parent seed, so base image variants
// are claimed by their child chains first), then the remaining roots.
func (p *planner) chain() error {
	for _, key := range p.bucketKeys {
		members := p.buckets[key]
		for i := len(members) - 1; i >= 0; i-- {
			if err := p.chainMember(key, members[i]); err != nil {
				return err
			}
		}
	}
	for _, id := range p.roots {
		p.chainStandalone(id)
	}
	return nil
}

func (p *planner) chainMember(bucketKey, id string) error {
	def, ok := p.reg.Definition(id)
	if !ok {
		// A bucket can reference a parent that was never loaded; it has
		// nothing of its own to build.
		return nil
	}
	parent := def.Build.Parent

	switch {
	case parent.IsZero():
		p.chainStandalone(id)
		return nil

	case parent.IsMapping():
		for _, vp := range parent.ByVariant {
			pdef, pok := p.reg.Definition(vp.ID)
			switch {
			case pok && containsString(pdef.Variants, vp.Variant):
				p.attach(Item{ID: vp.ID, Variant: vp.Variant}, Item{ID: id, Variant: vp.Variant})
			case def.Build.SingleGroupVariant(vp.Variant):
				p.singleton(Item{ID: id, Variant: vp.Variant})
			case !containsString(def.Variants, vp.Variant) && len(def.Build.Tags) > 0:
				p.attach(Item{ID: bucketKey}, Item{ID: id})
			default:
				var valid []string
				if pok {
					valid = pdef.Variants
				}
				return NewPlanError("chain variants", id,
					fmt.Sprintf("variant %q is not declared by parent %q (valid variants: %v)",
						vp.Variant, vp.ID, valid),
					ErrParentVariant)
			}
		}
		return nil

	default:
		if len(def.Variants) == 0 {
			if len(def.Build.Tags) > 0 {
				p.attach(Item{ID: bucketKey}, Item{ID: id})
			}
			return nil
		}
		pdef, pok := p.reg.Definition(parent.ID)
		for _, v := range def.Variants {
			effective := v
			if def.Build.IDMismatchEnabled() {
				// Variant names carry an id prefix up to the first dash.
				if idx := strings.Index(v, "-"); idx >= 0 {
					effective = v[idx+1:]
				}
			}
			if pok && containsString(pdef.Variants, effective) {
				p.attach(Item{ID: parent.ID, Variant: effective}, Item{ID: id, Variant: v})
			} else {
				p.singleton(Item{ID: id, Variant: v})
			}
		}
		return nil
	}
}

// chainStandalone emits the groups for a definition with no parent: one
// singleton per declared variant, or one tagged singleton when variant-less.
// Variants already consumed as a child elsewhere are skipped.
func (p *planner) chainStandalone(id string) {
	def, ok := p.reg.Definition(id)
	if !ok {
		return
	}
	if len(def.Variants) > 0 {
		for _, v := range def.Variants {
			p.singleton(Item{ID: id, Variant: v})
		}
		return
	}
	if len(def.Build.Tags) > 0 {
		p.singleton(Item{ID: id})
	}
}

// attach adds the child to the first group already containing the parent
// item, scanning groups in creation order and members in insertion order;
// the first match wins. Without a match a new pairing group is created.
func (p *planner) attach(parent, child Item) {
	if p.consumed[child] {
		return
	}
	for gi := range p.groups {
		if p.groups[gi].Contains(parent) {
			p.groups[gi] = append(p.groups[gi], child)
			p.consumed[child] = true
			return
		}
	}
	p.groups = append(p.groups, Group{parent, child})
	p.consumed[parent] = true
	p.consumed[child] = true
}

// singleton emits a one-item group unless the item is already part of one.
func (p *planner) singleton(item Item) {
	if p.consumed[item] {
		return
	}
	p.groups = append(p.groups, Group{item})
	p.consumed[item] = true
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
