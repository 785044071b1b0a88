package plan

// =============================================================================
// Plan Types
// =============================================================================

// Item is one (definition, variant) pair in a build group. Variant is empty
// for variant-less definitions.
type Item struct {
	ID      string `yaml:"id"`
	Variant string `yaml:"variant,omitempty"`
}

// Group is an ordered list of items that must be built in sequence because
// of parent-child coupling. A pair appears in at most one group.
type Group []Item

// Contains reports whether the group holds the exact item.
func (g Group) Contains(item Item) bool {
	for _, member := range g {
		if member == item {
			return true
		}
	}
	return false
}

// Page is one parallel work unit: the groups assigned to one build worker.
type Page []Group

// Items returns the total number of items across the page's groups.
func (p Page) Items() int {
	n := 0
	for _, g := range p {
		n += len(g)
	}
	return n
}
