package manifest

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Manifest Types
// =============================================================================

// Definition is the parsed form of one definition manifest. A definition is
// one buildable image specification; its id is the directory name and is
// supplied by the loader, not the file.
type Definition struct {
	// Variants is the ordered list of variant names (e.g. OS flavors).
	// May be empty for single-image definitions.
	Variants []string `yaml:"variants"`

	// Build holds tagging and parent relationship settings.
	Build BuildSettings `yaml:"build"`

	// Dependencies describes the image reference this definition consumes.
	Dependencies Dependencies `yaml:"dependencies"`

	// Version is the recorded semantic version. Empty means "dev".
	Version string `yaml:"version"`

	// Deprecated definitions are dropped entirely at load time.
	Deprecated bool `yaml:"deprecated"`
}

// BuildSettings holds the per-definition build and tagging configuration.
type BuildSettings struct {
	// Tags is the list of tag templates with ${VERSION} and ${VARIANT}
	// placeholders.
	Tags []string `yaml:"tags"`

	// Parent is either a single parent definition id or a mapping from
	// variant name to parent id.
	Parent Parent `yaml:"parent"`

	// VariantTags maps a variant name to extra tag templates emitted only
	// for that variant.
	VariantTags map[string][]string `yaml:"variantTags"`

	// Architecture lists the platforms this definition builds for.
	Architecture []string `yaml:"architecture"`

	// VersionedTagsOnly suppresses unversioned tags and rewrites the shared
	// dev tag to a definition-specific one.
	VersionedTagsOnly bool `yaml:"versionedTagsOnly"`

	// Latest controls whether and for which variant "latest" tags are
	// emitted.
	Latest Latest `yaml:"latest"`

	// RootDistro names the distro at the root of the parent chain.
	RootDistro string `yaml:"rootDistro"`

	// IDMismatch is the string "true" when the definition id does not match
	// its parent naming scheme; variant names then carry a disambiguation
	// prefix up to the first dash.
	IDMismatch string `yaml:"idMismatch"`

	// SingleGroupVariants lists variants of a multi-parent definition that
	// build as standalone groups instead of attaching to a parent group.
	SingleGroupVariants []string `yaml:"singleGroupVariants"`
}

// IDMismatchEnabled reports whether the idMismatch marker is set.
func (b BuildSettings) IDMismatchEnabled() bool {
	return b.IDMismatch == "true"
}

// SingleGroupVariant reports whether the named variant is flagged for
// standalone group inclusion.
func (b BuildSettings) SingleGroupVariant(variant string) bool {
	for _, v := range b.SingleGroupVariants {
		if v == variant {
			return true
		}
	}
	return false
}

// Dependencies describes the image reference template a definition consumes.
type Dependencies struct {
	// Image is a reference template which may contain ${VARIANT}.
	Image string `yaml:"image"`

	// ImageVariants is computed at load time: Image expanded once per
	// declared variant (or as-is when the definition has none).
	ImageVariants []string `yaml:"-"`
}

// =============================================================================
// Parent
// =============================================================================

// VariantParent is one entry of a multi-parent mapping, preserving the
// declaration order of the mapping keys.
type VariantParent struct {
	Variant string
	ID      string
}

// Parent is either a single parent id or an ordered variant-to-parent
// mapping. The zero value means "no parent".
type Parent struct {
	// ID is set for the single-parent form.
	ID string

	// ByVariant is set for the multi-parent form, in declaration order.
	ByVariant []VariantParent
}

// IsZero reports whether no parent is declared.
func (p Parent) IsZero() bool {
	return p.ID == "" && len(p.ByVariant) == 0
}

// IsMapping reports whether the multi-parent form is declared.
func (p Parent) IsMapping() bool {
	return len(p.ByVariant) > 0
}

// ForVariant returns the parent id for the given variant key of a
// multi-parent mapping.
func (p Parent) ForVariant(variant string) (string, bool) {
	for _, vp := range p.ByVariant {
		if vp.Variant == variant {
			return vp.ID, true
		}
	}
	return "", false
}

// ParentIDs returns every referenced parent id in declaration order, without
// duplicates.
func (p Parent) ParentIDs() []string {
	if p.ID != "" {
		return []string{p.ID}
	}
	var ids []string
	seen := make(map[string]bool)
	for _, vp := range p.ByVariant {
		if !seen[vp.ID] {
			seen[vp.ID] = true
			ids = append(ids, vp.ID)
		}
	}
	return ids
}

// UnmarshalYAML decodes the parent field from either a scalar or a mapping
// node, keeping mapping key order.
func (p *Parent) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&p.ID)
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			var vp VariantParent
			if err := node.Content[i].Decode(&vp.Variant); err != nil {
				return NewParseError("build.parent", err.Error(), ErrInvalidParent)
			}
			if err := node.Content[i+1].Decode(&vp.ID); err != nil {
				return NewParseError("build.parent", err.Error(), ErrInvalidParent)
			}
			p.ByVariant = append(p.ByVariant, vp)
		}
		return nil
	default:
		return NewParseError("build.parent",
			fmt.Sprintf("unexpected YAML node kind %d", node.Kind), ErrInvalidParent)
	}
}

// =============================================================================
// Latest
// =============================================================================

// Latest is the parsed build.latest property: absent, a boolean, or a
// variant name.
type Latest struct {
	// Declared is true when the property is present at all.
	Declared bool

	// True is set for `latest: true`.
	True bool

	// Variant is set for `latest: <variant>`.
	Variant string
}

// UnmarshalYAML decodes the latest field from a boolean or string scalar.
func (l *Latest) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return NewParseError("build.latest",
			fmt.Sprintf("unexpected YAML node kind %d", node.Kind), ErrInvalidLatest)
	}
	var b bool
	if err := node.Decode(&b); err == nil {
		l.Declared = b
		l.True = b
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return NewParseError("build.latest", err.Error(), ErrInvalidLatest)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	l.Declared = true
	l.Variant = s
	return nil
}
