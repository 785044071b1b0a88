package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/defbuild/defbuild/internal/core/manifest"
	"github.com/defbuild/defbuild/internal/core/registry"
)

// testRegistry builds a registry preserving the given insertion order.
func testRegistry(t *testing.T, order []string, defs map[string]*manifest.Definition) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, id := range order {
		require.Contains(t, defs, id)
		reg.Add(id, defs[id])
	}
	return reg
}

func taggedBuild(tags ...string) manifest.BuildSettings {
	return manifest.BuildSettings{Tags: tags}
}

// =============================================================================
// Order Tests
// =============================================================================

func TestOrder_EmptyRegistry(t *testing.T) {
	groups, err := Order(registry.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestOrder_RootDefinitionPerVariant(t *testing.T) {
	reg := testRegistry(t, []string{"debian"}, map[string]*manifest.Definition{
		"debian": {
			Variants: []string{"bullseye", "buster"},
			Build:    taggedBuild("debian:${VERSION}-${VARIANT}"),
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "debian", Variant: "bullseye"}},
		{{ID: "debian", Variant: "buster"}},
	}, groups)
}

func TestOrder_VariantlessTaggedRoot(t *testing.T) {
	reg := testRegistry(t, []string{"scratchpad"}, map[string]*manifest.Definition{
		"scratchpad": {Build: taggedBuild("scratchpad:${VERSION}")},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{{{ID: "scratchpad"}}}, groups)
}

func TestOrder_UntaggedVariantlessRootEmitsNothing(t *testing.T) {
	reg := testRegistry(t, []string{"helper"}, map[string]*manifest.Definition{
		"helper": {},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestOrder_ParentChildSharedVariantSingleGroup(t *testing.T) {
	reg := testRegistry(t, []string{"base", "child"}, map[string]*manifest.Definition{
		"base": {
			Variants: []string{"stretch"},
			Build:    taggedBuild("base:${VERSION}-${VARIANT}"),
		},
		"child": {
			Variants: []string{"stretch"},
			Build: manifest.BuildSettings{
				Tags:   []string{"child:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	// One coupled group, not two singletons.
	assert.Equal(t, []Group{
		{{ID: "base", Variant: "stretch"}, {ID: "child", Variant: "stretch"}},
	}, groups)
}

func TestOrder_ChildVariantUnknownToParentIsStandalone(t *testing.T) {
	reg := testRegistry(t, []string{"base", "child"}, map[string]*manifest.Definition{
		"base": {
			Variants: []string{"stretch"},
			Build:    taggedBuild("base:${VERSION}-${VARIANT}"),
		},
		"child": {
			Variants: []string{"stretch", "alpine"},
			Build: manifest.BuildSettings{
				Tags:   []string{"child:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "base", Variant: "stretch"}, {ID: "child", Variant: "stretch"}},
		{{ID: "child", Variant: "alpine"}},
	}, groups)
}

func TestOrder_SiblingsShareParentVariantGroup(t *testing.T) {
	reg := testRegistry(t, []string{"base", "first", "second"}, map[string]*manifest.Definition{
		"base": {
			Variants: []string{"stretch"},
			Build:    taggedBuild("base:${VERSION}-${VARIANT}"),
		},
		"first": {
			Variants: []string{"stretch"},
			Build: manifest.BuildSettings{
				Tags:   []string{"first:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
		"second": {
			Variants: []string{"stretch"},
			Build: manifest.BuildSettings{
				Tags:   []string{"second:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	// Members chain in reverse bucket order, so the later sibling claims the
	// parent pair first; the earlier sibling attaches to the same group.
	require.Len(t, groups, 1)
	assert.Equal(t, Group{
		{ID: "base", Variant: "stretch"},
		{ID: "second", Variant: "stretch"},
		{ID: "first", Variant: "stretch"},
	}, groups[0])
}

func TestOrder_VariantlessChildPairsWithBucketKey(t *testing.T) {
	reg := testRegistry(t, []string{"base", "util"}, map[string]*manifest.Definition{
		"base": {Build: taggedBuild("base:${VERSION}")},
		"util": {
			Build: manifest.BuildSettings{
				Tags:   []string{"util:${VERSION}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "base"}, {ID: "util"}},
	}, groups)
}

func TestOrder_UntaggedVariantlessChildEmitsNothing(t *testing.T) {
	reg := testRegistry(t, []string{"base", "quiet"}, map[string]*manifest.Definition{
		"base": {Build: taggedBuild("base:${VERSION}")},
		"quiet": {
			Build: manifest.BuildSettings{
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	// Only the tagged parent singleton remains.
	assert.Equal(t, []Group{{{ID: "base"}}}, groups)
}

func TestOrder_GrandparentFoldedOneLevel(t *testing.T) {
	reg := testRegistry(t, []string{"a", "b", "c"}, map[string]*manifest.Definition{
		"a": {
			Variants: []string{"v1"},
			Build:    taggedBuild("a:${VERSION}-${VARIANT}"),
		},
		"b": {
			Variants: []string{"v1"},
			Build: manifest.BuildSettings{
				Tags:   []string{"b:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "a"},
			},
		},
		"c": {
			Variants: []string{"v1"},
			Build: manifest.BuildSettings{
				Tags:   []string{"c:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "b"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	// b and c chain together; a stays a singleton because the fold resolves
	// only one ancestry level, not the whole chain.
	assert.Equal(t, []Group{
		{{ID: "b", Variant: "v1"}, {ID: "c", Variant: "v1"}},
		{{ID: "a", Variant: "v1"}},
	}, groups)
}

func TestOrder_IDMismatchMatchesSuffixAfterDash(t *testing.T) {
	reg := testRegistry(t, []string{"golang", "golang-tools"}, map[string]*manifest.Definition{
		"golang": {
			Variants: []string{"bookworm"},
			Build:    taggedBuild("golang:${VERSION}-${VARIANT}"),
		},
		"golang-tools": {
			Variants: []string{"1-bookworm"},
			Build: manifest.BuildSettings{
				Tags:       []string{"golang-tools:${VERSION}-${VARIANT}"},
				Parent:     manifest.Parent{ID: "golang"},
				IDMismatch: "true",
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "golang", Variant: "bookworm"}, {ID: "golang-tools", Variant: "1-bookworm"}},
	}, groups)
}

func TestOrder_MultiParentMergesBuckets(t *testing.T) {
	reg := testRegistry(t, []string{"debian", "ubuntu", "universal"}, map[string]*manifest.Definition{
		"debian": {
			Variants: []string{"bullseye"},
			Build:    taggedBuild("debian:${VERSION}-${VARIANT}"),
		},
		"ubuntu": {
			Variants: []string{"jammy"},
			Build:    taggedBuild("ubuntu:${VERSION}-${VARIANT}"),
		},
		"universal": {
			Variants: []string{"bullseye", "jammy"},
			Build: manifest.BuildSettings{
				Tags: []string{"universal:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ByVariant: []manifest.VariantParent{
					{Variant: "bullseye", ID: "debian"},
					{Variant: "jammy", ID: "ubuntu"},
				}},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "debian", Variant: "bullseye"}, {ID: "universal", Variant: "bullseye"}},
		{{ID: "ubuntu", Variant: "jammy"}, {ID: "universal", Variant: "jammy"}},
	}, groups)
}

func TestOrder_MultiParentSingleGroupVariant(t *testing.T) {
	reg := testRegistry(t, []string{"debian", "mixed"}, map[string]*manifest.Definition{
		"debian": {
			Variants: []string{"bullseye"},
			Build:    taggedBuild("debian:${VERSION}-${VARIANT}"),
		},
		"mixed": {
			Variants: []string{"bullseye", "alpine"},
			Build: manifest.BuildSettings{
				Tags: []string{"mixed:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ByVariant: []manifest.VariantParent{
					{Variant: "bullseye", ID: "debian"},
					{Variant: "alpine", ID: "debian"},
				}},
				SingleGroupVariants: []string{"alpine"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)
	assert.Equal(t, []Group{
		{{ID: "debian", Variant: "bullseye"}, {ID: "mixed", Variant: "bullseye"}},
		{{ID: "mixed", Variant: "alpine"}},
	}, groups)
}

func TestOrder_MultiParentUndeclaredVariantFails(t *testing.T) {
	reg := testRegistry(t, []string{"debian", "broken"}, map[string]*manifest.Definition{
		"debian": {
			Variants: []string{"bullseye"},
			Build:    taggedBuild("debian:${VERSION}-${VARIANT}"),
		},
		"broken": {
			Variants: []string{"bullseye", "alpine"},
			Build: manifest.BuildSettings{
				Tags: []string{"broken:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ByVariant: []manifest.VariantParent{
					{Variant: "bullseye", ID: "debian"},
					{Variant: "alpine", ID: "debian"},
				}},
			},
		},
	})

	_, err := Order(reg, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParentVariant)
	assert.Contains(t, err.Error(), "alpine")
	assert.Contains(t, err.Error(), "bullseye")
}

func TestOrder_ExclusionSkipsDefinition(t *testing.T) {
	reg := testRegistry(t, []string{"base", "child"}, map[string]*manifest.Definition{
		"base": {
			Variants: []string{"stretch"},
			Build:    taggedBuild("base:${VERSION}-${VARIANT}"),
		},
		"child": {
			Variants: []string{"stretch"},
			Build: manifest.BuildSettings{
				Tags:   []string{"child:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, []string{"child"})
	require.NoError(t, err)
	assert.Equal(t, []Group{{{ID: "base", Variant: "stretch"}}}, groups)
}

func TestOrder_PairAppearsInAtMostOneGroup(t *testing.T) {
	reg := testRegistry(t, []string{"base", "first", "second"}, map[string]*manifest.Definition{
		"base": {
			Variants: []string{"stretch", "buster"},
			Build:    taggedBuild("base:${VERSION}-${VARIANT}"),
		},
		"first": {
			Variants: []string{"stretch"},
			Build: manifest.BuildSettings{
				Tags:   []string{"first:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
		"second": {
			Variants: []string{"buster"},
			Build: manifest.BuildSettings{
				Tags:   []string{"second:${VERSION}-${VARIANT}"},
				Parent: manifest.Parent{ID: "base"},
			},
		},
	})

	groups, err := Order(reg, nil)
	require.NoError(t, err)

	seen := make(map[Item]int)
	for _, g := range groups {
		for _, item := range g {
			seen[item]++
		}
	}
	for item, count := range seen {
		assert.Equal(t, 1, count, "item %+v appears %d times", item, count)
	}
}
