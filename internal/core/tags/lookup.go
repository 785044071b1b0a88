package tags

import (
	"errors"
	"regexp"
	"strings"

	"github.com/defbuild/defbuild/internal/core/registry"
)

// wildcardRegistry is the sentinel registry/path under which reverse-lookup
// keys are indexed, so a tag from any registry resolves to the same entry.
const wildcardRegistry = "ANY"

// =============================================================================
// Reverse Lookup Index
// =============================================================================

// Entry identifies the definition and variant a tag was generated from.
// Variant is empty for variant-less definitions.
type Entry struct {
	ID      string
	Variant string
}

// Lookup maps normalized tag keys (ANY/ANY/<repo>:<tag>) back to the
// definition and variant that produce them. Built once after registry
// population; read-only thereafter.
type Lookup struct {
	entries map[string]Entry
}

// BuildLookup indexes the blank-version and dev-version tag sets of every
// (definition, variant) pair under the wildcard registry.
func BuildLookup(reg *registry.Registry) *Lookup {
	l := &Lookup{entries: make(map[string]Entry)}
	for _, id := range reg.IDs() {
		variants := reg.Variants(id)
		if len(variants) == 0 {
			// Single applicable "variant": none.
			variants = []string{""}
		}
		for _, variant := range variants {
			for _, version := range []string{"", registry.DevVersion} {
				for _, tag := range ForVersion(reg, id, version, wildcardRegistry, wildcardRegistry, variant) {
					if _, exists := l.entries[tag]; exists {
						continue
					}
					l.entries[tag] = Entry{ID: id, Variant: variant}
				}
			}
		}
	}
	return l
}

// Len returns the number of indexed tag keys.
func (l *Lookup) Len() int {
	return len(l.entries)
}

// tagShapeRegex splits a fully-qualified tag into its registry/path prefix,
// repository and tag part. The repository is the last path segment.
var tagShapeRegex = regexp.MustCompile(`^(.+)/([^/:]+):([^:]+)$`)

// devPrefixRegex matches the numeric disambiguation prefix used on dev tags,
// e.g. the "3-" of "3-bullseye".
var devPrefixRegex = regexp.MustCompile(`^\d+-`)

// DefinitionFromTag resolves a tag string back to the definition and variant
// that generate it.
//
// The tag must have the shape <registry>/<path>/<repo>:<tag>; a non-empty
// registryName/registryPath additionally pins the expected prefix. A miss is
// retried with the numeric disambiguation prefix stripped from the tag part.
func (l *Lookup) DefinitionFromTag(tag, registryName, registryPath string) (Entry, error) {
	m := tagShapeRegex.FindStringSubmatch(tag)
	if m == nil {
		return Entry{}, NewTagError("resolve tag", tag, "malformed tag", ErrMalformedTag)
	}
	prefix, repo, tagPart := m[1], m[2], m[3]

	if registryName != "" && registryPath != "" && prefix != registryName+"/"+registryPath {
		return Entry{}, NewTagError("resolve tag", tag,
			"registry prefix does not match "+registryName+"/"+registryPath, ErrMalformedTag)
	}

	key := wildcardRegistry + "/" + wildcardRegistry + "/" + repo + ":" + tagPart
	if e, ok := l.entries[key]; ok {
		return e, nil
	}

	// Dev tags carry a numeric disambiguation prefix; retry without it.
	stripped := devPrefixRegex.ReplaceAllString(tagPart, "")
	if stripped != tagPart {
		key = wildcardRegistry + "/" + wildcardRegistry + "/" + repo + ":" + stripped
		if e, ok := l.entries[key]; ok {
			return e, nil
		}
	}

	return Entry{}, NewTagError("resolve tag", tag, "unknown tag", ErrTagNotFound)
}

// =============================================================================
// Tag Rewriting
// =============================================================================

// semverPrefixRegex matches an explicit X.Y.Z version prefix in a tag part.
var semverPrefixRegex = regexp.MustCompile(`^\d+\.\d+\.\d+`)

// UpdatedTag rewrites an existing tag string for a new version and registry.
//
// When the reverse lookup resolves the tag, the replacement is regenerated
// through ForVersion; a tag whose templates are already fully versioned
// (regeneration yields nothing) is returned unchanged. When the lookup
// misses, a textual rewrite swaps the version prefix of the tag part
// ("dev-..." or an explicit X.Y.Z prefix) while keeping the repository,
// tolerating tags carrying versions the registry never recorded.
func (l *Lookup) UpdatedTag(reg *registry.Registry, currentTag, currentRegistry, currentPath, updatedVersion, updatedRegistry, updatedPath, variant string) (string, error) {
	entry, err := l.DefinitionFromTag(currentTag, currentRegistry, currentPath)
	if err == nil {
		if variant == "" {
			variant = entry.Variant
		}
		updated := ForVersion(reg, entry.ID, updatedVersion, updatedRegistry, updatedPath, variant)
		if len(updated) == 0 {
			return currentTag, nil
		}
		return updated[0], nil
	}
	if !errors.Is(err, ErrTagNotFound) {
		return "", err
	}

	m := tagShapeRegex.FindStringSubmatch(currentTag)
	if m == nil {
		return "", NewTagError("update tag", currentTag, "malformed tag", ErrMalformedTag)
	}
	repo, tagPart := m[2], m[3]

	switch {
	case tagPart == registry.DevVersion:
		tagPart = updatedVersion
	case strings.HasPrefix(tagPart, registry.DevVersion+"-"):
		tagPart = updatedVersion + strings.TrimPrefix(tagPart, registry.DevVersion)
	case semverPrefixRegex.MatchString(tagPart):
		tagPart = semverPrefixRegex.ReplaceAllString(tagPart, updatedVersion)
	default:
		tagPart = updatedVersion + "-" + tagPart
	}

	return updatedRegistry + "/" + updatedPath + "/" + repo + ":" + tagPart, nil
}
