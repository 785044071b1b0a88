package tags

import (
	"strings"

	"github.com/defbuild/defbuild/internal/core/manifest"
	"github.com/defbuild/defbuild/internal/core/registry"
)

// NoVariant is the sentinel substituted for the variant placeholder when a
// definition declares no variants. A trailing "-NOVARIANT" is stripped from
// generated tags so variant-less definitions get clean names.
const NoVariant = "NOVARIANT"

// variantPlaceholders are the accepted spellings of the variant placeholder.
// A caller may also pass one of these as the variant argument to request
// expansion across every variant tag list.
var variantPlaceholders = []string{"${VARIANT}", "$VARIANT"}

const versionPlaceholder = "${VERSION}"

func isVariantPlaceholder(s string) bool {
	for _, ph := range variantPlaceholders {
		if s == ph {
			return true
		}
	}
	return false
}

// =============================================================================
// Tag Generation
// =============================================================================

// ForVersion produces the fully-qualified tag strings for one definition at
// one concrete version.
//
// Behavior:
//   - Unknown definition ids yield nil (not an error) so callers can branch.
//   - A "dev" version on a versionedTagsOnly definition is rewritten to
//     dev-<id without dashes> to keep the shared dev tag space collision-free.
//   - An empty variant defaults to the first declared variant, or NoVariant.
//   - Passing the variant placeholder itself expands every variant tag list.
//   - Results keep template declaration order and are not deduplicated.
//   - A substituted template left ending in ":" carried a version-only tag
//     with nothing to show and is discarded.
func ForVersion(reg *registry.Registry, id, version, registryName, registryPath, variant string) []string {
	def, ok := reg.Definition(id)
	if !ok {
		return nil
	}

	if version == registry.DevVersion && def.Build.VersionedTagsOnly {
		version = "dev-" + strings.ReplaceAll(id, "-", "")
	}

	if variant == "" {
		if len(def.Variants) > 0 {
			variant = def.Variants[0]
		} else {
			variant = NoVariant
		}
	}

	templates := make([]string, 0, len(def.Build.Tags))
	templates = append(templates, def.Build.Tags...)
	if isVariantPlaceholder(variant) {
		for _, v := range def.Variants {
			templates = append(templates, def.Build.VariantTags[v]...)
		}
	} else if extra, ok := def.Build.VariantTags[variant]; ok {
		templates = append(templates, extra...)
	}

	prefix := registryName + "/" + registryPath + "/"
	out := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		tag := strings.ReplaceAll(tmpl, versionPlaceholder, version)
		// An empty version leaves ":-variant"; collapse to ":variant".
		tag = strings.ReplaceAll(tag, ":-", ":")
		for _, ph := range variantPlaceholders {
			tag = strings.ReplaceAll(tag, ph, variant)
		}
		tag = strings.TrimSuffix(tag, "-"+NoVariant)
		if strings.HasSuffix(tag, ":") {
			continue
		}
		out = append(out, prefix+tag)
	}
	return out
}

// List produces the complete tag list for a release of a definition,
// expanding the semantic version according to the requested mode.
//
// The release resolves to the recorded version only for v-prefixed refs;
// branch builds get the dev tag set without semver expansion.
func List(reg *registry.Registry, id, release string, mode VersionPartMode, registryName, registryPath, variant string) ([]string, error) {
	def, ok := reg.Definition(id)
	if !ok {
		return nil, nil
	}

	version := ResolveRelease(reg, id, release)
	if version == registry.DevVersion {
		return ForVersion(reg, id, version, registryName, registryPath, variant), nil
	}

	parsed, err := ParseVersion(version)
	if err != nil {
		return nil, err
	}

	var versions []string
	updateLatest := false
	switch mode {
	case ModeAllLatest:
		updateLatest = true
		fallthrough
	case ModeAll:
		versions = []string{parsed.String(), parsed.MajorMinor(), parsed.MajorOnly()}
		if !def.Build.VersionedTagsOnly {
			// Unversioned tag set, e.g. name:3 next to name:1.2.3-3.
			versions = append(versions, "")
		}
	case ModeFullOnly:
		versions = []string{parsed.String()}
	case ModeMajorMinor:
		versions = []string{parsed.MajorMinor()}
	case ModeMajor:
		versions = []string{parsed.MajorOnly()}
	default:
		return nil, NewTagError("tag list", string(mode), "unknown mode", ErrUnknownMode)
	}

	var out []string
	for _, v := range versions {
		out = append(out, ForVersion(reg, id, v, registryName, registryPath, variant)...)
	}

	if updateLatest && latestApplies(def.Variants, def.Build.Latest, variant) {
		out = append(out, Latest(reg, id, registryName, registryPath)...)
	}
	return out, nil
}

// latestApplies decides whether "latest" tags belong to the current variant.
func latestApplies(variants []string, latest manifest.Latest, variant string) bool {
	if !latest.Declared {
		return false
	}
	if len(variants) == 0 {
		return true
	}
	if variant == "" {
		variant = variants[0]
	}
	if latest.Variant != "" && variant == latest.Variant {
		return true
	}
	return latest.True && variant == variants[0]
}

// Latest produces the "latest" tag for every base tag template of a
// definition: the version-bearing suffix after the first ":" is replaced
// with "latest". Results are deduplicated keeping first-seen order, since
// distinct templates often collapse to the same latest form. Returns nil
// when the id is unknown.
func Latest(reg *registry.Registry, id, registryName, registryPath string) []string {
	def, ok := reg.Definition(id)
	if !ok {
		return nil
	}

	prefix := registryName + "/" + registryPath + "/"
	var out []string
	seen := make(map[string]bool)
	for _, tmpl := range def.Build.Tags {
		repo := tmpl
		if idx := strings.Index(tmpl, ":"); idx >= 0 {
			repo = tmpl[:idx]
		}
		tag := prefix + repo + ":latest"
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
