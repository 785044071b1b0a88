package tags

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/defbuild/defbuild/internal/core/registry"
)

// =============================================================================
// Version Handling
// =============================================================================

// VersionPartMode selects which expansions of a semantic version are tagged.
type VersionPartMode string

const (
	// ModeAllLatest emits X.Y.Z, X.Y and X tags plus "latest" tags.
	ModeAllLatest VersionPartMode = "all-latest"
	// ModeAll emits X.Y.Z, X.Y and X tags without "latest" tags.
	ModeAll VersionPartMode = "all"
	// ModeFullOnly emits only the full X.Y.Z tag.
	ModeFullOnly VersionPartMode = "full-only"
	// ModeMajorMinor emits only the X.Y tag.
	ModeMajorMinor VersionPartMode = "major-minor"
	// ModeMajor emits only the X tag.
	ModeMajor VersionPartMode = "major"
)

// ParseVersionPartMode converts a CLI/config value into a VersionPartMode.
// The boolean spellings are accepted for compatibility: "true" means
// all-latest, "false" means all.
func ParseVersionPartMode(s string) (VersionPartMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", string(ModeAllLatest):
		return ModeAllLatest, nil
	case "false", string(ModeAll):
		return ModeAll, nil
	case string(ModeFullOnly):
		return ModeFullOnly, nil
	case string(ModeMajorMinor):
		return ModeMajorMinor, nil
	case string(ModeMajor):
		return ModeMajor, nil
	default:
		return "", NewTagError("parse mode", s, "unknown mode", ErrUnknownMode)
	}
}

// Version is a parsed three-part semantic version.
type Version struct {
	Major int
	Minor int
	Patch int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// MajorMinor returns the X.Y form.
func (v Version) MajorMinor() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MajorOnly returns the X form.
func (v Version) MajorOnly() string {
	return strconv.Itoa(v.Major)
}

// ParseVersion parses a version string in the format "X.Y.Z". Anything else
// is an error: semver expansion cannot proceed without all three parts.
func ParseVersion(versionStr string) (Version, error) {
	parts := strings.Split(versionStr, ".")
	if len(parts) != 3 {
		return Version{}, NewTagError("parse version", versionStr,
			fmt.Sprintf("expected X.Y.Z, got %d parts", len(parts)), ErrInvalidVersion)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, NewTagError("parse version", versionStr,
				fmt.Sprintf("part %q is not numeric", p), ErrInvalidVersion)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// releaseTagRegex matches release refs of the form v<number>... which resolve
// to the definition's recorded version. Everything else is a branch name.
var releaseTagRegex = regexp.MustCompile(`^v\d`)

// ResolveRelease resolves a release ref to a concrete version string.
// A v-prefixed ref looks up the definition's recorded semantic version;
// branch names resolve to "dev".
func ResolveRelease(reg *registry.Registry, id, release string) string {
	if releaseTagRegex.MatchString(release) {
		return reg.Version(id)
	}
	return registry.DevVersion
}
