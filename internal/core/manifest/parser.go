package manifest

import (
	"errors"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parser Functions
// =============================================================================

// variantPlaceholders are the two accepted spellings of the variant
// placeholder in templates.
var variantPlaceholders = []string{"${VARIANT}", "$VARIANT"}

// Parse parses raw definition manifest YAML into a Definition.
// This is a pure function - no I/O, no side effects.
func Parse(content []byte) (*Definition, error) {
	if strings.TrimSpace(string(content)) == "" {
		return nil, ErrEmptyInput
	}

	var def Definition
	if err := yaml.Unmarshal(content, &def); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			return nil, pe
		}
		return nil, NewParseError("", err.Error(), ErrInvalidYAML)
	}

	def.Dependencies.ImageVariants = expandImageVariants(def.Dependencies.Image, def.Variants)
	return &def, nil
}

// expandImageVariants expands a dependency image template once per variant.
// With no variants the template is returned as-is (a single reference).
func expandImageVariants(image string, variants []string) []string {
	if image == "" {
		return nil
	}
	if len(variants) == 0 {
		return []string{image}
	}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		ref := image
		for _, ph := range variantPlaceholders {
			ref = strings.ReplaceAll(ref, ph, v)
		}
		out = append(out, ref)
	}
	return out
}
