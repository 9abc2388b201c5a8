package values

import (
	"regexp"
	"strings"

	"github.com/deployworks/deployctl/pkg/errors"
)

// DefaultMaxDepth bounds recursive placeholder expansion.
const DefaultMaxDepth = 8

// placeholderPattern matches ${name} and ${name:modifiers} placeholders.
var placeholderPattern = regexp.MustCompile(`\$\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*(?::([A-Za-z,]+))?\}`)

// ResolveOptions configures placeholder resolution.
type ResolveOptions struct {
	// Strict makes unresolved placeholders and expansion cycles errors.
	// When false, unresolved placeholder text is left intact.
	Strict bool

	// MaxDepth bounds how many rewrite passes may run before expansion is
	// considered cyclic. Zero means DefaultMaxDepth.
	MaxDepth int
}

// Resolve substitutes ${name} placeholders in template against providers.
// When several providers share a name, the last one in the list wins.
// Substituted values may themselves contain placeholders; expansion repeats
// until the string settles or MaxDepth passes have run.
func Resolve(template string, providers []Provider, opts ResolveOptions) (string, error) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	current := template
	for depth := 0; ; depth++ {
		next, substituted, err := resolveOnce(current, providers, opts.Strict)
		if err != nil {
			return "", err
		}
		if !substituted {
			return next, nil
		}
		if depth >= maxDepth {
			if opts.Strict {
				return "", errors.CyclicPlaceholder(template, maxDepth)
			}
			return next, nil
		}
		current = next
	}
}

// resolveOnce runs a single substitution pass. It reports whether any
// placeholder was actually replaced so the caller can detect settling.
func resolveOnce(template string, providers []Provider, strict bool) (string, bool, error) {
	substituted := false
	var resolveErr error

	result := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		if resolveErr != nil {
			return match
		}

		groups := placeholderPattern.FindStringSubmatch(match)
		name, mods := groups[1], groups[2]

		provider, ok := Lookup(providers, name)
		if !ok {
			if strict {
				resolveErr = errors.PlaceholderNotFound(name)
			}
			return match
		}

		value, err := provider.Value()
		if err != nil {
			if strict {
				resolveErr = errors.Wrap(errors.ErrCodePlaceholderNotFound, "value provider failed for "+name, err)
			}
			return match
		}

		substituted = true
		return applyModifiers(value, mods)
	})

	if resolveErr != nil {
		return "", false, resolveErr
	}
	return result, substituted, nil
}

// applyModifiers applies the comma-separated modifier list from
// ${name:mod1,mod2} to a resolved value. Unknown modifiers are ignored.
func applyModifiers(value, mods string) string {
	if mods == "" {
		return value
	}
	for _, mod := range strings.Split(mods, ",") {
		switch strings.ToLower(strings.TrimSpace(mod)) {
		case "upper":
			value = strings.ToUpper(value)
		case "lower":
			value = strings.ToLower(value)
		case "trim":
			value = strings.TrimSpace(value)
		}
	}
	return value
}
