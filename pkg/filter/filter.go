// Package filter gates configuration items on `if` expressions and platform
// restrictions. Targets, packages, imports, switch options, and hooks all
// pass through this filter before they are used.
package filter

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/deployworks/deployctl/pkg/expr"
)

// Spec carries the filterable aspects of a configuration item.
type Spec struct {
	// If holds expressions that must all evaluate truthy.
	If []string

	// Platforms restricts the item to the named platforms (GOOS values).
	// Empty means all platforms.
	Platforms []string
}

// Conditional is implemented by configuration items that can be filtered.
type Conditional interface {
	FilterSpec() Spec
}

// Options configures filtering behavior.
type Options struct {
	// ThrowOnError propagates evaluation errors instead of applying ErrorResult.
	ThrowOnError bool

	// ErrorResult is the inclusion decision applied to an item whose
	// condition fails to evaluate. Default false: the item is excluded.
	ErrorResult bool

	// Workspace is exposed to expressions as the `workspace` binding.
	Workspace map[string]interface{}

	// Values is exposed to expressions as the `values` binding.
	Values map[string]string

	// ItemBinding derives the `item` binding for an item. Nil leaves the
	// binding empty.
	ItemBinding func(item Conditional) map[string]interface{}

	// Platform overrides the current platform tag. Empty means runtime.GOOS.
	Platform string
}

// Apply returns the items applicable in the current context: those that pass
// the platform check and whose `if` expressions all evaluate truthy.
func Apply[T Conditional](items []T, eval expr.Evaluator, opts Options) ([]T, error) {
	result := make([]T, 0, len(items))
	for _, item := range items {
		ok, err := Matches(item, eval, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, item)
		}
	}
	return result, nil
}

// Matches reports whether a single item passes the filter.
func Matches(item Conditional, eval expr.Evaluator, opts Options) (bool, error) {
	spec := item.FilterSpec()

	if !platformMatches(spec.Platforms, opts.Platform) {
		return false, nil
	}

	if len(spec.If) == 0 {
		return true, nil
	}

	bindings := expr.Bindings{
		Workspace: opts.Workspace,
		Values:    opts.Values,
	}
	if opts.ItemBinding != nil {
		bindings.Item = opts.ItemBinding(item)
	}

	for _, code := range spec.If {
		if strings.TrimSpace(code) == "" {
			continue
		}
		if eval == nil {
			if opts.ThrowOnError {
				return false, fmt.Errorf("condition %q: no evaluator configured", code)
			}
			return opts.ErrorResult, nil
		}
		val, err := eval.Evaluate(code, bindings)
		if err != nil {
			if opts.ThrowOnError {
				return false, err
			}
			return opts.ErrorResult, nil
		}
		if !expr.Truthy(val) {
			return false, nil
		}
	}
	return true, nil
}

// platformMatches checks a platform restriction list against the current
// platform. Comparison is case-insensitive; an empty list matches everything.
func platformMatches(platforms []string, current string) bool {
	if len(platforms) == 0 {
		return true
	}
	if current == "" {
		current = runtime.GOOS
	}
	for _, p := range platforms {
		if strings.EqualFold(strings.TrimSpace(p), current) {
			return true
		}
	}
	return false
}
