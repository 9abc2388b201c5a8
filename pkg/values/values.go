// Package values provides named value providers and ${name} placeholder
// substitution for configuration strings.
package values

import (
	"os"
	"strings"
)

// Provider supplies a named string value. Function-backed providers are
// re-evaluated on every resolution, so values can depend on live context
// such as the current workspace root.
type Provider interface {
	// Name returns the provider's name. Matching is case-insensitive on the
	// normalized name.
	Name() string

	// Value produces the current value.
	Value() (string, error)
}

// NormalizeName normalizes a value or target name for comparison.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

type staticProvider struct {
	name  string
	value string
}

func (p *staticProvider) Name() string           { return p.name }
func (p *staticProvider) Value() (string, error) { return p.value, nil }

// Static creates a provider with a fixed value.
func Static(name, value string) Provider {
	return &staticProvider{name: name, value: value}
}

type envProvider struct {
	name string
	key  string
}

func (p *envProvider) Name() string { return p.name }

func (p *envProvider) Value() (string, error) {
	return os.Getenv(p.key), nil
}

// Env creates a provider that reads an environment variable at resolution time.
func Env(name, key string) Provider {
	if key == "" {
		key = name
	}
	return &envProvider{name: name, key: key}
}

type funcProvider struct {
	name string
	fn   func() (string, error)
}

func (p *funcProvider) Name() string { return p.name }

func (p *funcProvider) Value() (string, error) {
	return p.fn()
}

// Func creates a provider backed by a function invoked at resolution time.
func Func(name string, fn func() (string, error)) Provider {
	return &funcProvider{name: name, fn: fn}
}

// Lookup finds the best provider for name. When several providers share a
// name the last one in the list wins; callers order providers from lowest
// to highest priority.
func Lookup(providers []Provider, name string) (Provider, bool) {
	normalized := NormalizeName(name)
	for i := len(providers) - 1; i >= 0; i-- {
		if NormalizeName(providers[i].Name()) == normalized {
			return providers[i], true
		}
	}
	return nil, false
}

// ToMap materializes a provider list into a name->value map, later providers
// winning on name conflicts. Provider errors leave the name unset.
func ToMap(providers []Provider) map[string]string {
	result := make(map[string]string, len(providers))
	for _, p := range providers {
		v, err := p.Value()
		if err != nil {
			continue
		}
		result[NormalizeName(p.Name())] = v
	}
	return result
}
