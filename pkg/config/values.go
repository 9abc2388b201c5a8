package config

import (
	"fmt"
	"sort"

	"github.com/deployworks/deployctl/pkg/errors"
	"github.com/deployworks/deployctl/pkg/expr"
	"github.com/deployworks/deployctl/pkg/filter"
	"github.com/deployworks/deployctl/pkg/values"
)

// ValueProviders converts the snapshot's value declarations into providers
// for placeholder resolution. Declarations whose conditions fail are
// excluded. Providers are returned in name order so resolution is
// deterministic across loads.
func (s *Settings) ValueProviders(eval expr.Evaluator) ([]values.Provider, error) {
	if len(s.Values) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(s.Values))
	for name := range s.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]values.Provider, 0, len(names))
	for _, name := range names {
		spec := s.Values[name]
		if spec == nil {
			continue
		}

		ok, err := filter.Matches(spec, eval, filter.Options{})
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		providers = append(providers, valueProvider(name, spec, eval))
	}
	return providers, nil
}

func valueProvider(name string, spec *ValueSpec, eval expr.Evaluator) values.Provider {
	switch {
	case spec.Value != nil:
		return values.Static(name, *spec.Value)
	case spec.Env != "":
		return values.Env(name, spec.Env)
	case spec.Code != "":
		return values.Func(name, func() (string, error) {
			if eval == nil {
				return "", errors.ExpressionError(spec.Code, fmt.Errorf("no evaluator configured"))
			}
			result, err := eval.Evaluate(spec.Code, expr.Bindings{})
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%v", result), nil
		})
	default:
		return values.Static(name, "")
	}
}
