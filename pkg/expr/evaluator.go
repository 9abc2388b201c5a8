// Package expr evaluates configuration expressions using HCL expression
// syntax over a cty value context. Conditions attached to targets, packages,
// imports, and hooks are parsed and evaluated here.
package expr

import (
	"runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/deployworks/deployctl/pkg/errors"
)

// Bindings provides the variables visible to an expression: the item the
// expression is attached to, the owning workspace, and the resolved value set.
type Bindings struct {
	Item      map[string]interface{}
	Workspace map[string]interface{}
	Values    map[string]string
}

// Evaluator evaluates a single expression against a set of bindings.
type Evaluator interface {
	Evaluate(code string, b Bindings) (interface{}, error)
}

// HCLEvaluator implements Evaluator using HCL expression syntax.
type HCLEvaluator struct {
	functions map[string]function.Function
}

// New creates a new HCL-backed evaluator with the standard function table.
func New() *HCLEvaluator {
	return &HCLEvaluator{
		functions: standardFunctions(),
	}
}

// Evaluate parses and evaluates code with the given bindings.
func (e *HCLEvaluator) Evaluate(code string, b Bindings) (interface{}, error) {
	parsed, diags := hclsyntax.ParseExpression([]byte(code), "condition", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, errors.ExpressionError(code, diags)
	}

	hclCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"item":      toCtyValue(normalizeMap(b.Item)),
			"workspace": toCtyValue(normalizeMap(b.Workspace)),
			"values":    stringMapToCty(b.Values),
			"platform":  cty.StringVal(runtime.GOOS),
		},
		Functions: e.functions,
	}

	val, diags := parsed.Value(hclCtx)
	if diags.HasErrors() {
		return nil, errors.ExpressionError(code, diags)
	}

	return fromCtyValue(val), nil
}

// Truthy reports whether an evaluation result counts as true. Booleans are
// used as-is, strings are true when non-empty, numbers when non-zero, and
// any other non-nil value is true.
func Truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return true
	}
}

func normalizeMap(m map[string]interface{}) interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return m
}

func stringMapToCty(m map[string]string) cty.Value {
	if len(m) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	vals := make(map[string]cty.Value, len(m))
	for k, v := range m {
		vals[k] = cty.StringVal(v)
	}
	return cty.MapVal(vals)
}
