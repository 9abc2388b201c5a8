package expr

import (
	"math/big"

	"github.com/zclconf/go-cty/cty"
)

// toCtyValue converts a plain Go value (as produced by encoding/json) into a
// cty value for use in an evaluation context.
func toCtyValue(v interface{}) cty.Value {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case bool:
		return cty.BoolVal(t)
	case string:
		return cty.StringVal(t)
	case int:
		return cty.NumberIntVal(int64(t))
	case int64:
		return cty.NumberIntVal(t)
	case float64:
		return cty.NumberFloatVal(t)
	case []interface{}:
		if len(t) == 0 {
			return cty.ListValEmpty(cty.DynamicPseudoType)
		}
		vals := make([]cty.Value, len(t))
		for i, item := range t {
			vals[i] = toCtyValue(item)
		}
		return cty.TupleVal(vals)
	case []string:
		if len(t) == 0 {
			return cty.ListValEmpty(cty.String)
		}
		vals := make([]cty.Value, len(t))
		for i, item := range t {
			vals[i] = cty.StringVal(item)
		}
		return cty.ListVal(vals)
	case map[string]interface{}:
		if len(t) == 0 {
			return cty.EmptyObjectVal
		}
		vals := make(map[string]cty.Value, len(t))
		for k, item := range t {
			vals[k] = toCtyValue(item)
		}
		return cty.ObjectVal(vals)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// fromCtyValue converts a cty value back into a plain Go value.
func fromCtyValue(v cty.Value) interface{} {
	if v.IsNull() || !v.IsKnown() {
		return nil
	}

	ty := v.Type()
	switch {
	case ty == cty.Bool:
		return v.True()
	case ty == cty.String:
		return v.AsString()
	case ty == cty.Number:
		bf := v.AsBigFloat()
		if i, acc := bf.Int64(); acc == big.Exact {
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var result []interface{}
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			result = append(result, fromCtyValue(ev))
		}
		return result
	case ty.IsMapType() || ty.IsObjectType():
		result := make(map[string]interface{})
		for it := v.ElementIterator(); it.Next(); {
			kv, ev := it.Element()
			result[kv.AsString()] = fromCtyValue(ev)
		}
		return result
	default:
		return nil
	}
}
