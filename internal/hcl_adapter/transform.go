package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/zkparallel/internal/circuit"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Variables visible inside a transform expression.
const (
	varOutputs = "outputs"
	varFrom    = "from"
)

var transformFuncs = map[string]function.Function{
	"add":     stdlib.AddFunc,
	"concat":  stdlib.ConcatFunc,
	"element": stdlib.ElementFunc,
	"length":  stdlib.LengthFunc,
	"slice":   stdlib.SliceFunc,
}

// compileTransform turns a `transform` attribute into a circuit.Transform.
// The expression sees `outputs`, the predecessor's public signals as a list
// of numbers, and `from`, the predecessor's id. It must evaluate to an
// object whose attributes override the consumer's input document.
func compileTransform(circuitID string, expr hcl.Expression) (circuit.Transform, error) {
	for _, traversal := range expr.Variables() {
		switch name := traversal.RootName(); name {
		case varOutputs, varFrom:
		default:
			return nil, fmt.Errorf("circuit '%s': transform references unknown variable '%s' at %s", circuitID, name, traversal.SourceRange())
		}
	}

	return func(from string, outputs []string) (map[string]any, error) {
		list, err := outputsToCty(outputs)
		if err != nil {
			return nil, fmt.Errorf("transform of circuit '%s': %w", circuitID, err)
		}

		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				varOutputs: list,
				varFrom:    cty.StringVal(from),
			},
			Functions: transformFuncs,
		}

		val, diags := expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("transform of circuit '%s' from '%s': %w", circuitID, from, diags)
		}
		if val.IsNull() || !(val.Type().IsObjectType() || val.Type().IsMapType()) {
			return nil, fmt.Errorf("transform of circuit '%s' must produce an object, got %s", circuitID, val.Type().FriendlyName())
		}

		converted, err := ctyValueToInterface(val)
		if err != nil {
			return nil, fmt.Errorf("transform of circuit '%s': %w", circuitID, err)
		}
		return converted.(map[string]any), nil
	}, nil
}

func outputsToCty(outputs []string) (cty.Value, error) {
	if len(outputs) == 0 {
		return cty.ListValEmpty(cty.Number), nil
	}
	vals := make([]cty.Value, len(outputs))
	for i, o := range outputs {
		v, err := cty.ParseNumberVal(o)
		if err != nil {
			return cty.NilVal, fmt.Errorf("public output %d ('%s') is not a number: %w", i, o, err)
		}
		vals[i] = v
	}
	return cty.ListVal(vals), nil
}
