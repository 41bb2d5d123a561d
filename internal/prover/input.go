package prover

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// document is the JSON input format. Public and secret list the signal
// names in wire order; every other key holds a signal value. A value that is
// an array fills as many consecutive wires as it has leaves.
//
//	{"public": ["y"], "secret": ["x"], "x": "3", "y": "35"}
type document struct {
	Public []string
	Secret []string
	Values map[string]any
}

func parseDocument(raw []byte) (*document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	doc := &document{Values: fields}
	var err error
	if doc.Public, err = nameList(fields, "public"); err != nil {
		return nil, err
	}
	if doc.Secret, err = nameList(fields, "secret"); err != nil {
		return nil, err
	}
	delete(fields, "public")
	delete(fields, "secret")
	return doc, nil
}

func nameList(fields map[string]any, key string) ([]string, error) {
	raw, ok := fields[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: '%s' must be a list of signal names", ErrMalformedInput, key)
	}
	names := make([]string, len(items))
	for i, item := range items {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: '%s'[%d] is not a string", ErrMalformedInput, key, i)
		}
		names[i] = name
	}
	return names, nil
}

// assignments flattens the named signals into wire values.
func (d *document) assignments(names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		v, ok := d.Values[name]
		if !ok {
			return nil, fmt.Errorf("%w: signal '%s' has no value", ErrMalformedInput, name)
		}
		var err error
		out, err = flatten(out, name, v)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func flatten(out []string, name string, v any) ([]string, error) {
	switch val := v.(type) {
	case json.Number:
		return append(out, val.String()), nil
	case string:
		return append(out, val), nil
	case bool:
		if val {
			return append(out, "1"), nil
		}
		return append(out, "0"), nil
	case []any:
		for _, item := range val {
			var err error
			if out, err = flatten(out, name, item); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: signal '%s' has unsupported value of type %T", ErrMalformedInput, name, v)
	}
}
