// Copyright © 2025 The MON authors

// Package export turns resolved MON documents into plain data and
// serializes it as JSON, YAML or TOML.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/monlang/mon/ast"
)

// ErrNotObject is returned when a format needs an object at the root.
var ErrNotObject = errors.New("export: root value is not an object")

// Object is a materialized object that keeps its keys in resolved order.
type Object struct {
	Keys   []string
	Values map[string]any
}

func newObject() *Object {
	return &Object{Values: make(map[string]any)}
}

func (o *Object) set(key string, v any) {
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = v
}

// Map returns the object as a plain map, converting nested objects too.
func (o *Object) Map() map[string]any {
	m := make(map[string]any, len(o.Keys))
	for _, k := range o.Keys {
		m[k] = plain(o.Values[k])
	}
	return m
}

func plain(v any) any {
	switch v := v.(type) {
	case *Object:
		return v.Map()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(o.Values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Object) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range o.Keys {
		var val yaml.Node
		if err := val.Encode(o.Values[k]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
	}
	return node, nil
}

// Ordered materializes a resolved value. Objects become *Object, arrays
// []any, numbers int64 when integral and float64 otherwise. Aliases and
// spreads are followed, type definitions are dropped and enum values render
// as "Enum.Variant". References that never resolved become nil.
func Ordered(v ast.Value) any {
	return materialize(v, make(map[ast.Value]bool))
}

// Value materializes a resolved value like Ordered, with objects as plain
// maps.
func Value(v ast.Value) any {
	return plain(Ordered(v))
}

func materialize(v ast.Value, active map[ast.Value]bool) any {
	v = ast.Deref(v)
	if v == nil {
		return nil
	}
	if active[v] {
		// A reference back into a value being materialized. The resolver
		// reports these; the export leaves a hole.
		return nil
	}
	switch v := v.(type) {
	case *ast.Null, *ast.Unresolved:
		return nil
	case *ast.Bool:
		return v.Value
	case *ast.Number:
		return number(v.Value)
	case *ast.String:
		return v.Value
	case *ast.EnumValue:
		return v.Enum + "." + v.Variant
	case *ast.Array:
		active[v] = true
		defer delete(active, v)
		out := make([]any, 0, len(v.Items))
		for _, e := range elements(v) {
			out = append(out, materialize(e, active))
		}
		return out
	case *ast.Object:
		active[v] = true
		defer delete(active, v)
		obj := newObject()
		if v.Entries != nil {
			for _, e := range v.Entries {
				obj.set(e.Key, materialize(e.Value, active))
			}
			return obj
		}
		for _, p := range v.Pairs() {
			if _, ok := obj.Values[p.Key]; !ok {
				obj.set(p.Key, materialize(p.Value, active))
			}
		}
		return obj
	case *ast.Alias, *ast.ArraySpread:
		// unresolved
		return nil
	default:
		panic(fmt.Sprintf("export: unhandled value %T", v))
	}
}

// elements returns the items of an array with spreads spliced in. Resolved
// arrays carry them already.
func elements(arr *ast.Array) []ast.Value {
	if arr.Elements != nil {
		return arr.Elements
	}
	var out []ast.Value
	for _, item := range arr.Items {
		if sp, ok := item.(*ast.ArraySpread); ok {
			if target, ok := ast.Deref(sp.Target).(*ast.Array); ok {
				out = append(out, elements(target)...)
			}
			continue
		}
		out = append(out, item)
	}
	return out
}

func number(f float64) any {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}

// ToJSON renders a resolved value as indented JSON with keys in resolved
// order.
func ToJSON(v ast.Value) ([]byte, error) {
	out, err := json.MarshalIndent(Ordered(v), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export json: %w", err)
	}
	return append(out, '\n'), nil
}

// ToYAML renders a resolved value as YAML with keys in resolved order.
func ToYAML(v ast.Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Ordered(v)); err != nil {
		return nil, fmt.Errorf("export yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("export yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// TOMLOptions controls ToTOML.
type TOMLOptions struct {
	// NullValue replaces nulls, which TOML cannot represent. When empty,
	// null-valued keys and array items are dropped.
	NullValue string
}

// ToTOML renders a resolved object as TOML. Keys are sorted.
func ToTOML(v ast.Value, opts TOMLOptions) ([]byte, error) {
	m, ok := Value(v).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	out, err := toml.Marshal(replaceNulls(m, opts.NullValue))
	if err != nil {
		return nil, fmt.Errorf("export toml: %w", err)
	}
	return out, nil
}

// CountNulls returns the number of nulls in a materialized value.
func CountNulls(v any) int {
	switch v := v.(type) {
	case nil:
		return 1
	case map[string]any:
		n := 0
		for _, e := range v {
			n += CountNulls(e)
		}
		return n
	case []any:
		n := 0
		for _, e := range v {
			n += CountNulls(e)
		}
		return n
	default:
		return 0
	}
}

func replaceNulls(v any, with string) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			if e == nil && with == "" {
				continue
			}
			out[k] = replaceNulls(e, with)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, e := range v {
			if e == nil && with == "" {
				continue
			}
			out = append(out, replaceNulls(e, with))
		}
		return out
	case nil:
		return with
	default:
		return v
	}
}
