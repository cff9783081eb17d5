// Copyright © 2025 The MON authors

// Package astutil provides shared syntax tree walking utilities for MON
// documents.
//
// These helpers are used by the analysis, lint and lsp packages. They walk
// the tree as written: alias targets and spread members are not followed,
// so every node is visited exactly once.
package astutil

import (
	"fmt"
	"strconv"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/position"
)

// Walk calls fn for every value in the tree, depth-first in source order.
// parent is nil for the root. depth counts the containers (objects and
// arrays) enclosing v. Struct field defaults are not visited.
func Walk(root ast.Value, fn func(v ast.Value, parent ast.Value, depth int)) {
	walkValue(root, nil, 0, fn)
}

func walkValue(v ast.Value, parent ast.Value, depth int, fn func(ast.Value, ast.Value, int)) {
	if v == nil {
		return
	}
	fn(v, parent, depth)
	switch v := v.(type) {
	case *ast.Object:
		for _, m := range v.Members {
			if p, ok := m.(*ast.Pair); ok {
				walkValue(p.Value, v, depth+1, fn)
			}
		}
	case *ast.Array:
		for _, item := range v.Items {
			walkValue(item, v, depth+1, fn)
		}
	case *ast.Null, *ast.Bool, *ast.Number, *ast.String, *ast.Alias,
		*ast.EnumValue, *ast.ArraySpread, *ast.Unresolved:
	default:
		panic(fmt.Sprintf("astutil: unhandled value %T", v))
	}
}

// WalkObjects calls fn for every object in the tree.
func WalkObjects(root ast.Value, fn func(obj *ast.Object, depth int)) {
	Walk(root, func(v ast.Value, _ ast.Value, depth int) {
		if obj, ok := v.(*ast.Object); ok {
			fn(obj, depth)
		}
	})
}

// WalkMembers calls fn for every object member in the tree, including type
// definitions and spreads.
func WalkMembers(root ast.Value, fn func(m ast.Member, obj *ast.Object)) {
	WalkObjects(root, func(obj *ast.Object, _ int) {
		for _, m := range obj.Members {
			fn(m, obj)
		}
	})
}

// Anchors returns every anchored pair in the document in source order.
func Anchors(root ast.Value) []*ast.Pair {
	var out []*ast.Pair
	WalkMembers(root, func(m ast.Member, _ *ast.Object) {
		if p, ok := m.(*ast.Pair); ok && p.Anchored {
			out = append(out, p)
		}
	})
	return out
}

// TypeDefs returns every type definition in the document in source order.
func TypeDefs(root ast.Value) []*ast.TypeDef {
	var out []*ast.TypeDef
	WalkMembers(root, func(m ast.Member, _ *ast.Object) {
		if td, ok := m.(*ast.TypeDef); ok {
			out = append(out, td)
		}
	})
	return out
}

// KindName returns a short user-facing name for the kind of v, following
// aliases to their targets.
func KindName(v ast.Value) string {
	switch v := ast.Deref(v).(type) {
	case *ast.Null:
		return "null"
	case *ast.Bool:
		return "boolean"
	case *ast.Number:
		return "number"
	case *ast.String:
		return "string"
	case *ast.Array:
		return "array"
	case *ast.Object:
		return "object"
	case *ast.Alias:
		return "unresolved alias"
	case *ast.EnumValue:
		return "enum value"
	case *ast.ArraySpread:
		return "array spread"
	case *ast.Unresolved:
		return "unresolved reference"
	default:
		panic(fmt.Sprintf("astutil: unhandled value %T", v))
	}
}

// Preview renders a short single-line description of v for hover text and
// symbol details. Containers are summarized rather than printed.
func Preview(v ast.Value) string {
	switch v := v.(type) {
	case *ast.Null:
		return "null"
	case *ast.Bool:
		return strconv.FormatBool(v.Value)
	case *ast.Number:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case *ast.String:
		s := v.Value
		if len(s) > 40 {
			s = s[:37] + "..."
		}
		return strconv.Quote(s)
	case *ast.Array:
		return fmt.Sprintf("[%d items]", len(v.Items))
	case *ast.Object:
		return fmt.Sprintf("{%d members}", len(v.Members))
	case *ast.Alias:
		return "*" + ast.Qualified(v.Namespace, v.Name)
	case *ast.EnumValue:
		return "$" + ast.Qualified(ast.Qualified(v.Namespace, v.Enum), v.Variant)
	case *ast.ArraySpread:
		return "...*" + ast.Qualified(v.Namespace, v.Name)
	case *ast.Unresolved:
		return "<unresolved " + v.Ref + ">"
	default:
		panic(fmt.Sprintf("astutil: unhandled value %T", v))
	}
}

// NodeAt returns the innermost node of the document whose range contains
// pos, along with the chain of enclosing nodes from the root. Pair keys,
// reference names and type annotations are reported as their own nodes so
// that point queries land on the name under the cursor.
func NodeAt(root ast.Value, pos position.Position) (ast.Node, []ast.Node) {
	var path []ast.Node
	var visit func(n ast.Node) bool
	visit = func(n ast.Node) bool {
		if n == nil || !n.Range().Contains(pos) {
			return false
		}
		path = append(path, n)
		for _, child := range children(n) {
			if visit(child) {
				return true
			}
		}
		return true
	}
	visit(root)
	if len(path) == 0 {
		return nil, nil
	}
	return path[len(path)-1], path[:len(path)-1]
}

// children lists the direct child nodes of n for point queries.
func children(n ast.Node) []ast.Node {
	var out []ast.Node
	switch n := n.(type) {
	case *ast.Object:
		for _, m := range n.Members {
			out = append(out, m)
		}
	case *ast.Array:
		for _, item := range n.Items {
			out = append(out, item)
		}
	case *ast.Pair:
		out = append(out, KeyNode{Pair: n})
		if n.Type != nil {
			out = append(out, n.Type)
		}
		out = append(out, n.Value)
	case *ast.TypeDef:
		out = append(out, n.Decl)
	case *ast.StructType:
		for _, f := range n.Fields {
			out = append(out, f)
		}
	case *ast.Field:
		out = append(out, n.Type)
		if n.Default != nil {
			out = append(out, n.Default)
		}
	case *ast.EnumType:
		for _, v := range n.Variants {
			out = append(out, v)
		}
	case *ast.TypeRef:
		if n.Elem != nil {
			out = append(out, n.Elem)
		}
	}
	return out
}

// KeyNode wraps a pair so that a point query on its key can be told apart
// from one on the pair as a whole.
type KeyNode struct {
	Pair *ast.Pair
}

func (k KeyNode) Range() position.Range { return k.Pair.KeySpan.Range() }

func (k KeyNode) Offsets() (int, int) { return k.Pair.KeySpan.Offsets() }
