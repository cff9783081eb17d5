// Copyright © 2025 The MON authors

package lint

import (
	"fmt"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/position"
)

// Node is a value met while walking a document as written.
type Node struct {
	Value ast.Value
	// Depth is 0 for the root and grows by one per enclosing object or
	// array.
	Depth int
	// Pair is the pair holding the value, or nil for array items and the
	// root.
	Pair *ast.Pair
}

// Head returns the range diagnostics about the node are reported at: the
// key of its pair when it has one, otherwise the value itself.
func (n Node) Head() position.Range {
	if n.Pair != nil {
		return n.Pair.KeySpan.Range()
	}
	return n.Value.Range()
}

// Walk calls fn for every value of the tree as written, depth-first.
// Aliases and spreads are not followed and type definitions are skipped,
// so every value is visited once and the walk terminates regardless of
// anchor cycles.
func Walk(root ast.Value, fn func(n Node)) {
	if root != nil {
		walkNode(Node{Value: root}, fn)
	}
}

func walkNode(n Node, fn func(Node)) {
	fn(n)
	switch v := n.Value.(type) {
	case *ast.Object:
		for _, m := range v.Members {
			if p, ok := m.(*ast.Pair); ok {
				walkNode(Node{Value: p.Value, Depth: n.Depth + 1, Pair: p}, fn)
			}
		}
	case *ast.Array:
		for _, item := range v.Items {
			walkNode(Node{Value: item, Depth: n.Depth + 1}, fn)
		}
	case *ast.Null, *ast.Bool, *ast.Number, *ast.String, *ast.Alias,
		*ast.EnumValue, *ast.ArraySpread, *ast.Unresolved:
	default:
		panic(fmt.Sprintf("lint: unhandled value %T", v))
	}
}

// WalkObjects calls fn for every object of the tree as written.
func WalkObjects(root ast.Value, fn func(obj *ast.Object, n Node)) {
	Walk(root, func(n Node) {
		if obj, ok := n.Value.(*ast.Object); ok {
			fn(obj, n)
		}
	})
}

// regularMembers counts the members of obj that are not type definitions.
func regularMembers(obj *ast.Object) int {
	count := 0
	for _, m := range obj.Members {
		if _, ok := m.(*ast.TypeDef); !ok {
			count++
		}
	}
	return count
}

func countSpreads(obj *ast.Object) int {
	count := 0
	for _, m := range obj.Members {
		if _, ok := m.(*ast.Spread); ok {
			count++
		}
	}
	return count
}
