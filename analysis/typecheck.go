// Copyright © 2025 The MON authors

package analysis

import (
	"fmt"

	"github.com/monlang/mon/ast"
	"github.com/monlang/mon/astutil"
	"github.com/monlang/mon/diagnostic"
	"github.com/monlang/mon/position"
)

// checkAnnotation validates the value of an annotated pair against its
// declared type. Missing struct fields that declare a default are filled in
// when the value is an object literal written at the annotation.
func (r *resolver) checkAnnotation(fs *fileState, p *ast.Pair) {
	if !r.resolveTypeRef(fs, p.Type) {
		return
	}
	c := &checker{r: r, fs: fs}
	c.check(fs.scope, p.Value, p.Type, p.Value.Range(), true)
}

type checker struct {
	r  *resolver
	fs *fileState
}

// typeBinding finds the definition of a named type without recording a
// reference. Undefined types were reported where they were written.
func typeBinding(scope *Scope, t *ast.TypeRef) *Binding {
	if t.Namespace == "" {
		return scope.Lookup(SymType, t.Name)
	}
	ns := scope.LookupNamespace(t.Namespace)
	if ns == nil || ns.Scope == nil {
		return nil
	}
	return ns.Scope.Lookup(SymType, t.Name)
}

func (c *checker) mismatch(at position.Range, t *ast.TypeRef, found ast.Value) {
	c.r.report(c.fs, diagnostic.New(diagnostic.TypeMismatch, at,
		"Type mismatch: expected %s, found %s", t.String(), astutil.KindName(found)))
}

// check validates v against t, which is written in scope. at is where
// errors are reported. owned is true while v is part of the literal being
// checked rather than a value reached through an alias or spread; only
// owned objects receive default values.
func (c *checker) check(scope *Scope, v ast.Value, t *ast.TypeRef, at position.Range, owned bool) {
	d := ast.Deref(v)
	if d != v {
		owned = false
	}
	switch d.(type) {
	case *ast.Unresolved:
		return
	case *ast.Null:
		if t.Optional {
			return
		}
	}

	if t.Elem != nil {
		arr, ok := d.(*ast.Array)
		if !ok {
			c.mismatch(at, t, d)
			return
		}
		literal := make(map[ast.Value]bool, len(arr.Items))
		for _, item := range arr.Items {
			literal[item] = true
		}
		for _, e := range arr.Elements {
			eAt, eOwned := at, false
			if owned && literal[e] {
				eAt, eOwned = e.Range(), true
			}
			c.check(scope, e, t.Elem, eAt, eOwned)
		}
		return
	}

	if t.Namespace == "" && ast.IsBuiltinType(t.Name) {
		if !matchesBuiltin(t.Name, d) {
			c.mismatch(at, t, d)
		}
		return
	}

	b := typeBinding(scope, t)
	if b == nil || b.Type == nil {
		return
	}
	defScope := c.r.scopes[b.File.Path]
	switch decl := b.Type.Decl.(type) {
	case *ast.StructType:
		obj, ok := d.(*ast.Object)
		if !ok {
			c.mismatch(at, t, d)
			return
		}
		c.checkStruct(defScope, obj, decl, b.Symbol.Name, at, owned)
	case *ast.EnumType:
		ev, ok := d.(*ast.EnumValue)
		if !ok || c.r.enumDefs[ev] != b.Type {
			c.mismatch(at, t, d)
		}
	default:
		panic(fmt.Sprintf("analysis: unhandled type declaration %T", decl))
	}
}

func (c *checker) checkStruct(scope *Scope, obj *ast.Object, st *ast.StructType, typeName string, at position.Range, owned bool) {
	var fieldNames []string
	for _, f := range st.Fields {
		fieldNames = append(fieldNames, f.Name)
	}
	for _, e := range obj.Entries {
		p, literal := e.Source.(*ast.Pair)
		literal = literal && owned
		f, ok := st.Lookup(e.Key)
		if !ok {
			if st.Open {
				continue
			}
			rng := at
			if literal {
				rng = p.KeySpan.Range()
			}
			d := diagnostic.New(diagnostic.UnexpectedField, rng, "Unexpected field '%s' for type '%s'", e.Key, typeName)
			if s, ok := Suggest(e.Key, fieldNames); ok {
				d.Message += fmt.Sprintf(". Did you mean '%s'?", s)
			}
			c.r.report(c.fs, d)
			continue
		}
		if e.Default || acceptsNull(f, e.Value) {
			continue
		}
		if literal {
			c.check(scope, e.Value, f.Type, e.Value.Range(), true)
			continue
		}
		rng := at
		if sp, ok := e.Source.(*ast.Spread); ok && owned {
			rng = sp.Range()
		}
		c.check(scope, e.Value, f.Type, rng, false)
	}

	for _, f := range st.Fields {
		if _, ok := obj.Lookup(f.Name); ok {
			continue
		}
		if f.Default != nil {
			if owned {
				obj.Entries = append(obj.Entries, &ast.Entry{Key: f.Name, Value: f.Default, Default: true})
			}
			continue
		}
		if f.Type.Optional {
			continue
		}
		c.r.report(c.fs, diagnostic.New(diagnostic.MissingField, at,
			"Missing required field '%s' for type '%s'", f.Name, typeName))
	}
}

// acceptsNull reports whether v is a null written for a field whose
// default is null. Such a field is implicitly optional.
func acceptsNull(f *ast.Field, v ast.Value) bool {
	if f.Default == nil {
		return false
	}
	_, defNull := ast.Deref(f.Default).(*ast.Null)
	_, isNull := ast.Deref(v).(*ast.Null)
	return defNull && isNull
}

func matchesBuiltin(name string, v ast.Value) bool {
	switch name {
	case ast.TypeAny:
		return true
	case ast.TypeString:
		_, ok := v.(*ast.String)
		return ok
	case ast.TypeNumber:
		_, ok := v.(*ast.Number)
		return ok
	case ast.TypeBoolean:
		_, ok := v.(*ast.Bool)
		return ok
	case ast.TypeNull:
		_, ok := v.(*ast.Null)
		return ok
	case ast.TypeObject:
		_, ok := v.(*ast.Object)
		return ok
	case ast.TypeArray:
		_, ok := v.(*ast.Array)
		return ok
	}
	return false
}
