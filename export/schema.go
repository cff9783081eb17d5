// Copyright © 2025 The MON authors

package export

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/monlang/mon/ast"
)

// SchemaDialect is the JSON Schema draft the generated schemas declare.
const SchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema derives a JSON Schema from a resolved document. Keys annotated
// with a struct or enum defined in the document are described by that
// type; everything else is inferred from the resolved value.
func JSONSchema(doc *ast.Document) (*jsonschema.Schema, error) {
	root, ok := doc.Root.(*ast.Object)
	if !ok {
		return nil, ErrNotObject
	}
	g := &schemaGen{types: make(map[string]*ast.TypeDef)}
	for _, m := range root.Members {
		if td, ok := m.(*ast.TypeDef); ok {
			g.types[td.Name] = td
		}
	}
	s := g.object(root)
	s.Schema = SchemaDialect
	return s, nil
}

// MarshalSchema renders a schema as indented JSON.
func MarshalSchema(s *jsonschema.Schema) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export schema: %w", err)
	}
	return append(out, '\n'), nil
}

type schemaGen struct {
	types map[string]*ast.TypeDef
}

// object describes a resolved object, using the annotations of its literal
// pairs where they name a known type.
func (g *schemaGen) object(obj *ast.Object) *jsonschema.Schema {
	annotated := make(map[string]*ast.TypeRef)
	for _, p := range obj.Pairs() {
		if p.Type != nil {
			annotated[p.Key] = p.Type
		}
	}
	s := &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema)}
	ordered, _ := Ordered(obj).(*Object)
	if ordered == nil {
		return s
	}
	for _, key := range ordered.Keys {
		var prop *jsonschema.Schema
		if t, ok := annotated[key]; ok {
			prop = g.typeRef(t)
		}
		if prop == nil {
			if e, ok := obj.Lookup(key); ok {
				if inner, ok := ast.Deref(e.Value).(*ast.Object); ok {
					prop = g.object(inner)
				}
			}
		}
		if prop == nil {
			prop = infer(ordered.Values[key])
		}
		s.Properties[key] = prop
		if ordered.Values[key] != nil {
			s.Required = append(s.Required, key)
		}
	}
	return s
}

// typeRef describes a type annotation. It returns nil for types the
// document does not define, such as imported ones.
func (g *schemaGen) typeRef(t *ast.TypeRef) *jsonschema.Schema {
	var s *jsonschema.Schema
	switch {
	case t.Elem != nil:
		items := g.typeRef(t.Elem)
		if items == nil {
			items = &jsonschema.Schema{}
		}
		s = &jsonschema.Schema{Type: "array", Items: items}
	case t.Namespace == "" && ast.IsBuiltinType(t.Name):
		s = builtinSchema(t.Name)
	case t.Namespace == "":
		td, ok := g.types[t.Name]
		if !ok {
			return nil
		}
		s = g.typeDef(td)
	default:
		return nil
	}
	if t.Optional && s.Type != "" {
		s.Types = []string{s.Type, "null"}
		s.Type = ""
	}
	return s
}

func (g *schemaGen) typeDef(td *ast.TypeDef) *jsonschema.Schema {
	switch decl := td.Decl.(type) {
	case *ast.EnumType:
		s := &jsonschema.Schema{Type: "string", Title: td.Name, Description: td.Doc}
		for _, v := range decl.Variants {
			s.Enum = append(s.Enum, td.Name+"."+v.Name)
		}
		return s
	case *ast.StructType:
		s := &jsonschema.Schema{
			Type:        "object",
			Title:       td.Name,
			Description: td.Doc,
			Properties:  make(map[string]*jsonschema.Schema, len(decl.Fields)),
		}
		for _, f := range decl.Fields {
			prop := g.typeRef(f.Type)
			if prop == nil {
				prop = &jsonschema.Schema{}
			}
			if f.Doc != "" {
				prop.Description = f.Doc
			}
			if f.Default != nil {
				if raw, err := json.Marshal(Ordered(f.Default)); err == nil {
					prop.Default = raw
				}
			} else if !f.Type.Optional {
				s.Required = append(s.Required, f.Name)
			}
			s.Properties[f.Name] = prop
		}
		if !decl.Open {
			s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
		}
		return s
	default:
		panic(fmt.Sprintf("export: unhandled type declaration %T", decl))
	}
}

func builtinSchema(name string) *jsonschema.Schema {
	switch name {
	case ast.TypeString:
		return &jsonschema.Schema{Type: "string"}
	case ast.TypeNumber:
		return &jsonschema.Schema{Type: "number"}
	case ast.TypeBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	case ast.TypeNull:
		return &jsonschema.Schema{Type: "null"}
	case ast.TypeObject:
		return &jsonschema.Schema{Type: "object"}
	case ast.TypeArray:
		return &jsonschema.Schema{Type: "array"}
	default:
		return &jsonschema.Schema{}
	}
}

// infer describes a materialized value by its shape. Arrays are described
// by their first element.
func infer(v any) *jsonschema.Schema {
	switch v := v.(type) {
	case nil:
		return &jsonschema.Schema{Type: "null"}
	case bool:
		return &jsonschema.Schema{Type: "boolean"}
	case int64:
		return &jsonschema.Schema{Type: "integer"}
	case float64:
		return &jsonschema.Schema{Type: "number"}
	case string:
		return &jsonschema.Schema{Type: "string"}
	case []any:
		items := &jsonschema.Schema{}
		if len(v) > 0 {
			items = infer(v[0])
		}
		return &jsonschema.Schema{Type: "array", Items: items}
	case *Object:
		s := &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema, len(v.Keys))}
		for _, k := range v.Keys {
			s.Properties[k] = infer(v.Values[k])
			if v.Values[k] != nil {
				s.Required = append(s.Required, k)
			}
		}
		return s
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := &jsonschema.Schema{Type: "object", Properties: make(map[string]*jsonschema.Schema, len(v))}
		for _, k := range keys {
			s.Properties[k] = infer(v[k])
			if v[k] != nil {
				s.Required = append(s.Required, k)
			}
		}
		return s
	default:
		panic(fmt.Sprintf("export: unhandled materialized value %T", v))
	}
}
