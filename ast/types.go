// Copyright © 2025 The MON authors

package ast

import "strings"

// TypeDecl is the body of a type definition. The implementations are
// *StructType and *EnumType.
type TypeDecl interface {
	Node
	typeDecl()
}

// StructType declares named fields. Open is set when the body contains a
// bare "..." marker, which permits fields the struct does not declare.
type StructType struct {
	Span
	Fields []*Field
	Open   bool
}

// EnumType declares a closed set of variants.
type EnumType struct {
	Span
	Variants []*Variant
}

func (*StructType) typeDecl() {}
func (*EnumType) typeDecl()   {}

// Field is a struct field: name(Type) or name(Type) = default.
type Field struct {
	Span
	Name     string
	NameSpan Span
	Type     *TypeRef
	Default  Value
	Doc      string
}

// Variant is one enum member.
type Variant struct {
	Span
	Name string
}

// Lookup returns the field named name.
func (s *StructType) Lookup(name string) (*Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Has reports whether the enum declares variant.
func (e *EnumType) Has(variant string) bool {
	for _, v := range e.Variants {
		if v.Name == variant {
			return true
		}
	}
	return false
}

// VariantNames returns the variant names in declaration order.
func (e *EnumType) VariantNames() []string {
	names := make([]string, len(e.Variants))
	for i, v := range e.Variants {
		names[i] = v.Name
	}
	return names
}

// TypeRef names a type in an annotation or field declaration. Array types
// are written [T] and carry their element type in Elem. A trailing ? marks
// the type optional, which also admits null.
type TypeRef struct {
	Span
	Namespace string
	Name      string
	Elem      *TypeRef
	Optional  bool
}

// Builtin type names recognized without a definition.
const (
	TypeString  = "String"
	TypeNumber  = "Number"
	TypeBoolean = "Boolean"
	TypeNull    = "Null"
	TypeAny     = "Any"
	TypeObject  = "Object"
	TypeArray   = "Array"
)

// IsBuiltinType reports whether name is one of the predeclared types.
func IsBuiltinType(name string) bool {
	switch name {
	case TypeString, TypeNumber, TypeBoolean, TypeNull, TypeAny, TypeObject, TypeArray:
		return true
	}
	return false
}

// IsArray reports whether t is an array-of-T type.
func (t *TypeRef) IsArray() bool {
	return t.Elem != nil
}

func (t *TypeRef) String() string {
	var b strings.Builder
	if t.Elem != nil {
		b.WriteString("[")
		b.WriteString(t.Elem.String())
		b.WriteString("]")
	} else {
		b.WriteString(Qualified(t.Namespace, t.Name))
	}
	if t.Optional {
		b.WriteString("?")
	}
	return b.String()
}
