package ast

import (
	"fmt"

	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// EnumValue is one named constant of an enum. Values are resolved
// left-to-right once imports are linked: an omitted expression yields
// the previous value plus one.
type EnumValue struct {
	Name string
	// Expr is the source text of the explicit expression, empty when the
	// value was implicit.
	Expr  string
	Value int64

	tree     ConstExpr
	resolved bool
}

// Resolved reports whether the value's expression has been evaluated.
func (v *EnumValue) Resolved() bool { return v.resolved }

// EnumType is a named enumeration over an integer scalar storage type.
type EnumType struct {
	name     string
	fullName fqn.FQN
	Storage  Type // scalar or named reference to another enum
	Values   []*EnumValue
	Parent   *EnumType // extended enum, nil for most

	Annotations []Annotation
}

// NewEnumType declares an enum. Values are appended via AddValue.
func NewEnumType(localName string, fullName fqn.FQN, storage Type) *EnumType {
	return &EnumType{name: localName, fullName: fullName, Storage: storage}
}

// AddValue appends a value. A nil tree marks an implicit value, which
// becomes previous+1 when the enum is resolved. Duplicate names are an
// error.
func (t *EnumType) AddValue(name, expr string, tree ConstExpr) (*EnumValue, error) {
	for _, v := range t.Values {
		if v.Name == name {
			return nil, fmt.Errorf("enum %s redeclares value %q", t.name, name)
		}
	}
	v := &EnumValue{Name: name, Expr: expr, tree: tree}
	t.Values = append(t.Values, v)
	return v, nil
}

// ResolveValues evaluates every value expression in declaration order,
// so that a value may reference the ones declared before it. Implicit
// values continue from the previous value, or from the last value of an
// extended parent, or start at zero.
func (t *EnumType) ResolveValues(res ValueResolver) error {
	for i, v := range t.Values {
		if v.tree == nil {
			if i > 0 {
				v.Value = t.Values[i-1].Value + 1
			} else if t.Parent != nil && len(t.Parent.Values) > 0 {
				v.Value = t.Parent.Values[len(t.Parent.Values)-1].Value + 1
			}
			v.resolved = true
			continue
		}
		n, err := v.tree.Eval(res)
		if err != nil {
			return fmt.Errorf("enum %s value %s: %w", t.name, v.Name, err)
		}
		v.Value = n
		v.resolved = true
	}
	return nil
}

// LookupValue finds a declared value by name, walking extended parents.
func (t *EnumType) LookupValue(name string) (*EnumValue, bool) {
	for _, v := range t.Values {
		if v.Name == name {
			return v, true
		}
	}
	if t.Parent != nil {
		return t.Parent.LookupValue(name)
	}
	return nil, false
}

// Exported reports whether the enum carries an @export annotation.
func (t *EnumType) Exported() bool {
	for _, a := range t.Annotations {
		if a.Name == "export" {
			return true
		}
	}
	return false
}

// ExportName returns the name=... parameter of @export, defaulting to the
// local name.
func (t *EnumType) ExportName() string {
	for _, a := range t.Annotations {
		if a.Name == "export" {
			if v, ok := a.Params["name"]; ok && v != "" {
				return v
			}
		}
	}
	return t.name
}

// ExportValuePrefix returns the value_prefix=... parameter of @export.
func (t *EnumType) ExportValuePrefix() string {
	for _, a := range t.Annotations {
		if a.Name == "export" {
			return a.Params["value_prefix"]
		}
	}
	return ""
}

func (t *EnumType) TypeName() string  { return "enum " + t.name }
func (t *EnumType) LocalName() string { return t.name }
func (t *EnumType) FQName() fqn.FQN   { return t.fullName }

func (t *EnumType) CppType(StorageMode) string { return t.fullName.CppName() }
func (t *EnumType) JavaType() string           { return t.Storage.JavaType() }
func (t *EnumType) VtsType() string            { return "TYPE_ENUM" }

func (t *EnumType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	cast := fmt.Sprintf("(%s*)&%s", t.Storage.CppType(ModeStack), name)
	if isReader {
		out.Printf("_hidl_err = %s.read%s(%s);\n", parcel, t.parcelSuffix(), cast)
	} else {
		out.Printf("_hidl_err = %s.write%s((%s)%s);\n",
			parcel, t.parcelSuffix(), t.Storage.CppType(ModeStack), name)
	}
	handleError(out, mode)
}

func (t *EnumType) parcelSuffix() string {
	if s, ok := resolveScalar(t.Storage); ok {
		return scalarTable[s.Kind].parcelSuffix
	}
	return "Int32"
}

func (t *EnumType) IsJavaCompatible() bool       { return t.Storage.IsJavaCompatible() }
func (t *EnumType) NeedsEmbeddedReadWrite() bool { return false }
func (t *EnumType) NeedsResolveReferences() bool { return false }

// resolveScalar digs through references and enum storage chains to the
// underlying scalar.
func resolveScalar(t Type) (*ScalarType, bool) {
	switch v := t.(type) {
	case *ScalarType:
		return v, true
	case *NamedReference:
		if v.Resolved() {
			return resolveScalar(v.Target())
		}
	case *EnumType:
		return resolveScalar(v.Storage)
	case *TypeDef:
		return resolveScalar(v.Referenced)
	}
	return nil, false
}
