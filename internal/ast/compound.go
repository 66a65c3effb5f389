package ast

import (
	"fmt"

	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// CompoundKind distinguishes struct from union declarations.
type CompoundKind int

const (
	KindStruct CompoundKind = iota
	KindUnion
)

// Field is one ordered member of a struct or union.
type Field struct {
	Name string
	Type Type
}

// CompoundType is a struct or union with ordered members. It doubles as a
// Scope so that nested type declarations live inside it.
type CompoundType struct {
	Scope

	kind     CompoundKind
	name     string
	fullName fqn.FQN
	Fields   []*Field
}

// NewCompoundType declares an empty struct or union nested in parent.
func NewCompoundType(kind CompoundKind, localName string, fullName fqn.FQN, parent *Scope) *CompoundType {
	t := &CompoundType{kind: kind, name: localName, fullName: fullName}
	t.Scope.init(localName, parent)
	return t
}

// Kind reports struct vs union.
func (t *CompoundType) Kind() CompoundKind { return t.kind }

// AddField appends a member. Self-containment through a direct member is
// rejected; recursion is legal only through vec<> or interface references.
func (t *CompoundType) AddField(name string, typ Type) error {
	for _, f := range t.Fields {
		if f.Name == name {
			return fmt.Errorf("%s %s redeclares member %q", t.kindName(), t.name, name)
		}
	}
	if containsDirectly(typ, t) {
		return fmt.Errorf("%s %s directly contains itself through member %q",
			t.kindName(), t.name, name)
	}
	t.Fields = append(t.Fields, &Field{Name: name, Type: typ})
	return nil
}

func containsDirectly(typ Type, self *CompoundType) bool {
	switch v := typ.(type) {
	case *CompoundType:
		if v == self {
			return true
		}
		for _, f := range v.Fields {
			if containsDirectly(f.Type, self) {
				return true
			}
		}
	case *ArrayType:
		return containsDirectly(v.Element, self)
	case *TypeDef:
		return containsDirectly(v.Referenced, self)
	case *NamedReference:
		if v.Resolved() {
			return containsDirectly(v.Target(), self)
		}
	}
	return false
}

func (t *CompoundType) kindName() string {
	if t.kind == KindUnion {
		return "union"
	}
	return "struct"
}

func (t *CompoundType) TypeName() string  { return t.kindName() + " " + t.name }
func (t *CompoundType) LocalName() string { return t.name }
func (t *CompoundType) FQName() fqn.FQN   { return t.fullName }

func (t *CompoundType) CppType(mode StorageMode) string {
	base := t.fullName.CppName()
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (t *CompoundType) JavaType() string { return t.fullName.JavaPackage() + "." + t.name }

func (t *CompoundType) VtsType() string {
	if t.kind == KindUnion {
		return "TYPE_UNION"
	}
	return "TYPE_STRUCT"
}

func (t *CompoundType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	out.Printf("size_t _hidl_%s_parent;\n", sanitize(name))
	if isReader {
		out.Printf("_hidl_err = %s.readBuffer(sizeof(%s), &_hidl_%s_parent, (const void**)&%s);\n",
			parcel, name, sanitize(name), name)
	} else {
		out.Printf("_hidl_err = %s.writeBuffer(&%s, sizeof(%s), &_hidl_%s_parent);\n",
			parcel, name, name, sanitize(name))
	}
	handleError(out, mode)

	if t.NeedsEmbeddedReadWrite() {
		out.Printf("_hidl_err = %s(%s, %s, _hidl_%s_parent, 0 /* parentOffset */);\n",
			embeddedCall(isReader), name, parcel, sanitize(name))
		handleError(out, mode)
	}
}

func (t *CompoundType) IsJavaCompatible() bool {
	if t.kind == KindUnion {
		return false
	}
	for _, f := range t.Fields {
		if !f.Type.IsJavaCompatible() {
			return false
		}
	}
	return true
}

// FindJavaIncompatibleField names the first member blocking Java
// emission, as "Type.field", or "" when compatible. Used for diagnostics.
func (t *CompoundType) FindJavaIncompatibleField() string {
	if t.kind == KindUnion {
		return t.name
	}
	for _, f := range t.Fields {
		if !f.Type.IsJavaCompatible() {
			return t.name + "." + f.Name
		}
	}
	return ""
}

func (t *CompoundType) NeedsEmbeddedReadWrite() bool {
	for _, f := range t.Fields {
		if f.Type.NeedsEmbeddedReadWrite() {
			return true
		}
	}
	return false
}

func (t *CompoundType) NeedsResolveReferences() bool {
	for _, f := range t.Fields {
		if f.Type.NeedsResolveReferences() {
			return true
		}
	}
	return false
}
