package ast

import (
	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// IBaseFQN names the root base interface every interface ultimately
// extends.
var IBaseFQN = fqn.New("android.hidl.base", 1, 0, "IBase")

// Annotation is @name or @name(key=value, ...) attached to a declaration.
type Annotation struct {
	Name   string
	Params map[string]string
}

// Argument is one named, typed method parameter or result.
type Argument struct {
	Name string
	Type Type
}

// Method is one operation of an interface. A non-empty result list means
// the call generates a synchronous reply.
type Method struct {
	Name        string
	Args        []*Argument
	Results     []*Argument
	Oneway      bool
	Annotations []Annotation
}

// HasReply reports whether the method returns results synchronously.
func (m *Method) HasReply() bool { return len(m.Results) > 0 }

// Interface is a named type holding ordered methods and extending at most
// one other interface; the default parent is IBase.
type Interface struct {
	Scope

	name     string
	fullName fqn.FQN
	// superRef is nil only for IBase itself.
	superRef *NamedReference
	Methods  []*Method

	Annotations []Annotation
}

// NewInterface declares an interface extending superRef (nil for IBase).
func NewInterface(localName string, fullName fqn.FQN, superRef *NamedReference, parent *Scope) *Interface {
	i := &Interface{name: localName, fullName: fullName, superRef: superRef}
	i.Scope.init(localName, parent)
	return i
}

// IsIBase reports whether this is the root base interface.
func (i *Interface) IsIBase() bool { return i.fullName.Equal(IBaseFQN) }

// SuperRef returns the unresolved-or-resolved reference to the parent,
// nil for IBase.
func (i *Interface) SuperRef() *NamedReference { return i.superRef }

// Super returns the parent interface, nil for IBase. It panics if the
// reference was never resolved, mirroring emission on a broken AST.
func (i *Interface) Super() *Interface {
	if i.superRef == nil {
		return nil
	}
	t := i.superRef.Target()
	for {
		switch v := t.(type) {
		case *Interface:
			return v
		case *NamedReference:
			t = v.Target()
		case *TypeDef:
			t = v.Referenced
		default:
			return nil
		}
	}
}

// TypeChain is the inheritance list from this interface up to IBase,
// self first.
func (i *Interface) TypeChain() []*Interface {
	var chain []*Interface
	for cur := i; cur != nil; cur = cur.Super() {
		chain = append(chain, cur)
	}
	return chain
}

// BaseOrdinalCount is the number of methods inherited from ancestors.
func (i *Interface) BaseOrdinalCount() int {
	n := 0
	for cur := i.Super(); cur != nil; cur = cur.Super() {
		n += len(cur.Methods)
	}
	return n
}

// Ordinal returns the wire opcode of the idx-th declared method. The
// first method of the chain's root has ordinal 1; each descendant
// continues after the deepest ancestor's last ordinal. Ordinals depend
// only on the chain, never on which unrelated ASTs are loaded.
func (i *Interface) Ordinal(idx int) int {
	return i.BaseOrdinalCount() + idx + 1
}

// AddMethod appends a method in declaration order.
func (i *Interface) AddMethod(m *Method) { i.Methods = append(i.Methods, m) }

func (i *Interface) TypeName() string  { return "interface " + i.name }
func (i *Interface) LocalName() string { return i.name }
func (i *Interface) FQName() fqn.FQN   { return i.fullName }

func (i *Interface) CppType(mode StorageMode) string {
	base := "::android::sp<" + i.fullName.CppName() + ">"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (i *Interface) JavaType() string { return i.fullName.JavaPackage() + "." + i.name }
func (i *Interface) VtsType() string  { return "TYPE_HIDL_INTERFACE" }

func (i *Interface) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	if isReader {
		out.Printf("_hidl_err = %s.readStrongBinder(&%s);\n", parcel, name)
	} else {
		out.Printf("_hidl_err = %s.writeStrongBinder(::android::hardware::toBinder(%s));\n",
			parcel, name)
	}
	handleError(out, mode)
}

// IsJavaCompatible reports whether interface-typed values can cross the
// managed binding. They cannot: an interface inside a composite or vec has
// no Java representation. Whole declarations are judged by
// DeclaredJavaCompatible instead.
func (i *Interface) IsJavaCompatible() bool { return false }

// DeclaredJavaCompatible checks the argument and result types of every
// method in the chain. Interfaces remain legal in Java method signatures
// even though they are illegal as composite members.
func (i *Interface) DeclaredJavaCompatible() bool {
	for _, chain := range i.TypeChain() {
		for _, m := range chain.Methods {
			for _, a := range m.Args {
				if !a.Type.IsJavaCompatible() && !IsInterfaceType(a.Type) {
					return false
				}
			}
			for _, r := range m.Results {
				if !r.Type.IsJavaCompatible() && !IsInterfaceType(r.Type) {
					return false
				}
			}
		}
	}
	for _, t := range i.SubTypes() {
		if !t.IsJavaCompatible() {
			return false
		}
	}
	return true
}

func (i *Interface) NeedsEmbeddedReadWrite() bool { return false }
func (i *Interface) NeedsResolveReferences() bool { return false }

// IsInterfaceType digs through references and typedefs and reports
// whether t is an interface.
func IsInterfaceType(t Type) bool {
	switch v := t.(type) {
	case *Interface:
		return true
	case *NamedReference:
		return v.Resolved() && IsInterfaceType(v.Target())
	case *TypeDef:
		return IsInterfaceType(v.Referenced)
	}
	return false
}
