// Package ast holds the parsed representation of .hal files: the
// polymorphic type graph, scopes and the per-file AST with its name
// resolution rules.
package ast

import (
	"fmt"
	"strings"

	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// ErrorMode selects the statement emitted after a failed parcel
// read/write in generated C++ code.
type ErrorMode int

const (
	ErrorReturn ErrorMode = iota
	ErrorBreak
	ErrorContinue
	// ErrorVoidReturn is for marshalling inside reply callbacks, which
	// cannot surface a status.
	ErrorVoidReturn
)

// StorageMode selects the C++ rendering of a type depending on where it
// appears.
type StorageMode int

const (
	ModeStack StorageMode = iota
	ModeArgument
	ModeResult
)

// Type is the capability surface every IDL type variant implements.
type Type interface {
	// TypeName is the human-readable kind used in diagnostics.
	TypeName() string

	CppType(mode StorageMode) string
	JavaType() string
	VtsType() string

	// EmitReaderWriter writes the C++ parcel marshalling statements for a
	// variable of this type.
	EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode)

	IsJavaCompatible() bool
	NeedsEmbeddedReadWrite() bool
	NeedsResolveReferences() bool
}

// NamedType is a Type declared with a name inside a Scope.
type NamedType interface {
	Type
	LocalName() string
	FQName() fqn.FQN
}

// handleError emits the statement selected by mode after a parcel call.
func handleError(out *format.Formatter, mode ErrorMode) {
	switch mode {
	case ErrorReturn:
		out.Println("if (_hidl_err != ::android::OK) { return _hidl_err; }")
	case ErrorBreak:
		out.Println("if (_hidl_err != ::android::OK) { break; }")
	case ErrorContinue:
		out.Println("if (_hidl_err != ::android::OK) { continue; }")
	case ErrorVoidReturn:
		out.Println("if (_hidl_err != ::android::OK) { return; }")
	}
}

// ScalarKind enumerates the primitive types.
type ScalarKind int

const (
	KindBool ScalarKind = iota
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat
	KindDouble
)

var scalarTable = []struct {
	idl, cpp, java, parcelSuffix string
	javaCompatible               bool
}{
	{"bool", "bool", "boolean", "Bool", true},
	{"int8_t", "int8_t", "byte", "Int8", true},
	{"uint8_t", "uint8_t", "byte", "Uint8", false},
	{"int16_t", "int16_t", "short", "Int16", true},
	{"uint16_t", "uint16_t", "short", "Uint16", false},
	{"int32_t", "int32_t", "int", "Int32", true},
	{"uint32_t", "uint32_t", "int", "Uint32", false},
	{"int64_t", "int64_t", "long", "Int64", true},
	{"uint64_t", "uint64_t", "long", "Uint64", false},
	{"float", "float", "float", "Float", true},
	{"double", "double", "double", "Double", true},
}

// ScalarType is one of the primitive types.
type ScalarType struct {
	Kind ScalarKind
}

// LookupScalar resolves an IDL keyword ("uint32_t", "bool", ...) to its
// scalar type, reporting whether the keyword names one.
func LookupScalar(keyword string) (*ScalarType, bool) {
	for kind, row := range scalarTable {
		if row.idl == keyword {
			return &ScalarType{Kind: ScalarKind(kind)}, true
		}
	}
	return nil, false
}

func (t *ScalarType) TypeName() string { return scalarTable[t.Kind].idl }

func (t *ScalarType) CppType(StorageMode) string { return scalarTable[t.Kind].cpp }
func (t *ScalarType) JavaType() string           { return scalarTable[t.Kind].java }
func (t *ScalarType) VtsType() string            { return "TYPE_SCALAR" }

func (t *ScalarType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	suffix := scalarTable[t.Kind].parcelSuffix
	if isReader {
		out.Printf("_hidl_err = %s.read%s(&%s);\n", parcel, suffix, name)
	} else {
		out.Printf("_hidl_err = %s.write%s(%s);\n", parcel, suffix, name)
	}
	handleError(out, mode)
}

// Signed unsigned scalars map onto the same Java carrier type; only the
// carrier's signedness decides compatibility.
func (t *ScalarType) IsJavaCompatible() bool       { return scalarTable[t.Kind].javaCompatible }
func (t *ScalarType) NeedsEmbeddedReadWrite() bool { return false }
func (t *ScalarType) NeedsResolveReferences() bool { return false }

// StringType is the hidl_string type.
type StringType struct{}

func (*StringType) TypeName() string { return "string" }

func (*StringType) CppType(mode StorageMode) string {
	const base = "::android::hardware::hidl_string"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (*StringType) JavaType() string { return "String" }
func (*StringType) VtsType() string  { return "TYPE_STRING" }

func (*StringType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	out.Printf("size_t _hidl_%s_parent;\n", sanitize(name))
	if isReader {
		out.Printf("_hidl_err = %s.readBuffer(sizeof(%s), &_hidl_%s_parent, (const void**)&%s);\n",
			parcel, name, sanitize(name), name)
	} else {
		out.Printf("_hidl_err = %s.writeBuffer(&%s, sizeof(%s), &_hidl_%s_parent);\n",
			parcel, name, name, sanitize(name))
	}
	handleError(out, mode)
}

func (*StringType) IsJavaCompatible() bool       { return true }
func (*StringType) NeedsEmbeddedReadWrite() bool { return true }
func (*StringType) NeedsResolveReferences() bool { return false }

// HandleType is the opaque hidl_handle type.
type HandleType struct{}

func (*HandleType) TypeName() string { return "handle" }

func (*HandleType) CppType(mode StorageMode) string {
	const base = "::android::hardware::hidl_handle"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (*HandleType) JavaType() string { return "<<handle>>" }
func (*HandleType) VtsType() string  { return "TYPE_HANDLE" }

func (*HandleType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	if isReader {
		out.Printf("_hidl_err = %s.readNullableNativeHandleNoDup(&%s);\n", parcel, name)
	} else {
		out.Printf("_hidl_err = %s.writeNativeHandleNoDup(%s);\n", parcel, name)
	}
	handleError(out, mode)
}

func (*HandleType) IsJavaCompatible() bool       { return false }
func (*HandleType) NeedsEmbeddedReadWrite() bool { return false }
func (*HandleType) NeedsResolveReferences() bool { return false }

// MemoryType is the hidl_memory shared-memory descriptor.
type MemoryType struct{}

func (*MemoryType) TypeName() string { return "memory" }

func (*MemoryType) CppType(mode StorageMode) string {
	const base = "::android::hardware::hidl_memory"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (*MemoryType) JavaType() string { return "<<memory>>" }
func (*MemoryType) VtsType() string  { return "TYPE_HIDL_MEMORY" }

func (*MemoryType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	out.Printf("size_t _hidl_%s_parent;\n", sanitize(name))
	if isReader {
		out.Printf("_hidl_err = %s.readBuffer(sizeof(%s), &_hidl_%s_parent, (const void**)&%s);\n",
			parcel, name, sanitize(name), name)
	} else {
		out.Printf("_hidl_err = %s.writeBuffer(&%s, sizeof(%s), &_hidl_%s_parent);\n",
			parcel, name, name, sanitize(name))
	}
	handleError(out, mode)
}

func (*MemoryType) IsJavaCompatible() bool       { return false }
func (*MemoryType) NeedsEmbeddedReadWrite() bool { return true }
func (*MemoryType) NeedsResolveReferences() bool { return false }

// VectorType is vec<T>.
type VectorType struct {
	Element Type
}

func (t *VectorType) TypeName() string {
	return "vec<" + t.Element.TypeName() + ">"
}

func (t *VectorType) CppType(mode StorageMode) string {
	base := "::android::hardware::hidl_vec<" + t.Element.CppType(ModeStack) + ">"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (t *VectorType) JavaType() string {
	return "java.util.ArrayList<" + javaBoxed(t.Element) + ">"
}

func (t *VectorType) VtsType() string { return "TYPE_VECTOR" }

func (t *VectorType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	out.Printf("size_t _hidl_%s_parent;\n", sanitize(name))
	if isReader {
		out.Printf("_hidl_err = %s.readBuffer(sizeof(%s), &_hidl_%s_parent, (const void**)&%s);\n",
			parcel, name, sanitize(name), name)
	} else {
		out.Printf("_hidl_err = %s.writeBuffer(&%s, sizeof(%s), &_hidl_%s_parent);\n",
			parcel, name, name, sanitize(name))
	}
	handleError(out, mode)

	out.Printf("_hidl_err = %s(%s, %s, _hidl_%s_parent);\n",
		embeddedCall(isReader), name, parcel, sanitize(name))
	handleError(out, mode)
}

func (t *VectorType) IsJavaCompatible() bool       { return t.Element.IsJavaCompatible() }
func (t *VectorType) NeedsEmbeddedReadWrite() bool { return true }
func (t *VectorType) NeedsResolveReferences() bool { return t.Element.NeedsResolveReferences() }

// ArrayType is T[N][M]... with constant dimensions. Dimension
// expressions may reference enum constants, so they are evaluated in the
// same late pass as enum values.
type ArrayType struct {
	Element Type
	Dims    []int

	dimExprs []ConstExpr
}

// NewArrayType declares an array whose dimensions are still expressions.
func NewArrayType(element Type, dims []ConstExpr) *ArrayType {
	return &ArrayType{Element: element, dimExprs: dims}
}

// ResolveDims evaluates the dimension expressions. Every dimension must
// be a positive constant.
func (t *ArrayType) ResolveDims(res ValueResolver) error {
	if t.Dims != nil {
		return nil
	}
	dims := make([]int, len(t.dimExprs))
	for i, e := range t.dimExprs {
		n, err := e.Eval(res)
		if err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("array dimension %d is not positive", n)
		}
		dims[i] = int(n)
	}
	t.Dims = dims
	return nil
}

func (t *ArrayType) TypeName() string {
	var sb strings.Builder
	sb.WriteString(t.Element.TypeName())
	for _, d := range t.Dims {
		fmt.Fprintf(&sb, "[%d]", d)
	}
	return sb.String()
}

func (t *ArrayType) CppType(mode StorageMode) string {
	dims := make([]string, len(t.Dims))
	for i, d := range t.Dims {
		dims[i] = fmt.Sprintf("%d", d)
	}
	base := "::android::hardware::hidl_array<" + t.Element.CppType(ModeStack) +
		", " + strings.Join(dims, ", ") + ">"
	if mode == ModeArgument {
		return "const " + base + "&"
	}
	return base
}

func (t *ArrayType) JavaType() string {
	return t.Element.JavaType() + strings.Repeat("[]", len(t.Dims))
}

func (t *ArrayType) VtsType() string { return "TYPE_ARRAY" }

func (t *ArrayType) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	out.Printf("size_t _hidl_%s_parent;\n", sanitize(name))
	if isReader {
		out.Printf("_hidl_err = %s.readBuffer(sizeof(%s), &_hidl_%s_parent, (const void**)&%s);\n",
			parcel, name, sanitize(name), name)
	} else {
		out.Printf("_hidl_err = %s.writeBuffer(&%s, sizeof(%s), &_hidl_%s_parent);\n",
			parcel, name, name, sanitize(name))
	}
	handleError(out, mode)
}

func (t *ArrayType) IsJavaCompatible() bool {
	// Multidimensional arrays have no stable Java representation.
	return len(t.Dims) == 1 && t.Element.IsJavaCompatible()
}
func (t *ArrayType) NeedsEmbeddedReadWrite() bool { return t.Element.NeedsEmbeddedReadWrite() }
func (t *ArrayType) NeedsResolveReferences() bool { return t.Element.NeedsResolveReferences() }

// Unwrap digs through typedefs and resolved references to the concrete
// type.
func Unwrap(t Type) Type {
	for {
		switch v := t.(type) {
		case *TypeDef:
			t = v.Referenced
		case *NamedReference:
			if !v.Resolved() {
				return t
			}
			t = v.Target()
		default:
			return t
		}
	}
}

// ParcelSuffix names the parcel accessor family ("Int32", "Bool", ...)
// for scalar-backed types, including enums.
func ParcelSuffix(t Type) (string, bool) {
	if s, ok := resolveScalar(t); ok {
		return scalarTable[s.Kind].parcelSuffix, true
	}
	return "", false
}

// TypeDef aliases another type under a new local name.
type TypeDef struct {
	name       string
	fullName   fqn.FQN
	Referenced Type
}

// NewTypeDef declares localName as an alias of referenced inside owner.
func NewTypeDef(localName string, fullName fqn.FQN, referenced Type) *TypeDef {
	return &TypeDef{name: localName, fullName: fullName, Referenced: referenced}
}

func (t *TypeDef) TypeName() string  { return "typedef " + t.name }
func (t *TypeDef) LocalName() string { return t.name }
func (t *TypeDef) FQName() fqn.FQN   { return t.fullName }

func (t *TypeDef) CppType(mode StorageMode) string { return t.Referenced.CppType(mode) }
func (t *TypeDef) JavaType() string                { return t.Referenced.JavaType() }
func (t *TypeDef) VtsType() string                 { return t.Referenced.VtsType() }

func (t *TypeDef) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	t.Referenced.EmitReaderWriter(out, parcel, name, isReader, mode)
}

func (t *TypeDef) IsJavaCompatible() bool       { return t.Referenced.IsJavaCompatible() }
func (t *TypeDef) NeedsEmbeddedReadWrite() bool { return t.Referenced.NeedsEmbeddedReadWrite() }
func (t *TypeDef) NeedsResolveReferences() bool { return t.Referenced.NeedsResolveReferences() }

// NamedReference is a use of a type by name, resolved by the AST before
// emission. Emitting through an unresolved reference is a fatal
// programming error.
type NamedReference struct {
	Ref      fqn.FQN // possibly partial until resolution
	resolved Type
}

// NewNamedReference returns an unresolved reference to ref.
func NewNamedReference(ref fqn.FQN) *NamedReference {
	return &NamedReference{Ref: ref}
}

// Resolve binds the reference to its target.
func (t *NamedReference) Resolve(target Type, full fqn.FQN) {
	t.resolved = target
	t.Ref = full
}

// Resolved reports whether the lookup already happened.
func (t *NamedReference) Resolved() bool { return t.resolved != nil }

// Target returns the referenced type; it panics when unresolved, which
// indicates emission began on an AST that never completed resolution.
func (t *NamedReference) Target() Type {
	if t.resolved == nil {
		panic(fmt.Sprintf("unresolved type reference %q at emit time", t.Ref.String()))
	}
	return t.resolved
}

func (t *NamedReference) TypeName() string { return t.Ref.String() }

func (t *NamedReference) CppType(mode StorageMode) string { return t.Target().CppType(mode) }
func (t *NamedReference) JavaType() string                { return t.Target().JavaType() }
func (t *NamedReference) VtsType() string                 { return t.Target().VtsType() }

func (t *NamedReference) EmitReaderWriter(out *format.Formatter, parcel, name string, isReader bool, mode ErrorMode) {
	t.Target().EmitReaderWriter(out, parcel, name, isReader, mode)
}

func (t *NamedReference) IsJavaCompatible() bool       { return t.Target().IsJavaCompatible() }
func (t *NamedReference) NeedsEmbeddedReadWrite() bool { return t.Target().NeedsEmbeddedReadWrite() }
func (t *NamedReference) NeedsResolveReferences() bool { return t.Target().NeedsResolveReferences() }

// javaBoxed maps a Java carrier type to its boxed form for generics.
func javaBoxed(t Type) string {
	switch t.JavaType() {
	case "boolean":
		return "Boolean"
	case "byte":
		return "Byte"
	case "short":
		return "Short"
	case "int":
		return "Integer"
	case "long":
		return "Long"
	case "float":
		return "Float"
	case "double":
		return "Double"
	default:
		return t.JavaType()
	}
}

func embeddedCall(isReader bool) string {
	if isReader {
		return "readEmbeddedFromParcel"
	}
	return "writeEmbeddedToParcel"
}

// sanitize makes a C++ identifier fragment out of a possibly dotted
// variable path.
func sanitize(name string) string {
	return strings.NewReplacer(".", "_", "[", "_", "]", "_", "(", "_", ")", "_").Replace(name)
}
