package gen

import (
	"path/filepath"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
)

// generateVts writes the vts proto-text description of one AST for
// consumption by the test daemon.
func generateVts(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	base := "types"
	if iface := a.GetInterface(); iface != nil {
		base = iface.FQName().InterfaceBaseName()
	}
	path := filepath.Join(genFileDir(a, outPath), base+".vts")
	return writeFormatted(path, func(out *format.Formatter) error {
		return emitVts(out, a)
	})
}

func emitVts(out *format.Formatter, a *ast.AST) error {
	pkg := a.Package()
	iface := a.GetInterface()

	out.Println("component_class: HAL_HIDL")
	out.Printf("component_type_version: %s\n", pkg.Version())
	if iface != nil {
		out.Printf("component_name: \"%s\"\n", iface.LocalName())
	} else {
		out.Println("component_name: \"types\"")
	}
	out.Endl()
	out.Printf("package: \"%s\"\n", pkg.Package).Endl()

	for _, imp := range a.AllImportedNames() {
		if imp.Equal(ast.IBaseFQN) {
			continue
		}
		out.Printf("import: \"%s\"\n", imp.String())
	}
	if len(a.AllImportedNames()) > 0 {
		out.Endl()
	}

	if iface == nil {
		for _, t := range a.RootScope().SubTypes() {
			emitVtsAttribute(out, t)
		}
		return out.Err()
	}

	out.Println("interface: {")
	out.Block(func() {
		for _, t := range iface.SubTypes() {
			emitVtsAttribute(out, t)
		}
		// Inherited methods come first so the listing reads root-down.
		chain := iface.TypeChain()
		for i := len(chain) - 1; i >= 0; i-- {
			for _, m := range chain[i].Methods {
				emitVtsMethod(out, m)
			}
		}
	})
	out.Println("}")
	return out.Err()
}

// vtsStorageName digs through enum extension chains to the scalar
// keyword naming the wire representation.
func vtsStorageName(t ast.Type) string {
	u := ast.Unwrap(t)
	if e, ok := u.(*ast.EnumType); ok {
		return vtsStorageName(e.Storage)
	}
	return u.TypeName()
}

func emitVtsAttribute(out *format.Formatter, t ast.NamedType) {
	switch v := t.(type) {
	case *ast.EnumType:
		out.Println("attribute: {")
		out.Block(func() {
			out.Println("type: TYPE_ENUM")
			out.Printf("name: \"%s\"\n", v.FQName().String())
			out.Println("enum_value: {")
			out.Block(func() {
				storage := vtsStorageName(v.Storage)
				out.Printf("scalar_type: \"%s\"\n", storage).Endl()
				for cur := v; cur != nil; cur = cur.Parent {
					for _, val := range cur.Values {
						out.Printf("enumerator: \"%s\"\n", val.Name)
						out.Printf("scalar_value: { %s: %d }\n", storage, val.Value)
					}
				}
			})
			out.Println("}")
		})
		out.Println("}").Endl()
	case *ast.CompoundType:
		for _, nested := range v.SubTypes() {
			emitVtsAttribute(out, nested)
		}
		out.Println("attribute: {")
		out.Block(func() {
			out.Printf("type: %s\n", v.VtsType())
			out.Printf("name: \"%s\"\n", v.FQName().String()).Endl()
			for _, f := range v.Fields {
				out.Println("struct_value: {")
				out.Block(func() {
					out.Printf("name: \"%s\"\n", f.Name)
					emitVtsTypeInfo(out, f.Type)
				})
				out.Println("}")
			}
		})
		out.Println("}").Endl()
	}
}

func emitVtsMethod(out *format.Formatter, m *ast.Method) {
	out.Println("api: {")
	out.Block(func() {
		out.Printf("name: \"%s\"\n", m.Name)
		for _, r := range m.Results {
			out.Println("return_type_hidl: {")
			out.Block(func() {
				emitVtsTypeInfo(out, r.Type)
			})
			out.Println("}")
		}
		for _, arg := range m.Args {
			out.Println("arg: {")
			out.Block(func() {
				emitVtsTypeInfo(out, arg.Type)
			})
			out.Println("}")
		}
	})
	out.Println("}").Endl()
}

func emitVtsTypeInfo(out *format.Formatter, t ast.Type) {
	switch v := ast.Unwrap(t).(type) {
	case *ast.ScalarType:
		out.Println("type: TYPE_SCALAR")
		out.Printf("scalar_type: \"%s\"\n", v.TypeName())
	case *ast.VectorType:
		out.Println("type: TYPE_VECTOR")
		out.Println("vector_value: {")
		out.Block(func() {
			emitVtsTypeInfo(out, v.Element)
		})
		out.Println("}")
	case *ast.ArrayType:
		out.Println("type: TYPE_ARRAY")
		out.Println("vector_value: {")
		out.Block(func() {
			if len(v.Dims) > 0 {
				out.Printf("vector_size: %d\n", v.Dims[0])
			}
			emitVtsTypeInfo(out, v.Element)
		})
		out.Println("}")
	case *ast.EnumType:
		out.Println("type: TYPE_ENUM")
		out.Printf("predefined_type: \"%s\"\n", v.FQName().String())
	case *ast.CompoundType:
		out.Printf("type: %s\n", v.VtsType())
		out.Printf("predefined_type: \"%s\"\n", v.FQName().String())
	case *ast.Interface:
		out.Println("type: TYPE_HIDL_INTERFACE")
		out.Printf("predefined_type: \"%s\"\n", v.FQName().String())
	default:
		out.Printf("type: %s\n", t.VtsType())
	}
}
