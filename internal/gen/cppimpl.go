package gen

import (
	"path/filepath"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
)

// implClassName strips the I prefix: IFoo is implemented by Foo.
func implClassName(iface *ast.Interface) string {
	return iface.FQName().InterfaceBaseName()
}

func openImplNamespaces(out *format.Formatter, a *ast.AST) {
	pkg := a.Package()
	for _, c := range pkg.PackageComponents() {
		out.Printf("namespace %s {\n", c)
	}
	out.Printf("namespace %s {\n", pkg.SanitizedVersion())
	out.Println("namespace implementation {").Endl()
}

func closeImplNamespaces(out *format.Formatter, a *ast.AST) {
	pkg := a.Package()
	out.Println("}  // namespace implementation")
	out.Printf("}  // namespace %s\n", pkg.SanitizedVersion())
	comps := pkg.PackageComponents()
	for i := len(comps) - 1; i >= 0; i-- {
		out.Printf("}  // namespace %s\n", comps[i])
	}
}

// generateCppImplHeader writes a skeleton header for a vendor
// implementation of the interface. Types-only files have nothing to
// implement and are skipped.
func generateCppImplHeader(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	iface := a.GetInterface()
	if iface == nil {
		return nil
	}
	name := implClassName(iface)
	return writeFormatted(filepath.Join(outPath, name+".h"), func(out *format.Formatter) error {
		out.Println("// FIXME: add your own license header here").Endl()
		out.Println("#pragma once").Endl()
		out.Printf("#include <%s>\n", includePath(a.Package(), iface.LocalName()+".h"))
		out.Println("#include <hidl/MQDescriptor.h>")
		out.Println("#include <hidl/Status.h>").Endl()

		openImplNamespaces(out, a)
		out.Println("using ::android::hardware::Return;")
		out.Println("using ::android::hardware::Void;")
		out.Println("using ::android::sp;").Endl()

		out.Printf("struct %s : public %s {\n", name, iface.LocalName())
		out.Block(func() {
			for _, chained := range iface.TypeChain() {
				out.Printf("// Methods from %s follow.\n", chained.FQName().CppName())
				for _, m := range chained.Methods {
					out.Printf("Return<%s> %s(%s) override;\n",
						cppReturnType(m), m.Name, cppArgList(m))
				}
				out.Endl()
			}
		})
		out.Println("};").Endl()

		out.Printf("extern \"C\" %s* HIDL_FETCH_%s(const char* name);\n",
			iface.LocalName(), iface.LocalName()).Endl()
		closeImplNamespaces(out, a)
		return out.Err()
	})
}

// generateCppImplSource writes the matching skeleton source with empty
// method bodies and the passthrough entry point.
func generateCppImplSource(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	iface := a.GetInterface()
	if iface == nil {
		return nil
	}
	name := implClassName(iface)
	return writeFormatted(filepath.Join(outPath, name+".cpp"), func(out *format.Formatter) error {
		out.Println("// FIXME: add your own license header here").Endl()
		out.Printf("#include \"%s.h\"\n", name).Endl()

		openImplNamespaces(out, a)
		for _, chained := range iface.TypeChain() {
			out.Printf("// Methods from %s follow.\n", chained.FQName().CppName())
			for _, m := range chained.Methods {
				out.Printf("Return<%s> %s::%s(%s) {\n",
					cppReturnType(m), name, m.Name, cppArgList(m))
				out.Block(func() {
					out.Println("// TODO implement")
					switch {
					case m.Oneway || len(m.Results) == 0:
						out.Println("return Void();")
					case usesCallback(m):
						out.Println("return Void();")
					default:
						out.Printf("return %s{};\n", m.Results[0].Type.CppType(ast.ModeStack))
					}
				})
				out.Println("}").Endl()
			}
		}

		out.Printf("%s* HIDL_FETCH_%s(const char* /* name */) {\n", iface.LocalName(), iface.LocalName())
		out.Block(func() {
			out.Printf("return new %s();\n", name)
		})
		out.Println("}").Endl()
		closeImplNamespaces(out, a)
		return out.Err()
	})
}
