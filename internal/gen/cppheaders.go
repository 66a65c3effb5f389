package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// headerGuard is the include guard for the artifact named by q.
func headerGuard(q fqn.FQN) string {
	return "HIDL_GENERATED_" + strings.ToUpper(q.TokenName()) + "_H"
}

// includePath renders the include of a generated file for q's package,
// e.g. android/hardware/foo/1.0/IFoo.h.
func includePath(pkg fqn.FQN, file string) string {
	parts := append([]string{}, pkg.PackageComponents()...)
	parts = append(parts, fmt.Sprintf("%d.%d", pkg.Major, pkg.Minor), file)
	return strings.Join(parts, "/")
}

func openNamespaces(out *format.Formatter, pkg fqn.FQN) {
	for _, c := range pkg.PackageComponents() {
		out.Printf("namespace %s {\n", c)
	}
	out.Printf("namespace %s {\n", pkg.SanitizedVersion()).Endl()
}

func closeNamespaces(out *format.Formatter, pkg fqn.FQN) {
	out.Printf("}  // namespace %s\n", pkg.SanitizedVersion())
	comps := pkg.PackageComponents()
	for i := len(comps) - 1; i >= 0; i-- {
		out.Printf("}  // namespace %s\n", comps[i])
	}
}

// fileFQNOf names the artifact stem of a (IFoo or types) inside its
// package.
func fileFQNOf(a *ast.AST) fqn.FQN {
	return a.Package().WithName(baseFileName(a))
}

// generateCppHeaders writes every native header an AST contributes: the
// interface header plus its binder wrappers, or types.h/hwtypes.h for a
// types-only file.
func generateCppHeaders(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	dir := genFileDir(a, outPath)
	iface := a.GetInterface()
	if iface == nil {
		if err := writeFormatted(filepath.Join(dir, "types.h"), func(out *format.Formatter) error {
			return emitTypesHeader(out, a)
		}); err != nil {
			return err
		}
		return writeFormatted(filepath.Join(dir, "hwtypes.h"), func(out *format.Formatter) error {
			return emitHwTypesHeader(out, a)
		})
	}

	type emitter struct {
		file string
		emit func(out *format.Formatter) error
	}
	emitters := []emitter{
		{iface.LocalName() + ".h", func(out *format.Formatter) error { return emitInterfaceHeader(out, a, iface) }},
		{fileFQNOf(a).InterfaceHwName() + ".h", func(out *format.Formatter) error { return emitHwInterfaceHeader(out, a, iface) }},
		{fileFQNOf(a).InterfaceProxyName() + ".h", func(out *format.Formatter) error { return emitProxyHeader(out, a, iface) }},
		{fileFQNOf(a).InterfaceStubName() + ".h", func(out *format.Formatter) error { return emitStubHeader(out, a, iface) }},
		{fileFQNOf(a).InterfacePassthroughName() + ".h", func(out *format.Formatter) error { return emitPassthroughHeader(out, a, iface) }},
	}
	for _, e := range emitters {
		if err := writeFormatted(filepath.Join(dir, e.file), e.emit); err != nil {
			return err
		}
	}
	return nil
}

// emitImportIncludes writes one include per imported package artifact,
// deduplicated, skipping any explicitly excluded name.
func emitImportIncludes(out *format.Formatter, a *ast.AST, exclude ...fqn.FQN) {
	seen := map[string]bool{}
	for _, name := range a.AllImportedNames() {
		skip := false
		for _, e := range exclude {
			if name.Equal(e) {
				skip = true
			}
		}
		if skip {
			continue
		}
		file := "types.h"
		first := strings.SplitN(name.Name(), ".", 2)[0]
		if strings.HasPrefix(first, "I") && len(first) > 1 && first[1] >= 'A' && first[1] <= 'Z' {
			file = first + ".h"
		}
		inc := includePath(name.PackageRoot(), file)
		if seen[inc] {
			continue
		}
		seen[inc] = true
		out.Printf("#include <%s>\n", inc)
	}
}

func emitTypesHeader(out *format.Formatter, a *ast.AST) error {
	guard := headerGuard(fileFQNOf(a))
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()

	emitImportIncludes(out, a)
	out.Println("#include <hidl/HidlSupport.h>")
	out.Println("#include <hidl/MQDescriptor.h>")
	out.Println("#include <utils/NativeHandle.h>")
	out.Println("#include <utils/misc.h>").Endl()

	openNamespaces(out, a.Package())
	for _, t := range a.RootScope().SubTypes() {
		emitTypeDeclaration(out, t)
		out.Endl()
	}
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitHwTypesHeader(out *format.Formatter, a *ast.AST) error {
	q := a.Package().WithName("hwtypes")
	guard := headerGuard(q)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), "types.h")).Endl()
	out.Println("#include <hidl/Status.h>")
	out.Println("#include <hwbinder/IBinder.h>")
	out.Println("#include <hwbinder/Parcel.h>").Endl()

	openNamespaces(out, a.Package())
	for _, t := range a.RootScope().SubTypes() {
		ct, ok := t.(*ast.CompoundType)
		if !ok {
			continue
		}
		if ct.NeedsEmbeddedReadWrite() {
			emitEmbeddedRWDeclarations(out, ct)
		}
	}
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitEmbeddedRWDeclarations(out *format.Formatter, ct *ast.CompoundType) {
	name := strings.Join(ct.FQName().NameComponents(), "::")
	out.Printf("::android::status_t readEmbeddedFromParcel(\n")
	out.Block(func() {
		out.Printf("const %s &obj,\n", name)
		out.Println("const ::android::hardware::Parcel &parcel,")
		out.Println("size_t parentHandle,")
		out.Println("size_t parentOffset);")
	}).Endl()
	out.Printf("::android::status_t writeEmbeddedToParcel(\n")
	out.Block(func() {
		out.Printf("const %s &obj,\n", name)
		out.Println("::android::hardware::Parcel *parcel,")
		out.Println("size_t parentHandle,")
		out.Println("size_t parentOffset);")
	}).Endl()
}

// emitTypeDeclaration renders one named type at its point of
// declaration, recursing into nested scopes.
func emitTypeDeclaration(out *format.Formatter, t ast.NamedType) {
	switch v := t.(type) {
	case *ast.EnumType:
		out.Printf("enum class %s : %s {\n", v.LocalName(), v.Storage.CppType(ast.ModeStack))
		out.Block(func() {
			for _, val := range v.Values {
				out.Printf("%s = %d,\n", val.Name, val.Value)
			}
		})
		out.Println("};")
	case *ast.CompoundType:
		kw := "struct"
		if v.Kind() == ast.KindUnion {
			kw = "union"
		}
		out.Printf("%s %s {\n", kw, v.LocalName())
		out.Block(func() {
			for _, inner := range v.SubTypes() {
				emitTypeDeclaration(out, inner)
				out.Endl()
			}
			for _, f := range v.Fields {
				out.Printf("%s %s;\n", f.Type.CppType(ast.ModeStack), f.Name)
			}
		})
		out.Println("};")
	case *ast.TypeDef:
		out.Printf("typedef %s %s;\n", v.Referenced.CppType(ast.ModeStack), v.LocalName())
	case *ast.Interface:
		// Interfaces get their own header.
	}
}

// methodResultsElidable reports whether the single result can be carried
// in the Return<T> value instead of a callback.
func methodResultsElidable(m *ast.Method) bool {
	if len(m.Results) != 1 {
		return false
	}
	return elidable(m.Results[0].Type)
}

func elidable(t ast.Type) bool {
	switch v := t.(type) {
	case *ast.ScalarType, *ast.EnumType, *ast.Interface:
		return true
	case *ast.TypeDef:
		return elidable(v.Referenced)
	case *ast.NamedReference:
		if v.Resolved() {
			return elidable(v.Target())
		}
	}
	return false
}

// cppReturnType is the T of Return<T> for a method.
func cppReturnType(m *ast.Method) string {
	if m.Oneway || len(m.Results) == 0 {
		return "void"
	}
	if methodResultsElidable(m) {
		return m.Results[0].Type.CppType(ast.ModeResult)
	}
	return "void"
}

// cppArgList renders the parameter list, appending the _hidl_cb callback
// when results travel through one.
func cppArgList(m *ast.Method) string {
	var parts []string
	for _, arg := range m.Args {
		parts = append(parts, arg.Type.CppType(ast.ModeArgument)+" "+arg.Name)
	}
	if usesCallback(m) {
		parts = append(parts, m.Name+"_cb _hidl_cb")
	}
	return strings.Join(parts, ", ")
}

func usesCallback(m *ast.Method) bool {
	return len(m.Results) > 0 && !methodResultsElidable(m)
}

func emitCallbackAlias(out *format.Formatter, m *ast.Method) {
	var parts []string
	for _, r := range m.Results {
		parts = append(parts, r.Type.CppType(ast.ModeArgument)+" "+r.Name)
	}
	out.Printf("using %s_cb = std::function<void(%s)>;\n", m.Name, strings.Join(parts, ", "))
}

func emitInterfaceHeader(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := iface.FQName()
	guard := headerGuard(q)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()

	if super := iface.Super(); super != nil {
		out.Printf("#include <%s>\n", includePath(super.FQName().PackageRoot(), super.LocalName()+".h"))
		emitImportIncludes(out, a, super.FQName())
	} else {
		emitImportIncludes(out, a)
	}
	out.Println("#include <android/hidl/manager/1.0/IServiceNotification.h>").Endl()
	out.Println("#include <hidl/HidlSupport.h>")
	out.Println("#include <hidl/MQDescriptor.h>")
	out.Println("#include <hidl/Status.h>")
	out.Println("#include <utils/NativeHandle.h>")
	out.Println("#include <utils/misc.h>").Endl()

	openNamespaces(out, a.Package())

	if super := iface.Super(); super != nil {
		out.Printf("struct %s : public %s {\n", iface.LocalName(), super.FQName().CppName())
	} else {
		out.Printf("struct %s : virtual public ::android::RefBase {\n", iface.LocalName())
	}
	out.Block(func() {
		out.Println("static const char* descriptor;").Endl()

		for _, t := range iface.SubTypes() {
			emitTypeDeclaration(out, t)
			out.Endl()
		}

		out.Printf("virtual bool isRemote() const override { return false; }\n").Endl()

		for _, m := range iface.Methods {
			if usesCallback(m) {
				emitCallbackAlias(out, m)
			}
			out.Printf("virtual ::android::hardware::Return<%s> %s(%s) = 0;\n",
				cppReturnType(m), m.Name, cppArgList(m))
			out.Endl()
		}

		out.Printf("static ::android::sp<%s> castFrom(const ::android::sp<%s>& parent, bool emitError = false);\n",
			iface.LocalName(), iface.LocalName())
		if super := iface.Super(); super != nil {
			out.Printf("static ::android::sp<%s> castFrom(const ::android::sp<%s>& parent, bool emitError = false);\n",
				iface.LocalName(), super.FQName().CppName())
		}
		out.Endl()
		out.Printf("static ::android::sp<%s> getService(const std::string &serviceName=\"default\", bool getStub=false);\n",
			iface.LocalName())
		out.Println("::android::status_t registerAsService(const std::string &serviceName=\"default\");")
		out.Println("static bool registerForNotifications(")
		out.Block(func() {
			out.Println("const std::string &serviceName,")
			out.Println("const ::android::sp<::android::hidl::manager::V1_0::IServiceNotification> &notification);")
		})
	})
	out.Println("};").Endl()

	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitHwInterfaceHeader(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	hw := a.Package().WithName(q.InterfaceHwName())
	guard := headerGuard(hw)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), iface.LocalName()+".h")).Endl()
	if super := iface.Super(); super != nil && !super.IsIBase() {
		out.Printf("#include <%s>\n",
			includePath(super.FQName().PackageRoot(), super.FQName().InterfaceHwName()+".h"))
	}
	out.Println("#include <android/hidl/base/1.0/BnHwBase.h>")
	out.Println("#include <android/hidl/base/1.0/BpHwBase.h>").Endl()
	out.Println("#include <hidl/Status.h>")
	out.Println("#include <hwbinder/IBinder.h>")
	out.Println("#include <hwbinder/Parcel.h>").Endl()

	openNamespaces(out, a.Package())
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitProxyHeader(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	proxy := a.Package().WithName(q.InterfaceProxyName())
	guard := headerGuard(proxy)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Println("#include <hidl/HidlTransportSupport.h>").Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), q.InterfaceHwName()+".h")).Endl()

	openNamespaces(out, a.Package())
	out.Printf("struct %s : public ::android::hardware::BpInterface<%s>, public ::android::hardware::details::HidlInstrumentor {\n",
		q.InterfaceProxyName(), iface.LocalName())
	out.Block(func() {
		out.Printf("explicit %s(const ::android::sp<::android::hardware::IBinder> &_hidl_impl);\n",
			q.InterfaceProxyName()).Endl()
		out.Println("virtual bool isRemote() const override { return true; }").Endl()
		for _, chained := range iface.TypeChain() {
			for _, m := range chained.Methods {
				out.Printf("::android::hardware::Return<%s> %s(%s) override;\n",
					cppReturnType(m), m.Name, cppArgList(m))
			}
		}
	})
	out.Println("};").Endl()
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitStubHeader(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	stub := a.Package().WithName(q.InterfaceStubName())
	guard := headerGuard(stub)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), q.InterfaceHwName()+".h")).Endl()

	openNamespaces(out, a.Package())
	out.Printf("struct %s : public ::android::hardware::BnInterface<%s>, public ::android::hardware::details::HidlInstrumentor {\n",
		q.InterfaceStubName(), iface.LocalName())
	out.Block(func() {
		out.Printf("explicit %s(const ::android::sp<%s> &_hidl_impl);\n",
			q.InterfaceStubName(), iface.LocalName()).Endl()
		out.Println("::android::status_t onTransact(")
		out.Block(func() {
			out.Println("uint32_t _hidl_code,")
			out.Println("const ::android::hardware::Parcel &_hidl_data,")
			out.Println("::android::hardware::Parcel *_hidl_reply,")
			out.Println("uint32_t _hidl_flags = 0,")
			out.Println("TransactCallback _hidl_cb = nullptr) override;")
		})
		out.Endl()
		out.Println("private:")
		out.Printf("const ::android::sp<%s> _hidl_mImpl;\n", iface.LocalName())
	})
	out.Println("};").Endl()
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}

func emitPassthroughHeader(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	bs := a.Package().WithName(q.InterfacePassthroughName())
	guard := headerGuard(bs)
	out.Printf("#ifndef %s\n", guard)
	out.Printf("#define %s\n", guard).Endl()
	out.Println("#include <future>")
	out.Printf("#include <%s>\n", includePath(a.Package(), iface.LocalName()+".h"))
	out.Println("#include <hidl/Status.h>").Endl()

	openNamespaces(out, a.Package())
	out.Printf("struct %s : %s, ::android::hardware::details::HidlInstrumentor {\n",
		q.InterfacePassthroughName(), iface.LocalName())
	out.Block(func() {
		out.Printf("explicit %s(const ::android::sp<%s> impl);\n",
			q.InterfacePassthroughName(), iface.LocalName()).Endl()
		for _, chained := range iface.TypeChain() {
			for _, m := range chained.Methods {
				out.Printf("::android::hardware::Return<%s> %s(%s) override;\n",
					cppReturnType(m), m.Name, cppArgList(m))
			}
		}
		out.Endl()
		out.Println("private:")
		out.Printf("const ::android::sp<%s> mImpl;\n", iface.LocalName())
	})
	out.Println("};").Endl()
	closeNamespaces(out, a.Package())
	out.Endl().Printf("#endif  // %s\n", guard)
	return out.Err()
}
