package gen

import (
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
)

// generateCppSources writes the native source for one AST: the combined
// proxy/stub/passthrough translation unit for an interface, or types.cpp
// for a types-only file.
func generateCppSources(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	dir := genFileDir(a, outPath)
	iface := a.GetInterface()
	if iface == nil {
		return writeFormatted(filepath.Join(dir, "types.cpp"), func(out *format.Formatter) error {
			return emitTypesSource(out, a)
		})
	}
	file := fileFQNOf(a).InterfaceBaseName() + "All.cpp"
	return writeFormatted(filepath.Join(dir, file), func(out *format.Formatter) error {
		return emitInterfaceSource(out, a, iface)
	})
}

func emitTypesSource(out *format.Formatter, a *ast.AST) error {
	out.Printf("#define LOG_TAG \"%s::types\"\n", a.Package().String()).Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), "hwtypes.h")).Endl()

	openNamespaces(out, a.Package())
	for _, t := range a.RootScope().SubTypes() {
		ct, ok := t.(*ast.CompoundType)
		if !ok || !ct.NeedsEmbeddedReadWrite() {
			continue
		}
		emitEmbeddedRWDefinition(out, ct, true)
		emitEmbeddedRWDefinition(out, ct, false)
	}
	closeNamespaces(out, a.Package())
	return out.Err()
}

func emitEmbeddedRWDefinition(out *format.Formatter, ct *ast.CompoundType, isReader bool) {
	name := strings.Join(ct.FQName().NameComponents(), "::")
	fn := "writeEmbeddedToParcel"
	parcelDecl := "::android::hardware::Parcel *parcel"
	parcel := "(*parcel)"
	if isReader {
		fn = "readEmbeddedFromParcel"
		parcelDecl = "const ::android::hardware::Parcel &parcel"
		parcel = "parcel"
	}
	out.Printf("::android::status_t %s(\n", fn)
	out.Block(func() {
		out.Printf("const %s &obj,\n", name)
		out.Printf("%s,\n", parcelDecl)
		out.Println("size_t parentHandle,")
		out.Println("size_t parentOffset) {")
	})
	out.Block(func() {
		out.Println("::android::status_t _hidl_err = ::android::OK;").Endl()
		for _, f := range ct.Fields {
			if !f.Type.NeedsEmbeddedReadWrite() {
				continue
			}
			f.Type.EmitReaderWriter(out, parcel, "obj."+f.Name, isReader, ast.ErrorReturn)
		}
		out.Println("return _hidl_err;")
	})
	out.Println("}").Endl()
}

func emitInterfaceSource(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	out.Printf("#define LOG_TAG \"%s\"\n", q.String()).Endl()

	out.Println("#include <android/log.h>")
	out.Println("#include <cutils/trace.h>")
	out.Println("#include <hidl/HidlTransportSupport.h>").Endl()
	out.Printf("#include <%s>\n", includePath(a.Package(), q.InterfaceProxyName()+".h"))
	out.Printf("#include <%s>\n", includePath(a.Package(), q.InterfaceStubName()+".h"))
	out.Printf("#include <%s>\n", includePath(a.Package(), q.InterfacePassthroughName()+".h"))
	if super := iface.Super(); super != nil && !super.IsIBase() {
		out.Printf("#include <%s>\n",
			includePath(super.FQName().PackageRoot(), super.FQName().InterfacePassthroughName()+".h"))
	}
	out.Println("#include <hidl/ServiceManagement.h>")
	out.Println("#include <hwbinder/ProcessState.h>").Endl()

	openNamespaces(out, a.Package())

	out.Printf("const char* %s::descriptor(\"%s\");\n", iface.LocalName(), q.String()).Endl()

	emitServicePlumbing(out, iface)
	emitProxySource(out, a, iface)
	emitStubSource(out, a, iface)
	emitPassthroughSource(out, a, iface)

	closeNamespaces(out, a.Package())
	return out.Err()
}

func emitServicePlumbing(out *format.Formatter, iface *ast.Interface) {
	name := iface.LocalName()
	q := iface.FQName()

	out.Printf("::android::sp<%s> %s::castFrom(const ::android::sp<%s>& parent, bool /* emitError */) {\n",
		name, name, name)
	out.Block(func() {
		out.Println("return parent;")
	})
	out.Println("}").Endl()

	if super := iface.Super(); super != nil {
		out.Printf("::android::sp<%s> %s::castFrom(const ::android::sp<%s>& parent, bool emitError) {\n",
			name, name, super.FQName().CppName())
		out.Block(func() {
			out.Printf("return ::android::hardware::details::castInterface<%s, %s, %s>(\n",
				name, super.FQName().CppName(), q.InterfaceProxyName())
			out.Block(func() {
				out.Printf("parent, \"%s\", emitError);\n", q.String())
			})
		})
		out.Println("}").Endl()
	}

	out.Printf("::android::sp<%s> %s::getService(const std::string &serviceName, bool getStub) {\n", name, name)
	out.Block(func() {
		out.Printf("return ::android::hardware::details::getServiceInternal<%s, %s, %s>(\n",
			q.InterfaceProxyName(), name, q.InterfacePassthroughName())
		out.Block(func() {
			out.Println("serviceName, true /* retry */, getStub);")
		})
	})
	out.Println("}").Endl()

	out.Printf("::android::status_t %s::registerAsService(const std::string &serviceName) {\n", name)
	out.Block(func() {
		out.Println("return ::android::hardware::details::registerAsServiceInternal(this, serviceName);")
	})
	out.Println("}").Endl()
}

// outLocal is the local variable naming for reply values.
func outLocal(name string) string { return "_hidl_out_" + name }

func emitProxySource(out *format.Formatter, a *ast.AST, iface *ast.Interface) {
	q := fileFQNOf(a)
	proxy := q.InterfaceProxyName()

	out.Printf("%s::%s(const ::android::sp<::android::hardware::IBinder> &_hidl_impl)\n", proxy, proxy)
	out.Block(func() {
		out.Printf(": BpInterface<%s>(_hidl_impl),\n", iface.LocalName())
		out.Printf("  HidlInstrumentor(\"%s\") {\n", q.String())
	})
	out.Println("}").Endl()

	for _, chained := range iface.TypeChain() {
		for idx, m := range chained.Methods {
			emitProxyMethod(out, proxy, chained, m, chained.Ordinal(idx))
		}
	}
}

func emitProxyMethod(out *format.Formatter, proxy string, owner *ast.Interface, m *ast.Method, ordinal int) {
	out.Printf("::android::hardware::Return<%s> %s::%s(%s) {\n",
		cppReturnType(m), proxy, m.Name, cppArgList(m))
	out.Block(func() {
		out.Println("::android::hardware::Parcel _hidl_data;")
		out.Println("::android::hardware::Parcel _hidl_reply;")
		out.Println("::android::status_t _hidl_err;").Endl()

		out.Printf("_hidl_err = _hidl_data.writeInterfaceToken(%s::descriptor);\n", owner.FQName().CppName())
		out.Println("if (_hidl_err != ::android::OK) { return _hidl_err; }").Endl()

		for _, arg := range m.Args {
			arg.Type.EmitReaderWriter(out, "_hidl_data", arg.Name, false, ast.ErrorReturn)
		}

		flags := "0 /* flags */"
		if m.Oneway {
			flags = "::android::hardware::IBinder::FLAG_ONEWAY"
		}
		out.Printf("_hidl_err = remote()->transact(%d /* %s */, _hidl_data, &_hidl_reply, %s);\n",
			ordinal, m.Name, flags)
		out.Println("if (_hidl_err != ::android::OK) { return _hidl_err; }").Endl()

		if len(m.Results) > 0 && !m.Oneway {
			for _, r := range m.Results {
				out.Printf("%s %s;\n", r.Type.CppType(ast.ModeStack), outLocal(r.Name))
			}
			out.Endl()
			for _, r := range m.Results {
				r.Type.EmitReaderWriter(out, "_hidl_reply", outLocal(r.Name), true, ast.ErrorReturn)
			}
			if usesCallback(m) {
				var names []string
				for _, r := range m.Results {
					names = append(names, outLocal(r.Name))
				}
				out.Printf("_hidl_cb(%s);\n", strings.Join(names, ", ")).Endl()
				out.Println("return ::android::hardware::Void();")
			} else {
				out.Endl().Printf("return %s;\n", outLocal(m.Results[0].Name))
			}
		} else {
			out.Println("return ::android::hardware::Void();")
		}
	})
	out.Println("}").Endl()
}

func emitStubSource(out *format.Formatter, a *ast.AST, iface *ast.Interface) {
	q := fileFQNOf(a)
	stub := q.InterfaceStubName()

	out.Printf("%s::%s(const ::android::sp<%s> &_hidl_impl)\n", stub, stub, iface.LocalName())
	out.Block(func() {
		out.Printf(": BnInterface<%s>(_hidl_impl),\n", iface.LocalName())
		out.Printf("  HidlInstrumentor(\"%s\"),\n", q.String())
		out.Println("  _hidl_mImpl(_hidl_impl) {")
	})
	out.Println("}").Endl()

	out.Printf("::android::status_t %s::onTransact(\n", stub)
	out.Block(func() {
		out.Println("uint32_t _hidl_code,")
		out.Println("const ::android::hardware::Parcel &_hidl_data,")
		out.Println("::android::hardware::Parcel *_hidl_reply,")
		out.Println("uint32_t _hidl_flags,")
		out.Println("TransactCallback _hidl_cb) {")
	})
	out.Block(func() {
		out.Println("::android::status_t _hidl_err = ::android::OK;").Endl()
		out.Println("switch (_hidl_code) {")
		out.Block(func() {
			for _, chained := range iface.TypeChain() {
				for idx, m := range chained.Methods {
					emitStubCase(out, chained, m, chained.Ordinal(idx))
				}
			}
			out.Println("default:")
			out.Block(func() {
				out.Println("return ::android::hardware::BHwBinder::onTransact(")
				out.Block(func() {
					out.Println("_hidl_code, _hidl_data, _hidl_reply, _hidl_flags, _hidl_cb);")
				})
			})
		})
		out.Println("}").Endl()
		out.Println("return _hidl_err;")
	})
	out.Println("}").Endl()
}

func emitStubCase(out *format.Formatter, owner *ast.Interface, m *ast.Method, ordinal int) {
	out.Printf("case %d /* %s */:\n", ordinal, m.Name)
	out.Println("{")
	out.Block(func() {
		out.Printf("if (!_hidl_data.enforceInterface(%s::descriptor)) {\n", owner.FQName().CppName())
		out.Block(func() {
			out.Println("_hidl_err = ::android::BAD_TYPE;")
			out.Println("break;")
		})
		out.Println("}").Endl()

		for _, arg := range m.Args {
			out.Printf("%s %s;\n", arg.Type.CppType(ast.ModeStack), arg.Name)
		}
		if len(m.Args) > 0 {
			out.Endl()
			for _, arg := range m.Args {
				arg.Type.EmitReaderWriter(out, "_hidl_data", arg.Name, true, ast.ErrorBreak)
			}
			out.Endl()
		}

		var argNames []string
		for _, arg := range m.Args {
			argNames = append(argNames, arg.Name)
		}

		switch {
		case usesCallback(m):
			var params []string
			for _, r := range m.Results {
				params = append(params, r.Type.CppType(ast.ModeArgument)+" "+r.Name)
			}
			call := strings.Join(argNames, ", ")
			if call != "" {
				call += ", "
			}
			out.Printf("_hidl_mImpl->%s(%s[&](%s) {\n", m.Name, call, strings.Join(params, ", "))
			out.Block(func() {
				for _, r := range m.Results {
					r.Type.EmitReaderWriter(out, "(*_hidl_reply)", r.Name, false, ast.ErrorVoidReturn)
				}
				out.Println("_hidl_cb(*_hidl_reply);")
			})
			out.Println("});")
		case len(m.Results) == 1:
			out.Printf("%s %s = _hidl_mImpl->%s(%s);\n",
				m.Results[0].Type.CppType(ast.ModeStack), outLocal(m.Results[0].Name),
				m.Name, strings.Join(argNames, ", "))
			m.Results[0].Type.EmitReaderWriter(out, "(*_hidl_reply)", outLocal(m.Results[0].Name), false, ast.ErrorBreak)
			out.Println("_hidl_cb(*_hidl_reply);")
		default:
			out.Printf("_hidl_mImpl->%s(%s);\n", m.Name, strings.Join(argNames, ", "))
			if !m.Oneway {
				out.Println("_hidl_cb(*_hidl_reply);")
			}
		}
		out.Println("break;")
	})
	out.Println("}").Endl()
}

func emitPassthroughSource(out *format.Formatter, a *ast.AST, iface *ast.Interface) {
	q := fileFQNOf(a)
	bs := q.InterfacePassthroughName()

	out.Printf("%s::%s(const ::android::sp<%s> impl)\n", bs, bs, iface.LocalName())
	out.Block(func() {
		out.Printf(": HidlInstrumentor(\"%s\"), mImpl(impl) {\n", q.String())
	})
	out.Println("}").Endl()

	for _, chained := range iface.TypeChain() {
		for _, m := range chained.Methods {
			out.Printf("::android::hardware::Return<%s> %s::%s(%s) {\n",
				cppReturnType(m), bs, m.Name, cppArgList(m))
			out.Block(func() {
				var names []string
				for _, arg := range m.Args {
					names = append(names, arg.Name)
				}
				if usesCallback(m) {
					names = append(names, "_hidl_cb")
				}
				out.Printf("return mImpl->%s(%s);\n", m.Name, strings.Join(names, ", "))
			})
			out.Println("}").Endl()
		}
	}
}
