package gen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
)

// generateManagedBinding writes the managed-language binding for one
// AST. A file containing any type the managed runtime cannot express is
// refused outright rather than emitted partially; the error names the
// offending declaration.
func generateManagedBinding(a *ast.AST, c *coordinator.Coordinator, outPath string) error {
	if bad := a.FindJavaIncompatibility(); bad != "" {
		return fmt.Errorf("%w: %s in %s has no managed representation",
			ErrNotJavaCompatible, bad, a.Package().String())
	}

	dir := javaOutDir(a, outPath)
	if iface := a.GetInterface(); iface != nil {
		return writeFormatted(filepath.Join(dir, iface.LocalName()+".java"), func(out *format.Formatter) error {
			return emitJavaInterface(out, a, iface)
		})
	}

	// Types-only files split into one source file per top-level type.
	for _, t := range a.RootScope().SubTypes() {
		t := t
		err := writeFormatted(filepath.Join(dir, t.LocalName()+".java"), func(out *format.Formatter) error {
			out.Printf("package %s;\n", a.Package().JavaPackage()).Endl()
			emitJavaTypeDecl(out, t, true)
			return out.Err()
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func javaOutDir(a *ast.AST, outPath string) string {
	parts := append([]string{outPath}, strings.Split(a.Package().JavaPackage(), ".")...)
	return filepath.Join(parts...)
}

func emitJavaTypeDecl(out *format.Formatter, t ast.NamedType, topLevel bool) {
	mod := "public static"
	if topLevel {
		mod = "public"
	}
	switch v := t.(type) {
	case *ast.EnumType:
		emitJavaEnum(out, v, mod)
	case *ast.CompoundType:
		emitJavaStruct(out, v, mod)
	}
	// Typedefs collapse into their referenced type and need no managed
	// declaration of their own.
}

// emitJavaEnum renders an enum as a final class of integer constants,
// since the values must interoperate with native code by value.
func emitJavaEnum(out *format.Formatter, e *ast.EnumType, mod string) {
	carrier := e.JavaType()
	out.Printf("%s final class %s {\n", mod, e.LocalName())
	out.Block(func() {
		for cur := e; cur != nil; cur = cur.Parent {
			for _, v := range cur.Values {
				out.Printf("public static final %s %s = %d;\n", carrier, v.Name, v.Value)
			}
		}
		out.Endl()
		out.Printf("public static final String toString(%s o) {\n", carrier)
		out.Block(func() {
			seen := map[int64]bool{}
			for cur := e; cur != nil; cur = cur.Parent {
				for _, v := range cur.Values {
					if seen[v.Value] {
						continue
					}
					seen[v.Value] = true
					out.Printf("if (o == %s) { return \"%s\"; }\n", v.Name, v.Name)
				}
			}
			out.Println("return \"0x\" + Long.toHexString(o);")
		})
		out.Println("}")
	})
	out.Println("}").Endl()
}

func emitJavaStruct(out *format.Formatter, ct *ast.CompoundType, mod string) {
	out.Printf("%s final class %s {\n", mod, ct.LocalName())
	out.Block(func() {
		for _, nested := range ct.SubTypes() {
			emitJavaTypeDecl(out, nested, false)
		}
		for _, f := range ct.Fields {
			out.Printf("public %s %s%s;\n", f.Type.JavaType(), f.Name, javaFieldInit(f.Type))
		}
		out.Endl()

		out.Println("public final void writeToParcel(android.os.HwParcel parcel) {")
		out.Block(func() {
			for _, f := range ct.Fields {
				emitJavaWrite(out, f.Type, "parcel", f.Name)
			}
		})
		out.Println("}").Endl()

		out.Printf("public static final %s readFromParcel(android.os.HwParcel parcel) {\n", ct.LocalName())
		out.Block(func() {
			out.Printf("%s _hidl_obj = new %s();\n", ct.LocalName(), ct.LocalName())
			for _, f := range ct.Fields {
				emitJavaReadInto(out, f.Type, "parcel", "_hidl_obj."+f.Name)
			}
			out.Println("return _hidl_obj;")
		})
		out.Println("}")
	})
	out.Println("}").Endl()
}

// javaFieldInit keeps reference-typed members non-null so a freshly
// constructed struct marshals without surprises.
func javaFieldInit(t ast.Type) string {
	switch v := ast.Unwrap(t).(type) {
	case *ast.StringType:
		return " = new String()"
	case *ast.VectorType:
		return " = new " + v.JavaType() + "()"
	default:
		return ""
	}
}

// emitJavaWrite writes one value to an HwParcel.
func emitJavaWrite(out *format.Formatter, t ast.Type, parcel, name string) {
	switch v := ast.Unwrap(t).(type) {
	case *ast.StringType:
		out.Printf("%s.writeString(%s);\n", parcel, name)
	case *ast.Interface:
		out.Printf("%s.writeStrongBinder(%s == null ? null : %s.asBinder());\n", parcel, name, name)
	case *ast.CompoundType:
		out.Printf("%s.writeToParcel(%s);\n", name, parcel)
	case *ast.VectorType:
		if suffix, ok := ast.ParcelSuffix(v.Element); ok {
			out.Printf("%s.write%sVector(%s);\n", parcel, suffix, name)
			return
		}
		out.Printf("%s.writeInt32(%s.size());\n", parcel, name)
		out.Printf("for (%s _hidl_e : %s) {\n", v.Element.JavaType(), name)
		out.Block(func() {
			emitJavaWrite(out, v.Element, parcel, "_hidl_e")
		})
		out.Println("}")
	case *ast.ArrayType:
		out.Printf("for (int _hidl_i = 0; _hidl_i < %d; ++_hidl_i) {\n", v.Dims[0])
		out.Block(func() {
			emitJavaWrite(out, v.Element, parcel, name+"[_hidl_i]")
		})
		out.Println("}")
	default:
		suffix, _ := ast.ParcelSuffix(t)
		out.Printf("%s.write%s(%s);\n", parcel, suffix, name)
	}
}

// emitJavaReadInto assigns one value read from an HwParcel to target,
// which must already be declared.
func emitJavaReadInto(out *format.Formatter, t ast.Type, parcel, target string) {
	switch v := ast.Unwrap(t).(type) {
	case *ast.StringType:
		out.Printf("%s = %s.readString();\n", target, parcel)
	case *ast.Interface:
		out.Printf("%s = %s.asInterface(%s.readStrongBinder());\n", target, v.JavaType(), parcel)
	case *ast.CompoundType:
		out.Printf("%s = %s.readFromParcel(%s);\n", target, v.JavaType(), parcel)
	case *ast.VectorType:
		if suffix, ok := ast.ParcelSuffix(v.Element); ok {
			out.Printf("%s = %s.read%sVector();\n", target, parcel, suffix)
			return
		}
		out.Printf("%s = new %s();\n", target, v.JavaType())
		out.Printf("for (int _hidl_n = %s.readInt32(); _hidl_n > 0; --_hidl_n) {\n", parcel)
		out.Block(func() {
			out.Printf("%s _hidl_e;\n", v.Element.JavaType())
			emitJavaReadInto(out, v.Element, parcel, "_hidl_e")
			out.Printf("%s.add(_hidl_e);\n", target)
		})
		out.Println("}")
	case *ast.ArrayType:
		out.Printf("%s = new %s[%d];\n", target, v.Element.JavaType(), v.Dims[0])
		out.Printf("for (int _hidl_i = 0; _hidl_i < %d; ++_hidl_i) {\n", v.Dims[0])
		out.Block(func() {
			emitJavaReadInto(out, v.Element, parcel, target+"[_hidl_i]")
		})
		out.Println("}")
	default:
		suffix, _ := ast.ParcelSuffix(t)
		out.Printf("%s = %s.read%s();\n", target, parcel, suffix)
	}
}

// javaUsesCallback mirrors the managed signature rule: a single result
// is returned directly, anything more travels through a callback.
func javaUsesCallback(m *ast.Method) bool {
	return len(m.Results) > 1
}

func javaReturnType(m *ast.Method) string {
	if m.Oneway || len(m.Results) == 0 || javaUsesCallback(m) {
		return "void"
	}
	return m.Results[0].Type.JavaType()
}

func javaArgList(m *ast.Method) string {
	var parts []string
	for _, arg := range m.Args {
		parts = append(parts, arg.Type.JavaType()+" "+arg.Name)
	}
	if javaUsesCallback(m) {
		parts = append(parts, m.Name+"Callback _hidl_cb")
	}
	return strings.Join(parts, ", ")
}

func emitJavaInterface(out *format.Formatter, a *ast.AST, iface *ast.Interface) error {
	q := fileFQNOf(a)
	name := iface.LocalName()

	out.Printf("package %s;\n", a.Package().JavaPackage()).Endl()
	out.Printf("public interface %s extends %s {\n", name, javaSuperName(iface))
	out.Block(func() {
		out.Printf("public static final String kInterfaceName = \"%s\";\n", q.String()).Endl()

		out.Printf("public static %s asInterface(android.os.IHwBinder binder) {\n", name)
		out.Block(func() {
			out.Println("if (binder == null) { return null; }").Endl()
			out.Println("android.os.IHwInterface iface = binder.queryLocalInterface(kInterfaceName);")
			out.Printf("if (iface != null && iface instanceof %s) {\n", name)
			out.Block(func() {
				out.Printf("return (%s)iface;\n", name)
			})
			out.Println("}").Endl()
			out.Println("return new Proxy(binder);")
		})
		out.Println("}").Endl()

		out.Printf("public static %s getService(String serviceName) throws android.os.RemoteException {\n", name)
		out.Block(func() {
			out.Println("return asInterface(android.os.HwBinder.getService(kInterfaceName, serviceName));")
		})
		out.Println("}").Endl()

		out.Println("android.os.IHwBinder asBinder();").Endl()

		for _, t := range iface.SubTypes() {
			emitJavaTypeDecl(out, t, false)
		}

		for _, m := range iface.Methods {
			if javaUsesCallback(m) {
				emitJavaCallbackInterface(out, m)
			}
			out.Printf("%s %s(%s) throws android.os.RemoteException;\n",
				javaReturnType(m), m.Name, javaArgList(m)).Endl()
		}

		emitJavaProxy(out, iface)
		emitJavaStub(out, iface)
	})
	out.Println("}")
	return out.Err()
}

func javaSuperName(iface *ast.Interface) string {
	if super := iface.Super(); super != nil {
		return super.JavaType()
	}
	return "android.os.IHwInterface"
}

func emitJavaCallbackInterface(out *format.Formatter, m *ast.Method) {
	var parts []string
	for _, r := range m.Results {
		parts = append(parts, r.Type.JavaType()+" "+r.Name)
	}
	out.Println("@java.lang.FunctionalInterface")
	out.Printf("public interface %sCallback {\n", m.Name)
	out.Block(func() {
		out.Printf("void onValues(%s);\n", strings.Join(parts, ", "))
	})
	out.Println("}").Endl()
}

func emitJavaProxy(out *format.Formatter, iface *ast.Interface) {
	name := iface.LocalName()
	out.Printf("public static final class Proxy implements %s {\n", name)
	out.Block(func() {
		out.Println("private android.os.IHwBinder mRemote;").Endl()
		out.Println("public Proxy(android.os.IHwBinder remote) {")
		out.Block(func() {
			out.Println("mRemote = java.util.Objects.requireNonNull(remote);")
		})
		out.Println("}").Endl()
		out.Println("@Override")
		out.Println("public android.os.IHwBinder asBinder() {")
		out.Block(func() {
			out.Println("return mRemote;")
		})
		out.Println("}").Endl()

		for _, chained := range iface.TypeChain() {
			for idx, m := range chained.Methods {
				emitJavaProxyMethod(out, chained, m, chained.Ordinal(idx))
			}
		}
	})
	out.Println("}").Endl()
}

func emitJavaProxyMethod(out *format.Formatter, owner *ast.Interface, m *ast.Method, ordinal int) {
	out.Println("@Override")
	out.Printf("public %s %s(%s) throws android.os.RemoteException {\n",
		javaReturnType(m), m.Name, javaArgList(m))
	out.Block(func() {
		out.Println("android.os.HwParcel _hidl_request = new android.os.HwParcel();")
		out.Printf("_hidl_request.writeInterfaceToken(%s.kInterfaceName);\n", owner.JavaType())
		for _, arg := range m.Args {
			emitJavaWrite(out, arg.Type, "_hidl_request", arg.Name)
		}
		out.Endl()
		out.Println("android.os.HwParcel _hidl_reply = new android.os.HwParcel();")
		out.Println("try {")
		out.Block(func() {
			flags := "0 /* flags */"
			if m.Oneway {
				flags = "android.os.IHwBinder.FLAG_ONEWAY"
			}
			out.Printf("mRemote.transact(%d /* %s */, _hidl_request, _hidl_reply, %s);\n",
				ordinal, m.Name, flags)
			if !m.Oneway {
				out.Println("_hidl_reply.verifySuccess();")
			}
			out.Println("_hidl_request.releaseTemporaryStorage();")
			if m.Oneway || len(m.Results) == 0 {
				return
			}
			out.Endl()
			for _, r := range m.Results {
				out.Printf("%s %s;\n", r.Type.JavaType(), outLocal(r.Name))
				emitJavaReadInto(out, r.Type, "_hidl_reply", outLocal(r.Name))
			}
			if javaUsesCallback(m) {
				var names []string
				for _, r := range m.Results {
					names = append(names, outLocal(r.Name))
				}
				out.Printf("_hidl_cb.onValues(%s);\n", strings.Join(names, ", "))
			} else {
				out.Printf("return %s;\n", outLocal(m.Results[0].Name))
			}
		})
		out.Println("} finally {")
		out.Block(func() {
			out.Println("_hidl_reply.release();")
		})
		out.Println("}")
	})
	out.Println("}").Endl()
}

func emitJavaStub(out *format.Formatter, iface *ast.Interface) {
	name := iface.LocalName()
	out.Printf("public static abstract class Stub extends android.os.HwBinder implements %s {\n", name)
	out.Block(func() {
		out.Println("@Override")
		out.Println("public android.os.IHwBinder asBinder() {")
		out.Block(func() {
			out.Println("return this;")
		})
		out.Println("}").Endl()

		out.Println("public void registerAsService(String serviceName) throws android.os.RemoteException {")
		out.Block(func() {
			out.Println("registerService(serviceName);")
		})
		out.Println("}").Endl()

		out.Println("@Override")
		out.Println("public void onTransact(int _hidl_code, android.os.HwParcel _hidl_request, final android.os.HwParcel _hidl_reply, int _hidl_flags) throws android.os.RemoteException {")
		out.Block(func() {
			out.Println("switch (_hidl_code) {")
			out.Block(func() {
				for _, chained := range iface.TypeChain() {
					for idx, m := range chained.Methods {
						emitJavaStubCase(out, chained, m, chained.Ordinal(idx))
					}
				}
			})
			out.Println("}")
		})
		out.Println("}")
	})
	out.Println("}")
}

func emitJavaStubCase(out *format.Formatter, owner *ast.Interface, m *ast.Method, ordinal int) {
	out.Printf("case %d /* %s */:\n", ordinal, m.Name)
	out.Println("{")
	out.Block(func() {
		out.Printf("_hidl_request.enforceInterface(%s.kInterfaceName);\n", owner.JavaType()).Endl()
		var names []string
		for _, arg := range m.Args {
			out.Printf("%s %s;\n", arg.Type.JavaType(), arg.Name)
			emitJavaReadInto(out, arg.Type, "_hidl_request", arg.Name)
			names = append(names, arg.Name)
		}

		switch {
		case javaUsesCallback(m):
			var params []string
			for _, r := range m.Results {
				params = append(params, r.Type.JavaType()+" "+r.Name)
			}
			call := strings.Join(names, ", ")
			if call != "" {
				call += ", "
			}
			out.Printf("%s(%s(%s) -> {\n", m.Name, call, strings.Join(params, ", "))
			out.Block(func() {
				out.Println("_hidl_reply.writeStatus(android.os.HwParcel.STATUS_SUCCESS);")
				for _, r := range m.Results {
					emitJavaWrite(out, r.Type, "_hidl_reply", r.Name)
				}
				out.Println("_hidl_reply.send();")
			})
			out.Println("});")
		case !m.Oneway && len(m.Results) == 1:
			r := m.Results[0]
			out.Printf("%s %s = %s(%s);\n", r.Type.JavaType(), outLocal(r.Name), m.Name, strings.Join(names, ", "))
			out.Println("_hidl_reply.writeStatus(android.os.HwParcel.STATUS_SUCCESS);")
			emitJavaWrite(out, r.Type, "_hidl_reply", outLocal(r.Name))
			out.Println("_hidl_reply.send();")
		default:
			out.Printf("%s(%s);\n", m.Name, strings.Join(names, ", "))
			if !m.Oneway {
				out.Println("_hidl_reply.writeStatus(android.os.HwParcel.STATUS_SUCCESS);")
				out.Println("_hidl_reply.send();")
			}
		}
		out.Println("break;")
	})
	out.Println("}").Endl()
}
