package parser

import (
	"testing"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/fqn"
)

const ibaseSource = `
package android.hidl.base@1.0;

interface IBase {
    ping();
    interfaceDescriptor() generates (string descriptor);
};
`

// parseIBase builds the implicit base interface every test interface
// extends.
func parseIBase(t *testing.T) *ast.AST {
	t.Helper()
	a, errs := Parse("IBase.hal", ibaseSource)
	if len(errs) != 0 {
		t.Fatalf("IBase parse errors: %v", errs)
	}
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("IBase resolve: %v", err)
	}
	return a
}

func mustParse(t *testing.T, name, src string) *ast.AST {
	t.Helper()
	a, errs := Parse(name, src)
	if len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	return a
}

func TestPackageAndImports(t *testing.T) {
	a := mustParse(t, "IFoo.hal", `
package android.hardware.foo@1.0;

import android.hidl.base@1.0;
import android.hardware.bar@2.1::IBar;
`)
	want := fqn.MustParse("android.hardware.foo@1.0")
	if !a.Package().Equal(want) {
		t.Fatalf("package = %s, want %s", a.Package(), want)
	}
	imports := a.Imports()
	if len(imports) != 2 {
		t.Fatalf("got %d imports, want 2", len(imports))
	}
	if got := imports[1].String(); got != "android.hardware.bar@2.1::IBar" {
		t.Errorf("imports[1] = %s", got)
	}
}

func TestInterfaceMethods(t *testing.T) {
	a := mustParse(t, "IFoo.hal", `
package android.hardware.foo@1.0;

interface IFoo {
    doThis(int32_t param);
    doThat(vec<string> names) generates (int64_t code, string message);
    oneway notify(uint32_t event);
};
`)
	ibase := parseIBase(t)
	a.AddImportedAST(ibase)
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	iface := a.GetInterface()
	if iface == nil {
		t.Fatal("no interface found")
	}
	if got := len(iface.Methods); got != 3 {
		t.Fatalf("got %d methods, want 3", got)
	}

	doThat := iface.Methods[1]
	if doThat.Name != "doThat" || !doThat.HasReply() {
		t.Errorf("doThat = %+v", doThat)
	}
	if got := len(doThat.Results); got != 2 {
		t.Errorf("doThat results = %d, want 2", got)
	}
	if got := doThat.Args[0].Type.TypeName(); got != "vec<string>" {
		t.Errorf("doThat arg type = %s", got)
	}

	notify := iface.Methods[2]
	if !notify.Oneway {
		t.Error("notify should be oneway")
	}

	// Implicit base: the super chain reaches IBase.
	super := iface.Super()
	if super == nil || !super.IsIBase() {
		t.Errorf("super = %v, want IBase", super)
	}
	// Ordinals continue after the inherited methods.
	if got := iface.Ordinal(0); got != 3 {
		t.Errorf("first own ordinal = %d, want 3", got)
	}
}

func TestStructsEnumsAndArrays(t *testing.T) {
	a := mustParse(t, "types.hal", `
package android.hardware.foo@1.0;

enum Limit : uint8_t {
    NONE,
    MAX = 8,
};

struct Reading {
    enum Kind : int32_t { RAW, FILTERED = RAW + 10, LAST, };
    Kind kind;
    float values[Limit.MAX];
    vec<vec<uint8_t>> blobs;
};

typedef vec<Reading> Batch;
`)
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	types := a.DefinedTypes()
	if len(types) != 4 {
		t.Fatalf("defined %d types, want 4", len(types))
	}

	limit := types[0].(*ast.EnumType)
	if v, ok := limit.LookupValue("MAX"); !ok || v.Value != 8 {
		t.Errorf("Limit.MAX = %v", v)
	}

	// Declaration order: Limit, Reading, Reading.Kind, Batch. The nested
	// enum registers after its enclosing struct.
	kind := types[2].(*ast.EnumType)
	cases := []struct {
		name string
		want int64
	}{
		{"RAW", 0},
		{"FILTERED", 10},
		{"LAST", 11},
	}
	for _, tc := range cases {
		v, ok := kind.LookupValue(tc.name)
		if !ok {
			t.Fatalf("Kind.%s missing", tc.name)
		}
		if v.Value != tc.want {
			t.Errorf("Kind.%s = %d, want %d", tc.name, v.Value, tc.want)
		}
	}
	if got := kind.FQName().String(); got != "android.hardware.foo@1.0::Reading.Kind" {
		t.Errorf("nested enum name = %s", got)
	}

	reading := types[1].(*ast.CompoundType)
	if len(reading.Fields) != 3 {
		t.Fatalf("Reading has %d fields, want 3", len(reading.Fields))
	}
	arr, ok := reading.Fields[1].Type.(*ast.ArrayType)
	if !ok {
		t.Fatalf("values is %T, want array", reading.Fields[1].Type)
	}
	if len(arr.Dims) != 1 || arr.Dims[0] != 8 {
		t.Errorf("values dims = %v, want [8]", arr.Dims)
	}
	if got := reading.Fields[2].Type.TypeName(); got != "vec<vec<uint8_t>>" {
		t.Errorf("blobs type = %s", got)
	}
}

func TestEnumConstantExpressions(t *testing.T) {
	a := mustParse(t, "types.hal", `
package android.hardware.foo@1.0;

enum Flags : uint32_t {
    NONE = 0,
    READ = 1 << 0,
    WRITE = 1 << 1,
    EXEC = 0x4,
    ALL = READ | WRITE | EXEC,
    MASKED = (ALL + 1) * 2 - 1,
    INVERTED = ~0,
};
`)
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	flags := a.DefinedTypes()[0].(*ast.EnumType)

	cases := []struct {
		name string
		want int64
	}{
		{"NONE", 0},
		{"READ", 1},
		{"WRITE", 2},
		{"EXEC", 4},
		{"ALL", 7},
		{"MASKED", 15},
		{"INVERTED", -1},
	}
	for _, tc := range cases {
		v, ok := flags.LookupValue(tc.name)
		if !ok {
			t.Fatalf("Flags.%s missing", tc.name)
		}
		if v.Value != tc.want {
			t.Errorf("Flags.%s = %d, want %d", tc.name, v.Value, tc.want)
		}
	}
}

func TestEnumExtension(t *testing.T) {
	a := mustParse(t, "types.hal", `
package android.hardware.foo@1.1;

enum Base : int32_t { A, B, C };
enum Extended : Base { D, E = D + 10 };
`)
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	ext := a.DefinedTypes()[1].(*ast.EnumType)
	if ext.Parent == nil {
		t.Fatal("Extended has no parent")
	}
	// Numbering continues from the parent's last value.
	if v, _ := ext.LookupValue("D"); v.Value != 3 {
		t.Errorf("Extended.D = %d, want 3", v.Value)
	}
	if v, _ := ext.LookupValue("E"); v.Value != 13 {
		t.Errorf("Extended.E = %d, want 13", v.Value)
	}
	// Parent values remain reachable through the extension.
	if v, ok := ext.LookupValue("A"); !ok || v.Value != 0 {
		t.Errorf("Extended.A = %v, %v", v, ok)
	}
}

func TestExportAnnotation(t *testing.T) {
	a := mustParse(t, "types.hal", `
package android.hardware.foo@1.0;

@export(name="foo_status_t", value_prefix="FOO_")
enum Status : int32_t { OK, ERR };
`)
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	status := a.DefinedTypes()[0].(*ast.EnumType)
	if !status.Exported() {
		t.Fatal("Status should be exported")
	}
	if got := status.ExportName(); got != "foo_status_t" {
		t.Errorf("export name = %q", got)
	}
	if got := status.ExportValuePrefix(); got != "FOO_" {
		t.Errorf("value prefix = %q", got)
	}
}

func TestExplicitExtends(t *testing.T) {
	ibase := parseIBase(t)

	base, errs := Parse("IBar.hal", `
package android.hardware.bar@1.0;

interface IBar {
    one();
};
`)
	if len(errs) != 0 {
		t.Fatalf("IBar parse errors: %v", errs)
	}
	base.AddImportedAST(ibase)
	if err := base.ResolveReferences(); err != nil {
		t.Fatalf("IBar resolve: %v", err)
	}

	derived, errs := Parse("IBar.hal", `
package android.hardware.bar@1.1;

import android.hardware.bar@1.0;

interface IBar extends android.hardware.bar@1.0::IBar {
    two();
};
`)
	if len(errs) != 0 {
		t.Fatalf("derived parse errors: %v", errs)
	}
	derived.AddImportedAST(base)
	derived.AddImportedAST(ibase)
	if err := derived.ResolveReferences(); err != nil {
		t.Fatalf("derived resolve: %v", err)
	}

	iface := derived.GetInterface()
	chain := iface.TypeChain()
	if len(chain) != 3 {
		t.Fatalf("chain length = %d, want 3", len(chain))
	}
	// ping=1, interfaceDescriptor=2, one=3, two=4.
	if got := iface.Ordinal(0); got != 4 {
		t.Errorf("two ordinal = %d, want 4", got)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing package version", "package android.hardware.foo;"},
		{"duplicate package", "package a.b@1.0;\npackage a.b@1.1;"},
		{"method outside interface", "package a.b@1.0;\ndoThis();"},
		{"unterminated interface", "package a.b@1.0;\ninterface IFoo {"},
		{"duplicate enum value", "package a.b@1.0;\nenum E : int32_t { A, A };"},
		{"duplicate field", "package a.b@1.0;\nstruct S { int32_t x; int32_t x; };"},
		{"oneway with results", "package a.b@1.0;\ninterface IFoo { oneway f() generates (int32_t r); };"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, errs := Parse("bad.hal", tc.src)
			if len(errs) == 0 {
				t.Fatal("expected parse errors, got none")
			}
			if a.SyntaxErrors() == 0 {
				t.Error("syntax error count not recorded")
			}
		})
	}
}

func TestErrorRecoveryContinues(t *testing.T) {
	a, errs := Parse("types.hal", `
package android.hardware.foo@1.0;

struct Broken { int32_t };

enum Fine : int32_t { A, B };
`)
	if len(errs) == 0 {
		t.Fatal("expected errors for Broken")
	}
	if err := a.ResolveReferences(); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// The declaration after the broken one is still parsed.
	found := false
	for _, typ := range a.DefinedTypes() {
		if typ.LocalName() == "Fine" {
			found = true
		}
	}
	if !found {
		t.Error("Fine was not parsed after recovery")
	}
}

func TestUnresolvedReferenceFails(t *testing.T) {
	a := mustParse(t, "types.hal", `
package android.hardware.foo@1.0;

struct S {
    Missing m;
};
`)
	if err := a.ResolveReferences(); err == nil {
		t.Fatal("expected unresolved name error")
	}
}
