package ast

import (
	"testing"

	"github.com/hidl-lang/hidl/internal/fqn"
)

func newTestInterface(t *testing.T, pkg, name string, super *Interface, methods ...string) *Interface {
	t.Helper()
	var superRef *NamedReference
	if super != nil {
		superRef = NewNamedReference(super.FQName())
		superRef.Resolve(super, super.FQName())
	}
	i := NewInterface(name, fqn.MustParse(pkg+"::"+name), superRef, nil)
	for _, m := range methods {
		i.AddMethod(&Method{Name: m})
	}
	return i
}

func TestOrdinalsFollowTypeChain(t *testing.T) {
	base := newTestInterface(t, "android.hidl.base@1.0", "IBase",
		nil, "ping", "interfaceDescriptor")
	foo := newTestInterface(t, "android.hardware.foo@1.0", "IFoo",
		base, "reset", "latest")
	ext := newTestInterface(t, "android.hardware.foo@1.1", "IFooExt",
		foo, "extra")

	cases := []struct {
		iface *Interface
		idx   int
		want  int
	}{
		{base, 0, 1}, // ping
		{base, 1, 2}, // interfaceDescriptor
		{foo, 0, 3},  // reset
		{foo, 1, 4},  // latest
		{ext, 0, 5},  // extra
	}
	for _, c := range cases {
		if got := c.iface.Ordinal(c.idx); got != c.want {
			t.Fatalf("%s.Ordinal(%d) = %d, want %d",
				c.iface.LocalName(), c.idx, got, c.want)
		}
	}
}

func TestTypeChainSelfFirst(t *testing.T) {
	base := newTestInterface(t, "android.hidl.base@1.0", "IBase", nil)
	foo := newTestInterface(t, "android.hardware.foo@1.0", "IFoo", base)

	chain := foo.TypeChain()
	if len(chain) != 2 || chain[0] != foo || chain[1] != base {
		t.Fatalf("TypeChain = %v, want [IFoo IBase]", chain)
	}
	if base.Super() != nil {
		t.Fatalf("IBase must have no parent")
	}
}

func TestUnwrap(t *testing.T) {
	scalar := &ScalarType{Kind: KindInt32}
	alias := NewTypeDef("Handle32", fqn.MustParse("a@1.0::types.Handle32"), scalar)
	ref := NewNamedReference(fqn.MustParse("a@1.0::types.Handle32"))
	ref.Resolve(alias, alias.FQName())

	if got := Unwrap(ref); got != scalar {
		t.Fatalf("Unwrap through reference and typedef = %T, want the scalar", got)
	}

	dangling := NewNamedReference(fqn.MustParse("a@1.0::types.Missing"))
	if got := Unwrap(dangling); got != dangling {
		t.Fatalf("Unwrap must return unresolved references unchanged, got %T", got)
	}
}

func TestParcelSuffix(t *testing.T) {
	u32, _ := LookupScalar("uint32_t")
	enum := NewEnumType("Flags", fqn.MustParse("a@1.0::types.Flags"), u32)
	child := NewEnumType("MoreFlags", fqn.MustParse("a@1.0::types.MoreFlags"), enum)

	cases := []struct {
		typ  Type
		want string
		ok   bool
	}{
		{u32, "Uint32", true},
		{enum, "Uint32", true},
		{child, "Uint32", true},
		{&StringType{}, "", false},
	}
	for _, c := range cases {
		got, ok := ParcelSuffix(c.typ)
		if ok != c.ok || got != c.want {
			t.Fatalf("ParcelSuffix(%s) = %q, %v; want %q, %v",
				c.typ.TypeName(), got, ok, c.want, c.ok)
		}
	}
}

func TestScalarJavaCompatibility(t *testing.T) {
	cases := []struct {
		keyword string
		want    bool
	}{
		{"bool", true},
		{"int8_t", true},
		{"uint8_t", false},
		{"int16_t", true},
		{"uint16_t", false},
		{"int32_t", true},
		{"uint32_t", false},
		{"int64_t", true},
		{"uint64_t", false},
		{"float", true},
		{"double", true},
	}
	for _, c := range cases {
		s, ok := LookupScalar(c.keyword)
		if !ok {
			t.Fatalf("LookupScalar(%q) failed", c.keyword)
		}
		if got := s.IsJavaCompatible(); got != c.want {
			t.Fatalf("%s.IsJavaCompatible() = %v, want %v", c.keyword, got, c.want)
		}
	}
}

func TestArrayJavaCompatibility(t *testing.T) {
	i32, _ := LookupScalar("int32_t")
	single := &ArrayType{Element: i32, Dims: []int{4}}
	if !single.IsJavaCompatible() {
		t.Fatalf("int32_t[4] must be expressible")
	}
	multi := &ArrayType{Element: i32, Dims: []int{2, 3}}
	if multi.IsJavaCompatible() {
		t.Fatalf("multidimensional arrays must not be expressible")
	}
}

func TestDeclaredJavaCompatible(t *testing.T) {
	base := newTestInterface(t, "android.hidl.base@1.0", "IBase", nil)
	i32, _ := LookupScalar("int32_t")

	ok := newTestInterface(t, "a@1.0", "IOk", base)
	ok.AddMethod(&Method{
		Name: "use",
		Args: []*Argument{{Name: "peer", Type: base}, {Name: "n", Type: i32}},
	})
	if !ok.DeclaredJavaCompatible() {
		t.Fatalf("interface-typed arguments are legal in method signatures")
	}

	bad := newTestInterface(t, "a@1.0", "IBad", base)
	bad.AddMethod(&Method{
		Name: "open",
		Args: []*Argument{{Name: "fd", Type: &HandleType{}}},
	})
	if bad.DeclaredJavaCompatible() {
		t.Fatalf("handle arguments have no managed representation")
	}

	vecOfIface := newTestInterface(t, "a@1.0", "IVec", base)
	vecOfIface.AddMethod(&Method{
		Name: "all",
		Args: []*Argument{{Name: "peers", Type: &VectorType{Element: base}}},
	})
	if vecOfIface.DeclaredJavaCompatible() {
		t.Fatalf("vec<interface> has no managed representation")
	}
}

func TestEnumResolveValues(t *testing.T) {
	i32, _ := LookupScalar("int32_t")
	parent := NewEnumType("Status", fqn.MustParse("a@1.0::types.Status"), i32)
	if _, err := parent.AddValue("OK", "", nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if _, err := parent.AddValue("UNKNOWN", "7", LiteralExpr{V: 7}); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if _, err := parent.AddValue("OK", "", nil); err == nil {
		t.Fatalf("duplicate value name must be rejected")
	}
	if err := parent.ResolveValues(nil); err != nil {
		t.Fatalf("ResolveValues: %v", err)
	}
	if parent.Values[0].Value != 0 || parent.Values[1].Value != 7 {
		t.Fatalf("values = %d, %d; want 0, 7", parent.Values[0].Value, parent.Values[1].Value)
	}

	child := NewEnumType("Extended", fqn.MustParse("a@1.1::types.Extended"), parent)
	child.Parent = parent
	if _, err := child.AddValue("NEXT", "", nil); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := child.ResolveValues(nil); err != nil {
		t.Fatalf("ResolveValues: %v", err)
	}
	if child.Values[0].Value != 8 {
		t.Fatalf("implicit first value of an extended enum = %d, want parent max + 1",
			child.Values[0].Value)
	}
	if v, ok := child.LookupValue("UNKNOWN"); !ok || v.Value != 7 {
		t.Fatalf("LookupValue must walk the parent chain")
	}
}

func TestConstExprEval(t *testing.T) {
	res := func(ref string) (int64, error) { return 16, nil }
	cases := []struct {
		expr ConstExpr
		want int64
	}{
		{LiteralExpr{V: 3}, 3},
		{UnaryExpr{Op: '-', X: LiteralExpr{V: 3}}, -3},
		{UnaryExpr{Op: '~', X: LiteralExpr{V: 0}}, -1},
		{BinaryExpr{Op: "<<", L: LiteralExpr{V: 1}, R: LiteralExpr{V: 4}}, 16},
		{BinaryExpr{Op: "|", L: RefExpr{Name: "X"}, R: LiteralExpr{V: 1}}, 17},
	}
	for _, c := range cases {
		got, err := c.expr.Eval(res)
		if err != nil {
			t.Fatalf("Eval: %v", err)
		}
		if got != c.want {
			t.Fatalf("Eval = %d, want %d", got, c.want)
		}
	}
	if _, err := (BinaryExpr{Op: "/", L: LiteralExpr{V: 1}, R: LiteralExpr{V: 0}}).Eval(nil); err == nil {
		t.Fatalf("division by zero must be rejected")
	}
}
