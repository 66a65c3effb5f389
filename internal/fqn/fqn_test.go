package fqn

import (
	"errors"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	tests := []string{
		"android.hardware.foo@1.0",
		"android.hardware.foo@1.0::IFoo",
		"android.hardware.foo@2.7::types.Inner",
		"android.hidl.base@1.0::IBase",
		"a.b.c@0.0::IFoo.Sub",
	}

	for _, text := range tests {
		q, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", text, err)
		}
		if got := q.String(); got != text {
			t.Errorf("round trip of %q produced %q", text, got)
		}
		again, err := Parse(q.String())
		if err != nil {
			t.Fatalf("re-Parse(%q) failed: %v", q.String(), err)
		}
		if !again.Equal(q) {
			t.Errorf("Parse(String()) != original for %q", text)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	tests := []string{
		"",
		"android.hardware.foo",           // no version
		"android.hardware.foo@1",         // incomplete version
		"android.hardware.foo@1.x",       // non-numeric minor
		"android.hardware.foo@1.0::",     // empty type path
		"android.hardware.foo@-1.0",      // negative major
		"android.hardware.9foo@1.0",      // identifier starts with digit
		"android..foo@1.0",               // empty package component
		"android.hardware.foo@1.0::I-Fo", // bad identifier
	}

	for _, text := range tests {
		if _, err := Parse(text); !errors.Is(err, ErrMalformedName) {
			t.Errorf("Parse(%q) = %v, want ErrMalformedName", text, err)
		}
	}
}

func TestParsePartial(t *testing.T) {
	q, err := ParsePartial("types.Foo")
	if err != nil {
		t.Fatalf("ParsePartial: %v", err)
	}
	if q.Package != "" || q.HasVersion() || q.Name() != "types.Foo" {
		t.Errorf("unexpected partial parse result: %+v", q)
	}
	if q.IsFullyQualified() {
		t.Error("partial name must not be fully qualified")
	}
}

func TestVariants(t *testing.T) {
	q := MustParse("android.hardware.foo@1.2::IFoo")

	if !q.IsFullyQualified() {
		t.Error("expected fully qualified")
	}
	if got := q.TypesForPackage().String(); got != "android.hardware.foo@1.2::types" {
		t.Errorf("TypesForPackage = %q", got)
	}
	if got := q.PackageRoot().String(); got != "android.hardware.foo@1.2" {
		t.Errorf("PackageRoot = %q", got)
	}
	if !q.PackageRoot().IsPackageRoot() {
		t.Error("PackageRoot must report IsPackageRoot")
	}
	if !q.InPackage("android.hardware") || q.InPackage("android.hard") {
		t.Error("InPackage is a component-wise prefix match")
	}
}

func TestOrdering(t *testing.T) {
	ordered := []FQN{
		MustParse("android.a@1.0::IFoo"),
		MustParse("android.a@1.1::IFoo"),
		MustParse("android.a@2.0::IBar"),
		MustParse("android.a@2.0::IFoo"),
		MustParse("android.b@0.1::IFoo"),
	}

	for i := 0; i < len(ordered)-1; i++ {
		if !ordered[i].Less(ordered[i+1]) {
			t.Errorf("%v should order before %v", ordered[i], ordered[i+1])
		}
		if ordered[i+1].Less(ordered[i]) {
			t.Errorf("%v should not order before %v", ordered[i+1], ordered[i])
		}
	}
}

func TestDerivedNames(t *testing.T) {
	q := MustParse("android.hardware.nfc@1.0::INfc")

	if got := q.InterfaceBaseName(); got != "Nfc" {
		t.Errorf("InterfaceBaseName = %q", got)
	}
	if got := q.InterfaceProxyName(); got != "BpHwNfc" {
		t.Errorf("InterfaceProxyName = %q", got)
	}
	if got := q.InterfaceStubName(); got != "BnHwNfc" {
		t.Errorf("InterfaceStubName = %q", got)
	}
	if got := q.InterfacePassthroughName(); got != "BsNfc" {
		t.Errorf("InterfacePassthroughName = %q", got)
	}
	if got := q.TokenName(); got != "android_hardware_nfc_V1_0_INfc" {
		t.Errorf("TokenName = %q", got)
	}
	if got := q.JavaPackage(); got != "android.hardware.nfc.V1_0" {
		t.Errorf("JavaPackage = %q", got)
	}
	if got := q.CppName(); got != "::android::hardware::nfc::V1_0::INfc" {
		t.Errorf("CppName = %q", got)
	}
}
