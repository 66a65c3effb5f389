package gen

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/fqn"
)

const ibaseSource = `
package android.hidl.base@1.0;

interface IBase {
    ping();
    interfaceDescriptor() generates (string descriptor);
};
`

const fooTypesSource = `
package android.hardware.foo@1.0;

enum Status : int32_t { OK, UNKNOWN = -1 };

struct Reading {
    Status status;
    vec<int32_t> samples;
};
`

const fooInterfaceSource = `
package android.hardware.foo@1.0;

import android.hardware.foo@1.0::types;

interface IFoo {
    reset();
    oneway kick(int32_t id);
    latest() generates (Reading reading);
    stats() generates (int32_t count, int32_t dropped);
};
`

func newTestCoordinator(t *testing.T, files map[string]string) *coordinator.Coordinator {
	t.Helper()
	root := t.TempDir()
	all := map[string]string{
		"system/libhidl/transport/base/1.0/IBase.hal": ibaseSource,
	}
	for k, v := range files {
		all[k] = v
	}
	for rel, content := range all {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c := coordinator.New(root, nil)
	c.AddDefaultPackageRoots()
	return c
}

func newFooCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	return newTestCoordinator(t, map[string]string{
		"hardware/interfaces/foo/1.0/types.hal": fooTypesSource,
		"hardware/interfaces/foo/1.0/IFoo.hal":  fooInterfaceSource,
	})
}

func generate(t *testing.T, c *coordinator.Coordinator, key, target string) string {
	t.Helper()
	h, ok := Lookup(key)
	if !ok {
		t.Fatalf("no handler for %q", key)
	}
	q := fqn.MustParse(target)
	if err := h.Validate(q, key); err != nil {
		t.Fatalf("Validate(%s): %v", target, err)
	}
	out := t.TempDir()
	if err := h.Generate(q, "hidl-gen", c, out); err != nil {
		t.Fatalf("Generate(%s, %s): %v", key, target, err)
	}
	return out
}

func readGenerated(t *testing.T, dir, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, rel))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

func TestRegistryComplete(t *testing.T) {
	want := []string{
		"check", "c++", "c++-headers", "c++-sources", "export-header",
		"c++-impl", "c++-impl-headers", "c++-impl-sources",
		"managed-binding", "managed-constants", "vts",
		"makefile", "androidbp", "androidbp-impl", "hash",
	}
	for _, key := range want {
		if _, ok := Lookup(key); !ok {
			t.Errorf("Lookup(%q) = false", key)
		}
	}
	if got := len(Handlers()); got != len(want) {
		t.Errorf("len(Handlers()) = %d, want %d", got, len(want))
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		key    string
		target string
		ok     bool
	}{
		{"c++-headers", "android.hardware.foo@1.0::IFoo", true},
		{"c++-headers", "android.hardware.foo@1.0", true},
		{"c++-headers", "android.hardware.foo", false},
		{"c++-headers", "android.hardware.foo@1.0::IFoo.Inner", false},
		{"androidbp", "android.hardware.foo@1.0", true},
		{"androidbp", "android.hardware.foo@1.0::IFoo", false},
	}
	for _, tc := range cases {
		h, ok := Lookup(tc.key)
		if !ok {
			t.Fatalf("no handler for %q", tc.key)
		}
		err := h.Validate(fqn.MustParse(tc.target), tc.key)
		if (err == nil) != tc.ok {
			t.Errorf("Validate(%s, %s) = %v, want ok=%v", tc.key, tc.target, err, tc.ok)
		}
	}
}

func TestCppHeaderGuardAndSignatures(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "c++-headers", "android.hardware.foo@1.0::IFoo")
	header := readGenerated(t, out, "android/hardware/foo/1.0/IFoo.h")

	for _, want := range []string{
		"#ifndef HIDL_GENERATED_ANDROID_HARDWARE_FOO_V1_0_IFOO_H",
		"namespace android {",
		"namespace V1_0 {",
		// Elidable single result comes back directly.
		"virtual ::android::hardware::Return<void> reset() = 0;",
		"virtual ::android::hardware::Return<void> kick(int32_t id) = 0;",
		// A struct result travels through the sync callback.
		"using latest_cb = std::function<void(",
		"latest(latest_cb _hidl_cb) = 0;",
		// Two scalar results also need the callback.
		"using stats_cb = std::function<void(int32_t count, int32_t dropped)>;",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("IFoo.h missing %q", want)
		}
	}
}

func TestCppHeadersWholePackage(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "c++-headers", "android.hardware.foo@1.0")
	for _, rel := range []string{
		"android/hardware/foo/1.0/IFoo.h",
		"android/hardware/foo/1.0/IHwFoo.h",
		"android/hardware/foo/1.0/BpHwFoo.h",
		"android/hardware/foo/1.0/BnHwFoo.h",
		"android/hardware/foo/1.0/BsFoo.h",
		"android/hardware/foo/1.0/types.h",
		"android/hardware/foo/1.0/hwtypes.h",
	} {
		if _, err := os.Stat(filepath.Join(out, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}
}

func TestStubOrdinalsFollowTypeChain(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "c++-sources", "android.hardware.foo@1.0::IFoo")
	src := readGenerated(t, out, "android/hardware/foo/1.0/FooAll.cpp")

	// IBase contributes ordinals 1 and 2; IFoo's own methods follow.
	for _, want := range []string{
		"case 1 /* ping */:",
		"case 2 /* interfaceDescriptor */:",
		"case 3 /* reset */:",
		"case 4 /* kick */:",
		"case 5 /* latest */:",
		"case 6 /* stats */:",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("FooAll.cpp missing %q", want)
		}
	}
	if !strings.Contains(src, `const char* IFoo::descriptor("android.hardware.foo@1.0::IFoo");`) {
		t.Error("FooAll.cpp missing descriptor definition")
	}
	if !strings.Contains(src, "::android::hardware::IBinder::FLAG_ONEWAY") {
		t.Error("oneway method must transact with FLAG_ONEWAY")
	}
}

func TestGenerationIsDeterministic(t *testing.T) {
	c := newFooCoordinator(t)
	first := generate(t, c, "c++", "android.hardware.foo@1.0")
	second := generate(t, c, "c++", "android.hardware.foo@1.0")

	rel := "android/hardware/foo/1.0/FooAll.cpp"
	a, err := os.ReadFile(filepath.Join(first, rel))
	if err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(second, rel))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("two runs produced different output")
	}
}

func TestManagedBindingRefusesIncompatibleTypes(t *testing.T) {
	c := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/bar/1.0/IBar.hal": `
package android.hardware.bar@1.0;

interface IBar {
    open(handle fd);
};
`,
	})
	h, _ := Lookup("managed-binding")
	out := t.TempDir()
	err := h.Generate(fqn.MustParse("android.hardware.bar@1.0::IBar"), "hidl-gen", c, out)
	if !errors.Is(err, ErrNotJavaCompatible) {
		t.Fatalf("err = %v, want ErrNotJavaCompatible", err)
	}
	if !strings.Contains(err.Error(), "IBar") {
		t.Errorf("diagnostic %q does not name the offending declaration", err)
	}
	// Refusal must not leave partial output behind.
	entries, _ := os.ReadDir(out)
	if len(entries) != 0 {
		t.Errorf("partial output written: %v", entries)
	}
}

func TestManagedBindingInterface(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "managed-binding", "android.hardware.foo@1.0::IFoo")
	src := readGenerated(t, out, "android/hardware/foo/V1_0/IFoo.java")

	for _, want := range []string{
		"package android.hardware.foo.V1_0;",
		`public static final String kInterfaceName = "android.hardware.foo@1.0::IFoo";`,
		"public interface statsCallback {",
		"void onValues(int count, int dropped);",
		"public static final class Proxy implements IFoo {",
		"public static abstract class Stub extends android.os.HwBinder implements IFoo {",
		"case 4 /* kick */:",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("IFoo.java missing %q", want)
		}
	}
}

func TestManagedBindingTypesFileSplits(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "managed-binding", "android.hardware.foo@1.0::types")
	status := readGenerated(t, out, "android/hardware/foo/V1_0/Status.java")
	if !strings.Contains(status, "public static final int UNKNOWN = -1;") {
		t.Errorf("Status.java missing resolved constant:\n%s", status)
	}
	reading := readGenerated(t, out, "android/hardware/foo/V1_0/Reading.java")
	for _, want := range []string{
		"public final void writeToParcel(android.os.HwParcel parcel)",
		"public static final Reading readFromParcel(android.os.HwParcel parcel)",
		"parcel.readInt32Vector();",
	} {
		if !strings.Contains(reading, want) {
			t.Errorf("Reading.java missing %q", want)
		}
	}
}

func TestVtsShape(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "vts", "android.hardware.foo@1.0::IFoo")
	vts := readGenerated(t, out, "android/hardware/foo/1.0/Foo.vts")

	for _, want := range []string{
		"component_class: HAL_HIDL",
		"component_type_version: 1.0",
		`component_name: "IFoo"`,
		`package: "android.hardware.foo"`,
		`import: "android.hardware.foo@1.0::types"`,
		"interface: {",
		`name: "latest"`,
		"return_type_hidl: {",
		"type: TYPE_STRUCT",
		`predefined_type: "android.hardware.foo@1.0::Reading"`,
	} {
		if !strings.Contains(vts, want) {
			t.Errorf("Foo.vts missing %q", want)
		}
	}
	if strings.Contains(vts, "android.hidl.base") {
		t.Error("implicit base interface must not surface as an import")
	}
	// Inherited methods list before declared ones.
	if strings.Index(vts, `name: "ping"`) > strings.Index(vts, `name: "reset"`) {
		t.Error("inherited methods should precede declared methods")
	}
}

func TestHashOutputFormat(t *testing.T) {
	c := newFooCoordinator(t)
	var buf bytes.Buffer
	if err := generateHashOutput(fqn.MustParse("android.hardware.foo@1.0"), c, &buf); err != nil {
		t.Fatalf("generateHashOutput: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	for _, line := range lines {
		parts := strings.Fields(line)
		if len(parts) != 2 || len(parts[0]) != 64 {
			t.Errorf("malformed hash line %q", line)
		}
	}
	if !strings.HasSuffix(lines[0], "android.hardware.foo@1.0::IFoo") {
		t.Errorf("line %q should end with the interface fqn", lines[0])
	}
}

func TestAndroidBpContent(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "androidbp", "android.hardware.foo@1.0")
	bp := readGenerated(t, out, filepath.Join("hardware", "interfaces", "foo", "1.0", "Android.bp"))

	for _, want := range []string{
		`name: "android.hardware.foo@1.0_hal",`,
		`"IFoo.hal",`,
		`"types.hal",`,
		"-Lc++-sources -randroid.hardware:hardware/interfaces android.hardware.foo@1.0",
		`"android/hardware/foo/1.0/FooAll.cpp",`,
		`"android/hardware/foo/1.0/BsFoo.h",`,
		`name: "android.hardware.foo@1.0",`,
		`"libhidlbase",`,
	} {
		if !strings.Contains(bp, want) {
			t.Errorf("Android.bp missing %q", want)
		}
	}
}

func TestCppImplSkeleton(t *testing.T) {
	c := newFooCoordinator(t)
	out := generate(t, c, "c++-impl", "android.hardware.foo@1.0::IFoo")
	header := readGenerated(t, out, "Foo.h")
	if !strings.Contains(header, "struct Foo : public IFoo {") {
		t.Error("Foo.h missing implementation struct")
	}
	if !strings.Contains(header, "extern \"C\" IFoo* HIDL_FETCH_IFoo(const char* name);") {
		t.Error("Foo.h missing passthrough entry point")
	}
	src := readGenerated(t, out, "Foo.cpp")
	if !strings.Contains(src, "return new Foo();") {
		t.Error("Foo.cpp missing HIDL_FETCH body")
	}
}

func TestExportHeader(t *testing.T) {
	c := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/light/1.0/types.hal": `
package android.hardware.light@1.0;

@export(name="light_mode_t", value_prefix="LIGHT_MODE_")
enum Mode : int32_t {
    NONE,
    BLINK = 1 << 4,
};
`,
		"hardware/interfaces/light/1.0/ILight.hal": `
package android.hardware.light@1.0;

import android.hardware.light@1.0::types;

interface ILight {
    set(Mode mode);
};
`,
	})
	h, _ := Lookup("export-header")
	outFile := filepath.Join(t.TempDir(), "light.h")
	if err := h.Generate(fqn.MustParse("android.hardware.light@1.0"), "hidl-gen", c, outFile); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	header := string(data)
	for _, want := range []string{
		"#ifndef HIDL_GENERATED_ANDROID_HARDWARE_LIGHT_V1_0_EXPORTED_CONSTANTS_H_",
		"enum light_mode_t {",
		"LIGHT_MODE_NONE = 0,",
		"LIGHT_MODE_BLINK = 16,",
		"extern \"C\" {",
	} {
		if !strings.Contains(header, want) {
			t.Errorf("export header missing %q", want)
		}
	}
}
