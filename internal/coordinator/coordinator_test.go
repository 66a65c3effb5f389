package coordinator

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hidl-lang/hidl/internal/fqn"
	"github.com/hidl-lang/hidl/internal/hash"
)

const ibaseSource = `
package android.hidl.base@1.0;

interface IBase {
    ping();
    interfaceDescriptor() generates (string descriptor);
};
`

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func newTestCoordinator(t *testing.T, files map[string]string) (*Coordinator, string) {
	t.Helper()
	root := t.TempDir()
	all := map[string]string{
		"system/libhidl/transport/base/1.0/IBase.hal": ibaseSource,
	}
	for k, v := range files {
		all[k] = v
	}
	writeTree(t, root, all)
	c := New(root, nil)
	c.AddDefaultPackageRoots()
	return c, root
}

func TestParseInterfaceWithTypes(t *testing.T) {
	c, _ := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/foo/1.0/types.hal": `
package android.hardware.foo@1.0;

enum Status : int32_t { OK, UNKNOWN = -1 };
`,
		"hardware/interfaces/foo/1.0/IFoo.hal": `
package android.hardware.foo@1.0;

import android.hardware.foo@1.0::types;

interface IFoo {
    check() generates (Status status);
};
`,
	})

	q := fqn.MustParse("android.hardware.foo@1.0::IFoo")
	a, err := c.Parse(q)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	iface := a.GetInterface()
	if iface == nil || iface.LocalName() != "IFoo" {
		t.Fatalf("interface = %v", iface)
	}
	// Implicit base resolved without an import declaration.
	if super := iface.Super(); super == nil || !super.IsIBase() {
		t.Errorf("super = %v, want IBase", super)
	}
	// check() comes after IBase's two methods.
	if got := iface.Ordinal(0); got != 3 {
		t.Errorf("check ordinal = %d, want 3", got)
	}

	// Second parse hits the cache.
	b, err := c.Parse(q)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if a != b {
		t.Error("cache miss on identical FQN")
	}
}

func TestWholePackageImport(t *testing.T) {
	c, _ := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/foo/1.0/types.hal": `
package android.hardware.foo@1.0;
struct Point { int32_t x; int32_t y; };
`,
		"hardware/interfaces/foo/1.0/IFoo.hal": `
package android.hardware.foo@1.0;
interface IFoo {
    move(Point where);
};
`,
		"hardware/interfaces/bar/1.0/IBar.hal": `
package android.hardware.bar@1.0;

import android.hardware.foo@1.0;

interface IBar {
    relay(android.hardware.foo@1.0::Point p);
};
`,
	})

	a, err := c.Parse(fqn.MustParse("android.hardware.bar@1.0::IBar"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := len(a.ImportedASTs()); got < 2 {
		t.Errorf("imported %d ASTs, want at least foo's IFoo and types", got)
	}
}

func TestImportCycle(t *testing.T) {
	c, _ := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/a/1.0/IA.hal": `
package android.hardware.a@1.0;
import android.hardware.b@1.0::IB;
interface IA { ping2(); };
`,
		"hardware/interfaces/b/1.0/IB.hal": `
package android.hardware.b@1.0;
import android.hardware.a@1.0::IA;
interface IB { pong(); };
`,
	})

	_, err := c.Parse(fqn.MustParse("android.hardware.a@1.0::IA"))
	if !errors.Is(err, ErrImportCycle) {
		t.Fatalf("err = %v, want ErrImportCycle", err)
	}
}

func TestMissingFile(t *testing.T) {
	c, _ := newTestCoordinator(t, nil)
	_, err := c.Parse(fqn.MustParse("android.hardware.nope@1.0::INope"))
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("err = %v, want ErrMissingFile", err)
	}
}

func TestWrongPackageDeclaration(t *testing.T) {
	c, _ := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/foo/1.0/IFoo.hal": `
package android.hardware.other@1.0;
interface IFoo { f(); };
`,
	})
	_, err := c.Parse(fqn.MustParse("android.hardware.foo@1.0::IFoo"))
	if err == nil || !strings.Contains(err.Error(), "declares package") {
		t.Fatalf("err = %v", err)
	}
}

func TestHashEnforcement(t *testing.T) {
	files := map[string]string{
		"hardware/interfaces/foo/1.0/IFoo.hal": `
package android.hardware.foo@1.0;
interface IFoo { f(); };
`,
	}
	q := fqn.MustParse("android.hardware.foo@1.0::IFoo")

	t.Run("mismatch refused", func(t *testing.T) {
		c, root := newTestCoordinator(t, files)
		writeTree(t, root, map[string]string{
			"hardware/interfaces/current.txt": strings.Repeat("0", 64) + " " + q.String() + "\n",
		})
		_, err := c.ParseEnforce(q, EnforceFull)
		if !errors.Is(err, ErrHashMismatch) {
			t.Fatalf("err = %v, want ErrHashMismatch", err)
		}
	})

	t.Run("match accepted", func(t *testing.T) {
		c, root := newTestCoordinator(t, files)
		sum, err := hash.HexFile(filepath.Join(root, "hardware/interfaces/foo/1.0/IFoo.hal"))
		if err != nil {
			t.Fatal(err)
		}
		writeTree(t, root, map[string]string{
			"hardware/interfaces/current.txt": sum + " " + q.String() + "\n",
		})
		if _, err := c.ParseEnforce(q, EnforceFull); err != nil {
			t.Fatalf("Parse: %v", err)
		}
	})

	t.Run("no-hash mode skips", func(t *testing.T) {
		c, root := newTestCoordinator(t, files)
		writeTree(t, root, map[string]string{
			"hardware/interfaces/current.txt": strings.Repeat("0", 64) + " " + q.String() + "\n",
		})
		if _, err := c.ParseEnforce(q, EnforceNoHash); err != nil {
			t.Fatalf("Parse: %v", err)
		}
	})

	t.Run("unfrozen ignored", func(t *testing.T) {
		c, _ := newTestCoordinator(t, files)
		if _, err := c.ParseEnforce(q, EnforceFull); err != nil {
			t.Fatalf("Parse: %v", err)
		}
	})
}

func TestPackageRootResolution(t *testing.T) {
	c := New("", nil)
	c.AddDefaultPackageRoots()
	if err := c.AddPackageRoot("android.hardware.tests", "test/interfaces"); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		fqn      string
		wantPath string
	}{
		{"android.hardware.foo@1.0::IFoo", "hardware/interfaces/foo/1.0"},
		{"android.hardware.foo.sub@2.1::IBar", "hardware/interfaces/foo/sub/2.1"},
		// Longest prefix wins over android.hardware.
		{"android.hardware.tests.baz@1.0::IBaz", "test/interfaces/baz/1.0"},
		{"android.hidl.base@1.0::IBase", "system/libhidl/transport/base/1.0"},
	}
	for _, tc := range cases {
		got, err := c.PackagePath(fqn.MustParse(tc.fqn))
		if err != nil {
			t.Fatalf("PackagePath(%s): %v", tc.fqn, err)
		}
		if got != filepath.FromSlash(tc.wantPath) {
			t.Errorf("PackagePath(%s) = %s, want %s", tc.fqn, got, tc.wantPath)
		}
	}

	if _, err := c.PackagePath(fqn.MustParse("com.example@1.0::IX")); !errors.Is(err, ErrNoPackageRoot) {
		t.Errorf("uncovered package err = %v", err)
	}

	opt, err := c.PackageRootOption(fqn.MustParse("android.hardware.foo@1.0::IFoo"))
	if err != nil || opt != "android.hardware:hardware/interfaces" {
		t.Errorf("PackageRootOption = %q, %v", opt, err)
	}

	frag, err := c.ConvertPackageRootToPath(fqn.MustParse("android.hardware.foo@1.0::IFoo"))
	if err != nil || frag != "android/hardware/" {
		t.Errorf("ConvertPackageRootToPath = %q, %v", frag, err)
	}
}

func TestAppendPackageInterfacesSorted(t *testing.T) {
	c, _ := newTestCoordinator(t, map[string]string{
		"hardware/interfaces/foo/1.0/IZed.hal":  "package android.hardware.foo@1.0;\ninterface IZed {};\n",
		"hardware/interfaces/foo/1.0/IapI.hal":  "package android.hardware.foo@1.0;\ninterface IapI {};\n",
		"hardware/interfaces/foo/1.0/types.hal": "package android.hardware.foo@1.0;\nenum E : int32_t { A };\n",
	})
	got, err := c.AppendPackageInterfaces(fqn.MustParse("android.hardware.foo@1.0"), nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, q := range got {
		names = append(names, q.Name())
	}
	want := []string{"IZed", "IapI", "types"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "gen", "IFoo.h")
	if err := WriteAtomic(path, []byte("contents\n")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "contents\n" {
		t.Errorf("content = %q", data)
	}
	// No temp siblings survive.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("leftover files: %v", entries)
	}
}
