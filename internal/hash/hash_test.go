package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestFileMatchesContentDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "IFoo.hal")
	contents := []byte("package android.hardware.foo@1.0;\n\ninterface IFoo {\n};\n")
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		t.Fatal(err)
	}

	sum, err := File(path)
	if err != nil {
		t.Fatalf("File: %v", err)
	}

	want := sha256.Sum256(contents)
	if sum != want {
		t.Errorf("digest mismatch: got %x, want %x", sum, want)
	}
	if got := Hex(sum); got != hex.EncodeToString(want[:]) {
		t.Errorf("Hex = %q", got)
	}
}

func TestFilesEqualIffDigestsEqual(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.hal")
	b := filepath.Join(dir, "b.hal")
	c := filepath.Join(dir, "c.hal")
	os.WriteFile(a, []byte("same"), 0o644)
	os.WriteFile(b, []byte("same"), 0o644)
	os.WriteFile(c, []byte("different"), 0o644)

	ha, _ := HexFile(a)
	hb, _ := HexFile(b)
	hc, _ := HexFile(c)

	if ha != hb {
		t.Error("identical contents must hash identically")
	}
	if ha == hc {
		t.Error("different contents must hash differently")
	}
}

func TestReadBaseline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current.txt")
	digest := Hex(sha256.Sum256([]byte("x")))
	other := Hex(sha256.Sum256([]byte("y")))
	contents := "# HALs released in Android O\n\n" +
		digest + " android.hardware.foo@1.0::IFoo\n" +
		other + " android.hardware.foo@1.0::IFoo # refrozen\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := ReadBaseline(path)
	if err != nil {
		t.Fatalf("ReadBaseline: %v", err)
	}

	got := b.HashesFor("android.hardware.foo@1.0::IFoo")
	if len(got) != 2 || got[0] != digest || got[1] != other {
		t.Errorf("HashesFor = %v", got)
	}
	if b.Frozen("android.hardware.bar@1.0::IBar") {
		t.Error("unlisted interface must not be frozen")
	}
}

func TestReadBaselineMissingFile(t *testing.T) {
	b, err := ReadBaseline(filepath.Join(t.TempDir(), "current.txt"))
	if err != nil {
		t.Fatalf("missing baseline must not be an error: %v", err)
	}
	if b.Frozen("anything") {
		t.Error("empty baseline freezes nothing")
	}
}

func TestReadBaselineRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "current.txt")
	os.WriteFile(path, []byte("nothex android.hardware.foo@1.0::IFoo\n"), 0o644)

	if _, err := ReadBaseline(path); err == nil {
		t.Error("expected parse error")
	}
}
