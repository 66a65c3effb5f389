// Package gen holds the output handlers behind the -L flag: native
// headers and sources, implementation boilerplate, managed bindings,
// exported constants, VTS schemas, build files, and the interface hash
// listing.
package gen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/coordinator"
	"github.com/hidl-lang/hidl/internal/format"
	"github.com/hidl-lang/hidl/internal/fqn"
	"github.com/hidl-lang/hidl/internal/hash"
)

// ErrNotJavaCompatible aborts managed-binding emission for ASTs using
// types the managed runtime cannot represent.
var ErrNotJavaCompatible = errors.New("not expressible in the managed binding")

// OutputMode describes what kind of output path a handler expects.
type OutputMode int

const (
	// NeedsDir handlers treat -o as a directory root.
	NeedsDir OutputMode = iota
	// NeedsFile handlers write one file at -o.
	NeedsFile
	// NeedsSrc handlers write into the source tree; -o defaults to the
	// root path.
	NeedsSrc
	// NotNeeded handlers ignore -o entirely.
	NotNeeded
)

// ValidateFunc vets the requested FQN for a handler before any parsing.
type ValidateFunc func(q fqn.FQN, lang string) error

// GenerateFunc runs one handler. self is the path of the running tool,
// echoed into generated build rules.
type GenerateFunc func(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error

// OutputHandler is one -L target.
type OutputHandler struct {
	Key         string
	Description string
	Mode        OutputMode
	Validate    ValidateFunc
	Generate    GenerateFunc
}

// Handlers returns the registry in the order shown by usage output.
func Handlers() []*OutputHandler {
	return registry
}

// Lookup finds a handler by its -L key.
func Lookup(key string) (*OutputHandler, bool) {
	for _, h := range registry {
		if h.Key == key {
			return h, true
		}
	}
	return nil, false
}

var registry = []*OutputHandler{
	{
		Key:         "check",
		Description: "Parses the interface to see if valid but doesn't write any files.",
		Mode:        NotNeeded,
		Validate:    validateForSource,
		Generate:    forEachSource(func(*ast.AST, *coordinator.Coordinator, string) error { return nil }),
	},
	{
		Key:         "c++",
		Description: "(internal) Generates C++ interface files for talking to HIDL interfaces.",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate: forEachSource(func(a *ast.AST, c *coordinator.Coordinator, out string) error {
			if err := generateCppHeaders(a, c, out); err != nil {
				return err
			}
			return generateCppSources(a, c, out)
		}),
	},
	{
		Key:         "c++-headers",
		Description: "(internal) Generates C++ headers for interface files for talking to HIDL interfaces.",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateCppHeaders),
	},
	{
		Key:         "c++-sources",
		Description: "(internal) Generates C++ sources for interface files for talking to HIDL interfaces.",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateCppSources),
	},
	{
		Key:         "export-header",
		Description: "Generates a header file from @export enumerations to help maintain legacy code.",
		Mode:        NeedsFile,
		Validate:    validateIsPackage,
		Generate:    generateExportHeaderForPackage(false),
	},
	{
		Key:         "c++-impl",
		Description: "Generates boilerplate implementation of a hidl interface in C++ (for convenience).",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate: forEachSource(func(a *ast.AST, c *coordinator.Coordinator, out string) error {
			if err := generateCppImplHeader(a, c, out); err != nil {
				return err
			}
			return generateCppImplSource(a, c, out)
		}),
	},
	{
		Key:         "c++-impl-headers",
		Description: "c++-impl but headers only",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateCppImplHeader),
	},
	{
		Key:         "c++-impl-sources",
		Description: "c++-impl but sources only",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateCppImplSource),
	},
	{
		Key:         "managed-binding",
		Description: "(internal) Generates a managed-language library for talking to HIDL interfaces.",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateManagedBinding),
	},
	{
		Key:         "managed-constants",
		Description: "(internal) Like export-header but for the managed runtime (created by -Lmakefile if @export exists).",
		Mode:        NeedsDir,
		Validate:    validateIsPackage,
		Generate:    generateExportHeaderForPackage(true),
	},
	{
		Key:         "vts",
		Description: "(internal) Generates vts proto files for use in vtsd.",
		Mode:        NeedsDir,
		Validate:    validateForSource,
		Generate:    forEachSource(generateVts),
	},
	{
		Key:         "makefile",
		Description: "(internal) Generates makefiles for -Lmanaged-binding and -Lmanaged-constants.",
		Mode:        NeedsSrc,
		Validate:    validateIsPackage,
		Generate:    generateMakefileForPackage,
	},
	{
		Key:         "androidbp",
		Description: "(internal) Generates Soong bp files for -Lc++-headers and -Lc++-sources.",
		Mode:        NeedsSrc,
		Validate:    validateIsPackage,
		Generate:    generateAndroidBpForPackage,
	},
	{
		Key:         "androidbp-impl",
		Description: "Generates boilerplate bp files for implementation created with -Lc++-impl.",
		Mode:        NeedsDir,
		Validate:    validateIsPackage,
		Generate:    generateAndroidBpImplForPackage,
	},
	{
		Key:         "hash",
		Description: "Prints hashes of interface in `current.txt` format to standard out.",
		Mode:        NotNeeded,
		Validate:    validateForSource,
		Generate: func(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
			return generateHashOutput(q, c, os.Stdout)
		},
	},
}

// validateForSource accepts a versioned package, optionally narrowed to
// one type name. Dotted names are rejected; they never denote a file.
func validateForSource(q fqn.FQN, lang string) error {
	if q.Package == "" || !q.HasVersion() {
		return fmt.Errorf("expecting fully qualified package@major.minor, got %q", q.String())
	}
	if name := q.Name(); name != "" && strings.Contains(name, ".") {
		return fmt.Errorf("%q: nested names cannot be generated directly", q.String())
	}
	return nil
}

// validateIsPackage accepts only a bare package root.
func validateIsPackage(q fqn.FQN, lang string) error {
	if q.Package == "" || !q.HasVersion() || q.Name() != "" {
		return fmt.Errorf("expecting package root package@major.minor, got %q", q.String())
	}
	return nil
}

// packageTargets expands q to the file-level FQNs it covers: itself for
// a single file, or every .hal in the package for a package root.
func packageTargets(q fqn.FQN, c *coordinator.Coordinator) ([]fqn.FQN, error) {
	if q.Name() != "" {
		return []fqn.FQN{q}, nil
	}
	return c.AppendPackageInterfaces(q, nil)
}

// forEachSource lifts a per-AST generator to a handler covering a file
// or a whole package.
func forEachSource(emit func(a *ast.AST, c *coordinator.Coordinator, outPath string) error) GenerateFunc {
	return func(q fqn.FQN, self string, c *coordinator.Coordinator, outPath string) error {
		targets, err := packageTargets(q, c)
		if err != nil {
			return err
		}
		for _, t := range targets {
			a, err := c.Parse(t)
			if err != nil {
				return err
			}
			if err := emit(a, c, outPath); err != nil {
				return err
			}
		}
		return nil
	}
}

// genFileDir is the directory generated artifacts for a's package live
// in, beneath outPath: <out>/<package-as-path>/<M.m>/.
func genFileDir(a *ast.AST, outPath string) string {
	pkg := a.Package()
	parts := append([]string{outPath}, pkg.PackageComponents()...)
	parts = append(parts, fmt.Sprintf("%d.%d", pkg.Major, pkg.Minor))
	return filepath.Join(parts...)
}

// writeFormatted renders through a Formatter into memory and commits
// atomically, so failed runs leave no partial file.
func writeFormatted(path string, emit func(out *format.Formatter) error) error {
	var buf bytes.Buffer
	out := format.New(&buf)
	if err := emit(out); err != nil {
		return err
	}
	if err := out.Err(); err != nil {
		return err
	}
	return coordinator.WriteAtomic(path, buf.Bytes())
}

// baseFileName is the artifact stem for an AST: the interface name, or
// "types" for a types-only file.
func baseFileName(a *ast.AST) string {
	if iface := a.GetInterface(); iface != nil {
		return iface.LocalName()
	}
	return "types"
}

// generateHashOutput prints `<hex> <fqn>` per file in package order.
func generateHashOutput(q fqn.FQN, c *coordinator.Coordinator, w io.Writer) error {
	targets, err := packageTargets(q, c)
	if err != nil {
		return err
	}
	for _, t := range targets {
		a, err := c.Parse(t)
		if err != nil {
			return err
		}
		sum, err := hash.HexFile(a.Path())
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s %s\n", sum, t.String()); err != nil {
			return err
		}
	}
	return nil
}
