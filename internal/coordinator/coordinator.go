// Package coordinator resolves fully qualified names to interface files
// on disk, parses them transitively, and enforces package-level
// invariants: one package declaration per file, acyclic imports, and
// frozen-interface hashes against the current.txt baseline.
package coordinator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hidl-lang/hidl/internal/ast"
	"github.com/hidl-lang/hidl/internal/cli"
	"github.com/hidl-lang/hidl/internal/fqn"
	"github.com/hidl-lang/hidl/internal/hash"
	"github.com/hidl-lang/hidl/internal/parser"
)

var (
	// ErrImportCycle is returned when the import graph has a cycle.
	ErrImportCycle = errors.New("import cycle")
	// ErrHashMismatch is returned when a frozen interface's content does
	// not match its recorded baseline hash.
	ErrHashMismatch = errors.New("interface hash mismatch")
	// ErrMissingFile is returned when no .hal file exists for an FQN.
	ErrMissingFile = errors.New("no such interface file")
	// ErrNoPackageRoot is returned when no configured root covers a
	// package.
	ErrNoPackageRoot = errors.New("no package root configured for package")
	// ErrParse is returned when a file had syntax errors; diagnostics
	// have already been printed.
	ErrParse = errors.New("syntax errors")
)

// Enforce selects how strictly frozen interfaces are checked.
type Enforce int

const (
	// EnforceFull checks file hashes against the current.txt baseline.
	EnforceFull Enforce = iota
	// EnforceNoHash runs all checks except the baseline hash.
	EnforceNoHash
	// EnforceNone skips restrictions; used when generating the baseline
	// itself.
	EnforceNone
)

type packageRoot struct {
	prefix string // "android.hardware"
	path   string // "hardware/interfaces"
}

// Coordinator owns the package-root registry and the AST cache. It is
// single-threaded; callers must not share one across goroutines.
type Coordinator struct {
	rootPath string // filesystem prefix, typically the build top
	roots    []packageRoot

	cache   map[string]*ast.AST // keyed by file-level FQN string
	enforce Enforce
	log     *cli.Logger
}

// New creates a Coordinator rooted at rootPath (usually the checkout
// top or the -p flag value).
func New(rootPath string, log *cli.Logger) *Coordinator {
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	return &Coordinator{
		rootPath: rootPath,
		cache:    make(map[string]*ast.AST),
		log:      log,
	}
}

// SetEnforce selects the enforcement mode for subsequent parses.
func (c *Coordinator) SetEnforce(e Enforce) { c.enforce = e }

// AddPackageRoot registers a package prefix to directory mapping, the
// -r package.root:path option.
func (c *Coordinator) AddPackageRoot(prefix, path string) error {
	if prefix == "" || path == "" {
		return fmt.Errorf("package root needs both prefix and path")
	}
	for _, part := range strings.Split(prefix, ".") {
		if part == "" {
			return fmt.Errorf("malformed package root prefix %q", prefix)
		}
	}
	for _, r := range c.roots {
		if r.prefix == prefix {
			return fmt.Errorf("duplicate package root %q", prefix)
		}
	}
	c.roots = append(c.roots, packageRoot{prefix: prefix, path: path})
	return nil
}

// AddDefaultPackageRoots registers the conventional roots used when no
// -r options are given.
func (c *Coordinator) AddDefaultPackageRoots() {
	defaults := []packageRoot{
		{"android.hardware", "hardware/interfaces"},
		{"android.hidl", "system/libhidl/transport"},
		{"android.frameworks", "frameworks/hardware/interfaces"},
		{"android.system", "system/hardware/interfaces"},
	}
	for _, d := range defaults {
		_ = c.AddPackageRoot(d.prefix, d.path)
	}
}

// findRoot picks the longest prefix-matching root for q's package.
func (c *Coordinator) findRoot(q fqn.FQN) (packageRoot, error) {
	best := packageRoot{}
	found := false
	pkg := q.Package
	for _, r := range c.roots {
		if pkg == r.prefix || strings.HasPrefix(pkg, r.prefix+".") {
			if !found || len(r.prefix) > len(best.prefix) {
				best = r
				found = true
			}
		}
	}
	if !found {
		return packageRoot{}, fmt.Errorf("%w: %s", ErrNoPackageRoot, q.Package)
	}
	return best, nil
}

// PackageRootOption reconstructs the -r option that covers q, in
// prefix:path form.
func (c *Coordinator) PackageRootOption(q fqn.FQN) (string, error) {
	r, err := c.findRoot(q)
	if err != nil {
		return "", err
	}
	return r.prefix + ":" + r.path, nil
}

// ConvertPackageRootToPath returns the matching root prefix as a
// slash-separated directory fragment with a trailing slash.
func (c *Coordinator) ConvertPackageRootToPath(q fqn.FQN) (string, error) {
	r, err := c.findRoot(q)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(r.prefix, ".", "/") + "/", nil
}

// PackagePath returns the directory of q's package relative to the
// coordinator root: <root-path>/<package-subpath>/<M.m>/.
func (c *Coordinator) PackagePath(q fqn.FQN) (string, error) {
	r, err := c.findRoot(q)
	if err != nil {
		return "", err
	}
	sub := strings.TrimPrefix(q.Package, r.prefix)
	sub = strings.TrimPrefix(sub, ".")
	parts := []string{r.path}
	if sub != "" {
		parts = append(parts, strings.Split(sub, ".")...)
	}
	parts = append(parts, fmt.Sprintf("%d.%d", q.Major, q.Minor))
	return filepath.Join(parts...), nil
}

// absolutePackagePath joins the coordinator root with PackagePath.
func (c *Coordinator) absolutePackagePath(q fqn.FQN) (string, error) {
	rel, err := c.PackagePath(q)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.rootPath, rel), nil
}

// filePathFor maps a file-level FQN to its on-disk .hal path.
func (c *Coordinator) filePathFor(q fqn.FQN) (string, error) {
	dir, err := c.absolutePackagePath(q)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, q.Name()+".hal"), nil
}

// fileFQN maps an imported name to the FQN of the file defining it.
// Interface names live in their own file; everything else lives in
// types.hal.
func fileFQN(q fqn.FQN) fqn.FQN {
	name := q.Name()
	if name == "" {
		return q
	}
	first := strings.SplitN(name, ".", 2)[0]
	if strings.HasPrefix(first, "I") && len(first) > 1 && first[1] >= 'A' && first[1] <= 'Z' {
		return q.WithName(first)
	}
	return q.WithName("types")
}

// Parse resolves q to one .hal file, parses it and its transitive
// imports, and returns the resolved AST. Results are cached.
func (c *Coordinator) Parse(q fqn.FQN) (*ast.AST, error) {
	return c.ParseEnforce(q, c.enforce)
}

// ParseEnforce is Parse with an explicit enforcement mode.
func (c *Coordinator) ParseEnforce(q fqn.FQN, enforce Enforce) (*ast.AST, error) {
	return c.parse(q, map[string]bool{}, enforce)
}

func (c *Coordinator) parse(q fqn.FQN, visited map[string]bool, enforce Enforce) (*ast.AST, error) {
	target := fileFQN(q)
	key := target.String()

	if a, ok := c.cache[key]; ok {
		return a, nil
	}
	if visited[key] {
		return nil, fmt.Errorf("%w involving %s", ErrImportCycle, key)
	}
	visited[key] = true

	path, err := c.filePathFor(target)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s (wanted for %s)", ErrMissingFile, path, q.String())
		}
		return nil, err
	}
	c.log.Debug("parsing %s", path)

	a, errs := parser.Parse(path, string(data))
	for _, e := range errs {
		c.log.Error("%v", e)
	}
	if len(errs) > 0 || a.SyntaxErrors() > 0 {
		return nil, fmt.Errorf("%w in %s", ErrParse, path)
	}

	if !a.Package().Equal(target.PackageRoot()) {
		return nil, fmt.Errorf("%s declares package %s, expected %s",
			path, a.Package().String(), target.PackageRoot().String())
	}
	if target.Name() == "types" {
		if a.ContainsInterfaces() {
			return nil, fmt.Errorf("%s: types.hal must not declare interfaces", path)
		}
	} else if iface := a.GetInterface(); iface == nil || iface.LocalName() != target.Name() {
		return nil, fmt.Errorf("%s must declare interface %s", path, target.Name())
	}

	if enforce == EnforceFull {
		if err := c.enforceHashes(target, path); err != nil {
			return nil, err
		}
	}

	// Interfaces extend IBase implicitly, without an import declaration.
	if a.ContainsInterfaces() && !a.Package().Equal(ast.IBaseFQN.PackageRoot()) {
		base, err := c.parse(ast.IBaseFQN, visited, enforce)
		if err != nil {
			return nil, err
		}
		a.AddImportedAST(base)
	}

	for _, imp := range a.Imports() {
		deps, err := c.importTargets(imp)
		if err != nil {
			return nil, err
		}
		for _, dep := range deps {
			depAST, err := c.parse(dep, visited, enforce)
			if err != nil {
				return nil, err
			}
			a.AddImportedAST(depAST)
			// Re-exported dependencies stay visible one level down.
			for _, transitive := range depAST.ImportedASTs() {
				a.AddImportedAST(transitive)
			}
		}
	}

	if err := a.ResolveReferences(); err != nil {
		return nil, err
	}

	delete(visited, key)
	c.cache[key] = a
	return a, nil
}

// importTargets expands one import declaration to the file FQNs it
// brings in. A whole-package import pulls every interface file plus
// types.hal when present.
func (c *Coordinator) importTargets(imp fqn.FQN) ([]fqn.FQN, error) {
	if imp.Name() != "" {
		return []fqn.FQN{fileFQN(imp)}, nil
	}
	names, err := c.AppendPackageInterfaces(imp, nil)
	if err != nil {
		return nil, err
	}
	return names, nil
}

// AppendPackageInterfaces appends the FQN of every .hal file in the
// package directory to out, sorted lexicographically for determinism.
func (c *Coordinator) AppendPackageInterfaces(pkg fqn.FQN, out []fqn.FQN) ([]fqn.FQN, error) {
	dir, err := c.absolutePackagePath(pkg)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: package directory %s", ErrMissingFile, dir)
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".hal") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".hal"))
	}
	sort.Strings(names)
	for _, n := range names {
		out = append(out, pkg.WithName(n))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: package %s has no .hal files", ErrMissingFile, pkg.String())
	}
	return out, nil
}

// enforceHashes refuses to parse a frozen interface whose content hash
// differs from every recorded baseline entry.
func (c *Coordinator) enforceHashes(target fqn.FQN, path string) error {
	r, err := c.findRoot(target)
	if err != nil {
		return err
	}
	baseline, err := hash.ReadBaseline(filepath.Join(c.rootPath, r.path, "current.txt"))
	if err != nil {
		return err
	}
	if !baseline.Frozen(target.String()) {
		return nil
	}
	got, err := hash.HexFile(path)
	if err != nil {
		return err
	}
	for _, want := range baseline.HashesFor(target.String()) {
		if want == got {
			return nil
		}
	}
	return fmt.Errorf("%w: %s was frozen, but %s no longer matches current.txt",
		ErrHashMismatch, target.String(), path)
}

// MakeParentHierarchy creates every missing directory above path.
func MakeParentHierarchy(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// WriteAtomic writes data to path through a temporary sibling file so a
// failed run never leaves a partial output behind.
func WriteAtomic(path string, data []byte) error {
	if err := MakeParentHierarchy(path); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
