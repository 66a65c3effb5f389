package ast

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hidl-lang/hidl/internal/fqn"
)

// ErrUnresolvedName is wrapped by failed type lookups.
var ErrUnresolvedName = errors.New("unresolved name")

// AST is one parsed .hal file. The parser constructs it empty and mutates
// it; the coordinator resolves imports; emitters treat it as frozen.
type AST struct {
	path string
	pkg  fqn.FQN

	rootScope *Scope

	// imports in declaration order, as written (package roots or single
	// types).
	imports []fqn.FQN

	// importedASTs in resolution order, following imports.
	importedASTs []*AST

	// importedNames is the subset of imported types actually referenced.
	importedNames map[string]fqn.FQN

	// definedTypes keyed by full name string.
	definedTypes map[string]NamedType
	definedOrder []NamedType

	syntaxErrors int

	// references created during parsing, resolved once imports are
	// linked.
	pending       []pendingRef
	pendingEnums  []pendingEnum
	pendingArrays []pendingArray

	javaCompat *bool
}

type pendingRef struct {
	ref   *NamedReference
	scope *Scope
}

type pendingEnum struct {
	enum  *EnumType
	scope *Scope
}

type pendingArray struct {
	arr   *ArrayType
	scope *Scope
}

// New returns an empty AST for the file at path.
func New(path string) *AST {
	return &AST{
		path:          path,
		rootScope:     NewRootScope(),
		importedNames: make(map[string]fqn.FQN),
		definedTypes:  make(map[string]NamedType),
	}
}

// Path returns the source file path.
func (a *AST) Path() string { return a.path }

// Package returns the package@version of the file.
func (a *AST) Package() fqn.FQN { return a.pkg }

// SetPackage records the package declaration; exactly one is allowed and
// it must carry a version.
func (a *AST) SetPackage(pkg fqn.FQN) error {
	if a.pkg.IsValid() {
		return fmt.Errorf("%s: duplicate package declaration", a.path)
	}
	if !pkg.IsPackageRoot() {
		return fmt.Errorf("%s: package declaration must be package@major.minor", a.path)
	}
	a.pkg = pkg
	return nil
}

// RootScope returns the file's top-level scope.
func (a *AST) RootScope() *Scope { return a.rootScope }

// AddImport records an import declaration (syntactic; resolution happens
// in the coordinator).
func (a *AST) AddImport(q fqn.FQN) {
	a.imports = append(a.imports, q)
}

// Imports returns the declared imports in order.
func (a *AST) Imports() []fqn.FQN { return a.imports }

// AddImportedAST links a transitively parsed dependency.
func (a *AST) AddImportedAST(dep *AST) {
	for _, have := range a.importedASTs {
		if have == dep {
			return
		}
	}
	a.importedASTs = append(a.importedASTs, dep)
}

// ImportedASTs returns dependencies in resolution order.
func (a *AST) ImportedASTs() []*AST { return a.importedASTs }

// AddScopedType declares t inside scope and registers its full name.
func (a *AST) AddScopedType(t NamedType, scope *Scope) error {
	if err := scope.Add(t); err != nil {
		return err
	}
	full := t.FQName().String()
	if _, dup := a.definedTypes[full]; dup {
		return fmt.Errorf("redefinition of %s", full)
	}
	a.definedTypes[full] = t
	a.definedOrder = append(a.definedOrder, t)
	return nil
}

// DefinedTypes returns all types defined in this file, declaration order.
func (a *AST) DefinedTypes() []NamedType { return a.definedOrder }

// LookupType resolves q from within scope:
//
//  1. partial names walk the scope chain, innermost first;
//  2. names in the AST's own package search the defined-type map;
//  3. otherwise imported ASTs are searched in import order, and the first
//     hit is recorded as an actually-used import;
//  4. anything else is ErrUnresolvedName.
func (a *AST) LookupType(q fqn.FQN, scope *Scope) (NamedType, error) {
	if q.Package == "" && !q.HasVersion() {
		if scope == nil {
			scope = a.rootScope
		}
		if t, ok := scope.Lookup(q.Name()); ok {
			return t, nil
		}
		// A partial name may still refer to a type from an imported
		// package by its unqualified name.
		if t, from, ok := a.lookupInImports(q.Name()); ok {
			a.importedNames[from.String()] = from
			return t, nil
		}
		return nil, fmt.Errorf("%w: %q in %s", ErrUnresolvedName, q.String(), a.path)
	}

	full := q
	if full.Package == "" {
		full.Package = a.pkg.Package
	}
	if !full.HasVersion() {
		full = fqn.New(full.Package, a.pkg.Major, a.pkg.Minor, full.Name())
	}

	if full.PackageRoot().Equal(a.pkg) {
		if t, ok := a.definedTypes[full.String()]; ok {
			return t, nil
		}
		return nil, fmt.Errorf("%w: %q in %s", ErrUnresolvedName, q.String(), a.path)
	}

	for _, dep := range a.importedASTs {
		if t, ok := dep.definedTypes[full.String()]; ok {
			a.importedNames[full.String()] = full
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrUnresolvedName, q.String(), a.path)
}

func (a *AST) lookupInImports(name string) (NamedType, fqn.FQN, bool) {
	for _, dep := range a.importedASTs {
		want := dep.Package().WithName(name)
		if t, ok := dep.definedTypes[want.String()]; ok {
			return t, want, true
		}
	}
	return nil, fqn.FQN{}, false
}

// RegisterReference queues an unresolved reference created at parse time
// together with the scope it appeared in.
func (a *AST) RegisterReference(ref *NamedReference, scope *Scope) {
	a.pending = append(a.pending, pendingRef{ref: ref, scope: scope})
}

// RegisterEnum queues an enum whose value expressions must be evaluated
// once imports are linked.
func (a *AST) RegisterEnum(e *EnumType, scope *Scope) {
	a.pendingEnums = append(a.pendingEnums, pendingEnum{enum: e, scope: scope})
}

// RegisterArray queues an array whose dimension expressions must be
// evaluated once imports are linked.
func (a *AST) RegisterArray(arr *ArrayType, scope *Scope) {
	a.pendingArrays = append(a.pendingArrays, pendingArray{arr: arr, scope: scope})
}

// ResolveReferences binds every pending reference and evaluates enum
// value expressions. It must run after the coordinator has linked all
// imported ASTs; the first failure aborts.
func (a *AST) ResolveReferences() error {
	for _, p := range a.pending {
		if p.ref.Resolved() {
			continue
		}
		t, err := a.LookupType(p.ref.Ref, p.scope)
		if err != nil {
			return err
		}
		p.ref.Resolve(t, t.FQName())
	}
	a.pending = nil

	for _, p := range a.pendingEnums {
		// An enum extending another enum continues its numbering.
		if parent, ok := underlyingEnum(p.enum.Storage); ok {
			p.enum.Parent = parent
		}
		if err := p.enum.ResolveValues(a.enumValueResolver(p.enum, p.scope)); err != nil {
			return fmt.Errorf("%s: %w", a.path, err)
		}
	}
	a.pendingEnums = nil

	for _, p := range a.pendingArrays {
		if err := p.arr.ResolveDims(a.enumValueResolver(nil, p.scope)); err != nil {
			return fmt.Errorf("%s: %w", a.path, err)
		}
	}
	a.pendingArrays = nil
	return nil
}

// enumValueResolver resolves value references inside enum's expressions.
// A bare identifier names an earlier value of the same enum (or of an
// extended parent); dotted and qualified names resolve like any other
// enum value reference.
func (a *AST) enumValueResolver(enum *EnumType, scope *Scope) ValueResolver {
	return func(ref string) (int64, error) {
		if enum != nil && !strings.ContainsAny(ref, ".@:") {
			if v, ok := enum.LookupValue(ref); ok {
				if !v.Resolved() {
					return 0, fmt.Errorf("%w: %q used before its declaration", ErrUnresolvedName, ref)
				}
				return v.Value, nil
			}
		}
		q, err := fqn.ParsePartial(ref)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnresolvedName, ref)
		}
		v, err := a.LookupEnumValue(q, scope)
		if err != nil {
			return 0, err
		}
		if !v.Resolved() {
			return 0, fmt.Errorf("%w: %q used before its declaration", ErrUnresolvedName, ref)
		}
		return v.Value, nil
	}
}

// LookupEnumValue resolves "Type.VALUE" (optionally fully qualified) to a
// declared enum value.
func (a *AST) LookupEnumValue(q fqn.FQN, scope *Scope) (*EnumValue, error) {
	comps := q.NameComponents()
	if len(comps) < 2 {
		return nil, fmt.Errorf("%w: %q is not an enum value reference", ErrUnresolvedName, q.String())
	}
	valueName := comps[len(comps)-1]
	typePart := q.WithName(joinDotted(comps[:len(comps)-1]))

	t, err := a.LookupType(typePart, scope)
	if err != nil {
		return nil, err
	}
	enum, ok := underlyingEnum(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not name an enum", ErrUnresolvedName, typePart.String())
	}
	v, ok := enum.LookupValue(valueName)
	if !ok {
		return nil, fmt.Errorf("%w: enum %s has no value %q", ErrUnresolvedName,
			enum.FQName().String(), valueName)
	}
	return v, nil
}

func underlyingEnum(t Type) (*EnumType, bool) {
	switch v := t.(type) {
	case *EnumType:
		return v, true
	case *TypeDef:
		return underlyingEnum(v.Referenced)
	case *NamedReference:
		if v.Resolved() {
			return underlyingEnum(v.Target())
		}
	}
	return nil, false
}

func joinDotted(parts []string) string {
	out := parts[0]
	for _, p := range parts[1:] {
		out += "." + p
	}
	return out
}

// ImportedNames returns the FQNs actually referenced through imports,
// sorted for deterministic emission.
func (a *AST) ImportedNames() []fqn.FQN {
	out := make([]fqn.FQN, 0, len(a.importedNames))
	for _, q := range a.importedNames {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// AllImportedNames is the transitive closure of actually-used imports.
func (a *AST) AllImportedNames() []fqn.FQN {
	seen := make(map[string]fqn.FQN)
	var walk func(*AST)
	visited := make(map[*AST]bool)
	walk = func(cur *AST) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		for k, q := range cur.importedNames {
			seen[k] = q
		}
		for _, dep := range cur.importedASTs {
			walk(dep)
		}
	}
	walk(a)

	out := make([]fqn.FQN, 0, len(seen))
	for _, q := range seen {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ImportedPackages collects the distinct package roots of resolved
// imports.
func (a *AST) ImportedPackages() []fqn.FQN {
	seen := make(map[string]fqn.FQN)
	for _, dep := range a.importedASTs {
		root := dep.Package()
		seen[root.String()] = root
	}
	out := make([]fqn.FQN, 0, len(seen))
	for _, q := range seen {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// ImportedPackagesHierarchy is ImportedPackages over the transitive
// import closure.
func (a *AST) ImportedPackagesHierarchy() []fqn.FQN {
	seen := make(map[string]fqn.FQN)
	visited := make(map[*AST]bool)
	var walk func(*AST)
	walk = func(cur *AST) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		for _, dep := range cur.importedASTs {
			root := dep.Package()
			seen[root.String()] = root
			walk(dep)
		}
	}
	walk(a)

	out := make([]fqn.FQN, 0, len(seen))
	for _, q := range seen {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// GetInterface returns the single interface declared in this file, nil
// for a types-only file.
func (a *AST) GetInterface() *Interface {
	ifaces := a.rootScope.Interfaces()
	if len(ifaces) == 1 {
		return ifaces[0]
	}
	return nil
}

// IsInterface reports whether the file declares an interface.
func (a *AST) IsInterface() bool { return a.GetInterface() != nil }

// ContainsInterfaces reports whether any interface is declared.
func (a *AST) ContainsInterfaces() bool { return len(a.rootScope.Interfaces()) > 0 }

// BaseName is the interface base name (IFoo -> Foo) or "types".
func (a *AST) BaseName() string {
	if iface := a.GetInterface(); iface != nil {
		return iface.FQName().InterfaceBaseName()
	}
	return "types"
}

// AddSyntaxError is called by the parser; any non-zero count blocks
// emission.
func (a *AST) AddSyntaxError() { a.syntaxErrors++ }

// SyntaxErrors returns the accumulated parse error count.
func (a *AST) SyntaxErrors() int { return a.syntaxErrors }

// IsJavaCompatible walks the defined types and declared interfaces,
// short-circuiting on the first incompatible one. The result is cached.
func (a *AST) IsJavaCompatible() bool {
	if a.javaCompat != nil {
		return *a.javaCompat
	}
	ok := true
	for _, t := range a.definedOrder {
		if iface, isIface := t.(*Interface); isIface {
			if !iface.DeclaredJavaCompatible() {
				ok = false
				break
			}
			continue
		}
		if !t.IsJavaCompatible() {
			ok = false
			break
		}
	}
	a.javaCompat = &ok
	return ok
}

// FindJavaIncompatibility names the first declaration (as Type.field
// where applicable) that blocks managed-binding emission, or "".
func (a *AST) FindJavaIncompatibility() string {
	for _, t := range a.definedOrder {
		switch v := t.(type) {
		case *Interface:
			if !v.DeclaredJavaCompatible() {
				return v.LocalName()
			}
		case *CompoundType:
			if s := v.FindJavaIncompatibleField(); s != "" {
				return s
			}
		default:
			if !t.IsJavaCompatible() {
				return t.LocalName()
			}
		}
	}
	return ""
}

// AppendExportedTypes collects @export-annotated enums in declaration
// order.
func (a *AST) AppendExportedTypes(out *[]*EnumType) {
	for _, t := range a.definedOrder {
		if enum, ok := t.(*EnumType); ok && enum.Exported() {
			*out = append(*out, enum)
		}
	}
}
