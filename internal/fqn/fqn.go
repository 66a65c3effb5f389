// Package fqn implements fully-qualified HIDL names of the form
// package@major.minor::Type.Sub.
package fqn

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedName is wrapped by all parse failures in this package.
var ErrMalformedName = errors.New("malformed fully-qualified name")

// FQN is a parsed fully-qualified name. The zero value is invalid.
//
// Valid shapes:
//
//	package@M.m            package root
//	package@M.m::IFoo      fully qualified interface
//	package@M.m::types.Foo fully qualified nested type
//	IFoo, types.Foo        partial (no package/version), lookup keys only
type FQN struct {
	Package string // dot separated, may be empty for partial names
	Major   int
	Minor   int
	name    string // dot separated type path, may be empty

	hasVersion bool
}

// New builds an FQN from parts. Use Parse for text.
func New(pkg string, major, minor int, name string) FQN {
	return FQN{Package: pkg, Major: major, Minor: minor, name: name, hasVersion: true}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func isDottedIdentifier(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if !isIdentifier(part) {
			return false
		}
	}
	return true
}

// Parse parses a complete name: the package and version must be present.
func Parse(text string) (FQN, error) {
	q, err := ParsePartial(text)
	if err != nil {
		return FQN{}, err
	}
	if q.Package == "" || !q.hasVersion {
		return FQN{}, fmt.Errorf("%w: %q: missing package or version", ErrMalformedName, text)
	}
	return q, nil
}

// ParsePartial parses a name that may omit the package and version, as
// found in .hal source references.
func ParsePartial(text string) (FQN, error) {
	var q FQN

	rest := text
	if at := strings.IndexByte(rest, '@'); at >= 0 {
		q.Package = rest[:at]
		rest = rest[at+1:]
		if q.Package != "" && !isDottedIdentifier(q.Package) {
			return FQN{}, fmt.Errorf("%w: %q: bad package", ErrMalformedName, text)
		}

		verEnd := strings.Index(rest, "::")
		ver := rest
		if verEnd >= 0 {
			ver = rest[:verEnd]
			rest = rest[verEnd+2:]
		} else {
			rest = ""
		}

		dot := strings.IndexByte(ver, '.')
		if dot < 0 {
			return FQN{}, fmt.Errorf("%w: %q: bad version", ErrMalformedName, text)
		}
		var err error
		if q.Major, err = strconv.Atoi(ver[:dot]); err != nil || q.Major < 0 {
			return FQN{}, fmt.Errorf("%w: %q: bad major version", ErrMalformedName, text)
		}
		if q.Minor, err = strconv.Atoi(ver[dot+1:]); err != nil || q.Minor < 0 {
			return FQN{}, fmt.Errorf("%w: %q: bad minor version", ErrMalformedName, text)
		}
		q.hasVersion = true

		if verEnd >= 0 && rest == "" {
			return FQN{}, fmt.Errorf("%w: %q: empty type path", ErrMalformedName, text)
		}
	}

	if rest != "" {
		if !isDottedIdentifier(rest) {
			return FQN{}, fmt.Errorf("%w: %q: bad type path", ErrMalformedName, text)
		}
		q.name = rest
	}

	if q.Package == "" && !q.hasVersion && q.name == "" {
		return FQN{}, fmt.Errorf("%w: %q", ErrMalformedName, text)
	}
	return q, nil
}

// MustParse is a test helper; it panics on malformed input.
func MustParse(text string) FQN {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

// Name returns the dot-joined type path ("IFoo", "types.Foo"), empty for
// package roots.
func (q FQN) Name() string { return q.name }

// IsValid reports whether q was produced by a successful parse or New.
func (q FQN) IsValid() bool { return q.Package != "" || q.hasVersion || q.name != "" }

// HasVersion reports whether the @major.minor part is present.
func (q FQN) HasVersion() bool { return q.hasVersion }

// IsFullyQualified reports whether package, version and type path are all
// present.
func (q FQN) IsFullyQualified() bool {
	return q.Package != "" && q.hasVersion && q.name != ""
}

// IsPackageRoot reports whether q names a package and version only.
func (q FQN) IsPackageRoot() bool {
	return q.Package != "" && q.hasVersion && q.name == ""
}

// Version renders "major.minor".
func (q FQN) Version() string {
	return fmt.Sprintf("%d.%d", q.Major, q.Minor)
}

// String renders the canonical form. Parse(q.String()) == q for valid q.
func (q FQN) String() string {
	var sb strings.Builder
	sb.WriteString(q.Package)
	if q.hasVersion {
		sb.WriteByte('@')
		sb.WriteString(q.Version())
	}
	if q.name != "" {
		if q.Package != "" || q.hasVersion {
			sb.WriteString("::")
		}
		sb.WriteString(q.name)
	}
	return sb.String()
}

// TypesForPackage returns the name of the implicit types.hal unit of q's
// package.
func (q FQN) TypesForPackage() FQN {
	return FQN{Package: q.Package, Major: q.Major, Minor: q.Minor, name: "types", hasVersion: q.hasVersion}
}

// PackageRoot strips the type path.
func (q FQN) PackageRoot() FQN {
	return FQN{Package: q.Package, Major: q.Major, Minor: q.Minor, hasVersion: q.hasVersion}
}

// WithName returns q with the type path replaced.
func (q FQN) WithName(name string) FQN {
	r := q
	r.name = name
	return r
}

// InPackage reports whether q's package equals prefix or is nested under
// it ("android.hardware.foo" is in "android.hardware").
func (q FQN) InPackage(prefix string) bool {
	return q.Package == prefix || strings.HasPrefix(q.Package, prefix+".")
}

// Equal is structural, case-sensitive equality.
func (q FQN) Equal(o FQN) bool { return q == o }

// Less orders by package, then major, then minor, then type path.
func (q FQN) Less(o FQN) bool {
	if q.Package != o.Package {
		return q.Package < o.Package
	}
	if q.Major != o.Major {
		return q.Major < o.Major
	}
	if q.Minor != o.Minor {
		return q.Minor < o.Minor
	}
	return q.name < o.name
}

// PackageComponents splits the package on dots.
func (q FQN) PackageComponents() []string {
	if q.Package == "" {
		return nil
	}
	return strings.Split(q.Package, ".")
}

// NameComponents splits the type path on dots.
func (q FQN) NameComponents() []string {
	if q.name == "" {
		return nil
	}
	return strings.Split(q.name, ".")
}

// SanitizedVersion renders "V1_0", the form used in Java packages and
// generated identifiers.
func (q FQN) SanitizedVersion() string {
	return fmt.Sprintf("V%d_%d", q.Major, q.Minor)
}

// JavaPackage is the package of generated Java classes, e.g.
// "android.hardware.foo.V1_0".
func (q FQN) JavaPackage() string {
	return q.Package + "." + q.SanitizedVersion()
}

// TokenName joins package components, sanitized version and name
// components with underscores; callers uppercase it for header guards.
func (q FQN) TokenName() string {
	parts := q.PackageComponents()
	parts = append(parts, q.SanitizedVersion())
	parts = append(parts, q.NameComponents()...)
	return strings.Join(parts, "_")
}

// CppNamespace renders the nested C++ namespace of the package, e.g.
// "::android::hardware::foo::V1_0".
func (q FQN) CppNamespace() string {
	var sb strings.Builder
	for _, c := range q.PackageComponents() {
		sb.WriteString("::")
		sb.WriteString(c)
	}
	sb.WriteString("::")
	sb.WriteString(q.SanitizedVersion())
	return sb.String()
}

// CppName renders the fully scoped C++ name of the type.
func (q FQN) CppName() string {
	return q.CppNamespace() + "::" + strings.Join(q.NameComponents(), "::")
}

// InterfaceBaseName strips the leading I from an interface name:
// IFoo -> Foo.
func (q FQN) InterfaceBaseName() string {
	n := q.name
	if strings.HasPrefix(n, "I") {
		return n[1:]
	}
	return n
}

// Generated class names for an interface IFoo.
func (q FQN) InterfaceHwName() string          { return "IHw" + q.InterfaceBaseName() }
func (q FQN) InterfaceProxyName() string       { return "BpHw" + q.InterfaceBaseName() }
func (q FQN) InterfaceStubName() string        { return "BnHw" + q.InterfaceBaseName() }
func (q FQN) InterfacePassthroughName() string { return "Bs" + q.InterfaceBaseName() }
