package ast

import (
	"fmt"
	"strings"
)

// Scope is a container of named types. Scopes form a tree: the AST owns
// the root, and struct/union/interface declarations open nested scopes.
type Scope struct {
	name   string
	parent *Scope
	types  []NamedType
	byName map[string]NamedType
}

// ScopedType is a NamedType that opens a nested scope (struct, union,
// interface).
type ScopedType interface {
	NamedType
	InnerScope() *Scope
}

func (s *Scope) init(name string, parent *Scope) {
	s.name = name
	s.parent = parent
	s.byName = make(map[string]NamedType)
}

// NewRootScope returns the root scope of an AST.
func NewRootScope() *Scope {
	s := &Scope{}
	s.init("(root)", nil)
	return s
}

// InnerScope returns s itself; embedding types expose their scope this way.
func (s *Scope) InnerScope() *Scope { return s }

// Parent returns the lexically enclosing scope, nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Add declares t in s. Redeclaration of a local name is an error.
func (s *Scope) Add(t NamedType) error {
	if _, dup := s.byName[t.LocalName()]; dup {
		return fmt.Errorf("redeclaration of %q in scope %s", t.LocalName(), s.name)
	}
	s.byName[t.LocalName()] = t
	s.types = append(s.types, t)
	return nil
}

// SubTypes returns the declared types in declaration order.
func (s *Scope) SubTypes() []NamedType { return s.types }

// LookupLocal finds name in this scope only; name may be a dotted path
// descending into nested scopes.
func (s *Scope) LookupLocal(name string) (NamedType, bool) {
	first, rest, nested := strings.Cut(name, ".")
	t, ok := s.byName[first]
	if !ok {
		return nil, false
	}
	if !nested {
		return t, true
	}
	inner, ok := t.(ScopedType)
	if !ok {
		return nil, false
	}
	return inner.InnerScope().LookupLocal(rest)
}

// Lookup resolves name against this scope and its lexical ancestors; the
// innermost match wins.
func (s *Scope) Lookup(name string) (NamedType, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.LookupLocal(name); ok {
			return t, true
		}
	}
	return nil, false
}

// Interfaces returns the interfaces declared directly in s.
func (s *Scope) Interfaces() []*Interface {
	var out []*Interface
	for _, t := range s.types {
		if iface, ok := t.(*Interface); ok {
			out = append(out, iface)
		}
	}
	return out
}
