// Package modgraph builds the dependency graph a bundler analyzes: modules
// connected by import specifiers, each carrying its export and usage facts.
package modgraph

import (
	"path"
	"slices"
	"strings"
)

// ModuleInfo is one analyzed module. ID is the resolved path that named the
// file on disk; Imports preserves declaration order. A module whose source
// failed to parse has empty Imports, Exports and UsedSymbols but still
// occupies its node in the graph.
type ModuleInfo struct {
	ID          string
	Imports     []string
	Exports     Set[string]
	UsedSymbols Set[string]
	Pinned      Set[string]
}

// Dependencies returns the resolved ids of the module's relative imports,
// in declaration order. Non-relative specifiers are skipped.
func (m *ModuleInfo) Dependencies() []string {
	var deps []string
	for _, spec := range m.Imports {
		if IsRelative(spec) {
			deps = append(deps, ResolveSpecifier(m.ID, spec))
		}
	}
	return deps
}

// Graph is the result of one build: module id to ModuleInfo. It is
// append-only during construction and read-only afterwards.
type Graph struct {
	modules map[string]*ModuleInfo
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		modules: make(map[string]*ModuleInfo),
	}
}

// Add inserts a module. Construction-time only; consumers treat the graph
// as immutable once it is handed out.
func (g *Graph) Add(info *ModuleInfo) {
	g.modules[info.ID] = info
}

// Module returns the module with the given id.
func (g *Graph) Module(id string) (*ModuleInfo, bool) {
	info, ok := g.modules[id]
	return info, ok
}

// Has reports whether id is present.
func (g *Graph) Has(id string) bool {
	_, ok := g.modules[id]
	return ok
}

// Len returns the number of modules.
func (g *Graph) Len() int {
	return len(g.modules)
}

// IDs returns all module ids, sorted.
func (g *Graph) IDs() []string {
	ids := make([]string, 0, len(g.modules))
	for id := range g.modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// IsRelative reports whether spec is a relative specifier ("./x", "../x").
// Everything else is a package specifier and is never resolved or followed.
func IsRelative(spec string) bool {
	return strings.HasPrefix(spec, ".")
}

// ResolveSpecifier resolves a relative import specifier against the
// directory of the importing module. Resolution is purely lexical:
// deterministic, idempotent, no filesystem probing.
func ResolveSpecifier(importerID, spec string) string {
	return path.Join(path.Dir(importerID), spec)
}

// Set is a generic set built on a map.
type Set[T comparable] map[T]struct{}

// NewSet returns a set of the given elements.
func NewSet[T comparable](elems ...T) Set[T] {
	s := make(Set[T], len(elems))
	for _, e := range elems {
		s[e] = struct{}{}
	}
	return s
}

// Add inserts an element.
func (s Set[T]) Add(e T) {
	s[e] = struct{}{}
}

// Has reports membership.
func (s Set[T]) Has(e T) bool {
	_, ok := s[e]
	return ok
}
