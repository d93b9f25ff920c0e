// Package treeshake decides which exported symbols must be kept when
// bundling from a given entry module.
package treeshake

import (
	"log/slog"
	"strings"

	"github.com/715d/treeshake/pkg/modgraph"
)

// Shaker computes symbol-level reachability over a module graph. The
// analysis is name-based and deliberately over-approximates: any identifier
// occurrence counts as a use, so the kept set errs toward keeping.
type Shaker struct{}

// NewShaker creates a Shaker.
func NewShaker() *Shaker {
	return &Shaker{}
}

// KeptKey formats a kept-set entry for a module/symbol pair.
func KeptKey(moduleID, symbol string) string {
	return moduleID + "::" + symbol
}

// SplitKeptKey splits a kept-set entry back into module id and symbol.
func SplitKeptKey(key string) (moduleID, symbol string, ok bool) {
	idx := strings.LastIndex(key, "::")
	if idx < 0 {
		return "", "", false
	}
	return key[:idx], key[idx+2:], true
}

// Reachable returns the ids of modules reachable from entry along relative
// imports. Ids missing from the graph are skipped, not reported.
func (s *Shaker) Reachable(g *modgraph.Graph, entry string) modgraph.Set[string] {
	reachable := make(modgraph.Set[string])
	stack := []string{entry}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reachable.Has(id) {
			continue
		}
		reachable.Add(id)

		info, ok := g.Module(id)
		if !ok {
			continue
		}
		stack = append(stack, info.Dependencies()...)
	}
	return reachable
}

// Shake returns the kept set for the graph as seen from entry: every
// "<module id>::<symbol>" pair that must survive bundling.
//
// Phase 1 computes module reachability. Phase 2 runs a worklist to a fixed
// point: it is seeded with the entry module's used symbols and propagates
// each demanded name from a module to the dependencies whose own symbol
// usage mentions that name. A demanded name that a module exports is kept.
// Re-export chains therefore stay alive link by link, since a module that
// re-exports a name also uses it. Renaming across a module boundary breaks
// the chain; that loss is accepted by the name-based design.
//
// Two unconditional rules apply on top: the entry module's entire export
// surface is kept, and pinned exports of any reachable module are kept.
func (s *Shaker) Shake(g *modgraph.Graph, entry string) modgraph.Set[string] {
	kept := make(modgraph.Set[string])
	reachable := s.Reachable(g, entry)

	type demand struct {
		module string
		symbol string
	}

	var worklist []demand
	seen := make(map[demand]struct{})
	push := func(d demand) {
		if _, dup := seen[d]; dup {
			return
		}
		seen[d] = struct{}{}
		worklist = append(worklist, d)
	}

	if info, ok := g.Module(entry); ok {
		for sym := range info.UsedSymbols {
			push(demand{module: entry, symbol: sym})
		}
	}

	for len(worklist) > 0 {
		d := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		info, ok := g.Module(d.module)
		if !ok {
			continue
		}
		if info.Exports.Has(d.symbol) {
			kept.Add(KeptKey(d.module, d.symbol))
		}
		for _, dep := range info.Dependencies() {
			depInfo, ok := g.Module(dep)
			if !ok {
				continue
			}
			if depInfo.UsedSymbols.Has(d.symbol) {
				push(demand{module: dep, symbol: d.symbol})
			}
		}
	}

	for id := range reachable {
		info, ok := g.Module(id)
		if !ok {
			continue
		}
		for sym := range info.Pinned {
			if info.Exports.Has(sym) {
				kept.Add(KeptKey(id, sym))
			}
		}
	}

	// The entry module's public surface is the bundle's public surface.
	if info, ok := g.Module(entry); ok {
		for sym := range info.Exports {
			kept.Add(KeptKey(entry, sym))
		}
	}

	slog.Debug("tree shake complete",
		"entry", entry,
		"reachable", len(reachable),
		"kept", len(kept))
	return kept
}
