package modgraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"

	"github.com/715d/treeshake/pkg/syntax"
)

// BuilderOptions configures a Builder.
type BuilderOptions struct {
	// Frontend extracts per-module facts from source text. Required.
	Frontend syntax.Frontend

	// Workers above 1 enables parallel subtree walking with at most
	// Workers concurrent loads.
	Workers int
}

// Builder walks a module tree from an entry file and produces a Graph.
// Each module is read and parsed exactly once per build; cycles terminate
// because a module is registered before its imports are followed.
type Builder struct {
	frontend syntax.Frontend
	workers  int
}

// NewBuilder creates a Builder.
func NewBuilder(opts BuilderOptions) (*Builder, error) {
	if opts.Frontend == nil {
		return nil, fmt.Errorf("modgraph: frontend is required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Builder{
		frontend: opts.Frontend,
		workers:  workers,
	}, nil
}

// Build constructs the dependency graph rooted at entry. Relative import
// specifiers are resolved against the importing module's directory and
// followed; package specifiers are recorded in ModuleInfo.Imports but never
// followed. A file that cannot be read fails the whole build.
func (b *Builder) Build(ctx context.Context, entry string) (*Graph, error) {
	entry = filepath.ToSlash(entry)
	if b.workers > 1 {
		return b.buildParallel(ctx, entry)
	}
	return b.buildSequential(ctx, entry)
}

func (b *Builder) buildSequential(ctx context.Context, entry string) (*Graph, error) {
	g := NewGraph()
	stack := []string{entry}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if g.Has(id) {
			continue
		}

		info, err := b.loadModule(ctx, id)
		if err != nil {
			return nil, err
		}
		g.Add(info)

		stack = append(stack, info.Dependencies()...)
	}

	slog.Debug("graph built", "entry", entry, "modules", g.Len())
	return g, nil
}

// buildParallel walks independent subtrees concurrently. The set-or-claim on
// claimed guarantees each module id is loaded at most once even when two
// importers race to follow it. The semaphore bounds concurrent file loads
// without blocking goroutine spawning, so the recursive fan-out cannot
// deadlock.
func (b *Builder) buildParallel(ctx context.Context, entry string) (*Graph, error) {
	claimed := xsync.NewMap[string, struct{}]()
	loaded := xsync.NewMap[string, *ModuleInfo]()
	sem := make(chan struct{}, b.workers)

	grp, ctx := errgroup.WithContext(ctx)

	var walk func(id string)
	walk = func(id string) {
		if _, dup := claimed.LoadOrStore(id, struct{}{}); dup {
			return
		}
		grp.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			info, err := b.loadModule(ctx, id)
			<-sem
			if err != nil {
				return err
			}
			loaded.Store(id, info)
			for _, dep := range info.Dependencies() {
				walk(dep)
			}
			return nil
		})
	}
	walk(entry)

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	g := NewGraph()
	loaded.Range(func(_ string, info *ModuleInfo) bool {
		g.Add(info)
		return true
	})
	slog.Debug("graph built", "entry", entry, "modules", g.Len(), "workers", b.workers)
	return g, nil
}

func (b *Builder) loadModule(ctx context.Context, id string) (*ModuleInfo, error) {
	content, err := os.ReadFile(filepath.FromSlash(id))
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", id, err)
	}

	sum, err := b.frontend.Extract(ctx, content, id)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", id, err)
	}

	return &ModuleInfo{
		ID:          id,
		Imports:     sum.Imports,
		Exports:     sum.Exports,
		UsedSymbols: sum.UsedSymbols,
		Pinned:      sum.Pinned,
	}, nil
}
