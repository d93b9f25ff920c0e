package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"

	"github.com/715d/treeshake/pkg/modgraph"
	"github.com/715d/treeshake/pkg/syntax"
	"github.com/715d/treeshake/pkg/treeshake"
)

const (
	fixtureFile  = "modules.txtar"
	scenarioFile = "scenario.yaml"
)

// TestHarness manages scenario execution.
type TestHarness struct {
	// frontend is shared across scenarios; its summary memoization is keyed
	// by content hash, so fixtures cannot contaminate each other
	frontend syntax.Frontend

	// root is the root directory for scenario data
	root string
}

// NewHarness creates a new test harness rooted at a scenario directory.
func NewHarness(root string) *TestHarness {
	return &TestHarness{
		frontend: syntax.NewTreeSitter(),
		root:     root,
	}
}

// Scenarios loads every scenario under the harness root.
func (h *TestHarness) Scenarios(t *testing.T) []*Scenario {
	t.Helper()

	entries, err := os.ReadDir(h.root)
	require.NoError(t, err, "reading scenario root")

	var scenarios []*Scenario
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(h.root, entry.Name())
		data, err := os.ReadFile(filepath.Join(dir, scenarioFile))
		require.NoError(t, err, "reading %s for scenario %s", scenarioFile, entry.Name())

		sc := &Scenario{}
		require.NoError(t, yaml.Unmarshal(data, sc), "parsing %s for scenario %s", scenarioFile, entry.Name())
		require.NotEmpty(t, sc.Entry, "scenario %s has no entry", entry.Name())

		sc.Name = entry.Name()
		sc.Dir = dir
		scenarios = append(scenarios, sc)
	}
	require.NotEmpty(t, scenarios, "no scenarios under %s", h.root)
	return scenarios
}

// Run executes one scenario under every configured worker count.
func (h *TestHarness) Run(t *testing.T, sc *Scenario) {
	t.Helper()

	workerCounts := sc.Workers
	if len(workerCounts) == 0 {
		workerCounts = []int{1}
	}

	for _, workers := range workerCounts {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			h.runOnce(t, sc, workers)
		})
	}
}

func (h *TestHarness) runOnce(t *testing.T, sc *Scenario, workers int) {
	t.Helper()

	root := materializeFixture(t, filepath.Join(sc.Dir, fixtureFile))

	builder, err := modgraph.NewBuilder(modgraph.BuilderOptions{
		Frontend: h.frontend,
		Workers:  workers,
	})
	require.NoError(t, err)

	entry := filepath.Join(root, filepath.FromSlash(sc.Entry))
	graph, err := builder.Build(t.Context(), entry)

	if sc.ExpectedBuildError != "" {
		require.Error(t, err, "build was expected to fail")
		require.Contains(t, err.Error(), sc.ExpectedBuildError)
		return
	}
	require.NoError(t, err, "building graph")

	prefix := filepath.ToSlash(root) + "/"
	validateModules(t, sc, graph, prefix)

	kept := treeshake.NewShaker().Shake(graph, filepath.ToSlash(entry))
	validateKept(t, sc, kept, prefix)
}

func validateModules(t *testing.T, sc *Scenario, graph *modgraph.Graph, prefix string) {
	t.Helper()

	var got []string
	for _, id := range graph.IDs() {
		got = append(got, strings.TrimPrefix(id, prefix))
	}
	want := append([]string(nil), sc.ExpectedModules...)
	sort.Strings(want)
	require.Equal(t, want, got, "graph module set mismatch")
}

func validateKept(t *testing.T, sc *Scenario, kept modgraph.Set[string], prefix string) {
	t.Helper()

	gotSet := make(map[string]struct{}, len(kept))
	for key := range kept {
		gotSet[strings.TrimPrefix(key, prefix)] = struct{}{}
	}

	var missing, unexpected []string
	wantSet := make(map[string]struct{}, len(sc.ExpectedKept))
	for _, key := range sc.ExpectedKept {
		wantSet[key] = struct{}{}
		if _, found := gotSet[key]; !found {
			missing = append(missing, key)
		}
	}
	for key := range gotSet {
		if _, found := wantSet[key]; !found {
			unexpected = append(unexpected, key)
		}
	}

	sort.Strings(missing)
	sort.Strings(unexpected)

	var details []string
	for _, m := range missing {
		details = append(details, "should have been kept: "+m)
	}
	for _, u := range unexpected {
		details = append(details, "should have been dropped: "+u)
	}
	require.Empty(t, details, "kept set mismatch:\n%s", strings.Join(details, "\n"))
}

// materializeFixture extracts a txtar archive into a fresh temp dir and
// returns its root.
func materializeFixture(t *testing.T, path string) string {
	t.Helper()

	archive, err := txtar.ParseFile(path)
	require.NoError(t, err, "parsing fixture archive")
	require.NotEmpty(t, archive.Files, "fixture archive is empty")

	root := t.TempDir()
	for _, file := range archive.Files {
		dst := filepath.Join(root, filepath.FromSlash(file.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
		require.NoError(t, os.WriteFile(dst, file.Data, 0o644))
	}
	return root
}
