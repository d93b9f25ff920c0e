package modgraph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheReturnsSameGraphForSameEntry(t *testing.T) {
	frontend := newFakeFrontend().module("entry.js", "./dep.js").module("dep.js")
	dir := writeModules(t, "entry.js", "dep.js")
	entry := filepath.Join(dir, "entry.js")

	cache, err := NewCache(newTestBuilder(t, frontend, 1), 0)
	require.NoError(t, err)

	first, err := cache.Graph(t.Context(), entry)
	require.NoError(t, err)
	second, err := cache.Graph(t.Context(), entry)
	require.NoError(t, err)

	require.Same(t, first, second)
	assert.Equal(t, 1, frontend.extractCount("entry.js"), "second lookup must not rebuild")
	assert.Equal(t, 1, cache.Len())
}

func TestCacheServesStaleGraph(t *testing.T) {
	frontend := newFakeFrontend().module("entry.js")
	dir := writeModules(t, "entry.js")
	entry := filepath.Join(dir, "entry.js")

	cache, err := NewCache(newTestBuilder(t, frontend, 1), 0)
	require.NoError(t, err)

	first, err := cache.Graph(t.Context(), entry)
	require.NoError(t, err)

	// Changing the file on disk does not invalidate the entry.
	require.NoError(t, os.WriteFile(entry, []byte("changed"), 0o644))
	second, err := cache.Graph(t.Context(), entry)
	require.NoError(t, err)
	require.Same(t, first, second)
}

func TestCachesAreIndependent(t *testing.T) {
	frontend := newFakeFrontend().module("entry.js")
	dir := writeModules(t, "entry.js")
	entry := filepath.Join(dir, "entry.js")
	builder := newTestBuilder(t, frontend, 1)

	one, err := NewCache(builder, 0)
	require.NoError(t, err)
	two, err := NewCache(builder, 0)
	require.NoError(t, err)

	_, err = one.Graph(t.Context(), entry)
	require.NoError(t, err)
	_, err = two.Graph(t.Context(), entry)
	require.NoError(t, err)

	assert.Equal(t, 2, frontend.extractCount("entry.js"), "each cache builds independently")
}

func TestCachePurge(t *testing.T) {
	frontend := newFakeFrontend().module("entry.js")
	dir := writeModules(t, "entry.js")
	entry := filepath.Join(dir, "entry.js")

	cache, err := NewCache(newTestBuilder(t, frontend, 1), 0)
	require.NoError(t, err)

	_, err = cache.Graph(t.Context(), entry)
	require.NoError(t, err)
	cache.Purge()
	require.Equal(t, 0, cache.Len())

	_, err = cache.Graph(t.Context(), entry)
	require.NoError(t, err)
	assert.Equal(t, 2, frontend.extractCount("entry.js"))
}

func TestCacheBuildErrorNotCached(t *testing.T) {
	frontend := newFakeFrontend().module("entry.js", "./gone.js")
	dir := writeModules(t, "entry.js")
	entry := filepath.Join(dir, "entry.js")

	cache, err := NewCache(newTestBuilder(t, frontend, 1), 0)
	require.NoError(t, err)

	_, err = cache.Graph(t.Context(), entry)
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())
}
