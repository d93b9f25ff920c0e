package harness

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAll runs all scenario tests.
func TestAll(t *testing.T) {
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok, "get current file path")

	harnessDir := filepath.Dir(filename)
	scenarioDir := filepath.Join(harnessDir, "..", "..", "testdata", "scenarios")

	if testing.Verbose() {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	h := NewHarness(scenarioDir)
	for _, sc := range h.Scenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			t.Parallel()
			h.Run(t, sc)
		})
	}
}
