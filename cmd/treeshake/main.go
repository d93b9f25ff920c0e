// Package main implements the CLI driver for the treeshake analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/715d/treeshake/pkg/modgraph"
	"github.com/715d/treeshake/pkg/syntax"
	"github.com/715d/treeshake/pkg/treeshake"
)

// Config holds all command-line configuration options for the analyzer.
type Config struct {
	Entry     string // the entry module to analyze from
	Verbose   bool   // enables detailed output and statistics
	JSON      bool   // enables JSON output format
	Profile   bool   // enables CPU and memory profiling
	Workers   int    // parallel subtree parsing (1 = sequential)
	NoCache   bool   // bypass the graph cache
	CacheSize int    // graph cache bound
}

const exitError = 2

var (
	// Set via ldflags during build.
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var cfg Config

func main() {
	var rootCmd = &cobra.Command{
		Use:   "treeshake <entry>",
		Short: "Analyze which exported symbols a bundle must keep",
		Long: `treeshake builds the module dependency graph rooted at an entry file
and computes which exported symbols are reachable from it.

Relative imports are followed; package imports are recorded but not resolved.
The analysis is name-based and over-approximates: when in doubt, a symbol is
kept rather than dropped.`,
		Example: `  treeshake src/index.ts                  # Analyze from an entry module
  treeshake -v src/index.ts               # Verbose output
  treeshake --json src/index.ts > out.json
  treeshake --workers 8 src/index.ts      # Parse independent subtrees in parallel`,
		Args:               cobra.ExactArgs(1),
		RunE:               runCommand,
		PersistentPreRunE:  setup,
		PersistentPostRunE: teardown,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Version:            version,
	}

	// Set custom version template to include build info.
	rootCmd.SetVersionTemplate(fmt.Sprintf("treeshake version %s\n  commit: %s\n  built:  %s\n", version, gitCommit, buildTime))

	// Define flags.
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&cfg.JSON, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&cfg.Profile, "profile", false, "Enable CPU and memory profiling (writes cpu.prof and mem.prof to current directory)")
	rootCmd.PersistentFlags().IntVar(&cfg.Workers, "workers", 1, "Number of concurrent module loads (1 = sequential)")
	rootCmd.PersistentFlags().BoolVar(&cfg.NoCache, "no-cache", false, "Build the graph without consulting the graph cache")
	rootCmd.PersistentFlags().IntVar(&cfg.CacheSize, "cache-size", modgraph.DefaultCacheSize, "Maximum number of cached graphs")

	if err := rootCmd.Execute(); err != nil {
		_ = teardown(nil, nil)
		if err.Error() != "" {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		var cErr codedError
		if errors.As(err, &cErr) {
			os.Exit(cErr.code)
		}
		os.Exit(exitError)
	}
}

func runCommand(cmd *cobra.Command, args []string) error {
	cfg.Entry = args[0]

	slog.Info("starting tree-shake analysis", "entry", cfg.Entry)

	result, err := runAnalysis(cmd.Context(), &cfg)
	if err != nil {
		return errWithCode(fmt.Errorf("analyze: %w", err), exitError)
	}

	if err := writeResults(result, &cfg); err != nil {
		return errWithCode(fmt.Errorf("format results: %w", err), exitError)
	}
	return nil
}

// Result represents the analysis output for one entry module: the built
// graph, the kept symbols and execution statistics.
type Result struct {
	Graph *modgraph.Graph
	Kept  []string
	Stats struct {
		Modules          int           `json:"modules"`
		KeptSymbols      int           `json:"kept_symbols"`
		AnalysisDuration time.Duration `json:"analysis_duration"`
	}
}

func runAnalysis(ctx context.Context, cfg *Config) (*Result, error) {
	start := time.Now()

	builder, err := modgraph.NewBuilder(modgraph.BuilderOptions{
		Frontend: syntax.NewTreeSitter(),
		Workers:  cfg.Workers,
	})
	if err != nil {
		return nil, err
	}

	var graph *modgraph.Graph
	if cfg.NoCache {
		graph, err = builder.Build(ctx, cfg.Entry)
	} else {
		var cache *modgraph.Cache
		cache, err = modgraph.NewCache(builder, cfg.CacheSize)
		if err != nil {
			return nil, err
		}
		graph, err = cache.Graph(ctx, cfg.Entry)
	}
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	slog.Info("graph built", "modules", graph.Len())

	entry := filepath.ToSlash(cfg.Entry)
	kept := treeshake.NewShaker().Shake(graph, entry)
	duration := time.Since(start)
	slog.Info("analysis completed", "dur", duration)

	r := &Result{
		Graph: graph,
		Kept:  slices.Sorted(maps.Keys(kept)),
	}
	r.Stats.Modules = graph.Len()
	r.Stats.KeptSymbols = len(kept)
	r.Stats.AnalysisDuration = duration
	return r, nil
}

func writeResults(result *Result, cfg *Config) error {
	var output string
	var err error

	if cfg.JSON {
		output, err = formatJSONOutput(result)
	} else {
		output = formatTextOutput(result, cfg)
	}

	if err != nil {
		return err
	}

	fmt.Print(output)
	return nil
}

func formatJSONOutput(result *Result) (string, error) {
	modules := make([]jModule, 0, result.Graph.Len())
	for _, id := range result.Graph.IDs() {
		info, _ := result.Graph.Module(id)
		modules = append(modules, jModule{
			ID:      id,
			Imports: info.Imports,
			Exports: sortedNames(info.Exports),
		})
	}

	data, err := json.MarshalIndent(jOutput{
		Modules:   modules,
		Kept:      result.Kept,
		Stats:     result.Stats,
		Version:   version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling json output: %w", err)
	}
	return string(data), nil
}

func formatTextOutput(result *Result, cfg *Config) string {
	var output strings.Builder

	if cfg.Verbose {
		slog.Info("",
			"modules", result.Stats.Modules,
			"kept_symbols", result.Stats.KeptSymbols,
			"analysis_duration", result.Stats.AnalysisDuration.String())
	}

	if len(result.Kept) == 0 {
		slog.Info("no symbols kept")
		return output.String()
	}

	if !cfg.Verbose {
		for _, key := range result.Kept {
			output.WriteString(key + "\n")
		}
		return output.String()
	}

	// Group kept symbols by module for better organization.
	moduleSymbols := make(map[string][]string)
	for _, key := range result.Kept {
		moduleID, symbol, ok := treeshake.SplitKeptKey(key)
		if !ok {
			continue
		}
		moduleSymbols[moduleID] = append(moduleSymbols[moduleID], symbol)
	}

	for _, id := range result.Graph.IDs() {
		symbols, ok := moduleSymbols[id]
		if !ok {
			continue
		}
		output.WriteString(fmt.Sprintf("%s:\n", id))
		for _, symbol := range symbols {
			output.WriteString(fmt.Sprintf("  %s\n", symbol))
		}
	}

	return output.String()
}

type jOutput struct {
	Modules   []jModule `json:"modules"`
	Kept      []string  `json:"kept"`
	Stats     any       `json:"stats"`
	Version   string    `json:"version"`
	Timestamp string    `json:"timestamp"`
}

type jModule struct {
	ID      string   `json:"id"`
	Imports []string `json:"imports"`
	Exports []string `json:"exports"`
}

func sortedNames(set modgraph.Set[string]) []string {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var cpuProfile *os.File

func setup(_ *cobra.Command, _ []string) error {
	// Disable logger unless verbose flag is set.
	slog.SetDefault(slog.New(slog.DiscardHandler))
	if cfg.Verbose {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
		if cfg.JSON {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		}
		logger := slog.New(handler)
		slog.SetDefault(logger)
	}

	if !cfg.Profile {
		return nil
	}

	// Start CPU profiling.
	var err error
	cpuProfile, err = os.Create("cpu.prof")
	if err != nil {
		return fmt.Errorf("creating cpu.prof: %w", err)
	}
	if err := pprof.StartCPUProfile(cpuProfile); err != nil {
		_ = cpuProfile.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	slog.Info("cpu profiling started", "file", "cpu.prof")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if !cfg.Profile || cpuProfile == nil {
		return nil
	}

	// Stop CPU profiling and close file.
	pprof.StopCPUProfile()
	defer cpuProfile.Close()
	slog.Info("cpu profiling stopped", "file", "cpu.prof")

	// Write memory profile.
	memFile, err := os.Create("mem.prof")
	if err != nil {
		return fmt.Errorf("creating mem.prof: %w", err)
	}
	defer memFile.Close()
	runtime.GC() // Get up-to-date statistics
	if err := pprof.WriteHeapProfile(memFile); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}
	slog.Info("memory profiling completed", "file", "mem.prof")
	return nil
}

func errWithCode(err error, code int) error {
	return &codedError{err: err, code: code}
}

type codedError struct {
	err  error
	code int
}

func (e codedError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return ""
}
