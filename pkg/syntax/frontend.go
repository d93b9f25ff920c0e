// Package syntax extracts import, export and identifier-usage facts from
// JavaScript and TypeScript sources.
package syntax

import (
	"context"
	"errors"
	"strings"
)

// Summary holds the per-module facts the graph builder consumes: the ordered
// import specifiers, the set of exported names, and the set of every
// identifier referenced anywhere in the module body. The usage set is
// unscoped and intentionally over-inclusive.
type Summary struct {
	// Imports preserves source declaration order, duplicates included.
	Imports []string

	// Exports contains exported names. For named export lists this is the
	// original local name, not the external alias.
	Exports map[string]struct{}

	// UsedSymbols contains every identifier in the tree, declarations
	// included, with no scope filtering.
	UsedSymbols map[string]struct{}

	// Pinned contains exported names annotated with a keep directive.
	Pinned map[string]struct{}
}

// NewSummary returns an empty Summary with all sets allocated.
func NewSummary() *Summary {
	return &Summary{
		Exports:     make(map[string]struct{}),
		UsedSymbols: make(map[string]struct{}),
		Pinned:      make(map[string]struct{}),
	}
}

// Frontend converts raw source text into a Summary. Implementations must
// treat a syntactically broken module as empty rather than as an error;
// errors are reserved for invalid input (size, encoding) and cancellation.
type Frontend interface {
	Extract(ctx context.Context, content []byte, id string) (*Summary, error)
}

var (
	// ErrFileTooLarge is returned when content exceeds the front-end's size limit.
	ErrFileTooLarge = errors.New("syntax: file exceeds size limit")

	// ErrInvalidContent is returned when content is not valid UTF-8.
	ErrInvalidContent = errors.New("syntax: content is not valid UTF-8")
)

// sourceSuffixes are the recognized source file suffixes, longest first so
// that ".tsx" wins over ".ts" during matching.
var sourceSuffixes = []string{".tsx", ".jsx", ".mjs", ".cjs", ".ts", ".js"}

// SourceSuffix returns the recognized source suffix of name, or "".
func SourceSuffix(name string) string {
	for _, suffix := range sourceSuffixes {
		if strings.HasSuffix(name, suffix) {
			return suffix
		}
	}
	return ""
}

// NormalizeSpecifier reattaches a recognized source suffix that a parser or
// loader stripped from an import specifier. Specifiers that already carry a
// recognized suffix, and bare package specifiers, pass through unchanged.
func NormalizeSpecifier(spec, raw string) string {
	if spec == raw {
		return spec
	}
	if SourceSuffix(spec) == "" {
		if suffix := SourceSuffix(raw); suffix != "" {
			return spec + suffix
		}
	}
	return spec
}
