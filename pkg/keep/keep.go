// Package keep implements comment-based keep directives for exported symbols.
package keep

import (
	"maps"
	"regexp"
	"strings"
)

// Checker records keep directives found in a module's comments and answers
// whether the export declared on a given line is pinned.
type Checker struct {
	// directives maps comment line (0-based) to directive reason
	directives map[int]string
}

// Directive represents a parsed keep directive.
type Directive struct {
	Line   int
	Reason string
}

// Directive patterns for the supported comment styles.
var (
	// linePattern matches // treeshake:keep comments
	linePattern = regexp.MustCompile(`//\s*treeshake:keep(?:\s+(.+))?$`)

	// blockPattern matches /* treeshake:keep */ comments
	blockPattern = regexp.MustCompile(`/\*\s*treeshake:keep(?:\s+(.+?))?\s*\*/`)
)

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{
		directives: make(map[int]string),
	}
}

// AddComment parses one comment and records a directive when it matches.
// line is the 0-based source line the comment starts on.
func (c *Checker) AddComment(line int, text string) {
	directive := ParseComment(line, text)
	if directive == nil {
		return
	}
	c.directives[directive.Line] = directive.Reason
}

// ParseComment parses a comment to check if it's a keep directive.
func ParseComment(line int, text string) *Directive {
	if matches := linePattern.FindStringSubmatch(text); matches != nil {
		reason := ""
		if len(matches) > 1 {
			reason = strings.TrimSpace(matches[1])
		}
		return &Directive{Line: line, Reason: reason}
	}

	if matches := blockPattern.FindStringSubmatch(text); matches != nil {
		reason := ""
		if len(matches) > 1 {
			reason = strings.TrimSpace(matches[1])
		}
		return &Directive{Line: line, Reason: reason}
	}

	return nil
}

// IsPinned reports whether an export declared on declLine carries a keep
// directive, either on the line immediately before or on the same line.
func (c *Checker) IsPinned(declLine int) (bool, string) {
	if reason, exists := c.directives[declLine-1]; exists {
		if reason == "" {
			reason = "pinned"
		}
		return true, reason
	}
	if reason, exists := c.directives[declLine]; exists {
		if reason == "" {
			reason = "pinned"
		}
		return true, reason
	}
	return false, ""
}

// Clear clears all recorded directives.
func (c *Checker) Clear() {
	c.directives = make(map[int]string)
}

func (c *Checker) allDirectives() map[int]string {
	result := make(map[int]string)
	maps.Copy(result, c.directives)
	return result
}
