package syntax

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"unicode/utf8"

	"github.com/puzpuzpuz/xsync/v4"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/715d/treeshake/pkg/keep"
)

// Tree-sitter node types shared by the javascript and typescript grammars.
const (
	nodeImportStatement     = "import_statement"
	nodeExportStatement     = "export_statement"
	nodeExportClause        = "export_clause"
	nodeExportSpecifier     = "export_specifier"
	nodeFunctionDecl        = "function_declaration"
	nodeGeneratorDecl       = "generator_function_declaration"
	nodeClassDecl           = "class_declaration"
	nodeLexicalDecl         = "lexical_declaration"
	nodeVariableDecl        = "variable_declaration"
	nodeVariableDeclarator  = "variable_declarator"
	nodeIdentifier          = "identifier"
	nodePropertyIdentifier  = "property_identifier"
	nodeShorthandIdentifier = "shorthand_property_identifier"
	nodeShorthandPattern    = "shorthand_property_identifier_pattern"
	nodeTypeIdentifier      = "type_identifier"
	nodeStatementIdentifier = "statement_identifier"
	nodeStringFragment      = "string_fragment"
	nodeComment             = "comment"
)

const (
	fieldSource      = "source"
	fieldDeclaration = "declaration"
	fieldName        = "name"
)

// DefaultMaxFileSize bounds the content accepted by Extract.
const DefaultMaxFileSize = 8 << 20

// TreeSitter is a Frontend backed by tree-sitter grammars. The grammar is
// selected per file by extension. Extraction results are memoized by module
// id and content hash, so repeated builds over unchanged sources skip the
// parse entirely. Safe for concurrent use.
type TreeSitter struct {
	maxFileSize int
	summaries   *xsync.Map[string, *Summary]
}

// TreeSitterOption configures a TreeSitter front-end.
type TreeSitterOption func(*TreeSitter)

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int) TreeSitterOption {
	return func(ts *TreeSitter) {
		ts.maxFileSize = n
	}
}

// NewTreeSitter creates a tree-sitter front-end.
func NewTreeSitter(opts ...TreeSitterOption) *TreeSitter {
	ts := &TreeSitter{
		maxFileSize: DefaultMaxFileSize,
		summaries:   xsync.NewMap[string, *Summary](),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts
}

// Extract parses content and returns the module's Summary. A tree whose root
// contains syntax errors yields an empty Summary. The returned Summary is
// shared across calls and must not be mutated.
func (ts *TreeSitter) Extract(ctx context.Context, content []byte, id string) (*Summary, error) {
	if len(content) > ts.maxFileSize {
		return nil, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, id, len(content))
	}
	if !utf8.Valid(content) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidContent, id)
	}

	key := cacheKey(id, content)
	if sum, ok := ts.summaries.Load(key); ok {
		return sum, nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammarFor(id))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}
	defer tree.Close()

	sum := NewSummary()
	root := tree.RootNode()
	if !root.HasError() {
		checker := keep.NewChecker()
		collectUsage(root, content, sum, checker)
		collectDeclarations(root, content, sum, checker)
	}

	ts.summaries.Store(key, sum)
	return sum, nil
}

func cacheKey(id string, content []byte) string {
	digest := sha256.Sum256(content)
	return id + ":" + hex.EncodeToString(digest[:])
}

func grammarFor(id string) *sitter.Language {
	switch path.Ext(id) {
	case ".ts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}

// collectUsage walks the whole tree with an explicit stack, recording every
// identifier into UsedSymbols and feeding comments to the keep checker.
func collectUsage(root *sitter.Node, content []byte, sum *Summary, checker *keep.Checker) {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch node.Type() {
		case nodeIdentifier, nodePropertyIdentifier, nodeShorthandIdentifier,
			nodeShorthandPattern, nodeTypeIdentifier, nodeStatementIdentifier:
			sum.UsedSymbols[node.Content(content)] = struct{}{}
		case nodeComment:
			checker.AddComment(int(node.StartPoint().Row), node.Content(content))
		}

		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}
}

// collectDeclarations records import specifiers in declaration order and the
// exported names of top-level export statements.
func collectDeclarations(root *sitter.Node, content []byte, sum *Summary, checker *keep.Checker) {
	for i := 0; i < int(root.ChildCount()); i++ {
		node := root.Child(i)
		switch node.Type() {
		case nodeImportStatement:
			if spec, ok := importSpecifier(node, content); ok {
				sum.Imports = append(sum.Imports, spec)
			}
		case nodeExportStatement:
			extractExport(node, content, sum, checker)
		}
	}
}

func importSpecifier(node *sitter.Node, content []byte) (string, bool) {
	source := node.ChildByFieldName(fieldSource)
	if source == nil {
		return "", false
	}
	value := stringValue(source, content)
	if value == "" {
		return "", false
	}
	raw := trimQuotes(source.Content(content))
	return NormalizeSpecifier(value, raw), true
}

func extractExport(node *sitter.Node, content []byte, sum *Summary, checker *keep.Checker) {
	line := int(node.StartPoint().Row)

	// Default exports carry no usable name.
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "default" {
			return
		}
	}

	if decl := node.ChildByFieldName(fieldDeclaration); decl != nil {
		switch decl.Type() {
		case nodeFunctionDecl, nodeGeneratorDecl, nodeClassDecl:
			if name := decl.ChildByFieldName(fieldName); name != nil {
				addExport(sum, checker, name.Content(content), line)
			}
		case nodeLexicalDecl, nodeVariableDecl:
			for i := 0; i < int(decl.ChildCount()); i++ {
				declarator := decl.Child(i)
				if declarator.Type() != nodeVariableDeclarator {
					continue
				}
				name := declarator.ChildByFieldName(fieldName)
				if name != nil && name.Type() == nodeIdentifier {
					addExport(sum, checker, name.Content(content), line)
				}
			}
		}
		return
	}

	// Named export list. The exported name is the original local binding,
	// never the external alias.
	for i := 0; i < int(node.ChildCount()); i++ {
		clause := node.Child(i)
		if clause.Type() != nodeExportClause {
			continue
		}
		for j := 0; j < int(clause.ChildCount()); j++ {
			spec := clause.Child(j)
			if spec.Type() != nodeExportSpecifier {
				continue
			}
			if name := spec.ChildByFieldName(fieldName); name != nil {
				addExport(sum, checker, name.Content(content), line)
			}
		}
	}
}

func addExport(sum *Summary, checker *keep.Checker, name string, line int) {
	sum.Exports[name] = struct{}{}
	if pinned, _ := checker.IsPinned(line); pinned {
		sum.Pinned[name] = struct{}{}
	}
}

// stringValue returns the unescaped text of a string literal node.
func stringValue(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeStringFragment {
			return child.Content(content)
		}
	}
	return trimQuotes(node.Content(content))
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
