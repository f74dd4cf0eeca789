// Package jsast parses JavaScript and TypeScript modules with tree-sitter and
// exposes the top-level statement view the import rewriter works on.
package jsast

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// Sentinel errors for parser operations.
var (
	// ErrSyntax is returned when the source cannot be parsed as a module.
	ErrSyntax = errors.New("syntax error")
	// ErrUnsupportedLanguage is returned for files outside the JavaScript family.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	errPoolType   = errors.New("invalid parser pool type")
	errNoRootNode = errors.New("no root node")
)

// tree-sitter node types used while reducing the tree.
const (
	nodeError           = "ERROR"
	nodeImport          = "import_statement"
	nodeExport          = "export_statement"
	nodeImportClause    = "import_clause"
	nodeNamedImports    = "named_imports"
	nodeNamespaceImport = "namespace_import"
	nodeImportSpecifier = "import_specifier"
	nodeIdentifier      = "identifier"
	nodeTypeKeyword     = "type"
	nodeTypeofKeyword   = "typeof"
)

// Parser parses source files into Modules. It is safe for concurrent use;
// tree-sitter parsers are pooled per grammar.
type Parser struct {
	pools map[string]*sync.Pool
}

// NewParser creates a Parser for every supported grammar.
func NewParser() *Parser {
	pools := make(map[string]*sync.Pool, len(grammars))

	for name, fn := range grammars {
		lang := sitter.NewLanguage(fn())

		pools[name] = &sync.Pool{
			New: func() any {
				tsParser := sitter.NewParser()
				tsParser.SetLanguage(lang)

				return tsParser
			},
		}
	}

	return &Parser{pools: pools}
}

// Parse detects the grammar from filename and parses content.
func (parser *Parser) Parse(ctx context.Context, filename string, content []byte) (*Module, error) {
	lang := DetectLanguage(filename, content)
	if lang == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, filename)
	}

	return parser.ParseLanguage(ctx, lang, content)
}

// ParseLanguage parses content with the named grammar.
func (parser *Parser) ParseLanguage(ctx context.Context, lang string, content []byte) (*Module, error) {
	pool, ok := parser.pools[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	tsParser, ok := pool.Get().(*sitter.Parser)
	if !ok {
		return nil, errPoolType
	}

	defer pool.Put(tsParser)

	tree, err := tsParser.ParseString(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", lang, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.IsNull() {
		return nil, errNoRootNode
	}

	if errNode := findError(root); !errNode.IsNull() {
		start := errNode.StartPoint()

		return nil, fmt.Errorf("%w at line %d, column %d", ErrSyntax, int(start.Row)+1, int(start.Column)+1)
	}

	mod := &Module{
		Language:   lang,
		Statements: make([]Statement, 0, int(root.NamedChildCount())),
		src:        content,
	}

	for idx := range root.NamedChildCount() {
		mod.Statements = append(mod.Statements, reduceStatement(root.NamedChild(idx), content))
	}

	return mod, nil
}

func findError(tsNode sitter.Node) sitter.Node {
	if tsNode.Type() == nodeError {
		return tsNode
	}

	for idx := range tsNode.ChildCount() {
		found := findError(tsNode.Child(idx))
		if !found.IsNull() {
			return found
		}
	}

	return sitter.Node{}
}

func reduceStatement(tsNode sitter.Node, src []byte) Statement {
	stmt := Statement{
		Kind:     KindOther,
		NodeType: tsNode.Type(),
		Start:    int(tsNode.StartByte()),
		End:      int(tsNode.EndByte()),
		Line:     int(tsNode.StartPoint().Row) + 1,
	}

	switch stmt.NodeType {
	case nodeImport:
		stmt.Kind = KindImport
		stmt.TypeOnly = hasKeywordChild(tsNode)

		if source := tsNode.ChildByFieldName("source"); !source.IsNull() {
			stmt.Source = unquote(nodeText(source, src))
		}

		for idx := range tsNode.NamedChildCount() {
			child := tsNode.NamedChild(idx)
			if child.Type() == nodeImportClause {
				stmt.Specifiers = reduceClause(child, src)
			}
		}
	case nodeExport:
		stmt.Kind = KindExport

		if source := tsNode.ChildByFieldName("source"); !source.IsNull() {
			stmt.Source = unquote(nodeText(source, src))
		}
	}

	return stmt
}

func reduceClause(clause sitter.Node, src []byte) []Specifier {
	var specifiers []Specifier

	for idx := range clause.NamedChildCount() {
		child := clause.NamedChild(idx)

		switch child.Type() {
		case nodeIdentifier:
			specifiers = append(specifiers, Specifier{Kind: SpecifierDefault, Local: nodeText(child, src)})
		case nodeNamespaceImport:
			specifiers = append(specifiers, Specifier{Kind: SpecifierNamespace, Local: lastIdentifier(child, src)})
		case nodeNamedImports:
			for sidx := range child.NamedChildCount() {
				spec := child.NamedChild(sidx)
				if spec.Type() == nodeImportSpecifier {
					specifiers = append(specifiers, reduceSpecifier(spec, src))
				}
			}
		}
	}

	return specifiers
}

func reduceSpecifier(spec sitter.Node, src []byte) Specifier {
	out := Specifier{Kind: SpecifierNamed, TypeOnly: hasKeywordChild(spec)}

	name := spec.ChildByFieldName("name")
	if !name.IsNull() && name.Type() == nodeIdentifier {
		out.Imported = nodeText(name, src)
	}

	out.Local = out.Imported

	if alias := spec.ChildByFieldName("alias"); !alias.IsNull() {
		out.Local = nodeText(alias, src)
	}

	return out
}

// hasKeywordChild reports whether a node carries a TypeScript "type" or
// "typeof" modifier token.
func hasKeywordChild(tsNode sitter.Node) bool {
	for idx := range tsNode.ChildCount() {
		child := tsNode.Child(idx)
		if child.IsNamed() {
			continue
		}

		if typ := child.Type(); typ == nodeTypeKeyword || typ == nodeTypeofKeyword {
			return true
		}
	}

	return false
}

func lastIdentifier(tsNode sitter.Node, src []byte) string {
	var name string

	for idx := range tsNode.NamedChildCount() {
		child := tsNode.NamedChild(idx)
		if child.Type() == nodeIdentifier {
			name = nodeText(child, src)
		}
	}

	return name
}

func nodeText(tsNode sitter.Node, src []byte) string {
	start, end := int(tsNode.StartByte()), int(tsNode.EndByte())
	if start > end || end > len(src) {
		return ""
	}

	return string(src[start:end])
}

// unquote strips the surrounding quotes of a string literal.
func unquote(lit string) string {
	if len(lit) >= 2 && (lit[0] == '\'' || lit[0] == '"') && lit[len(lit)-1] == lit[0] {
		return lit[1 : len(lit)-1]
	}

	return lit
}
