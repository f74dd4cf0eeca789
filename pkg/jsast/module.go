package jsast

import "strings"

// StatementKind classifies a top-level statement.
type StatementKind string

// Statement kinds the rewriter cares about. Everything else is KindOther.
const (
	KindImport StatementKind = "import"
	KindExport StatementKind = "export"
	KindOther  StatementKind = "other"
)

// SpecifierKind classifies a binding inside an import clause.
type SpecifierKind string

// Specifier kinds.
const (
	SpecifierNamed     SpecifierKind = "named"
	SpecifierDefault   SpecifierKind = "default"
	SpecifierNamespace SpecifierKind = "namespace"
)

// Specifier is a single binding of an import statement.
type Specifier struct {
	Kind SpecifierKind `json:"kind"`
	// Imported is the exported name being imported. It is empty for default
	// and namespace bindings and for names that are not identifiers
	// (import { "a-b" as c }).
	Imported string `json:"imported,omitempty"`
	Local    string `json:"local"`
	TypeOnly bool   `json:"type_only,omitempty"`
}

// Statement is a top-level statement of a module.
type Statement struct {
	Kind       StatementKind `json:"kind"`
	NodeType   string        `json:"node_type"`
	Source     string        `json:"source,omitempty"`
	Specifiers []Specifier   `json:"specifiers,omitempty"`
	TypeOnly   bool          `json:"type_only,omitempty"`
	Start      int           `json:"start"`
	End        int           `json:"end"`
	Line       int           `json:"line"`
}

// Module is a parsed source file reduced to its top-level statements.
type Module struct {
	Language   string      `json:"language"`
	Statements []Statement `json:"statements"`

	src []byte
}

// Imports returns the top-level import declarations in source order.
func (m *Module) Imports() []Statement {
	imports := make([]Statement, 0, len(m.Statements))

	for _, stmt := range m.Statements {
		if stmt.Kind == KindImport {
			imports = append(imports, stmt)
		}
	}

	return imports
}

// Without regenerates the module text with every top-level statement for
// which drop returns true removed. Remaining text keeps its order and
// formatting. A removed statement also takes its trailing line break.
func (m *Module) Without(drop func(Statement) bool) string {
	var sb strings.Builder

	sb.Grow(len(m.src))

	cursor := 0

	for _, stmt := range m.Statements {
		if !drop(stmt) {
			continue
		}

		sb.Write(m.src[cursor:stmt.Start])
		cursor = skipLineBreak(m.src, stmt.End)
	}

	sb.Write(m.src[cursor:])

	return sb.String()
}

// skipLineBreak advances past trailing spaces/tabs and a single line break.
func skipLineBreak(src []byte, pos int) int {
	end := pos

	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}

	switch {
	case end < len(src) && src[end] == '\n':
		return end + 1
	case end+1 < len(src) && src[end] == '\r' && src[end+1] == '\n':
		return end + 2
	case end == len(src):
		return end
	default:
		return pos
	}
}
