package jsast

import (
	"path/filepath"
	"strings"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/tsx"
	"github.com/alexaandru/go-sitter-forest/typescript"
	"github.com/src-d/enry/v2"
)

// Supported grammar names.
const (
	LangJavaScript = "javascript"
	LangTypeScript = "typescript"
	LangTSX        = "tsx"
)

// grammars maps grammar names to their tree-sitter GetLanguage functions.
var grammars = map[string]func() unsafe.Pointer{
	LangJavaScript: javascript.GetLanguage,
	LangTypeScript: typescript.GetLanguage,
	LangTSX:        tsx.GetLanguage,
}

var extensionGrammars = map[string]string{
	".js":  LangJavaScript,
	".mjs": LangJavaScript,
	".cjs": LangJavaScript,
	".jsx": LangJavaScript,
	".ts":  LangTypeScript,
	".mts": LangTypeScript,
	".cts": LangTypeScript,
	".tsx": LangTSX,
}

// enryGrammars maps enry language names to grammar names.
var enryGrammars = map[string]string{
	"JavaScript": LangJavaScript,
	"JSX":        LangJavaScript,
	"TypeScript": LangTypeScript,
	"TSX":        LangTSX,
}

// DetectLanguage returns the grammar for filename, or "" when the file is
// not a JavaScript-family module. Bundler query suffixes ("?v=123") are
// ignored. Files without a known extension are classified by enry, which
// also inspects shebang lines in content.
func DetectLanguage(filename string, content []byte) string {
	name := StripQuery(filename)

	if lang, ok := extensionGrammars[strings.ToLower(filepath.Ext(name))]; ok {
		return lang
	}

	return enryGrammars[enry.GetLanguage(filepath.Base(name), content)]
}

// StripQuery removes a trailing "?query" or "#hash" from a module id.
func StripQuery(id string) string {
	if idx := strings.IndexAny(id, "?#"); idx >= 0 {
		return id[:idx]
	}

	return id
}
