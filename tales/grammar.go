package tales

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer/stateful"
)

// pyLexer tokenizes the default python: expression grammar. Multi-character
// operators are listed ahead of their single-character prefixes so the
// stateful lexer's first-match-wins rule order picks the longer one.
var pyLexer = stateful.MustSimple([]stateful.Rule{
	{Name: "whitespace", Pattern: `\s+`},
	{Name: "String", Pattern: `'(\\'|[^'])*'|"(\\"|[^"])*"`},
	{Name: "Float", Pattern: `[0-9]+\.[0-9]+`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Eq", Pattern: `==`},
	{Name: "Ne", Pattern: `!=`},
	{Name: "Le", Pattern: `<=`},
	{Name: "Ge", Pattern: `>=`},
	{Name: "FloorDiv", Pattern: `//`},
	{Name: "Punct", Pattern: `[<>+\-*/%(),.\[\]]`},
})

var exprParser = participle.MustBuild(
	&Ternary{},
	participle.Lexer(pyLexer),
	participle.Unquote("String"),
	participle.Elide("whitespace"),
	participle.UseLookahead(4),
)

// ParseExpr parses the payload of a python: expression (or the implicit
// default prefix) into the Ternary AST root.
func ParseExpr(src string) (*Ternary, error) {
	out := &Ternary{}
	if err := exprParser.ParseString("", src, out); err != nil {
		return nil, &ExpressionError{Message: err.Error(), Source: src}
	}
	return out, nil
}

// ExpressionError is the spec's ExpressionError subkind of TemplateError:
// an expression payload that the registered compiler for its prefix could
// not parse.
type ExpressionError struct {
	Message string
	Source  string
}

func (e *ExpressionError) Error() string {
	return "invalid expression " + quoteShort(e.Source) + ": " + e.Message
}

func quoteShort(s string) string {
	s = strings.TrimSpace(s)
	const max = 60
	if len(s) > max {
		s = s[:max] + "..."
	}
	return `"` + s + `"`
}
