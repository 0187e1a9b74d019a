package tales

import (
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// PrefixCompiler turns an expression payload (the text after "prefix:")
// into an Expr.
type PrefixCompiler func(payload string) (Expr, error)

// registry is the expression compiler registry (spec §4.D): one compiler
// per recognized prefix. python is both the explicit prefix and the
// fallback used when no prefix is written.
var registry = map[string]PrefixCompiler{}

func init() {
	registry["python"] = compilePython
	registry["string"] = compileString
	registry["exists"] = compileExists
	registry["not"] = compileNot
	registry["import"] = compileImport
	registry["load"] = compileLoad
	registry["structure"] = compileStructure
}

func compilePython(payload string) (Expr, error) {
	return ParseExpr(payload)
}

// Register installs an additional prefix compiler, letting a caller extend
// the registry (e.g. a restricted "path:" type tied to a specific object
// model — explicitly out of scope for the core per spec §1, but the
// registry is open for an embedder to add it).
func Register(prefix string, compiler PrefixCompiler) {
	registry[prefix] = compiler
}

// PipeExpr is the ordered fallback chain produced when "|" splits an
// expression outside brackets. Candidates are tried in order; the first to
// evaluate without raising one of the four catchable kinds (or a wrapped
// RenderError around one) wins.
type PipeExpr struct {
	Candidates []Expr
}

func (p *PipeExpr) Eval(r *runtime.Render) (interface{}, error) {
	var lastErr error
	for i, c := range p.Candidates {
		v, err := c.Eval(r)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if i == len(p.Candidates)-1 || !catchableByPipe(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

// Compile compiles one TALES expression string (already stripped of the
// surrounding attribute/statement syntax): it decodes the fixed entity set,
// splits on top-level "|" into an ordered fallback chain, and dispatches
// each candidate's prefix to its registered compiler. Compile always
// defaults an unprefixed candidate to "python"; CompileDefault lets a
// caller (package compiler, honoring Settings.DefaultExpression) override
// that.
func Compile(raw string) (Expr, error) {
	return CompileDefault(raw, "python")
}

// CompileDefault is Compile with an explicit default prefix.
func CompileDefault(raw string, defaultPrefix string) (Expr, error) {
	decoded := runtime.DecodeEntities(raw)
	candidates := splitPipe(decoded)
	exprs := make([]Expr, 0, len(candidates))
	for _, c := range candidates {
		e, err := compileOne(c, defaultPrefix)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &PipeExpr{Candidates: exprs}, nil
}

func compileOne(raw string, defaultPrefix string) (Expr, error) {
	prefix, payload := splitPrefix(raw, defaultPrefix)
	compiler, ok := registry[prefix]
	if !ok {
		return nil, &ExpressionError{Message: "unknown expression type " + prefix, Source: raw}
	}
	return compiler(payload)
}

// splitPrefix recognizes "prefix:payload" when prefix is a registered
// name; anything else (including a string containing ":" that isn't a
// known prefix, e.g. a URL literal) is treated as the default prefix.
func splitPrefix(raw string, defaultPrefix string) (prefix, payload string) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		candidate := raw[:i]
		if _, ok := registry[candidate]; ok {
			return candidate, strings.TrimSpace(raw[i+1:])
		}
	}
	return defaultPrefix, raw
}

// splitPipe splits s on top-level "|" separators, honoring the spec's
// doubled-pipe escape ("||" is a literal "|") and leaving bracketed
// sub-expressions ((), [], {}) alone even if they themselves contain "|".
func splitPipe(s string) []string {
	var out []string
	var cur strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case '|':
			if depth == 0 {
				if i+1 < len(s) && s[i+1] == '|' {
					cur.WriteByte('|')
					i++
					continue
				}
				out = append(out, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
		}
		cur.WriteByte(c)
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}
