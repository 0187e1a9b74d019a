package tales

import (
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// StringExpr concatenates a sequence of literal text runs and evaluated
// sub-expressions, the shared implementation behind both the string:
// expression type and the "${ ... }" interpolation lowerer.
type StringExpr struct {
	Parts []stringPart
}

type stringPart struct {
	Literal string
	Expr    Expr // nil for a literal-only part
}

func (s *StringExpr) Eval(r *runtime.Render) (interface{}, error) {
	var b strings.Builder
	for _, p := range s.Parts {
		if p.Expr == nil {
			b.WriteString(p.Literal)
			continue
		}
		v, err := p.Expr.Eval(r)
		if err != nil {
			return nil, err
		}
		text, err := runtime.Stringify(v)
		if err != nil {
			return nil, err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

// compileString implements the string: expression type: payload is literal
// text with "${ ... }" (braces always accepted) and bare "$name" (braces
// optional, per spec §4.E's exemption for string: expressions)
// interpolations.
func compileString(payload string) (Expr, error) {
	return parseInterpolated(payload, true)
}

// LowerInterpolation implements the interpolation lowerer (component E) for
// text nodes, attribute values and (when enabled) comments: braces are
// mandatory outside string: expressions. It returns ok=false when raw
// contains no "$" sequence at all, so callers can skip synthesizing an
// expression node for ordinary literal text.
func LowerInterpolation(raw string) (Expr, bool, error) {
	if !strings.Contains(raw, "$") {
		return nil, false, nil
	}
	expr, err := parseInterpolated(raw, false)
	if err != nil {
		return nil, false, err
	}
	return expr, true, nil
}

// parseInterpolated scans raw for "$$" (-> literal "$") and "${ ... }"
// (-> a sub-expression, parsed with the full prefix registry so
// "${exists: x}" etc. works inside an interpolation). When bracesOptional,
// a bare "$name" (a leading identifier run, no braces) is also accepted, as
// string: expressions require per spec §4.E.
func parseInterpolated(raw string, bracesOptional bool) (*StringExpr, error) {
	out := &StringExpr{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			out.Parts = append(out.Parts, stringPart{Literal: lit.String()})
			lit.Reset()
		}
	}
	i := 0
	for i < len(raw) {
		c := raw[i]
		if c != '$' {
			lit.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(raw) && raw[i+1] == '$' {
			lit.WriteByte('$')
			i += 2
			continue
		}
		if i+1 < len(raw) && raw[i+1] == '{' {
			end := matchBrace(raw, i+1)
			if end < 0 {
				lit.WriteByte(c)
				i++
				continue
			}
			inner := raw[i+2 : end]
			expr, err := Compile(inner)
			if err != nil {
				return nil, err
			}
			flush()
			out.Parts = append(out.Parts, stringPart{Expr: expr})
			i = end + 1
			continue
		}
		if bracesOptional && i+1 < len(raw) && isIdentStart(raw[i+1]) {
			j := i + 1
			for j < len(raw) && isIdentChar(raw[j]) {
				j++
			}
			expr, err := Compile(raw[i+1 : j])
			if err != nil {
				return nil, err
			}
			flush()
			out.Parts = append(out.Parts, stringPart{Expr: expr})
			i = j
			continue
		}
		lit.WriteByte(c)
		i++
	}
	flush()
	return out, nil
}

func matchBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
