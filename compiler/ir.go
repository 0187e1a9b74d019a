package compiler

import (
	"github.com/malthe/chameleon/runtime"
	"github.com/malthe/chameleon/tales"
)

// Op is one executable unit of the compiled program, generalizing the
// teacher's executer interface (executer.go's "Execute(io.Writer, *context)
// error") to this engine's runtime.
type Op interface {
	Exec(r *runtime.Render) error
}

// OpList runs a sequence of Ops in order, stopping at the first error —
// the direct counterpart of the teacher's executeList.
type OpList []Op

func (ops OpList) Exec(r *runtime.Render) error {
	for _, op := range ops {
		if op == nil {
			continue
		}
		if err := op.Exec(r); err != nil {
			return err
		}
	}
	return nil
}

// TextOp writes a literal text run verbatim: the source text between
// elements is already valid output (properly escaped XML/HTML text), so no
// further escaping is applied.
type TextOp struct{ Raw string }

func (t *TextOp) Exec(r *runtime.Render) error {
	r.WriteString(t.Raw)
	return nil
}

// RawOp writes arbitrary pre-formed markup (comments, doctypes, processing
// instructions, CDATA) verbatim.
type RawOp struct{ Raw string }

func (o *RawOp) Exec(r *runtime.Render) error {
	r.WriteString(o.Raw)
	return nil
}

// interpPart is one segment of a "${...}"-interpolated text run: either a
// literal slice (Expr nil) or a compiled sub-expression. This mirrors
// tales.stringPart, copied field-by-field at build time since that type
// itself is unexported.
type interpPart struct {
	Literal string
	Expr    tales.Expr
}

// TextInterpOp writes a text node containing one or more "${...}"
// interpolations: literal segments are written verbatim (already-valid
// source text), each expression segment goes through the same
// Default/Nothing/structure/escaping rules as tal:content (spec §4.G.6).
type TextInterpOp struct{ Parts []interpPart }

func (t *TextInterpOp) Exec(r *runtime.Render) error {
	for _, p := range t.Parts {
		if p.Expr == nil {
			r.WriteString(p.Literal)
			continue
		}
		v, err := p.Expr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if err := r.WriteValue(v, false); err != nil {
			return r.Wrap(err, "")
		}
	}
	return nil
}

// CommentOp writes a "<!--...-->" comment whose inner text carries "${...}"
// interpolation: evaluated the same way as TextInterpOp, but the whole
// result is always inserted verbatim (comments are never HTML-escaped).
type CommentOp struct{ Parts []interpPart }

func (c *CommentOp) Exec(r *runtime.Render) error {
	r.WriteString("<!--")
	for _, p := range c.Parts {
		if p.Expr == nil {
			r.WriteString(p.Literal)
			continue
		}
		v, err := p.Expr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if runtime.IsNothing(v) || runtime.IsDefault(v) {
			continue
		}
		if hc, ok := v.(runtime.HTMLCapable); ok {
			r.WriteString(hc.HTML())
			continue
		}
		s, err := runtime.Stringify(v)
		if err != nil {
			return r.Wrap(err, "")
		}
		r.WriteString(s)
	}
	r.WriteString("-->")
	return nil
}
