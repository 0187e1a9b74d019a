package tales

import (
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// existsExpr implements exists:, which discards its inner value and
// returns a boolean, catching the same exception set a pipe fallback does
// (spec §4.D).
type existsExpr struct{ inner Expr }

func (e *existsExpr) Eval(r *runtime.Render) (interface{}, error) {
	_, err := e.inner.Eval(r)
	if err != nil {
		if catchableByPipe(err) {
			return false, nil
		}
		return nil, err
	}
	return true, nil
}

func compileExists(payload string) (Expr, error) {
	ast, err := ParseExpr(payload)
	if err != nil {
		return nil, err
	}
	return &existsExpr{inner: ast}, nil
}

// notExpr implements not:, inverting a python expression's truth value.
type notExpr struct{ inner Expr }

func (n *notExpr) Eval(r *runtime.Render) (interface{}, error) {
	v, err := n.inner.Eval(r)
	if err != nil {
		return nil, err
	}
	return !runtime.Truthy(v), nil
}

func compileNot(payload string) (Expr, error) {
	ast, err := ParseExpr(payload)
	if err != nil {
		return nil, err
	}
	return &notExpr{inner: ast}, nil
}

// importExpr implements import:, a dotted module path resolved at render
// time against Render.Modules (populated from Settings.ExtraBuiltins or a
// caller-registered module table).
type importExpr struct{ path string }

func (i *importExpr) Eval(r *runtime.Render) (interface{}, error) {
	if r.Modules != nil {
		if v, ok := r.Modules[i.path]; ok {
			return v, nil
		}
	}
	return nil, runtime.NewNameError("no module registered for import: %q", i.path)
}

func compileImport(payload string) (Expr, error) {
	return &importExpr{path: strings.TrimSpace(payload)}, nil
}

// loadExpr implements load:, resolving a template path through
// Render.LoadTemplate (wired by the template driver from its Resolver, not
// relative to the current template), returning a template reference usable
// as a macro source by metal:use-macro.
type loadExpr struct{ ref string }

func (l *loadExpr) Eval(r *runtime.Render) (interface{}, error) {
	if r.LoadTemplate == nil {
		return nil, runtime.NewNameError("load: is not available outside a template driver")
	}
	v, err := r.LoadTemplate(l.ref)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func compileLoad(payload string) (Expr, error) {
	return &loadExpr{ref: strings.TrimSpace(payload)}, nil
}

// structureExpr implements structure:, marking its result pre-escaped so
// the content-insertion algorithm skips HTML-escaping it.
type structureExpr struct{ inner Expr }

func (s *structureExpr) Eval(r *runtime.Render) (interface{}, error) {
	v, err := s.inner.Eval(r)
	if err != nil {
		return nil, err
	}
	if runtime.IsNothing(v) || runtime.IsDefault(v) {
		return v, nil
	}
	if _, ok := v.(runtime.HTMLCapable); ok {
		return v, nil
	}
	text, err := runtime.Stringify(v)
	if err != nil {
		return nil, err
	}
	return runtime.Markup(text), nil
}

func compileStructure(payload string) (Expr, error) {
	ast, err := ParseExpr(payload)
	if err != nil {
		return nil, err
	}
	return &structureExpr{inner: ast}, nil
}

// catchableByPipe reports whether err is one of the four kinds the spec's
// pipe fallback and exists: are allowed to intercept (AttributeError,
// LookupError, TypeError, NameError), looking through any *RenderError
// wrapper. RuntimeError-equivalents (runtime.Unrecoverable) are never
// caught.
func catchableByPipe(err error) bool {
	if err == nil {
		return false
	}
	var exprErr *runtime.ExprError
	if asExprError(err, &exprErr) {
		return true
	}
	var unrec *runtime.Unrecoverable
	if asUnrecoverable(err, &unrec) {
		return false
	}
	return true
}

func asExprError(err error, target **runtime.ExprError) bool {
	for err != nil {
		if e, ok := err.(*runtime.ExprError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func asUnrecoverable(err error, target **runtime.Unrecoverable) bool {
	for err != nil {
		if e, ok := err.(*runtime.Unrecoverable); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
