package compiler

import (
	"reflect"

	"github.com/malthe/chameleon/runtime"
)

// Exec implements the per-element algorithm of spec §4.G in the canonical
// statement order (define, switch, condition, repeat, case, content/
// replace, omit-tag, attributes, on-error, dummy), with metal:use-macro/
// metal:define-slot short-circuiting everything else when present.
func (e *ElemNode) Exec(r *runtime.Render) error {
	r.PushLocation(e.Loc.Filename, e.Loc.Line, e.Loc.Column)
	defer r.PopLocation()

	if e.UseMacroRef != nil {
		return e.execUseMacro(r)
	}
	if e.DefineSlotName != "" {
		if fn, ok := r.Slots.Resolve(e.DefineSlotName); ok {
			return fn(r)
		}
	}
	return e.renderBody(r)
}

// renderBody runs define, switch-value computation, condition gating, and
// (if present) the on-error wrapper around everything that follows.
func (e *ElemNode) renderBody(r *runtime.Render) error {
	if e.OnError != nil {
		return e.execWithOnError(r)
	}
	return e.renderGated(r)
}

// renderGated applies define and condition, then either loops the
// remaining steps once per tal:repeat item or runs them once.
func (e *ElemNode) renderGated(r *runtime.Render) error {
	r.Scope.PushFrame()
	defer r.Scope.PopFrame()

	for _, d := range e.Define {
		v, err := d.Expr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if err := bindTarget(r, d.Target, d.Targets, d.Global, v); err != nil {
			return r.Wrap(err, "")
		}
	}

	if e.Condition != nil {
		v, err := e.Condition.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if !runtime.Truthy(v) {
			return nil
		}
	}

	if e.Repeat != nil {
		return e.execRepeat(r)
	}
	return e.renderTagAndContent(r)
}

func (e *ElemNode) execRepeat(r *runtime.Render) error {
	v, err := e.Repeat.Seq.Eval(r)
	if err != nil {
		return r.Wrap(err, "")
	}
	seq, err := runtime.ToSequence(v)
	if err != nil {
		return r.Wrap(err, "")
	}
	name := e.Repeat.Var
	if name == "" && len(e.Repeat.Vars) > 0 {
		name = e.Repeat.Vars[0]
	}
	rep := r.Repeat.Enter(name, seq)
	defer r.Repeat.Exit(name)

	for rep.Advance() {
		r.Scope.PushFrame()
		item := rep.Value()
		bindErr := bindTarget(r, e.Repeat.Var, e.Repeat.Vars, false, item)
		var execErr error
		if bindErr == nil {
			execErr = e.renderTagAndContent(r)
		}
		r.Scope.PopFrame()
		if bindErr != nil {
			return r.Wrap(bindErr, "")
		}
		if execErr != nil {
			return execErr
		}
	}
	return nil
}

// bindTarget binds v to a plain target name, or unpacks it across a tuple
// target pattern, in either the innermost local frame or the global layer.
func bindTarget(r *runtime.Render, target string, targets []string, global bool, v interface{}) error {
	set := r.Scope.SetLocal
	if global {
		set = r.Scope.SetGlobal
	}
	if len(targets) == 0 {
		set(target, v)
		return nil
	}
	items, err := runtime.ToSequence(v)
	if err != nil {
		return err
	}
	if len(items) != len(targets) {
		return runtime.NewTypeError("cannot unpack %d values into %d targets", len(items), len(targets))
	}
	for i, name := range targets {
		set(name, items[i])
	}
	return nil
}

// renderTagAndContent writes one instance of the element: tal:replace
// (which may suppress the tag entirely), the start tag and its attributes,
// the content (tal:content, or children with switch/case gating), and the
// end tag.
func (e *ElemNode) renderTagAndContent(r *runtime.Render) error {
	if e.Replace != nil {
		v, err := e.Replace.Expr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if !runtime.IsDefault(v) {
			if runtime.IsNothing(v) {
				return nil
			}
			return r.Wrap(r.WriteValue(v, false), "")
		}
	}

	omit, err := e.omitTag(r)
	if err != nil {
		return err
	}

	attrsOut, err := e.writeAttributes(r)
	if err != nil {
		return err
	}

	if !omit {
		r.WriteString("<" + e.TagName)
		r.WriteString(attrsOut)
		if e.SelfClosing {
			r.WriteString(" />")
		} else {
			r.WriteString(">")
		}
	}

	if !e.SelfClosing {
		if err := e.renderContent(r); err != nil {
			return err
		}
		if !omit && !e.OmitEndTag {
			r.WriteString("</" + e.TagName + ">")
		}
	}

	if e.Dummy != nil {
		if _, err := e.Dummy.Eval(r); err != nil {
			return r.Wrap(err, "")
		}
	}
	return nil
}

func (e *ElemNode) omitTag(r *runtime.Render) (bool, error) {
	if e.OmitTag == nil {
		return false, nil
	}
	if e.OmitTag.Always {
		return true, nil
	}
	v, err := e.OmitTag.Expr.Eval(r)
	if err != nil {
		return false, r.Wrap(err, "")
	}
	if runtime.IsDefault(v) {
		return false, nil
	}
	return runtime.Truthy(v), nil
}

func (e *ElemNode) renderContent(r *runtime.Render) error {
	if e.Content != nil {
		v, err := e.Content.Expr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if !runtime.IsDefault(v) {
			if runtime.IsNothing(v) {
				return nil
			}
			return r.Wrap(r.WriteValue(v, false), "")
		}
	}
	if e.I18N != nil && e.I18N.Translate {
		return e.renderTranslated(r)
	}
	return e.renderChildren(r)
}

// renderChildren runs the element's children in source order. When the
// element carries tal:switch, a case-bearing child only renders if its
// tal:case value matches the switch value (or is the first "default"
// fallback, which renders after the other children when no sibling case
// matched); non-case children always render.
func (e *ElemNode) renderChildren(r *runtime.Render) error {
	if e.Switch == nil {
		return e.Children.Exec(r)
	}
	switchVal, err := e.Switch.Value.Eval(r)
	if err != nil {
		return r.Wrap(err, "")
	}
	matched := false
	defaultIdx := -1
	for i, child := range e.Children {
		caseExpr := e.ChildCases[i]
		if caseExpr == nil {
			if child == nil {
				continue
			}
			if err := child.Exec(r); err != nil {
				return err
			}
			continue
		}
		if matched {
			continue
		}
		cv, err := caseExpr.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if runtime.IsDefault(cv) {
			if defaultIdx < 0 {
				defaultIdx = i
			}
			continue
		}
		if valuesEqual(switchVal, cv) {
			matched = true
			if err := child.Exec(r); err != nil {
				return err
			}
		}
	}
	if !matched && defaultIdx >= 0 {
		return e.Children[defaultIdx].Exec(r)
	}
	return nil
}

func valuesEqual(a, b interface{}) bool {
	if af, aok := toComparableFloat(a); aok {
		if bf, bok := toComparableFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toComparableFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

// execWithOnError runs the element's normal rendering into a throwaway
// buffer so a mid-flight failure never leaks partial output, and on a
// catchable error substitutes the fallback tag described by spec §4.G.8:
// the static attributes only, plus the on-error expression's result as
// content.
func (e *ElemNode) execWithOnError(r *runtime.Render) error {
	sub := r.Fork()
	err := e.renderGated(sub)
	if err == nil {
		r.WriteString(sub.Buf.String())
		return nil
	}
	if !runtime.Catchable(err) {
		return err
	}
	return e.renderFallback(r, err)
}

// renderFallback evaluates the on-error expression with the caught error
// bound to the "error" name (spec §7: "the error variable is bound to the
// exception within that expression"), then writes the fallback tag.
func (e *ElemNode) renderFallback(r *runtime.Render, cause error) error {
	r.Scope.PushFrame()
	r.Scope.SetLocal("error", cause)
	v, err := e.OnError.Expr.Eval(r)
	r.Scope.PopFrame()
	if err != nil {
		return r.Wrap(err, "")
	}
	omit, oerr := e.omitTag(r)
	if oerr != nil {
		return oerr
	}
	if !omit {
		r.WriteString("<" + e.TagName)
		r.WriteString(staticAttrsOnly(e.StaticAttrs))
		if e.SelfClosing {
			r.WriteString(" />")
			return nil
		}
		r.WriteString(">")
	}
	if err := r.WriteValue(v, false); err != nil {
		return r.Wrap(err, "")
	}
	if !omit && !e.OmitEndTag {
		r.WriteString("</" + e.TagName + ">")
	}
	return nil
}
