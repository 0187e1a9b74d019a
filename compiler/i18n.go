package compiler

import (
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// renderTranslated implements i18n:translate capture (spec §4.F/§4.H): the
// element's own children, rendered once with every direct i18n:name child
// replaced by a "${name}" placeholder, become the message id (unless an
// explicit msgid was written) and the default text; the same children
// rendered normally supply the substitution mapping. The fully-resolved
// content only ever reaches the output through the translation callable.
func (e *ElemNode) renderTranslated(r *runtime.Render) error {
	placeholder, err := e.renderPlaceholderText(r)
	if err != nil {
		return err
	}
	mapping, err := e.renderNameMapping(r)
	if err != nil {
		return err
	}

	defaultText := strings.TrimSpace(placeholder)
	msgidID := e.I18N.MsgID
	if msgidID == "" {
		msgidID = defaultText
	}
	if e.I18N.Data != nil {
		v, err := e.I18N.Data.Eval(r)
		if err != nil {
			return r.Wrap(err, "")
		}
		if s, err := runtime.Stringify(v); err == nil {
			defaultText = s
		}
	}

	var msgid interface{} = msgidID
	if len(mapping) > 0 || e.I18N.Data != nil {
		msgid = runtime.MessageID{
			ID:      msgidID,
			Default: defaultText,
			Mapping: mapping,
			Domain:  e.I18N.Domain,
			Context: e.I18N.Context,
		}
	}

	text, err := runtime.Invoke(r.Translate, msgid, e.I18N.Domain, mapping, e.I18N.Context, "", defaultText)
	if err != nil {
		return r.Wrap(err, "")
	}
	r.WriteEscaped(text)
	return nil
}

// renderPlaceholderText renders e's children into a scratch buffer, with
// every direct i18n:name child replaced by a literal "${name}" token
// instead of its own rendered output.
func (e *ElemNode) renderPlaceholderText(r *runtime.Render) (string, error) {
	var names map[int]string
	if e.I18N.Names != nil {
		names = make(map[int]string, len(e.I18N.Names))
		for name, idx := range e.I18N.Names {
			names[idx] = name
		}
	}
	sub := r.Fork()
	for i, child := range e.Children {
		if name, ok := names[i]; ok {
			sub.WriteString("${" + name + "}")
			continue
		}
		if child == nil {
			continue
		}
		if err := child.Exec(sub); err != nil {
			return "", err
		}
	}
	return sub.Buf.String(), nil
}

// renderNameMapping renders each direct i18n:name child normally, in its
// own scratch buffer, producing the substitution values Interpolate
// applies to the translated (or default) text.
func (e *ElemNode) renderNameMapping(r *runtime.Render) (map[string]interface{}, error) {
	if len(e.I18N.Names) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(e.I18N.Names))
	for name, idx := range e.I18N.Names {
		child := e.Children[idx]
		if child == nil {
			continue
		}
		sub := r.Fork()
		if err := child.Exec(sub); err != nil {
			return nil, err
		}
		out[name] = strings.TrimSpace(sub.Buf.String())
	}
	return out, nil
}
