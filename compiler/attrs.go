package compiler

import (
	"reflect"
	"sort"
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// attrEntry is one attribute slot in the output tag, in emission order.
type attrEntry struct {
	Name    string
	Quote   byte // 0 for an unquoted/bare static attribute left untouched
	NoValue bool // true for a bare static attribute written without "=value" at all
	Text    string
}

// writeAttributes runs the attribute-writer algorithm of spec §4.G.4 and
// returns the formatted " name=\"value\" ..." text to splice after the tag
// name (a leading space before each attribute, none trailing).
func (e *ElemNode) writeAttributes(r *runtime.Render) (string, error) {
	entries, order := e.seedAttrEntries()

	if err := e.resolveInterpolatedStatics(r, entries); err != nil {
		return "", err
	}

	for _, aa := range e.AttrAssigns {
		if err := e.applyAttrAssign(r, aa, entries, &order); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for _, key := range order {
		en, ok := entries[key]
		if !ok {
			continue
		}
		b.WriteByte(' ')
		writeAttrEntry(&b, en)
	}
	return b.String(), nil
}

func writeAttrEntry(b *strings.Builder, en *attrEntry) {
	if en.NoValue {
		b.WriteString(en.Name)
		return
	}
	q := en.Quote
	if q == 0 {
		q = '"'
	}
	b.WriteString(en.Name)
	b.WriteByte('=')
	b.WriteByte(q)
	b.WriteString(en.Text)
	b.WriteByte(q)
}

// seedAttrEntries builds the base map from e.StaticAttrs, in source order.
func (e *ElemNode) seedAttrEntries() (map[string]*attrEntry, []string) {
	entries := make(map[string]*attrEntry, len(e.StaticAttrs))
	order := make([]string, 0, len(e.StaticAttrs))
	for _, sa := range e.StaticAttrs {
		key := strings.ToLower(sa.Name)
		entries[key] = &attrEntry{Name: sa.Name, Quote: sa.Quote, NoValue: !sa.HasEq, Text: sa.Value}
		order = append(order, key)
	}
	return entries, order
}

// resolveInterpolatedStatics evaluates every static attribute's "${...}"
// interpolation against r, replacing its entry's text. A single bare
// "${expr}" that evaluates to Nothing/None drops the attribute; in a mixed
// value such a part contributes no text. A value produced by a single bare "${expr}"
// interpolation (no surrounding literal text) keeps its native Go type
// through to the boolean-attribute check; a mixed literal+expression value
// is coerced to its stringified form first, matching the spec's narrower
// guarantee for that case.
func (e *ElemNode) resolveInterpolatedStatics(r *runtime.Render, entries map[string]*attrEntry) error {
	for _, sa := range e.StaticAttrs {
		if sa.Interp == nil {
			continue
		}
		key := strings.ToLower(sa.Name)
		if len(sa.Interp) == 1 && sa.Interp[0].Expr != nil {
			v, err := sa.Interp[0].Expr.Eval(r)
			if err != nil {
				return r.Wrap(err, "")
			}
			if runtime.IsNothing(v) {
				delete(entries, key)
				continue
			}
			e.setAttrFromValue(entries, nil, sa.Name, v)
			continue
		}
		text, err := evalAttrInterp(r, sa.Interp)
		if err != nil {
			return err
		}
		entries[key] = &attrEntry{Name: sa.Name, Text: text}
	}
	return nil
}

func evalAttrInterp(r *runtime.Render, parts []interpPart) (string, error) {
	var b strings.Builder
	for _, p := range parts {
		if p.Expr == nil {
			b.WriteString(p.Literal)
			continue
		}
		v, err := p.Expr.Eval(r)
		if err != nil {
			return "", r.Wrap(err, "")
		}
		if runtime.IsNothing(v) || runtime.IsDefault(v) {
			continue
		}
		if hc, ok := v.(runtime.HTMLCapable); ok {
			b.WriteString(hc.HTML())
			continue
		}
		s, err := runtime.Stringify(v)
		if err != nil {
			return "", r.Wrap(err, "")
		}
		b.WriteString(runtime.EscapeAttributeValue(s))
	}
	return b.String(), nil
}

// applyAttrAssign evaluates one tal:attributes/i18n:attributes entry and
// mutates entries/order in place, following spec §4.G.4's None/default/
// dict/case-insensitive rules.
func (e *ElemNode) applyAttrAssign(r *runtime.Render, aa AttrAssign, entries map[string]*attrEntry, order *[]string) error {
	key := strings.ToLower(aa.Name)

	if aa.IsI18N {
		return e.applyI18NAttr(r, aa, entries, key, order)
	}

	v, err := aa.Expr.Eval(r)
	if err != nil {
		return r.Wrap(err, "")
	}
	if runtime.IsNothing(v) {
		delete(entries, key)
		return nil
	}
	if runtime.IsDefault(v) {
		// Leave any existing static value in place; if the attribute never
		// had one, there is nothing to revert to.
		return nil
	}
	if rv := reflect.ValueOf(v); rv.IsValid() && rv.Kind() == reflect.Map {
		delete(entries, key)
		return addDictAttrs(e, rv, entries, order)
	}
	e.setAttrFromValue(entries, order, aa.Name, v)
	return nil
}

// applyI18NAttr implements i18n:attributes: the resolved current value of
// the attribute (or an explicit msgid) is run through the translation
// callable and the result replaces the attribute's text.
func (e *ElemNode) applyI18NAttr(r *runtime.Render, aa AttrAssign, entries map[string]*attrEntry, key string, order *[]string) error {
	current := ""
	if en, ok := entries[key]; ok {
		current = en.Text
	}
	msgid := aa.I18NMsgID
	if msgid == "" {
		msgid = current
	}
	text, err := runtime.Invoke(r.Translate, msgid, e.I18NInherited.Domain, nil, e.I18NInherited.Context, "", current)
	if err != nil {
		return r.Wrap(err, "")
	}
	e.setAttrFromValue(entries, order, aa.Name, text)
	return nil
}

// setAttrFromValue installs v under name, applying the boolean-attribute
// coercion (spec §4.G.4: name in the configured set => truthy becomes
// name="name", falsy drops the attribute) before falling back to the
// ordinary stringify-and-escape path. order may be nil when the caller
// knows the key already has an order slot (the static-interpolation path).
func (e *ElemNode) setAttrFromValue(entries map[string]*attrEntry, order *[]string, name string, v interface{}) {
	key := strings.ToLower(name)
	if e.BooleanAttrs[key] {
		if !runtime.Truthy(v) {
			delete(entries, key)
			return
		}
		_, existed := entries[key]
		entries[key] = &attrEntry{Name: name, Text: name}
		if order != nil && !existed {
			*order = append(*order, key)
		}
		return
	}
	text, _ := runtime.Stringify(v)
	if hc, ok := v.(runtime.HTMLCapable); ok {
		text = hc.HTML()
	} else {
		text = runtime.EscapeAttributeValue(text)
	}
	_, existed := entries[key]
	entries[key] = &attrEntry{Name: name, Text: text}
	if order != nil && !existed {
		*order = append(*order, key)
	}
}

// addDictAttrs expands a dict-typed tal:attributes value into one output
// attribute per map entry (spec §4.G.4's "dict value contributes its
// entries as dynamic attributes" rule), in sorted key order for
// determinism.
func addDictAttrs(e *ElemNode, rv reflect.Value, entries map[string]*attrEntry, order *[]string) error {
	keys := rv.MapKeys()
	names := make([]string, len(keys))
	byName := make(map[string]reflect.Value, len(keys))
	for i, k := range keys {
		s := toAttrKeyString(k)
		names[i] = s
		byName[s] = rv.MapIndex(k)
	}
	sort.Strings(names)
	for _, name := range names {
		e.setAttrFromValue(entries, order, name, byName[name].Interface())
	}
	return nil
}

func toAttrKeyString(k reflect.Value) string {
	if k.Kind() == reflect.String {
		return k.String()
	}
	s, _ := runtime.Stringify(k.Interface())
	return s
}

// staticAttrsOnly formats the element's original static attributes exactly
// as written, used by tal:on-error's fallback tag (spec §4.G.8: "keeping
// static attributes; dynamic attributes are dropped").
func staticAttrsOnly(attrs []StaticAttr) string {
	var b strings.Builder
	for _, sa := range attrs {
		b.WriteByte(' ')
		if !sa.HasEq {
			b.WriteString(sa.Name)
			continue
		}
		q := sa.Quote
		if q == 0 {
			q = '"'
		}
		b.WriteString(sa.Name)
		b.WriteByte('=')
		b.WriteByte(q)
		b.WriteString(sa.Value)
		b.WriteByte(q)
	}
	return b.String()
}
