package parse

import (
	"fmt"
	"sort"
	"strings"
)

// Canonical namespace URIs recognized by the statement binder, per spec §6.
const (
	NSTal   = "http://xml.zope.org/namespaces/tal"
	NSMetal = "http://xml.zope.org/namespaces/metal"
	NSI18N  = "http://xml.zope.org/namespaces/i18n"
	NSMeta  = "http://xml.zope.org/namespaces/meta"

	// NSChameleon is the CHAMELEON default namespace: a document may
	// declare this as its default (unprefixed) xmlns and write bare
	// attribute names ("content" instead of "tal:content"); this
	// implementation recognizes the conventional tal/metal/i18n/meta
	// prefixes unconditionally instead, which is a strict superset of
	// what a declared default namespace would add, so NSChameleon is
	// tracked only so BindOptions.RestrictedNamespace can allow it
	// explicitly as a "recognized" URI.
	NSChameleon = "http://namespaces.repoze.org/tal"
)

// conventionalPrefixes seeds the namespace-prefix stack so that templates
// which never declare xmlns:tal etc. (the common case in hand-authored
// input) still have their tal:/metal:/i18n:/meta: attributes recognized,
// matching the spec's "permissive" parser design note. An explicit
// xmlns:prefix="..." declaration anywhere up the tree overrides these.
var conventionalPrefixes = map[string]string{
	"tal":   NSTal,
	"metal": NSMetal,
	"i18n":  NSI18N,
	"meta":  NSMeta,
}

// BindOptions configures the namespace filter & statement binder (spec
// §4.C).
type BindOptions struct {
	// EnableDataAttributes recognizes HTML5 "data-tal-*" control
	// attributes as an alternative surface for the TAL namespace.
	EnableDataAttributes bool
	// RestrictedNamespace rejects attributes in an unrecognized namespace
	// instead of passing them through untouched.
	RestrictedNamespace bool
}

// LanguageError is the spec's LanguageError subkind of TemplateError:
// illegal statement combinations, unknown control names, or (in strict
// mode) attributes in an unrecognized namespace.
type LanguageError struct {
	Message string
	Span    Span
}

func (e *LanguageError) Error() string {
	return fmt.Sprintf("line %d column %d: %s", e.Span.Line, e.Span.Column, e.Message)
}

// Bind walks doc's element tree and lifts every recognized control
// attribute off its element into a *Statement, appended to
// Element.Statements. Statements whose kind has a position in the fixed
// execution order (StatementKind.Order) are stably sorted into that order;
// the macro/slot, i18n and meta statements, which have none, follow them in
// source order.
func Bind(doc *Document, opts BindOptions) error {
	b := &binder{opts: opts}
	root := map[string]string{}
	for k, v := range conventionalPrefixes {
		root[k] = v
	}
	if doc.Root != nil {
		return b.element(doc.Root, root)
	}
	return nil
}

type binder struct {
	opts BindOptions
}

func (b *binder) element(el *Element, inherited map[string]string) error {
	prefixes := b.declaredPrefixes(el, inherited)

	var kept []*Attribute
	var stmts []*Statement
	for _, a := range el.Attrs {
		uri, local, recognized := b.resolve(a, prefixes)
		if !recognized {
			if b.opts.RestrictedNamespace && looksNamespaced(a.RawName) && uri == "" {
				return &LanguageError{
					Message: "attribute " + a.RawName + " is in an unrecognized namespace",
					Span:    a.span,
				}
			}
			kept = append(kept, a)
			continue
		}
		a.Name = QName{URI: uri, Local: local}
		parsed, err := bindAttribute(uri, local, a)
		if err != nil {
			return err
		}
		stmts = append(stmts, parsed...)
		if uri == NSMeta && local == "interpolation" {
			// meta:interpolation is recorded as a statement and dropped
			// from the static attributes like any other recognized
			// control attribute; the compiler does not act on it.
			continue
		}
	}
	rank := func(k StatementKind) int {
		if o, ok := k.Order(); ok {
			return o
		}
		return len(fixedOrder)
	}
	sort.SliceStable(stmts, func(i, j int) bool { return rank(stmts[i].Kind) < rank(stmts[j].Kind) })
	el.Attrs = kept
	el.Statements = append(el.Statements, stmts...)

	for _, c := range el.Children {
		if child, ok := c.(*Element); ok {
			if err := b.element(child, prefixes); err != nil {
				return err
			}
		}
	}
	return nil
}

// declaredPrefixes returns the prefix->URI map visible inside el: a copy of
// inherited, updated by any xmlns:prefix="..." attributes el declares. The
// xmlns declarations themselves are removed from el's static attribute list
// when they target a recognized control namespace (they carry no rendering
// meaning); declarations for unrelated namespaces are left in place for
// fidelity.
func (b *binder) declaredPrefixes(el *Element, inherited map[string]string) map[string]string {
	out := make(map[string]string, len(inherited))
	for k, v := range inherited {
		out[k] = v
	}
	var kept []*Attribute
	changed := false
	for _, a := range el.Attrs {
		if a.RawName == "xmlns" {
			if isControlURI(a.Raw) {
				changed = true
				continue
			}
			kept = append(kept, a)
			continue
		}
		if strings.HasPrefix(a.RawName, "xmlns:") {
			prefix := a.RawName[len("xmlns:"):]
			out[prefix] = a.Raw
			if isControlURI(a.Raw) {
				changed = true
				continue
			}
			kept = append(kept, a)
			continue
		}
		kept = append(kept, a)
	}
	if changed {
		el.Attrs = kept
	}
	return out
}

func isControlURI(uri string) bool {
	switch uri {
	case NSTal, NSMetal, NSI18N, NSMeta, NSChameleon:
		return true
	}
	return false
}

func looksNamespaced(rawName string) bool {
	return strings.ContainsRune(rawName, ':')
}

// resolve reports the control-namespace URI and bare statement local name
// for attribute a, and whether it is recognized at all (prefixed form
// resolving to one of the four canonical URIs, or the data-tal-* form when
// enabled).
func (b *binder) resolve(a *Attribute, prefixes map[string]string) (uri, local string, ok bool) {
	raw := a.RawName
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		prefix, name := raw[:i], raw[i+1:]
		if u, found := prefixes[prefix]; found && isControlURI(u) {
			return u, strings.ToLower(name), true
		}
		return "", "", false
	}
	if b.opts.EnableDataAttributes && strings.HasPrefix(raw, "data-tal-") {
		return NSTal, strings.ToLower(raw[len("data-tal-"):]), true
	}
	if b.opts.EnableDataAttributes && strings.HasPrefix(raw, "data-metal-") {
		return NSMetal, strings.ToLower(raw[len("data-metal-"):]), true
	}
	if b.opts.EnableDataAttributes && strings.HasPrefix(raw, "data-i18n-") {
		return NSI18N, strings.ToLower(raw[len("data-i18n-"):]), true
	}
	return "", "", false
}
