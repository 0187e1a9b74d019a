package parse

// QName is a namespace-qualified element or attribute name.
type QName struct {
	URI   string
	Local string
}

// Node is one child of an element: another Element, a text run, a comment,
// a processing instruction, or a CDATA section.
type Node interface {
	node()
	Span() Span
}

// Text is a literal text run, stored exactly as written (including any
// entity references) so it can be reproduced byte for byte.
type Text struct {
	Raw  string
	span Span
}

func (*Text) node()         {}
func (t *Text) Span() Span  { return t.span }

// Comment is a "<!--...-->" node. Drop marks the "<!--! ... -->" variant
// (stripped entirely from output); Verbatim marks the "<!--? ... -->"
// variant (interpolation disabled inside it regardless of settings).
type Comment struct {
	Raw      string
	Drop     bool
	Verbatim bool
	span     Span
}

func (*Comment) node()        {}
func (c *Comment) Span() Span { return c.span }

// PI is a processing instruction, including the "<?python ... ?>" code
// block form.
type PI struct {
	Target string
	Raw    string
	span   Span
}

func (*PI) node()        {}
func (p *PI) Span() Span { return p.span }

// CDataSection is a "<![CDATA[...]]>" node.
type CDataSection struct {
	Raw  string
	span Span
}

func (*CDataSection) node()        {}
func (c *CDataSection) Span() Span { return c.span }

// Doctype is a "<!DOCTYPE ...>" node.
type Doctype struct {
	Raw  string
	span Span
}

func (*Doctype) node()        {}
func (d *Doctype) Span() Span { return d.span }

// XMLDecl is the leading "<?xml ...?>" declaration, if present.
type XMLDecl struct {
	Raw      string
	Encoding string
	span     Span
}

func (*XMLDecl) node()        {}
func (x *XMLDecl) Span() Span { return x.span }

// Attribute is one attribute occurrence on an element, preserving source
// order, quote style and raw value text.
type Attribute struct {
	RawName string // exactly as written, e.g. "tal:content" or "data-tal-content"
	Name    QName  // resolved namespace + local name, lowercased local name
	Quote   byte   // '\'', '"', or 0 for unquoted/bare
	HasEq   bool   // false for bare boolean-style attributes like "checked"
	Raw     string // the raw value text between quotes (or the unquoted run), undecoded
	span    Span
}

func (a *Attribute) Span() Span { return a.span }

// Element is one markup element: a qualified name, its attributes in
// source order, and its children.
type Element struct {
	Name         QName
	RawName      string
	Attrs        []*Attribute
	Children     []Node
	SelfClosing  bool
	OmitEndTag   bool // true for HTML void elements written without a matching end tag
	span         Span
	StartTagSpan Span
	EndTagSpan   Span

	// Statements is populated by the namespace filter (namespace.go).
	Statements []*Statement
}

func (*Element) node()        {}
func (e *Element) Span() Span { return e.span }

// Attr looks up an attribute by lowercased local name, namespace-agnostic.
func (e *Element) Attr(localName string) (*Attribute, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == localName {
			return a, true
		}
	}
	return nil, false
}

// RemoveAttr deletes every attribute whose local name is localName.
func (e *Element) RemoveAttr(localName string) {
	out := e.Attrs[:0]
	for _, a := range e.Attrs {
		if a.Name.Local != localName {
			out = append(out, a)
		}
	}
	e.Attrs = out
}

// Document is the root of a parsed template.
type Document struct {
	Decl     *XMLDecl
	Prologue []Node // doctype/comments/PIs before the root element
	Root     *Element
	Epilogue []Node
}
