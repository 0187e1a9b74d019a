package parse

import (
	"fmt"
	"strings"
)

// ParseError is the spec's ParseError subkind of TemplateError: a tokenizer
// or parser failure citing literal input.
type ParseError struct {
	Message string
	Span    Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d column %d: %s", e.Span.Line, e.Span.Column, e.Message)
}

// Parser consumes a token channel and builds an element tree.
type Parser struct {
	in      <-chan Token
	buf     []Token
	strict  bool
	encName string
}

// Options configures parsing behaviour that the spec's Settings influence
// before the namespace filter ever runs.
type Options struct {
	Strict   bool // not consulted by the parser; the driver applies strict mode through BindOptions.RestrictedNamespace
	Encoding string
}

// Parse tokenizes and parses src, returning the element tree.
func Parse(src string, opts Options) (*Document, error) {
	p := &Parser{in: Lex(src), strict: opts.Strict, encName: opts.Encoding}
	return p.parseDocument()
}

func (p *Parser) next() Token {
	if len(p.buf) > 0 {
		t := p.buf[len(p.buf)-1]
		p.buf = p.buf[:len(p.buf)-1]
		return t
	}
	return <-p.in
}

func (p *Parser) backup(t Token) {
	p.buf = append(p.buf, t)
}

func (p *Parser) peek() Token {
	t := p.next()
	p.backup(t)
	return t
}

func (p *Parser) parseDocument() (*Document, error) {
	doc := &Document{}
	for {
		tok := p.next()
		switch tok.Type {
		case TokXMLDecl:
			doc.Decl = &XMLDecl{Raw: tok.Data, Encoding: extractEncoding(tok.Data), span: tok.Span}
		case TokDoctype:
			doc.Prologue = append(doc.Prologue, &Doctype{Raw: tok.Data, span: tok.Span})
		case TokComment:
			doc.Prologue = append(doc.Prologue, commentNode(tok))
		case TokPI:
			doc.Prologue = append(doc.Prologue, &PI{Target: piTarget(tok.Data), Raw: tok.Data, span: tok.Span})
		case TokText:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, &ParseError{Message: "unexpected text before root element", Span: tok.Span}
			}
		case TokStartTagOpen:
			el, err := p.parseElement(tok)
			if err != nil {
				return nil, err
			}
			doc.Root = el
			return p.parseEpilogue(doc)
		case TokEOF:
			return doc, nil
		case TokError:
			return nil, &ParseError{Message: tok.Data, Span: tok.Span}
		default:
			return nil, &ParseError{Message: "unexpected " + tok.Type.String() + " before root element", Span: tok.Span}
		}
	}
}

func (p *Parser) parseEpilogue(doc *Document) (*Document, error) {
	for {
		tok := p.next()
		switch tok.Type {
		case TokEOF:
			return doc, nil
		case TokText:
			if strings.TrimSpace(tok.Data) != "" {
				return nil, &ParseError{Message: "unexpected text after root element", Span: tok.Span}
			}
		case TokComment:
			doc.Epilogue = append(doc.Epilogue, commentNode(tok))
		case TokPI:
			doc.Epilogue = append(doc.Epilogue, &PI{Target: piTarget(tok.Data), Raw: tok.Data, span: tok.Span})
		case TokError:
			return nil, &ParseError{Message: tok.Data, Span: tok.Span}
		default:
			return nil, &ParseError{Message: "unexpected " + tok.Type.String() + " after root element", Span: tok.Span}
		}
	}
}

// voidElements are HTML elements conventionally written without a matching
// end tag; the permissive parser does not require one for these names.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

func (p *Parser) parseElement(openTok Token) (*Element, error) {
	name := strings.TrimPrefix(openTok.Data, "<")
	el := &Element{
		RawName:      name,
		Name:         resolveName(name),
		StartTagSpan: openTok.Span,
		span:         openTok.Span,
	}

	for {
		tok := p.next()
		switch tok.Type {
		case TokAttribute:
			attr, err := parseAttribute(tok)
			if err != nil {
				return nil, err
			}
			el.Attrs = append(el.Attrs, attr)
		case TokTagClose:
			if tok.SelfClose {
				el.SelfClosing = true
				el.span.Length = tok.Span.End() - el.span.Offset
				return el, nil
			}
			goto children
		case TokError:
			return nil, &ParseError{Message: tok.Data, Span: tok.Span}
		default:
			return nil, &ParseError{Message: "unexpected " + tok.Type.String() + " in start tag", Span: tok.Span}
		}
	}

children:
	if voidElements[el.Name.Local] {
		el.OmitEndTag = true
	}
	for {
		tok := p.next()
		switch tok.Type {
		case TokText:
			el.Children = append(el.Children, &Text{Raw: tok.Data, span: tok.Span})
		case TokEntityRef:
			el.Children = append(el.Children, &Text{Raw: tok.Data, span: tok.Span})
		case TokComment:
			el.Children = append(el.Children, commentNode(tok))
		case TokCDATA:
			el.Children = append(el.Children, &CDataSection{Raw: tok.Data, span: tok.Span})
		case TokPI:
			el.Children = append(el.Children, &PI{Target: piTarget(tok.Data), Raw: tok.Data, span: tok.Span})
		case TokStartTagOpen:
			child, err := p.parseElement(tok)
			if err != nil {
				return nil, err
			}
			el.Children = append(el.Children, child)
		case TokEndTag:
			closedName := endTagName(tok.Data)
			if !strings.EqualFold(closedName, el.RawName) {
				if el.OmitEndTag {
					// permissive: a void element's "end tag" actually
					// belongs to an ancestor; treat it as closing this
					// element implicitly and let the caller re-see it.
					p.backup(tok)
					el.span.Length = tok.Span.Offset - el.span.Offset
					return el, nil
				}
				return nil, &ParseError{
					Message: fmt.Sprintf("mismatched end tag: expected </%s>, got %s", el.RawName, tok.Data),
					Span:    tok.Span,
				}
			}
			el.EndTagSpan = tok.Span
			el.span.Length = tok.Span.End() - el.span.Offset
			return el, nil
		case TokEOF:
			return nil, &ParseError{Message: "unexpected EOF: unclosed <" + el.RawName + ">", Span: tok.Span}
		case TokError:
			return nil, &ParseError{Message: tok.Data, Span: tok.Span}
		default:
			return nil, &ParseError{Message: "unexpected " + tok.Type.String(), Span: tok.Span}
		}
	}
}

func parseAttribute(tok Token) (*Attribute, error) {
	data := tok.Data
	eq := strings.IndexByte(data, '=')
	if eq < 0 {
		name := strings.TrimSpace(data)
		return &Attribute{RawName: name, Name: resolveName(strings.ToLower(name)), span: tok.Span}, nil
	}
	name := strings.TrimSpace(data[:eq])
	rest := strings.TrimSpace(data[eq+1:])
	var quote byte
	var raw string
	if len(rest) >= 2 && (rest[0] == '\'' || rest[0] == '"') && rest[len(rest)-1] == rest[0] {
		quote = rest[0]
		raw = rest[1 : len(rest)-1]
	} else {
		raw = rest
	}
	return &Attribute{
		RawName: name,
		Name:    resolveName(strings.ToLower(name)),
		Quote:   quote,
		HasEq:   true,
		Raw:     raw,
		span:    tok.Span,
	}, nil
}

// resolveName splits a raw "prefix:local" name into a QName. The URI is
// left empty here; the namespace filter (namespace.go) resolves prefixes
// against declared xmlns bindings and fills it in.
func resolveName(raw string) QName {
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		return QName{Local: raw[i+1:]}
	}
	return QName{Local: raw}
}

func endTagName(data string) string {
	s := strings.TrimPrefix(data, "</")
	s = strings.TrimSuffix(s, ">")
	return strings.TrimSpace(s)
}

func piTarget(raw string) string {
	s := strings.TrimPrefix(raw, "<?")
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '?' {
			return s[:i]
		}
	}
	return s
}

func commentNode(tok Token) *Comment {
	inner := strings.TrimSuffix(strings.TrimPrefix(tok.Data, "<!--"), "-->")
	c := &Comment{Raw: tok.Data, span: tok.Span}
	switch {
	case strings.HasPrefix(inner, "!"):
		c.Drop = true
	case strings.HasPrefix(inner, "?"):
		c.Verbatim = true
	}
	return c
}

func extractEncoding(decl string) string {
	idx := strings.Index(decl, "encoding")
	if idx < 0 {
		return ""
	}
	rest := decl[idx+len("encoding"):]
	eq := strings.IndexByte(rest, '=')
	if eq < 0 {
		return ""
	}
	rest = strings.TrimSpace(rest[eq+1:])
	if len(rest) == 0 {
		return ""
	}
	q := rest[0]
	if q != '\'' && q != '"' {
		return ""
	}
	end := strings.IndexByte(rest[1:], q)
	if end < 0 {
		return ""
	}
	return rest[1 : 1+end]
}
