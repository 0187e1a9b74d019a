package parse

// TokenType tags the lexical variant of a Token, per the data model in the
// specification: one of start-tag-open, attribute, tag-close, end-tag,
// text, comment, processing-instruction, CDATA, doctype, xml-declaration,
// entity-reference, plus the two bookkeeping kinds EOF and Error.
type TokenType int

const (
	TokText             TokenType = iota
	TokStartTagOpen               // "<name", Data = "<" plus the tag name as written
	TokAttribute                  // one attribute occurrence, Data = "name" or `name="value"` exactly as written
	TokTagClose                   // ">" or "/>" ending a start tag; SelfClose records which
	TokEndTag                     // "</name>", Data = full text including delimiters
	TokComment                    // "<!--...-->" including delimiters
	TokPI                         // "<?target ...?>", Data = full text including delimiters
	TokCDATA                      // "<![CDATA[...]]>", Data = full text including delimiters
	TokDoctype                    // "<!DOCTYPE ...>", Data = full text including delimiters
	TokXMLDecl                    // "<?xml ...?>", Data = full text including delimiters
	TokEntityRef                  // "&name;" or "&#NNN;", Data = full reference text
	TokEOF
	TokError
)

func (t TokenType) String() string {
	switch t {
	case TokText:
		return "text"
	case TokStartTagOpen:
		return "start-tag-open"
	case TokAttribute:
		return "attribute"
	case TokTagClose:
		return "tag-close"
	case TokEndTag:
		return "end-tag"
	case TokComment:
		return "comment"
	case TokPI:
		return "processing-instruction"
	case TokCDATA:
		return "CDATA"
	case TokDoctype:
		return "doctype"
	case TokXMLDecl:
		return "xml-declaration"
	case TokEntityRef:
		return "entity-reference"
	case TokEOF:
		return "EOF"
	case TokError:
		return "error"
	default:
		return "unknown"
	}
}

// Span is an exact source slice: byte offset, byte length, and the 1-based
// line/column the slice starts at, so any later diagnostic can cite literal
// template text.
type Span struct {
	Offset int
	Length int
	Line   int
	Column int
}

// End returns the offset one past the end of the span.
func (s Span) End() int { return s.Offset + s.Length }

// Token is one lexical unit produced by the tokenizer.
type Token struct {
	Type TokenType
	Data string // exact source text this token covers (decoding, if any, happens later)
	Span Span

	// SelfClose is set on a TokTagClose that closed a "<tag .../>" form.
	SelfClose bool
}
