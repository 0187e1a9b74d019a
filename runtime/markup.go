package runtime

import "strings"

// Markup is a string subtype that marks its content as already escaped, so
// that compositional insertions (one template's rendered output spliced
// into another's content) are never re-escaped. It is the concrete form of
// the "structure" insertion mode.
type Markup string

// HTML satisfies HTMLCapable so that Markup itself is recognised by the
// content-insertion algorithm.
func (m Markup) HTML() string { return string(m) }

// HTMLCapable is the contract the spec calls "a type that provides an
// __html__-style method": anything returning its own pre-escaped string is
// inserted as structure without further escaping. The method name here
// (HTML) is fixed; compiler.Options.HTMLMethod and Render.HTMLMethod only
// record that name.
type HTMLCapable interface {
	HTML() string
}

// EscapeString HTML-escapes '<', '>', '&' and '"' for text/attribute
// content, per spec testable property 8.
func EscapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// namedEntities is the fixed historical set the spec requires the engine to
// recognise when deciding whether an '&' already begins a valid entity:
// lt, gt, quot, amp, plus the numeric/hex forms.
var namedEntities = map[string]rune{
	"lt":   '<',
	"gt":   '>',
	"quot": '"',
	"amp":  '&',
}

// isEntityStart reports whether s[i:] begins a recognised entity reference
// (&name; or &#NNN; or &#xHH;), so EscapeAttributeValue can avoid
// double-escaping an '&' that is already part of one.
func isEntityStart(s string, i int) bool {
	if i >= len(s) || s[i] != '&' {
		return false
	}
	j := i + 1
	if j < len(s) && s[j] == '#' {
		j++
		if j < len(s) && (s[j] == 'x' || s[j] == 'X') {
			j++
		}
		start := j
		for j < len(s) && s[j] != ';' && j-start < 8 {
			j++
		}
		return j < len(s) && s[j] == ';' && j > start
	}
	start := j
	for j < len(s) && s[j] != ';' && j-start < 8 {
		j++
	}
	if j >= len(s) || s[j] != ';' || j == start {
		return false
	}
	_, ok := namedEntities[s[start:j]]
	return ok
}

// EscapeAttributeValue re-escapes '&' only where it is not already part of
// a valid entity, and always escapes '<', '>' and '"'. This matches the
// spec's entity table rule (§4.H): decoded expression source may already
// contain a literal entity the author intended to keep.
func EscapeAttributeValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r := s[i]
		switch r {
		case '&':
			if isEntityStart(s, i) {
				b.WriteByte('&')
				i++
				continue
			}
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteByte(r)
		}
		i++
	}
	return b.String()
}

// DecodeEntities decodes exactly the fixed historical set (&amp; &lt; &gt;
// &quot;) inside expression source text before it is handed to an
// expression compiler, per spec §4.H.
func DecodeEntities(s string) string {
	if !strings.Contains(s, "&") {
		return s
	}
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	)
	return replacer.Replace(s)
}
