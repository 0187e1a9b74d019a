package runtime

import (
	"fmt"
	"reflect"
	"strings"
)

// Repeat is the per-iteration state object bound into the RepeatDict under
// the loop variable's name for the lifetime of one tal:repeat loop.
type Repeat struct {
	index int
	seq   []interface{}
}

func newRepeat(seq []interface{}) *Repeat {
	return &Repeat{index: -1, seq: seq}
}

// Advance moves to the next item, returning false once the sequence is
// exhausted. The compiler's tal:repeat lowering calls this once per
// iteration, having obtained r from RepeatDict.Enter.
func (r *Repeat) Advance() bool {
	r.index++
	return r.index < len(r.seq)
}

// Value returns the current item.
func (r *Repeat) Value() interface{} {
	if r.index < 0 || r.index >= len(r.seq) {
		return nil
	}
	return r.seq[r.index]
}

// Index is the zero-based position of the current item.
func (r *Repeat) Index() int { return r.index }

// Number is the one-based position of the current item.
func (r *Repeat) Number() int { return r.index + 1 }

// Even reports whether Index is even.
func (r *Repeat) Even() bool { return r.index%2 == 0 }

// Odd reports whether Index is odd.
func (r *Repeat) Odd() bool { return r.index%2 != 0 }

// Start reports whether this is the first item.
func (r *Repeat) Start() bool { return r.index == 0 }

// End reports whether this is the last item.
func (r *Repeat) End() bool { return r.index == len(r.seq)-1 }

// Length is the total number of items in the sequence.
func (r *Repeat) Length() int { return len(r.seq) }

// Letter renders Number as a lowercase base-26 letter sequence (a, b, c,
// ..., z, aa, ab, ...).
func (r *Repeat) Letter() string { return letterize(r.Number()) }

// UpperLetter renders Number as an uppercase base-26 letter sequence.
// Exposed to templates as "Letter" per the spec's capitalised accessor name.
func (r *Repeat) UpperLetter() string { return strings.ToUpper(letterize(r.Number())) }

// Roman renders Number as a lowercase roman numeral.
func (r *Repeat) Roman() string { return strings.ToLower(romanize(r.Number())) }

// UpperRoman renders Number as an uppercase roman numeral. Exposed to
// templates as "Roman".
func (r *Repeat) UpperRoman() string { return romanize(r.Number()) }

// First reports whether the current item starts a new group. With no path
// arguments it compares the whole item against the previous one; with a
// dotted path it compares only that sub-field (the legacy grouping
// semantics described by the spec: repeat.x.first('key.path')).
func (r *Repeat) First(path ...string) bool {
	if r.index == 0 {
		return true
	}
	return !equalAt(r.seq[r.index-1], r.seq[r.index], path)
}

// Last reports whether the current item ends a group, mirroring First.
func (r *Repeat) Last(path ...string) bool {
	if r.index == len(r.seq)-1 {
		return true
	}
	return !equalAt(r.seq[r.index], r.seq[r.index+1], path)
}

func equalAt(a, b interface{}, path []string) bool {
	av, bv := a, b
	for _, p := range path {
		for _, k := range strings.Split(p, ".") {
			av = fieldOrItem(av, k)
			bv = fieldOrItem(bv, k)
		}
	}
	return reflect.DeepEqual(av, bv)
}

// fieldOrItem implements the same attribute-then-item fallback as the
// expression evaluator, restricted to a single plain key, for legacy
// repeat.x.first('key') grouping.
func fieldOrItem(v interface{}, key string) interface{} {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key))
		if mv.IsValid() {
			return mv.Interface()
		}
	case reflect.Struct:
		fv := rv.FieldByName(key)
		if fv.IsValid() {
			return fv.Interface()
		}
	}
	return nil
}

func letterize(n int) string {
	if n <= 0 {
		return ""
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('a' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

var romanTable = []struct {
	val    int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func romanize(n int) string {
	if n <= 0 {
		return ""
	}
	var buf strings.Builder
	for _, entry := range romanTable {
		for n >= entry.val {
			buf.WriteString(entry.symbol)
			n -= entry.val
		}
	}
	return buf.String()
}

// repeatAccessors maps the spec's repeat-accessor names to the Repeat method
// that serves them. Templates address Repeat by these names directly (e.g.
// "repeat.x.number"), but the Go methods below are capitalized, so
// accessAttribute consults this table instead of its generic reflect lookup.
var repeatAccessors = map[string]func(*Repeat) interface{}{
	"index":  func(r *Repeat) interface{} { return r.Index() },
	"number": func(r *Repeat) interface{} { return r.Number() },
	"even":   func(r *Repeat) interface{} { return r.Even() },
	"odd":    func(r *Repeat) interface{} { return r.Odd() },
	"start":  func(r *Repeat) interface{} { return r.Start() },
	"end":    func(r *Repeat) interface{} { return r.End() },
	"length": func(r *Repeat) interface{} { return r.Length() },
	"letter": func(r *Repeat) interface{} { return r.Letter() },
	"Letter": func(r *Repeat) interface{} { return r.UpperLetter() },
	"roman":  func(r *Repeat) interface{} { return r.Roman() },
	"Roman":  func(r *Repeat) interface{} { return r.UpperRoman() },
	"first":  func(r *Repeat) interface{} { return r.First },
	"last":   func(r *Repeat) interface{} { return r.Last },
}

// Attr resolves name against r as a repeat accessor, per repeatAccessors.
// "first" and "last" resolve to the bound method itself so a trailing
// "(path)" call in the template expression can still supply grouping args.
func (r *Repeat) Attr(name string) (interface{}, bool) {
	fn, ok := repeatAccessors[name]
	if !ok {
		return nil, false
	}
	return fn(r), true
}

// RepeatDict is the runtime mapping from a tal:repeat loop variable name to
// its active Repeat record. Entries exist only while their loop is active;
// nested loops shadow an outer entry of the same name only for the duration
// of the inner loop, restoring it on exit.
type RepeatDict struct {
	entries map[string]*Repeat
	shadow  map[string][]*Repeat
}

// NewRepeatDict creates an empty repeat dictionary for one render.
func NewRepeatDict() *RepeatDict {
	return &RepeatDict{entries: map[string]*Repeat{}, shadow: map[string][]*Repeat{}}
}

// Enter installs a new Repeat under name, saving any existing entry so it
// can be restored by Exit.
func (d *RepeatDict) Enter(name string, seq []interface{}) *Repeat {
	if prev, ok := d.entries[name]; ok {
		d.shadow[name] = append(d.shadow[name], prev)
	}
	r := newRepeat(seq)
	d.entries[name] = r
	return r
}

// Exit removes the Repeat installed by the matching Enter call, restoring
// whatever entry (if any) it had shadowed.
func (d *RepeatDict) Exit(name string) {
	stack := d.shadow[name]
	if len(stack) > 0 {
		d.entries[name] = stack[len(stack)-1]
		d.shadow[name] = stack[:len(stack)-1]
		return
	}
	delete(d.entries, name)
}

// Get resolves repeat[name] for TALES' "repeat" builtin.
func (d *RepeatDict) Get(name string) (*Repeat, bool) {
	r, ok := d.entries[name]
	return r, ok
}

// ToSequence coerces an arbitrary value produced by a repeat expression into
// a slice of items: a slice or array yields its elements in order, a map
// its values (in Go's unspecified map order), and a string its runes; any
// other kind is reported as not iterable.
func ToSequence(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	case reflect.Map:
		keys := rv.MapKeys()
		out := make([]interface{}, len(keys))
		for i, k := range keys {
			out[i] = rv.MapIndex(k).Interface()
		}
		return out, nil
	case reflect.String:
		s := rv.String()
		out := make([]interface{}, 0, len(s))
		for _, r := range s {
			out = append(out, string(r))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T is not iterable", v)
	}
}
