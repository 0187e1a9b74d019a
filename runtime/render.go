package runtime

import (
	"fmt"
	"strings"
)

// locFrame is one entry in the element-location stack a Render keeps so
// that a RenderError can cite the filename/line/column of the element whose
// body was executing when an expression failed.
type locFrame struct {
	Filename string
	Line     int
	Column   int
}

// Render is the per-render execution context threaded through a compiled
// program's Op tree. It holds everything that must not be shared between
// concurrent renders of the same cooked template: the output buffer, the
// variable Scope, the RepeatDict, and the translation callable.
type Render struct {
	Buf        strings.Builder
	Scope      *Scope
	Repeat     *RepeatDict
	Translate  Translate
	Macros     map[string]func(*Render) error
	locs       []locFrame
	Modules    map[string]interface{} // registered targets for TALES import:
	BooleanSet map[string]bool        // attribute names rendered as name="name"
	HTMLMethod string                 // documents the HTMLCapable contract; informational

	// LoadTemplate resolves a TALES load: reference through the template
	// driver's Resolver, which it is wired from. The reference is not
	// resolved relative to the currently rendering template: the default
	// DirResolver searches Settings.SearchPath (or the working directory
	// when that is empty). Nil when rendering outside a driver (e.g. in
	// package tales' own tests), in which case load: reports an error.
	LoadTemplate func(ref string) (interface{}, error)

	// Slots is the active metal:fill-slot stack for this render.
	Slots SlotStack

	// I18N is copied by Fork but never set by package compiler, which
	// keeps each element's inherited domain/source/target/context on the
	// compiled element itself.
	I18N I18NContext
}

// I18NContext is the inherited i18n:domain/source/target/context state, a
// plain value type copied (not pointer-shared) down the element tree so
// that macro/slot boundaries inherit it lexically rather than dynamically,
// per spec §4.F.
type I18NContext struct {
	Domain string
	Source string
	Target string
	Context string
}

// NewRender builds a fresh render context. builtins is the scope's
// non-redefinable layer; args is the render-time keyword layer.
func NewRender(builtins map[string]interface{}, args map[string]interface{}, translate Translate) *Render {
	return &Render{
		Scope:     NewScope(builtins, args),
		Repeat:    NewRepeatDict(),
		Translate: translate,
		Macros:    map[string]func(*Render) error{},
	}
}

// PushLocation records the element whose body is about to execute, for
// RenderError to cite if an expression inside it fails.
func (r *Render) PushLocation(filename string, line, col int) {
	r.locs = append(r.locs, locFrame{Filename: filename, Line: line, Column: col})
}

// PopLocation undoes the matching PushLocation.
func (r *Render) PopLocation() {
	if len(r.locs) == 0 {
		return
	}
	r.locs = r.locs[:len(r.locs)-1]
}

func (r *Render) currentLocation() locFrame {
	if len(r.locs) == 0 {
		return locFrame{}
	}
	return r.locs[len(r.locs)-1]
}

// Wrap implements the spec's error-tracking frame (§4.G.7): it records the
// failing expression's literal source slice and the current element's
// location, and returns a *RenderError — unless err is already Unrecoverable,
// in which case it passes through un-wrapped per "RuntimeError is never
// wrapped".
func (r *Render) Wrap(err error, source string) error {
	if err == nil {
		return nil
	}
	var unrec *Unrecoverable
	if isUnrecoverable(err, &unrec) {
		return err
	}
	loc := r.currentLocation()
	snap := map[string]string{}
	for _, k := range r.Scope.Keys() {
		v, _ := r.Scope.Get(k)
		snap[k] = Preview(v)
	}
	return &RenderError{
		Loc: Location{
			Filename: loc.Filename,
			Line:     loc.Line,
			Column:   loc.Column,
			Source:   source,
		},
		Err:       err,
		Variables: snap,
	}
}

func isUnrecoverable(err error, target **Unrecoverable) bool {
	for err != nil {
		if u, ok := err.(*Unrecoverable); ok {
			*target = u
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// Fork returns a new Render sharing this one's scope, repeat dictionary,
// translation callable, macro table, modules, settings and slot stack, but
// with its own output buffer and location stack — used by tal:on-error to
// render an element's risky body into a throwaway buffer that can be
// discarded without leaking partial output if it fails.
func (r *Render) Fork() *Render {
	return &Render{
		Scope:        r.Scope,
		Repeat:       r.Repeat,
		Translate:    r.Translate,
		Macros:       r.Macros,
		Modules:      r.Modules,
		BooleanSet:   r.BooleanSet,
		HTMLMethod:   r.HTMLMethod,
		LoadTemplate: r.LoadTemplate,
		Slots:        r.Slots,
		I18N:         r.I18N,
		locs:         append([]locFrame{}, r.locs...),
	}
}

// WriteString appends directly to the output buffer, bypassing escaping —
// callers are responsible for having already escaped or marked up s.
func (r *Render) WriteString(s string) { r.Buf.WriteString(s) }

// WriteEscaped HTML-escapes and writes s.
func (r *Render) WriteEscaped(s string) { r.Buf.WriteString(EscapeString(s)) }

// WriteValue implements the content-insertion coercion rules of §4.G.6:
// Default/Nothing emit nothing; Markup/HTMLCapable values are inserted
// unescaped; everything else is stringified and, by default, escaped.
func (r *Render) WriteValue(v interface{}, structureMode bool) error {
	if IsNothing(v) || IsDefault(v) {
		return nil
	}
	if hc, ok := v.(HTMLCapable); ok {
		r.WriteString(hc.HTML())
		return nil
	}
	s, err := Stringify(v)
	if err != nil {
		return err
	}
	if structureMode {
		r.WriteString(s)
		return nil
	}
	r.WriteEscaped(s)
	return nil
}

// Stringify coerces a non-string content value to its textual form,
// following the spec's "other non-string values ... are stringified" rule.
func Stringify(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case Markup:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}
