package compiler

import (
	"github.com/malthe/chameleon/runtime"
	"github.com/malthe/chameleon/tales"
)

// ElemNode is the compiled form of one source element: the code generator
// lowers a *parse.Element plus its bound *parse.Statement list into one of
// these, which implements Op directly (spec §4.G's per-element program).
type ElemNode struct {
	TagName     string
	SelfClosing bool
	OmitEndTag  bool

	StaticAttrs []StaticAttr
	AttrAssigns []AttrAssign

	Define    []DefineEntry
	Switch    *SwitchSpec
	Condition tales.Expr
	Repeat    *RepeatSpec
	Content   *ContentSpec
	Replace   *ContentSpec
	OmitTag   *OmitSpec
	OnError   *OnErrorSpec
	Dummy     tales.Expr

	UseMacroRef tales.Expr // nil when this element is not use-macro/extend-macro
	IsExtend    bool
	fillers     map[string]func(*runtime.Render) error

	DefineMacroName string // "" when this element does not define a named macro

	DefineSlotName string // "" when this element is not metal:define-slot
	FillSlotName   string // recorded only; collectFillSlots finds fill-slot elements by their parse statements

	I18N          *I18NSpec
	I18NInherited i18nInherited

	// Children mirrors the source child order; ChildCases[i] is the
	// compiled tal:case expression of Children[i]'s source element, or nil
	// if that child carries no tal:case — read only when Switch != nil.
	Children   OpList
	ChildCases []tales.Expr

	// BooleanAttrs is the compile-time boolean-attribute name set (shared,
	// read-only, copied from Options by the builder) the attribute writer
	// consults for the name="name"/drop coercion rule.
	BooleanAttrs map[string]bool

	Loc Location
}

// i18n lazily allocates I18N so only elements that actually carry an
// i18n:* statement pay for it.
func (n *ElemNode) i18n() *I18NSpec {
	if n.I18N == nil {
		n.I18N = &I18NSpec{}
	}
	return n.I18N
}

// StaticAttr is an attribute whose value is not touched by tal:attributes:
// emitted exactly as written (subject only to Settings.TrimAttributeSpace).
type StaticAttr struct {
	Name  string
	Quote byte
	Value string
	HasEq bool
	// Interp is non-nil when Value contains "$" ("${...}" interpolation or
	// a "$$" escape; a bare "$name" is not interpolated in attributes);
	// writeAttributes evaluates it instead of using Value verbatim.
	Interp []interpPart
}

// AttrAssign is one tal:attributes or i18n:attributes entry, already
// compiled.
type AttrAssign struct {
	Name      string
	Expr      tales.Expr
	I18NMsgID string // "" unless this came from i18n:attributes
	IsI18N    bool
}

type SwitchSpec struct{ Value tales.Expr }

type RepeatSpec struct {
	Var  string
	Vars []string
	Seq  tales.Expr
}

type ContentSpec struct{ Expr tales.Expr }

type OmitSpec struct {
	Always bool
	Expr   tales.Expr
}

type OnErrorSpec struct{ Expr tales.Expr }

type DefineEntry struct {
	Target  string
	Targets []string
	Global  bool
	Expr    tales.Expr
}

// I18NSpec carries an element's translation-capture state: either the
// element itself is i18n:translate-marked (Translate true), or it merely
// contributes lexically-inherited domain/source/target/context to its
// subtree.
type I18NSpec struct {
	Translate bool
	MsgID     string // explicit i18n:translate value, "" to derive from text
	Domain    string
	Source    string
	Target    string
	Context   string
	Data      tales.Expr
	Ignore    bool
	NameOf    string         // set when this element is an i18n:name capture
	Names     map[string]int // name -> index into the translate element's Children, for direct i18n:name children
}

// Location is the filename/line/column an element's RenderError cites.
type Location struct {
	Filename string
	Line     int
	Column   int
}
