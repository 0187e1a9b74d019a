package parse

// StatementKind tags the variant of a Statement, one per recognized control
// attribute in the TAL, METAL, I18N and META namespaces.
type StatementKind int

const (
	StmtDefine StatementKind = iota
	StmtSwitch
	StmtCondition
	StmtRepeat
	StmtCase
	StmtContent
	StmtReplace
	StmtOmitTag
	StmtAttributes
	StmtOnError
	StmtDefineMacro
	StmtUseMacro
	StmtExtendMacro
	StmtDefineSlot
	StmtFillSlot
	StmtI18NTranslate
	StmtI18NDomain
	StmtI18NSource
	StmtI18NTarget
	StmtI18NName
	StmtI18NAttributes
	StmtI18NData
	StmtI18NContext
	StmtMetaInterpolation
	// StmtDummy is the supplemented no-op "tal:dummy" statement: it
	// evaluates its expression for side effect (or for expressions whose
	// only purpose is a pipe-fallback probe) and discards the result.
	StmtDummy
	// StmtI18NIgnore is the supplemented "i18n:ignore" statement: marks a
	// subtree to be skipped entirely by implicit-i18n auto-detection.
	StmtI18NIgnore
)

func (k StatementKind) String() string {
	switch k {
	case StmtDefine:
		return "define"
	case StmtSwitch:
		return "switch"
	case StmtCondition:
		return "condition"
	case StmtRepeat:
		return "repeat"
	case StmtCase:
		return "case"
	case StmtContent:
		return "content"
	case StmtReplace:
		return "replace"
	case StmtOmitTag:
		return "omit-tag"
	case StmtAttributes:
		return "attributes"
	case StmtOnError:
		return "on-error"
	case StmtDefineMacro:
		return "define-macro"
	case StmtUseMacro:
		return "use-macro"
	case StmtExtendMacro:
		return "extend-macro"
	case StmtDefineSlot:
		return "define-slot"
	case StmtFillSlot:
		return "fill-slot"
	case StmtI18NTranslate:
		return "i18n-translate"
	case StmtI18NDomain:
		return "i18n-domain"
	case StmtI18NSource:
		return "i18n-source"
	case StmtI18NTarget:
		return "i18n-target"
	case StmtI18NName:
		return "i18n-name"
	case StmtI18NAttributes:
		return "i18n-attributes"
	case StmtI18NData:
		return "i18n-data"
	case StmtI18NContext:
		return "i18n-context"
	case StmtMetaInterpolation:
		return "meta-interpolation"
	case StmtDummy:
		return "dummy"
	case StmtI18NIgnore:
		return "i18n-ignore"
	default:
		return "unknown"
	}
}

// fixedOrder is the per-element execution order, independent of source
// attribute order: Bind sorts each element's statements by it, and package
// compiler executes the statements in this order. Statements not listed here (the i18n-* and
// macro/slot kinds) are consumed directly by dedicated passes rather than
// the generic per-element executor and so carry no position in this table.
var fixedOrder = map[StatementKind]int{
	StmtDefine:     0,
	StmtSwitch:     1,
	StmtCondition:  2,
	StmtRepeat:     3,
	StmtCase:       4,
	StmtContent:    5,
	StmtReplace:    5,
	StmtOmitTag:    6,
	StmtAttributes: 7,
	StmtOnError:    8,
	StmtDummy:      9,
}

// Order reports this statement's position in the fixed per-element
// execution order; ok is false (and the position 0) if it has none
// (macro/slot/i18n statements, which are handled by dedicated passes rather
// than the generic ordering table).
func (k StatementKind) Order() (int, bool) {
	v, ok := fixedOrder[k]
	return v, ok
}

// Statement is one recognized control attribute, lifted off its element by
// the namespace filter. Expr (and Pairs, for tal:attributes and
// i18n:attributes) carries the raw, unparsed
// expression-language source; the tales package compiles it later.
type Statement struct {
	Kind StatementKind

	// Expr is the raw expression/text payload for single-value
	// statements: condition, repeat's sequence half, content, replace,
	// use-macro, extend-macro, i18n-domain, i18n-source, i18n-target,
	// i18n-context, meta-interpolation's on/off literal, and so on.
	Expr string

	// Target names the bound identifier for statements that introduce
	// one: define's plain target, repeat's loop variable,
	// define-macro/define-slot/fill-slot's name, i18n:name's capture name.
	Target string

	// Targets holds the unpacked names when Target is a tuple pattern
	// "(a, b, c)"; empty otherwise.
	Targets []string

	// Global marks a `define` statement declared with the `global`
	// qualifier rather than the default local one.
	Global bool

	// Pairs holds the attribute-name/expression pairs of a tal:attributes
	// or i18n:attributes statement, in source order.
	Pairs []AttrExprPair

	// switch carries only Expr (the value expression); case values live
	// on the StmtCase statement of each child element, also in Expr.

	Span Span
}

// AttrExprPair is one "name expr" entry inside tal:attributes or
// i18n:attributes.
type AttrExprPair struct {
	Name string
	Expr string
}
