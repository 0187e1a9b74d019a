package compiler

import (
	"fmt"
	"strings"

	"github.com/malthe/chameleon/parse"
	"github.com/malthe/chameleon/runtime"
	"github.com/malthe/chameleon/tales"
)

// compiler holds the state threaded through one Compile call: the options
// driving code generation and the accumulated macro table every
// metal:define-macro/metal:extend-macro element registers itself into.
type compiler struct {
	opts     Options
	macros   map[string]func(*runtime.Render) error
	filename string
}

// i18nInherited is the compile-time-known half of the lexical i18n state
// (domain/source/target/context): these are literal attribute values in
// this implementation, so unlike the runtime.I18NContext mirror they thread
// down the builder as plain strings rather than TALES expressions.
type i18nInherited struct {
	Domain, Source, Target, Context string
	Ignore                          bool
}

func (p i18nInherited) merge(s *parse.Statement, kind parse.StatementKind) i18nInherited {
	switch kind {
	case parse.StmtI18NDomain:
		p.Domain = s.Expr
	case parse.StmtI18NSource:
		p.Source = s.Expr
	case parse.StmtI18NTarget:
		p.Target = s.Expr
	case parse.StmtI18NContext:
		p.Context = s.Expr
	case parse.StmtI18NIgnore:
		p.Ignore = true
	}
	return p
}

func (c *compiler) buildNode(n parse.Node, inh i18nInherited) (Op, error) {
	switch t := n.(type) {
	case *parse.Text:
		return c.buildText(t)
	case *parse.Comment:
		return c.buildComment(t)
	case *parse.PI:
		return &RawOp{Raw: t.Raw}, nil
	case *parse.CDataSection:
		return &RawOp{Raw: t.Raw}, nil
	case *parse.Doctype:
		return &RawOp{Raw: t.Raw}, nil
	case *parse.XMLDecl:
		return &RawOp{Raw: t.Raw}, nil
	case *parse.Element:
		return c.buildElement(t, inh)
	default:
		return nil, fmt.Errorf("compiler: unsupported node type %T", n)
	}
}

func (c *compiler) buildText(t *parse.Text) (Op, error) {
	if !strings.Contains(t.Raw, "$") {
		return &TextOp{Raw: t.Raw}, nil
	}
	expr, ok, err := tales.LowerInterpolation(t.Raw)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &TextOp{Raw: t.Raw}, nil
	}
	parts, err := interpPartsOf(expr)
	if err != nil {
		return nil, err
	}
	return &TextInterpOp{Parts: parts}, nil
}

func (c *compiler) buildComment(cm *parse.Comment) (Op, error) {
	if cm.Drop {
		return nil, nil
	}
	if cm.Verbatim || !c.opts.EnableCommentInterpolation {
		return &RawOp{Raw: cm.Raw}, nil
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(cm.Raw, "<!--"), "-->")
	expr, ok, err := tales.LowerInterpolation(inner)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &RawOp{Raw: cm.Raw}, nil
	}
	parts, err := interpPartsOf(expr)
	if err != nil {
		return nil, err
	}
	return &CommentOp{Parts: parts}, nil
}

// interpPartsOf unpacks a *tales.StringExpr (the only concrete type
// LowerInterpolation/compileString ever returns) into this package's own
// part representation, since tales.stringPart itself is not an exported
// type compiler can name.
func interpPartsOf(expr tales.Expr) ([]interpPart, error) {
	sx, ok := expr.(*tales.StringExpr)
	if !ok {
		return []interpPart{{Expr: expr}}, nil
	}
	out := make([]interpPart, len(sx.Parts))
	for i, p := range sx.Parts {
		out[i] = interpPart{Literal: p.Literal, Expr: p.Expr}
	}
	return out, nil
}

// buildElement lowers one source element into an *ElemNode, recursing into
// its children. inh carries the i18n domain/source/target/context/ignore
// state inherited lexically from ancestors.
func (c *compiler) buildElement(el *parse.Element, inh i18nInherited) (Op, error) {
	n := &ElemNode{
		TagName:      el.RawName,
		SelfClosing:  el.SelfClosing,
		OmitEndTag:   el.OmitEndTag,
		BooleanAttrs: c.opts.BooleanAttributes,
		Loc:          Location{Filename: c.filename, Line: el.StartTagSpan.Line, Column: el.StartTagSpan.Column},
	}

	for _, a := range el.Attrs {
		sa, err := c.buildStaticAttr(a)
		if err != nil {
			return nil, err
		}
		n.StaticAttrs = append(n.StaticAttrs, sa)
	}

	var i18nAttrStmt *parse.Statement
	defaultExpr := c.opts.DefaultExpression

	for _, s := range el.Statements {
		switch s.Kind {
		case parse.StmtDefine:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.Define = append(n.Define, DefineEntry{Target: s.Target, Targets: s.Targets, Global: s.Global, Expr: expr})
		case parse.StmtSwitch:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.Switch = &SwitchSpec{Value: expr}
		case parse.StmtCondition:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.Condition = expr
		case parse.StmtRepeat:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.Repeat = &RepeatSpec{Var: s.Target, Vars: s.Targets, Seq: expr}
		case parse.StmtContent:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			if n.Replace != nil {
				return nil, &CompileError{Message: "an element cannot carry both tal:content and tal:replace", Loc: n.Loc}
			}
			n.Content = &ContentSpec{Expr: expr}
		case parse.StmtReplace:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			if n.Content != nil {
				return nil, &CompileError{Message: "an element cannot carry both tal:content and tal:replace", Loc: n.Loc}
			}
			n.Replace = &ContentSpec{Expr: expr}
		case parse.StmtOmitTag:
			if s.Expr == "" {
				n.OmitTag = &OmitSpec{Always: true}
			} else {
				expr, err := tales.CompileDefault(s.Expr, defaultExpr)
				if err != nil {
					return nil, wrapCompileErr(err, n.Loc)
				}
				n.OmitTag = &OmitSpec{Expr: expr}
			}
		case parse.StmtAttributes:
			for _, pair := range s.Pairs {
				expr, err := tales.CompileDefault(pair.Expr, defaultExpr)
				if err != nil {
					return nil, wrapCompileErr(err, n.Loc)
				}
				n.AttrAssigns = append(n.AttrAssigns, AttrAssign{Name: pair.Name, Expr: expr})
			}
		case parse.StmtOnError:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.OnError = &OnErrorSpec{Expr: expr}
		case parse.StmtDummy:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.Dummy = expr
		case parse.StmtCase:
			// Consumed by the parent element's buildChildren, which pairs
			// each child's case expression with its compiled Op so the
			// switch-bearing ancestor can gate rendering.
		case parse.StmtDefineMacro:
			n.DefineMacroName = s.Target
		case parse.StmtUseMacro:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.UseMacroRef = expr
		case parse.StmtExtendMacro:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.UseMacroRef = expr
			n.IsExtend = true
		case parse.StmtDefineSlot:
			n.DefineSlotName = s.Target
		case parse.StmtFillSlot:
			n.FillSlotName = s.Target
		case parse.StmtI18NTranslate:
			n.i18n().Translate = true
			n.i18n().MsgID = s.Expr
		case parse.StmtI18NName:
			n.i18n().NameOf = s.Target
		case parse.StmtI18NData:
			expr, err := tales.CompileDefault(s.Expr, defaultExpr)
			if err != nil {
				return nil, wrapCompileErr(err, n.Loc)
			}
			n.i18n().Data = expr
		case parse.StmtI18NAttributes:
			i18nAttrStmt = s
		case parse.StmtI18NDomain, parse.StmtI18NSource, parse.StmtI18NTarget, parse.StmtI18NContext, parse.StmtI18NIgnore:
			inh = inh.merge(s, s.Kind)
		case parse.StmtMetaInterpolation:
			// recognized but not acted on: interpolation in text and
			// attributes stays on in this subtree, and comment
			// interpolation follows Options.EnableCommentInterpolation alone.
		}
	}

	if i18nAttrStmt != nil {
		for _, pair := range i18nAttrStmt.Pairs {
			msgid := pair.Expr
			n.AttrAssigns = append(n.AttrAssigns, AttrAssign{Name: pair.Name, IsI18N: true, I18NMsgID: msgid})
		}
	}

	n.I18NInherited = inh
	if n.I18N != nil {
		n.I18N.Domain, n.I18N.Source, n.I18N.Target, n.I18N.Context, n.I18N.Ignore = inh.Domain, inh.Source, inh.Target, inh.Context, inh.Ignore
	}

	if err := c.buildChildren(n, el, inh); err != nil {
		return nil, err
	}

	if n.UseMacroRef != nil {
		fillers, err := collectFillSlots(el)
		if err != nil {
			return nil, err
		}
		n.fillers = map[string]func(*runtime.Render) error{}
		for name, fillEl := range fillers {
			fillOp, err := c.buildElement(fillEl, inh)
			if err != nil {
				return nil, err
			}
			n.fillers[name] = fillOp.Exec
		}
	}

	if n.DefineMacroName != "" || (n.IsExtend && n.UseMacroRef != nil) {
		name := n.DefineMacroName
		if name == "" {
			// extend-macro without its own define-macro name is unusual but
			// not an error; it simply isn't independently reusable.
		} else {
			c.macros[name] = n.Exec
		}
	}

	return n, nil
}

// buildChildren builds every child node, collecting switch/case pairing
// alongside the compiled Ops so a switch-bearing element can gate its
// children at render time.
func (c *compiler) buildChildren(n *ElemNode, el *parse.Element, inh i18nInherited) error {
	var i18nNames map[string]int
	for idx, child := range el.Children {
		childEl, isElem := child.(*parse.Element)
		var caseExpr tales.Expr
		if isElem {
			for _, s := range childEl.Statements {
				if s.Kind == parse.StmtCase {
					ce, err := tales.CompileDefault(s.Expr, c.opts.DefaultExpression)
					if err != nil {
						return wrapCompileErr(err, n.Loc)
					}
					caseExpr = ce
				}
			}
		}
		op, err := c.buildNode(child, inh)
		if err != nil {
			return err
		}
		n.Children = append(n.Children, op)
		n.ChildCases = append(n.ChildCases, caseExpr)

		if isElem {
			if nameStmt := findStatement(childEl, parse.StmtI18NName); nameStmt != nil && op != nil {
				if i18nNames == nil {
					i18nNames = map[string]int{}
				}
				i18nNames[nameStmt.Target] = idx
			}
		}
	}
	if i18nNames != nil {
		n.i18n().Names = i18nNames
	}
	return nil
}

func findStatement(el *parse.Element, kind parse.StatementKind) *parse.Statement {
	for _, s := range el.Statements {
		if s.Kind == kind {
			return s
		}
	}
	return nil
}

func (c *compiler) buildStaticAttr(a *parse.Attribute) (StaticAttr, error) {
	value := a.Raw
	if c.opts.TrimAttributeSpace {
		value = collapseSpace(value)
	}
	sa := StaticAttr{Name: a.RawName, Quote: a.Quote, Value: value, HasEq: a.HasEq}
	if strings.Contains(value, "$") {
		expr, ok, err := tales.LowerInterpolation(value)
		if err != nil {
			return StaticAttr{}, err
		}
		if ok {
			parts, err := interpPartsOf(expr)
			if err != nil {
				return StaticAttr{}, err
			}
			sa.Interp = parts
		}
	}
	return sa, nil
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// CompileError is raised for an illegal statement combination discovered
// during the semantic pass (package parse's LanguageError covers the
// binder's own syntax errors; this covers errors only visible once
// statements are being ordered and lowered).
type CompileError struct {
	Message string
	Loc     Location
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Loc.Filename, e.Loc.Line, e.Loc.Column, e.Message)
}

func wrapCompileErr(err error, loc Location) error {
	return &CompileError{Message: err.Error(), Loc: loc}
}
