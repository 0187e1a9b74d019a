package compiler

import (
	"github.com/malthe/chameleon/parse"
	"github.com/malthe/chameleon/runtime"
)

// execUseMacro implements metal:use-macro/metal:extend-macro (spec §4.F
// "Macro linking"): the reference expression is evaluated at render time,
// yielding a render entry point of the same signature as any entry in
// Render.Macros (the "macros" pseudo-name resolves to that very table, and
// load: returns one directly for cross-template references); the calling
// element's own fill-slot descendants are pushed as the innermost slot
// layer before invoking it.
func (e *ElemNode) execUseMacro(r *runtime.Render) error {
	v, err := e.UseMacroRef.Eval(r)
	if err != nil {
		return r.Wrap(err, "")
	}
	macro, ok := v.(func(*runtime.Render) error)
	if !ok {
		return r.Wrap(runtime.NewTypeError("use-macro reference did not resolve to a macro"), "")
	}
	r.Slots.Push(e.fillers)
	defer r.Slots.Pop()
	return macro(r)
}

// collectFillSlots walks el's descendants for metal:fill-slot elements,
// indexing them by slot name. It does not recurse into the subtree of a
// nested metal:use-macro/extend-macro element, since that element carries
// its own, independent slot scope (spec §4.F: "Nested extension composes
// filler layers outward-in").
func collectFillSlots(el *parse.Element) (map[string]*parse.Element, error) {
	out := map[string]*parse.Element{}
	collectFillSlotsInto(el, out)
	return out, nil
}

func collectFillSlotsInto(el *parse.Element, out map[string]*parse.Element) {
	for _, child := range el.Children {
		childEl, ok := child.(*parse.Element)
		if !ok {
			continue
		}
		if name := findStatement(childEl, parse.StmtFillSlot); name != nil {
			out[name.Target] = childEl
		}
		if findStatement(childEl, parse.StmtUseMacro) != nil || findStatement(childEl, parse.StmtExtendMacro) != nil {
			continue
		}
		collectFillSlotsInto(childEl, out)
	}
}
