package compiler

import (
	"github.com/malthe/chameleon/parse"
	"github.com/malthe/chameleon/runtime"
)

// Program is a compiled template: a render entry point for the document
// body, plus every named macro the document defines, keyed the way
// Render.Macros and the root package's Template.Macros() both expect.
type Program struct {
	Render func(r *runtime.Render) error
	Macros map[string]func(r *runtime.Render) error
}

// Compile lowers a bound *parse.Document into a Program (spec §4.F/§4.G):
// it runs the semantic/ordering pass and code generator over the document's
// root element plus its prologue/epilogue, and collects every
// metal:define-macro/extend-macro encountered along the way. filename is
// used only to annotate RenderError locations.
func Compile(doc *parse.Document, opts Options, filename string) (*Program, error) {
	c := &compiler{
		opts:     opts,
		macros:   map[string]func(*runtime.Render) error{},
		filename: filename,
	}

	var ops OpList
	if doc.Decl != nil {
		ops = append(ops, &RawOp{Raw: doc.Decl.Raw})
	}
	for _, n := range doc.Prologue {
		op, err := c.buildNode(n, i18nInherited{})
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if doc.Root != nil {
		root, err := c.buildElement(doc.Root, i18nInherited{})
		if err != nil {
			return nil, err
		}
		ops = append(ops, root)
	}
	for _, n := range doc.Epilogue {
		op, err := c.buildNode(n, i18nInherited{})
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return &Program{Render: ops.Exec, Macros: c.macros}, nil
}
