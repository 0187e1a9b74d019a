package compiler

import (
	"testing"

	"github.com/malthe/chameleon/parse"
	"github.com/malthe/chameleon/runtime"
)

func compileSource(t *testing.T, src string) *Program {
	t.Helper()
	doc, err := parse.Parse(src, parse.Options{})
	if err != nil {
		t.Fatalf("parse.Parse: %v", err)
	}
	if err := parse.Bind(doc, parse.BindOptions{}); err != nil {
		t.Fatalf("parse.Bind: %v", err)
	}
	prog, err := Compile(doc, DefaultOptions(), "test")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return prog
}

func renderWith(t *testing.T, prog *Program, vars map[string]interface{}) string {
	t.Helper()
	r := runtime.NewRender(nil, nil, nil)
	for k, v := range vars {
		r.Scope.SetGlobal(k, v)
	}
	if err := prog.Render(r); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return r.Buf.String()
}

func TestCompileDefineAndContent(t *testing.T) {
	prog := compileSource(t, `<p tal:define="x 'hi'" tal:content="x"></p>`)
	if got := renderWith(t, prog, nil); got != `<p>hi</p>` {
		t.Fatalf("got %q", got)
	}
}

func TestCompileReplaceOmitsTheElement(t *testing.T) {
	prog := compileSource(t, `<span tal:replace="x"></span>`)
	if got := renderWith(t, prog, map[string]interface{}{"x": "plain"}); got != `plain` {
		t.Fatalf("got %q", got)
	}
}

func TestCompileOmitTagKeepsContent(t *testing.T) {
	prog := compileSource(t, `<div tal:omit-tag="True">kept</div>`)
	if got := renderWith(t, prog, nil); got != `kept` {
		t.Fatalf("got %q", got)
	}
}

func TestCompileMacroRegisteredByName(t *testing.T) {
	prog := compileSource(t, `<div metal:define-macro="greet" tal:content="string: hi ${name}"></div>`)
	fn, ok := prog.Macros["greet"]
	if !ok {
		t.Fatalf("expected macro %q, got %v", "greet", prog.Macros)
	}
	r := runtime.NewRender(nil, map[string]interface{}{"name": "you"}, nil)
	if err := fn(r); err != nil {
		t.Fatalf("macro render: %v", err)
	}
	if got := r.Buf.String(); got != `<div>hi you</div>` {
		t.Fatalf("got %q", got)
	}
}
