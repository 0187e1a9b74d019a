package chameleon

import (
	"strings"
	"testing"
)

func render(t *testing.T, src string, scope map[string]interface{}) string {
	t.Helper()
	tmpl := New("test", src, DefaultSettings())
	out, err := tmpl.Render(scope, nil, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestDefineAndContent(t *testing.T) {
	got := render(t, `<p tal:define="greeting 'hi'" tal:content="greeting"></p>`, nil)
	if got != `<p>hi</p>` {
		t.Fatalf("got %q", got)
	}
}

func TestConditionFalseOmitsElement(t *testing.T) {
	got := render(t, `<div><p tal:condition="False">hidden</p></div>`, nil)
	if got != `<div></div>` {
		t.Fatalf("got %q", got)
	}
}

func TestRepeatExpandsPerItem(t *testing.T) {
	got := render(t, `<ul><li tal:repeat="x items" tal:content="x"></li></ul>`, map[string]interface{}{
		"items": []interface{}{"a", "b", "c"},
	})
	want := `<ul><li>a</li><li>b</li><li>c</li></ul>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRepeatExposesNumberingProxy(t *testing.T) {
	got := render(t, `<ul><li tal:repeat="x items" tal:content="string: ${repeat.x.number}: ${x}"></li></ul>`, map[string]interface{}{
		"items": []interface{}{"a", "b"},
	})
	want := `<ul><li>1: a</li><li>2: b</li></ul>`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestContentDefaultLeavesElementUntouched(t *testing.T) {
	got := render(t, `<p tal:content="default">kept</p>`, nil)
	if got != `<p>kept</p>` {
		t.Fatalf("got %q", got)
	}
}

func TestContentNoneRemovesChildren(t *testing.T) {
	got := render(t, `<p tal:content="nothing">kept</p>`, nil)
	if got != `<p></p>` {
		t.Fatalf("got %q", got)
	}
}

func TestSwitchCaseFirstMatchWins(t *testing.T) {
	got := render(t, `<div tal:switch="n"><p tal:case="1">one</p><p tal:case="n">two</p></div>`, map[string]interface{}{"n": int64(1)})
	if got != `<div><p>one</p></div>` {
		t.Fatalf("got %q", got)
	}
}

func TestBooleanAttributeCoercion(t *testing.T) {
	got := render(t, `<input tal:attributes="checked flag" />`, map[string]interface{}{"flag": true})
	if !strings.Contains(got, `checked="checked"`) {
		t.Fatalf("got %q", got)
	}

	got = render(t, `<input tal:attributes="checked flag" />`, map[string]interface{}{"flag": false})
	if strings.Contains(got, "checked") {
		t.Fatalf("got %q, expected checked dropped", got)
	}
}

func TestStructureBypassesEscaping(t *testing.T) {
	got := render(t, `<div tal:content="structure: html"></div>`, map[string]interface{}{"html": "<b>x</b>"})
	if got != `<div><b>x</b></div>` {
		t.Fatalf("got %q", got)
	}
}

func TestMacroUseAndFillSlot(t *testing.T) {
	src := `<section>
<section metal:define-macro="main"><div metal:define-slot="body">default</div></section>
<section metal:use-macro="macros.main"><p metal:fill-slot="body">filled</p></section>
</section>`
	got := render(t, src, nil)
	if !strings.Contains(got, "filled") {
		t.Fatalf("got %q", got)
	}
	if strings.Contains(got, "default") {
		t.Fatalf("got %q, expected slot default overridden", got)
	}
}

func TestOnErrorBindsErrorVariable(t *testing.T) {
	got := render(t, `<p tal:on-error="string: failed: ${error}" tal:content="missing"></p>`, nil)
	if !strings.Contains(got, "failed:") {
		t.Fatalf("got %q", got)
	}
}

func TestDigestStableAcrossRenders(t *testing.T) {
	tmpl := New("test", `<p tal:content="x"></p>`, DefaultSettings())
	d1, err := tmpl.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmpl.Render(map[string]interface{}{"x": "a"}, nil, nil); err != nil {
		t.Fatal(err)
	}
	d2, err := tmpl.Digest()
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Fatalf("digest changed across renders: %q != %q", d1, d2)
	}
}

func TestDigestChangesWithSource(t *testing.T) {
	d1, err := New("a", `<p>one</p>`, DefaultSettings()).Digest()
	if err != nil {
		t.Fatal(err)
	}
	d2, err := New("b", `<p>two</p>`, DefaultSettings()).Digest()
	if err != nil {
		t.Fatal(err)
	}
	if d1 == d2 {
		t.Fatalf("expected different digests for different sources")
	}
}

func TestMacrosAccessor(t *testing.T) {
	src := `<div metal:define-macro="greet" tal:content="string: hello ${name}"></div>`
	tmpl := New("test", src, DefaultSettings())
	macros, err := tmpl.Macros()
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := macros["greet"]
	if !ok {
		t.Fatalf("expected macro %q, got %v", "greet", macros)
	}
	out, err := fn(map[string]interface{}{"name": "world"}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "hello world") {
		t.Fatalf("got %q", out)
	}
}
