package tales

import (
	"testing"

	"github.com/malthe/chameleon/runtime"
)

func newTestRender(vars map[string]interface{}) *runtime.Render {
	builtins := map[string]interface{}{}
	for k, v := range Builtins {
		builtins[k] = v
	}
	r := runtime.NewRender(builtins, nil, nil)
	for k, v := range vars {
		r.Scope.SetLocal(k, v)
	}
	return r
}

func evalString(t *testing.T, expr string, vars map[string]interface{}) interface{} {
	t.Helper()
	e, err := Compile(expr)
	if err != nil {
		t.Fatalf("Compile(%q): %v", expr, err)
	}
	v, err := e.Eval(newTestRender(vars))
	if err != nil {
		t.Fatalf("Eval(%q): %v", expr, err)
	}
	return v
}

func TestLiteralsAndArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want interface{}
	}{
		{"1 + 2", int64(3)},
		{"'Hello, ' + name", "Hello, World"},
		{"2 * 3 + 1", int64(7)},
		{"10 // 3", int64(3)},
		{"10 % 3", int64(1)},
		{"not True", false},
		{"1 == 1 and 2 == 2", true},
		{"1 in [1, 2, 3]", true},
		{"'b' in 'abc'", true},
	}
	for _, c := range cases {
		got := evalString(t, c.expr, map[string]interface{}{"name": "World"})
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.expr, got, c.want)
		}
	}
}

func TestTernary(t *testing.T) {
	got := evalString(t, "'yes' if ok else 'no'", map[string]interface{}{"ok": true})
	if got != "yes" {
		t.Fatalf("got %v", got)
	}
}

func TestMemberAndIndexAccess(t *testing.T) {
	type Point struct{ X, Y int }
	got := evalString(t, "p.X", map[string]interface{}{"p": Point{X: 3, Y: 4}})
	if got != 3 {
		t.Fatalf("got %v", got)
	}
	got = evalString(t, "items[1]", map[string]interface{}{"items": []interface{}{"a", "b", "c"}})
	if got != "b" {
		t.Fatalf("got %v", got)
	}
}

func TestPipeFallback(t *testing.T) {
	e, err := Compile("missing | 'fallback'")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval(newTestRender(nil))
	if err != nil {
		t.Fatal(err)
	}
	if v != "fallback" {
		t.Fatalf("got %v", v)
	}
}

func TestExistsAndNot(t *testing.T) {
	e, err := Compile("exists: missing")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval(newTestRender(nil))
	if err != nil {
		t.Fatal(err)
	}
	if v != false {
		t.Fatalf("got %v", v)
	}

	e, err = Compile("not: ok")
	if err != nil {
		t.Fatal(err)
	}
	v, err = e.Eval(newTestRender(map[string]interface{}{"ok": true}))
	if err != nil {
		t.Fatal(err)
	}
	if v != false {
		t.Fatalf("got %v", v)
	}
}

func TestStructureWrapsMarkup(t *testing.T) {
	e, err := Compile("structure: '<em>x</em>'")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval(newTestRender(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(runtime.Markup); !ok {
		t.Fatalf("got %T", v)
	}
}

func TestStringInterpolation(t *testing.T) {
	e, err := Compile("string: Hello, ${name}!")
	if err != nil {
		t.Fatal(err)
	}
	v, err := e.Eval(newTestRender(map[string]interface{}{"name": "World"}))
	if err != nil {
		t.Fatal(err)
	}
	if v != "Hello, World!" {
		t.Fatalf("got %v", v)
	}
}

func TestLowerInterpolationDollarEscape(t *testing.T) {
	expr, ok, err := LowerInterpolation("cost: $$5")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected interpolation to be recognized")
	}
	v, err := expr.Eval(newTestRender(nil))
	if err != nil {
		t.Fatal(err)
	}
	if v != "cost: $5" {
		t.Fatalf("got %v", v)
	}
}

func TestRangeBuiltin(t *testing.T) {
	got := evalString(t, "range(3)", nil)
	seq, ok := got.([]interface{})
	if !ok || len(seq) != 3 {
		t.Fatalf("got %v", got)
	}
}
