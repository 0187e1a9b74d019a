package tales

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/malthe/chameleon/runtime"
)

// Expr is one compiled TALES expression: the output of a prefix compiler,
// or a node inside the default python: grammar. Evaluating it against a
// *runtime.Render produces the value a Statement's code consumes.
type Expr interface {
	Eval(r *runtime.Render) (interface{}, error)
}

// Literal wraps a compile-time constant (string, int64, float64, bool, or
// nil for None).
type Literal struct{ Value interface{} }

func (l *Literal) Eval(*runtime.Render) (interface{}, error) { return l.Value, nil }

// Name resolves an identifier against the render's scope, with the small
// set of TALES pseudo-names (nothing/default/repeat/macros) handled
// specially.
type Name struct{ Ident string }

func (n *Name) Eval(r *runtime.Render) (interface{}, error) {
	switch n.Ident {
	case "nothing":
		return runtime.Nothing, nil
	case "default":
		return runtime.Default, nil
	case "repeat":
		return repeatProxy{dict: r.Repeat}, nil
	case "macros":
		return r.Macros, nil
	}
	if v, ok := r.Scope.Get(n.Ident); ok {
		return v, nil
	}
	return nil, runtime.NewNameError("name %q is not defined", n.Ident)
}

// repeatProxy implements the attribute-style access templates use to reach
// repeat.<name>.<accessor>, satisfying runtime.Access's attribute lookup by
// exposing Get as a zero-arg-callable-free field lookup; the dict indexing
// itself happens through accessItem's map path is not applicable here since
// RepeatDict isn't a Go map, so repeatProxy implements the attribute branch
// directly via reflection-free explicit resolution in Trailer.apply.
type repeatProxy struct{ dict *runtime.RepeatDict }

// Lookup resolves repeat.<name>; Trailer.apply special-cases repeatProxy
// rather than going through the generic two-phase accessor, since a
// RepeatDict entry is itself a *runtime.Repeat, not a struct field.
func (p repeatProxy) Lookup(name string) (interface{}, error) {
	r, ok := p.dict.Get(name)
	if !ok {
		return nil, runtime.NewNameError("no active repeat variable %q", name)
	}
	return r, nil
}

// Ternary is the top-level expression rule: `A if COND else B`, or plain A.
type Ternary struct {
	Left *OrTest      `@@`
	Else *TernaryElse `[ @@ ]`
}

type TernaryElse struct {
	Cond *OrTest `"if" @@`
	Else *OrTest `"else" @@`
}

func (t *Ternary) Eval(r *runtime.Render) (interface{}, error) {
	if t.Else == nil {
		return t.Left.Eval(r)
	}
	cond, err := t.Else.Cond.Eval(r)
	if err != nil {
		return nil, err
	}
	if runtime.Truthy(cond) {
		return t.Left.Eval(r)
	}
	return t.Else.Else.Eval(r)
}

// OrTest: A or B or C, short-circuiting on the first truthy operand.
type OrTest struct {
	Left *AndTest   `@@`
	Rest []*AndTest `{ "or" @@ }`
}

func (o *OrTest) Eval(r *runtime.Render) (interface{}, error) {
	v, err := o.Left.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, rest := range o.Rest {
		if runtime.Truthy(v) {
			return v, nil
		}
		v, err = rest.Eval(r)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// AndTest: A and B and C, short-circuiting on the first falsy operand.
type AndTest struct {
	Left *NotTest   `@@`
	Rest []*NotTest `{ "and" @@ }`
}

func (a *AndTest) Eval(r *runtime.Render) (interface{}, error) {
	v, err := a.Left.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, rest := range a.Rest {
		if !runtime.Truthy(v) {
			return v, nil
		}
		v, err = rest.Eval(r)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NotTest: `not X`, or a plain comparison.
type NotTest struct {
	Negated *NotTest    `(  "not" @@`
	Cmp     *Comparison ` | @@ )`
}

func (n *NotTest) Eval(r *runtime.Render) (interface{}, error) {
	if n.Negated != nil {
		v, err := n.Negated.Eval(r)
		if err != nil {
			return nil, err
		}
		return !runtime.Truthy(v), nil
	}
	return n.Cmp.Eval(r)
}

// Comparison chains ==, !=, <, <=, >, >=, in, and "not in", left to right.
type Comparison struct {
	Left *Arith    `@@`
	Ops  []*CompOp `{ @@ }`
}

type CompOp struct {
	NotIn bool   `(   @"not" "in"`
	In    bool   ` |  @"in"`
	Eq    bool   ` |  @"=="`
	Ne    bool   ` |  @"!="`
	Le    bool   ` |  @"<="`
	Ge    bool   ` |  @">="`
	Lt    bool   ` |  @"<"`
	Gt    bool   ` |  @">" )`
	Right *Arith `@@`
}

func (c *Comparison) Eval(r *runtime.Render) (interface{}, error) {
	v, err := c.Left.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, op := range c.Ops {
		rhs, err := op.Right.Eval(r)
		if err != nil {
			return nil, err
		}
		v, err = applyComparison(op, v, rhs)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func applyComparison(op *CompOp, a, b interface{}) (interface{}, error) {
	switch {
	case op.Eq:
		return reflect.DeepEqual(a, b), nil
	case op.Ne:
		return !reflect.DeepEqual(a, b), nil
	case op.In:
		return contains(b, a), nil
	case op.NotIn:
		return !contains(b, a), nil
	case op.Lt, op.Le, op.Gt, op.Ge:
		cmp, err := compareOrdered(a, b)
		if err != nil {
			return nil, err
		}
		switch {
		case op.Lt:
			return cmp < 0, nil
		case op.Le:
			return cmp <= 0, nil
		case op.Gt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
	return nil, runtime.NewTypeError("unsupported comparison")
}

func contains(container, item interface{}) bool {
	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if reflect.DeepEqual(rv.Index(i).Interface(), item) {
				return true
			}
		}
	case reflect.String:
		s, ok := item.(string)
		return ok && strings.Contains(rv.String(), s)
	case reflect.Map:
		key := reflect.ValueOf(item)
		if key.IsValid() && key.Type().AssignableTo(rv.Type().Key()) {
			return rv.MapIndex(key).IsValid()
		}
	}
	return false
}

func compareOrdered(a, b interface{}) (int, error) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), nil
	}
	af, aerr := toFloat(a)
	bf, berr := toFloat(b)
	if aerr != nil || berr != nil {
		return 0, runtime.NewTypeError("cannot compare %T and %T", a, b)
	}
	switch {
	case af < bf:
		return -1, nil
	case af > bf:
		return 1, nil
	default:
		return 0, nil
	}
}

// Arith: additive +/-.
type Arith struct {
	Left *Term     `@@`
	Ops  []*ArithOp `{ @@ }`
}

type ArithOp struct {
	Op    string `@("+" | "-")`
	Right *Term  `@@`
}

func (a *Arith) Eval(r *runtime.Render) (interface{}, error) {
	v, err := a.Left.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, op := range a.Ops {
		rhs, err := op.Right.Eval(r)
		if err != nil {
			return nil, err
		}
		if op.Op == "+" {
			v, err = addValues(v, rhs)
		} else {
			v, err = subValues(v, rhs)
		}
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Term: multiplicative *, /, //, %.
type Term struct {
	Left *Unary    `@@`
	Ops  []*TermOp `{ @@ }`
}

type TermOp struct {
	Op    string `@("*" | "//" | "/" | "%")`
	Right *Unary `@@`
}

func (t *Term) Eval(r *runtime.Render) (interface{}, error) {
	v, err := t.Left.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, op := range t.Ops {
		rhs, err := op.Right.Eval(r)
		if err != nil {
			return nil, err
		}
		v, err = applyArith(op.Op, v, rhs)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Unary: an optional leading +/- sign.
type Unary struct {
	Sign  string `[ @("-" | "+") ]`
	Power *Power `@@`
}

func (u *Unary) Eval(r *runtime.Render) (interface{}, error) {
	v, err := u.Power.Eval(r)
	if err != nil {
		return nil, err
	}
	if u.Sign == "-" {
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		if i, ok := v.(int64); ok {
			return -i, nil
		}
		return -f, nil
	}
	return v, nil
}

// Power: an atom followed by zero or more member/index/call trailers.
type Power struct {
	Atom     *Atom      `@@`
	Trailers []*Trailer `{ @@ }`
}

func (p *Power) Eval(r *runtime.Render) (interface{}, error) {
	v, err := p.Atom.Eval(r)
	if err != nil {
		return nil, err
	}
	for _, tr := range p.Trailers {
		v, err = tr.apply(r, v)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Trailer is one ".name", "[expr]" or "(args)" suffix.
type Trailer struct {
	Member *string   `(   "." @Ident`
	Index  *Ternary  ` | "[" @@ "]"`
	Call   *CallArgs ` | "(" @@ ")" )`
}

func (t *Trailer) apply(r *runtime.Render, base interface{}) (interface{}, error) {
	switch {
	case t.Member != nil:
		if proxy, ok := base.(repeatProxy); ok {
			return proxy.Lookup(*t.Member)
		}
		return runtime.Access(base, *t.Member)
	case t.Index != nil:
		idx, err := t.Index.Eval(r)
		if err != nil {
			return nil, err
		}
		return indexValue(base, idx)
	case t.Call != nil:
		args := make([]interface{}, 0, len(t.Call.Args))
		for _, a := range t.Call.Args {
			v, err := a.Eval(r)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		return callValue(base, args)
	}
	return base, nil
}

// CallArgs is a parenthesized, comma-separated argument list.
type CallArgs struct {
	Args []*Ternary `[ @@ { "," @@ } ]`
}

// ListLit is a "[a, b, c]" literal, evaluated to a []interface{}.
type ListLit struct {
	Items []*Ternary `"[" [ @@ { "," @@ } ] "]"`
}

func (l *ListLit) Eval(r *runtime.Render) (interface{}, error) {
	out := make([]interface{}, 0, len(l.Items))
	for _, it := range l.Items {
		v, err := it.Eval(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Atom is the grammar's terminal production: a literal, an identifier, a
// list literal, or a parenthesized sub-expression.
type Atom struct {
	Str     *string  `(  @String`
	Float   *float64 `|  @Float`
	Int     *int64   `|  @Int`
	True    bool     `|  @"True"`
	False   bool     `|  @"False"`
	None    bool     `|  @"None"`
	Ident   *string  `|  @Ident`
	List    *ListLit `|  @@`
	SubExpr *Ternary `| "(" @@ ")" )`
}

func (a *Atom) Eval(r *runtime.Render) (interface{}, error) {
	switch {
	case a.Str != nil:
		return *a.Str, nil
	case a.Float != nil:
		return *a.Float, nil
	case a.Int != nil:
		return *a.Int, nil
	case a.True:
		return true, nil
	case a.False:
		return false, nil
	case a.None:
		return nil, nil
	case a.Ident != nil:
		return (&Name{Ident: *a.Ident}).Eval(r)
	case a.List != nil:
		return a.List.Eval(r)
	case a.SubExpr != nil:
		return a.SubExpr.Eval(r)
	}
	return nil, fmt.Errorf("tales: empty atom")
}

func indexValue(base, idx interface{}) (interface{}, error) {
	if s, ok := idx.(string); ok {
		return runtime.Access(base, s)
	}
	n, err := toInt(idx)
	if err != nil {
		return nil, runtime.NewTypeError("index must be an integer or string")
	}
	rv := reflect.ValueOf(base)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		if n < 0 {
			n += rv.Len()
		}
		if n < 0 || n >= rv.Len() {
			return nil, runtime.NewLookupError("index %d out of range", n)
		}
		return rv.Index(n).Interface(), nil
	case reflect.Map:
		return runtime.Access(base, fmt.Sprintf("%d", n))
	}
	return nil, runtime.NewTypeError("%T is not subscriptable", base)
}

func callValue(fn interface{}, args []interface{}) (interface{}, error) {
	if f, ok := fn.(func([]interface{}) (interface{}, error)); ok {
		return f(args)
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, runtime.NewTypeError("%T is not callable", fn)
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		if a == nil {
			in[i] = reflect.New(rv.Type().In(i)).Elem()
			continue
		}
		in[i] = reflect.ValueOf(a)
	}
	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		if err, ok := out[len(out)-1].Interface().(error); ok && err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

func toFloat(v interface{}) (float64, error) {
	switch n := v.(type) {
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, runtime.NewTypeError("%T is not a number", v)
}

func toInt(v interface{}) (int, error) {
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case int:
		return n, nil
	case float64:
		return int(n), nil
	}
	return 0, runtime.NewTypeError("%T is not an integer", v)
}

func bothInt(a, b interface{}) (int64, int64, bool) {
	ai, aok := a.(int64)
	bi, bok := b.(int64)
	return ai, bi, aok && bok
}

func addValues(a, b interface{}) (interface{}, error) {
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return nil, runtime.NewTypeError("cannot concatenate str and %T", b)
		}
		return as + bs, nil
	}
	if al, ok := a.([]interface{}); ok {
		bl, ok := b.([]interface{})
		if !ok {
			return nil, runtime.NewTypeError("cannot concatenate list and %T", b)
		}
		out := make([]interface{}, 0, len(al)+len(bl))
		out = append(out, al...)
		out = append(out, bl...)
		return out, nil
	}
	if ai, bi, ok := bothInt(a, b); ok {
		return ai + bi, nil
	}
	af, err := toFloat(a)
	if err != nil {
		return nil, err
	}
	bf, err := toFloat(b)
	if err != nil {
		return nil, err
	}
	return af + bf, nil
}

func subValues(a, b interface{}) (interface{}, error) {
	if ai, bi, ok := bothInt(a, b); ok {
		return ai - bi, nil
	}
	af, err := toFloat(a)
	if err != nil {
		return nil, err
	}
	bf, err := toFloat(b)
	if err != nil {
		return nil, err
	}
	return af - bf, nil
}

func applyArith(op string, a, b interface{}) (interface{}, error) {
	if op == "*" {
		if as, ok := a.(string); ok {
			n, err := toInt(b)
			if err == nil {
				return strings.Repeat(as, n), nil
			}
		}
	}
	if ai, bi, ok := bothInt(a, b); ok {
		switch op {
		case "*":
			return ai * bi, nil
		case "//":
			if bi == 0 {
				return nil, runtime.NewTypeError("integer division by zero")
			}
			return ai / bi, nil
		case "%":
			if bi == 0 {
				return nil, runtime.NewTypeError("integer modulo by zero")
			}
			return ai % bi, nil
		case "/":
			if bi == 0 {
				return nil, runtime.NewTypeError("division by zero")
			}
			return float64(ai) / float64(bi), nil
		}
	}
	af, err := toFloat(a)
	if err != nil {
		return nil, err
	}
	bf, err := toFloat(b)
	if err != nil {
		return nil, err
	}
	switch op {
	case "*":
		return af * bf, nil
	case "/", "//":
		if bf == 0 {
			return nil, runtime.NewTypeError("division by zero")
		}
		return af / bf, nil
	case "%":
		if bf == 0 {
			return nil, runtime.NewTypeError("modulo by zero")
		}
		r := af - bf*float64(int64(af/bf))
		return r, nil
	}
	return nil, runtime.NewTypeError("unsupported operator %q", op)
}
