package tales

import (
	"fmt"
	"strconv"

	"github.com/malthe/chameleon/runtime"
)

// Builtins is the TALES built-in function layer: the non-redefinable names
// the spec lists (float, int, len, None, True, False) that are callable,
// plus range, which the spec's S2 scenario depends on directly
// (tal:repeat="i range(3)").
//
// These populate runtime.Scope's builtin layer alongside the plain values
// None/True/False (handled as grammar literals, not scope lookups, but kept
// here too so an expression can still pass them around by name, e.g.
// "x or None").
var Builtins = map[string]interface{}{
	"None":  nil,
	"True":  true,
	"False": false,
	"len":   builtinLen,
	"int":   builtinInt,
	"float": builtinFloat,
	"str":   builtinStr,
	"bool":  builtinBool,
	"range": builtinRange,
}

func builtinLen(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, runtime.NewTypeError("len() takes exactly one argument")
	}
	seq, err := runtime.ToSequence(args[0])
	if err != nil {
		if s, ok := args[0].(string); ok {
			return int64(len(s)), nil
		}
		return nil, err
	}
	return int64(len(seq)), nil
}

func builtinInt(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, runtime.NewTypeError("int() takes exactly one argument")
	}
	switch v := args[0].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, runtime.NewTypeError("invalid literal for int(): %q", v)
		}
		return n, nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return nil, runtime.NewTypeError("int() argument must be a string or a number, not %T", args[0])
}

func builtinFloat(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, runtime.NewTypeError("float() takes exactly one argument")
	}
	switch v := args[0].(type) {
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, runtime.NewTypeError("invalid literal for float(): %q", v)
		}
		return f, nil
	}
	return nil, runtime.NewTypeError("float() argument must be a string or a number, not %T", args[0])
}

func builtinStr(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, runtime.NewTypeError("str() takes exactly one argument")
	}
	return runtime.Stringify(args[0])
}

func builtinBool(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, runtime.NewTypeError("bool() takes exactly one argument")
	}
	return runtime.Truthy(args[0]), nil
}

func builtinRange(args []interface{}) (interface{}, error) {
	var start, stop, step int64
	step = 1
	switch len(args) {
	case 1:
		n, err := rangeInt(args[0])
		if err != nil {
			return nil, err
		}
		stop = n
	case 2:
		a, err := rangeInt(args[0])
		if err != nil {
			return nil, err
		}
		b, err := rangeInt(args[1])
		if err != nil {
			return nil, err
		}
		start, stop = a, b
	case 3:
		a, err := rangeInt(args[0])
		if err != nil {
			return nil, err
		}
		b, err := rangeInt(args[1])
		if err != nil {
			return nil, err
		}
		c, err := rangeInt(args[2])
		if err != nil {
			return nil, err
		}
		start, stop, step = a, b, c
	default:
		return nil, runtime.NewTypeError("range() takes 1 to 3 arguments")
	}
	if step == 0 {
		return nil, runtime.NewTypeError("range() step argument must not be zero")
	}
	var out []interface{}
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, i)
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, i)
		}
	}
	return out, nil
}

func rangeInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, runtime.NewTypeError("range() argument must be an integer, not %v", fmt.Sprintf("%T", v))
}
