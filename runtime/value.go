package runtime

import "reflect"

// defaultSentinel is the distinguished singleton the spec calls "the
// default sentinel": a single global constant, never re-created, whose
// identity must be preserved across every template (see spec Design Notes
// §9 "Ambiguities").
type defaultSentinelType struct{}

// Default is "use the default": in tal:attributes it means the element's
// static attribute value (or drop the attribute if there is none); in
// tal:content/tal:replace it means leave the markup unchanged; in
// tal:condition/tal:repeat it is treated as truthy / leave unchanged.
var Default interface{} = defaultSentinelType{}

// IsDefault reports whether v is the Default sentinel.
func IsDefault(v interface{}) bool {
	_, ok := v.(defaultSentinelType)
	return ok
}

// nothingSentinelType backs the "nothing" expression keyword, distinct from
// Default: it always means "omit" rather than "leave unchanged".
type nothingSentinelType struct{}

// Nothing is the TALES "nothing" literal.
var Nothing interface{} = nothingSentinelType{}

// IsNothing reports whether v is the Nothing sentinel, or a Go nil, or a
// typed nil interface, any of which the content/attribute algorithms treat
// as "emit nothing".
func IsNothing(v interface{}) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(nothingSentinelType); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// Truthy implements the engine's boolean coercion, generalizing the
// teacher's reflect-based truthy() helper (executer.go) to the value kinds
// this engine's scope and expression evaluator can produce.
func Truthy(v interface{}) bool {
	if IsNothing(v) {
		return false
	}
	if IsDefault(v) {
		return true
	}
	if b, ok := v.(bool); ok {
		return b
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return false
	}
	switch rv.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Chan, reflect.Func, reflect.Ptr, reflect.Interface, reflect.UnsafePointer:
		return !rv.IsNil()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Struct:
		return true
	default:
		return true
	}
}

// Access implements the spec's attribute-lookup fallback (§4.F): try
// attribute (struct field or zero-arg method) access first; on failure try
// index (map key, or slice/array/string numeric index) access with the
// same key, re-raising the original attribute error if that also fails.
// This generalizes the teacher's path.go "access" helper (referenced by
// path.cd/valueAt) from plain struct-field walking to the full two-phase
// fallback the spec requires.
func Access(v interface{}, key string) (interface{}, error) {
	attrVal, attrErr := accessAttribute(v, key)
	if attrErr == nil {
		return attrVal, nil
	}
	itemVal, itemErr := accessItem(v, key)
	if itemErr == nil {
		return itemVal, nil
	}
	return nil, attrErr
}

func accessAttribute(v interface{}, key string) (interface{}, error) {
	if r, ok := v.(*Repeat); ok {
		if val, ok := r.Attr(key); ok {
			return val, nil
		}
	}
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, NewAttributeError("%q has no attribute %q", v, key)
	}
	switch rv.Kind() {
	case reflect.Struct:
		fv := rv.FieldByName(key)
		if fv.IsValid() && fv.CanInterface() {
			return fv.Interface(), nil
		}
		mv := rv.MethodByName(key)
		if mv.IsValid() {
			return callZeroArg(mv, key)
		}
	}
	// method may be defined on the pointer receiver even though rv was
	// dereferenced above.
	pv := reflect.ValueOf(v)
	if pv.IsValid() {
		if mv := pv.MethodByName(key); mv.IsValid() {
			return callZeroArg(mv, key)
		}
	}
	return nil, NewAttributeError("%T has no attribute %q", v, key)
}

func callZeroArg(mv reflect.Value, key string) (interface{}, error) {
	mt := mv.Type()
	if mt.NumIn() != 0 {
		return nil, NewAttributeError("method %q takes arguments and cannot be used as an attribute", key)
	}
	out := mv.Call(nil)
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

func accessItem(v interface{}, key string) (interface{}, error) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, NewLookupError("%v has no item %q", v, key)
	}
	switch rv.Kind() {
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if mv.IsValid() {
			return mv.Interface(), nil
		}
		return nil, NewLookupError("key %q not found", key)
	case reflect.Slice, reflect.Array, reflect.String:
		idx, err := parseIndex(key)
		if err != nil {
			return nil, NewLookupError("invalid index %q", key)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, NewLookupError("index %d out of range", idx)
		}
		return rv.Index(idx).Interface(), nil
	default:
		return nil, NewLookupError("%T is not subscriptable", v)
	}
}

func parseIndex(key string) (int, error) {
	n := 0
	neg := false
	i := 0
	if len(key) > 0 && key[0] == '-' {
		neg = true
		i = 1
	}
	if i >= len(key) {
		return 0, NewTypeError("empty index")
	}
	for ; i < len(key); i++ {
		c := key[i]
		if c < '0' || c > '9' {
			return 0, NewTypeError("non-numeric index %q", key)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}

func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// AccessPath walks a sequence of keys through Access, one key at a time.
// The expression evaluator calls Access per member trailer and repeat
// grouping uses its own fieldOrItem; neither goes through AccessPath.
func AccessPath(v interface{}, path []string) (interface{}, error) {
	cur := v
	for _, key := range path {
		next, err := Access(cur, key)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
