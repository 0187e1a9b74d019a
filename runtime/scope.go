package runtime

// orderedMap is a map that remembers the order keys were first inserted in,
// so that a Scope can be enumerated by user expressions the same way a
// Python dict preserves insertion order.
type orderedMap struct {
	keys   []string
	values map[string]interface{}
}

func newOrderedMap() *orderedMap {
	return &orderedMap{values: map[string]interface{}{}}
}

func (m *orderedMap) set(key string, val interface{}) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

func (m *orderedMap) get(key string) (interface{}, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *orderedMap) del(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Scope is the dict-like, layered variable environment a compiled template
// renders against. Lookups fall through, innermost first:
//
//	local frames (innermost -> outermost) -> argument layer -> global layer -> builtin layer
//
// A define/global statement that names a builtin silently shadows it (by
// adding to the local/global layer, which is checked first); no mode,
// strict included, rejects such a define.
type Scope struct {
	builtin map[string]interface{}
	global  *orderedMap
	frames  []*orderedMap
	args    map[string]interface{}
}

// NewScope builds the scope for one top-level render or macro invocation.
// builtins is shared read-only state (never mutated after construction);
// args is the render-time keyword layer, which shadows builtins/globals for
// the duration of this single render but is never inherited by another
// render or macro invocation.
func NewScope(builtins map[string]interface{}, args map[string]interface{}) *Scope {
	if args == nil {
		args = map[string]interface{}{}
	}
	s := &Scope{
		builtin: builtins,
		global:  newOrderedMap(),
		args:    args,
	}
	s.PushFrame()
	return s
}

// PushFrame opens a new local scope, e.g. for an element with a tal:define
// statement, or for entry into a tal:repeat body.
func (s *Scope) PushFrame() {
	s.frames = append(s.frames, newOrderedMap())
}

// PopFrame discards the innermost local scope and everything defined in it.
func (s *Scope) PopFrame() {
	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *Scope) top() *orderedMap {
	return s.frames[len(s.frames)-1]
}

// SetLocal binds name in the innermost frame.
func (s *Scope) SetLocal(name string, val interface{}) {
	s.top().set(name, val)
}

// SetGlobal binds name in the global layer, visible from any frame unless a
// more local frame shadows it.
func (s *Scope) SetGlobal(name string, val interface{}) {
	s.global.set(name, val)
}

// Unset removes name from the innermost local frame it is found in, or
// from the global layer when no local frame holds it. (tal:repeat does not
// use it; its loop variable lives in a frame popped on loop exit.)
func (s *Scope) Unset(name string) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i].get(name); ok {
			s.frames[i].del(name)
			return
		}
	}
	s.global.del(name)
}

// Get resolves name through the precedence chain described on Scope.
func (s *Scope) Get(name string) (interface{}, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].get(name); ok {
			return v, true
		}
	}
	if v, ok := s.args[name]; ok {
		return v, true
	}
	if v, ok := s.global.get(name); ok {
		return v, true
	}
	if v, ok := s.builtin[name]; ok {
		return v, true
	}
	return nil, false
}

// Exists reports whether a name resolves to anything, without distinguishing
// which layer it came from.
func (s *Scope) Exists(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Keys enumerates every visible name, local frames first (innermost to
// outermost), then arguments, then globals, then builtins, skipping names
// already seen in an earlier (higher-precedence) layer. This lets a user
// expression iterate the scope like a dict, per the spec's "iterable and
// dict-like" requirement.
func (s *Scope) Keys() []string {
	seen := map[string]bool{}
	var out []string
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for i := len(s.frames) - 1; i >= 0; i-- {
		for _, k := range s.frames[i].keys {
			add(k)
		}
	}
	for k := range s.args {
		add(k)
	}
	for _, k := range s.global.keys {
		add(k)
	}
	for k := range s.builtin {
		add(k)
	}
	return out
}
