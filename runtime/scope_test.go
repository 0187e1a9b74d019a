package runtime

import "testing"

func TestScopeLayerPrecedence(t *testing.T) {
	s := NewScope(map[string]interface{}{"x": "builtin"}, map[string]interface{}{"x": "arg"})
	if v, _ := s.Get("x"); v != "arg" {
		t.Fatalf("args should shadow builtins, got %v", v)
	}

	s.SetGlobal("x", "global")
	if v, _ := s.Get("x"); v != "arg" {
		t.Fatalf("args should still shadow globals, got %v", v)
	}

	s.SetLocal("x", "local")
	if v, _ := s.Get("x"); v != "local" {
		t.Fatalf("a local frame should shadow everything else, got %v", v)
	}
}

func TestScopeFramesNestAndPop(t *testing.T) {
	s := NewScope(nil, nil)
	s.SetLocal("y", 1)
	s.PushFrame()
	s.SetLocal("y", 2)
	if v, _ := s.Get("y"); v != 2 {
		t.Fatalf("got %v, want 2", v)
	}
	s.PopFrame()
	if v, _ := s.Get("y"); v != 1 {
		t.Fatalf("got %v, want 1 after popping inner frame", v)
	}
}

func TestScopeUnsetFallsThroughToGlobal(t *testing.T) {
	s := NewScope(nil, nil)
	s.SetGlobal("z", "g")
	s.SetLocal("z", "l")
	s.Unset("z")
	if v, ok := s.Get("z"); !ok || v != "g" {
		t.Fatalf("expected global value to remain after unsetting local, got %v", v)
	}
}

func TestScopeKeysDeduplicatesAcrossLayers(t *testing.T) {
	s := NewScope(map[string]interface{}{"a": 1}, map[string]interface{}{"b": 2})
	s.SetGlobal("a", "overridden")
	s.SetLocal("c", 3)
	keys := s.Keys()
	seen := map[string]bool{}
	for _, k := range keys {
		if seen[k] {
			t.Fatalf("duplicate key %q in %v", k, keys)
		}
		seen[k] = true
	}
	for _, want := range []string{"a", "b", "c"} {
		if !seen[want] {
			t.Fatalf("expected key %q in %v", want, keys)
		}
	}
}
