package chameleon

import (
	"sync"

	"github.com/malthe/chameleon/runtime"
)

// loader resolves load: references against a Settings' Resolver (or its
// SearchPath-backed DirResolver), caching one *Template per resolved key so
// that a document referenced by several load: expressions, or by several
// Templates sharing a loader, is parsed and cooked only once.
type loader struct {
	settings Settings
	resolver Resolver

	lock *keyedLock

	mu    sync.RWMutex
	cache map[string]*Template
}

func newLoader(settings Settings) *loader {
	resolver := settings.Resolver
	if resolver == nil {
		resolver = NewDirResolver(settings.SearchPath...)
	}
	return &loader{settings: settings, resolver: resolver, lock: newKeyedLock(), cache: map[string]*Template{}}
}

// load implements runtime.Render.LoadTemplate: it resolves ref, cooks the
// referenced document if needed, and returns its root element rendered as a
// macro (spec's `load:` — "a template reference usable as a macro source by
// metal:use-macro"), so that `metal:use-macro="load: other.pt"` expands
// other.pt's whole document in place exactly as metal:use-macro of an
// in-template name expands one of its define-macro elements.
func (l *loader) load(ref string) (interface{}, error) {
	key, src, err := l.resolver.Resolve(ref)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	t, ok := l.cache[key]
	l.mu.RUnlock()
	if !ok {
		l.lock.Lock(key)
		l.mu.RLock()
		t, ok = l.cache[key]
		l.mu.RUnlock()
		if !ok {
			t = newTemplate(key, string(src), "", l.settings)
			t.loader = l
			l.mu.Lock()
			l.cache[key] = t
			l.mu.Unlock()
		}
		l.lock.Unlock(key)
	}

	prog, err := t.cookedProgram()
	if err != nil {
		return nil, err
	}
	return func(r *runtime.Render) error { return prog.Render(r) }, nil
}
