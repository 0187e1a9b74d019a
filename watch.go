package chameleon

import (
	"github.com/fsnotify/fsnotify"
)

// watchTemplate starts a background fsnotify watch on t.path (spec §6
// "WatchFilesystem opt-in auto-reload"), invalidating the cooked artifact
// the instant the file changes instead of waiting for the next Render's
// stat/digest poll. The watcher runs for the Template's lifetime; callers
// that want to stop it early use the returned stop function.
func watchTemplate(t *Template) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(t.path); err != nil {
		w.Close()
		return nil, err
	}
	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					t.mu.Lock()
					t.state.Store(int32(stateUncooked))
					t.mu.Unlock()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		close(done)
		w.Close()
	}, nil
}
