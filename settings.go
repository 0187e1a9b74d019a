// Package chameleon provides a lazily-cooked, attribute-oriented template
// engine: a TAL/METAL/I18N-annotated XML or permissive-HTML document
// compiles into a closure tree that renders against a dict-like scope, with
// macro/slot composition and translation capture.
package chameleon

import (
	"os"
	"strings"

	"github.com/malthe/chameleon/compiler"
	"github.com/malthe/chameleon/runtime"
	"github.com/malthe/chameleon/tales"
)

// Settings is the full configuration surface a Template cooks against
// (spec §6's configuration table). DefaultSettings returns the defaults;
// the zero value differs from it (no boolean attributes, comment
// interpolation off, empty DefaultExpression).
type Settings struct {
	AutoReload bool
	Debug      bool
	Strict     bool
	Encoding   string

	// WatchFilesystem turns on the fsnotify-backed reload strategy instead
	// of AutoReload's per-render stat/digest poll: a background watcher
	// invalidates a Template's cooked artifact the moment its backing file
	// changes, rather than waiting for the next Render call to notice.
	WatchFilesystem bool

	BooleanAttributes      map[string]bool
	ImplicitI18NTranslate  bool
	ImplicitI18NAttributes map[string]bool
	TrimAttributeSpace     bool
	EnableDataAttributes   bool
	EnableCommentInterpolation bool
	RestrictedNamespace    bool

	ExtraBuiltins map[string]interface{}

	// SearchPath is consulted, in order, by load: references through the
	// default DirResolver. Parse does not consult it.
	SearchPath []string

	DefaultExpression string

	// OnErrorHandler is carried on Settings but not consulted: tal:on-error
	// substitutes its fallback markup without invoking it.
	OnErrorHandler func(err error)

	// CacheDir, when non-empty, turns on the persisted disk cache (spec
	// §6 "Persisted cache layout"): one file per (source digest,
	// settings digest) pair, written by atomic rename.
	CacheDir string

	// Resolver locates a load: reference. DirResolver (built from
	// SearchPath) is used when nil. Parse does not use it.
	Resolver Resolver
}

// DefaultSettings mirrors the spec's stated defaults: strict off, the
// conventional HTML boolean-attribute set, comment interpolation on,
// python as the default expression prefix — and layers in the
// booleanish environment-variable overrides described by spec §6.
func DefaultSettings() Settings {
	s := Settings{
		BooleanAttributes:          compiler.DefaultOptions().BooleanAttributes,
		EnableCommentInterpolation: true,
		DefaultExpression:          "python",
	}
	applyEnv(&s)
	return s
}

// applyEnv layers the "booleanish" environment-variable overrides onto s:
// CHAMELEON_DEBUG sets Debug, CHAMELEON_RELOAD sets AutoReload,
// CHAMELEON_EAGER clears AutoReload, and CHAMELEON_CACHE sets CacheDir.
// There is no validate-structure switch, and eager cooking at construction
// follows Debug alone.
func applyEnv(s *Settings) {
	if envBool("CHAMELEON_DEBUG") {
		s.Debug = true
	}
	if envBool("CHAMELEON_RELOAD") {
		s.AutoReload = true
	}
	if envBool("CHAMELEON_EAGER") {
		s.AutoReload = false
	}
	if dir := os.Getenv("CHAMELEON_CACHE"); dir != "" {
		s.CacheDir = dir
	}
}

func envBool(name string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	switch v {
	case "1", "true", "on":
		return true
	}
	return false
}

// compilerOptions projects the subset of Settings that affects code
// generation (and therefore the disk-cache key, per spec §5) into a
// compiler.Options value.
func (s Settings) compilerOptions() compiler.Options {
	return compiler.Options{
		Strict:                     s.Strict,
		BooleanAttributes:          s.BooleanAttributes,
		ImplicitI18NTranslate:      s.ImplicitI18NTranslate,
		ImplicitI18NAttributes:     s.ImplicitI18NAttributes,
		TrimAttributeSpace:         s.TrimAttributeSpace,
		EnableCommentInterpolation: s.EnableCommentInterpolation,
		DefaultExpression:          s.DefaultExpression,
		HTMLMethod:                 "HTML",
	}
}

// builtins assembles the scope's non-redefinable layer: package tales'
// Builtins (range, len, int, float, ...) plus whatever the caller installed
// as ExtraBuiltins, which take precedence on name collision.
func (s Settings) builtins() map[string]interface{} {
	out := make(map[string]interface{}, len(tales.Builtins)+len(s.ExtraBuiltins))
	for k, v := range tales.Builtins {
		out[k] = v
	}
	for k, v := range s.ExtraBuiltins {
		out[k] = v
	}
	return out
}

func (s Settings) newRender(args map[string]interface{}, translate runtime.Translate) *runtime.Render {
	r := runtime.NewRender(s.builtins(), args, translate)
	r.BooleanSet = s.BooleanAttributes
	r.HTMLMethod = "HTML"
	r.Modules = s.ExtraBuiltins
	return r
}
