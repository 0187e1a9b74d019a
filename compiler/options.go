package compiler

// Options mirrors the subset of the spec's §6 configuration table that
// affects code generation (and therefore the disk-cache key, per §5): the
// root package's Settings is the full option set; Options is what package
// compiler itself needs, kept separate so compiler never imports the root
// package (which imports compiler).
type Options struct {
	Strict                    bool
	BooleanAttributes         map[string]bool
	ImplicitI18NTranslate     bool
	ImplicitI18NAttributes    map[string]bool
	TrimAttributeSpace        bool
	EnableCommentInterpolation bool
	DefaultExpression         string
	HTMLMethod                string
}

// DefaultOptions mirrors the spec's stated defaults: strict off, the
// conventional HTML boolean-attribute set, comment interpolation on,
// python as the default expression prefix.
func DefaultOptions() Options {
	return Options{
		BooleanAttributes:          defaultBooleanAttributes(),
		EnableCommentInterpolation: true,
		DefaultExpression:          "python",
		HTMLMethod:                 "HTML",
	}
}

func defaultBooleanAttributes() map[string]bool {
	names := []string{
		"checked", "disabled", "selected", "readonly", "multiple",
		"ismap", "defer", "compact", "nowrap", "noshade", "autofocus",
		"required", "autoplay", "controls", "loop", "default", "formnovalidate",
	}
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}
	return out
}
