package parse

import "strings"

// bindAttribute turns one recognized control attribute occurrence into one
// or more Statement values. Most kinds produce exactly one; tal:define
// produces one per ";"-separated entry (tal:define="a 1; b 2" defines two
// names in source order) and tal:attributes/i18n:attributes produce a
// single Statement carrying every pair.
func bindAttribute(uri, local string, a *Attribute) ([]*Statement, error) {
	switch uri {
	case NSTal:
		return bindTal(local, a)
	case NSMetal:
		return bindMetal(local, a)
	case NSI18N:
		return bindI18N(local, a)
	case NSMeta:
		return bindMeta(local, a)
	}
	return nil, &LanguageError{Message: "unrecognized namespace", Span: a.span}
}

func bindTal(local string, a *Attribute) ([]*Statement, error) {
	switch local {
	case "define":
		var out []*Statement
		for _, segment := range splitStatements(a.Raw) {
			if segment == "" {
				continue
			}
			stmt, err := parseDefineEntry(segment, a.span)
			if err != nil {
				return nil, err
			}
			out = append(out, stmt)
		}
		return out, nil
	case "switch":
		return one(&Statement{Kind: StmtSwitch, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "condition":
		return one(&Statement{Kind: StmtCondition, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "repeat":
		target, targets, expr, err := parseTargetAndExpr(strings.TrimSpace(a.Raw))
		if err != nil {
			return nil, wrapAt(err, a.span)
		}
		return one(&Statement{Kind: StmtRepeat, Target: target, Targets: targets, Expr: expr, Span: a.span})
	case "case":
		return one(&Statement{Kind: StmtCase, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "content":
		return one(&Statement{Kind: StmtContent, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "replace":
		return one(&Statement{Kind: StmtReplace, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "omit-tag":
		return one(&Statement{Kind: StmtOmitTag, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "attributes":
		pairs, err := parsePairs(a.Raw)
		if err != nil {
			return nil, wrapAt(err, a.span)
		}
		return one(&Statement{Kind: StmtAttributes, Pairs: pairs, Span: a.span})
	case "on-error":
		return one(&Statement{Kind: StmtOnError, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "dummy":
		return one(&Statement{Kind: StmtDummy, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	}
	return nil, &LanguageError{Message: "unknown tal: statement " + local, Span: a.span}
}

func bindMetal(local string, a *Attribute) ([]*Statement, error) {
	switch local {
	case "define-macro":
		return one(&Statement{Kind: StmtDefineMacro, Target: strings.TrimSpace(a.Raw), Span: a.span})
	case "use-macro":
		return one(&Statement{Kind: StmtUseMacro, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "extend-macro":
		return one(&Statement{Kind: StmtExtendMacro, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "define-slot":
		return one(&Statement{Kind: StmtDefineSlot, Target: strings.TrimSpace(a.Raw), Span: a.span})
	case "fill-slot":
		return one(&Statement{Kind: StmtFillSlot, Target: strings.TrimSpace(a.Raw), Span: a.span})
	}
	return nil, &LanguageError{Message: "unknown metal: statement " + local, Span: a.span}
}

func bindI18N(local string, a *Attribute) ([]*Statement, error) {
	switch local {
	case "translate":
		return one(&Statement{Kind: StmtI18NTranslate, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "domain":
		return one(&Statement{Kind: StmtI18NDomain, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "source":
		return one(&Statement{Kind: StmtI18NSource, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "target":
		return one(&Statement{Kind: StmtI18NTarget, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "name":
		return one(&Statement{Kind: StmtI18NName, Target: strings.TrimSpace(a.Raw), Span: a.span})
	case "attributes":
		pairs, err := parsePairs(a.Raw)
		if err != nil {
			return nil, wrapAt(err, a.span)
		}
		return one(&Statement{Kind: StmtI18NAttributes, Pairs: pairs, Span: a.span})
	case "data":
		return one(&Statement{Kind: StmtI18NData, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "context":
		return one(&Statement{Kind: StmtI18NContext, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	case "ignore":
		return one(&Statement{Kind: StmtI18NIgnore, Expr: strings.TrimSpace(a.Raw), Span: a.span})
	}
	return nil, &LanguageError{Message: "unknown i18n: statement " + local, Span: a.span}
}

func bindMeta(local string, a *Attribute) ([]*Statement, error) {
	switch local {
	case "interpolation":
		return one(&Statement{Kind: StmtMetaInterpolation, Expr: strings.ToLower(strings.TrimSpace(a.Raw)), Span: a.span})
	}
	return nil, &LanguageError{Message: "unknown meta: statement " + local, Span: a.span}
}

func one(s *Statement) ([]*Statement, error) { return []*Statement{s}, nil }

func wrapAt(err error, span Span) error {
	if le, ok := err.(*LanguageError); ok {
		le.Span = span
		return le
	}
	return &LanguageError{Message: err.Error(), Span: span}
}

// splitStatements splits s on top-level ";" separators, per the spec's
// separator rule that ";;" is the literal semicolon rather than a split
// point. A split segment never itself contains an unescaped ";"; ";;"
// sequences inside a segment are collapsed to a single literal ";".
func splitStatements(s string) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == ';' {
			if i+1 < len(s) && s[i+1] == ';' {
				cur.WriteByte(';')
				i++
				continue
			}
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteByte(s[i])
	}
	out = append(out, strings.TrimSpace(cur.String()))
	return out
}

// parsePairs parses a tal:attributes/i18n:attributes payload ("name1 expr1;
// name2 expr2") into name/expression pairs, using splitStatements for the
// top-level separator and the first run of whitespace within each segment
// to separate the attribute name from its expression.
func parsePairs(raw string) ([]AttrExprPair, error) {
	var out []AttrExprPair
	for _, segment := range splitStatements(raw) {
		if segment == "" {
			continue
		}
		name, expr, ok := cutSpace(segment)
		if !ok {
			return nil, &LanguageError{Message: "malformed attributes entry: " + segment}
		}
		out = append(out, AttrExprPair{Name: name, Expr: expr})
	}
	return out, nil
}

// parseDefineEntry parses one tal:define segment: an optional "global"
// qualifier, a target (plain name or "(a, b, c)" tuple pattern), then an
// expression.
func parseDefineEntry(segment string, span Span) (*Statement, error) {
	global := false
	if rest, ok := cutPrefixWord(segment, "global"); ok {
		global = true
		segment = rest
	} else if rest, ok := cutPrefixWord(segment, "local"); ok {
		segment = rest
	}
	target, targets, expr, err := parseTargetAndExpr(segment)
	if err != nil {
		return nil, wrapAt(err, span)
	}
	return &Statement{Kind: StmtDefine, Target: target, Targets: targets, Global: global, Expr: expr, Span: span}, nil
}

// parseTargetAndExpr splits "target expr" or "(a, b, c) expr" into the
// bound name(s) and the remaining expression text, used by both
// tal:define and tal:repeat.
func parseTargetAndExpr(s string) (target string, targets []string, expr string, err error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") {
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return "", nil, "", &LanguageError{Message: "unterminated tuple target in " + s}
		}
		inner := s[1:end]
		for _, p := range strings.Split(inner, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				targets = append(targets, p)
			}
		}
		expr = strings.TrimSpace(s[end+1:])
		return "", targets, expr, nil
	}
	name, rest, ok := cutSpace(s)
	if !ok {
		return "", nil, "", &LanguageError{Message: "missing expression after target in " + s}
	}
	return name, nil, rest, nil
}

// cutSpace splits s at its first run of whitespace, trimming the remainder.
func cutSpace(s string) (before, after string, ok bool) {
	i := strings.IndexAny(s, " \t\n\r")
	if i < 0 {
		return "", "", false
	}
	return s[:i], strings.TrimSpace(s[i:]), true
}

// cutPrefixWord reports whether s begins with word followed by whitespace
// (or is exactly word), returning the remainder trimmed.
func cutPrefixWord(s, word string) (string, bool) {
	if s == word {
		return "", true
	}
	if strings.HasPrefix(s, word) && len(s) > len(word) {
		switch s[len(word)] {
		case ' ', '\t', '\n', '\r':
			return strings.TrimSpace(s[len(word):]), true
		}
	}
	return s, false
}
