package runtime

import "fmt"

// Translate is the signature of the translation callable the spec's render
// entry point accepts. domain, mapping, context and targetLanguage may be
// empty/nil; defaultText is used when the backend has no translation.
type Translate func(msgid interface{}, domain string, mapping map[string]interface{}, context string, targetLanguage string, defaultText string) (string, error)

// NoopTranslate is the identity translation: it stringifies msgid (applying
// mapping substitution if msgid is a MessageID) and returns it unchanged.
// It is the default when a render call passes a nil Translate, matching the
// spec's requirement that "identity returns are coerced to their string
// form."
func NoopTranslate(msgid interface{}, domain string, mapping map[string]interface{}, context string, targetLanguage string, defaultText string) (string, error) {
	return Interpolate(MsgidText(msgid), mapping), nil
}

// MessageID is the non-string/non-number message descriptor the spec
// allows msgid to be: a translatable string plus the substitution mapping
// collected from descendant i18n:name captures.
type MessageID struct {
	ID      string
	Default string
	Mapping map[string]interface{}
	Domain  string
	Context string
}

func (m MessageID) String() string { return m.ID }

// MsgidText extracts the literal text a MessageID or plain string carries,
// for use as a gettext id or as the identity fallback.
func MsgidText(msgid interface{}) string {
	switch v := msgid.(type) {
	case string:
		return v
	case MessageID:
		return v.ID
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Interpolate substitutes ${name} placeholders in a translated message
// using mapping, the runtime counterpart of i18n:name capture.
func Interpolate(text string, mapping map[string]interface{}) string {
	if len(mapping) == 0 {
		return text
	}
	var out []byte
	for i := 0; i < len(text); {
		if text[i] == '$' && i+1 < len(text) && text[i+1] == '{' {
			end := i + 2
			for end < len(text) && text[end] != '}' {
				end++
			}
			if end < len(text) {
				name := text[i+2 : end]
				if v, ok := mapping[name]; ok {
					out = append(out, []byte(fmt.Sprintf("%v", v))...)
					i = end + 1
					continue
				}
			}
		}
		out = append(out, text[i])
		i++
	}
	return string(out)
}

// Invoke calls translate with the spec's coercion rules: an empty string is
// never translated, and any non-string return value is stringified.
func Invoke(translate Translate, msgid interface{}, domain string, mapping map[string]interface{}, context string, targetLanguage string, defaultText string) (string, error) {
	if s, ok := msgid.(string); ok && s == "" {
		return "", nil
	}
	if translate == nil {
		translate = NoopTranslate
	}
	result, err := translate(msgid, domain, mapping, context, targetLanguage, defaultText)
	if err != nil {
		return "", err
	}
	return result, nil
}
