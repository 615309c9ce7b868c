package domain

// Language is the spoken-language hint attached to an audio recording.
type Language string

const (
	// LanguageA is the secondary-language branch; its first-pass translation
	// may be refined by the secondary translator.
	LanguageA Language = "my-MM"
	LanguageB Language = "en-US"
)

// ParseLanguage maps the client-supplied hint onto one of the two supported
// languages. Unknown hints fall back to LanguageB.
func ParseLanguage(hint string) Language {
	if Language(hint) == LanguageA {
		return LanguageA
	}
	return LanguageB
}

// SourceTag is the recognition locale for the spoken language.
func (l Language) SourceTag() string {
	if l == LanguageA {
		return "my-MM"
	}
	return "en-US"
}

// TargetTag is the translation language paired with l.
func (l Language) TargetTag() string {
	if l == LanguageA {
		return "en"
	}
	return "my"
}

// SourceName and TargetName are human-readable names used in prompts.
func (l Language) SourceName() string {
	if l == LanguageA {
		return "Burmese"
	}
	return "English"
}

func (l Language) TargetName() string {
	if l == LanguageA {
		return "English"
	}
	return "Burmese"
}

// NeedsRefinement reports whether the first-pass translation goes through
// the secondary translator.
func (l Language) NeedsRefinement() bool { return l == LanguageA }
