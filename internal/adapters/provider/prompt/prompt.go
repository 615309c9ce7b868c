// Package prompt builds the instructions sent to LLM-backed translators.
package prompt

import (
	"fmt"
	"strings"

	"github.com/dkeye/VoiceBridge/internal/core"
)

const System = "You are a professional interpreter. Reply with the translation only, without quotes, notes or explanations."

// Translate renders req as a single user prompt. With Context set the model
// is asked to refine an existing draft instead of translating from scratch.
func Translate(req core.TranslationRequest) string {
	src, dst := nameOr(req.SourceName, req.SourceTag), nameOr(req.TargetName, req.TargetTag)
	var b strings.Builder
	if strings.TrimSpace(req.Context) != "" {
		fmt.Fprintf(&b, "The following %s sentence was spoken: %q\n", src, req.Context)
		fmt.Fprintf(&b, "A machine translation into %s produced: %q\n", dst, req.Text)
		fmt.Fprintf(&b, "Return a corrected, natural %s translation of the spoken sentence.", dst)
		return b.String()
	}
	fmt.Fprintf(&b, "Translate the following %s sentence into %s: %q", src, dst, req.Text)
	return b.String()
}

// Clean strips wrapping quotes and whitespace models like to add.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

func nameOr(name, tag string) string {
	if name != "" {
		return name
	}
	return tag
}
