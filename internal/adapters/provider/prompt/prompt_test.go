package prompt

import (
	"testing"

	"github.com/dkeye/VoiceBridge/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateFirstPass(t *testing.T) {
	p := Translate(core.TranslationRequest{
		Text:       "hello",
		SourceName: "English",
		TargetName: "Burmese",
	})
	assert.Equal(t, `Translate the following English sentence into Burmese: "hello"`, p)
}

func TestTranslateRefineUsesContext(t *testing.T) {
	p := Translate(core.TranslationRequest{
		Text:       "helo",
		Context:    "မင်္ဂလာပါ",
		SourceTag:  "my-MM",
		TargetTag:  "en",
		SourceName: "Burmese",
		TargetName: "English",
	})
	assert.Contains(t, p, "Burmese sentence was spoken")
	assert.Contains(t, p, `"helo"`)
	assert.Contains(t, p, "natural English translation")
}

func TestTranslateFallsBackToTags(t *testing.T) {
	p := Translate(core.TranslationRequest{Text: "x", SourceTag: "fr", TargetTag: "de"})
	assert.Equal(t, `Translate the following fr sentence into de: "x"`, p)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "hi", Clean(`  "hi"  `))
	assert.Equal(t, "hi", Clean("'hi'\n"))
	assert.Equal(t, `"`, Clean(`"`))
	assert.Equal(t, "", Clean("   "))
}
