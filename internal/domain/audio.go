package domain

import "time"

// AudioJob is one in-flight recognition+translation request.
type AudioJob struct {
	ID        string
	Source    Identity
	Target    Identity
	RawAudio  string // base64, as received
	Language  Language
	CreatedAt time.Time
}

// TranslationResult is produced once per successful AudioJob.
type TranslationResult struct {
	RecognizedText string   `json:"text"`
	TranslatedText string   `json:"translated"`
	Source         Identity `json:"from"`
	Target         Identity `json:"to"`
}
