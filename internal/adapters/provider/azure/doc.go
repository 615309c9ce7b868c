// Package azure implements a core.Recognizer on the Microsoft Speech SDK.
// The SDK links against native libraries, so the recognizer is only built
// with the azurespeech build tag.
package azure
