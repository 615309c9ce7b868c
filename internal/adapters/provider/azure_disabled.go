//go:build !azurespeech

package provider

import (
	"errors"

	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/core"
)

var errAzureUnavailable = errors.New("azure recognizer requires building with -tags azurespeech")

func newAzure(config.AzureConfig) (core.Recognizer, error) {
	return nil, errAzureUnavailable
}
