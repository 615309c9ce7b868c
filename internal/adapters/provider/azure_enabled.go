//go:build azurespeech

package provider

import (
	"github.com/dkeye/VoiceBridge/internal/adapters/provider/azure"
	"github.com/dkeye/VoiceBridge/internal/config"
	"github.com/dkeye/VoiceBridge/internal/core"
)

func newAzure(cfg config.AzureConfig) (core.Recognizer, error) {
	return azure.New(cfg)
}
