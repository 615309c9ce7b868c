package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode     string         `mapstructure:"mode" validate:"oneof=debug release test"`
	Port     int            `mapstructure:"port" validate:"min=1,max=65535"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Signal   SignalConfig   `mapstructure:"signaling"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Provider ProviderConfig `mapstructure:"provider"`
	LiveKit  LiveKitConfig  `mapstructure:"livekit"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type HTTPConfig struct {
	CORSOrigins []string    `mapstructure:"cors_origins"`
	ICEServers  []ICEServer `mapstructure:"ice_servers" validate:"dive"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls" validate:"min=1"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type SignalConfig struct {
	ReadLimit  int64         `mapstructure:"read_limit" validate:"min=1024"`
	SendQueue  int           `mapstructure:"send_queue" validate:"min=1"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	// Strict enforces the call lifecycle instead of relaying blindly.
	Strict bool `mapstructure:"strict"`
	// Backpressure is "kick" or "drop".
	Backpressure string `mapstructure:"backpressure" validate:"oneof=kick drop"`
}

type PipelineConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout" validate:"gt=0"`
	MaxConcurrent   int64         `mapstructure:"max_concurrent" validate:"min=0"`
	RateLimit       int           `mapstructure:"rate_limit" validate:"min=0"`
	RateInterval    time.Duration `mapstructure:"rate_interval"`
}

type ProviderConfig struct {
	// Recognizer is one of azure, google, deepgram, openai; empty disables
	// the audio pipeline.
	Recognizer string `mapstructure:"recognizer" validate:"omitempty,oneof=azure google deepgram openai"`
	// Translator performs the first-pass translation.
	Translator string `mapstructure:"translator" validate:"omitempty,oneof=gemini openai"`
	// Secondary refines LanguageA translations; empty skips refinement.
	Secondary string `mapstructure:"secondary" validate:"omitempty,oneof=gemini openai"`

	Azure    AzureConfig    `mapstructure:"azure"`
	Google   GoogleConfig   `mapstructure:"google"`
	Deepgram DeepgramConfig `mapstructure:"deepgram"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Gemini   GeminiConfig   `mapstructure:"gemini"`
}

type AzureConfig struct {
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

type GoogleConfig struct {
	CredentialsFile string   `mapstructure:"credentials_file"`
	APIKey          string   `mapstructure:"api_key"`
	Encoding        string   `mapstructure:"encoding"`
	SampleRate      int32    `mapstructure:"sample_rate"`
	Phrases         []string `mapstructure:"phrases"`
}

type DeepgramConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OpenAIConfig struct {
	APIKey          string `mapstructure:"api_key"`
	TranscribeModel string `mapstructure:"transcribe_model"`
	ChatModel       string `mapstructure:"chat_model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type LiveKitConfig struct {
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl" validate:"gt=0"`
}

// legacyEnv maps bare environment variable names onto config keys.
var legacyEnv = map[string]string{
	"port":                      "PORT",
	"provider.azure.key":        "SPEECH_KEY",
	"provider.azure.region":     "SPEECH_REGION",
	"provider.gemini.api_key":   "GEMINI_API_KEY",
	"provider.openai.api_key":   "OPENAI_API_KEY",
	"provider.deepgram.api_key": "DEEPGRAM_API_KEY",
	"livekit.api_key":           "LIVEKIT_API_KEY",
	"livekit.api_secret":        "LIVEKIT_API_SECRET",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("http.cors_origins", []string{"*"})
	v.SetDefault("http.ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("signaling.read_limit", 8<<20)
	v.SetDefault("signaling.send_queue", 64)
	v.SetDefault("signaling.ping_period", "54s")
	v.SetDefault("signaling.strict", false)
	v.SetDefault("signaling.backpressure", "kick")
	v.SetDefault("pipeline.provider_timeout", "30s")
	v.SetDefault("pipeline.max_concurrent", 16)
	v.SetDefault("pipeline.rate_limit", 0)
	v.SetDefault("pipeline.rate_interval", "10s")
	v.SetDefault("log.file", "")
	v.SetDefault("provider.recognizer", "")
	v.SetDefault("provider.translator", "")
	v.SetDefault("provider.secondary", "")
	v.SetDefault("provider.google.credentials_file", "")
	v.SetDefault("provider.google.api_key", "")
	v.SetDefault("provider.azure.region", "southeastasia")
	v.SetDefault("provider.google.encoding", "WEBM_OPUS")
	v.SetDefault("provider.google.sample_rate", 48000)
	v.SetDefault("provider.deepgram.model", "nova-2")
	v.SetDefault("provider.openai.transcribe_model", "gpt-4o-transcribe")
	v.SetDefault("provider.openai.chat_model", "gpt-4o-mini")
	v.SetDefault("provider.gemini.model", "gemini-2.5-flash")
	v.SetDefault("livekit.token_ttl", "6h")
}

// Load reads config/config.<CONFIG_ENV>.yaml when present, then applies
// VOICE_* environment overrides and the bare legacy variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("VOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		if err := v.BindEnv(key, "VOICE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("recognizer", cfg.Provider.Recognizer).
		Str("translator", cfg.Provider.Translator).
		Str("secondary", cfg.Provider.Secondary).
		Msg("config ready")
	return &cfg, nil
}

// Validate checks field constraints and cross-field provider requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Provider.Recognizer != "" && c.Provider.Translator == "" {
		return fmt.Errorf("invalid config: provider.translator is required with recognizer %q", c.Provider.Recognizer)
	}
	return nil
}

// PipelineEnabled reports whether audio recordings can be processed.
func (c *Config) PipelineEnabled() bool {
	return c.Provider.Recognizer != ""
}
