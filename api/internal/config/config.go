package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ProviderGitHub     = "github"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderGoogle     = "google"
	ProviderLocal      = "local"
	ProviderElevenLabs = "elevenlabs"

	GitHubModelsURL = "https://models.github.ai/inference"
)

type Config struct {
	Port      string `mapstructure:"port"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	ChatProvider    string  `mapstructure:"chat_provider"`
	ChatModel       string  `mapstructure:"chat_model"`
	ChatMaxTokens   int     `mapstructure:"chat_max_tokens"`
	ChatTemperature float32 `mapstructure:"chat_temperature"`

	STTProvider       string `mapstructure:"stt_provider"`
	STTModel          string `mapstructure:"stt_model"`
	STTLanguage       string `mapstructure:"stt_language"`
	LocalSTTURL       string `mapstructure:"local_stt_url"`
	GoogleSTTLanguage string `mapstructure:"google_stt_language"`
	GoogleCredentials string `mapstructure:"google_credentials_file"`

	TTSProvider     string `mapstructure:"tts_provider"`
	TTSModel        string `mapstructure:"tts_model"`
	TTSVoice        string `mapstructure:"tts_voice"`
	ElevenLabsKey   string `mapstructure:"elevenlabs_api_key"`
	ElevenLabsModel string `mapstructure:"elevenlabs_model"`

	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	GitHubToken   string `mapstructure:"github_token"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`

	ArtifactDir         string        `mapstructure:"artifact_dir"`
	PromptDir           string        `mapstructure:"prompt_dir"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	MaxUploadBytes      int64         `mapstructure:"max_upload_bytes"`
	CORSOrigins         []string      `mapstructure:"cors_origins"`

	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	WebhookURL       string `mapstructure:"webhook_url"`
}

var defaults = map[string]any{
	"port":       "8000",
	"log_level":  "info",
	"log_format": "json",

	"chat_provider":    ProviderGitHub,
	"chat_model":       "",
	"chat_max_tokens":  600,
	"chat_temperature": 0.6,

	"stt_provider":            ProviderOpenAI,
	"stt_model":               "whisper-1",
	"stt_language":            "ne",
	"local_stt_url":           "http://127.0.0.1:8080/inference",
	"google_stt_language":     "ne-NP",
	"google_credentials_file": "",

	"tts_provider":       ProviderOpenAI,
	"tts_model":          "tts-1",
	"tts_voice":          "alloy",
	"elevenlabs_api_key": "",
	"elevenlabs_model":   "eleven_multilingual_v2",

	"openai_api_key":  "",
	"openai_base_url": "",
	"github_token":    "",
	"gemini_api_key":  "",

	"artifact_dir":         "",
	"prompt_dir":           "",
	"request_timeout":      70 * time.Second,
	"collaborator_timeout": 60 * time.Second,
	"max_upload_bytes":     int64(25 << 20),
	"cors_origins":         []string{"*"},

	"telegram_bot_token": "",
	"webhook_url":        "",
}

// Load reads configuration from the environment and, when path is set, from
// a config file. Environment variables use the upper-case key names
// (CHAT_PROVIDER, OPENAI_API_KEY, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "read config")
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	c.normalize()
	return &c, nil
}

func (c *Config) normalize() {
	c.ChatProvider = strings.ToLower(strings.TrimSpace(c.ChatProvider))
	c.STTProvider = strings.ToLower(strings.TrimSpace(c.STTProvider))
	c.TTSProvider = strings.ToLower(strings.TrimSpace(c.TTSProvider))
	if c.ChatModel == "" {
		switch c.ChatProvider {
		case ProviderGitHub:
			c.ChatModel = "openai/gpt-4o-mini"
		case ProviderGemini:
			c.ChatModel = "gemini-2.5-flash"
		default:
			c.ChatModel = "gpt-4o-mini"
		}
	}
	if len(c.CORSOrigins) == 1 && strings.Contains(c.CORSOrigins[0], ",") {
		c.CORSOrigins = strings.Split(c.CORSOrigins[0], ",")
	}
	for i := range c.CORSOrigins {
		c.CORSOrigins[i] = strings.TrimSpace(c.CORSOrigins[i])
	}
}

// Validate fails when a selected provider is unknown or its credentials are
// missing, so the process stops at startup instead of failing per request.
func (c *Config) Validate() error {
	var missing []string
	need := func(ok bool, key string) {
		if !ok {
			missing = append(missing, key)
		}
	}

	switch c.ChatProvider {
	case ProviderGitHub:
		need(c.GitHubToken != "", "GITHUB_TOKEN")
	case ProviderOpenAI:
		need(c.OpenAIAPIKey != "", "OPENAI_API_KEY")
	case ProviderGemini:
		need(c.GeminiAPIKey != "", "GEMINI_API_KEY")
	default:
		return errors.Errorf("unknown CHAT_PROVIDER %q", c.ChatProvider)
	}

	switch c.STTProvider {
	case ProviderOpenAI:
		need(c.OpenAIAPIKey != "", "OPENAI_API_KEY")
	case ProviderGitHub:
		need(c.GitHubToken != "", "GITHUB_TOKEN")
	case ProviderLocal:
		need(c.LocalSTTURL != "", "LOCAL_STT_URL")
	case ProviderGoogle:
	default:
		return errors.Errorf("unknown STT_PROVIDER %q", c.STTProvider)
	}

	switch c.TTSProvider {
	case ProviderOpenAI:
		need(c.OpenAIAPIKey != "", "OPENAI_API_KEY")
	case ProviderElevenLabs:
		need(c.ElevenLabsKey != "", "ELEVENLABS_API_KEY")
		need(c.TTSVoice != "", "TTS_VOICE")
	default:
		return errors.Errorf("unknown TTS_PROVIDER %q", c.TTSProvider)
	}

	if len(missing) > 0 {
		return errors.Errorf("missing required env %s", strings.Join(dedupe(missing), ", "))
	}
	return nil
}

// ValidateBot additionally requires the Telegram token.
func (c *Config) ValidateBot() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramBotToken == "" {
		return errors.New("missing required env TELEGRAM_BOT_TOKEN")
	}
	return nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := in[:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
