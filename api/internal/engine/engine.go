// Package engine builds the chat, speech-to-text and text-to-speech
// collaborators selected by configuration.
package engine

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agri-relay/api/internal/advisor"
	"agri-relay/api/internal/config"
	"agri-relay/api/internal/engine/elevenlabs"
	"agri-relay/api/internal/engine/gemini"
	"agri-relay/api/internal/engine/gspeech"
	"agri-relay/api/internal/engine/openai"
	"agri-relay/api/internal/engine/whisper"
)

type Engines struct {
	Chat advisor.ChatModel
	STT  advisor.Transcriber
	TTS  advisor.Synthesizer

	closers []io.Closer
}

// New constructs every collaborator once. Call Close on shutdown.
func New(ctx context.Context, cfg *config.Config) (*Engines, error) {
	e := &Engines{}
	var err error
	if e.Chat, err = e.chat(ctx, cfg); err != nil {
		e.Close()
		return nil, err
	}
	if e.STT, err = e.stt(ctx, cfg); err != nil {
		e.Close()
		return nil, err
	}
	if e.TTS, err = e.tts(cfg); err != nil {
		e.Close()
		return nil, err
	}
	chat, stt, tts := e.Names()
	log.Info().
		Str("chat", cfg.ChatProvider).
		Str("chat_engine", chat).
		Str("chat_model", cfg.ChatModel).
		Str("stt", cfg.STTProvider).
		Str("stt_engine", stt).
		Str("tts", cfg.TTSProvider).
		Str("tts_engine", tts).
		Msg("engines ready")
	return e, nil
}

type named interface {
	Name() string
}

func nameOf(v any) string {
	if n, ok := v.(named); ok {
		return n.Name()
	}
	return "unknown"
}

// Names reports which implementation serves each collaborator.
func (e *Engines) Names() (chat, stt, tts string) {
	return nameOf(e.Chat), nameOf(e.STT), nameOf(e.TTS)
}

func (e *Engines) chat(ctx context.Context, cfg *config.Config) (advisor.ChatModel, error) {
	switch cfg.ChatProvider {
	case config.ProviderGitHub:
		return openai.New(githubOptions(cfg, cfg.ChatModel)), nil
	case config.ProviderOpenAI:
		return openai.New(openaiOptions(cfg)), nil
	case config.ProviderGemini:
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.ChatModel)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, g)
		return g, nil
	default:
		return nil, errors.Errorf("unknown chat provider %q; use github, openai or gemini", cfg.ChatProvider)
	}
}

func (e *Engines) stt(ctx context.Context, cfg *config.Config) (advisor.Transcriber, error) {
	switch cfg.STTProvider {
	case config.ProviderOpenAI:
		return openai.New(openaiOptions(cfg)), nil
	case config.ProviderGitHub:
		o := githubOptions(cfg, cfg.ChatModel)
		o.STTModel = cfg.STTModel
		return openai.New(o), nil
	case config.ProviderLocal:
		return whisper.New(cfg.LocalSTTURL, cfg.CollaboratorTimeout)
	case config.ProviderGoogle:
		g, err := gspeech.New(ctx, cfg.GoogleCredentials, cfg.GoogleSTTLanguage)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, g)
		return g, nil
	default:
		return nil, errors.Errorf("unknown stt provider %q; use openai, github, local or google", cfg.STTProvider)
	}
}

func (e *Engines) tts(cfg *config.Config) (advisor.Synthesizer, error) {
	switch cfg.TTSProvider {
	case config.ProviderOpenAI:
		return openai.New(openaiOptions(cfg)), nil
	case config.ProviderElevenLabs:
		return elevenlabs.New(elevenlabs.Options{
			APIKey:  cfg.ElevenLabsKey,
			Model:   cfg.ElevenLabsModel,
			Voice:   cfg.TTSVoice,
			Timeout: cfg.CollaboratorTimeout,
		})
	default:
		return nil, errors.Errorf("unknown tts provider %q; use openai or elevenlabs", cfg.TTSProvider)
	}
}

func openaiOptions(cfg *config.Config) openai.Options {
	o := openai.Options{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		STTModel:    cfg.STTModel,
		SpeechModel: cfg.TTSModel,
	}
	if cfg.ChatProvider == config.ProviderOpenAI {
		o.ChatModel = cfg.ChatModel
	}
	return o
}

func githubOptions(cfg *config.Config, model string) openai.Options {
	return openai.Options{
		APIKey:    cfg.GitHubToken,
		BaseURL:   config.GitHubModelsURL,
		ChatModel: model,
	}
}

func (e *Engines) Close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close engine")
		}
	}
	e.closers = nil
}
