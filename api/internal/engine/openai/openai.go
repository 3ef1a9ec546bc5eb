// Package openai implements the chat, transcription and speech collaborators
// on top of the OpenAI API. The same client also talks to GitHub Models and
// other OpenAI-compatible endpoints through BaseURL.
package openai

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"agri-relay/api/internal/advisor"
)

type Options struct {
	APIKey  string
	BaseURL string

	ChatModel   string
	STTModel    string
	SpeechModel string
}

type Engine struct {
	client *openai.Client
	opts   Options
}

func New(o Options) *Engine {
	cfg := openai.DefaultConfig(strings.TrimSpace(o.APIKey))
	if u := strings.TrimSpace(o.BaseURL); u != "" {
		cfg.BaseURL = strings.TrimRight(u, "/")
	}
	if o.ChatModel == "" {
		o.ChatModel = openai.GPT4oMini
	}
	if o.STTModel == "" {
		o.STTModel = openai.Whisper1
	}
	if o.SpeechModel == "" {
		o.SpeechModel = string(openai.TTSModel1)
	}
	return &Engine{client: openai.NewClientWithConfig(cfg), opts: o}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) Complete(ctx context.Context, c advisor.Completion) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       e.opts.ChatModel,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.System},
			{Role: openai.ChatMessageRoleUser, Content: c.User},
		},
	}
	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "openai chat")
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (e *Engine) Transcribe(ctx context.Context, audioPath, languageHint string) (string, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.opts.STTModel,
		FilePath: audioPath,
		Language: languageHint,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", errors.Wrap(err, "openai transcription")
	}
	return resp.Text, nil
}

func (e *Engine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	resp, err := e.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(e.opts.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, errors.Wrap(err, "openai speech")
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, errors.Wrap(err, "read speech body")
	}
	return audio, nil
}
