package gemini

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"agri-relay/api/internal/advisor"
)

type Engine struct {
	client *genai.Client
	model  string
}

// New opens one client for the lifetime of the process; call Close on
// shutdown.
func New(ctx context.Context, apiKey, model string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "gemini client")
	}
	return &Engine{client: cl, model: strings.TrimSpace(model)}, nil
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) Complete(ctx context.Context, c advisor.Completion) (string, error) {
	m := e.client.GenerativeModel(e.model)
	if m == nil {
		return "", errors.New("gemini: model is nil")
	}
	m.SetTemperature(c.Temperature)
	if c.MaxTokens > 0 {
		m.SetMaxOutputTokens(int32(c.MaxTokens))
	}
	if c.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(c.System)}}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(c.User))
	if err != nil {
		return "", errors.Wrap(err, "gemini generate")
	}
	return firstText(resp), nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
