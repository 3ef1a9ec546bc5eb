// Package elevenlabs synthesizes speech through the ElevenLabs REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://api.elevenlabs.io"

type Client struct {
	apiKey     string
	model      string
	voice      string
	baseURL    string
	httpClient *http.Client
}

type Options struct {
	APIKey  string
	Model   string
	Voice   string
	BaseURL string
	Timeout time.Duration
}

func New(o Options) (*Client, error) {
	if strings.TrimSpace(o.APIKey) == "" {
		return nil, errors.New("ELEVENLABS_API_KEY is empty")
	}
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return &Client{
		apiKey:     strings.TrimSpace(o.APIKey),
		model:      o.Model,
		voice:      o.Voice,
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		httpClient: &http.Client{Timeout: o.Timeout},
	}, nil
}

func (c *Client) Name() string { return "elevenlabs" }

type ttsRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id,omitempty"`
}

// Synthesize returns mp3 audio. An empty voice falls back to the configured
// one.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = c.voice
	}
	if voice == "" {
		return nil, errors.New("no elevenlabs voice configured")
	}

	payload, err := json.Marshal(ttsRequest{Text: text, ModelID: c.model})
	if err != nil {
		return nil, errors.Wrap(err, "marshal tts request")
	}
	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", c.baseURL, url.PathEscape(voice))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build tts request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "elevenlabs request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.Errorf("elevenlabs error %d: %s", resp.StatusCode, strings.TrimSpace(string(bb)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read tts body")
	}
	return audio, nil
}
