// Package whisper talks to a self-hosted whisper inference server
// (whisper.cpp server or a compatible endpoint) over multipart HTTP.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func New(endpoint string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint cannot be empty")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Name() string { return "local" }

type response struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (c *Client) Transcribe(ctx context.Context, audioPath, languageHint string) (string, error) {
	body, contentType, err := multipartBody(audioPath, languageHint)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", errors.Wrap(err, "failed to create HTTP request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("HTTP error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "failed to parse response JSON")
	}
	if out.Error != "" {
		return "", errors.Errorf("whisper: %s", out.Error)
	}
	return out.Text, nil
}

func multipartBody(audioPath, language string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", errors.Wrap(err, "open audio")
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to create form file")
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", errors.Wrap(err, "failed to write audio data")
	}

	fields := map[string]string{
		"response_format": "json",
		"temperature":     "0.0",
	}
	if language != "" {
		fields["language"] = language
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", errors.Wrapf(err, "failed to write field %s", k)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed to close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}
