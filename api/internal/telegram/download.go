package telegram

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// download streams a Telegram file; the caller closes the body.
func download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errors.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return resp.Body, nil
}
