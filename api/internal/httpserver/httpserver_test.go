package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-relay/api/internal/advisor"
	"agri-relay/api/internal/artifact"
	"agri-relay/api/internal/handle"
	"agri-relay/api/internal/metrics"
)

type echoChat struct{}

func (echoChat) Complete(_ context.Context, c advisor.Completion) (string, error) { return c.User, nil }

type noSTT struct{}

func (noSTT) Transcribe(context.Context, string, string) (string, error) { return "", nil }

type noTTS struct{}

func (noTTS) Synthesize(context.Context, string, string) ([]byte, error) { return nil, nil }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	files, err := artifact.New(t.TempDir(), m.ArtifactsLive)
	require.NoError(t, err)
	o, err := advisor.New(advisor.Deps{Chat: echoChat{}, STT: noSTT{}, TTS: noTTS{}, Files: files, Metrics: m}, advisor.Config{})
	require.NoError(t, err)
	return Router(handle.New(o, time.Second, 1<<20), reg, []string{"*"})
}

func TestRoutes(t *testing.T) {
	srv := httptest.NewServer(newRouter(t))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/chat", "text/plain", strings.NewReader("Q=मौसम"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	resp, err = http.Get(srv.URL + "/chat")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/speak", nil)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newRouter(t)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("Q=x")))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `agri_relay_turns_total{kind="ok",path="chat"} 1`)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
