package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-relay/api/internal/advisor"
	"agri-relay/api/internal/artifact"
	"agri-relay/api/internal/metrics"
	"agri-relay/api/internal/prompt"
)

type fakeChat struct {
	reply string
	err   error
	got   string
}

func (f *fakeChat) Complete(_ context.Context, c advisor.Completion) (string, error) {
	f.got = c.User
	return f.reply, f.err
}

type fakeSTT struct {
	text  string
	err   error
	calls int
}

func (f *fakeSTT) Transcribe(context.Context, string, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fakeTTS struct {
	audio []byte
	err   error
}

func (f *fakeTTS) Synthesize(context.Context, string, string) ([]byte, error) { return f.audio, f.err }

type env struct {
	h    *Handle
	chat *fakeChat
	stt  *fakeSTT
	tts  *fakeTTS
	m    *metrics.Metrics
	dir  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		chat: &fakeChat{reply: "धान असारमा रोप्नुहोस्।"},
		stt:  &fakeSTT{text: "धान कहिले रोप्ने?"},
		tts:  &fakeTTS{audio: []byte("ID3fake-mp3")},
		dir:  t.TempDir(),
	}
	m := metrics.New(prometheus.NewRegistry())
	e.m = m
	files, err := artifact.New(e.dir, m.ArtifactsLive)
	require.NoError(t, err)
	o, err := advisor.New(advisor.Deps{Chat: e.chat, STT: e.stt, TTS: e.tts, Files: files, Metrics: m},
		advisor.Config{Prompts: prompt.Defaults(), Language: "ne"})
	require.NoError(t, err)
	e.h = New(o, 5*time.Second, 1<<20)
	return e
}

func (e *env) files(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	return len(entries)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChat(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		question    string
	}{
		{"toon", "text/plain", "Q=धान कहिले रोप्ने?;L=ne", "धान कहिले रोप्ने?"},
		{"plain", "text/plain", "धान कहिले रोप्ने?", "धान कहिले रोप्ने?"},
		{"json message", "application/json", `{"message":"मकै"}`, "मकै"},
		{"json without header", "", `{"text":"गहुँ"}`, "गहुँ"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tc.body))
			if tc.contentType != "" {
				req.Header.Set("Content-Type", tc.contentType)
			}
			rec := httptest.NewRecorder()
			e.h.Chat(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "धान असारमा रोप्नुहोस्।", decode(t, rec)["reply"])
			assert.Equal(t, tc.question, e.chat.got)
		})
	}
}

func TestChatDegradedIsStill200(t *testing.T) {
	e := newEnv(t)
	e.chat.err = errors.New("upstream 503")

	rec := httptest.NewRecorder()
	e.h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("Q=x")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prompt.DefaultApology, decode(t, rec)["reply"])
}

func TestChatEmptyIs400(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"  "}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, advisor.MsgNoText, decode(t, rec)["error"])
}

func TestChatMethodNotAllowed(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.Chat(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatTooLarge(t *testing.T) {
	e := newEnv(t)
	e.h.maxUpload = 8
	rec := httptest.NewRecorder()
	e.h.Chat(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader("Q=this is far too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func multipartRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("lang", "ne"))
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTranscribe(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.Transcribe(rec, multipartRequest(t, "file", "audio.webm", []byte("\x1a\x45\xdf\xa3webm")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "धान कहिले रोप्ने?", decode(t, rec)["text"])
	assert.Zero(t, e.files(t))
}

func TestTranscribeOtherFieldName(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.Transcribe(rec, multipartRequest(t, "audio", "voice.ogg", []byte("OggSdata")))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTranscribeRawAudioBody(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("OggSdata"))
	req.Header.Set("Content-Type", "audio/ogg")
	rec := httptest.NewRecorder()
	e.h.Transcribe(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTranscribeStatuses(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		e := newEnv(t)
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("lang", "ne"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/transcribe", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, advisor.MsgNoAudio, decode(t, rec)["error"])
	})

	t.Run("not multipart", func(t *testing.T) {
		e := newEnv(t)
		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("hello")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blank transcript", func(t *testing.T) {
		e := newEnv(t)
		e.stt.text = "  \n "
		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, multipartRequest(t, "file", "audio.webm", []byte("data")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, advisor.MsgEmptyTranscript, decode(t, rec)["error"])
		assert.Zero(t, e.files(t))
	})

	t.Run("stt failure", func(t *testing.T) {
		e := newEnv(t)
		e.stt.err = errors.New("api key revoked")
		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, multipartRequest(t, "file", "audio.webm", []byte("data")))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		body := decode(t, rec)["error"]
		assert.Equal(t, advisor.MsgTranscriptionFailed, body)
		assert.NotContains(t, body, "api key")
		assert.Zero(t, e.files(t))
	})

	t.Run("declared too large", func(t *testing.T) {
		e := newEnv(t)
		e.h.maxUpload = 4
		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, multipartRequest(t, "file", "audio.webm", []byte("0123456789")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("streamed too large", func(t *testing.T) {
		e := newEnv(t)
		e.h.maxUpload = 2048
		req := multipartRequest(t, "file", "audio.webm", bytes.Repeat([]byte("a"), 10000))
		req.Body = io.NopCloser(io.MultiReader(req.Body))
		req.ContentLength = -1

		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Zero(t, e.stt.calls)
		assert.Zero(t, e.files(t))
		assert.Zero(t, testutil.ToFloat64(e.m.Turns.WithLabelValues("transcribe", "collaborator_failure")))
	})

	t.Run("raw body streamed too large", func(t *testing.T) {
		e := newEnv(t)
		e.h.maxUpload = 4
		req := httptest.NewRequest(http.MethodPost, "/transcribe", io.MultiReader(strings.NewReader("OggS0123456789")))
		req.Header.Set("Content-Type", "audio/ogg")
		req.ContentLength = -1

		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Zero(t, e.stt.calls)
	})

	t.Run("unsupported container", func(t *testing.T) {
		e := newEnv(t)
		e.stt.err = errors.Wrap(advisor.ErrUnsupportedAudio, `container ".mp3"`)
		rec := httptest.NewRecorder()
		e.h.Transcribe(rec, multipartRequest(t, "file", "song.mp3", []byte("ID3data")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, advisor.MsgUnsupportedAudio, decode(t, rec)["error"])
	})
}

func TestSpeak(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader(`{"text":"नमस्ते"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.h.Speak(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "11", rec.Header().Get("Content-Length"))
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, []byte("ID3fake-mp3"), body)
	assert.Zero(t, e.files(t), "synthesized audio must be removed after the response")
}

func TestSpeakStatuses(t *testing.T) {
	t.Run("options", func(t *testing.T) {
		e := newEnv(t)
		rec := httptest.NewRecorder()
		e.h.Speak(rec, httptest.NewRequest(http.MethodOptions, "/speak", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, rec.Body.Len())
	})

	t.Run("empty text", func(t *testing.T) {
		e := newEnv(t)
		rec := httptest.NewRecorder()
		e.h.Speak(rec, httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader("")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tts failure", func(t *testing.T) {
		e := newEnv(t)
		e.tts.err = errors.New("quota")
		rec := httptest.NewRecorder()
		e.h.Speak(rec, httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader("Q=x")))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, advisor.MsgSynthesisFailed, decode(t, rec)["error"])
	})

	t.Run("empty audio", func(t *testing.T) {
		e := newEnv(t)
		e.tts.audio = nil
		rec := httptest.NewRecorder()
		e.h.Speak(rec, httptest.NewRequest(http.MethodPost, "/speak", strings.NewReader("Q=x")))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Zero(t, e.files(t))
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusFor(advisor.KindOK))
	assert.Equal(t, http.StatusBadRequest, StatusFor(advisor.KindInvalidRequest))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(advisor.KindEmptyResult))
	assert.Equal(t, http.StatusBadGateway, StatusFor(advisor.KindCollaboratorFailure))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(advisor.KindInternal))
}

func TestHome(t *testing.T) {
	e := newEnv(t)
	rec := httptest.NewRecorder()
	e.h.Home(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, HomeText, rec.Body.String())
}
