package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"agri-relay/api/internal/advisor"
)

// HomeText is served on GET /.
const HomeText = "🌾 Agriculture Chatbot API is running!"

// Advisor is the subset of the orchestrator the HTTP surface needs.
type Advisor interface {
	Chat(ctx context.Context, raw string) advisor.Result
	Transcribe(ctx context.Context, up *advisor.Upload) advisor.Result
	Speak(ctx context.Context, raw string) advisor.Result
}

type Handle struct {
	adv       Advisor
	timeout   time.Duration
	maxUpload int64
}

func New(adv Advisor, timeout time.Duration, maxUpload int64) *Handle {
	if timeout <= 0 {
		timeout = 70 * time.Second
	}
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}
	return &Handle{
		adv:       adv,
		timeout:   timeout,
		maxUpload: maxUpload,
	}
}

func (h *Handle) Home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(HomeText))
}

func (h *Handle) Healthz(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

// Preflight answers a bare OPTIONS with 204 and no body.
func (h *Handle) Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handle) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.timeout)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusFor maps a failed Result to its HTTP status.
func StatusFor(k advisor.Kind) int {
	switch k {
	case advisor.KindOK:
		return http.StatusOK
	case advisor.KindInvalidRequest:
		return http.StatusBadRequest
	case advisor.KindCollaboratorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, res advisor.Result) {
	msg := res.Message
	if msg == "" {
		msg = http.StatusText(StatusFor(res.Kind))
	}
	writeJSON(w, StatusFor(res.Kind), errorResponse{Error: msg})
}
