package handle

import (
	"net/http"

	"github.com/rs/zerolog/hlog"
)

type ChatResponse struct {
	Reply string `json:"reply"`
}

// Chat answers POST /chat. Degraded replies are still 200.
func (h *Handle) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	raw, err := h.readText(w, r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res := h.adv.Chat(ctx, raw)
	if !res.OK() {
		writeFailure(w, res)
		return
	}
	if res.Degraded {
		hlog.FromRequest(r).Warn().Err(res.Err).Msg("chat degraded to apology")
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: res.Text})
}

func writeBodyError(w http.ResponseWriter, err error) {
	if err == errTooLarge {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read request body"})
}
