package handle

import (
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"
)

// Speak answers POST /speak with the synthesized mp3. The audio file is
// released once the body has been written, whatever happened to the client.
func (h *Handle) Speak(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		h.Preflight(w, r)
		return
	}
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

	res := h.adv.Speak(ctx, raw)
	if !res.OK() {
		writeFailure(w, res)
		return
	}
	defer res.Audio.Release()

	f, err := res.Audio.Open()
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Str("artifact", res.Audio.String()).Msg("open synthesized audio")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Speech synthesis failed"})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", res.Audio.MIMEType)
	w.Header().Set("Content-Length", strconv.FormatInt(res.Audio.Size, 10))
	w.Header().Set("Content-Disposition", `inline; filename="reply.mp3"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("stream synthesized audio")
	}
}
