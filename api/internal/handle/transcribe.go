package handle

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"

	"agri-relay/api/internal/advisor"
)

// FileField is the multipart field the web client posts the recording in.
const FileField = "file"

type TranscribeResponse struct {
	Text string `json:"text"`
}

// Transcribe answers POST /transcribe. The upload is streamed straight into
// the advisor; it is never buffered in memory as a whole.
func (h *Handle) Transcribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if r.ContentLength > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errTooLarge.Error()})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	up, err := upload(r)
	if tooLarge(err) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errTooLarge.Error()})
		return
	}
	if err != nil {
		hlog.FromRequest(r).Debug().Err(err).Msg("no audio in request")
	}

	ctx, cancel := h.context(r)
	defer cancel()

	res := h.adv.Transcribe(ctx, up)
	if tooLarge(res.Err) {
		// no declared length; the limit was hit while streaming
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: errTooLarge.Error()})
		return
	}
	if !res.OK() {
		writeFailure(w, res)
		return
	}
	writeJSON(w, http.StatusOK, TranscribeResponse{Text: res.Text})
}

// upload finds the audio part of a multipart request: the "file" field, or
// else the first part carrying a filename. A bare audio/* body is accepted
// too. A nil upload means nothing was sent.
func upload(r *http.Request) (*advisor.Upload, error) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream" {
		return &advisor.Upload{MIMEType: mt, Body: r.Body}, nil
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == FileField || part.FileName() != "" {
			return &advisor.Upload{
				Name:     part.FileName(),
				MIMEType: part.Header.Get("Content-Type"),
				Body:     part,
			}, nil
		}
	}
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
