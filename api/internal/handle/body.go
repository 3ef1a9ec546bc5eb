package handle

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var errTooLarge = errors.New("request body too large")

// jsonKeys are accepted, in order, when the body is a JSON object.
var jsonKeys = []string{"message", "text", "q"}

// readText returns the request payload as the advisor expects it: the TOON
// or plain-text body as is, or the first known string field of a JSON body.
func (h *Handle) readText(w http.ResponseWriter, r *http.Request) (string, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		if tooLarge(err) {
			return "", errTooLarge
		}
		return "", errors.Wrap(err, "read body")
	}
	if isJSON(r.Header.Get("Content-Type"), b) {
		return fromJSON(b), nil
	}
	return string(b), nil
}

func isJSON(contentType string, b []byte) bool {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt == "application/json" {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(string(b)), "{")
}

func fromJSON(b []byte) string {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return string(b)
	}
	for _, k := range jsonKeys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}
