package util

import (
	"bytes"
	"mime"
	"path/filepath"
	"strings"
)

const (
	MIMEOgg  = "audio/ogg"
	MIMEWebM = "audio/webm"
	MIMEWAV  = "audio/wav"
	MIMEMP3  = "audio/mpeg"
	MIMEFLAC = "audio/flac"
	MIMEMP4  = "audio/mp4"
)

var extByMIME = map[string]string{
	MIMEOgg:       ".ogg",
	"audio/opus":  ".ogg",
	MIMEWebM:      ".webm",
	"video/webm":  ".webm",
	MIMEWAV:       ".wav",
	"audio/wave":  ".wav",
	"audio/x-wav": ".wav",
	MIMEMP3:       ".mp3",
	"audio/mp3":   ".mp3",
	MIMEFLAC:      ".flac",
	MIMEMP4:       ".m4a",
	"audio/x-m4a": ".m4a",
}

var knownExt = map[string]bool{
	".ogg": true, ".oga": true, ".opus": true, ".webm": true, ".wav": true,
	".mp3": true, ".flac": true, ".m4a": true, ".mp4": true, ".mpga": true,
}

// SniffAudioMIME recognises the containers browsers and phones usually record in.
func SniffAudioMIME(b []byte) string {
	switch {
	case bytes.HasPrefix(b, []byte("OggS")):
		return MIMEOgg
	case bytes.HasPrefix(b, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return MIMEWebM
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return MIMEWAV
	case bytes.HasPrefix(b, []byte("ID3")):
		return MIMEMP3
	case len(b) >= 2 && b[0] == 0xFF && (b[1]&0xE0) == 0xE0:
		return MIMEMP3
	case bytes.HasPrefix(b, []byte("fLaC")):
		return MIMEFLAC
	case len(b) >= 8 && bytes.Equal(b[4:8], []byte("ftyp")):
		return MIMEMP4
	}
	return "application/octet-stream"
}

// AudioSuffix picks a file extension for an upload: the filename's own
// extension when recognised, then the declared MIME type, then the sniffed one.
// Recorders in browsers default to WebM, so that is the fallback.
func AudioSuffix(name, declared string, head []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); knownExt[ext] {
		return ext
	}
	if m, _, err := mime.ParseMediaType(declared); err == nil {
		if ext, ok := extByMIME[m]; ok {
			return ext
		}
	}
	if ext, ok := extByMIME[SniffAudioMIME(head)]; ok {
		return ext
	}
	return ".webm"
}
