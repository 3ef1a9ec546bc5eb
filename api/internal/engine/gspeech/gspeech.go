// Package gspeech transcribes recorded audio with Google Cloud Speech-to-Text.
package gspeech

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"agri-relay/api/internal/advisor"
)

// DefaultLanguage is used when neither the engine nor the caller names one.
const DefaultLanguage = "ne-NP"

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
	Close() error
}

type Engine struct {
	client   recognizer
	language string
}

// New relies on Application Default Credentials unless credentialsFile is set.
func New(ctx context.Context, credentialsFile, language string) (*Engine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	cl, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create speech client")
	}
	return &Engine{client: cl, language: language}, nil
}

func (e *Engine) Name() string { return "google" }

func (e *Engine) Transcribe(ctx context.Context, audioPath, languageHint string) (string, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return "", errors.Wrap(err, "read audio")
	}
	cfg, err := recognitionConfig(filepath.Ext(audioPath))
	if err != nil {
		return "", err
	}
	cfg.LanguageCode = e.languageCode(languageHint)

	resp, err := e.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: cfg,
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "speech recognize")
	}

	var parts []string
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func (e *Engine) Close() error {
	return e.client.Close()
}

// languageCode prefers the engine setting; a bare hint like "ne" is widened
// to the regional code the API expects.
func (e *Engine) languageCode(hint string) string {
	if e.language != "" {
		return e.language
	}
	switch hint = strings.TrimSpace(hint); {
	case hint == "", hint == "ne":
		return DefaultLanguage
	default:
		return hint
	}
}

func recognitionConfig(ext string) (*speechpb.RecognitionConfig, error) {
	switch strings.ToLower(ext) {
	case ".webm":
		return &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_WEBM_OPUS,
			SampleRateHertz: 48000,
		}, nil
	case ".ogg", ".oga", ".opus":
		return &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_OGG_OPUS,
			SampleRateHertz: 48000,
		}, nil
	case ".wav", ".flac":
		// sample rate and encoding come from the file header
		return &speechpb.RecognitionConfig{
			Encoding: speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
		}, nil
	default:
		return nil, errors.Wrapf(advisor.ErrUnsupportedAudio, "google speech: container %q", ext)
	}
}
