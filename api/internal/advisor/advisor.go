// Package advisor turns one farmer turn (text or recorded audio) into one
// advisor turn (text and optionally synthesized speech). It owns the calls to
// the chat, speech-to-text and text-to-speech collaborators and converts every
// collaborator failure into a Result; nothing is retained between turns.
package advisor

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agri-relay/api/internal/artifact"
	"agri-relay/api/internal/metrics"
	"agri-relay/api/internal/normalize"
	"agri-relay/api/internal/prompt"
	"agri-relay/api/internal/toon"
	"agri-relay/api/internal/util"
)

// Completion is one chat request.
type Completion struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

type ChatModel interface {
	Complete(ctx context.Context, c Completion) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

type Config struct {
	Prompts     prompt.Set
	MaxTokens   int
	Temperature float32
	// Language is passed to the transcriber as a hint.
	Language string
	Voice    string
}

// Deps are the process-wide collaborator handles.
type Deps struct {
	Chat    ChatModel
	STT     Transcriber
	TTS     Synthesizer
	Files   *artifact.Manager
	Metrics *metrics.Metrics
}

type Orchestrator struct {
	chat    ChatModel
	stt     Transcriber
	tts     Synthesizer
	files   *artifact.Manager
	metrics *metrics.Metrics
	cfg     Config
}

func New(d Deps, cfg Config) (*Orchestrator, error) {
	switch {
	case d.Chat == nil:
		return nil, errors.New("advisor: chat model is required")
	case d.STT == nil:
		return nil, errors.New("advisor: transcriber is required")
	case d.TTS == nil:
		return nil, errors.New("advisor: synthesizer is required")
	case d.Files == nil:
		return nil, errors.New("advisor: artifact manager is required")
	}
	def := prompt.Defaults()
	if cfg.Prompts.System == "" {
		cfg.Prompts.System = def.System
	}
	if cfg.Prompts.Directive == "" {
		cfg.Prompts.Directive = def.Directive
	}
	if cfg.Prompts.Apology == "" {
		cfg.Prompts.Apology = def.Apology
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 600
	}
	return &Orchestrator{
		chat:    d.Chat,
		stt:     d.STT,
		tts:     d.TTS,
		files:   d.Files,
		metrics: d.Metrics,
		cfg:     cfg,
	}, nil
}

// Question extracts the user text from a request body: the Q field when the
// body is a TOON record carrying one, otherwise the whole body.
func Question(raw string) string {
	if q, ok := toon.Decode(raw).Get(toon.KeyQuestion); ok {
		return strings.TrimSpace(q)
	}
	return strings.TrimSpace(raw)
}

// SynthesisInput is what the synthesizer receives for text.
func SynthesisInput(directive, text string) string {
	if directive == "" {
		return text
	}
	return directive + "\n" + text
}

func (o *Orchestrator) Apology() string { return o.cfg.Prompts.Apology }

// call runs one collaborator call, turning panics into errors.
func (o *Orchestrator) call(name string, fn func() error) (err error) {
	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("%s collaborator panicked: %v", name, p)
		}
		o.metrics.ObserveCall(name, started, err)
	}()
	return fn()
}

func (o *Orchestrator) record(path string, r Result) {
	o.metrics.RecordTurn(path, r.Kind.String())
	switch {
	case r.Kind == KindCollaboratorFailure:
		log.Error().Err(r.Err).Str("path", path).Msg("collaborator failed")
	case r.Kind == KindInternal:
		log.Error().Err(r.Err).Str("path", path).Msg("turn failed locally")
	case r.Kind == KindEmptyResult:
		log.Warn().Err(r.Err).Str("path", path).Msg("collaborator returned nothing usable")
	case r.Degraded:
		log.Error().Err(r.Err).Str("path", path).Msg("chat failed, replied with apology")
	}
}

// Chat answers a text question.
func (o *Orchestrator) Chat(ctx context.Context, raw string) Result {
	res := o.answer(ctx, Question(raw))
	o.record("chat", res)
	return res
}

func (o *Orchestrator) answer(ctx context.Context, question string) Result {
	if question == "" {
		return invalid(ErrNoText, MsgNoText)
	}
	var reply string
	err := o.call("chat", func() error {
		var err error
		reply, err = o.chat.Complete(ctx, Completion{
			System:      o.cfg.Prompts.System,
			User:        question,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		return err
	})
	text := normalize.Text(reply)
	if err == nil && text == "" {
		err = ErrEmptyCompletion
	}
	if err != nil {
		o.metrics.RecordDegraded()
		return Result{Kind: KindOK, Text: o.cfg.Prompts.Apology, Degraded: true, Err: err}
	}
	return Result{Kind: KindOK, Text: text}
}

// Transcribe converts an uploaded recording into text.
func (o *Orchestrator) Transcribe(ctx context.Context, up *Upload) Result {
	res := o.transcribe(ctx, up)
	o.record("transcribe", res)
	return res
}

func (o *Orchestrator) transcribe(ctx context.Context, up *Upload) Result {
	if up == nil || up.Body == nil {
		return invalid(ErrNoAudio, MsgNoAudio)
	}
	body, head := peek(up.Body)
	if len(head) == 0 {
		return invalid(ErrNoAudio, MsgNoAudio)
	}
	suffix := util.AudioSuffix(up.Name, up.MIMEType, head)

	var transcript string
	var sttErr error
	err := o.files.WithTempFile(suffix, func(path string) error {
		if err := writeFile(path, body); err != nil {
			return err
		}
		sttErr = o.call("stt", func() error {
			var err error
			transcript, err = o.stt.Transcribe(ctx, path, o.cfg.Language)
			return err
		})
		return nil
	})
	var ue *UploadError
	switch {
	case errors.As(err, &ue):
		return invalid(err, MsgUploadUnreadable)
	case err != nil:
		return internal(errors.Wrap(err, "persist upload"))
	case errors.Is(sttErr, ErrUnsupportedAudio):
		return invalid(sttErr, MsgUnsupportedAudio)
	case sttErr != nil:
		return failure(sttErr, MsgTranscriptionFailed)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return Result{Kind: KindEmptyResult, Message: MsgEmptyTranscript, Err: ErrEmptyTranscript}
	}
	return Result{Kind: KindOK, Text: transcript}
}

// Speak synthesizes speech for the text in raw. On success Result.Audio holds
// a file the caller must Release once it has been sent.
func (o *Orchestrator) Speak(ctx context.Context, raw string) Result {
	res := o.speak(ctx, Question(raw))
	o.record("speak", res)
	return res
}

func (o *Orchestrator) speak(ctx context.Context, text string) Result {
	if text == "" {
		return invalid(ErrNoText, MsgNoText)
	}
	input := SynthesisInput(o.cfg.Prompts.Directive, text)
	var audio []byte
	err := o.call("tts", func() error {
		var err error
		audio, err = o.tts.Synthesize(ctx, input, o.cfg.Voice)
		return err
	})
	if err != nil {
		return failure(err, MsgSynthesisFailed)
	}
	if len(audio) == 0 {
		return Result{Kind: KindEmptyResult, Message: MsgEmptyAudio, Err: ErrEmptyAudio}
	}
	art, err := o.files.Store(".mp3", util.MIMEMP3, audio)
	if err != nil {
		return internal(errors.Wrap(err, "store speech"))
	}
	return Result{Kind: KindOK, Audio: art}
}
