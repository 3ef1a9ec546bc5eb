package advisor

import (
	"github.com/pkg/errors"

	"agri-relay/api/internal/artifact"
)

type Kind int

const (
	KindOK Kind = iota
	// KindInvalidRequest: required input missing. Never degraded.
	KindInvalidRequest
	// KindEmptyResult: the collaborator answered but with nothing usable.
	KindEmptyResult
	// KindCollaboratorFailure: the chat, stt or tts call failed.
	KindCollaboratorFailure
	// KindInternal: a local step failed, such as writing a temp file.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindInvalidRequest:
		return "invalid_request"
	case KindEmptyResult:
		return "empty_result"
	case KindCollaboratorFailure:
		return "collaborator_failure"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

var (
	ErrNoText          = errors.New("no text in request")
	ErrNoAudio         = errors.New("no audio uploaded")
	ErrEmptyCompletion = errors.New("chat model returned no text")
	ErrEmptyTranscript = errors.New("transcript is empty")
	ErrEmptyAudio      = errors.New("synthesizer returned no audio")
	// ErrUnsupportedAudio is returned by transcribers that cannot take the
	// uploaded container. Wrap it to add detail.
	ErrUnsupportedAudio = errors.New("unsupported audio format")
)

// Client-facing messages. Collaborator error details stay in the logs.
const (
	MsgNoText              = "Message is required"
	MsgNoAudio             = "No audio file uploaded"
	MsgEmptyTranscript     = "Could not recognise any speech"
	MsgTranscriptionFailed = "Transcription failed"
	MsgSynthesisFailed     = "Speech synthesis failed"
	MsgEmptyAudio          = "Speech synthesis returned no audio"
	MsgUploadUnreadable    = "Could not read the uploaded audio"
	MsgUnsupportedAudio    = "Unsupported audio format"
	MsgInternal            = "Internal error"
)

// Result is the outcome of one orchestrator call.
type Result struct {
	Kind Kind
	// Text is the advisor reply for chat turns and the transcript for
	// transcription.
	Text string
	// Transcript is set by Respond when the turn started as audio.
	Transcript string
	Audio      *artifact.Artifact
	// Degraded marks a chat reply replaced by the apology text.
	Degraded bool
	// Message is safe to show to clients when Kind is not KindOK.
	Message string
	Err     error
}

func (r Result) OK() bool { return r.Kind == KindOK }

func invalid(err error, msg string) Result {
	return Result{Kind: KindInvalidRequest, Message: msg, Err: err}
}

func failure(err error, msg string) Result {
	return Result{Kind: KindCollaboratorFailure, Message: msg, Err: err}
}

func internal(err error) Result {
	return Result{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// UploadError is a failure reading the client's upload, as opposed to
// storing it. It unwraps to the reader's error.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "read upload: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }
