package advisor

import (
	"context"

	"github.com/rs/zerolog/log"
)

type InputKind int

const (
	InputText InputKind = iota
	InputAudio
)

type OutputKind int

const (
	OutputText OutputKind = iota
	OutputAudio
)

// Turn is one user input together with the reply forms the client wants.
type Turn struct {
	Input   InputKind
	Text    string
	Audio   *Upload
	Outputs []OutputKind
}

// Wants reports whether the turn asked for k. A turn without outputs wants text.
func (t Turn) Wants(k OutputKind) bool {
	if len(t.Outputs) == 0 {
		return k == OutputText
	}
	for _, o := range t.Outputs {
		if o == k {
			return true
		}
	}
	return false
}

// Respond runs a whole turn: transcription for audio input, then the chat
// reply, then synthesis when audio output is wanted. A failed synthesis keeps
// the text reply unless text was not requested.
func (o *Orchestrator) Respond(ctx context.Context, t Turn) Result {
	res := o.respond(ctx, t)
	o.record("turn", res)
	return res
}

func (o *Orchestrator) respond(ctx context.Context, t Turn) Result {
	var question, transcript string
	switch t.Input {
	case InputAudio:
		tr := o.transcribe(ctx, t.Audio)
		if !tr.OK() {
			return tr
		}
		transcript = tr.Text
		question = transcript
	default:
		question = Question(t.Text)
	}

	res := o.answer(ctx, question)
	res.Transcript = transcript
	if !res.OK() || !t.Wants(OutputAudio) {
		return res
	}

	sp := o.speak(ctx, res.Text)
	if sp.OK() {
		res.Audio = sp.Audio
		return res
	}
	if !t.Wants(OutputText) {
		sp.Transcript = transcript
		return sp
	}
	log.Warn().Err(sp.Err).Msg("reply synthesis failed, sending text only")
	return res
}
