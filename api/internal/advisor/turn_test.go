package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-relay/api/internal/prompt"
)

func TestTurnWants(t *testing.T) {
	assert.True(t, Turn{}.Wants(OutputText))
	assert.False(t, Turn{}.Wants(OutputAudio))
	both := Turn{Outputs: []OutputKind{OutputText, OutputAudio}}
	assert.True(t, both.Wants(OutputAudio))
	assert.True(t, both.Wants(OutputText))
}

func TestRespondAudioInTextAndAudioOut(t *testing.T) {
	f := newFixture(t)
	f.stt.text = "गहुँमा के मल हाल्ने?"
	f.chat.reply = "- यूरिया हाल्नुहोस्"

	res := f.o.Respond(context.Background(), Turn{
		Input:   InputAudio,
		Audio:   &Upload{Name: "voice.ogg", Body: strings.NewReader("OggS....")},
		Outputs: []OutputKind{OutputText, OutputAudio},
	})
	require.True(t, res.OK())
	assert.Equal(t, "गहुँमा के मल हाल्ने?", res.Transcript)
	assert.Equal(t, "गहुँमा के मल हाल्ने?", f.chat.got.User)
	assert.Equal(t, "यूरिया हाल्नुहोस्", res.Text)
	require.NotNil(t, res.Audio)
	assert.True(t, strings.HasSuffix(f.tts.gotText, "यूरिया हाल्नुहोस्"))
	res.Audio.Release()
	assert.Zero(t, dirEntries(t, f.dir))
}

func TestRespondTextOnly(t *testing.T) {
	f := newFixture(t)
	f.chat.reply = "answer"
	res := f.o.Respond(context.Background(), Turn{Input: InputText, Text: "Q=question"})
	require.True(t, res.OK())
	assert.Equal(t, "answer", res.Text)
	assert.Nil(t, res.Audio)
	assert.Empty(t, f.tts.gotText)
}

func TestRespondStopsOnEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	f.stt.text = ""
	res := f.o.Respond(context.Background(), Turn{
		Input: InputAudio,
		Audio: &Upload{Name: "v.ogg", Body: strings.NewReader("OggS")},
	})
	assert.Equal(t, KindEmptyResult, res.Kind)
	assert.Zero(t, f.chat.calls)
}

func TestRespondSpeaksApology(t *testing.T) {
	f := newFixture(t)
	f.chat.err = errors.New("down")
	res := f.o.Respond(context.Background(), Turn{
		Text:    "hello",
		Outputs: []OutputKind{OutputText, OutputAudio},
	})
	require.True(t, res.OK())
	assert.True(t, res.Degraded)
	require.NotNil(t, res.Audio)
	assert.True(t, strings.HasSuffix(f.tts.gotText, prompt.DefaultApology))
	res.Audio.Release()
}

func TestRespondSynthesisFailure(t *testing.T) {
	f := newFixture(t)
	f.tts.err = errors.New("tts down")

	withText := f.o.Respond(context.Background(), Turn{Text: "hi", Outputs: []OutputKind{OutputText, OutputAudio}})
	assert.True(t, withText.OK())
	assert.Nil(t, withText.Audio)

	audioOnly := f.o.Respond(context.Background(), Turn{Text: "hi", Outputs: []OutputKind{OutputAudio}})
	assert.Equal(t, KindCollaboratorFailure, audioOnly.Kind)
}
