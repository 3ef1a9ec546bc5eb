// Package telegram is the Telegram front end of the relay: text and voice
// messages in, text and mp3 replies out.
package telegram

import (
	"context"
	"io"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"agri-relay/api/internal/advisor"
)

const maxMessageLen = 3900

// Bot is the part of *tgbotapi.BotAPI the router uses.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Responder interface {
	Respond(ctx context.Context, t advisor.Turn) advisor.Result
}

type Router struct {
	Bot     Bot
	Advisor Responder
	// Apology is sent when a turn fails outright.
	Apology string
	Timeout time.Duration
	// Fetch downloads a Telegram file; defaults to an HTTP GET.
	Fetch func(ctx context.Context, url string) (io.ReadCloser, error)
}

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(*upd.CallbackQuery)
		return
	}
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	switch {
	case msg.IsCommand():
		r.HandleCommand(msg)
	case msg.Voice != nil:
		r.acceptAudio(msg.Chat.ID, msg.Voice.FileID, "voice.ogg", msg.Voice.MimeType)
	case msg.Audio != nil:
		r.acceptAudio(msg.Chat.ID, msg.Audio.FileID, msg.Audio.FileName, msg.Audio.MimeType)
	case strings.TrimSpace(msg.Text) != "":
		r.acceptText(msg.Chat.ID, msg.Text)
	}
}

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start":
		r.send(cid, TextWelcome)
	case "help":
		r.send(cid, TextHelp)
	case "health":
		r.send(cid, "✅ OK")
	case "voice":
		on := !voiceEnabled(cid)
		switch strings.ToLower(strings.TrimSpace(msg.CommandArguments())) {
		case "on":
			on = true
		case "off":
			on = false
		}
		setVoice(cid, on)
		r.send(cid, voiceStatus(on))
	default:
		r.send(cid, TextUnknownCommand)
	}
}

func (r *Router) acceptText(chatID int64, text string) {
	r.respond(chatID, advisor.Turn{
		Input:   advisor.InputText,
		Text:    text,
		Outputs: outputs(chatID),
	})
}

func (r *Router) acceptAudio(chatID int64, fileID, name, mimeType string) {
	ctx, cancel := r.context()
	defer cancel()

	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram get file")
		r.send(chatID, r.Apology)
		return
	}
	body, err := r.fetch(ctx, url)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram download")
		r.send(chatID, r.Apology)
		return
	}
	defer body.Close()

	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	r.respondCtx(ctx, chatID, advisor.Turn{
		Input:   advisor.InputAudio,
		Audio:   &advisor.Upload{Name: name, MIMEType: mimeType, Body: body},
		Outputs: outputs(chatID),
	})
}

func (r *Router) respond(chatID int64, t advisor.Turn) {
	ctx, cancel := r.context()
	defer cancel()
	_, _ = r.Bot.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	r.respondCtx(ctx, chatID, t)
}

func (r *Router) respondCtx(ctx context.Context, chatID int64, t advisor.Turn) {
	res := r.Advisor.Respond(ctx, t)
	if res.Audio != nil {
		defer res.Audio.Release()
	}

	switch res.Kind {
	case advisor.KindOK:
	case advisor.KindEmptyResult:
		if t.Input == advisor.InputAudio {
			r.send(chatID, TextNotHeard)
			return
		}
		r.send(chatID, r.Apology)
		return
	case advisor.KindInvalidRequest:
		if errors.Is(res.Err, advisor.ErrUnsupportedAudio) {
			r.send(chatID, TextUnsupportedAudio)
			return
		}
		r.send(chatID, TextHelp)
		return
	default:
		r.send(chatID, r.Apology)
		return
	}

	if res.Transcript != "" {
		r.send(chatID, "🎤 "+res.Transcript)
	}
	if t.Wants(advisor.OutputText) && res.Text != "" {
		r.sendReply(chatID, res.Text)
	}
	if res.Audio != nil {
		audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(res.Audio.Path))
		audio.Title = "कृषि सल्लाह"
		if _, err := r.Bot.Send(audio); err != nil {
			log.Error().Err(err).Int64("chat_id", chatID).Msg("telegram send audio")
		}
	}
}

func (r *Router) context() (context.Context, context.CancelFunc) {
	d := r.Timeout
	if d <= 0 {
		d = 70 * time.Second
	}
	return context.WithTimeout(context.Background(), d)
}

func (r *Router) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	if r.Fetch != nil {
		return r.Fetch(ctx, url)
	}
	return download(ctx, url)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := r.Bot.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send")
	}
}

// sendReply sends the advisor answer with the voice toggle attached.
func (r *Router) sendReply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, truncate(text))
	msg.ReplyMarkup = makeVoiceKeyboard(voiceEnabled(chatID))
	if _, err := r.Bot.Send(msg); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send")
	}
}

func truncate(text string) string {
	if len(text) <= maxMessageLen {
		return text
	}
	cut := maxMessageLen
	for cut > 0 && !utf8RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
