package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(cb tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack

	switch cb.Data {
	case cbVoiceOn:
		setVoice(cid, true)
	case cbVoiceOff:
		setVoice(cid, false)
	default:
		return
	}
	on := voiceEnabled(cid)
	edit := tgbotapi.NewEditMessageReplyMarkup(cid, cb.Message.MessageID, makeVoiceKeyboard(on))
	_, _ = r.Bot.Send(edit)
	r.send(cid, voiceStatus(on))
}
