package telegram

import (
	"sync"

	"agri-relay/api/internal/advisor"
)

var voiceOff sync.Map // chatID -> struct{}; voice replies are on by default

func setVoice(chatID int64, on bool) {
	if on {
		voiceOff.Delete(chatID)
		return
	}
	voiceOff.Store(chatID, struct{}{})
}

func voiceEnabled(chatID int64) bool {
	_, off := voiceOff.Load(chatID)
	return !off
}

func outputs(chatID int64) []advisor.OutputKind {
	if voiceEnabled(chatID) {
		return []advisor.OutputKind{advisor.OutputText, advisor.OutputAudio}
	}
	return []advisor.OutputKind{advisor.OutputText}
}
