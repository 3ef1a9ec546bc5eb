package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	TextWelcome = "🌾 नमस्ते! म कृषि सल्लाहकार हुँ।\n" +
		"खेतीपाती सम्बन्धी प्रश्न लेखेर वा भ्वाइस सन्देशमा सोध्नुहोस्।"
	TextHelp = "प्रश्न लेख्नुहोस् वा भ्वाइस सन्देश पठाउनुहोस्।\n" +
		"Commands: /start, /help, /voice on|off, /health"
	TextNotHeard         = "माफ गर्नुहोस्, आवाज बुझ्न सकिएन। कृपया फेरि बोल्नुहोस्।"
	TextUnknownCommand   = "Unknown command. /help"
	TextUnsupportedAudio = "यो अडियो ढाँचा चल्दैन। कृपया भ्वाइस सन्देश पठाउनुहोस्।"

	cbVoiceOn  = "voice_on"
	cbVoiceOff = "voice_off"
)

func makeVoiceKeyboard(on bool) tgbotapi.InlineKeyboardMarkup {
	btn := tgbotapi.NewInlineKeyboardButtonData("🔇 आवाज बन्द", cbVoiceOff)
	if !on {
		btn = tgbotapi.NewInlineKeyboardButtonData("🔊 आवाजमा सुन्नुहोस्", cbVoiceOn)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btn))
}

func voiceStatus(on bool) string {
	if on {
		return "🔊 Voice replies: on"
	}
	return "🔇 Voice replies: off"
}
