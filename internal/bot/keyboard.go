package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"

	"github.com/tbourn/go-repair-bot/internal/i18n"
	"github.com/tbourn/go-repair-bot/internal/services"
)

// markup renders a semantic keyboard hint as Telegram reply markup in the
// chat's language. KeyboardNone yields nil so the current keyboard stays up.
func (b *Bot) markup(lang language.Tag, kind services.KeyboardKind) interface{} {
	switch kind {
	case services.KeyboardMain:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(b.cat.T(lang, i18n.ButtonRequest)),
				tgbotapi.NewKeyboardButton(b.cat.T(lang, i18n.ButtonContacts)),
			),
		)
		kb.ResizeKeyboard = true
		return kb

	case services.KeyboardConfirm:
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(b.cat.T(lang, i18n.ButtonYes)),
				tgbotapi.NewKeyboardButton(b.cat.T(lang, i18n.ButtonNo)),
			),
		)
		kb.ResizeKeyboard = true
		kb.OneTimeKeyboard = true
		return kb

	case services.KeyboardRemove:
		return tgbotapi.NewRemoveKeyboard(false)

	default:
		return nil
	}
}
