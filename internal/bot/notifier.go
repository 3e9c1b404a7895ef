package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/i18n"
)

// TelegramNotifier delivers new-request notices to the operator chat. With no
// operator configured it is a no-op.
type TelegramNotifier struct {
	send       sendFunc
	operatorID int64
	cat        *i18n.Catalog
	lang       language.Tag
}

// NewTelegramNotifier builds a notifier that messages operatorID in lang.
func NewTelegramNotifier(api *tgbotapi.BotAPI, operatorID int64, cat *i18n.Catalog, lang language.Tag) *TelegramNotifier {
	return &TelegramNotifier{
		send:       api.Send,
		operatorID: operatorID,
		cat:        cat,
		lang:       lang,
	}
}

// NotifyNewRequest sends a summary of the saved request to the operator.
func (n *TelegramNotifier) NotifyNewRequest(ctx context.Context, r domain.Request) error {
	if n.operatorID == 0 {
		return nil
	}
	text := n.cat.Tf(n.lang, i18n.OperatorNotice,
		r.Name, r.Phone, r.DeviceType, r.Problem, r.PreferredTime)
	_, err := n.send(tgbotapi.NewMessage(n.operatorID, text))
	return err
}
