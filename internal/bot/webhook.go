package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// RegisterWebhook points Telegram at https://<domain><path>. Telegram only
// delivers to HTTPS endpoints, so the scheme is fixed.
func RegisterWebhook(api *tgbotapi.BotAPI, domain, path string) error {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := "https://" + domain + path

	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}

	info, err := api.GetWebhookInfo()
	if err != nil {
		return fmt.Errorf("get webhook info: %w", err)
	}
	if info.LastErrorDate != 0 {
		log.Warn().
			Str("last_error", info.LastErrorMessage).
			Msg("bot: telegram reported a recent webhook delivery failure")
	}
	log.Info().Str("url", url).Int("pending", info.PendingUpdateCount).Msg("bot: webhook registered")
	return nil
}

// DeleteWebhook detaches the webhook; pending updates are kept for the next
// registration.
func DeleteWebhook(api *tgbotapi.BotAPI) error {
	_, err := api.Request(tgbotapi.DeleteWebhookConfig{})
	return err
}
