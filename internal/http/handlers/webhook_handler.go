// Telegram webhook handler.
//
// Telegram POSTs one Update per request and retries until it sees a 2xx, so
// the handler acknowledges every structurally valid update even when reply
// delivery fails; retrying those would duplicate user-visible messages.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tbourn/go-repair-bot/internal/http/middleware"
)

// UpdateHandler consumes decoded Telegram updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update) error
}

// Webhook decodes the update and hands it to the bot. Returns 400 only for
// bodies that are not an Update at all; everything else is acknowledged.
func (h *Handlers) Webhook(c *gin.Context) {
	var upd tgbotapi.Update
	if err := json.NewDecoder(c.Request.Body).Decode(&upd); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed update payload")
		return
	}

	if err := h.bot.HandleUpdate(c.Request.Context(), upd); err != nil {
		lg := middleware.LoggerFrom(c)
		lg.Error().Err(err).Int("update_id", upd.UpdateID).Msg("update processing failed")
	}
	c.Status(http.StatusOK)
}
