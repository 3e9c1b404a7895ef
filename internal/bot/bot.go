// Package bot adapts Telegram to the intake core. It routes inbound updates
// (commands, keyboard buttons, free text) to the session registry and the
// admin service, classifies confirmation button presses into semantic
// affirm/deny inputs, and renders semantic keyboard hints as Telegram reply
// keyboards. No business rules live here.
package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-repair-bot/internal/i18n"
	"github.com/tbourn/go-repair-bot/internal/repo"
	"github.com/tbourn/go-repair-bot/internal/services"
	"github.com/tbourn/go-repair-bot/internal/store"
)

// sendFunc abstracts the Telegram send call so tests can capture outbound
// messages without the network.
type sendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)

// Options configures optional Bot behavior.
type Options struct {
	// DB, when non-nil, enables webhook update deduplication.
	DB *gorm.DB
	// UpdateTTL bounds how long a processed update id is remembered.
	UpdateTTL time.Duration
}

// Bot routes Telegram updates to the intake and admin services.
type Bot struct {
	send      sendFunc
	intake    *services.IntakeService
	admin     *services.AdminService
	cat       *i18n.Catalog
	db        *gorm.DB
	updateTTL time.Duration
}

// New constructs a Bot on top of a connected Bot API client.
func New(api *tgbotapi.BotAPI, intake *services.IntakeService, admin *services.AdminService, cat *i18n.Catalog, opts Options) *Bot {
	ttl := opts.UpdateTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Bot{
		send:      api.Send,
		intake:    intake,
		admin:     admin,
		cat:       cat,
		db:        opts.DB,
		updateTTL: ttl,
	}
}

// HandleUpdate processes one Telegram update. Replies are sent as a side
// effect; the returned error reports outbound send failures only, since the
// webhook endpoint always acknowledges receipt.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) error {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID

	if b.db != nil {
		err := repo.MarkProcessed(ctx, b.db, int64(upd.UpdateID), chatID, b.updateTTL)
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			log.Debug().Int("update_id", upd.UpdateID).Msg("bot: duplicate update dropped")
			return nil
		case err != nil:
			// Bookkeeping is best effort; a broken database must not
			// silence the bot.
			log.Warn().Err(err).Int("update_id", upd.UpdateID).Msg("bot: update dedup failed")
		}
	}

	lang := b.lang(msg)

	if msg.IsCommand() {
		return b.handleCommand(ctx, msg, lang)
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case b.isButton(text, i18n.ButtonRequest):
		return b.startIntake(chatID, lang)
	case b.isButton(text, i18n.ButtonContacts):
		return b.reply(chatID, b.cat.T(lang, i18n.Contacts), services.KeyboardNone, lang)
	}

	reply, err := b.intake.Advance(ctx, chatID, classify(text))
	switch {
	case errors.Is(err, services.ErrNoActiveSession):
		// Outside any intake the original bot echoes the message back.
		return b.reply(chatID, b.cat.Tf(lang, i18n.Echo, msg.Text), services.KeyboardNone, lang)
	case err != nil:
		// Persistence failure: report it instead of claiming success.
		return b.reply(chatID, b.cat.T(lang, i18n.SaveFailed), services.KeyboardConfirm, lang)
	}
	return b.reply(chatID, reply.Text, reply.Keyboard, lang)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, lang language.Tag) error {
	chatID := msg.Chat.ID
	var callerID int64
	if msg.From != nil {
		callerID = msg.From.ID
	}

	switch msg.Command() {
	case "start":
		return b.reply(chatID, b.cat.T(lang, i18n.Greeting), services.KeyboardMain, lang)

	case "request":
		return b.startIntake(chatID, lang)

	case "cancel":
		if b.intake.Cancel(chatID) {
			return b.reply(chatID, b.cat.T(lang, i18n.Cancelled), services.KeyboardMain, lang)
		}
		return b.reply(chatID, b.cat.T(lang, i18n.Greeting), services.KeyboardMain, lang)

	case "export":
		return b.handleExport(ctx, chatID, callerID, lang)

	case "list":
		return b.handleList(ctx, chatID, callerID, lang)

	case "delete":
		return b.handleDelete(ctx, chatID, callerID, msg.CommandArguments(), lang)

	default:
		return b.reply(chatID, b.cat.Tf(lang, i18n.Echo, msg.Text), services.KeyboardNone, lang)
	}
}

func (b *Bot) startIntake(chatID int64, lang language.Tag) error {
	reply := b.intake.Start(chatID, lang)
	return b.reply(chatID, reply.Text, reply.Keyboard, lang)
}

func (b *Bot) handleExport(ctx context.Context, chatID, callerID int64, lang language.Tag) error {
	data, err := b.admin.Export(ctx, callerID)
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		return b.reply(chatID, b.cat.T(lang, i18n.AccessDenied), services.KeyboardNone, lang)
	case errors.Is(err, store.ErrNotFound):
		return b.reply(chatID, b.cat.T(lang, i18n.NoRequests), services.KeyboardNone, lang)
	case err != nil:
		return err
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "repair_requests.csv",
		Bytes: data,
	})
	doc.Caption = b.cat.T(lang, i18n.ExportCaption)
	_, err = b.send(doc)
	return err
}

func (b *Bot) handleList(ctx context.Context, chatID, callerID int64, lang language.Tag) error {
	recs, err := b.admin.List(ctx, callerID)
	if errors.Is(err, services.ErrAccessDenied) {
		return b.reply(chatID, b.cat.T(lang, i18n.AccessDenied), services.KeyboardNone, lang)
	}
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return b.reply(chatID, b.cat.T(lang, i18n.NoRequests), services.KeyboardNone, lang)
	}

	var sb strings.Builder
	sb.WriteString(b.cat.Tf(lang, i18n.ListHeader, len(recs)))
	for _, r := range recs {
		sb.WriteString("\n")
		sb.WriteString(b.cat.Tf(lang, i18n.ListLine, r.ID, r.Name, r.Phone, r.DeviceType))
	}
	return b.reply(chatID, sb.String(), services.KeyboardNone, lang)
}

func (b *Bot) handleDelete(ctx context.Context, chatID, callerID int64, args string, lang language.Tag) error {
	arg := strings.TrimSpace(args)
	id, perr := strconv.ParseInt(arg, 10, 64)
	if perr != nil || id <= 0 {
		// Authorization still decides the reply below; zero never matches
		// a record, so a bad argument reads as "not found" for the operator
		// and a denial for everyone else.
		id = 0
	}

	err := b.admin.Delete(ctx, callerID, id)
	switch {
	case errors.Is(err, services.ErrAccessDenied):
		return b.reply(chatID, b.cat.T(lang, i18n.AccessDenied), services.KeyboardNone, lang)
	case errors.Is(err, services.ErrRequestNotFound):
		return b.reply(chatID, b.cat.Tf(lang, i18n.RequestNotFound, arg), services.KeyboardNone, lang)
	case err != nil:
		return err
	}
	return b.reply(chatID, b.cat.Tf(lang, i18n.RequestDeleted, id), services.KeyboardNone, lang)
}

// reply sends one text message with the rendered keyboard hint.
func (b *Bot) reply(chatID int64, text string, kb services.KeyboardKind, lang language.Tag) error {
	out := tgbotapi.NewMessage(chatID, text)
	if markup := b.markup(lang, kb); markup != nil {
		out.ReplyMarkup = markup
	}
	if _, err := b.send(out); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("bot: send failed")
		return err
	}
	return nil
}

// lang picks the reply language from the sender's language_code.
func (b *Bot) lang(msg *tgbotapi.Message) language.Tag {
	if msg.From != nil {
		return b.cat.Match(msg.From.LanguageCode)
	}
	return b.cat.Match("")
}

// isButton reports whether text equals the given button label in any
// shipped language.
func (b *Bot) isButton(text string, key i18n.Key) bool {
	for _, lang := range []language.Tag{language.Russian, language.English} {
		if strings.EqualFold(text, b.cat.T(lang, key)) {
			return true
		}
	}
	return false
}

// affirmTokens and denyTokens cover the confirmation button labels with and
// without their emoji prefix, in both shipped languages.
var (
	affirmTokens = map[string]struct{}{
		"✅ да": {}, "да": {}, "✅ yes": {}, "yes": {},
	}
	denyTokens = map[string]struct{}{
		"❌ нет": {}, "нет": {}, "❌ no": {}, "no": {},
	}
)

// classify maps raw message text to a semantic intake input.
func classify(text string) services.Input {
	key := strings.ToLower(strings.TrimSpace(text))
	if _, ok := affirmTokens[key]; ok {
		return services.Input{Kind: services.InputAffirm, Text: text}
	}
	if _, ok := denyTokens[key]; ok {
		return services.Input{Kind: services.InputDeny, Text: text}
	}
	return services.Input{Kind: services.InputText, Text: text}
}
