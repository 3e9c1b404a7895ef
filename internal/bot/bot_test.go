package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/text/language"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/i18n"
	"github.com/tbourn/go-repair-bot/internal/services"
)

// sentLog captures everything the bot tried to send.
type sentLog struct {
	sent []tgbotapi.Chattable
}

func (s *sentLog) send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, nil
}

func (s *sentLog) lastText(t *testing.T) string {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	msg, ok := s.sent[len(s.sent)-1].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("last send is %T, not MessageConfig", s.sent[len(s.sent)-1])
	}
	return msg.Text
}

type fakeStore struct {
	appended []domain.Request
	deleted  []int64
	exportB  []byte
}

func (f *fakeStore) Append(r domain.Request) (domain.Request, error) {
	r.ID = int64(len(f.appended) + 1)
	f.appended = append(f.appended, r)
	return r, nil
}

func (f *fakeStore) List() []domain.Request { return f.appended }

func (f *fakeStore) Delete(id int64) (bool, error) {
	f.deleted = append(f.deleted, id)
	for _, r := range f.appended {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Export() ([]byte, error) { return f.exportB, nil }

const operatorID = int64(9000)

func newTestBot(st *fakeStore, opts Options) (*Bot, *sentLog) {
	cat := i18n.New(language.Russian)
	out := &sentLog{}
	b := &Bot{
		send:      out.send,
		intake:    services.NewIntakeService(st, services.NopNotifier{}, cat),
		admin:     &services.AdminService{Store: st, OperatorID: operatorID},
		cat:       cat,
		db:        opts.DB,
		updateTTL: time.Hour,
	}
	return b, out
}

func textUpd(id int, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: id,
			From:      &tgbotapi.User{ID: chatID, LanguageCode: "ru"},
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      text,
		},
	}
}

func cmdUpd(id int, chatID int64, text string) tgbotapi.Update {
	u := textUpd(id, chatID, text)
	cmdLen := len(text)
	if i := strings.IndexByte(text, ' '); i > 0 {
		cmdLen = i
	}
	u.Message.Entities = []tgbotapi.MessageEntity{
		{Type: "bot_command", Offset: 0, Length: cmdLen},
	}
	return u
}

func handle(t *testing.T, b *Bot, u tgbotapi.Update) {
	t.Helper()
	if err := b.HandleUpdate(context.Background(), u); err != nil {
		t.Fatalf("HandleUpdate(%q): %v", u.Message.Text, err)
	}
}

func TestHandleUpdate_IgnoresNonMessage(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	if err := b.HandleUpdate(context.Background(), tgbotapi.Update{UpdateID: 1}); err != nil {
		t.Fatalf("HandleUpdate: %v", err)
	}
	if len(out.sent) != 0 {
		t.Fatalf("expected no reply, sent %d", len(out.sent))
	}
}

func TestStart_SendsGreetingWithMainKeyboard(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	handle(t, b, cmdUpd(1, 7, "/start"))

	msg := out.sent[0].(tgbotapi.MessageConfig)
	if !strings.Contains(msg.Text, "сервисного центра") {
		t.Fatalf("unexpected greeting: %q", msg.Text)
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	if !ok {
		t.Fatalf("expected a reply keyboard, got %T", msg.ReplyMarkup)
	}
	if len(kb.Keyboard) != 1 || len(kb.Keyboard[0]) != 2 {
		t.Fatalf("unexpected keyboard layout: %+v", kb.Keyboard)
	}
	if kb.Keyboard[0][0].Text != "Заявка на ремонт" {
		t.Fatalf("unexpected first button: %q", kb.Keyboard[0][0].Text)
	}
}

func TestRequestButton_StartsIntake(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	handle(t, b, textUpd(1, 7, "Заявка на ремонт"))
	if got := out.lastText(t); got != "Как вас зовут?" {
		t.Fatalf("expected name prompt, got %q", got)
	}
	if !b.intake.Active(7) {
		t.Fatal("intake session was not started")
	}
}

func TestContactsButton(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	handle(t, b, textUpd(1, 7, "Контакты"))
	if got := out.lastText(t); !strings.Contains(got, "Техническая") {
		t.Fatalf("expected contacts text, got %q", got)
	}
}

func TestEchoFallback_OutsideIntake(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	handle(t, b, textUpd(1, 7, "привет"))
	if got := out.lastText(t); got != "Вы написали: привет" {
		t.Fatalf("expected echo, got %q", got)
	}
}

func TestFullIntake_ThroughUpdates(t *testing.T) {
	st := &fakeStore{}
	b, out := newTestBot(st, Options{})

	inputs := []string{
		"Анна",
		"+79991234567",
		"смартфон",
		"разбит экран",
		"завтра после 14:00",
	}
	handle(t, b, cmdUpd(1, 7, "/request"))
	for i, text := range inputs {
		handle(t, b, textUpd(i+2, 7, text))
	}

	// The last reply is the confirmation summary with a yes/no keyboard.
	summary := out.sent[len(out.sent)-1].(tgbotapi.MessageConfig)
	if !strings.Contains(summary.Text, "Анна") || !strings.Contains(summary.Text, "+79991234567") {
		t.Fatalf("summary missing draft fields: %q", summary.Text)
	}
	if _, ok := summary.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup); !ok {
		t.Fatalf("expected confirm keyboard, got %T", summary.ReplyMarkup)
	}

	handle(t, b, textUpd(10, 7, "✅ Да"))
	if got := out.lastText(t); !strings.Contains(got, "Заявка сохранена") {
		t.Fatalf("expected saved message, got %q", got)
	}
	if len(st.appended) != 1 {
		t.Fatalf("expected 1 stored request, got %d", len(st.appended))
	}
	if st.appended[0].Name != "Анна" || st.appended[0].DeviceType != "смартфон" {
		t.Fatalf("stored wrong record: %+v", st.appended[0])
	}
	if b.intake.Active(7) {
		t.Fatal("session should be gone after commit")
	}
}

func TestClassify(t *testing.T) {
	cases := map[string]services.InputKind{
		"✅ Да":        services.InputAffirm,
		"да":          services.InputAffirm,
		"Yes":         services.InputAffirm,
		"❌ Нет":       services.InputDeny,
		"нет":         services.InputDeny,
		"No":          services.InputDeny,
		"не знаю":     services.InputText,
		"":            services.InputText,
		"yes please":  services.InputText,
	}
	for text, want := range cases {
		if got := classify(text).Kind; got != want {
			t.Errorf("classify(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestCancelCommand(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	handle(t, b, cmdUpd(1, 7, "/request"))
	handle(t, b, cmdUpd(2, 7, "/cancel"))
	if got := out.lastText(t); got != "Заявка отменена." {
		t.Fatalf("expected cancel confirmation, got %q", got)
	}
	if b.intake.Active(7) {
		t.Fatal("session survived /cancel")
	}
}

func TestExport_OperatorGetsDocument(t *testing.T) {
	st := &fakeStore{exportB: []byte("id,requester_name\n1,Анна\n")}
	b, out := newTestBot(st, Options{})

	handle(t, b, cmdUpd(1, operatorID, "/export"))

	doc, ok := out.sent[0].(tgbotapi.DocumentConfig)
	if !ok {
		t.Fatalf("expected a document, got %T", out.sent[0])
	}
	fb, ok := doc.File.(tgbotapi.FileBytes)
	if !ok {
		t.Fatalf("expected FileBytes, got %T", doc.File)
	}
	if fb.Name != "repair_requests.csv" || len(fb.Bytes) == 0 {
		t.Fatalf("unexpected file: %q (%d bytes)", fb.Name, len(fb.Bytes))
	}
}

func TestExport_NonOperatorDenied(t *testing.T) {
	b, out := newTestBot(&fakeStore{exportB: []byte("x")}, Options{})
	handle(t, b, cmdUpd(1, 7, "/export"))
	if got := out.lastText(t); got != "Доступ запрещён" {
		t.Fatalf("expected denial, got %q", got)
	}
}

func TestList_Operator(t *testing.T) {
	st := &fakeStore{appended: []domain.Request{
		{ID: 1, Name: "Анна", Phone: "+79991234567", DeviceType: "смартфон"},
	}}
	b, out := newTestBot(st, Options{})
	handle(t, b, cmdUpd(1, operatorID, "/list"))
	got := out.lastText(t)
	if !strings.Contains(got, "Заявки (1):") || !strings.Contains(got, "Анна") {
		t.Fatalf("unexpected list: %q", got)
	}
}

func TestDelete_Operator(t *testing.T) {
	st := &fakeStore{appended: []domain.Request{{ID: 3, Name: "Анна"}}}
	b, out := newTestBot(st, Options{})

	handle(t, b, cmdUpd(1, operatorID, "/delete 3"))
	if got := out.lastText(t); got != "Заявка №3 удалена" {
		t.Fatalf("expected deletion notice, got %q", got)
	}

	handle(t, b, cmdUpd(2, operatorID, "/delete 99"))
	if got := out.lastText(t); got != "Заявка №99 не найдена" {
		t.Fatalf("expected not-found notice, got %q", got)
	}

	// A bad argument echoes back verbatim, never a synthesized id.
	handle(t, b, cmdUpd(3, operatorID, "/delete oops"))
	got := out.lastText(t)
	if !strings.Contains(got, "не найдена") || !strings.Contains(got, "oops") {
		t.Fatalf("expected not-found notice for bad id, got %q", got)
	}
	if strings.Contains(got, "№0") {
		t.Fatalf("bad id leaked a zero id: %q", got)
	}
}

func TestDelete_NonOperatorDeniedEvenWithBadId(t *testing.T) {
	st := &fakeStore{appended: []domain.Request{{ID: 3, Name: "Анна"}}}
	b, out := newTestBot(st, Options{})

	// Authorization wins over argument validation.
	handle(t, b, cmdUpd(1, 12345, "/delete abc"))
	if got := out.lastText(t); got != "Доступ запрещён" {
		t.Fatalf("expected denial, got %q", got)
	}
	handle(t, b, cmdUpd(2, 12345, "/delete 3"))
	if got := out.lastText(t); got != "Доступ запрещён" {
		t.Fatalf("expected denial, got %q", got)
	}
	if len(st.appended) != 1 {
		t.Fatalf("non-operator delete mutated the store")
	}
}

func TestEnglishUser_GetsEnglishTexts(t *testing.T) {
	b, out := newTestBot(&fakeStore{}, Options{})
	u := cmdUpd(1, 7, "/start")
	u.Message.From.LanguageCode = "en-US"
	handle(t, b, u)
	if got := out.lastText(t); !strings.Contains(got, "device repair service bot") {
		t.Fatalf("expected English greeting, got %q", got)
	}
}

func TestDuplicateUpdate_IsDropped(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.ProcessedUpdate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	b, out := newTestBot(&fakeStore{}, Options{DB: db})
	u := textUpd(42, 7, "привет")
	handle(t, b, u)
	handle(t, b, u) // redelivery

	if len(out.sent) != 1 {
		t.Fatalf("expected 1 reply for duplicate delivery, got %d", len(out.sent))
	}
}

func TestNotifier_NoOperatorIsNoop(t *testing.T) {
	out := &sentLog{}
	n := &TelegramNotifier{send: out.send, operatorID: 0, cat: i18n.New(language.Russian), lang: language.Russian}
	if err := n.NotifyNewRequest(context.Background(), domain.Request{ID: 1}); err != nil {
		t.Fatalf("NotifyNewRequest: %v", err)
	}
	if len(out.sent) != 0 {
		t.Fatalf("no-op notifier sent %d messages", len(out.sent))
	}
}

func TestNotifier_SendsNoticeToOperator(t *testing.T) {
	out := &sentLog{}
	n := &TelegramNotifier{send: out.send, operatorID: operatorID, cat: i18n.New(language.Russian), lang: language.Russian}
	err := n.NotifyNewRequest(context.Background(), domain.Request{
		ID: 1, Name: "Анна", Phone: "+79991234567",
		DeviceType: "смартфон", Problem: "разбит экран", PreferredTime: "завтра",
	})
	if err != nil {
		t.Fatalf("NotifyNewRequest: %v", err)
	}
	msg := out.sent[0].(tgbotapi.MessageConfig)
	if msg.ChatID != operatorID {
		t.Fatalf("notice went to chat %d", msg.ChatID)
	}
	if !strings.Contains(msg.Text, "Новая заявка") || !strings.Contains(msg.Text, "Анна") {
		t.Fatalf("unexpected notice: %q", msg.Text)
	}
}
