// Package i18n holds the bot's user-facing texts in Russian and English and
// picks a language per user by matching Telegram's language_code.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

// Key identifies one catalog message.
type Key string

// Message keys. Formatted messages document their fmt verbs.
const (
	Greeting        Key = "greeting"
	Contacts        Key = "contacts"
	AskName         Key = "ask_name"
	NameTooShort    Key = "name_too_short"
	AskPhone        Key = "ask_phone"
	PhoneInvalid    Key = "phone_invalid"
	AskDevice       Key = "ask_device"
	AskProblem      Key = "ask_problem"
	AskTime         Key = "ask_time"
	EmptyInput      Key = "empty_input"
	ConfirmSummary  Key = "confirm_summary" // name, phone, device, problem, time
	Saved           Key = "saved"
	SaveFailed      Key = "save_failed"
	StartOver       Key = "start_over"
	Cancelled       Key = "cancelled"
	AccessDenied    Key = "access_denied"
	NoRequests      Key = "no_requests"
	RequestNotFound Key = "request_not_found" // id or the raw command argument
	RequestDeleted  Key = "request_deleted"   // id
	Echo            Key = "echo"              // text
	OperatorNotice  Key = "operator_notice"   // name, phone, device, problem, time
	ExportCaption   Key = "export_caption"
	ListHeader      Key = "list_header" // count
	ListLine        Key = "list_line"   // id, name, phone, device

	ButtonRequest  Key = "button_request"
	ButtonContacts Key = "button_contacts"
	ButtonYes      Key = "button_yes"
	ButtonNo       Key = "button_no"
)

var russian = map[Key]string{
	Greeting:        "Привет! Это бот сервисного центра по ремонту девайсов. Выберите опцию:",
	Contacts:        "Наш адрес: ул. Техническая, 10. Тел: +7 (123) 456-78-90",
	AskName:         "Как вас зовут?",
	NameTooShort:    "Имя слишком короткое. Введите минимум 2 символа.",
	AskPhone:        "Введите номер телефона (например: +7XXXXXXXXXX)",
	PhoneInvalid:    "Неверный формат. Пример: +79123456789",
	AskDevice:       "Какой тип устройства нужно отремонтировать? (Например: смартфон, ноутбук, планшет)",
	AskProblem:      "Опишите проблему (например: не включается, разбит экран)",
	AskTime:         "Укажите предпочитаемое время для звонка или визита (например: завтра после 14:00)",
	EmptyInput:      "Сообщение пустое, попробуйте ещё раз.",
	ConfirmSummary:  "Проверьте данные заявки:\n\nИмя: %s\nТелефон: %s\nТип устройства: %s\nПроблема: %s\nВремя: %s\n\nВсё верно?",
	Saved:           "✅ Заявка сохранена! Мы свяжемся с вами скоро.",
	SaveFailed:      "Не удалось сохранить заявку, попробуйте ещё раз позже.",
	StartOver:       "Хорошо, давайте заполним заново!\nКак вас зовут?",
	Cancelled:       "Заявка отменена.",
	AccessDenied:    "Доступ запрещён",
	NoRequests:      "Нет заявок",
	RequestNotFound: "Заявка №%v не найдена",
	RequestDeleted:  "Заявка №%d удалена",
	Echo:            "Вы написали: %s",
	OperatorNotice:  "🆕 Новая заявка на ремонт!\n\nИмя: %s\nТелефон: %s\nУстройство: %s\nПроблема: %s\nВремя: %s",
	ExportCaption:   "Все заявки",
	ListHeader:      "Заявки (%d):",
	ListLine:        "№%d %s, %s — %s",
	ButtonRequest:   "Заявка на ремонт",
	ButtonContacts:  "Контакты",
	ButtonYes:       "✅ Да",
	ButtonNo:        "❌ Нет",
}

var english = map[Key]string{
	Greeting:        "Hi! This is the device repair service bot. Pick an option:",
	Contacts:        "Address: 10 Tekhnicheskaya St. Phone: +7 (123) 456-78-90",
	AskName:         "What is your name?",
	NameTooShort:    "That name is too short, please enter at least 2 characters.",
	AskPhone:        "Enter your phone number (e.g. +7XXXXXXXXXX)",
	PhoneInvalid:    "Invalid format. Example: +79123456789",
	AskDevice:       "What kind of device needs repair? (e.g. smartphone, laptop, tablet)",
	AskProblem:      "Describe the problem (e.g. won't power on, cracked screen)",
	AskTime:         "When is a good time to call or visit? (e.g. tomorrow after 14:00)",
	EmptyInput:      "The message is empty, please try again.",
	ConfirmSummary:  "Please check your request:\n\nName: %s\nPhone: %s\nDevice: %s\nProblem: %s\nTime: %s\n\nIs everything correct?",
	Saved:           "✅ Request saved! We will contact you soon.",
	SaveFailed:      "Could not save your request, please try again later.",
	StartOver:       "Okay, let's start over!\nWhat is your name?",
	Cancelled:       "Request cancelled.",
	AccessDenied:    "Access denied",
	NoRequests:      "No requests yet",
	RequestNotFound: "Request #%v not found",
	RequestDeleted:  "Request #%d deleted",
	Echo:            "You wrote: %s",
	OperatorNotice:  "🆕 New repair request!\n\nName: %s\nPhone: %s\nDevice: %s\nProblem: %s\nTime: %s",
	ExportCaption:   "All requests",
	ListHeader:      "Requests (%d):",
	ListLine:        "#%d %s, %s — %s",
	ButtonRequest:   "Repair request",
	ButtonContacts:  "Contacts",
	ButtonYes:       "✅ Yes",
	ButtonNo:        "❌ No",
}

// Catalog resolves message texts by language. The zero value is not usable;
// construct with New.
type Catalog struct {
	matcher  language.Matcher
	fallback language.Tag
	messages map[language.Tag]map[Key]string
}

// New builds a catalog with the given fallback language. Only Russian and
// English are shipped; any other fallback falls back to Russian.
func New(fallback language.Tag) *Catalog {
	supported := []language.Tag{language.Russian, language.English}
	if fallback == language.English {
		supported = []language.Tag{language.English, language.Russian}
	} else {
		fallback = language.Russian
	}
	return &Catalog{
		matcher:  language.NewMatcher(supported),
		fallback: fallback,
		messages: map[language.Tag]map[Key]string{
			language.Russian: russian,
			language.English: english,
		},
	}
}

// Match maps a Telegram language_code (e.g. "ru", "en-US", "uk") to the best
// supported language. Unknown or empty codes resolve to the fallback.
func (c *Catalog) Match(code string) language.Tag {
	if code == "" {
		return c.fallback
	}
	// An unknown code matches the first supported tag, which is the fallback.
	tag, _, _ := c.matcher.Match(language.Make(code))
	if base, _ := tag.Base(); base.String() == "en" {
		return language.English
	}
	return language.Russian
}

// T returns the message for key in the given language.
func (c *Catalog) T(lang language.Tag, key Key) string {
	msgs, ok := c.messages[lang]
	if !ok {
		msgs = c.messages[c.fallback]
	}
	if s, ok := msgs[key]; ok {
		return s
	}
	return c.messages[c.fallback][key]
}

// Tf returns the message for key formatted with args.
func (c *Catalog) Tf(lang language.Tag, key Key, args ...any) string {
	return fmt.Sprintf(c.T(lang, key), args...)
}
