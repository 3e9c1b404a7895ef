// Package services – IntakeService
//
// This file implements the multi-step intake state machine and its session
// registry. A session walks the fixed question chain
// name → phone → device → problem → time → confirmation, validating each
// answer and either advancing or re-prompting. Confirmation commits the
// collected draft to the record store and fires a best-effort operator
// notification; rejection discards the draft and starts over.
//
// Validation failures are not errors: they are ordinary transitions that stay
// in the same stage and produce a correction prompt. The only hard failure is
// a persistence error at commit time, which is returned to the caller so the
// transport reports failure instead of claiming success.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/tbourn/go-repair-bot/internal/domain"
	"github.com/tbourn/go-repair-bot/internal/i18n"
)

// Stage identifies the current step of an intake session.
type Stage int

const (
	StageName Stage = iota
	StagePhone
	StageDevice
	StageProblem
	StageTime
	StageConfirm
)

// String returns a short stage name for logs and traces.
func (s Stage) String() string {
	switch s {
	case StageName:
		return "name"
	case StagePhone:
		return "phone"
	case StageDevice:
		return "device"
	case StageProblem:
		return "problem"
	case StageTime:
		return "time"
	case StageConfirm:
		return "confirm"
	default:
		return "unknown"
	}
}

// InputKind is the semantic class of an inbound message. The transport maps
// raw button text to Affirm/Deny; everything else is plain text.
type InputKind int

const (
	InputText InputKind = iota
	InputAffirm
	InputDeny
)

// Input is one classified user message.
type Input struct {
	Kind InputKind
	Text string
}

// KeyboardKind is a semantic keyboard hint attached to a reply. Rendering is
// the transport's concern.
type KeyboardKind int

const (
	KeyboardNone KeyboardKind = iota
	KeyboardMain
	KeyboardConfirm
	KeyboardRemove
)

// Reply is the state machine's answer to one input.
type Reply struct {
	Text     string
	Keyboard KeyboardKind
}

// RecordStore is the persistence contract required by the intake commit path.
type RecordStore interface {
	// Append durably stores a completed request, assigning its id and
	// creation time.
	Append(r domain.Request) (domain.Request, error)
}

// Notifier delivers a best-effort "new request" notice to the operator.
// Implementations must treat an unconfigured operator as a no-op.
type Notifier interface {
	NotifyNewRequest(ctx context.Context, r domain.Request) error
}

// NopNotifier is a Notifier that does nothing.
type NopNotifier struct{}

// NotifyNewRequest implements Notifier.
func (NopNotifier) NotifyNewRequest(context.Context, domain.Request) error { return nil }

// session is one conversation's in-progress intake. Fields are guarded by mu;
// done marks a session that was committed or cancelled while another message
// was waiting on it.
type session struct {
	mu       sync.Mutex
	chatID   int64
	stage    Stage
	draft    domain.Request
	lang     language.Tag
	lastSeen time.Time
	done     bool
}

// IntakeService owns all live intake sessions and drives the state machine.
// At most one session exists per chat id; access to a single session is
// serialized by a per-session mutex so near-simultaneous messages from the
// same user cannot race on the draft.
type IntakeService struct {
	Store    RecordStore
	Notifier Notifier
	Catalog  *i18n.Catalog

	// SessionTTL, when positive, evicts sessions idle for at least this
	// long. Zero keeps sessions until completion or process restart.
	SessionTTL time.Duration

	mu       sync.Mutex
	sessions map[int64]*session
	sweepN   uint64
}

// NewIntakeService constructs an IntakeService. A nil notifier is replaced
// with NopNotifier.
func NewIntakeService(st RecordStore, n Notifier, cat *i18n.Catalog) *IntakeService {
	if n == nil {
		n = NopNotifier{}
	}
	return &IntakeService{
		Store:    st,
		Notifier: n,
		Catalog:  cat,
		sessions: make(map[int64]*session),
	}
}

// transition advances one stage for one input. Implementations run with the
// session lock held.
type transition func(svc *IntakeService, ctx context.Context, sess *session, in Input) (Reply, error)

// transitions is the explicit (stage → step) dispatch table.
var transitions = map[Stage]transition{
	StageName:    (*IntakeService).stepName,
	StagePhone:   (*IntakeService).stepPhone,
	StageDevice:  (*IntakeService).stepDevice,
	StageProblem: (*IntakeService).stepProblem,
	StageTime:    (*IntakeService).stepTime,
	StageConfirm: (*IntakeService).stepConfirm,
}

// Start creates (or resets) the session for chatID and returns the first
// prompt. An existing in-flight draft is discarded.
func (s *IntakeService) Start(chatID int64, lang language.Tag) Reply {
	sess := s.getOrCreate(chatID)

	sess.mu.Lock()
	sess.stage = StageName
	sess.draft = domain.Request{}
	sess.lang = lang
	sess.lastSeen = time.Now()
	sess.done = false
	sess.mu.Unlock()

	intakeStarted.Inc()
	return Reply{Text: s.Catalog.T(lang, i18n.AskName), Keyboard: KeyboardRemove}
}

// Active reports whether chatID has an in-progress session.
func (s *IntakeService) Active(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[chatID]
	return ok
}

// CurrentStage returns the stage of chatID's session, if any.
func (s *IntakeService) CurrentStage(chatID int64) (Stage, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	s.mu.Unlock()
	if !ok {
		return 0, false
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stage, !sess.done
}

// Cancel drops chatID's session, reporting whether one existed.
func (s *IntakeService) Cancel(chatID int64) bool {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	if ok {
		delete(s.sessions, chatID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.mu.Lock()
	sess.done = true
	sess.mu.Unlock()
	return true
}

// Advance feeds one classified input to chatID's session and returns the
// reply. It returns ErrNoActiveSession when the chat has no session, and a
// persistence error when a confirmed request could not be stored.
func (s *IntakeService) Advance(ctx context.Context, chatID int64, in Input) (Reply, error) {
	tr := otel.Tracer("services/IntakeService")
	ctx, span := tr.Start(ctx, "Advance",
		trace.WithAttributes(attribute.Int64("chat.id", chatID)),
	)
	defer span.End()

	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	s.mu.Unlock()
	if !ok {
		return Reply{}, ErrNoActiveSession
	}

	sess.mu.Lock()
	if sess.done {
		sess.mu.Unlock()
		return Reply{}, ErrNoActiveSession
	}
	sess.lastSeen = time.Now()
	span.SetAttributes(attribute.String("intake.stage", sess.stage.String()))
	step := transitions[sess.stage]
	reply, err := step(s, ctx, sess, in)
	finished := sess.done
	sess.mu.Unlock()

	if finished {
		s.remove(chatID, sess)
	}
	s.maybeSweep()
	return reply, err
}

// getOrCreate returns chatID's live session, creating one when absent.
func (s *IntakeService) getOrCreate(chatID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[chatID]; ok {
		return sess
	}
	sess := &session{chatID: chatID}
	s.sessions[chatID] = sess
	return sess
}

// remove deletes the registry entry for chatID, but only while it still maps
// to the given session (Start may have replaced it meanwhile).
func (s *IntakeService) remove(chatID int64, sess *session) {
	s.mu.Lock()
	if cur, ok := s.sessions[chatID]; ok && cur == sess {
		delete(s.sessions, chatID)
	}
	s.mu.Unlock()
}

// maybeSweep evicts idle sessions after a threshold of Advance calls.
// No-op unless SessionTTL is positive.
func (s *IntakeService) maybeSweep() {
	if s.SessionTTL <= 0 {
		return
	}
	now := time.Now()
	s.mu.Lock()
	s.sweepN++
	if s.sweepN < 256 {
		s.mu.Unlock()
		return
	}
	s.sweepN = 0
	var stale []*session
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle >= s.SessionTTL {
			stale = append(stale, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()
	for _, sess := range stale {
		sess.mu.Lock()
		sess.done = true
		sess.mu.Unlock()
	}
}

//
// Stage steps
//

func (s *IntakeService) stepName(_ context.Context, sess *session, in Input) (Reply, error) {
	name := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(name) < 2 {
		intakeRejected.WithLabelValues("name").Inc()
		return Reply{Text: s.Catalog.T(sess.lang, i18n.NameTooShort)}, nil
	}
	sess.draft.Name = name
	sess.stage = StagePhone
	return Reply{Text: s.Catalog.T(sess.lang, i18n.AskPhone)}, nil
}

func (s *IntakeService) stepPhone(_ context.Context, sess *session, in Input) (Reply, error) {
	phone, ok := NormalizePhone(in.Text)
	if !ok {
		intakeRejected.WithLabelValues("phone").Inc()
		return Reply{Text: s.Catalog.T(sess.lang, i18n.PhoneInvalid)}, nil
	}
	sess.draft.Phone = phone
	sess.stage = StageDevice
	return Reply{Text: s.Catalog.T(sess.lang, i18n.AskDevice)}, nil
}

func (s *IntakeService) stepDevice(_ context.Context, sess *session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		intakeRejected.WithLabelValues("device").Inc()
		return Reply{Text: s.Catalog.T(sess.lang, i18n.EmptyInput)}, nil
	}
	sess.draft.DeviceType = text
	sess.stage = StageProblem
	return Reply{Text: s.Catalog.T(sess.lang, i18n.AskProblem)}, nil
}

func (s *IntakeService) stepProblem(_ context.Context, sess *session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		intakeRejected.WithLabelValues("problem").Inc()
		return Reply{Text: s.Catalog.T(sess.lang, i18n.EmptyInput)}, nil
	}
	sess.draft.Problem = text
	sess.stage = StageTime
	return Reply{Text: s.Catalog.T(sess.lang, i18n.AskTime)}, nil
}

func (s *IntakeService) stepTime(_ context.Context, sess *session, in Input) (Reply, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		intakeRejected.WithLabelValues("time").Inc()
		return Reply{Text: s.Catalog.T(sess.lang, i18n.EmptyInput)}, nil
	}
	sess.draft.PreferredTime = text
	sess.stage = StageConfirm
	return Reply{Text: s.summary(sess), Keyboard: KeyboardConfirm}, nil
}

func (s *IntakeService) stepConfirm(ctx context.Context, sess *session, in Input) (Reply, error) {
	switch in.Kind {
	case InputAffirm:
		return s.commit(ctx, sess)
	case InputDeny:
		intakeDenied.Inc()
		sess.draft = domain.Request{}
		sess.stage = StageName
		return Reply{Text: s.Catalog.T(sess.lang, i18n.StartOver), Keyboard: KeyboardRemove}, nil
	default:
		// Anything else re-prompts with the same summary.
		return Reply{Text: s.summary(sess), Keyboard: KeyboardConfirm}, nil
	}
}

// commit persists the draft, fires the operator notification and finishes the
// session. Persistence failure leaves the session at the confirmation stage
// and is returned to the caller; notification failure is logged and swallowed.
func (s *IntakeService) commit(ctx context.Context, sess *session) (Reply, error) {
	rec, err := s.Store.Append(sess.draft)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", sess.chatID).Msg("intake: persist failed")
		return Reply{}, fmt.Errorf("commit intake: %w", err)
	}
	intakeCompleted.Inc()
	log.Info().
		Int64("chat_id", sess.chatID).
		Int64("request_id", rec.ID).
		Str("phone", MaskPhone(rec.Phone)).
		Msg("intake: request stored")

	if err := s.Notifier.NotifyNewRequest(ctx, rec); err != nil {
		notifyFailures.Inc()
		log.Warn().Err(err).Int64("request_id", rec.ID).Msg("intake: operator notification failed")
	}

	sess.done = true
	return Reply{Text: s.Catalog.T(sess.lang, i18n.Saved), Keyboard: KeyboardMain}, nil
}

// summary renders the confirmation text for the current draft.
func (s *IntakeService) summary(sess *session) string {
	d := sess.draft
	return s.Catalog.Tf(sess.lang, i18n.ConfirmSummary,
		d.Name, d.Phone, d.DeviceType, d.Problem, d.PreferredTime)
}

//
// Phone validation
//

// phoneRE accepts an optional leading + followed by 10–15 digits.
var phoneRE = regexp.MustCompile(`^\+?\d{10,15}$`)

// NormalizePhone strips every rune except digits and '+' signs and validates
// the result against phoneRE, so a '+' anywhere but the front still fails. It
// returns the normalized number and whether it is acceptable.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	phone := b.String()
	return phone, phoneRE.MatchString(phone)
}

// MaskPhone hides the middle digits of a phone number for log output.
func MaskPhone(p string) string {
	if len(p) <= 4 {
		return strings.Repeat("*", len(p))
	}
	return p[:2] + strings.Repeat("*", len(p)-4) + p[len(p)-2:]
}
