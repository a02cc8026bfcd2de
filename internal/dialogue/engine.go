// Package dialogue drives the funnel conversation: it filters inbound
// webhook events, runs one locked read-act-write cycle per event and maps
// each (state, input) pair to a handler through a fixed transition table.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/proposal"
	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
	"github.com/aretw0/funil/pkg/session"
)

// Comparer picks the best anticipation offer for a CPF.
type Comparer interface {
	Compare(ctx context.Context, cpf string) (rates.Outcome, error)
}

// Proposals confirms payout accounts and submits proposals.
type Proposals interface {
	Confirm(ctx context.Context, s *domain.Session) (*proposal.ConfirmResult, error)
	Submit(ctx context.Context, s *domain.Session) (*proposal.SubmitResult, error)
}

// Result tells the webhook boundary what happened to an event.
type Result string

const (
	ResultHandled      Result = "handled"
	ResultIgnored      Result = "ignored"
	ResultAttended     Result = "attended"
	ResultGroup        Result = "group"
	ResultInvalidInput Result = "invalid_input"
	ResultError        Result = "error"
)

// Engine is the dialogue controller.
type Engine struct {
	sessions  *session.Manager
	messenger ports.Messenger
	contacts  ports.ContactDirectory
	rates     Comparer
	proposals Proposals

	catalog   *Catalog
	imagePath string
	readFile  func(string) ([]byte, error)
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time

	table map[domain.State][]rule
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithHooks reports every transition.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = h }
}

// WithCatalog replaces the embedded copy.
func WithCatalog(c *Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithAuthorizeImage attaches the image at path to the first bank
// authorization prompt.
func WithAuthorizeImage(path string) Option {
	return func(e *Engine) { e.imagePath = path }
}

var defaultCatalog = sync.OnceValues(DefaultCatalog)

// New creates an Engine. It panics if the embedded copy is broken and no
// catalog is supplied.
func New(sessions *session.Manager, messenger ports.Messenger, contacts ports.ContactDirectory, comparer Comparer, proposals Proposals, opts ...Option) *Engine {
	e := &Engine{
		sessions:  sessions,
		messenger: messenger,
		contacts:  contacts,
		rates:     comparer,
		proposals: proposals,
		readFile:  os.ReadFile,
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.catalog == nil {
		c, err := defaultCatalog()
		if err != nil {
			panic(fmt.Sprintf("dialogue: embedded copy: %v", err))
		}
		e.catalog = c
	}
	e.table = e.transitions()
	return e
}

// Ignored reports whether an event must not reach the dialogue: edits,
// ticket notifications, our own messages and events without a contact.
func Ignored(ev domain.InboundEvent) bool {
	return ev.Event == "message.updated" ||
		strings.Contains(ev.Event, "ticket") ||
		ev.Data.IsFromMe ||
		ev.Data.ContactID == ""
}

// Handle processes one webhook event.
func (e *Engine) Handle(ctx context.Context, ev domain.InboundEvent) (Result, error) {
	if Ignored(ev) {
		return ResultIgnored, nil
	}
	contactID := ev.Data.ContactID

	text, err := SanitizeInput(ev.Data.Text)
	if err != nil {
		e.logger.Warn("Dropping unreadable message", "contact_id", contactID, "err", err)
		return ResultInvalidInput, nil
	}

	attended, err := e.contacts.HasAttendedTicket(ctx, contactID)
	if err != nil {
		return ResultError, fmt.Errorf("failed to check open tickets: %w", err)
	}
	if attended {
		e.logger.Debug("Contact is being attended by an agent", "contact_id", contactID)
		return ResultAttended, nil
	}

	to := domain.Recipient{ContactID: contactID, Number: ev.Data.Data.Number}
	result := ResultHandled
	err = e.sessions.Cycle(ctx, contactID, func(ctx context.Context, s *domain.Session) error {
		if !s.NameResolved {
			c, err := e.contacts.GetContact(ctx, contactID)
			if err != nil {
				return fmt.Errorf("failed to fetch contact: %w", err)
			}
			if c.IsGroup {
				result = ResultGroup
				return nil
			}
			s.DisplayName = c.Name
			s.NameResolved = true
		}
		return e.step(ctx, s, to, text)
	})
	if err != nil {
		return ResultError, err
	}
	return result, nil
}

// step runs the handler selected by the transition table.
func (e *Engine) step(ctx context.Context, s *domain.Session, to domain.Recipient, text string) error {
	t := &turn{e: e, s: s, to: to, text: text}
	from := s.State

	var (
		name string
		err  error
	)
	switch {
	case text == resetCommand || s.State == "" || !s.State.Valid():
		name = "menu"
		err = e.menu(ctx, t)
	default:
		r, ok := e.match(s.State, text)
		if !ok {
			e.logger.Debug("No transition for input", "contact_id", to.ContactID, "state", s.State)
			return nil
		}
		name = r.name
		err = r.handle(ctx, t)
	}

	e.hooks.EmitTransition(ctx, &domain.TransitionEvent{
		Timestamp: e.now(),
		ContactID: to.ContactID,
		From:      from,
		To:        s.State,
		Handler:   name,
		Err:       errors.Join(err, t.invalid),
	})
	if err != nil {
		e.logger.Error("Transition failed", "contact_id", to.ContactID, "from", from, "handler", name, "err", err)
	}
	return err
}

func (e *Engine) match(state domain.State, text string) (rule, bool) {
	for _, r := range e.table[state] {
		if r.match(text) {
			return r, true
		}
	}
	return rule{}, false
}

// turn is the context of one handler invocation.
type turn struct {
	e    *Engine
	s    *domain.Session
	to   domain.Recipient
	text string

	// invalid records a rejected user input; it is reported, never returned.
	invalid error
}

func (t *turn) view() view {
	return view{Name: t.s.DisplayName}
}

func (t *turn) say(ctx context.Context, key string, v view) {
	t.send(ctx, key, v, func(text string) domain.OutboundMessage { return domain.Text(text) })
}

func (t *turn) buttons(ctx context.Context, name, key string, v view, labels ...string) {
	t.send(ctx, key, v, func(text string) domain.OutboundMessage { return domain.Buttons(name, text, labels...) })
}

func (t *turn) sayRaw(ctx context.Context, text string) {
	t.deliver(ctx, domain.Text(text))
}

func (t *turn) send(ctx context.Context, key string, v view, build func(string) domain.OutboundMessage) {
	text, err := t.e.catalog.render(key, v)
	if err != nil {
		t.e.logger.Error("Failed to render copy", "copy", key, "err", err)
		if text == "" {
			return
		}
	}
	t.deliver(ctx, build(text))
}

// deliver logs send failures instead of aborting the cycle: the state
// change already happened and the next message will recover.
func (t *turn) deliver(ctx context.Context, msg domain.OutboundMessage) {
	if err := t.e.messenger.Send(ctx, t.to, msg); err != nil {
		t.e.logger.Error("Failed to send message", "contact_id", t.to.ContactID, "kind", msg.Kind, "err", err)
	}
}

func (t *turn) transfer(ctx context.Context) {
	if err := t.e.messenger.TransferToAgent(ctx, t.to.ContactID); err != nil {
		t.e.logger.Error("Failed to transfer to agent", "contact_id", t.to.ContactID, "err", err)
	}
}

// persist writes the session mid-cycle. The caller already holds the
// contact's lock.
func (t *turn) persist(ctx context.Context) error {
	if err := t.e.sessions.Store().Set(ctx, t.to.ContactID, t.s); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}
