// Package digisac talks to the Digisac messaging platform: it delivers
// outbound messages, transfers tickets and answers contact lookups.
package digisac

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
)

// Name identifies the platform in errors, logs and metrics.
const Name = "digisac"

var (
	_ ports.Messenger        = (*Client)(nil)
	_ ports.ContactDirectory = (*Client)(nil)
)

// Client implements ports.Messenger and ports.ContactDirectory.
type Client struct {
	http         *transport.Client
	token        string
	serviceID    string
	departmentID string
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithDepartment sets the department tickets are transferred to.
func WithDepartment(id string) Option {
	return func(c *Client) {
		c.departmentID = id
	}
}

// WithTransport replaces the retrying transport options.
func WithTransport(opts ...transport.RetryOption) Option {
	return func(c *Client) {
		c.http = transport.NewClient(Name, c.http.BaseURL, time.Second, opts...)
	}
}

// New creates a client for the account at baseURL. Every message is sent
// through serviceID (the WhatsApp connection).
func New(baseURL, token, serviceID string, opts ...Option) *Client {
	c := &Client{
		http:      transport.NewClient(Name, baseURL, time.Second),
		token:     token,
		serviceID: serviceID,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) header() http.Header {
	return http.Header{"Authorization": []string{c.token}}
}

type interactiveButton struct {
	Type  string `json:"type"`
	Reply struct {
		Title string `json:"title"`
	} `json:"reply"`
}

type interactiveMessage struct {
	Name        string `json:"name"`
	Interactive struct {
		Type   string `json:"type"`
		Action struct {
			Buttons []interactiveButton `json:"buttons"`
		} `json:"action"`
		Body struct {
			Text string `json:"text"`
		} `json:"body"`
	} `json:"interactive"`
}

type messagePayload struct {
	ContactID   string              `json:"contactId"`
	Number      string              `json:"number"`
	ServiceID   string              `json:"serviceId"`
	Type        string              `json:"type"`
	Origin      string              `json:"origin,omitempty"`
	Text        string              `json:"text,omitempty"`
	Interactive *interactiveMessage `json:"interactiveMessage,omitempty"`
	File        *domain.Media       `json:"file,omitempty"`
}

func (c *Client) payload(to domain.Recipient, msg domain.OutboundMessage) (*messagePayload, error) {
	p := &messagePayload{ContactID: to.ContactID, Number: to.Number, ServiceID: c.serviceID}
	switch msg.Kind {
	case domain.MessageText, "":
		p.Type, p.Origin, p.Text = "chat", "bot", msg.Text
	case domain.MessageButtons:
		im := &interactiveMessage{Name: msg.Name}
		im.Interactive.Type = "button"
		im.Interactive.Body.Text = msg.Text
		for _, label := range msg.Buttons {
			b := interactiveButton{Type: "reply"}
			b.Reply.Title = label
			im.Interactive.Action.Buttons = append(im.Interactive.Action.Buttons, b)
		}
		p.Type, p.Interactive = "chat", im
	case domain.MessageMedia:
		if msg.Media == nil {
			return nil, &domain.ValidationError{Field: "media", Reason: "missing attachment"}
		}
		p.Type, p.Origin, p.File = "media", "bot", msg.Media
	default:
		return nil, &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unsupported message kind %q", msg.Kind)}
	}
	return p, nil
}

// Send posts one message.
func (c *Client) Send(ctx context.Context, to domain.Recipient, msg domain.OutboundMessage) error {
	p, err := c.payload(to, msg)
	if err != nil {
		return err
	}
	err = c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/messages",
		Header: c.header(),
		JSON:   p,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to send %s message: %w", msg.Kind, err)
	}
	c.logger.Debug("message sent", "contact_id", to.ContactID, "kind", msg.Kind)
	return nil
}

// TransferToAgent moves the contact's ticket to the configured department.
func (c *Client) TransferToAgent(ctx context.Context, contactID string) error {
	err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/v1/contacts/" + url.PathEscape(contactID) + "/ticket/transfer",
		Header: c.header(),
		Form:   url.Values{"departmentId": {c.departmentID}},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to transfer ticket: %w", err)
	}
	c.logger.Info("ticket transferred", "contact_id", contactID, "department_id", c.departmentID)
	return nil
}

// GetContact fetches the contact record.
func (c *Client) GetContact(ctx context.Context, contactID string) (*ports.Contact, error) {
	var out struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		IsGroup bool   `json:"isGroup"`
	}
	err := c.http.Do(ctx, transport.Request{
		Path:   "/api/v1/contacts/" + url.PathEscape(contactID),
		Header: c.header(),
	}, &out)
	if err != nil {
		if transport.IsStatus(err, http.StatusNotFound) {
			return nil, &domain.NotFoundError{Resource: "contact", Key: contactID}
		}
		return nil, err
	}
	if out.ID == "" {
		out.ID = contactID
	}
	return &ports.Contact{ID: out.ID, Name: out.Name, IsGroup: out.IsGroup}, nil
}

// HasAttendedTicket looks up the contact's open ticket and reports whether
// a human agent owns it. No open ticket means nobody is attending.
func (c *Client) HasAttendedTicket(ctx context.Context, contactID string) (bool, error) {
	query, err := json.Marshal(ticketQuery(contactID))
	if err != nil {
		return false, err
	}
	var out struct {
		Data []struct {
			ID     string `json:"id"`
			UserID string `json:"userId"`
		} `json:"data"`
	}
	err = c.http.Do(ctx, transport.Request{
		Path:   "/api/v1/tickets",
		Query:  url.Values{"query": {string(query)}},
		Header: c.header(),
	}, &out)
	if err != nil {
		return false, fmt.Errorf("failed to query open tickets: %w", err)
	}
	if len(out.Data) == 0 {
		return false, nil
	}
	return out.Data[0].UserID != "", nil
}

type ticketFilter struct {
	Where struct {
		IsOpen bool `json:"isOpen"`
	} `json:"where"`
	Include []ticketInclude `json:"include"`
}

type ticketInclude struct {
	Model    string `json:"model"`
	Required bool   `json:"required"`
	Where    struct {
		Visible bool   `json:"visible"`
		ID      string `json:"id"`
	} `json:"where"`
}

func ticketQuery(contactID string) ticketFilter {
	var q ticketFilter
	q.Where.IsOpen = true
	inc := ticketInclude{Model: "contact", Required: true}
	inc.Where.Visible = true
	inc.Where.ID = contactID
	q.Include = []ticketInclude{inc}
	return q
}
