// Package tui renders funnel messages in a terminal.
package tui

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// whatsappBold matches WhatsApp's *bold* markup.
var whatsappBold = regexp.MustCompile(`\*([^*\n]+)\*`)

// Markdown turns WhatsApp markup into markdown.
func Markdown(text string) string {
	text = whatsappBold.ReplaceAllString(text, "**$1**")
	// WhatsApp keeps single line breaks; markdown needs a hard break.
	return strings.ReplaceAll(text, "\n", "  \n")
}

// NewRenderer returns a function that renders markdown with glamour.
// Plain disables styling, for pipes and tests.
func NewRenderer(plain bool) func(string) (string, error) {
	style := glamour.WithAutoStyle()
	if plain {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	if err != nil {
		return func(s string) (string, error) { return s + "\n", nil }
	}
	return r.Render
}

// Console is a ports.Messenger that prints to a terminal.
type Console struct {
	mu     sync.Mutex
	out     *termenv.Output
	render  func(string) (string, error)
	buttons []string
}

var _ ports.Messenger = (*Console)(nil)

// NewConsole writes messages to w. Plain disables colors and markdown styling.
func NewConsole(w io.Writer, plain bool) *Console {
	opts := []termenv.OutputOption{}
	if plain {
		opts = append(opts, termenv.WithProfile(termenv.Ascii))
	}
	return &Console{out: termenv.NewOutput(w, opts...), render: NewRenderer(plain)}
}

// Send prints msg.
func (c *Console) Send(_ context.Context, _ domain.Recipient, msg domain.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.out.ColorProfile()
	switch msg.Kind {
	case domain.MessageMedia:
		name := "anexo"
		if msg.Media != nil {
			name = msg.Media.Name
		}
		fmt.Fprintln(c.out, c.out.String("[imagem: "+name+"]").Faint())
		return nil
	}

	c.buttons = msg.Buttons
	text, err := c.render(Markdown(msg.Text))
	if err != nil {
		return err
	}
	fmt.Fprint(c.out, text)
	for i, label := range msg.Buttons {
		fmt.Fprintf(c.out, "  %s %s\n",
			c.out.String(fmt.Sprintf("[%d]", i+1)).Foreground(p.Color("#10b981")),
			c.out.String(label).Bold())
	}
	if len(msg.Buttons) > 0 {
		fmt.Fprintln(c.out)
	}
	return nil
}

// TransferToAgent prints a notice.
func (c *Console) TransferToAgent(_ context.Context, contactID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, c.out.String(">>> conversa transferida para um atendente").Foreground(c.out.ColorProfile().Color("#f59e0b")))
	return nil
}

// Choice maps a numeric reply onto a label of the last buttons shown.
func (c *Console) Choice(input string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	input = strings.TrimSpace(input)
	for i, label := range c.buttons {
		if input == fmt.Sprint(i+1) {
			return label
		}
	}
	return input
}
