package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/presentation/tui"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/ports"
)

// LocalContacts is the contact directory of a terminal conversation:
// one named person, never attended by an agent.
type LocalContacts struct {
	Name string
}

var _ ports.ContactDirectory = LocalContacts{}

// GetContact returns the configured person.
func (c LocalContacts) GetContact(_ context.Context, contactID string) (*ports.Contact, error) {
	return &ports.Contact{ID: contactID, Name: c.Name}, nil
}

// HasAttendedTicket always reports false.
func (LocalContacts) HasAttendedTicket(context.Context, string) (bool, error) {
	return false, nil
}

// Dispatcher runs one inbound event.
type Dispatcher interface {
	Handle(ctx context.Context, ev domain.InboundEvent) (dialogue.Result, error)
}

// ChatOptions configures RunChat.
type ChatOptions struct {
	ContactID string
	Number    string
	In        io.Reader
	Out       io.Writer
}

var exitCommands = map[string]bool{"sair": true, "exit": true, "quit": true}

// RunChat feeds each line read from opts.In to d as a message from
// opts.ContactID. A number picks the matching button of the last prompt.
// It returns nil on EOF, on an exit command or when ctx is cancelled.
func RunChat(ctx context.Context, d Dispatcher, console *tui.Console, opts ChatOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(opts.In)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	prompt := func() { fmt.Fprint(opts.Out, "> ") }
	prompt()
	for {
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(opts.Out)
			return nil
		case err := <-readErr:
			fmt.Fprintln(opts.Out)
			return err
		case line = <-lines:
		}

		if exitCommands[strings.ToLower(strings.TrimSpace(line))] {
			return nil
		}

		ev := domain.InboundEvent{Event: "message.created"}
		ev.Data.ContactID = opts.ContactID
		ev.Data.Text = console.Choice(line)
		ev.Data.Data.Number = opts.Number

		result, err := d.Handle(ctx, ev)
		switch {
		case err != nil:
			fmt.Fprintf(opts.Out, ">>> erro: %v\n", err)
		case result != dialogue.ResultHandled:
			fmt.Fprintf(opts.Out, ">>> mensagem não processada (%s)\n", result)
		}
		prompt()
	}
}
