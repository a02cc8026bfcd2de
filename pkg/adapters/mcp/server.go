// Package mcp exposes funnel operations to MCP clients: offer simulation,
// session inspection and reset, and the conversation graph.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	funil "github.com/aretw0/funil"
	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/logging"
	"github.com/aretw0/funil/internal/rates"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/aretw0/funil/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "funil://graph"

// Comparer runs a rate comparison.
type Comparer interface {
	Compare(ctx context.Context, cpf string) (rates.Outcome, error)
}

// SessionView is a session with the personal data masked.
type SessionView struct {
	ContactID     string  `json:"contact_id"`
	State         string  `json:"state" jsonschema_description:"Conversation state; empty before the first message"`
	Name          string  `json:"name,omitempty"`
	CPF           string  `json:"cpf,omitempty" jsonschema_description:"Masked CPF"`
	Interactions  int     `json:"interactions"`
	BankCode      string  `json:"bank_code,omitempty"`
	OfferAmount   float64 `json:"offer_amount,omitempty"`
	OfferProvider int     `json:"offer_provider,omitempty"`
	ProposalLink  string  `json:"proposal_link,omitempty"`
}

func viewOf(contactID string, s *domain.Session) SessionView {
	v := SessionView{
		ContactID:    contactID,
		State:        string(s.State),
		Name:         s.DisplayName,
		CPF:          domain.MaskCPF(s.CPF),
		Interactions: s.InteractionCount,
		ProposalLink: s.ProposalLink,
	}
	if s.BankingDetails != nil {
		v.BankCode = s.BankingDetails.BankCode
	}
	if s.SelectedOffer != nil {
		v.OfferAmount = s.SelectedOffer.AmountReleased
		v.OfferProvider = s.SelectedOffer.SourceProviderID
	}
	return v
}

type cpfArgs struct {
	CPF string `json:"cpf"`
}

type contactArgs struct {
	ContactID string `json:"contact_id"`
}

// Server wraps the funnel components as an MCP server.
type Server struct {
	rates     Comparer
	sessions  *session.Manager
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(c Comparer, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		rates:     c,
		sessions:  sessions,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("funil", strings.TrimSpace(funil.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// HandleMessage answers one JSON-RPC message without a transport.
func (s *Server) HandleMessage(ctx context.Context, msg json.RawMessage) mcp.JSONRPCMessage {
	return s.mcpServer.HandleMessage(ctx, msg)
}

// ServeStdio serves on Stdin/Stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over Server-Sent Events on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if host == "" {
		host = "localhost"
	}
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+net.JoinHostPort(host, port)))

	r := chi.NewRouter()
	r.Handle("/sse", sse.SSEHandler())
	r.Handle("/message", sse.MessageHandler())
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "addr", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("could not stop MCP server gracefully: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("simulate_anticipation",
		mcp.WithDescription("Compare FGTS anticipation offers for a CPF across both balance providers."),
		mcp.WithString("cpf", mcp.Required(), mcp.Description("CPF, with or without punctuation")),
		mcp.WithOutputSchema[rates.Report](),
	), mcp.NewStructuredToolHandler(s.handleSimulate))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show the stored conversation of a contact, personal data masked."),
		mcp.WithString("contact_id", mcp.Required(), mcp.Description("Digisac contact id")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Send a contact back to the menu on the next message. Name and CPF are kept."),
		mcp.WithString("contact_id", mcp.Required(), mcp.Description("Digisac contact id")),
		mcp.WithOutputSchema[SessionView](),
	), mcp.NewStructuredToolHandler(s.handleResetSession))

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the contact ids with a stored conversation."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		sort.Strings(ids)
		return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
	})
}

func (s *Server) handleSimulate(ctx context.Context, _ mcp.CallToolRequest, args cpfArgs) (rates.Report, error) {
	cpf, err := domain.ParseCPF(args.CPF)
	if err != nil {
		return rates.Report{}, err
	}
	out, err := s.rates.Compare(ctx, cpf)
	if err != nil {
		s.logger.Error("MCP simulation failed", "cpf", domain.MaskCPF(cpf), "err", err)
		return rates.Report{}, fmt.Errorf("comparison failed: %w", err)
	}
	return out.Report(cpf), nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args contactArgs) (SessionView, error) {
	if args.ContactID == "" {
		return SessionView{}, &domain.ValidationError{Field: "contact_id", Reason: "required"}
	}
	sess, err := s.sessions.Get(ctx, args.ContactID)
	if err != nil {
		return SessionView{}, err
	}
	return viewOf(args.ContactID, sess), nil
}

func (s *Server) handleResetSession(ctx context.Context, req mcp.CallToolRequest, args contactArgs) (SessionView, error) {
	if args.ContactID == "" {
		return SessionView{}, &domain.ValidationError{Field: "contact_id", Reason: "required"}
	}
	if err := s.sessions.Reset(ctx, args.ContactID); err != nil {
		return SessionView{}, err
	}
	s.logger.Info("Session reset over MCP", "contact_id", args.ContactID)
	return s.handleGetSession(ctx, req, args)
}

type edgeJSON struct {
	From    string `json:"from"`
	Handler string `json:"handler"`
	To      string `json:"to"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Conversation graph",
		mcp.WithResourceDescription("Every state transition the conversation can make"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		edges := dialogue.Edges()
		out := make([]edgeJSON, len(edges))
		for i, e := range edges {
			out[i] = edgeJSON{From: string(e.From), Handler: e.Handler, To: string(e.To)}
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
