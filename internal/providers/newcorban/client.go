// Package newcorban is the client for the loan-management backend: client
// lookups and bank history on the system host, proposal creation on the API
// host.
package newcorban

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
)

// Name identifies the provider in errors, logs and metrics.
const Name = "newcorban"

const (
	backoff   = 500 * time.Millisecond
	empresa   = "freitas"
	origin    = "https://freitas.newcorban.com.br"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36 Edg/139.0.0.0"
	loginIP   = "192.141.239.5"
)

// Config holds both credential pairs. Username/Password log into the
// system host; APIUsername/APIPassword authenticate proposal creation.
type Config struct {
	SystemURL   string
	APIURL      string
	Token       string
	Username    string
	Password    string
	APIUsername string
	APIPassword string
}

// Client talks to both Newcorban hosts. The bearer token is replaced by
// Login and shared by concurrent callers.
type Client struct {
	system *transport.Client
	api    *transport.Client
	cfg    Config

	mu    sync.RWMutex
	token string
}

// New creates a client seeded with cfg.Token.
func New(cfg Config, opts ...transport.RetryOption) *Client {
	return &Client{
		system: transport.NewClient(Name, cfg.SystemURL, backoff, opts...),
		api:    transport.NewClient(Name, cfg.APIURL, backoff, opts...),
		cfg:    cfg,
		token:  cfg.Token,
	}
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) browserHeaders() http.Header {
	return http.Header{
		"Origin":     []string{origin},
		"Referer":    []string{origin + "/"},
		"User-Agent": []string{userAgent},
	}
}

func (c *Client) authorized() http.Header {
	h := c.browserHeaders()
	h.Set("Authorization", "Bearer "+c.Token())
	return h
}

// Login obtains a fresh token and installs it for later calls.
func (c *Client) Login(ctx context.Context) (string, error) {
	form := url.Values{
		"usuario":               {c.cfg.Username},
		"empresa":               {empresa},
		"senha":                 {c.cfg.Password},
		"ip":                    {loginIP},
		"cf-turnstile-response": {"0"},
	}
	var out struct {
		Token string `json:"token"`
	}
	err := c.system.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/api/v2/login",
		Header:     c.browserHeaders(),
		Form:       form,
		Idempotent: true,
	}, &out)
	if err != nil {
		return "", &domain.AuthError{Provider: Name, Reason: "login request failed", Err: err}
	}
	if out.Token == "" {
		return "", &domain.AuthError{Provider: Name, Reason: "login returned no token"}
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()
	return out.Token, nil
}

// Authenticate is Login.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	return c.Login(ctx)
}

// LookupClient fetches the client registered under cpf. A rejected token
// surfaces as *domain.AuthError.
func (c *Client) LookupClient(ctx context.Context, cpf string) (*ClientRecord, error) {
	raw, err := c.system.DoRaw(ctx, transport.Request{
		Path:   "/system/cliente.php",
		Query:  url.Values{"action": {"buscar"}, "cpf": {cpf}},
		Header: c.authorized(),
	})
	if err != nil {
		if transport.IsStatus(err, http.StatusUnauthorized) || transport.IsStatus(err, http.StatusForbidden) {
			return nil, &domain.AuthError{Provider: Name, Reason: "token rejected", Err: err}
		}
		return nil, err
	}

	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
		Cliente *clientPayload  `json:"cliente"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: "invalid client payload: " + err.Error()}
	}
	if providers.Truthy(envelope.Error) {
		reason := envelope.Message
		var s string
		if json.Unmarshal(envelope.Error, &s) == nil && s != "" {
			reason = s
		}
		if reason == "" {
			reason = "lookup refused"
		}
		return nil, &domain.AuthError{Provider: Name, Reason: reason}
	}
	if envelope.Cliente == nil {
		return nil, &domain.NotFoundError{Resource: "client", Key: domain.MaskCPF(cpf)}
	}
	return envelope.Cliente.record()
}

// BankHistory lists the payout accounts used in earlier proposals, most
// recent first. Anything but a JSON array counts as no history.
func (c *Client) BankHistory(ctx context.Context, cpf string) ([]BankAccount, error) {
	raw, err := c.system.DoRaw(ctx, transport.Request{
		Path:   "/system/cliente.php",
		Query:  url.Values{"action": {"getBankAccountHistory"}, "cpf": {cpf}},
		Header: c.authorized(),
	})
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, nil
	}

	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: "invalid bank history: " + err.Error()}
	}
	accounts := make([]BankAccount, 0, len(items))
	for _, item := range items {
		var acc BankAccount
		if err := decodeMap(item, &acc); err != nil {
			return nil, &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: "invalid bank account: " + err.Error()}
		}
		accounts = append(accounts, acc)
	}
	return accounts, nil
}

// CreateProposal registers the finished proposal.
func (c *Client) CreateProposal(ctx context.Context, p Proposal) error {
	body, err := p.payload(c.cfg.APIUsername, c.cfg.APIPassword)
	if err != nil {
		return err
	}

	raw, err := c.api.DoRaw(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/api/propostas/",
		JSON:   body,
	})
	if err != nil {
		return err
	}

	var out struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(raw, &out) == nil && providers.Truthy(out.Error) {
		msg := out.Message
		if msg == "" {
			msg = string(out.Error)
		}
		return &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: msg}
	}
	return nil
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ae *domain.AuthError
	return errors.As(err, &ae)
}
