// Package facta is the client for balance provider B, which also registers
// the loan at the bank in three steps (etapas).
package facta

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
)

// Name identifies the provider in errors, logs and metrics.
const Name = "facta"

const backoff = 50 * time.Millisecond

// Config holds the webservice settings.
type Config struct {
	BaseURL string
	// Credentials is "user:password".
	Credentials      string
	LoginCertificado string
	Email            string
}

// Client talks to the Facta webservice.
type Client struct {
	http *transport.Client
	cfg  Config
}

// New creates a client. opts tune the retrying transport.
func New(cfg Config, opts ...transport.RetryOption) *Client {
	return &Client{
		http: transport.NewClient(Name, cfg.BaseURL, backoff, opts...),
		cfg:  cfg,
	}
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

// Authenticate exchanges the basic credentials for a bearer token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.Credentials))
	var out struct {
		Token    string `json:"token"`
		Mensagem string `json:"mensagem"`
	}
	err := c.http.Do(ctx, transport.Request{
		Path:   "/gera-token",
		Header: http.Header{"Authorization": []string{"Basic " + basic}},
	}, &out)
	if err != nil {
		return "", &domain.AuthError{Provider: Name, Reason: "token request failed", Err: err}
	}
	if out.Token == "" {
		return "", &domain.AuthError{Provider: Name, Reason: "no token in response: " + out.Mensagem}
	}
	return out.Token, nil
}

// Balance is the fgts/saldo response. Retorno holds dataRepasse_N and
// valor_N pairs, values as strings or numbers.
type Balance struct {
	Erro     bool           `json:"erro"`
	Mensagem string         `json:"mensagem"`
	Retorno  map[string]any `json:"retorno"`
}

// Balance queries the FGTS balance of cpf.
func (c *Client) Balance(ctx context.Context, token, cpf string) (*Balance, error) {
	var out Balance
	err := c.http.Do(ctx, transport.Request{
		Path:   "/fgts/saldo",
		Query:  url.Values{"cpf": {cpf}},
		Header: bearer(token),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CalculationRequest is the fgts/calculo body.
type CalculationRequest struct {
	CPF      string           `json:"cpf"`
	Taxa     string           `json:"taxa"`
	Tabela   string           `json:"tabela"`
	Parcelas []map[string]any `json:"parcelas"`
}

// Calculation is the fgts/calculo response. SimulacaoFGTS is kept opaque and
// handed back at registration.
type Calculation struct {
	Permitido     string           `json:"permitido"`
	ValorLiquido  *providers.Float `json:"valor_liquido"`
	SimulacaoFGTS json.RawMessage  `json:"simulacao_fgts"`
}

// Allowed is false when the provider refuses the operation.
func (c *Calculation) Allowed() bool {
	return c.Permitido != "NAO"
}

// Calculate prices the anticipation.
func (c *Client) Calculate(ctx context.Context, token string, req CalculationRequest) (*Calculation, error) {
	var out Calculation
	err := c.http.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/fgts/calculo",
		Header:     bearer(token),
		JSON:       req,
		Idempotent: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
