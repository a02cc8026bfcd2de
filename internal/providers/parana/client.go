// Package parana is the client for balance provider A (Paraná Banco FGTS
// marketplace API).
package parana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
)

// Name identifies the provider in errors, logs and metrics.
const Name = "parana"

// HaltCode is the balance response code that ends the comparison.
const HaltCode = "9"

const backoff = 500 * time.Millisecond

// Config holds the marketplace credentials.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Client talks to the marketplace API.
type Client struct {
	http *transport.Client
	cfg  Config
	now  func() time.Time
}

// New creates a client. opts tune the retrying transport.
func New(cfg Config, opts ...transport.RetryOption) *Client {
	return &Client{
		http: transport.NewClient(Name, cfg.BaseURL, backoff, opts...),
		cfg:  cfg,
		now:  time.Now,
	}
}

// Balance is the saldo-disponivel response.
type Balance struct {
	Codigo            providers.String `json:"codigo"`
	Mensagem          string           `json:"mensagem"`
	SaldoTotal        json.RawMessage  `json:"saldoTotal"`
	SaldosPorPeriodos json.RawMessage  `json:"saldosPorPeriodos"`
}

// Halted reports whether the provider asked to stop and relay Mensagem.
func (b *Balance) Halted() bool {
	return string(b.Codigo) == HaltCode
}

// HasBalance reports whether there is anything to simulate.
func (b *Balance) HasBalance() bool {
	return providers.Truthy(b.SaldoTotal)
}

// Simulation is the simulacao v3 response.
type Simulation struct {
	ValorLiberado providers.Float `json:"valorLiberado"`
}

func (c *Client) bearer(token string) http.Header {
	return http.Header{
		"Authorization": []string{"Bearer " + token},
		"X-Client-Id":   []string{c.cfg.ClientID},
	}
}

// Authenticate obtains an access token through the password grant.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type":    {"password"},
		"scope":         {"openid"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"username":      {c.cfg.Username},
		"password":      {c.cfg.Password},
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.http.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/v1/auth/token",
		Header:     http.Header{"X-Client-Id": []string{c.cfg.ClientID}},
		Form:       form,
		Idempotent: true,
	}, &out)
	if err != nil {
		return "", &domain.AuthError{Provider: Name, Reason: "token request failed", Err: err}
	}
	if out.AccessToken == "" {
		return "", &domain.AuthError{Provider: Name, Reason: "no access_token in response"}
	}
	return out.AccessToken, nil
}

// AvailableBalance queries the birthday-withdrawal balance over ten periods.
func (c *Client) AvailableBalance(ctx context.Context, token, cpf string) (*Balance, error) {
	body := map[string]any{
		"cpf":                  cpf,
		"quantidadeDePeriodos": "10",
		"cacheParam":           cpf,
		"fromCacheFGTS":        false,
	}
	var out Balance
	err := c.http.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/v1/fgts/saque-aniversario/saldo-disponivel",
		Header:     c.bearer(token),
		JSON:       body,
		Idempotent: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Simulate prices the anticipation of the given periods.
func (c *Client) Simulate(ctx context.Context, token, cpf string, periods json.RawMessage) (*Simulation, error) {
	if len(periods) == 0 {
		periods = json.RawMessage("null")
	}
	body := map[string]any{
		"cpf":                             cpf,
		"dataDeNascimento":                "1991-02-19T00:00:00.763Z",
		"dataDeCalculo":                   c.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		"codigoDaRegra":                   "040030",
		"tipoDeSimulacaoSaqueAniversario": 2,
		"quantidadeDeParcelas":            10,
		"taxaMensal":                      1.79,
		"percentualProtecaoFGTS":          6,
		"incluirSeguro":                   false,
		"incluirTarifaDeCadastro":         false,
		"usuarioBanco":                    c.cfg.Username,
		"saldoDisponivel":                 nil,
		"valorSolicitado":                 999999,
		"saldosPorPeriodos":               periods,
	}
	var out Simulation
	err := c.http.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/v3/fgts/saque-aniversario/simulacao",
		Header:     c.bearer(token),
		JSON:       body,
		Idempotent: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
