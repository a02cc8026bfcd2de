package facta

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
)

// Applicant is the personal, document, address and bank data the
// registration steps need.
type Applicant struct {
	CPF           string
	BirthDate     string
	Income        string
	Name          string
	Sex           string
	MaritalStatus string
	RG            string
	RGState       string
	RGIssuedAt    string // dd/mm/yyyy
	Phone         string // (ddd)number
	ZipCode       string
	Street        string
	Number        string
	District      string
	City          string
	State         string
	MotherName    string
	FatherName    string
	Illiterate    bool
	BankCode      string
	Branch        string
	Account       string // with check digit
	AccountType   string // CONTA_CORRENTE or CONTA_POUPANCA
	SimulacaoFGTS json.RawMessage
}

// Registration is the result of the last step.
type Registration struct {
	Codigo          json.RawMessage `json:"codigo"`
	URLFormalizacao string          `json:"url_formalizacao"`
}

// Register runs the three registration steps and returns the bank's
// proposal code and the formalization link.
func (c *Client) Register(ctx context.Context, token string, a Applicant) (*Registration, error) {
	sim, err := c.simulator(ctx, token, a)
	if err != nil {
		return nil, err
	}

	marital, err := c.MaritalStatusCode(ctx, token, a.MaritalStatus)
	if err != nil {
		return nil, err
	}
	city, err := c.CityCode(ctx, token, a.State, a.City)
	if err != nil {
		return nil, err
	}

	clientCode, err := c.personalData(ctx, token, sim, marital, city, a)
	if err != nil {
		return nil, err
	}

	var out Registration
	err = c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/proposta/etapa3-proposta-cadastro",
		Header: bearer(token),
		JSON: map[string]any{
			"codigo_cliente":  clientCode,
			"id_simulador":    sim,
			"po_formalizacao": "DIG",
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.URLFormalizacao == "" {
		return nil, &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: "registration returned no formalization link"}
	}
	return &out, nil
}

func (c *Client) simulator(ctx context.Context, token string, a Applicant) (json.RawMessage, error) {
	var out struct {
		IDSimulador json.RawMessage `json:"id_simulador"`
	}
	err := c.http.Do(ctx, transport.Request{
		Method:     http.MethodPost,
		Path:       "/proposta/etapa1-simulador",
		Header:     bearer(token),
		Idempotent: true,
		JSON: map[string]any{
			"produto":           "D",
			"tipo_operacao":     "13",
			"averbador":         "20095",
			"convenio":          "3",
			"cpf":               a.CPF,
			"data_nascimento":   a.BirthDate,
			"valor_renda":       a.Income,
			"simulacao_fgts":    rawOrNull(a.SimulacaoFGTS),
			"login_certificado": c.cfg.LoginCertificado,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return rawOrNull(out.IDSimulador), nil
}

func (c *Client) personalData(ctx context.Context, token string, sim json.RawMessage, marital, city string, a Applicant) (json.RawMessage, error) {
	var sex any
	if a.Sex != "" {
		sex = a.Sex[:1]
	}
	illiterate := "N"
	if a.Illiterate {
		illiterate = "S"
	}
	accountType := "P"
	if a.AccountType == "CONTA_CORRENTE" {
		accountType = "C"
	}

	var out struct {
		CodigoCliente json.RawMessage `json:"codigo_cliente"`
	}
	err := c.http.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "/proposta/etapa2-dados-pessoais",
		Header: bearer(token),
		JSON: map[string]any{
			"id_simulador":                     sim,
			"cpf":                              a.CPF,
			"nome":                             a.Name,
			"sexo":                             sex,
			"estado_civil":                     marital,
			"data_nascimento":                  a.BirthDate,
			"rg":                               a.RG,
			"estado_rg":                        a.RGState,
			"orgao_emissor":                    "SSP",
			"data_expedicao":                   a.RGIssuedAt,
			"estado_natural":                   a.State,
			"cidade_natural":                   city,
			"nacionalidade":                    "1",
			"celular":                          a.Phone,
			"renda":                            a.Income,
			"cep":                              a.ZipCode,
			"endereco":                         a.Street,
			"numero":                           a.Number,
			"bairro":                           a.District,
			"cidade":                           city,
			"estado":                           a.State,
			"nome_mae":                         a.MotherName,
			"nome_pai":                         a.FatherName,
			"valor_patrimonio":                 "1",
			"cliente_iletrado_impossibilitado": illiterate,
			"banco":                            a.BankCode,
			"agencia":                          a.Branch,
			"conta":                            a.Account,
			"tipo_conta":                       accountType,
			"email":                            c.cfg.Email,
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return rawOrNull(out.CodigoCliente), nil
}

// MaritalStatusCode maps a marital-status label to the provider's code.
// An unknown label yields an empty code.
func (c *Client) MaritalStatusCode(ctx context.Context, token, label string) (string, error) {
	var out struct {
		EstadoCivil providers.OrderedObject `json:"estado_civil"`
	}
	err := c.http.Do(ctx, transport.Request{
		Path:   "/proposta-combos/estado-civil",
		Header: bearer(token),
	}, &out)
	if err != nil {
		return "", err
	}
	for _, e := range out.EstadoCivil {
		var v string
		if json.Unmarshal(e.Value, &v) == nil && v == label {
			return e.Key, nil
		}
	}
	return "", nil
}

// CityCode returns the first city code matching name in state.
func (c *Client) CityCode(ctx context.Context, token, state, name string) (string, error) {
	var out struct {
		Cidade providers.OrderedObject `json:"cidade"`
	}
	err := c.http.Do(ctx, transport.Request{
		Path:   "/proposta-combos/cidade",
		Query:  url.Values{"estado": {state}, "nome_cidade": {name}},
		Header: bearer(token),
	}, &out)
	if err != nil {
		return "", err
	}
	first, ok := out.Cidade.First()
	if !ok || first.Key == "" {
		return "", &domain.NotFoundError{Resource: "city", Key: name + "/" + state}
	}
	return first.Key, nil
}

func rawOrNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
