package newcorban

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/funil/internal/providers"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Personal is the typed view of cliente.pessoais.
type Personal struct {
	Name          string `mapstructure:"nome"`
	BirthDate     string `mapstructure:"nascimento"`
	Income        string `mapstructure:"renda"`
	Sex           string `mapstructure:"sexo"`
	MaritalStatus string `mapstructure:"estado_civil"`
	MotherName    string `mapstructure:"mae"`
	FatherName    string `mapstructure:"pai"`
	IlliterateRaw string `mapstructure:"analfabeto"`
}

// Illiterate interprets the analfabeto flag, which arrives as 0/1, S/N or
// a boolean.
func (p Personal) Illiterate() bool {
	switch strings.ToUpper(strings.TrimSpace(p.IlliterateRaw)) {
	case "1", "S", "SIM", "TRUE":
		return true
	}
	return false
}

// Document is an identity document on file.
type Document struct {
	Number   string `mapstructure:"numero"`
	UF       string `mapstructure:"uf"`
	IssuedAt string `mapstructure:"data_emissao"` // yyyy-mm-dd
}

// Phone is a phone number on file.
type Phone struct {
	DDD    string `mapstructure:"ddd"`
	Number string `mapstructure:"numero"`
}

// Formatted renders "(ddd)number".
func (p Phone) Formatted() string {
	return fmt.Sprintf("(%s)%s", p.DDD, p.Number)
}

// Address is a postal address on file.
type Address struct {
	ZipCode  string `mapstructure:"cep"`
	Street   string `mapstructure:"logradouro"`
	Number   string `mapstructure:"numero"`
	District string `mapstructure:"bairro"`
	City     string `mapstructure:"cidade"`
	UF       string `mapstructure:"uf"`
}

// BankAccount is one entry of the bank-account history.
type BankAccount struct {
	ReleaseType  string `mapstructure:"tipo_liberacao"`
	BankCode     string `mapstructure:"banco_averbacao"`
	Branch       string `mapstructure:"agencia"`
	Account      string `mapstructure:"conta"`
	AccountDigit string `mapstructure:"conta_digito"`
}

// FullAccount is the account number followed by its check digit.
func (b BankAccount) FullAccount() string {
	return b.Account + b.AccountDigit
}

// AccountFromDetails splits a user-supplied account into number and digit.
func AccountFromDetails(d *domain.BankingDetails) BankAccount {
	acc := BankAccount{
		ReleaseType: d.AccountType,
		BankCode:    d.BankCode,
		Branch:      d.Branch,
	}
	if n := len(d.Account); n > 0 {
		acc.Account = d.Account[:n-1]
		acc.AccountDigit = d.Account[n-1:]
	}
	return acc
}

// Details converts a history entry back into session banking details.
func (b BankAccount) Details() *domain.BankingDetails {
	return &domain.BankingDetails{
		AccountType: b.ReleaseType,
		BankCode:    b.BankCode,
		Branch:      b.Branch,
		Account:     b.FullAccount(),
		Source:      domain.BankingFromHistory,
	}
}

// Keyed pairs a record with its backend id and its raw JSON, which is sent
// back verbatim when the proposal is created.
type Keyed[T any] struct {
	ID    string
	Value T
	Raw   json.RawMessage
}

// ClientRecord is a client as registered in the backend. Documents, phones
// and addresses keep the order in which the backend listed them.
type ClientRecord struct {
	Personal    Personal
	PersonalRaw json.RawMessage
	Documents   []Keyed[Document]
	Phones      []Keyed[Phone]
	Addresses   []Keyed[Address]
}

type clientPayload struct {
	Pessoais   json.RawMessage         `json:"pessoais"`
	Documentos providers.OrderedObject `json:"documentos"`
	Telefones  providers.OrderedObject `json:"telefones"`
	Enderecos  providers.OrderedObject `json:"enderecos"`
}

func (p *clientPayload) record() (*ClientRecord, error) {
	rec := &ClientRecord{PersonalRaw: p.Pessoais}
	if err := decodeRaw(p.Pessoais, &rec.Personal); err != nil {
		return nil, invalid("pessoais", err)
	}

	var err error
	if rec.Documents, err = decodeKeyed[Document](p.Documentos); err != nil {
		return nil, invalid("documentos", err)
	}
	if rec.Phones, err = decodeKeyed[Phone](p.Telefones); err != nil {
		return nil, invalid("telefones", err)
	}
	if rec.Addresses, err = decodeKeyed[Address](p.Enderecos); err != nil {
		return nil, invalid("enderecos", err)
	}
	return rec, nil
}

func decodeKeyed[T any](obj providers.OrderedObject) ([]Keyed[T], error) {
	out := make([]Keyed[T], 0, len(obj))
	for _, e := range obj {
		k := Keyed[T]{ID: e.Key, Raw: e.Value}
		if err := decodeRaw(e.Value, &k.Value); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key, err)
		}
		out = append(out, k)
	}
	return out, nil
}

func decodeRaw(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	return decodeMap(m, out)
}

// decodeMap tolerates the backend's habit of sending numbers as strings and
// vice versa.
func decodeMap(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func invalid(field string, err error) error {
	return &domain.ProviderError{Provider: Name, Status: http.StatusOK, Message: fmt.Sprintf("invalid %s: %v", field, err)}
}

// Proposal is everything createProposta needs.
type Proposal struct {
	PersonalRaw json.RawMessage
	Document    Keyed[Document]
	Address     Keyed[Address]
	Phone       Keyed[Phone]
	Account     BankAccount

	BankID         int
	BankProposalID json.RawMessage
	Link           string
	Amount         float64
	// Installments, Rate and RateTable are unset for provider A offers.
	Installments int
	Rate         string
	RateTable    string
}

func (p Proposal) payload(username, password string) (map[string]any, error) {
	if p.Document.ID == "" || p.Address.ID == "" || p.Phone.ID == "" {
		return nil, &domain.ValidationError{Field: "proposal", Reason: "document, address and phone are required"}
	}
	return map[string]any{
		"auth": map[string]any{
			"username": username,
			"password": password,
			"empresa":  empresa,
		},
		"requestType": "createProposta",
		"content": map[string]any{
			"cliente": map[string]any{
				"pessoais":   orNull(p.PersonalRaw),
				"documentos": providers.OrderedObject{{Key: p.Document.ID, Value: p.Document.Raw}},
				"enderecos":  providers.OrderedObject{{Key: p.Address.ID, Value: p.Address.Raw}},
				"telefones":  providers.OrderedObject{{Key: p.Phone.ID, Value: p.Phone.Raw}},
			},
			"proposta": map[string]any{
				"documento_id":      p.Document.ID,
				"endereco_id":       p.Address.ID,
				"telefone_id":       p.Phone.ID,
				"banco_id":          p.BankID,
				"convenio_id":       "100000",
				"proposta_id_banco": orNull(p.BankProposalID),
				"produto_id":        "7",
				"status":            0,
				"tipo_cadastro":     "API",
				"tipo_liberacao":    p.Account.ReleaseType,
				"banco_averbacao":   p.Account.BankCode,
				"conta":             p.Account.Account,
				"conta_digito":      p.Account.AccountDigit,
				"agencia":           p.Account.Branch,
				"promotora_id":      "2",
				"link_formalizacao": p.Link,
				"vendedor":          8656,
				"origem_id":         6622,
				"proposta_id":       8464220,
				"login_digitacao":   "alcif-ltf",
				"valor_parcela":     0,
				"valor_financiado":  p.Amount,
				"valor_liberado":    p.Amount,
				"prazo":             zeroNull(p.Installments),
				"taxa":              emptyNull(p.Rate),
				"tabela_id":         emptyNull(p.RateTable),
			},
		},
	}, nil
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

func zeroNull(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func emptyNull(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
