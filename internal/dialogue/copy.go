package dialogue

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed messages.yaml
var defaultMessages []byte

// Copy keys. Every key must be present in the catalog.
const (
	copyMenu                  = "menu"
	copyPayrollPrompt         = "payroll_prompt"
	copyPayrollSimulation     = "payroll_simulation"
	copySpecialist            = "specialist"
	copyPayrollFAQ            = "payroll_faq"
	copyConfirmCPF            = "confirm_cpf"
	copyOptIn                 = "opt_in"
	copyFGTSFAQ               = "fgts_faq"
	copyCollectCPF            = "collect_cpf"
	copyWrongCPF              = "wrong_cpf"
	copyInvalidCPF            = "invalid_cpf"
	copyBirthday              = "birthday"
	copyNoValue               = "no_value"
	copyOffer                 = "offer"
	copyAuthorize             = "authorize"
	copyAuthorizeNudge        = "authorize_nudge"
	copyAuthorizationTips     = "authorization_tips"
	copyCollectBanking        = "collect_banking"
	copyInvalidBanking        = "invalid_banking"
	copyConfirmUserBanking    = "confirm_user_banking"
	copyConfirmHistoryBanking = "confirm_history_banking"
	copySympathy              = "sympathy"
	copySuccess               = "success"
)

var copyKeys = []string{
	copyMenu, copyPayrollPrompt, copyPayrollSimulation, copySpecialist,
	copyPayrollFAQ, copyConfirmCPF, copyOptIn, copyFGTSFAQ, copyCollectCPF,
	copyWrongCPF, copyInvalidCPF, copyBirthday, copyNoValue, copyOffer,
	copyAuthorize, copyAuthorizeNudge, copyAuthorizationTips,
	copyCollectBanking, copyInvalidBanking, copyConfirmUserBanking,
	copyConfirmHistoryBanking, copySympathy, copySuccess,
}

// view is the data every copy template is rendered with.
type view struct {
	Name        string
	CPF         string
	Amount      string
	Link        string
	AccountType string
	Bank        string
	Branch      string
	Account     string
}

// Catalog holds the parsed copy templates.
type Catalog struct {
	templates map[string]*template.Template
	raw       map[string]string
}

// DefaultCatalog parses the embedded copy.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog("")
}

// LoadCatalog parses the embedded copy and overlays the keys found in
// path, if path is not empty. Unknown keys in the override are rejected.
func LoadCatalog(path string) (*Catalog, error) {
	texts := map[string]string{}
	if err := yaml.Unmarshal(defaultMessages, &texts); err != nil {
		return nil, fmt.Errorf("failed to parse embedded copy: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read copy file: %w", err)
		}
		override := map[string]string{}
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to parse copy file %s: %w", path, err)
		}
		for k, v := range override {
			if _, ok := texts[k]; !ok {
				return nil, fmt.Errorf("copy file %s: unknown key %q", path, k)
			}
			texts[k] = v
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(texts)), raw: texts}
	var missing []string
	for _, k := range copyKeys {
		text, ok := texts[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		tmpl, err := template.New(k).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("copy %q: %w", k, err)
		}
		c.templates[k] = tmpl
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("copy catalog is missing keys: %s", strings.Join(missing, ", "))
	}
	return c, nil
}

// render executes the template under key. Fields are plain strings, so
// execution only fails on a broken override; the raw body is used then.
func (c *Catalog) render(key string, v view) (string, error) {
	tmpl, ok := c.templates[key]
	if !ok {
		return "", fmt.Errorf("unknown copy %q", key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return c.raw[key], err
	}
	return buf.String(), nil
}

// formatAmount renders a BRL amount as 1.234,56.
func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}
