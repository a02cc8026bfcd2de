// Package brasilapi resolves bank codes to display names.
package brasilapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/domain"
)

// Name identifies the provider in errors, logs and metrics.
const Name = "brasilapi"

// Client queries the public banks endpoint.
type Client struct {
	http *transport.Client
}

// New creates a client for baseURL (https://brasilapi.com.br in production).
func New(baseURL string, opts ...transport.RetryOption) *Client {
	return &Client{http: transport.NewClient(Name, baseURL, 500*time.Millisecond, opts...)}
}

// BankName returns the short name of the bank with the given COMPE code:
// "NU PAGAMENTOS - IP" becomes "NU PAGAMENTOS".
func (c *Client) BankName(ctx context.Context, code string) (string, error) {
	var out struct {
		Name     string `json:"name"`
		FullName string `json:"fullName"`
	}
	err := c.http.Do(ctx, transport.Request{Path: "/api/banks/v1/" + url.PathEscape(code)}, &out)
	if err != nil {
		if transport.IsStatus(err, http.StatusNotFound) {
			return "", &domain.NotFoundError{Resource: "bank", Key: code}
		}
		return "", err
	}
	name, _, _ := strings.Cut(out.Name, " - ")
	if name == "" {
		name = out.FullName
	}
	return strings.TrimSpace(name), nil
}
