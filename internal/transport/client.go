package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/funil/pkg/domain"
)

// maxErrorBody limits how much of a failed response is kept as message.
const maxErrorBody = 4 << 10

// Client issues JSON requests against one provider and maps failures onto
// domain errors: transport failures become *domain.NetworkError, non-2xx
// responses become *domain.ProviderError.
type Client struct {
	Provider string
	BaseURL  string
	HTTP     *http.Client
}

// NewClient builds a Client whose requests go through a RetryTransport.
func NewClient(provider, baseURL string, baseDelay time.Duration, opts ...RetryOption) *Client {
	return &Client{
		Provider: provider,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		HTTP:     &http.Client{Transport: NewRetryTransport(provider, baseDelay, opts...)},
	}
}

// Request describes one call.
type Request struct {
	Method string
	// Path is appended to BaseURL unless it is already absolute.
	Path   string
	Query  url.Values
	Header http.Header
	// JSON is encoded as the body. Form takes precedence when set.
	JSON any
	Form url.Values
	// Idempotent lets the RetryTransport resend a POST. Leave it unset on
	// anything that creates a proposal, sends a message or moves a ticket.
	Idempotent bool
}

// Do sends req and decodes a 2xx JSON body into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	raw, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.ProviderError{Provider: c.Provider, Status: http.StatusOK, Message: fmt.Sprintf("invalid response body: %v", err)}
	}
	return nil
}

// DoRaw sends req and returns the body of a 2xx response.
func (c *Client) DoRaw(ctx context.Context, req Request) ([]byte, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, &domain.NetworkError{Provider: c.Provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.ProviderError{
			Provider: c.Provider,
			Status:   resp.StatusCode,
			Message:  errorMessage(body),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.NetworkError{Provider: c.Provider, Err: err}
	}
	return body, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	target := req.Path
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.BaseURL + "/" + strings.TrimLeft(req.Path, "/")
	}
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s request: %w", c.Provider, err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	if req.Idempotent {
		ctx = MarkIdempotent(ctx)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", c.Provider, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// errorMessage pulls a human message out of common provider error shapes.
func errorMessage(body []byte) string {
	var shape struct {
		Mensagem string `json:"mensagem"`
		Message  string `json:"message"`
		Error    any    `json:"error"`
	}
	if json.Unmarshal(body, &shape) == nil {
		switch {
		case shape.Mensagem != "":
			return shape.Mensagem
		case shape.Message != "":
			return shape.Message
		case shape.Error != nil:
			if s, ok := shape.Error.(string); ok {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// IsStatus reports whether err is a ProviderError with the given status.
func IsStatus(err error, status int) bool {
	var pe *domain.ProviderError
	return errors.As(err, &pe) && pe.Status == status
}
