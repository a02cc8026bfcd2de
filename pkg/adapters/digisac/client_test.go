package digisac_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/aretw0/funil/internal/testutils"
	"github.com/aretw0/funil/internal/transport"
	"github.com/aretw0/funil/pkg/adapters/digisac"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, mux *http.ServeMux) *digisac.Client {
	t.Helper()
	baseURL := testutils.Serve(t, mux)
	return digisac.New(baseURL, "tok", "svc-1",
		digisac.WithDepartment("dep-9"),
		digisac.WithTransport(transport.WithMaxRetries(0)),
	)
}

func TestSend(t *testing.T) {
	var bodies []map[string]any
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		w.Write([]byte(`{"id":"m-1"}`))
	})
	c := newClient(t, mux)
	ctx := context.Background()
	to := domain.Recipient{ContactID: "c-1", Number: "5541999990000"}

	require.NoError(t, c.Send(ctx, to, domain.Text("olá")))
	require.NoError(t, c.Send(ctx, to, domain.Buttons("menu_inicial", "Escolha", "SIM", "NÃO")))
	require.NoError(t, c.Send(ctx, to, domain.OutboundMessage{
		Kind:  domain.MessageMedia,
		Media: &domain.Media{Base64: "anBlZw==", MimeType: "image/jpeg", Name: "auth.jpg"},
	}))
	require.Len(t, bodies, 3)

	assert.Equal(t, map[string]any{
		"contactId": "c-1", "number": "5541999990000", "serviceId": "svc-1",
		"type": "chat", "origin": "bot", "text": "olá",
	}, bodies[0])

	assert.Equal(t, "chat", bodies[1]["type"])
	assert.NotContains(t, bodies[1], "origin")
	im := bodies[1]["interactiveMessage"].(map[string]any)
	assert.Equal(t, "menu_inicial", im["name"])
	interactive := im["interactive"].(map[string]any)
	assert.Equal(t, "button", interactive["type"])
	assert.Equal(t, map[string]any{"text": "Escolha"}, interactive["body"])
	buttons := interactive["action"].(map[string]any)["buttons"].([]any)
	require.Len(t, buttons, 2)
	assert.Equal(t, map[string]any{"type": "reply", "reply": map[string]any{"title": "NÃO"}}, buttons[1])

	assert.Equal(t, "media", bodies[2]["type"])
	assert.Equal(t, map[string]any{"base64": "anBlZw==", "mimetype": "image/jpeg", "name": "auth.jpg"}, bodies[2]["file"])
}

func TestSend_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid number"}`))
	})
	c := newClient(t, mux)
	to := domain.Recipient{ContactID: "c-1"}

	err := c.Send(context.Background(), to, domain.Text("x"))
	var pe *domain.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "invalid number", pe.Message)

	err = c.Send(context.Background(), to, domain.OutboundMessage{Kind: domain.MessageMedia})
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTransferToAgent(t *testing.T) {
	called := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/contacts/c-1/ticket/transfer", func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "departmentId=dep-9", string(body))
	})
	c := newClient(t, mux)

	require.NoError(t, c.TransferToAgent(context.Background(), "c-1"))
	assert.True(t, called)
}

func TestGetContact(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/contacts/c-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"c-1","name":"Ana Souza","isGroup":false}`))
	})
	mux.HandleFunc("GET /api/v1/contacts/g-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"Família","isGroup":true}`))
	})
	mux.HandleFunc("GET /api/v1/contacts/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	c := newClient(t, mux)
	ctx := context.Background()

	contact, err := c.GetContact(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", contact.Name)
	assert.False(t, contact.IsGroup)

	contact, err = c.GetContact(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "g-1", contact.ID)
	assert.True(t, contact.IsGroup)

	_, err = c.GetContact(ctx, "gone")
	assert.ErrorIs(t, err, &domain.NotFoundError{Resource: "contact"})
}

func TestHasAttendedTicket(t *testing.T) {
	responses := map[string]string{
		"c-1": `{"data":[{"id":"t-1","userId":"u-7"}]}`,
		"c-2": `{"data":[{"id":"t-2","userId":null}]}`,
		"c-3": `{"data":[]}`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/tickets", func(w http.ResponseWriter, r *http.Request) {
		var q struct {
			Where struct {
				IsOpen bool `json:"isOpen"`
			} `json:"where"`
			Include []struct {
				Model    string `json:"model"`
				Required bool   `json:"required"`
				Where    struct {
					Visible bool   `json:"visible"`
					ID      string `json:"id"`
				} `json:"where"`
			} `json:"include"`
		}
		require.NoError(t, json.Unmarshal([]byte(r.URL.Query().Get("query")), &q))
		assert.True(t, q.Where.IsOpen)
		require.Len(t, q.Include, 1)
		assert.Equal(t, "contact", q.Include[0].Model)
		assert.True(t, q.Include[0].Required)
		assert.True(t, q.Include[0].Where.Visible)
		w.Write([]byte(responses[q.Include[0].Where.ID]))
	})
	c := newClient(t, mux)
	ctx := context.Background()

	attended, err := c.HasAttendedTicket(ctx, "c-1")
	require.NoError(t, err)
	assert.True(t, attended)

	attended, err = c.HasAttendedTicket(ctx, "c-2")
	require.NoError(t, err)
	assert.False(t, attended)

	attended, err = c.HasAttendedTicket(ctx, "c-3")
	require.NoError(t, err)
	assert.False(t, attended)
}
