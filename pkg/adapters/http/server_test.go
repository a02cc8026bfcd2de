package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/funil/internal/dialogue"
	"github.com/aretw0/funil/internal/metrics"
	adapter "github.com/aretw0/funil/pkg/adapters/http"
	"github.com/aretw0/funil/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Handle(ctx context.Context, ev domain.InboundEvent) (dialogue.Result, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(dialogue.Result), args.Error(1)
}

const body = `{"event":"message.created","data":{"contactId":"c-1","text":"SIM","isFromMe":false,"data":{"number":"5541999990000"}}}`

func post(t *testing.T, h http.Handler, payload string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestWebhook_Dispatches(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Handle", mock.Anything, mock.MatchedBy(func(ev domain.InboundEvent) bool {
		return ev.Event == "message.created" && ev.Data.ContactID == "c-1" &&
			ev.Data.Text == "SIM" && ev.Data.Data.Number == "5541999990000"
	})).Return(dialogue.ResultHandled, nil)

	w := post(t, adapter.NewHandler(d), body)

	assert.Equal(t, http.StatusOK, w.Code)
	d.AssertExpectations(t)
}

func TestWebhook_FailureStillAcknowledged(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Handle", mock.Anything, mock.Anything).Return(dialogue.ResultError, errors.New("facta down"))
	m := metrics.New()
	h := adapter.NewHandler(d, adapter.WithMetrics(m.Handler(), m.ObserveWebhook))

	w := post(t, h, body)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mw := httptest.NewRecorder()
	h.ServeHTTP(mw, req)
	assert.Contains(t, mw.Body.String(), `funil_webhook_events_total{result="error"} 1`)
}

func TestWebhook_DetachedContext(t *testing.T) {
	d := new(MockDispatcher)
	d.On("Handle", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything).Return(dialogue.ResultHandled, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)).WithContext(ctx)
	w := httptest.NewRecorder()
	adapter.NewHandler(d).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	d.AssertExpectations(t)
}

func TestWebhook_Malformed(t *testing.T) {
	d := new(MockDispatcher)
	w := post(t, adapter.NewHandler(d), `{"event":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	d.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestHealth(t *testing.T) {
	var redisErr error
	h := adapter.NewHandler(new(MockDispatcher),
		adapter.WithHealthCheck("redis", func(context.Context) error { return redisErr }),
	)

	get := func() (int, map[string]any) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		var out map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return w.Code, out
	}

	code, out := get()
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])

	redisErr = errors.New("connection refused")
	code, out = get()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", out["status"])
	assert.Equal(t, map[string]any{"redis": "unreachable"}, out["checks"])
}

func TestMetricsNotMountedByDefault(t *testing.T) {
	w := httptest.NewRecorder()
	adapter.NewHandler(new(MockDispatcher)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
