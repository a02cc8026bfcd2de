// Package testutils holds helpers shared by the provider and platform tests.
package testutils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// Serve starts a stub server for h, closed when the test ends, and returns
// its base URL.
func Serve(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}
