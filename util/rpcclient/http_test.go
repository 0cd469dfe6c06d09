package rpcclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func startHTTP(t *testing.T, handler http.Handler) (*httptest.Server, string) {
	t.Helper()
	server := httptest.NewServer(handler)
	return server, server.URL
}
