package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/phpwdk/apidoc/internal/apidoc"
	"github.com/phpwdk/apidoc/internal/introspect"
	"github.com/phpwdk/apidoc/internal/metrics"
)

func testTree(t *testing.T, m *metrics.Collector) *apidoc.Tree {
	t.Helper()
	fixture := introspect.NewFixture(introspect.FixtureType{
		ID:  "shop.Widget",
		Doc: "Widget service.\n@version 1.0",
		Members: []introspect.Member{
			{Name: "create", Doc: "Create a widget."},
			{Name: "delete", Doc: "Delete a widget."},
		},
	})
	a, err := apidoc.New(apidoc.Config{Types: []string{"shop.Widget"}}, fixture, apidoc.WithMetrics(m))
	require.NoError(t, err)
	tree, err := a.Collect(introspect.Public)
	require.NoError(t, err)
	return tree
}

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestHandler_NotReady(t *testing.T) {
	s := New(nil, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	for _, path := range []string{"/", "/apidoc.yaml", "/types/shop.Widget", "/healthz"} {
		resp, _ := get(t, srv, path)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestHandler_ServesTree(t *testing.T) {
	m := metrics.New()
	s := New(m.Registry(), slog.New(slog.DiscardHandler))
	s.Update(testTree(t, m))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, resp.Header.Get("Last-Modified"))
	assert.JSONEq(t, `{"shop.Widget": {
		"description": "Widget service.",
		"tags": {"version": "1.0"},
		"action": {
			"create": {"description": "Create a widget.", "tags": {}},
			"delete": {"description": "Delete a widget.", "tags": {}}
		}
	}}`, body)

	_, jsonBody := get(t, srv, "/apidoc.json")
	assert.Equal(t, body, jsonBody)

	resp, body = get(t, srv, "/apidoc.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var fromYAML map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(body), &fromYAML))
	assert.Contains(t, fromYAML, "shop.Widget")

	resp, _ = get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdate_NilTreeIsIgnored(t *testing.T) {
	s := New(nil, slog.New(slog.DiscardHandler))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	require.NotPanics(t, func() { s.Update(nil) })
	resp, _ := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	s.Update(testTree(t, nil))
	s.Update(nil)
	resp, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "shop.Widget")
}

func TestHandler_SingleType(t *testing.T) {
	s := New(nil, slog.New(slog.DiscardHandler))
	s.Update(testTree(t, nil))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, body := get(t, srv, "/types/shop.Widget")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Contains(t, doc, "action")

	resp, _ = get(t, srv, "/types/shop.Missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_Metrics(t *testing.T) {
	m := metrics.New()
	s := New(m.Registry(), slog.New(slog.DiscardHandler))
	s.Update(testTree(t, m))
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, body := get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `apidoc_types_total{result="emitted"} 1`)
	assert.Contains(t, body, "apidoc_members_documented_total 2")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := New(nil, slog.New(slog.DiscardHandler))
	s.Update(testTree(t, nil))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
