package kusto

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(&Config{
		Endpoint: srv.URL,
		AppID:    "test-app",
		Timeout:  5 * time.Second,
		Logger:   zap.NewNop(),
	}).WithHTTPClient(srv.Client())
}

func TestExecute_RequestShapeAndResponseParse(t *testing.T) {
	var gotPath, gotAuth, gotQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Query string `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Query

		_, _ = w.Write([]byte(`{
			"tables": [{
				"name": "PrimaryResult",
				"columns": [{"name": "timestamp", "type": "datetime"}, {"name": "message", "type": "string"}],
				"rows": [["2026-08-23T10:00:00Z", "hello"]]
			}]
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.Execute(context.Background(), "traces | take 1", "tok123")
	if err != nil {
		t.Fatal(err)
	}

	if gotPath != "/v1/apps/test-app/query" {
		t.Fatalf("unexpected request path %s", gotPath)
	}
	if gotAuth != "Bearer tok123" {
		t.Fatalf("unexpected authorization header %s", gotAuth)
	}
	if gotQuery != "traces | take 1" {
		t.Fatalf("unexpected query body %s", gotQuery)
	}

	if !reflect.DeepEqual(got.Columns, []string{"timestamp", "message"}) {
		t.Fatalf("unexpected columns %v", got.Columns)
	}
	if len(got.Rows) != 1 || got.Rows[0][1] != "hello" {
		t.Fatalf("unexpected rows %v", got.Rows)
	}
}

func TestExecute_StatusErrorTaxonomy(t *testing.T) {
	cases := []struct {
		status   int
		sentinel error
	}{
		{http.StatusUnauthorized, domain.ErrAuthFailed},
		{http.StatusForbidden, domain.ErrAuthFailed},
		{http.StatusBadRequest, domain.ErrQuerySyntax},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusInternalServerError, domain.ErrTransport},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"code":"TestCode","message":"test detail"}}`))
			}))
			defer srv.Close()

			_, err := newTestClient(srv).Execute(context.Background(), "traces", "tok")
			if !errors.Is(err, tc.sentinel) {
				t.Fatalf("status %d: expected sentinel %v in chain, got %v", tc.status, tc.sentinel, err)
			}
		})
	}
}

func TestExecute_ErrorPreservesDiagnostics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BadArgumentError","message":"unknown table 'tracez'"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Execute(context.Background(), "tracez", "tok")
	if err == nil {
		t.Fatal("expected error")
	}

	msg := err.Error()
	for _, want := range []string{"400", "BadArgumentError", "unknown table 'tracez'"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestExecute_NoTablesIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tables": []}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Execute(context.Background(), "traces", "tok")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestExecute_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := NewClient(&Config{Endpoint: srv.URL, AppID: "x", Timeout: time.Second, Logger: zap.NewNop()})
	_, err := c.Execute(context.Background(), "traces", "tok")
	if !errors.Is(err, domain.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}
