package github

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ceiba/internal/domain"
)

func TestUsername(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "bearer gh-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["query"] != viewerQuery {
			t.Fatalf("unexpected query %q", body["query"])
		}
		_, _ = w.Write([]byte(`{"data": {"viewer": {"login": "felipeZ"}}}`))
	}))
	defer srv.Close()

	login, err := NewClient(srv.URL).Username(context.Background(), " gh-token ")
	if err != nil {
		t.Fatalf("Username error: %v", err)
	}
	if login != "felipeZ" {
		t.Fatalf("expected felipeZ, got %q", login)
	}
}

func TestUsernameRejected(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"message":"Bad credentials"}`},
		{name: "graphql error", status: http.StatusOK, body: `{"data":null,"errors":[{"message":"bad"}]}`},
		{name: "missing login", status: http.StatusOK, body: `{"data":{"viewer":{}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL).Username(context.Background(), "token")
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestUsernameEmptyTokenSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Username(context.Background(), "  "); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
