package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func serveAuth(t *testing.T, keys []string, path, header string) *httptest.ResponseRecorder {
	t.Helper()
	handler := BearerAuthMiddleware(keys)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestBearerAuth(t *testing.T) {
	tests := []struct {
		name   string
		keys   []string
		path   string
		header string
		want   int
	}{
		{"no keys disables auth", nil, "/v1/statutes/narrow", "", http.StatusOK},
		{"blank keys disable auth", []string{"", ""}, "/v1/statutes/narrow", "", http.StatusOK},
		{"missing header", []string{"secret"}, "/v1/statutes/narrow", "", http.StatusUnauthorized},
		{"basic scheme", []string{"secret"}, "/v1/statutes/narrow", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"empty token", []string{"secret"}, "/v1/statutes/narrow", "Bearer ", http.StatusUnauthorized},
		{"wrong key", []string{"secret"}, "/v1/statutes/narrow", "Bearer wrong", http.StatusUnauthorized},
		{"valid key", []string{"secret"}, "/v1/statutes/narrow", "Bearer secret", http.StatusOK},
		{"lowercase scheme", []string{"secret"}, "/v1/statutes/narrow", "bearer secret", http.StatusOK},
		{"second of two keys", []string{"k1", "k2"}, "/v1/sessions", "Bearer k2", http.StatusOK},
		{"health exempt", []string{"secret"}, "/health", "", http.StatusOK},
		{"metrics exempt", []string{"secret"}, "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth(t, tt.keys, tt.path, tt.header)
			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			if rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}
			var body errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if body.Code != codeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, codeUnauthorized)
			}
		})
	}
}

func TestBearerAuth_RecordsKeyID(t *testing.T) {
	info := &requestInfo{}
	handler := BearerAuthMiddleware([]string{"secret"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", http.NoBody)
	req = req.WithContext(context.WithValue(req.Context(), requestInfoKey{}, info))
	req.Header.Set("Authorization", "Bearer secret")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	want, _ := newKeySet([]string{"secret"}).match("secret")
	if info.apiKeyID == "" || info.apiKeyID != want {
		t.Errorf("apiKeyID = %q, want %q", info.apiKeyID, want)
	}
	if len(info.apiKeyID) != 8 {
		t.Errorf("key id should be 8 hex chars, got %q", info.apiKeyID)
	}
}

func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		token string
		ok    bool
	}{
		"Bearer abc":   {"abc", true},
		"BEARER abc ":  {"abc", true},
		"Bearer":       {"", false},
		"Token abc":    {"", false},
		"Bearer    ":   {"", false},
		"Bearerabc":    {"", false},
		"Bearer a b c": {"a b c", true},
	}
	for header, want := range tests {
		token, ok := bearerToken(header)
		if token != want.token || ok != want.ok {
			t.Errorf("bearerToken(%q) = %q, %v; want %q, %v", header, token, ok, want.token, want.ok)
		}
	}
}

func TestJSONRecoverer(t *testing.T) {
	handler := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/usage", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d, want 500", rr.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != codeInternalError {
		t.Errorf("code = %q", body.Code)
	}
}
