package chi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveAuth(keys []string, path, authorization string) *httptest.ResponseRecorder {
	handler := BearerAuthMiddleware(keys)(okHandler())
	req := httptest.NewRequest("GET", path, http.NoBody)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	for _, keys := range [][]string{nil, {"", ""}} {
		if rr := serveAuth(keys, "/search", ""); rr.Code != http.StatusOK {
			t.Errorf("keys %q: got %d, want %d", keys, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"wrong key", "Bearer wrong-key"},
		{"key prefix", "Bearer secre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveAuth([]string{"secret"}, "/search", tt.authorization)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("got %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Code != ErrorCodeUnauthorized {
				t.Errorf("error code: got %s, want %s", errResp.Code, ErrorCodeUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_MultipleKeys(t *testing.T) {
	for _, key := range []string{"key1", "key2"} {
		if rr := serveAuth([]string{"key1", "key2"}, "/search", "Bearer "+key); rr.Code != http.StatusOK {
			t.Errorf("key %s: got %d, want %d", key, rr.Code, http.StatusOK)
		}
	}
}

func TestAuthMiddleware_PublicPaths(t *testing.T) {
	for _, path := range []string{"/health", "/metrics"} {
		if rr := serveAuth([]string{"secret"}, path, ""); rr.Code != http.StatusOK {
			t.Errorf("public path %s: got %d, want %d", path, rr.Code, http.StatusOK)
		}
	}
}
