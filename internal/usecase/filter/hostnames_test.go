package filter

import (
	"testing"

	"github.com/kailas-cloud/metasearch/internal/domain/result"
)

func normalized(t *testing.T, u string) *result.Result {
	t.Helper()
	r := &result.Result{URL: u}
	if err := r.Normalize(); err != nil {
		t.Fatalf("normalize %q: %v", u, err)
	}
	return r
}

func TestHostnames_Accept(t *testing.T) {
	h, err := NewHostnames([]string{`(^|\.)pinterest\.com$`, `^spam\.example\.org$`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.pinterest.com/pin/1", false},
		{"https://pinterest.com", false},
		{"https://notpinterest.com", true},
		{"http://spam.example.org:8080/x", false},
		{"https://example.org", true},
		{"spam.example.org/page", false},
		{"www.pinterest.com", false},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			if got := h.Accept(normalized(t, tc.url)); got != tc.want {
				t.Errorf("Accept(%s) = %v, want %v", tc.url, got, tc.want)
			}
		})
	}
}

func TestHostnames_AcceptsOtherEntries(t *testing.T) {
	h, err := NewHostnames([]string{`.*`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, e := range []result.Entry{
		result.Answer{Text: "42"},
		result.Suggestion{Text: "go"},
		&result.Result{Title: "no url"},
		&result.Infobox{Name: "Go"},
	} {
		if !h.Accept(e) {
			t.Errorf("%s entry rejected", e.Kind())
		}
	}
}

func TestNewHostnames_InvalidPattern(t *testing.T) {
	if _, err := NewHostnames([]string{"("}); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestHostnames_EmptyListAcceptsAll(t *testing.T) {
	h, err := NewHostnames(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Accept(normalized(t, "https://example.com")) {
		t.Error("empty block-list rejected a result")
	}
}
