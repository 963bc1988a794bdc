package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"finance/internal/core"
	"finance/internal/listing"
)

func TestParseListOptions(t *testing.T) {
	tests := []struct {
		query string
		want  listing.Options
	}{
		{"", listing.Options{Sort: listing.Latest, Page: 1}},
		{"page=3&sort=a+to+z&search=+emma+&category=Bills", listing.Options{Category: "Bills", Search: "emma", Sort: listing.AToZ, Page: 3}},
		{"page=-2&sort=random", listing.Options{Sort: listing.Latest, Page: 1}},
		{"page=abc&category=All+Transactions", listing.Options{Category: core.AllTransactions, Sort: listing.Latest, Page: 1}},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		if got := ParseListOptions(q); got != tt.want {
			t.Errorf("ParseListOptions(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Amount core.Money `json:"amount"`
	}
	tests := []struct {
		name    string
		body    string
		wantBad bool
		wantIs  error
	}{
		{"valid", `{"amount":"1.50"}`, false, nil},
		{"empty", ``, true, nil},
		{"malformed", `{"amount":`, true, nil},
		{"two values", `{"amount":1}{"amount":2}`, true, nil},
		{"invalid amount", `{"amount":"ten"}`, false, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)

			var bad *BadRequest
			if got := errors.As(err, &bad); got != tt.wantBad {
				t.Fatalf("BadRequest=%v want %v (err=%v)", got, tt.wantBad, err)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Fatalf("err=%v, want %v", err, tt.wantIs)
			}
			if tt.name == "valid" && p.Amount.Cents != 150 {
				t.Errorf("amount=%d", p.Amount.Cents)
			}
		})
	}
}

func TestDecodeJSONTooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var v map[string]string
	err := decodeJSON(httptest.NewRecorder(), req, &v)
	var bad *BadRequest
	if !errors.As(err, &bad) || bad.Message != "request body too large" {
		t.Fatalf("err=%v", err)
	}
}

func TestRequired(t *testing.T) {
	if err := required("name", "x", "email", " "); err == nil || !strings.Contains(err.Error(), `"email"`) {
		t.Errorf("required() = %v", err)
	}
	if err := required("name", "x"); err != nil {
		t.Errorf("required() = %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
}
