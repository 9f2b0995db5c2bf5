package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"datahub-exporter/api"
	"datahub-exporter/config"
	"datahub-exporter/utils"
)

func testProfile() config.Retry {
	return config.Retry{
		MaxAttempts: 2,
		BaseDelay:   5 * time.Millisecond,
		Timeout:     2 * time.Second,
	}
}

// bookingLogServer answers the booking-log endpoint from a per-channel-code
// token table. Codes absent from the table answer HTTP 500.
func bookingLogServer(t *testing.T, tokensByCode map[string][]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CMCode string `json:"CMCode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		tokens, ok := tokensByCode[req.CMCode]
		if !ok {
			http.Error(w, "channel unavailable", http.StatusInternalServerError)
			return
		}

		rows := make([]map[string]any, 0, len(tokens))
		for _, tok := range tokens {
			rows = append(rows, map[string]any{"echoToken": tok})
		}
		json.NewEncoder(w).Encode(rows)
	}))
}

func newTestResolver(srvURL string, codes []string) *Resolver {
	cfg := &config.Config{APIBase: srvURL, DashboardURL: "https://dashboard.test", FetchConcurrency: 4}
	client := api.NewClient(cfg, utils.NewLogger())
	return NewResolver(client, codes, testProfile(), 2, utils.NewLogger())
}

func TestResolverUnionsChannelTokens(t *testing.T) {
	srv := bookingLogServer(t, map[string][]any{
		"A": {1, 2, 3},
		"B": {2, 3, 4},
	})
	defer srv.Close()

	r := newTestResolver(srv.URL, []string{"A", "B"})
	got := r.Resolve(context.Background(), 101, "2026-09-01", "2026-09-07")
	sort.Ints(got)

	want := []int{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("tokens: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tokens[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResolverToleratesFailingChannel(t *testing.T) {
	srv := bookingLogServer(t, map[string][]any{
		"OK": {7},
	})
	defer srv.Close()

	r := newTestResolver(srv.URL, []string{"BAD", "OK"})
	got := r.Resolve(context.Background(), 101, "2026-09-01", "2026-09-07")

	if len(got) != 1 || got[0] != 7 {
		t.Errorf("tokens: got %v, want [7]", got)
	}
}

func TestResolverCoercesTokenEncodings(t *testing.T) {
	srv := bookingLogServer(t, map[string][]any{
		"A": {123, "456.0", "789", nil, "not-a-number", 0, -5},
	})
	defer srv.Close()

	r := newTestResolver(srv.URL, []string{"A"})
	got := r.Resolve(context.Background(), 101, "2026-09-01", "2026-09-07")
	sort.Ints(got)

	want := []int{123, 456, 789}
	if len(got) != len(want) {
		t.Fatalf("tokens: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tokens[%d]: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestCoerceToken(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{`123`, 123, true},
		{`"456.0"`, 456, true},
		{`"789"`, 789, true},
		{`12.9`, 12, true},
		{`null`, 0, false},
		{``, 0, false},
		{`"abc"`, 0, false},
		{`0`, 0, false},
		{`-5`, 0, false},
		{`""`, 0, false},
	}

	for _, tt := range tests {
		got, ok := coerceToken(json.RawMessage(tt.raw))
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("coerceToken(%q) = (%d, %v); want (%d, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}
