package insights

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
)

func geminiStub(t *testing.T, responseText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.RawQuery, "key=") {
			t.Error("api key missing from query")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": responseText}}}},
			},
		})
	}))
}

func TestInsights(t *testing.T) {
	ts := geminiStub(t, "```json\n[\"cut groceries\", \"save more\", \"watch subscriptions\"]\n```")
	defer ts.Close()

	c := NewGeminiClientWithURL("test-key", ts.URL)
	stats := core.MonthlyStats{
		TotalIncome:   decimal.RequireFromString("2500"),
		TotalExpenses: decimal.RequireFromString("1000.50"),
		ByCategory: map[string]decimal.Decimal{
			"groceries": decimal.RequireFromString("200"),
		},
		TransactionCount: 4,
	}

	got, err := c.Insights(context.Background(), stats, "May")
	if err != nil {
		t.Fatalf("insights: %v", err)
	}
	if len(got) != 3 || got[0] != "cut groceries" {
		t.Errorf("insights = %v", got)
	}
}

func TestInsightsRejectsMalformedResponse(t *testing.T) {
	ts := geminiStub(t, "here are some thoughts, not JSON")
	defer ts.Close()

	c := NewGeminiClientWithURL("test-key", ts.URL)
	if _, err := c.Insights(context.Background(), core.MonthlyStats{}, "May"); err == nil {
		t.Error("expected parse error")
	}
}

func TestInsightsRequiresAPIKey(t *testing.T) {
	c := NewGeminiClient("")
	if _, err := c.Insights(context.Background(), core.MonthlyStats{}, "May"); err == nil {
		t.Error("expected error without api key")
	}
}

func TestScanReceipt(t *testing.T) {
	ts := geminiStub(t, `{"amount": 18.40, "date": "2024-06-04", "description": "coffee and cake", "merchantName": "Cafe", "category": "food"}`)
	defer ts.Close()

	c := NewGeminiClientWithURL("test-key", ts.URL)
	receipt, err := c.ScanReceipt(context.Background(), []byte("fake-image"), "image/jpeg")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !receipt.Amount.Equal(decimal.RequireFromString("18.40")) {
		t.Errorf("amount = %s, want 18.40", receipt.Amount)
	}
	if !receipt.Date.Equal(time.Date(2024, time.June, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %s", receipt.Date)
	}
	if receipt.MerchantName != "Cafe" || receipt.Category != "food" {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestScanReceiptEmptyObject(t *testing.T) {
	ts := geminiStub(t, `{}`)
	defer ts.Close()

	c := NewGeminiClientWithURL("test-key", ts.URL)
	receipt, err := c.ScanReceipt(context.Background(), []byte("not-a-receipt"), "image/png")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !receipt.Amount.IsZero() || receipt.MerchantName != "" {
		t.Errorf("non-receipt should come back empty: %+v", receipt)
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[]", "[]"},
		{"```json\n[]\n```", "[]"},
		{"```\n{}\n```", "{}"},
		{"  [1]  ", "[1]"},
	}
	for _, tt := range tests {
		if got := stripCodeFences(tt.in); got != tt.want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
