package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestYahooClient_Quote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/TSLA" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"regularMarketPrice":248.75,"previousClose":245.10}}],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)

	price, err := client.Quote(context.Background(), "TSLA")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if price != 248.75 {
		t.Errorf("price = %v, want 248.75", price)
	}
}

func TestYahooClient_QuoteFallsBackToPreviousClose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":[{"meta":{"previousClose":131.20}}],"error":null}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)

	price, err := client.Quote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if price != 131.20 {
		t.Errorf("price = %v, want 131.20", price)
	}
}

func TestYahooClient_QuoteProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)

	if _, err := client.Quote(context.Background(), "GONE"); err == nil {
		t.Fatal("expected error for provider-reported failure")
	}
}

func TestYahooClient_QuoteHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewYahooClient(server.URL)

	if _, err := client.Quote(context.Background(), "TSLA"); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
