package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPPriceSourceGetPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/prices" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"prices": {"BTC": 60000.5, "ETH": 2000.0, "BAD": 0}}`)
	}))
	defer server.Close()

	source := NewHTTPPriceSource(server.URL, nil, 100)
	prices, err := source.GetPrices(context.Background(), []string{"BTC", "ETH", "BAD"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}
	if prices["BTC"] != 60000.5 {
		t.Errorf("expected BTC=60000.5, got %f", prices["BTC"])
	}
	// Нулевая цена отбрасывается
	if _, ok := prices["BAD"]; ok {
		t.Error("zero price should be dropped")
	}
}

func TestHTTPPriceSourceEmptySymbols(t *testing.T) {
	source := NewHTTPPriceSource("http://unused", nil, 100)

	prices, err := source.GetPrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prices) != 0 {
		t.Errorf("expected empty result, got %v", prices)
	}
}

func TestHTTPPriceSourceServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPPriceSource(server.URL, nil, 100)
	_, err := source.GetPrices(context.Background(), []string{"BTC"})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestHTTPPriceSourceGetPriceMissingSymbol(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"prices": {"BTC": 60000.0}}`)
	}))
	defer server.Close()

	source := NewHTTPPriceSource(server.URL, nil, 100)
	_, err := source.GetPrice(context.Background(), "UNKNOWN")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

// fakePriceSource - управляемый источник для тестов оберток
type fakePriceSource struct {
	prices map[string]float64
	err    error
	calls  int32
}

func (f *fakePriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := f.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	price, ok := prices[symbol]
	if !ok {
		return 0, ErrPriceUnavailable
	}
	return price, nil
}

func (f *fakePriceSource) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	result := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := f.prices[s]; ok {
			result[s] = p
		}
	}
	return result, nil
}

func TestCachedPriceSourceHitsCache(t *testing.T) {
	fake := &fakePriceSource{prices: map[string]float64{"ETH": 2000.0}}
	cached := NewCachedPriceSource(fake, time.Minute)

	for i := 0; i < 3; i++ {
		prices, err := cached.GetPrices(context.Background(), []string{"ETH"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prices["ETH"] != 2000.0 {
			t.Errorf("expected 2000.0, got %f", prices["ETH"])
		}
	}

	if calls := atomic.LoadInt32(&fake.calls); calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

func TestCachedPriceSourceExpires(t *testing.T) {
	fake := &fakePriceSource{prices: map[string]float64{"ETH": 2000.0}}
	cached := NewCachedPriceSource(fake, 10*time.Millisecond)

	_, _ = cached.GetPrices(context.Background(), []string{"ETH"})
	time.Sleep(20 * time.Millisecond)
	_, _ = cached.GetPrices(context.Background(), []string{"ETH"})

	if calls := atomic.LoadInt32(&fake.calls); calls != 2 {
		t.Errorf("expected 2 upstream calls after TTL expiry, got %d", calls)
	}
}

func TestCachedPriceSourcePartialResultOnUpstreamFailure(t *testing.T) {
	fake := &fakePriceSource{prices: map[string]float64{"ETH": 2000.0}}
	cached := NewCachedPriceSource(fake, time.Minute)

	// Прогреваем кэш
	if _, err := cached.GetPrices(context.Background(), []string{"ETH"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Источник падает, но ETH уже в кэше
	fake.err = errors.New("upstream down")
	prices, err := cached.GetPrices(context.Background(), []string{"ETH", "BTC"})
	if err != nil {
		t.Fatalf("expected cached partial result, got error: %v", err)
	}
	if prices["ETH"] != 2000.0 {
		t.Errorf("expected cached ETH price, got %v", prices)
	}
	if _, ok := prices["BTC"]; ok {
		t.Error("BTC should be missing")
	}
}

func TestFallbackPriceSourceUsesBackup(t *testing.T) {
	primary := &fakePriceSource{err: errors.New("primary down")}
	backup := &fakePriceSource{prices: map[string]float64{"BTC": 59000.0}}

	fallback := NewFallbackPriceSource(primary, backup)

	prices, err := fallback.GetPrices(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prices["BTC"] != 59000.0 {
		t.Errorf("expected backup price 59000.0, got %f", prices["BTC"])
	}
}

func TestFallbackPriceSourceAllFail(t *testing.T) {
	primary := &fakePriceSource{err: ErrPriceUnavailable}
	backup := &fakePriceSource{err: ErrPriceUnavailable}

	fallback := NewFallbackPriceSource(primary, backup)

	_, err := fallback.GetPrices(context.Background(), []string{"BTC"})
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestFallbackPriceSourcePrefersPrimary(t *testing.T) {
	primary := &fakePriceSource{prices: map[string]float64{"BTC": 60000.0}}
	backup := &fakePriceSource{prices: map[string]float64{"BTC": 59000.0}}

	fallback := NewFallbackPriceSource(primary, backup)

	prices, err := fallback.GetPrices(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prices["BTC"] != 60000.0 {
		t.Errorf("expected primary price 60000.0, got %f", prices["BTC"])
	}
	if calls := atomic.LoadInt32(&backup.calls); calls != 0 {
		t.Errorf("backup should not be called, got %d calls", calls)
	}
}
