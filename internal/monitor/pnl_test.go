package monitor

import (
	"context"
	"errors"
	"io"
	"math"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPnlUpdaterShortPosition(t *testing.T) {
	store := newMockHedgeStore()
	hedge := store.add(&models.Hedge{
		PortfolioID:   1,
		Symbol:        "ETH",
		Side:          models.SideShort,
		NotionalValue: 1000,
		Leverage:      5,
		EntryPrice:    100,
		Status:        models.HedgeStatusActive,
	})

	prices := &mockPriceSource{prices: map[string]float64{"ETH": 90}}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Updated != 1 {
		t.Fatalf("expected 1 update, got %d", result.Updated)
	}

	// SHORT: (100-90)/100 * 1000 * 5 = +500
	if hedge.CurrentPnl == nil || math.Abs(*hedge.CurrentPnl-500) > 1e-9 {
		t.Errorf("expected pnl +500, got %v", hedge.CurrentPnl)
	}
	if hedge.CurrentPrice == nil || *hedge.CurrentPrice != 90 {
		t.Errorf("expected current price 90, got %v", hedge.CurrentPrice)
	}
}

func TestPnlUpdaterLongPosition(t *testing.T) {
	store := newMockHedgeStore()
	hedge := store.add(&models.Hedge{
		PortfolioID:   1,
		Symbol:        "BTC",
		Side:          models.SideLong,
		NotionalValue: 1000,
		Leverage:      3,
		EntryPrice:    100,
		Status:        models.HedgeStatusActive,
	})

	prices := &mockPriceSource{prices: map[string]float64{"BTC": 110}}
	updater := NewPnlUpdater(store, prices, testLogger())

	if _, err := updater.UpdateAllActivePositions(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// LONG: (110-100)/100 * 1000 * 3 = +300
	if hedge.CurrentPnl == nil || math.Abs(*hedge.CurrentPnl-300) > 1e-9 {
		t.Errorf("expected pnl +300, got %v", hedge.CurrentPnl)
	}
}

func TestPnlUpdaterBatchesDistinctSymbols(t *testing.T) {
	store := newMockHedgeStore()
	for i := 0; i < 5; i++ {
		store.add(&models.Hedge{
			Symbol: "ETH", Side: models.SideShort, NotionalValue: 100,
			Leverage: 1, EntryPrice: 100, Status: models.HedgeStatusActive,
		})
	}
	store.add(&models.Hedge{
		Symbol: "BTC", Side: models.SideShort, NotionalValue: 100,
		Leverage: 1, EntryPrice: 50000, Status: models.HedgeStatusActive,
	})

	prices := &mockPriceSource{prices: map[string]float64{"ETH": 95, "BTC": 49000}}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 6 хеджей, 2 уникальных символа, ровно один пакетный запрос цен
	if calls := atomic.LoadInt32(&prices.calls); calls != 1 {
		t.Errorf("expected 1 batched price call, got %d", calls)
	}
	if result.Updated != 6 {
		t.Errorf("expected 6 updates, got %d", result.Updated)
	}
}

func TestPnlUpdaterSkipsMissingPrice(t *testing.T) {
	store := newMockHedgeStore()
	known := store.add(&models.Hedge{
		Symbol: "ETH", Side: models.SideShort, NotionalValue: 1000,
		Leverage: 2, EntryPrice: 100, Status: models.HedgeStatusActive,
	})
	unknown := store.add(&models.Hedge{
		Symbol: "OBSCURE", Side: models.SideShort, NotionalValue: 1000,
		Leverage: 2, EntryPrice: 10, Status: models.HedgeStatusActive,
	})

	prices := &mockPriceSource{prices: map[string]float64{"ETH": 95}}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("missing price must not be an error: %v", err)
	}

	if result.Updated != 1 || result.Skipped != 1 {
		t.Errorf("expected 1 updated / 1 skipped, got %d / %d", result.Updated, result.Skipped)
	}
	if known.CurrentPnl == nil {
		t.Error("known symbol should be updated")
	}
	// Пропущенная позиция сохраняет прежние значения
	if unknown.CurrentPnl != nil {
		t.Error("unknown symbol must keep previous values")
	}
}

func TestPnlUpdaterPriceSourceDown(t *testing.T) {
	store := newMockHedgeStore()
	store.add(&models.Hedge{
		Symbol: "ETH", Side: models.SideShort, NotionalValue: 1000,
		Leverage: 2, EntryPrice: 100, Status: models.HedgeStatusActive,
	})

	prices := &mockPriceSource{err: errors.New("source down")}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("full source outage must not raise: %v", err)
	}
	if result.Skipped != 1 || result.Updated != 0 {
		t.Errorf("expected all skipped, got updated=%d skipped=%d", result.Updated, result.Skipped)
	}
}

func TestPnlUpdaterStoreErrorIsolated(t *testing.T) {
	store := newMockHedgeStore()
	store.add(&models.Hedge{
		Symbol: "ETH", Side: models.SideShort, NotionalValue: 1000,
		Leverage: 2, EntryPrice: 100, Status: models.HedgeStatusActive,
	})
	store.add(&models.Hedge{
		Symbol: "BTC", Side: models.SideShort, NotionalValue: 1000,
		Leverage: 2, EntryPrice: 50000, Status: models.HedgeStatusActive,
	})
	store.updatePnlErr = errors.New("write failed")

	prices := &mockPriceSource{prices: map[string]float64{"ETH": 95, "BTC": 49000}}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("per-hedge store errors must not raise: %v", err)
	}
	// Обе записи падают, но тик доходит до конца
	if result.Errors != 2 {
		t.Errorf("expected 2 errors, got %d", result.Errors)
	}
}

func TestPnlUpdaterNoActiveHedges(t *testing.T) {
	store := newMockHedgeStore()
	prices := &mockPriceSource{}
	updater := NewPnlUpdater(store, prices, testLogger())

	result, err := updater.UpdateAllActivePositions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if calls := atomic.LoadInt32(&prices.calls); calls != 0 {
		t.Errorf("no hedges means no price calls, got %d", calls)
	}
}
