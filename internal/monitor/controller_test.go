package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"hedgewatch/internal/models"
)

func testPolicy() *models.AutoHedgeConfig {
	return &models.AutoHedgeConfig{
		PortfolioID:   1,
		Address:       "0xabc",
		Enabled:       true,
		RiskThreshold: 5,
		MaxLeverage:   2,
		AllowedAssets: []string{"ETH", "BTC"},
	}
}

func testAssessment(score int, recs ...models.HedgeRecommendation) *models.RiskAssessment {
	return &models.RiskAssessment{
		PortfolioID:     1,
		RiskScore:       score,
		Recommendations: recs,
	}
}

func ethRec() models.HedgeRecommendation {
	return models.HedgeRecommendation{
		Symbol:            "ETH",
		Side:              models.SideShort,
		Reason:            "drawdown -5.0% on ETH",
		SuggestedSize:     1500,
		SuggestedLeverage: 3,
		Confidence:        0.85,
	}
}

func TestControllerExecutesRecommendation(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{entry: 2000}
	notifier := &mockNotifier{}

	c := NewController(store, gateway, notifier, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(7, ethRec()))

	if result.Executed != 1 {
		t.Fatalf("expected 1 executed, got %+v", result)
	}

	req := gateway.lastRequest()
	if req == nil {
		t.Fatal("gateway was not called")
	}
	// Рынок выводится из символа
	if req.Market != "ETH-PERP" {
		t.Errorf("expected market ETH-PERP, got %s", req.Market)
	}
	// Плечо ограничено потолком политики: min(3, 2) = 2
	if req.Leverage != 2 {
		t.Errorf("expected leverage clamped to 2, got %d", req.Leverage)
	}

	hedges, _ := store.GetActiveByPortfolioID(1)
	if len(hedges) != 1 {
		t.Fatalf("expected 1 hedge recorded, got %d", len(hedges))
	}
	h := hedges[0]
	if !h.IsAuto() {
		t.Errorf("auto hedge reason must carry marker, got %q", h.Reason)
	}
	if h.EntryPrice != 2000 {
		t.Errorf("expected entry price from gateway, got %f", h.EntryPrice)
	}
	if h.Leverage != 2 {
		t.Errorf("expected recorded leverage 2, got %d", h.Leverage)
	}

	if len(notifier.byType(models.NotificationTypeAutoHedge)) != 1 {
		t.Error("expected AUTO_HEDGE notification")
	}
}

func TestControllerScoreBelowThreshold(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(4, ethRec()))

	if result.Executed != 0 {
		t.Errorf("score below threshold must not execute, got %+v", result)
	}
	if calls := atomic.LoadInt32(&gateway.openCalls); calls != 0 {
		t.Errorf("gateway must not be called, got %d calls", calls)
	}
}

func TestControllerLowConfidenceSkipped(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}

	rec := ethRec()
	rec.Confidence = 0.65 // ниже глобального порога 0.70

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, rec))

	if result.Skipped != 1 || result.Executed != 0 {
		t.Errorf("expected skip, got %+v", result)
	}
	if calls := atomic.LoadInt32(&gateway.openCalls); calls != 0 {
		t.Errorf("gateway must not be called for low confidence, got %d", calls)
	}
}

func TestControllerAssetNotAllowed(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}
	notifier := &mockNotifier{}

	rec := ethRec()
	rec.Symbol = "DOGE" // не в allow-list

	c := NewController(store, gateway, notifier, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, rec))

	if result.Skipped != 1 {
		t.Errorf("expected skip for disallowed asset, got %+v", result)
	}
	// Шлюз не трогается при отклонении политикой
	if calls := atomic.LoadInt32(&gateway.openCalls); calls != 0 {
		t.Errorf("gateway must not be called, got %d calls", calls)
	}
	if len(notifier.byType(models.NotificationTypeSkip)) != 1 {
		t.Error("expected SKIP notification")
	}
}

func TestControllerEmptyAllowListBlocksEverything(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}

	policy := testPolicy()
	policy.AllowedAssets = nil

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), policy, testAssessment(8, ethRec()))

	if result.Executed != 0 || result.Skipped != 1 {
		t.Errorf("empty allow-list must block execution, got %+v", result)
	}
}

func TestControllerInvalidLeverageSkipped(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}
	notifier := &mockNotifier{}

	rec := ethRec()
	rec.SuggestedLeverage = 0

	// Неположительное плечо после ограничения - отклонение политикой,
	// а не поднятие до минимума
	c := NewController(store, gateway, notifier, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, rec))

	if result.Skipped != 1 || result.Executed != 0 {
		t.Errorf("expected skip for invalid leverage, got %+v", result)
	}
	if calls := atomic.LoadInt32(&gateway.openCalls); calls != 0 {
		t.Errorf("gateway must not be called, got %d calls", calls)
	}
	if len(notifier.byType(models.NotificationTypeSkip)) != 1 {
		t.Error("expected SKIP notification")
	}
}

func TestControllerDuplicateHedgeSkipped(t *testing.T) {
	store := newMockHedgeStore()
	store.add(&models.Hedge{
		PortfolioID: 1, Symbol: "ETH", Side: models.SideShort,
		Status: models.HedgeStatusActive,
	})
	gateway := &mockGateway{}

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, ethRec()))

	if result.Skipped != 1 || result.Executed != 0 {
		t.Errorf("active hedge on same symbol must skip, got %+v", result)
	}
}

func TestControllerGatewayRejection(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{rejected: true, reason: "insufficient margin"}
	notifier := &mockNotifier{}

	c := NewController(store, gateway, notifier, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, ethRec()))

	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %+v", result)
	}
	hedges, _ := store.GetActiveByPortfolioID(1)
	if len(hedges) != 0 {
		t.Error("rejected position must not be recorded")
	}
	if len(notifier.byType(models.NotificationTypeExecFail)) != 1 {
		t.Error("expected EXEC_FAIL notification")
	}
}

func TestControllerGatewayErrorDoesNotRaise(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{openErr: errors.New("network down")}

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())

	// Контроллер никогда не паникует и не возвращает ошибку наверх
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, ethRec()))
	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %+v", result)
	}
}

func TestControllerStoreFailureClosesPosition(t *testing.T) {
	store := newMockHedgeStore()
	store.createErr = errors.New("insert failed")
	gateway := &mockGateway{entry: 2000}

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, ethRec()))

	if result.Failed != 1 {
		t.Errorf("expected 1 failed, got %+v", result)
	}
	// Открытая, но не записанная позиция закрывается обратно
	if calls := atomic.LoadInt32(&gateway.closeCalls); calls != 1 {
		t.Errorf("expected orphaned position to be closed, got %d close calls", calls)
	}
}

func TestControllerSimulationFlag(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{entry: 2000}

	c := NewController(store, gateway, &mockNotifier{}, true, testLogger())
	c.ExecutePortfolio(context.Background(), testPolicy(), testAssessment(8, ethRec()))

	hedges, _ := store.GetActiveByPortfolioID(1)
	if len(hedges) != 1 {
		t.Fatalf("expected 1 hedge, got %d", len(hedges))
	}
	if !hedges[0].IsSimulated {
		t.Error("hedge must be marked simulated")
	}
}

func TestControllerDisabledPolicy(t *testing.T) {
	store := newMockHedgeStore()
	gateway := &mockGateway{}

	policy := testPolicy()
	policy.Enabled = false

	c := NewController(store, gateway, &mockNotifier{}, false, testLogger())
	result := c.ExecutePortfolio(context.Background(), policy, testAssessment(10, ethRec()))

	if result.Executed != 0 {
		t.Errorf("disabled policy must not execute, got %+v", result)
	}
}
