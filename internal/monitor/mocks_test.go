package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"hedgewatch/internal/models"
	"hedgewatch/internal/provider"
)

// ============================================================
// Mocks
// ============================================================

// mockHedgeStore - in-memory хранилище хеджей для тестов
type mockHedgeStore struct {
	mu     sync.Mutex
	hedges map[int]*models.Hedge
	nextID int

	getActiveErr error
	updatePnlErr error
	createErr    error

	updateCalls int32
}

func newMockHedgeStore() *mockHedgeStore {
	return &mockHedgeStore{
		hedges: make(map[int]*models.Hedge),
		nextID: 1,
	}
}

func (m *mockHedgeStore) add(h *models.Hedge) *models.Hedge {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextID
	m.nextID++
	m.hedges[h.ID] = h
	return h
}

func (m *mockHedgeStore) GetActive() ([]*models.Hedge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getActiveErr != nil {
		return nil, m.getActiveErr
	}
	var result []*models.Hedge
	for _, h := range m.hedges {
		if h.Status == models.HedgeStatusActive {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockHedgeStore) GetActiveByPortfolioID(portfolioID int) ([]*models.Hedge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getActiveErr != nil {
		return nil, m.getActiveErr
	}
	var result []*models.Hedge
	for _, h := range m.hedges {
		if h.PortfolioID == portfolioID && h.Status == models.HedgeStatusActive {
			result = append(result, h)
		}
	}
	return result, nil
}

func (m *mockHedgeStore) UpdatePnl(id int, currentPrice, currentPnl float64) error {
	atomic.AddInt32(&m.updateCalls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updatePnlErr != nil {
		return m.updatePnlErr
	}
	h, ok := m.hedges[id]
	if !ok {
		return errHedgeNotInStore
	}
	h.CurrentPrice = &currentPrice
	h.CurrentPnl = &currentPnl
	return nil
}

func (m *mockHedgeStore) Create(h *models.Hedge) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.add(h)
	return nil
}

var errHedgeNotInStore = errors.New("hedge not in mock store")

// mockPriceSource - управляемый источник цен
type mockPriceSource struct {
	mu     sync.Mutex
	prices map[string]float64
	err    error
	calls  int32
}

func (m *mockPriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := m.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}
	p, ok := prices[symbol]
	if !ok {
		return 0, provider.ErrPriceUnavailable
	}
	return p, nil
}

func (m *mockPriceSource) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	atomic.AddInt32(&m.calls, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make(map[string]float64)
	for _, s := range symbols {
		if p, ok := m.prices[s]; ok {
			result[s] = p
		}
	}
	return result, nil
}

// mockGateway - управляемый шлюз исполнения
type mockGateway struct {
	mu       sync.Mutex
	openErr  error
	rejected bool
	reason   string
	entry    float64

	openCalls  int32
	closeCalls int32
	requests   []provider.OpenPositionRequest
}

func (m *mockGateway) OpenPosition(ctx context.Context, req provider.OpenPositionRequest) (*provider.OpenResult, error) {
	atomic.AddInt32(&m.openCalls, 1)
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.openErr != nil {
		return nil, m.openErr
	}
	if m.rejected {
		return &provider.OpenResult{Accepted: false, RejectReason: m.reason}, nil
	}
	entry := m.entry
	if entry == 0 {
		entry = 100.0
	}
	return &provider.OpenResult{Accepted: true, OrderID: "ord-mock", EntryPrice: entry}, nil
}

func (m *mockGateway) ClosePosition(ctx context.Context, orderID string) error {
	atomic.AddInt32(&m.closeCalls, 1)
	return nil
}

func (m *mockGateway) lastRequest() *provider.OpenPositionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return &m.requests[len(m.requests)-1]
}

// mockValuation - управляемый провайдер оценки.
// Каналы entered/release позволяют тесту удерживать вызов внутри
// провайдера, имитируя долгую внешнюю оценку.
type mockValuation struct {
	mu        sync.Mutex
	valuation *models.PortfolioValuation
	err       error
	calls     int32

	entered chan struct{}
	release chan struct{}
}

func (m *mockValuation) GetValuation(ctx context.Context, address string) (*models.PortfolioValuation, error) {
	atomic.AddInt32(&m.calls, 1)
	if m.entered != nil {
		select {
		case m.entered <- struct{}{}:
		default:
		}
	}
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.valuation, nil
}

// mockNotifier собирает уведомления
type mockNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (m *mockNotifier) Notify(n *models.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
}

func (m *mockNotifier) byType(notifType string) []*models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Notification
	for _, n := range m.notifications {
		if n.Type == notifType {
			result = append(result, n)
		}
	}
	return result
}
