package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"hedgewatch/internal/models"
	"hedgewatch/internal/provider"
)

// ============================================================
// Mock репозитории и провайдеры для unit тестов
// ============================================================

var errNotInMockStore = errors.New("not found in mock store")

type mockHedgeRepo struct {
	mu     sync.Mutex
	hedges map[int]*models.Hedge
	nextID int

	createErr error
	closeErr  error
	getErr    error
}

func newMockHedgeRepo() *mockHedgeRepo {
	return &mockHedgeRepo{hedges: make(map[int]*models.Hedge), nextID: 1}
}

func (m *mockHedgeRepo) add(h *models.Hedge) *models.Hedge {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.ID = m.nextID
	m.nextID++
	m.hedges[h.ID] = h
	return h
}

func (m *mockHedgeRepo) Create(hedge *models.Hedge) error {
	if m.createErr != nil {
		return m.createErr
	}
	hedge.CreatedAt = time.Now()
	m.add(hedge)
	return nil
}

func (m *mockHedgeRepo) GetByID(id int) (*models.Hedge, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hedges[id]
	if !ok {
		return nil, errNotInMockStore
	}
	return h, nil
}

func (m *mockHedgeRepo) GetActive() ([]*models.Hedge, error) {
	return m.filter(func(h *models.Hedge) bool { return h.Status == models.HedgeStatusActive })
}

func (m *mockHedgeRepo) GetByPortfolioID(portfolioID int) ([]*models.Hedge, error) {
	return m.filter(func(h *models.Hedge) bool { return h.PortfolioID == portfolioID })
}

func (m *mockHedgeRepo) GetActiveByPortfolioID(portfolioID int) ([]*models.Hedge, error) {
	return m.filter(func(h *models.Hedge) bool {
		return h.PortfolioID == portfolioID && h.Status == models.HedgeStatusActive
	})
}

func (m *mockHedgeRepo) GetByStatus(status string) ([]*models.Hedge, error) {
	return m.filter(func(h *models.Hedge) bool { return h.Status == status })
}

func (m *mockHedgeRepo) filter(keep func(*models.Hedge) bool) ([]*models.Hedge, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Hedge
	for _, h := range m.hedges {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHedgeRepo) UpdatePnl(id int, currentPrice, currentPnl float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hedges[id]
	if !ok {
		return errNotInMockStore
	}
	h.CurrentPrice = &currentPrice
	h.CurrentPnl = &currentPnl
	return nil
}

func (m *mockHedgeRepo) Close(id int) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hedges[id]
	if !ok || h.Status != models.HedgeStatusActive {
		return errNotInMockStore
	}
	h.Status = models.HedgeStatusClosed
	return nil
}

func (m *mockHedgeRepo) CountActive() (int, error) {
	active, err := m.GetActive()
	return len(active), err
}

func (m *mockHedgeRepo) CountActiveByPortfolioID(portfolioID int) (int, error) {
	active, err := m.GetActiveByPortfolioID(portfolioID)
	return len(active), err
}

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications []*models.Notification

	createErr error
}

func (m *mockNotificationRepo) Create(n *models.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = len(m.notifications) + 1
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) GetRecent(limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.notifications) {
		limit = len(m.notifications)
	}
	return m.notifications[:limit], nil
}

func (m *mockNotificationRepo) GetByPortfolioID(portfolioID, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.PortfolioID != nil && *n.PortfolioID == portfolioID {
			out = append(out, n)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockNotificationRepo) DeleteAll() (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := int64(len(m.notifications))
	m.notifications = nil
	return deleted, nil
}

func (m *mockNotificationRepo) DeleteOlderThan(timestamp time.Time) (int64, error) {
	return 0, nil
}

func (m *mockNotificationRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications), nil
}

type mockGateway struct {
	mu          sync.Mutex
	openErr     error
	closeErr    error
	rejected    bool
	reason      string
	entry       float64
	openCalls   int
	closeCalls  int
	lastRequest *provider.OpenPositionRequest
}

func (m *mockGateway) OpenPosition(ctx context.Context, req provider.OpenPositionRequest) (*provider.OpenResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCalls++
	m.lastRequest = &req
	if m.openErr != nil {
		return nil, m.openErr
	}
	if m.rejected {
		return &provider.OpenResult{Accepted: false, RejectReason: m.reason}, nil
	}
	return &provider.OpenResult{Accepted: true, OrderID: "ord-1", EntryPrice: m.entry}, nil
}

func (m *mockGateway) ClosePosition(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.closeErr
}

type mockBroadcaster struct {
	mu        sync.Mutex
	published []*models.Notification
}

func (m *mockBroadcaster) PublishNotification(n *models.Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, n)
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published)
}
