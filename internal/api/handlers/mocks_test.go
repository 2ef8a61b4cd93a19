package handlers

import (
	"context"
	"fmt"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
	"hedgewatch/internal/repository"
	"hedgewatch/internal/service"
)

// ============================================================
// Mock сервисы для unit тестов handlers
// ============================================================

type mockMonitorService struct {
	running       bool
	portfolios    map[int]*models.AutoHedgeConfig
	assessments   map[int]*models.RiskAssessment
	enableErr     error
	triggerErr    error
	refreshErr    error
	refreshResult *monitor.UpdateResult
}

func newMockMonitorService() *mockMonitorService {
	return &mockMonitorService{
		portfolios:  make(map[int]*models.AutoHedgeConfig),
		assessments: make(map[int]*models.RiskAssessment),
	}
}

func (m *mockMonitorService) Start(ctx context.Context) { m.running = true }
func (m *mockMonitorService) Stop()                     { m.running = false }
func (m *mockMonitorService) IsRunning() bool           { return m.running }

func (m *mockMonitorService) Status() *monitor.EngineStatus {
	enabled := make([]int, 0, len(m.portfolios))
	for id := range m.portfolios {
		enabled = append(enabled, id)
	}
	return &monitor.EngineStatus{
		Running:           m.running,
		EnabledPortfolios: enabled,
		PnlUpdateFreq:     "30s",
		RiskCheckFreq:     "5m0s",
	}
}

func (m *mockMonitorService) EnablePortfolio(cfg *models.AutoHedgeConfig) error {
	if m.enableErr != nil {
		return m.enableErr
	}
	m.portfolios[cfg.PortfolioID] = cfg
	return nil
}

func (m *mockMonitorService) DisablePortfolio(portfolioID int) error {
	if _, ok := m.portfolios[portfolioID]; !ok {
		return fmt.Errorf("portfolio %d is not monitored", portfolioID)
	}
	delete(m.portfolios, portfolioID)
	return nil
}

func (m *mockMonitorService) GetAssessment(portfolioID int) (*models.RiskAssessment, error) {
	a, ok := m.assessments[portfolioID]
	if !ok {
		return nil, fmt.Errorf("no assessment available for portfolio %d", portfolioID)
	}
	return a, nil
}

func (m *mockMonitorService) TriggerAssessment(ctx context.Context, portfolioID int, address string) (*models.RiskAssessment, error) {
	if m.triggerErr != nil {
		return nil, m.triggerErr
	}
	if _, ok := m.portfolios[portfolioID]; !ok && address == "" {
		return nil, fmt.Errorf("portfolio %d is not monitored and no address given", portfolioID)
	}
	a := &models.RiskAssessment{PortfolioID: portfolioID, RiskScore: 5}
	if _, ok := m.portfolios[portfolioID]; ok {
		m.assessments[portfolioID] = a
	}
	return a, nil
}

func (m *mockMonitorService) RefreshPnl(ctx context.Context) (*monitor.UpdateResult, error) {
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	if m.refreshResult != nil {
		return m.refreshResult, nil
	}
	return &monitor.UpdateResult{}, nil
}

var _ service.MonitorServiceInterface = (*mockMonitorService)(nil)

type mockHedgeService struct {
	hedges   map[int]*models.Hedge
	nextID   int
	openErr  error
	closeErr error
}

func newMockHedgeService() *mockHedgeService {
	return &mockHedgeService{hedges: make(map[int]*models.Hedge), nextID: 1}
}

func (m *mockHedgeService) add(h *models.Hedge) *models.Hedge {
	h.ID = m.nextID
	m.nextID++
	m.hedges[h.ID] = h
	return h
}

func (m *mockHedgeService) OpenHedge(ctx context.Context, req *service.OpenHedgeRequest) (*models.Hedge, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.add(&models.Hedge{
		PortfolioID:   req.PortfolioID,
		Symbol:        req.Symbol,
		Market:        req.Symbol + "-PERP",
		Side:          req.Side,
		NotionalValue: req.NotionalValue,
		Leverage:      req.Leverage,
		Status:        models.HedgeStatusActive,
		Reason:        req.Reason,
	}), nil
}

func (m *mockHedgeService) CloseHedge(ctx context.Context, id int) (*models.Hedge, error) {
	if m.closeErr != nil {
		return nil, m.closeErr
	}
	h, ok := m.hedges[id]
	if !ok {
		return nil, repository.ErrHedgeNotFound
	}
	h.Status = models.HedgeStatusClosed
	return h, nil
}

func (m *mockHedgeService) GetHedge(id int) (*models.Hedge, error) {
	h, ok := m.hedges[id]
	if !ok {
		return nil, repository.ErrHedgeNotFound
	}
	return h, nil
}

func (m *mockHedgeService) GetHedges(portfolioID int, activeOnly bool) ([]*models.Hedge, error) {
	var out []*models.Hedge
	for _, h := range m.hedges {
		if h.PortfolioID != portfolioID {
			continue
		}
		if activeOnly && h.Status != models.HedgeStatusActive {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *mockHedgeService) GetAllByStatus(status string) ([]*models.Hedge, error) {
	if status != models.HedgeStatusActive && status != models.HedgeStatusClosed {
		return nil, fmt.Errorf("unknown hedge status %q", status)
	}
	var out []*models.Hedge
	for _, h := range m.hedges {
		if h.Status == status {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *mockHedgeService) CountActive() (int, error) {
	active, _ := m.GetAllByStatus(models.HedgeStatusActive)
	return len(active), nil
}

var _ service.HedgeServiceInterface = (*mockHedgeService)(nil)

type mockNotificationService struct {
	notifications []*models.Notification
	getErr        error
	clearErr      error
}

func (m *mockNotificationService) GetNotifications(portfolioID, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if portfolioID > 0 {
		var out []*models.Notification
		for _, n := range m.notifications {
			if n.PortfolioID != nil && *n.PortfolioID == portfolioID {
				out = append(out, n)
			}
		}
		return out, nil
	}
	return m.notifications, nil
}

func (m *mockNotificationService) ClearNotifications() (int64, error) {
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	deleted := int64(len(m.notifications))
	m.notifications = nil
	return deleted, nil
}

func (m *mockNotificationService) GetNotificationCount() (int, error) {
	return len(m.notifications), nil
}

var _ service.NotificationServiceInterface = (*mockNotificationService)(nil)
