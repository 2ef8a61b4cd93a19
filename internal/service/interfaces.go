package service

import (
	"context"
	"time"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
	"hedgewatch/internal/repository"
)

// HedgeRepositoryInterface определяет интерфейс репозитория хеджей
type HedgeRepositoryInterface interface {
	Create(hedge *models.Hedge) error
	GetByID(id int) (*models.Hedge, error)
	GetActive() ([]*models.Hedge, error)
	GetByPortfolioID(portfolioID int) ([]*models.Hedge, error)
	GetActiveByPortfolioID(portfolioID int) ([]*models.Hedge, error)
	GetByStatus(status string) ([]*models.Hedge, error)
	UpdatePnl(id int, currentPrice, currentPnl float64) error
	Close(id int) error
	CountActive() (int, error)
	CountActiveByPortfolioID(portfolioID int) (int, error)
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	Create(n *models.Notification) error
	GetRecent(limit int) ([]*models.Notification, error)
	GetByPortfolioID(portfolioID, limit int) ([]*models.Notification, error)
	DeleteAll() (int64, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
	Count() (int, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ HedgeRepositoryInterface = (*repository.HedgeRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// MonitorServiceInterface определяет интерфейс сервиса мониторинга
type MonitorServiceInterface interface {
	Start(ctx context.Context)
	Stop()
	IsRunning() bool
	Status() *monitor.EngineStatus
	EnablePortfolio(cfg *models.AutoHedgeConfig) error
	DisablePortfolio(portfolioID int) error
	GetAssessment(portfolioID int) (*models.RiskAssessment, error)
	TriggerAssessment(ctx context.Context, portfolioID int, address string) (*models.RiskAssessment, error)
	RefreshPnl(ctx context.Context) (*monitor.UpdateResult, error)
}

// HedgeServiceInterface определяет интерфейс сервиса хеджей
type HedgeServiceInterface interface {
	OpenHedge(ctx context.Context, req *OpenHedgeRequest) (*models.Hedge, error)
	CloseHedge(ctx context.Context, id int) (*models.Hedge, error)
	GetHedge(id int) (*models.Hedge, error)
	GetHedges(portfolioID int, activeOnly bool) ([]*models.Hedge, error)
	GetAllByStatus(status string) ([]*models.Hedge, error)
	CountActive() (int, error)
}

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetNotifications(portfolioID, limit int) ([]*models.Notification, error)
	ClearNotifications() (int64, error)
	GetNotificationCount() (int, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ MonitorServiceInterface = (*MonitorService)(nil)
var _ HedgeServiceInterface = (*HedgeService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)
