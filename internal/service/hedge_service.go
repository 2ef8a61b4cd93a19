package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
	"hedgewatch/internal/provider"
	"hedgewatch/pkg/utils"
)

// Ошибки сервиса хеджей
var (
	ErrHedgeRejected = errors.New("hedge rejected by execution gateway")
)

// OpenHedgeRequest - запрос на ручное открытие хеджа
type OpenHedgeRequest struct {
	PortfolioID   int     `json:"portfolio_id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	NotionalValue float64 `json:"notional_value"`
	Leverage      int     `json:"leverage"`
	Reason        string  `json:"reason"`
}

// HedgeService предоставляет бизнес-логику для хеджевых позиций.
//
// Отвечает за:
// - Ручное открытие хеджей через шлюз исполнения
// - Закрытие хеджей
// - Получение списков и статистики
//
// Автоматические хеджи открывает monitor.Controller, сюда они
// попадают только на чтение.
type HedgeService struct {
	hedgeRepo  HedgeRepositoryInterface
	gateway    provider.ExecutionGateway
	log        *logrus.Logger
	simulation bool
}

// NewHedgeService создает новый экземпляр HedgeService
func NewHedgeService(
	hedgeRepo HedgeRepositoryInterface,
	gateway provider.ExecutionGateway,
	simulation bool,
	log *logrus.Logger,
) *HedgeService {
	return &HedgeService{
		hedgeRepo:  hedgeRepo,
		gateway:    gateway,
		log:        log,
		simulation: simulation,
	}
}

// OpenHedge открывает хеджевую позицию вручную.
//
// Валидирует запрос, отправляет ордер в шлюз исполнения и записывает
// позицию в БД. Цена входа берется из ответа шлюза, не из запроса.
func (s *HedgeService) OpenHedge(ctx context.Context, req *OpenHedgeRequest) (*models.Hedge, error) {
	if req == nil {
		return nil, fmt.Errorf("open hedge request is required")
	}

	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = strings.ToUpper(strings.TrimSpace(req.Side))

	if req.PortfolioID <= 0 {
		return nil, fmt.Errorf("portfolio id must be positive, got %d", req.PortfolioID)
	}
	if err := utils.ValidateSymbol(req.Symbol); err != nil {
		return nil, err
	}
	if err := utils.ValidateSide(req.Side); err != nil {
		return nil, err
	}
	if err := utils.ValidateNotional(req.NotionalValue); err != nil {
		return nil, err
	}
	if err := utils.ValidateLeverage(req.Leverage, 0); err != nil {
		return nil, err
	}

	market := req.Symbol + monitor.MarketSuffix

	result, err := s.gateway.OpenPosition(ctx, provider.OpenPositionRequest{
		Market:        market,
		Side:          req.Side,
		NotionalValue: req.NotionalValue,
		Leverage:      req.Leverage,
	})
	if err != nil {
		return nil, fmt.Errorf("open position on %s: %w", market, err)
	}
	if !result.Accepted {
		return nil, fmt.Errorf("%w: %s", ErrHedgeRejected, result.RejectReason)
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual"
	}

	hedge := &models.Hedge{
		PortfolioID:   req.PortfolioID,
		Symbol:        req.Symbol,
		Market:        market,
		Side:          req.Side,
		NotionalValue: req.NotionalValue,
		Leverage:      req.Leverage,
		EntryPrice:    result.EntryPrice,
		Status:        models.HedgeStatusActive,
		Reason:        reason,
		IsSimulated:   s.simulation,
	}

	if err := s.hedgeRepo.Create(hedge); err != nil {
		// Позиция уже открыта на шлюзе, но не записана - закрываем обратно
		if closeErr := s.gateway.ClosePosition(ctx, result.OrderID); closeErr != nil {
			s.log.WithError(closeErr).WithField("order_id", result.OrderID).
				Error("failed to close orphaned position after store failure")
		}
		return nil, fmt.Errorf("record hedge: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"hedge_id":     hedge.ID,
		"portfolio_id": hedge.PortfolioID,
		"market":       hedge.Market,
		"side":         hedge.Side,
		"notional":     hedge.NotionalValue,
		"leverage":     hedge.Leverage,
	}).Info("hedge opened manually")

	return hedge, nil
}

// CloseHedge помечает хедж закрытым и останавливает обновления его PnL.
// Закрыть можно только активный хедж.
func (s *HedgeService) CloseHedge(ctx context.Context, id int) (*models.Hedge, error) {
	if id <= 0 {
		return nil, fmt.Errorf("hedge id must be positive, got %d", id)
	}

	if err := s.hedgeRepo.Close(id); err != nil {
		return nil, err
	}

	hedge, err := s.hedgeRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"hedge_id":     hedge.ID,
		"portfolio_id": hedge.PortfolioID,
	}).Info("hedge closed")

	return hedge, nil
}

// GetHedge возвращает хедж по ID
func (s *HedgeService) GetHedge(id int) (*models.Hedge, error) {
	return s.hedgeRepo.GetByID(id)
}

// GetHedges возвращает хеджи портфеля.
// При activeOnly=true закрытые позиции не включаются.
func (s *HedgeService) GetHedges(portfolioID int, activeOnly bool) ([]*models.Hedge, error) {
	if portfolioID <= 0 {
		return nil, fmt.Errorf("portfolio id must be positive, got %d", portfolioID)
	}
	if activeOnly {
		return s.hedgeRepo.GetActiveByPortfolioID(portfolioID)
	}
	return s.hedgeRepo.GetByPortfolioID(portfolioID)
}

// GetAllByStatus возвращает все хеджи с указанным статусом
func (s *HedgeService) GetAllByStatus(status string) ([]*models.Hedge, error) {
	if status != models.HedgeStatusActive && status != models.HedgeStatusClosed {
		return nil, fmt.Errorf("unknown hedge status %q", status)
	}
	return s.hedgeRepo.GetByStatus(status)
}

// CountActive возвращает количество активных хеджей
func (s *HedgeService) CountActive() (int, error) {
	return s.hedgeRepo.CountActive()
}
