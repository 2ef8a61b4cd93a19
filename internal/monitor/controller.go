package monitor

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
	"hedgewatch/internal/provider"
)

// ConfidenceBar - глобальный порог уверенности для исполнения рекомендации.
// Рекомендации ниже порога записываются в оценку, но не исполняются.
const ConfidenceBar = 0.70

// MarketSuffix - суффикс рынка исполнения для базового актива
const MarketSuffix = "-PERP"

// ControllerStore - операции хранилища, нужные контроллеру
type ControllerStore interface {
	Create(hedge *models.Hedge) error
	GetActiveByPortfolioID(portfolioID int) ([]*models.Hedge, error)
}

// Notifier - приемник уведомлений о действиях контроллера
type Notifier interface {
	Notify(n *models.Notification)
}

// Controller исполняет рекомендации риск-модели: открывает хеджи
// через шлюз и записывает результат в хранилище.
//
// Контроллер никогда не возвращает ошибку наверх: сбой исполнения
// одной рекомендации логируется и не прерывает остальные.
type Controller struct {
	store    ControllerStore
	gateway  provider.ExecutionGateway
	notifier Notifier
	log      *logrus.Logger

	simulation bool // позиции помечаются симулированными
}

// NewController создает контроллер авто-хеджирования
func NewController(store ControllerStore, gateway provider.ExecutionGateway, notifier Notifier, simulation bool, log *logrus.Logger) *Controller {
	return &Controller{
		store:      store,
		gateway:    gateway,
		notifier:   notifier,
		simulation: simulation,
		log:        log,
	}
}

// ExecutionResult - итог исполнения рекомендаций одного портфеля
type ExecutionResult struct {
	Executed int `json:"executed"` // открыто хеджей
	Skipped  int `json:"skipped"`  // отклонено политикой (порог, allow-list, дубль)
	Failed   int `json:"failed"`   // отклонено шлюзом или ошибка записи
}

// ExecutePortfolio исполняет рекомендации оценки для портфеля.
//
// Порядок проверок для каждой рекомендации:
//  1. risk score портфеля >= порога политики
//  2. confidence >= глобального порога 0.70
//  3. актив в allow-list политики (пустой список = ничего не разрешено)
//  4. плечо после ограничения потолком политики положительно
//  5. нет активного хеджа на тот же актив
func (c *Controller) ExecutePortfolio(ctx context.Context, cfg *models.AutoHedgeConfig, assessment *models.RiskAssessment) *ExecutionResult {
	result := &ExecutionResult{}

	if cfg == nil || !cfg.Enabled || assessment == nil {
		return result
	}

	if assessment.RiskScore < cfg.RiskThreshold {
		return result
	}

	// Активные хеджи портфеля: повторный хедж на тот же актив не открывается
	active, err := c.store.GetActiveByPortfolioID(cfg.PortfolioID)
	if err != nil {
		c.log.WithError(err).WithField("portfolio_id", cfg.PortfolioID).
			Error("failed to load active hedges, skipping execution")
		c.notifyError(cfg.PortfolioID, fmt.Sprintf("hedge store unavailable: %v", err))
		result.Failed = len(assessment.Recommendations)
		return result
	}

	hedged := make(map[string]bool, len(active))
	for _, h := range active {
		hedged[h.Symbol] = true
	}

	for _, rec := range assessment.Recommendations {
		leverage := rec.SuggestedLeverage
		if leverage > cfg.MaxLeverage {
			leverage = cfg.MaxLeverage
		}

		switch {
		case rec.Confidence < ConfidenceBar:
			result.Skipped++
			continue

		case !cfg.AssetAllowed(rec.Symbol):
			result.Skipped++
			AutoHedgeRejections.WithLabelValues("asset_not_allowed").Inc()
			c.notifySkip(cfg.PortfolioID,
				fmt.Sprintf("asset %s not in allow-list, recommendation skipped", rec.Symbol))
			continue

		case leverage <= 0:
			result.Skipped++
			AutoHedgeRejections.WithLabelValues("invalid_leverage").Inc()
			c.notifySkip(cfg.PortfolioID,
				fmt.Sprintf("leverage %d for %s invalid after clamping, recommendation skipped",
					rec.SuggestedLeverage, rec.Symbol))
			continue

		case hedged[rec.Symbol]:
			result.Skipped++
			AutoHedgeRejections.WithLabelValues("duplicate").Inc()
			continue
		}

		if err := c.executeOne(ctx, cfg, rec, leverage); err != nil {
			result.Failed++
			continue
		}

		hedged[rec.Symbol] = true
		result.Executed++
	}

	return result
}

// executeOne открывает один хедж по рекомендации.
// Плечо уже ограничено политикой вызывающей стороной.
func (c *Controller) executeOne(ctx context.Context, cfg *models.AutoHedgeConfig, rec models.HedgeRecommendation, leverage int) error {
	market := rec.Symbol + MarketSuffix

	openResult, err := c.gateway.OpenPosition(ctx, provider.OpenPositionRequest{
		Market:        market,
		Side:          rec.Side,
		NotionalValue: rec.SuggestedSize,
		Leverage:      leverage,
	})
	if err != nil {
		AutoHedgeRejections.WithLabelValues("gateway_error").Inc()
		c.log.WithError(err).WithField("market", market).Error("gateway call failed")
		c.notifyExecFail(cfg.PortfolioID,
			fmt.Sprintf("gateway unavailable for %s: %v", market, err))
		return err
	}

	if !openResult.Accepted {
		AutoHedgeRejections.WithLabelValues("gateway_rejected").Inc()
		c.notifyExecFail(cfg.PortfolioID,
			fmt.Sprintf("gateway rejected %s %s: %s", rec.Side, market, openResult.RejectReason))
		return fmt.Errorf("%w: %s", provider.ErrGatewayRejected, openResult.RejectReason)
	}

	hedge := &models.Hedge{
		PortfolioID:   cfg.PortfolioID,
		Symbol:        rec.Symbol,
		Market:        market,
		Side:          rec.Side,
		NotionalValue: rec.SuggestedSize,
		Leverage:      leverage,
		EntryPrice:    openResult.EntryPrice,
		Status:        models.HedgeStatusActive,
		Reason:        fmt.Sprintf("%s %s", models.AutoReasonPrefix, rec.Reason),
		IsSimulated:   c.simulation,
	}

	if err := c.store.Create(hedge); err != nil {
		// Позиция открыта, но запись не удалась: громкая ошибка, позицию
		// закрываем чтобы не потерять учет
		c.log.WithError(err).WithField("order_id", openResult.OrderID).
			Error("hedge persisted failed, closing gateway position")
		c.notifyError(cfg.PortfolioID,
			fmt.Sprintf("failed to record hedge for %s, position closed: %v", market, err))

		if closeErr := c.gateway.ClosePosition(ctx, openResult.OrderID); closeErr != nil {
			c.log.WithError(closeErr).WithField("order_id", openResult.OrderID).
				Error("failed to close orphaned gateway position")
		}
		return err
	}

	AutoHedgesOpened.WithLabelValues(rec.Symbol).Inc()
	c.log.WithFields(logrus.Fields{
		"portfolio_id": cfg.PortfolioID,
		"hedge_id":     hedge.ID,
		"market":       market,
		"notional":     rec.SuggestedSize,
		"leverage":     leverage,
	}).Info("auto-hedge opened")

	c.notify(cfg.PortfolioID, models.NotificationTypeAutoHedge, models.SeverityInfo,
		fmt.Sprintf("auto-hedge opened: %s %s $%.2f x%d (%s)",
			rec.Side, market, rec.SuggestedSize, leverage, rec.Reason))

	return nil
}

func (c *Controller) notify(portfolioID int, notifType, severity, message string) {
	if c.notifier == nil {
		return
	}
	id := portfolioID
	c.notifier.Notify(&models.Notification{
		PortfolioID: &id,
		Type:        notifType,
		Severity:    severity,
		Message:     message,
	})
}

func (c *Controller) notifySkip(portfolioID int, message string) {
	c.notify(portfolioID, models.NotificationTypeSkip, models.SeverityWarn, message)
}

func (c *Controller) notifyExecFail(portfolioID int, message string) {
	c.notify(portfolioID, models.NotificationTypeExecFail, models.SeverityWarn, message)
}

func (c *Controller) notifyError(portfolioID int, message string) {
	c.notify(portfolioID, models.NotificationTypeError, models.SeverityError, message)
}
