// Package monitor реализует фоновый цикл риск-мониторинга портфелей:
// обновление PnL хеджей, оценку риска и автоматическое хеджирование.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
	"hedgewatch/internal/provider"
	"hedgewatch/pkg/utils"
)

// Publisher - приемник событий мониторинга для real-time подписчиков
// (websocket hub). Nil publisher допустим.
type Publisher interface {
	PublishAssessment(assessment *models.RiskAssessment)
	PublishPnlTick(result *UpdateResult)
	PublishStatus(status *EngineStatus)
}

// Config - частоты планировщика
type Config struct {
	PnlUpdateFreq time.Duration // тик обновления PnL (короткий)
	RiskCheckFreq time.Duration // тик риск-проверки (длинный)
}

// portfolioState - состояние одного отслеживаемого портфеля
type portfolioState struct {
	config         *models.AutoHedgeConfig
	lastAssessment *models.RiskAssessment

	// inFlight защищает от наложения риск-проверок одного портфеля:
	// если предыдущая проверка еще идет, тик пропускается
	inFlight int32
}

// Engine - планировщик мониторинга с двумя независимыми циклами.
//
// Циклы работают на отдельных тикерах: PnL тик короткий и дешевый,
// риск-тик редкий и включает внешнюю оценку портфеля. Тики разных
// циклов могут пересекаться во времени, это допустимо.
type Engine struct {
	updater    *PnlUpdater
	assessor   *Assessor
	controller *Controller
	valuation  provider.ValuationProvider
	notifier   Notifier
	publisher  Publisher
	log        *logrus.Logger
	cfg        Config

	mu         sync.RWMutex
	portfolios map[int]*portfolioState
	running    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup

	lastPnlTick  atomic.Value // time.Time
	lastRiskTick atomic.Value // time.Time
}

// NewEngine создает планировщик мониторинга
func NewEngine(
	updater *PnlUpdater,
	assessor *Assessor,
	controller *Controller,
	valuation provider.ValuationProvider,
	notifier Notifier,
	publisher Publisher,
	cfg Config,
	log *logrus.Logger,
) *Engine {
	return &Engine{
		updater:    updater,
		assessor:   assessor,
		controller: controller,
		valuation:  valuation,
		notifier:   notifier,
		publisher:  publisher,
		log:        log,
		cfg:        cfg,
		portfolios: make(map[int]*portfolioState),
	}
}

// ============================================================
// Управление жизненным циклом
// ============================================================

// Start запускает оба цикла мониторинга.
// Повторный вызов на запущенном планировщике - no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()

	MonitorRunning.Set(1)
	e.log.WithFields(logrus.Fields{
		"pnl_freq":  e.cfg.PnlUpdateFreq,
		"risk_freq": e.cfg.RiskCheckFreq,
	}).Info("monitoring started")

	e.wg.Add(2)
	go e.pnlLoop(ctx, stopCh)
	go e.riskLoop(ctx, stopCh)

	e.publishStatus()
}

// Stop останавливает циклы и дожидается завершения текущих тиков.
// Повторный вызов на остановленном планировщике - no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()

	MonitorRunning.Set(0)
	e.log.Info("monitoring stopped")
	e.publishStatus()
}

// IsRunning возвращает состояние планировщика
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// pnlLoop - цикл обновления PnL. Первое обновление выполняется
// сразу при старте, не дожидаясь первого тика.
func (e *Engine) pnlLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer e.wg.Done()

	e.runPnlTick(ctx)

	ticker := time.NewTicker(e.cfg.PnlUpdateFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			e.runPnlTick(ctx)
		}
	}
}

// riskLoop - цикл риск-проверки портфелей
func (e *Engine) riskLoop(ctx context.Context, stopCh <-chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.RiskCheckFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			e.runRiskTick(ctx)
		}
	}
}

func (e *Engine) runPnlTick(ctx context.Context) {
	result, err := e.updater.UpdateAllActivePositions(ctx)
	e.lastPnlTick.Store(time.Now())

	if err != nil {
		e.log.WithError(err).Error("pnl tick failed")
		return
	}

	if e.publisher != nil && result.Updated > 0 {
		e.publisher.PublishPnlTick(result)
	}
}

// runRiskTick проверяет все отслеживаемые портфели параллельно.
// Портфель с незавершенной предыдущей проверкой пропускается.
func (e *Engine) runRiskTick(ctx context.Context) {
	e.lastRiskTick.Store(time.Now())

	// Короткий RLock для копии, проверки идут без блокировки реестра
	type checkTarget struct {
		st  *portfolioState
		cfg *models.AutoHedgeConfig
	}

	e.mu.RLock()
	targets := make([]checkTarget, 0, len(e.portfolios))
	for _, st := range e.portfolios {
		targets = append(targets, checkTarget{st: st, cfg: st.config})
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	for _, target := range targets {
		if !target.cfg.Enabled {
			continue
		}

		if !atomic.CompareAndSwapInt32(&target.st.inFlight, 0, 1) {
			RiskCheckSkipped.Inc()
			e.log.WithField("portfolio_id", target.cfg.PortfolioID).
				Warn("risk check still running, tick skipped")
			if e.notifier != nil {
				id := target.cfg.PortfolioID
				e.notifier.Notify(&models.Notification{
					PortfolioID: &id,
					Type:        models.NotificationTypeSkip,
					Severity:    models.SeverityWarn,
					Message:     fmt.Sprintf("risk check for portfolio %d skipped: previous run still in progress", id),
				})
			}
			continue
		}

		wg.Add(1)
		go func(st *portfolioState, cfg *models.AutoHedgeConfig) {
			defer wg.Done()
			defer atomic.StoreInt32(&st.inFlight, 0)
			e.assessAndExecute(ctx, st, cfg)
		}(target.st, target.cfg)
	}
	wg.Wait()
}

// assessAndExecute выполняет полную риск-проверку одного портфеля.
// Любая ошибка изолируется внутри: цикл мониторинга не падает.
func (e *Engine) assessAndExecute(ctx context.Context, st *portfolioState, cfg *models.AutoHedgeConfig) {
	RiskChecksTotal.Inc()

	valuation, err := e.valuation.GetValuation(ctx, cfg.Address)
	if err != nil {
		e.log.WithError(err).WithField("portfolio_id", cfg.PortfolioID).
			Error("portfolio valuation failed")
		if e.notifier != nil {
			id := cfg.PortfolioID
			e.notifier.Notify(&models.Notification{
				PortfolioID: &id,
				Type:        models.NotificationTypeError,
				Severity:    models.SeverityError,
				Message:     fmt.Sprintf("valuation failed for portfolio %d: %v", id, err),
			})
		}
		return
	}

	assessment := e.assessor.Assess(cfg.PortfolioID, valuation)

	e.mu.Lock()
	st.lastAssessment = assessment
	e.mu.Unlock()

	RecordRiskScore(strconv.Itoa(cfg.PortfolioID), assessment.RiskScore)

	if e.publisher != nil {
		e.publisher.PublishAssessment(assessment)
	}

	e.controller.ExecutePortfolio(ctx, cfg, assessment)
}

// ============================================================
// Реестр портфелей
// ============================================================

// EnableForPortfolio включает мониторинг портфеля с данной политикой.
// Повторный вызов для того же портфеля заменяет политику.
func (e *Engine) EnableForPortfolio(cfg *models.AutoHedgeConfig) error {
	if cfg == nil {
		return fmt.Errorf("auto-hedge config is required")
	}
	if cfg.PortfolioID <= 0 {
		return fmt.Errorf("portfolio id must be positive, got %d", cfg.PortfolioID)
	}
	if err := utils.ValidateAddress(cfg.Address); err != nil {
		return err
	}
	if cfg.RiskThreshold < models.RiskThresholdMin || cfg.RiskThreshold > models.RiskThresholdMax {
		return fmt.Errorf("risk threshold must be in [%d, %d], got %d",
			models.RiskThresholdMin, models.RiskThresholdMax, cfg.RiskThreshold)
	}
	if cfg.MaxLeverage < 1 {
		return fmt.Errorf("max leverage must be at least 1, got %d", cfg.MaxLeverage)
	}
	for _, symbol := range cfg.AllowedAssets {
		if err := utils.ValidateSymbol(symbol); err != nil {
			return err
		}
	}

	cfg.Enabled = true

	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.portfolios[cfg.PortfolioID]; ok {
		st.config = cfg
	} else {
		e.portfolios[cfg.PortfolioID] = &portfolioState{config: cfg}
	}

	e.log.WithFields(logrus.Fields{
		"portfolio_id":   cfg.PortfolioID,
		"risk_threshold": cfg.RiskThreshold,
		"max_leverage":   cfg.MaxLeverage,
		"allowed_assets": cfg.AllowedAssets,
	}).Info("portfolio monitoring enabled")

	return nil
}

// DisableForPortfolio выключает мониторинг портфеля.
// Возвращает false если портфель не отслеживался.
func (e *Engine) DisableForPortfolio(portfolioID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.portfolios[portfolioID]; !ok {
		return false
	}

	delete(e.portfolios, portfolioID)
	e.log.WithField("portfolio_id", portfolioID).Info("portfolio monitoring disabled")
	return true
}

// GetLastAssessment возвращает последнюю оценку риска портфеля
func (e *Engine) GetLastAssessment(portfolioID int) (*models.RiskAssessment, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st, ok := e.portfolios[portfolioID]
	if !ok || st.lastAssessment == nil {
		return nil, false
	}
	return st.lastAssessment, true
}

// TriggerAssessment выполняет внеочередную риск-проверку портфеля.
// Для отслеживаемого портфеля адрес берется из зарегистрированной
// политики и рекомендации исполняются как в плановом тике. Для
// неотслеживаемого портфеля обязателен адрес: выполняется разовая
// оценка без исполнения политики.
// Работает и при остановленном планировщике.
func (e *Engine) TriggerAssessment(ctx context.Context, portfolioID int, address string) (*models.RiskAssessment, error) {
	e.mu.RLock()
	st, ok := e.portfolios[portfolioID]
	var cfg *models.AutoHedgeConfig
	if ok {
		cfg = st.config
	}
	e.mu.RUnlock()

	if !ok {
		return e.assessOnce(ctx, portfolioID, address)
	}

	if !atomic.CompareAndSwapInt32(&st.inFlight, 0, 1) {
		return nil, fmt.Errorf("risk check for portfolio %d already in progress", portfolioID)
	}
	defer atomic.StoreInt32(&st.inFlight, 0)

	e.assessAndExecute(ctx, st, cfg)

	e.mu.RLock()
	defer e.mu.RUnlock()
	if st.lastAssessment == nil {
		return nil, fmt.Errorf("assessment for portfolio %d failed", portfolioID)
	}
	return st.lastAssessment, nil
}

// assessOnce - разовая оценка неотслеживаемого портфеля по адресу.
// Оценка не сохраняется в реестре и не запускает авто-хеджирование.
func (e *Engine) assessOnce(ctx context.Context, portfolioID int, address string) (*models.RiskAssessment, error) {
	if err := utils.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("portfolio %d is not monitored and no address given: %w", portfolioID, err)
	}

	valuation, err := e.valuation.GetValuation(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("valuation failed for portfolio %d: %w", portfolioID, err)
	}

	assessment := e.assessor.Assess(portfolioID, valuation)
	if e.publisher != nil {
		e.publisher.PublishAssessment(assessment)
	}
	return assessment, nil
}

// RefreshPnl выполняет внеочередное обновление PnL всех хеджей
func (e *Engine) RefreshPnl(ctx context.Context) (*UpdateResult, error) {
	return e.updater.UpdateAllActivePositions(ctx)
}

// ============================================================
// Статус
// ============================================================

// EngineStatus - снимок состояния планировщика
type EngineStatus struct {
	Running           bool       `json:"running"`
	EnabledPortfolios []int      `json:"enabled_portfolios"`
	PnlUpdateFreq     string     `json:"pnl_update_freq"`
	RiskCheckFreq     string     `json:"risk_check_freq"`
	LastPnlTick       *time.Time `json:"last_pnl_tick,omitempty"`
	LastRiskTick      *time.Time `json:"last_risk_tick,omitempty"`
}

// Status возвращает снимок состояния планировщика
func (e *Engine) Status() *EngineStatus {
	e.mu.RLock()
	enabled := make([]int, 0, len(e.portfolios))
	for id, st := range e.portfolios {
		if st.config.Enabled {
			enabled = append(enabled, id)
		}
	}
	status := &EngineStatus{
		Running:           e.running,
		EnabledPortfolios: enabled,
		PnlUpdateFreq:     e.cfg.PnlUpdateFreq.String(),
		RiskCheckFreq:     e.cfg.RiskCheckFreq.String(),
	}
	e.mu.RUnlock()

	sort.Ints(status.EnabledPortfolios)

	if v, ok := e.lastPnlTick.Load().(time.Time); ok {
		status.LastPnlTick = &v
	}
	if v, ok := e.lastRiskTick.Load().(time.Time); ok {
		status.LastRiskTick = &v
	}

	return status
}

func (e *Engine) publishStatus() {
	if e.publisher != nil {
		e.publisher.PublishStatus(e.Status())
	}
}
