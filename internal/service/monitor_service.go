package service

import (
	"context"
	"fmt"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
)

// MonitorService - тонкая обертка над планировщиком мониторинга.
//
// Изолирует HTTP-слой от пакета monitor: хендлеры работают с
// сервисным интерфейсом и не знают про внутренности Engine.
type MonitorService struct {
	engine *monitor.Engine
}

// NewMonitorService создает новый экземпляр MonitorService
func NewMonitorService(engine *monitor.Engine) *MonitorService {
	return &MonitorService{engine: engine}
}

// Start запускает циклы мониторинга. Идемпотентен.
func (s *MonitorService) Start(ctx context.Context) {
	s.engine.Start(ctx)
}

// Stop останавливает циклы мониторинга. Идемпотентен.
func (s *MonitorService) Stop() {
	s.engine.Stop()
}

// IsRunning возвращает состояние планировщика
func (s *MonitorService) IsRunning() bool {
	return s.engine.IsRunning()
}

// Status возвращает снимок состояния планировщика
func (s *MonitorService) Status() *monitor.EngineStatus {
	return s.engine.Status()
}

// EnablePortfolio включает авто-хеджирование портфеля.
// Повторный вызов заменяет политику портфеля.
func (s *MonitorService) EnablePortfolio(cfg *models.AutoHedgeConfig) error {
	return s.engine.EnableForPortfolio(cfg)
}

// DisablePortfolio выключает авто-хеджирование портфеля
func (s *MonitorService) DisablePortfolio(portfolioID int) error {
	if !s.engine.DisableForPortfolio(portfolioID) {
		return fmt.Errorf("portfolio %d is not monitored", portfolioID)
	}
	return nil
}

// GetAssessment возвращает последнюю оценку риска портфеля
func (s *MonitorService) GetAssessment(portfolioID int) (*models.RiskAssessment, error) {
	assessment, ok := s.engine.GetLastAssessment(portfolioID)
	if !ok {
		return nil, fmt.Errorf("no assessment available for portfolio %d", portfolioID)
	}
	return assessment, nil
}

// TriggerAssessment выполняет внеочередную риск-проверку портфеля.
// Для неотслеживаемого портфеля обязателен адрес: оценка выполняется
// разово, без исполнения политики.
func (s *MonitorService) TriggerAssessment(ctx context.Context, portfolioID int, address string) (*models.RiskAssessment, error) {
	return s.engine.TriggerAssessment(ctx, portfolioID, address)
}

// RefreshPnl выполняет внеочередное обновление PnL всех активных хеджей
func (s *MonitorService) RefreshPnl(ctx context.Context) (*monitor.UpdateResult, error) {
	return s.engine.RefreshPnl(ctx)
}
