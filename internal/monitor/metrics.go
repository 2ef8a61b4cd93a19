package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики цикла мониторинга
var (
	// PnlTicksTotal - количество выполненных тиков обновления PnL
	PnlTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgewatch_pnl_ticks_total",
		Help: "Total number of PnL update ticks executed",
	})

	// PnlUpdatesTotal - количество обновленных хеджей
	PnlUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgewatch_pnl_updates_total",
		Help: "Total number of hedge PnL updates written",
	})

	// PnlUpdateErrors - ошибки обновления PnL (по причинам)
	PnlUpdateErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgewatch_pnl_update_errors_total",
		Help: "Total number of PnL update errors by reason",
	}, []string{"reason"})

	// RiskChecksTotal - количество риск-проверок по портфелям
	RiskChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgewatch_risk_checks_total",
		Help: "Total number of portfolio risk assessments",
	})

	// RiskCheckSkipped - пропущенные тики (предыдущая проверка не завершилась)
	RiskCheckSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgewatch_risk_checks_skipped_total",
		Help: "Risk check ticks skipped because the previous one was still running",
	})

	// PortfolioRiskScore - последний risk score портфеля
	PortfolioRiskScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hedgewatch_portfolio_risk_score",
		Help: "Latest computed risk score per portfolio (1-10)",
	}, []string{"portfolio_id"})

	// AutoHedgesOpened - автоматически открытые хеджи
	AutoHedgesOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgewatch_auto_hedges_opened_total",
		Help: "Total number of automatically opened hedges by symbol",
	}, []string{"symbol"})

	// AutoHedgeRejections - отказы исполнения (шлюз/политика)
	AutoHedgeRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hedgewatch_auto_hedge_rejections_total",
		Help: "Auto-hedge executions rejected by reason",
	}, []string{"reason"})

	// MonitorRunning - состояние планировщика (1 = запущен)
	MonitorRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgewatch_monitor_running",
		Help: "Whether the monitoring scheduler is running",
	})
)

// RecordRiskScore записывает risk score портфеля в метрики
func RecordRiskScore(portfolioID string, score int) {
	PortfolioRiskScore.WithLabelValues(portfolioID).Set(float64(score))
}
