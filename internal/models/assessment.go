package models

import "time"

// RiskAssessment - снимок риска портфеля на момент времени.
//
// Пересчитывается на каждом тике риск-проверки; хранится только
// последняя оценка для каждого портфеля.
type RiskAssessment struct {
	PortfolioID     int                   `json:"portfolio_id"`
	TotalValue      float64               `json:"total_value"`
	DrawdownPct     float64               `json:"drawdown_pct"`   // взвешенная по стоимости сумма негативных движений
	VolatilityPct   float64               `json:"volatility_pct"` // RMS 24h изменений (упрощенный прокси)
	RiskScore       int                   `json:"risk_score"`     // целое 1-10
	Recommendations []HedgeRecommendation `json:"recommendations"`
	ComputedAt      time.Time             `json:"computed_at"`
}

// HedgeRecommendation - кандидат на автоматическое действие
type HedgeRecommendation struct {
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Reason            string  `json:"reason"`
	SuggestedSize     float64 `json:"suggested_size"` // номинал в USD, > 0
	SuggestedLeverage int     `json:"suggested_leverage"`
	Confidence        float64 `json:"confidence"` // 0.0 - 1.0, глобальный порог принятия 0.7
}

// PortfolioValuation - снимок оценки портфеля от внешнего провайдера
type PortfolioValuation struct {
	TotalValue float64             `json:"total_value"`
	Positions  []PortfolioPosition `json:"positions"`
}

// PortfolioPosition - одна позиция портфеля в снимке оценки
type PortfolioPosition struct {
	Symbol    string  `json:"symbol"`
	Value     float64 `json:"value"`      // текущая стоимость в USD
	Change24h float64 `json:"change_24h"` // изменение за 24ч в процентах
}
