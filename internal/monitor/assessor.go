package monitor

import (
	"fmt"
	"sort"
	"time"

	"hedgewatch/internal/models"
	"hedgewatch/pkg/utils"
)

// Константы риск-модели
const (
	// Пороги шкалы risk score
	drawdownModerate   = 2.0 // просадка выше - умеренный риск
	drawdownSevere     = 5.0 // просадка выше - серьезный риск
	volatilityModerate = 3.0
	volatilitySevere   = 5.0

	// Порог суточного падения позиции для рекомендации хеджа
	drawdownTriggerPct = -3.0

	// Доля стоимости падающей позиции, закрываемая шортом
	drawdownHedgeFraction = 0.30

	// Целевая концентрация: размер хеджа выводит долю актива к этому уровню
	concentrationTargetPct = 30.0

	// Плечи рекомендаций
	drawdownHedgeLeverage      = 3
	concentrationHedgeLeverage = 2

	// Confidence рекомендации по концентрации
	concentrationConfidence = 0.70
)

// Assessor - чистый вычислитель риска портфеля.
//
// Не делает внешних вызовов и не пишет в БД: на вход снимок оценки
// портфеля, на выход числовой риск и рекомендации. Одинаковый вход
// всегда дает одинаковый выход.
type Assessor struct {
	minHedgeSize     float64 // минимальная стоимость позиции для рекомендации (USD)
	concentrationPct float64 // потолок концентрации одного актива (%)
}

// NewAssessor создает вычислитель риска
func NewAssessor(minHedgeSize, concentrationPct float64) *Assessor {
	return &Assessor{
		minHedgeSize:     minHedgeSize,
		concentrationPct: concentrationPct,
	}
}

// Assess вычисляет риск портфеля по снимку оценки.
//
// Пустой портфель дает минимальный риск (score 1) без рекомендаций.
func (a *Assessor) Assess(portfolioID int, valuation *models.PortfolioValuation) *models.RiskAssessment {
	assessment := &models.RiskAssessment{
		PortfolioID:     portfolioID,
		RiskScore:       models.RiskThresholdMin,
		Recommendations: []models.HedgeRecommendation{},
		ComputedAt:      time.Now(),
	}

	if valuation == nil || valuation.TotalValue <= 0 || len(valuation.Positions) == 0 {
		return assessment
	}

	assessment.TotalValue = valuation.TotalValue

	changes := make([]float64, len(valuation.Positions))
	values := make([]float64, len(valuation.Positions))
	for i, pos := range valuation.Positions {
		changes[i] = pos.Change24h
		values[i] = pos.Value
	}

	assessment.DrawdownPct = utils.WeightedDrawdown(changes, values, valuation.TotalValue)
	assessment.VolatilityPct = utils.RMSVolatility(changes)
	assessment.RiskScore = scoreRisk(assessment.DrawdownPct, assessment.VolatilityPct)

	assessment.Recommendations = a.recommend(valuation)

	return assessment
}

// scoreRisk переводит просадку и волатильность в шкалу 1-10
func scoreRisk(drawdownPct, volatilityPct float64) int {
	score := 1

	if drawdownPct > drawdownModerate {
		score += 2
	}
	if drawdownPct > drawdownSevere {
		score += 2
	}
	if volatilityPct > volatilityModerate {
		score += 2
	}
	if volatilityPct > volatilitySevere {
		score += 2
	}

	return utils.ClampInt(score, models.RiskThresholdMin, models.RiskThresholdMax)
}

// recommend строит список рекомендаций по двум сигналам:
// суточная просадка отдельных позиций и концентрация портфеля
func (a *Assessor) recommend(valuation *models.PortfolioValuation) []models.HedgeRecommendation {
	recs := []models.HedgeRecommendation{}

	// Сигнал 1: заметное суточное падение крупной позиции
	for _, pos := range valuation.Positions {
		if pos.Change24h >= drawdownTriggerPct {
			continue
		}
		if pos.Value <= a.minHedgeSize {
			continue
		}

		confidence := utils.Min(0.5+utils.Abs(pos.Change24h)/20, 0.95)

		recs = append(recs, models.HedgeRecommendation{
			Symbol:            pos.Symbol,
			Side:              models.SideShort,
			Reason:            fmt.Sprintf("drawdown %.1f%% on %s", pos.Change24h, pos.Symbol),
			SuggestedSize:     pos.Value * drawdownHedgeFraction,
			SuggestedLeverage: drawdownHedgeLeverage,
			Confidence:        confidence,
		})
	}

	// Сигнал 2: чрезмерная концентрация отдельных активов.
	// Проверяется каждая позиция: два перекошенных актива дают две рекомендации
	for _, pos := range valuation.Positions {
		concentration := pos.Value / valuation.TotalValue * 100
		if concentration <= a.concentrationPct {
			continue
		}

		// Размер считается от стоимости самой позиции и выводит
		// ее долю к целевому уровню
		size := pos.Value * (concentration - concentrationTargetPct) / 100
		if size <= 0 {
			continue
		}

		recs = append(recs, models.HedgeRecommendation{
			Symbol:            pos.Symbol,
			Side:              models.SideShort,
			Reason:            fmt.Sprintf("concentration %.1f%% in %s", concentration, pos.Symbol),
			SuggestedSize:     size,
			SuggestedLeverage: concentrationHedgeLeverage,
			Confidence:        concentrationConfidence,
		})
	}

	// Детерминированный порядок для одинакового входа
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Symbol != recs[j].Symbol {
			return recs[i].Symbol < recs[j].Symbol
		}
		return recs[i].Reason < recs[j].Reason
	})

	return recs
}
