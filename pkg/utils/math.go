package utils

import (
	"math"
)

// math.go - математические утилиты для риск-мониторинга
//
// Назначение:
// Вспомогательные математические функции риск-модели портфелей.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - CalculateHedgePnl: нереализованный PnL хеджевой позиции
// - WeightedDrawdown: средневзвешенная просадка портфеля
// - RMSVolatility: волатильность как RMS суточных изменений
// - ConcentrationPct: доля крупнейшего актива в портфеле
// - PercentChange, Clamp, Abs: общие хелперы

// CalculateHedgePnl расчитывает нереализованный PnL хеджевой позиции.
//
// Формулы:
//   - SHORT: pnl = notional × (entry - current) / entry × leverage
//   - LONG:  pnl = notional × (current - entry) / entry × leverage
//
// Параметры:
//   - side: "SHORT" или "LONG"
//   - entryPrice: цена входа
//   - currentPrice: текущая цена
//   - notional: номинал позиции в USD
//   - leverage: плечо (целое, >= 1)
//
// Возвращает:
//   - PnL в USD
//   - 0 если entryPrice <= 0 или side неизвестен
//
// Примеры:
//   - SHORT, entry=100, current=90, notional=1000, leverage=5: +500
//   - LONG, entry=100, current=110, notional=1000, leverage=3: +300
func CalculateHedgePnl(side string, entryPrice, currentPrice, notional float64, leverage int) float64 {
	if entryPrice <= 0 {
		return 0
	}
	if leverage < 1 {
		leverage = 1
	}

	var mult float64
	switch side {
	case "SHORT":
		// Шорт: прибыль если цена упала
		mult = (entryPrice - currentPrice) / entryPrice
	case "LONG":
		// Лонг: прибыль если цена выросла
		mult = (currentPrice - entryPrice) / entryPrice
	default:
		return 0
	}

	return notional * mult * float64(leverage)
}

// WeightedDrawdown вычисляет средневзвешенную просадку портфеля в процентах.
//
// Учитываются только позиции с отрицательным суточным изменением,
// вес позиции - её доля в общей стоимости портфеля.
//
// Формула:
//
//	drawdown = Σ(|change_i| × value_i) / totalValue, для change_i < 0
//
// Параметры:
//   - changes: суточные изменения позиций в процентах
//   - values: стоимости позиций в USD (та же длина что changes)
//   - totalValue: общая стоимость портфеля
//
// Возвращает:
//   - Просадка в процентах (>= 0)
//   - 0 если входные данные некорректны
func WeightedDrawdown(changes, values []float64, totalValue float64) float64 {
	if totalValue <= 0 || len(changes) == 0 || len(changes) != len(values) {
		return 0
	}

	var sum float64
	for i, chg := range changes {
		if chg >= 0 {
			continue // Растущие позиции просадку не дают
		}
		sum += math.Abs(chg) * values[i]
	}

	return sum / totalValue
}

// RMSVolatility вычисляет волатильность портфеля как RMS суточных изменений.
//
// Формула:
//
//	volatility = sqrt(Σ(change_i²) / N)
//
// Параметры:
//   - changes: суточные изменения позиций в процентах
//
// Возвращает:
//   - Волатильность в процентах (>= 0)
//   - 0 для пустого входа
func RMSVolatility(changes []float64) float64 {
	if len(changes) == 0 {
		return 0
	}

	var sumSquares float64
	for _, chg := range changes {
		sumSquares += chg * chg
	}

	return math.Sqrt(sumSquares / float64(len(changes)))
}

// ConcentrationPct вычисляет долю крупнейшей позиции в портфеле.
//
// Параметры:
//   - values: стоимости позиций в USD
//   - totalValue: общая стоимость портфеля
//
// Возвращает:
//   - Доля крупнейшего актива в процентах (0-100)
//   - 0 если входные данные некорректны
func ConcentrationPct(values []float64, totalValue float64) float64 {
	if totalValue <= 0 || len(values) == 0 {
		return 0
	}

	var maxValue float64
	for _, v := range values {
		if v > maxValue {
			maxValue = v
		}
	}

	return maxValue / totalValue * 100
}

// PercentChange вычисляет относительное изменение в процентах.
//
// Возвращает 0 если base <= 0.
func PercentChange(base, current float64) float64 {
	if base <= 0 {
		return 0
	}
	return (current - base) / base * 100
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ClampInt ограничивает целое значение диапазоном [min, max].
func ClampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
