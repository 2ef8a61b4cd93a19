// Package provider содержит адаптеры внешних источников данных:
// цены активов, оценка портфелей и шлюз исполнения позиций.
package provider

import (
	"context"
	"errors"

	"hedgewatch/internal/models"
)

// Ошибки провайдеров
var (
	// ErrPriceUnavailable - цена актива недоступна ни в одном источнике.
	// Цикл обновления PnL при этой ошибке молча пропускает позицию,
	// сохраняя последние известные значения.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrValuationUnavailable - провайдер оценки портфеля недоступен
	ErrValuationUnavailable = errors.New("portfolio valuation unavailable")

	// ErrGatewayRejected - шлюз исполнения отклонил позицию
	ErrGatewayRejected = errors.New("execution gateway rejected position")
)

// PriceSource - источник текущих цен активов
type PriceSource interface {
	// GetPrice возвращает текущую цену одного актива
	GetPrice(ctx context.Context, symbol string) (float64, error)

	// GetPrices возвращает цены для набора активов одной пачкой.
	// Недоступные символы отсутствуют в результате, это не ошибка:
	// ошибка возвращается только при полном отказе источника.
	GetPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// ValuationProvider - внешняя оценка состава и стоимости портфеля
type ValuationProvider interface {
	// GetValuation возвращает текущую оценку портфеля по адресу
	GetValuation(ctx context.Context, address string) (*models.PortfolioValuation, error)
}

// OpenPositionRequest - запрос на открытие позиции через шлюз
type OpenPositionRequest struct {
	Market        string  `json:"market"` // рынок исполнения (ETH-PERP)
	Side          string  `json:"side"`   // LONG, SHORT
	NotionalValue float64 `json:"notional_value"`
	Leverage      int     `json:"leverage"`
	ClientOrderID string  `json:"client_order_id"` // uuid для идемпотентности
}

// OpenResult - результат открытия позиции
type OpenResult struct {
	Accepted     bool    `json:"accepted"`
	OrderID      string  `json:"order_id,omitempty"`      // id позиции на стороне шлюза
	EntryPrice   float64 `json:"entry_price,omitempty"`   // фактическая цена входа
	RejectReason string  `json:"reject_reason,omitempty"` // заполнен при Accepted=false
}

// ExecutionGateway - шлюз исполнения хеджевых позиций
type ExecutionGateway interface {
	// OpenPosition открывает позицию. Отклонение шлюзом возвращается
	// как OpenResult{Accepted: false}, а не как error: ошибка означает
	// сетевой сбой или недоступность шлюза.
	OpenPosition(ctx context.Context, req OpenPositionRequest) (*OpenResult, error)

	// ClosePosition закрывает позицию по id шлюза
	ClosePosition(ctx context.Context, orderID string) error
}
