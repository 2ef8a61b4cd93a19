package models

import "time"

// Hedge представляет защитную позицию с плечом, открытую для
// компенсации риска по существующему активу портфеля.
type Hedge struct {
	ID             int        `json:"id" db:"id"`
	PortfolioID    int        `json:"portfolio_id" db:"portfolio_id"`
	Symbol         string     `json:"symbol" db:"symbol"`                 // базовый актив (BTC, ETH, ...)
	Market         string     `json:"market" db:"market"`                 // рынок исполнения (BTC-PERP)
	Side           string     `json:"side" db:"side"`                     // LONG, SHORT
	NotionalValue  float64    `json:"notional_value" db:"notional_value"` // номинал в USD до плеча
	Leverage       int        `json:"leverage" db:"leverage"`             // плечо >= 1
	EntryPrice     float64    `json:"entry_price" db:"entry_price"`       // неизменяема после создания
	CurrentPrice   *float64   `json:"current_price,omitempty" db:"current_price"` // nil до первого обновления
	CurrentPnl     *float64   `json:"current_pnl,omitempty" db:"current_pnl"`
	Status         string     `json:"status" db:"status"` // active, closed
	Reason         string     `json:"reason" db:"reason"` // причина открытия, [AUTO] для автоматических
	IsSimulated    bool       `json:"is_simulated" db:"is_simulated"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	PriceUpdatedAt *time.Time `json:"price_updated_at,omitempty" db:"price_updated_at"`
}

// Стороны позиции
const (
	SideLong  = "LONG"  // ставка на рост
	SideShort = "SHORT" // ставка на падение
)

// Статусы хеджа
const (
	HedgeStatusActive = "active" // PnL обновляется каждый тик
	HedgeStatusClosed = "closed" // обновления PnL остановлены
)

// AutoReasonPrefix - маркер автоматически созданных хеджей.
// Отличает записи контроллера от хеджей, введенных вручную.
const AutoReasonPrefix = "[AUTO]"

// IsAuto возвращает true, если хедж был открыт контроллером автоматически
func (h *Hedge) IsAuto() bool {
	return len(h.Reason) >= len(AutoReasonPrefix) && h.Reason[:len(AutoReasonPrefix)] == AutoReasonPrefix
}

// ValidSide проверяет, что сторона позиции допустима
func ValidSide(side string) bool {
	return side == SideLong || side == SideShort
}
