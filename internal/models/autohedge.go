package models

// AutoHedgeConfig - политика автоматического хеджирования для одного портфеля.
//
// Хранится в in-memory реестре Engine, ключ - PortfolioID.
// Отсутствие записи в реестре означает, что автоматизация для
// портфеля выключена.
type AutoHedgeConfig struct {
	PortfolioID   int      `json:"portfolio_id"`
	Address       string   `json:"address"`        // адрес владельца для провайдера оценки
	Enabled       bool     `json:"enabled"`
	RiskThreshold int      `json:"risk_threshold"` // шкала 1-10, исполнение при score >= threshold
	MaxLeverage   int      `json:"max_leverage"`   // потолок плеча для авто-хеджей, >= 1
	AllowedAssets []string `json:"allowed_assets"` // пустой список = ничего не разрешено (безопасный дефолт)
}

// Границы риск-шкалы
const (
	RiskThresholdMin = 1
	RiskThresholdMax = 10
)

// AssetAllowed проверяет, разрешен ли актив политикой портфеля.
// Пустой список трактуется как "ничего не разрешено", а не "без ограничений".
func (c *AutoHedgeConfig) AssetAllowed(symbol string) bool {
	for _, s := range c.AllowedAssets {
		if s == symbol {
			return true
		}
	}
	return false
}
