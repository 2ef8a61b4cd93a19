package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
	"hedgewatch/internal/provider"
	"hedgewatch/pkg/utils"
)

// HedgeStore - операции хранилища, нужные циклу обновления PnL
type HedgeStore interface {
	GetActive() ([]*models.Hedge, error)
	UpdatePnl(id int, currentPrice, currentPnl float64) error
}

// PnlUpdater - цикл обновления нереализованного PnL активных хеджей.
//
// Цены запрашиваются одной пачкой по уникальным символам, а не по
// позициям: десять хеджей на ETH дают один запрос цены.
type PnlUpdater struct {
	store  HedgeStore
	prices provider.PriceSource
	log    *logrus.Logger
}

// NewPnlUpdater создает цикл обновления PnL
func NewPnlUpdater(store HedgeStore, prices provider.PriceSource, log *logrus.Logger) *PnlUpdater {
	return &PnlUpdater{
		store:  store,
		prices: prices,
		log:    log,
	}
}

// UpdateResult - итог одного тика обновления
type UpdateResult struct {
	Total   int           `json:"total"`   // активных хеджей всего
	Updated int           `json:"updated"` // успешно обновлено
	Skipped int           `json:"skipped"` // цена недоступна, пропущено
	Errors  int           `json:"errors"`  // ошибки записи
	Took    time.Duration `json:"took"`
}

// UpdateAllActivePositions обновляет PnL всех активных хеджей.
//
// Недоступная цена актива - не ошибка: позиция молча пропускается
// и сохраняет последние известные значения до следующего тика.
// Ошибка одной позиции не прерывает обновление остальных.
func (u *PnlUpdater) UpdateAllActivePositions(ctx context.Context) (*UpdateResult, error) {
	start := time.Now()
	PnlTicksTotal.Inc()

	hedges, err := u.store.GetActive()
	if err != nil {
		PnlUpdateErrors.WithLabelValues("store").Inc()
		return nil, err
	}

	result := &UpdateResult{Total: len(hedges)}
	if len(hedges) == 0 {
		result.Took = time.Since(start)
		return result, nil
	}

	// Уникальные символы для пакетного запроса
	seen := make(map[string]bool)
	symbols := make([]string, 0, len(hedges))
	for _, h := range hedges {
		if !seen[h.Symbol] {
			seen[h.Symbol] = true
			symbols = append(symbols, h.Symbol)
		}
	}

	prices, err := u.prices.GetPrices(ctx, symbols)
	if err != nil {
		// Полный отказ источника: весь тик пропускается, значения сохраняются
		PnlUpdateErrors.WithLabelValues("prices").Inc()
		u.log.WithError(err).Warn("price source unavailable, skipping pnl tick")
		result.Skipped = len(hedges)
		result.Took = time.Since(start)
		return result, nil
	}

	for _, h := range hedges {
		price, ok := prices[h.Symbol]
		if !ok {
			result.Skipped++
			continue
		}

		pnl := utils.CalculateHedgePnl(h.Side, h.EntryPrice, price, h.NotionalValue, h.Leverage)

		if err := u.store.UpdatePnl(h.ID, price, pnl); err != nil {
			result.Errors++
			PnlUpdateErrors.WithLabelValues("store").Inc()
			u.log.WithError(err).WithField("hedge_id", h.ID).Error("failed to update hedge pnl")
			continue
		}

		result.Updated++
		PnlUpdatesTotal.Inc()
	}

	result.Took = time.Since(start)

	u.log.WithFields(logrus.Fields{
		"total":   result.Total,
		"updated": result.Updated,
		"skipped": result.Skipped,
		"errors":  result.Errors,
		"took":    result.Took,
	}).Debug("pnl tick finished")

	return result, nil
}
