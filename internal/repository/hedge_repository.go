package repository

import (
	"database/sql"
	"errors"
	"time"

	"hedgewatch/internal/models"
)

// Ошибки репозитория хеджей
var (
	ErrHedgeNotFound = errors.New("hedge not found")
)

// HedgeRepository - работа с таблицей hedges
type HedgeRepository struct {
	db *sql.DB
}

// NewHedgeRepository создает новый экземпляр репозитория
func NewHedgeRepository(db *sql.DB) *HedgeRepository {
	return &HedgeRepository{db: db}
}

// Create создает запись о хеджевой позиции
func (r *HedgeRepository) Create(hedge *models.Hedge) error {
	query := `
		INSERT INTO hedges (portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	hedge.CreatedAt = time.Now()

	err := r.db.QueryRow(
		query,
		hedge.PortfolioID,
		hedge.Symbol,
		hedge.Market,
		hedge.Side,
		hedge.NotionalValue,
		hedge.Leverage,
		hedge.EntryPrice,
		hedge.CurrentPrice,
		hedge.CurrentPnl,
		hedge.Status,
		hedge.Reason,
		hedge.IsSimulated,
		hedge.CreatedAt,
		hedge.PriceUpdatedAt,
	).Scan(&hedge.ID)

	if err != nil {
		return err
	}

	return nil
}

// GetByID возвращает хедж по ID
func (r *HedgeRepository) GetByID(id int) (*models.Hedge, error) {
	query := `
		SELECT id, portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at
		FROM hedges
		WHERE id = $1`

	hedge := &models.Hedge{}
	err := r.db.QueryRow(query, id).Scan(
		&hedge.ID,
		&hedge.PortfolioID,
		&hedge.Symbol,
		&hedge.Market,
		&hedge.Side,
		&hedge.NotionalValue,
		&hedge.Leverage,
		&hedge.EntryPrice,
		&hedge.CurrentPrice,
		&hedge.CurrentPnl,
		&hedge.Status,
		&hedge.Reason,
		&hedge.IsSimulated,
		&hedge.CreatedAt,
		&hedge.PriceUpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHedgeNotFound
		}
		return nil, err
	}

	return hedge, nil
}

// GetActive возвращает все активные хеджи (для цикла обновления PnL)
func (r *HedgeRepository) GetActive() ([]*models.Hedge, error) {
	return r.queryHedges(`
		SELECT id, portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at
		FROM hedges
		WHERE status = $1
		ORDER BY created_at DESC`, models.HedgeStatusActive)
}

// GetByPortfolioID возвращает все хеджи портфеля
func (r *HedgeRepository) GetByPortfolioID(portfolioID int) ([]*models.Hedge, error) {
	return r.queryHedges(`
		SELECT id, portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at
		FROM hedges
		WHERE portfolio_id = $1
		ORDER BY created_at DESC`, portfolioID)
}

// GetActiveByPortfolioID возвращает активные хеджи портфеля
func (r *HedgeRepository) GetActiveByPortfolioID(portfolioID int) ([]*models.Hedge, error) {
	return r.queryHedges(`
		SELECT id, portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at
		FROM hedges
		WHERE portfolio_id = $1 AND status = $2
		ORDER BY created_at DESC`, portfolioID, models.HedgeStatusActive)
}

// GetByStatus возвращает хеджи с определенным статусом
func (r *HedgeRepository) GetByStatus(status string) ([]*models.Hedge, error) {
	return r.queryHedges(`
		SELECT id, portfolio_id, symbol, market, side, notional_value, leverage, entry_price, current_price, current_pnl, status, reason, is_simulated, created_at, price_updated_at
		FROM hedges
		WHERE status = $1
		ORDER BY created_at DESC`, status)
}

// queryHedges выполняет запрос возвращающий список хеджей
func (r *HedgeRepository) queryHedges(query string, args ...interface{}) ([]*models.Hedge, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hedges []*models.Hedge
	for rows.Next() {
		hedge := &models.Hedge{}
		err := rows.Scan(
			&hedge.ID,
			&hedge.PortfolioID,
			&hedge.Symbol,
			&hedge.Market,
			&hedge.Side,
			&hedge.NotionalValue,
			&hedge.Leverage,
			&hedge.EntryPrice,
			&hedge.CurrentPrice,
			&hedge.CurrentPnl,
			&hedge.Status,
			&hedge.Reason,
			&hedge.IsSimulated,
			&hedge.CreatedAt,
			&hedge.PriceUpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		hedges = append(hedges, hedge)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return hedges, nil
}

// UpdatePnl обновляет текущую цену и нереализованный PnL хеджа
func (r *HedgeRepository) UpdatePnl(id int, currentPrice, currentPnl float64) error {
	query := `
		UPDATE hedges
		SET current_price = $1, current_pnl = $2, price_updated_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, currentPrice, currentPnl, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrHedgeNotFound
	}

	return nil
}

// Close помечает хедж закрытым
// Закрывать можно только активный хедж, повторное закрытие дает ErrHedgeNotFound
func (r *HedgeRepository) Close(id int) error {
	query := `
		UPDATE hedges
		SET status = $1
		WHERE id = $2 AND status = $3`

	result, err := r.db.Exec(query, models.HedgeStatusClosed, id, models.HedgeStatusActive)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrHedgeNotFound
	}

	return nil
}

// CountActive возвращает количество активных хеджей
func (r *HedgeRepository) CountActive() (int, error) {
	query := `SELECT COUNT(*) FROM hedges WHERE status = $1`

	var count int
	err := r.db.QueryRow(query, models.HedgeStatusActive).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountActiveByPortfolioID возвращает количество активных хеджей портфеля
func (r *HedgeRepository) CountActiveByPortfolioID(portfolioID int) (int, error) {
	query := `SELECT COUNT(*) FROM hedges WHERE portfolio_id = $1 AND status = $2`

	var count int
	err := r.db.QueryRow(query, portfolioID, models.HedgeStatusActive).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}
