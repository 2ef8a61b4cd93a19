package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"hedgewatch/internal/models"
)

// HTTPValuationProvider получает оценку портфеля из внешнего API.
// Это самый дорогой внешний вызов цикла мониторинга, поэтому
// он выполняется только на редком риск-тике.
type HTTPValuationProvider struct {
	baseURL string
	client  *HTTPClient
}

// NewHTTPValuationProvider создает провайдер оценки портфелей
func NewHTTPValuationProvider(baseURL string, client *HTTPClient) *HTTPValuationProvider {
	if client == nil {
		client = GetGlobalHTTPClient()
	}
	return &HTTPValuationProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// valuationResponse - формат ответа API оценки
type valuationResponse struct {
	TotalValue float64 `json:"total_value"`
	Positions  []struct {
		Symbol    string  `json:"symbol"`
		Value     float64 `json:"value"`
		Change24h float64 `json:"change_24h"`
	} `json:"positions"`
}

// GetValuation возвращает текущую оценку портфеля по адресу
func (p *HTTPValuationProvider) GetValuation(ctx context.Context, address string) (*models.PortfolioValuation, error) {
	reqURL := fmt.Sprintf("%s/v1/portfolio/%s/valuation", p.baseURL, url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValuationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrValuationUnavailable, resp.StatusCode)
	}

	var parsed valuationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrValuationUnavailable, err)
	}

	valuation := &models.PortfolioValuation{
		TotalValue: parsed.TotalValue,
		Positions:  make([]models.PortfolioPosition, 0, len(parsed.Positions)),
	}

	for _, pos := range parsed.Positions {
		// Позиции без стоимости не влияют на риск-модель
		if pos.Value <= 0 {
			continue
		}
		valuation.Positions = append(valuation.Positions, models.PortfolioPosition{
			Symbol:    pos.Symbol,
			Value:     pos.Value,
			Change24h: pos.Change24h,
		})
	}

	return valuation, nil
}

var _ ValuationProvider = (*HTTPValuationProvider)(nil)
