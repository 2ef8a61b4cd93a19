package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"hedgewatch/pkg/ratelimit"
)

// ============================================================
// HTTPPriceSource - первичный HTTP источник цен
// ============================================================

// HTTPPriceSource получает цены активов из внешнего REST API.
// Запросы ограничены token bucket rate limiter'ом.
type HTTPPriceSource struct {
	baseURL string
	client  *HTTPClient
	limiter *ratelimit.RateLimiter
}

// NewHTTPPriceSource создает источник цен
func NewHTTPPriceSource(baseURL string, client *HTTPClient, ratePerSec float64) *HTTPPriceSource {
	if client == nil {
		client = GetGlobalHTTPClient()
	}
	return &HTTPPriceSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: ratelimit.NewRateLimiter(ratePerSec, ratePerSec*2),
	}
}

// priceResponse - формат ответа API цен
type priceResponse struct {
	Prices map[string]float64 `json:"prices"`
}

// GetPrice возвращает цену одного актива
func (s *HTTPPriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	price, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// GetPrices возвращает цены для набора активов одним запросом
func (s *HTTPPriceSource) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/v1/prices?symbols=%s",
		s.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var parsed priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrPriceUnavailable, err)
	}

	// Отбрасываем нулевые и отрицательные цены
	result := make(map[string]float64, len(parsed.Prices))
	for symbol, price := range parsed.Prices {
		if price > 0 {
			result[symbol] = price
		}
	}

	return result, nil
}

// ============================================================
// CachedPriceSource - кэширующая обертка с TTL
// ============================================================

type cachedPrice struct {
	price     float64
	fetchedAt time.Time
}

// CachedPriceSource кэширует цены с TTL поверх любого PriceSource.
// Смягчает нагрузку на API при частых PnL тиках.
type CachedPriceSource struct {
	source PriceSource
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedPrice
}

// NewCachedPriceSource создает кэширующую обертку
func NewCachedPriceSource(source PriceSource, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		source: source,
		ttl:    ttl,
		cache:  make(map[string]cachedPrice),
	}
}

// GetPrice возвращает цену из кэша или от источника
func (s *CachedPriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	price, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// GetPrices возвращает цены, запрашивая у источника только устаревшие символы
func (s *CachedPriceSource) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	result := make(map[string]float64, len(symbols))
	var missing []string

	now := time.Now()

	s.mu.RLock()
	for _, symbol := range symbols {
		entry, ok := s.cache[symbol]
		if ok && now.Sub(entry.fetchedAt) < s.ttl {
			result[symbol] = entry.price
		} else {
			missing = append(missing, symbol)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}

	fresh, err := s.source.GetPrices(ctx, missing)
	if err != nil {
		// Частичный результат из кэша лучше чем ничего
		if len(result) > 0 {
			return result, nil
		}
		return nil, err
	}

	s.mu.Lock()
	for symbol, price := range fresh {
		s.cache[symbol] = cachedPrice{price: price, fetchedAt: now}
		result[symbol] = price
	}
	s.mu.Unlock()

	return result, nil
}

// ============================================================
// FallbackPriceSource - цепочка источников с резервом
// ============================================================

// FallbackPriceSource опрашивает источники по порядку:
// следующий источник используется только при полном отказе предыдущего.
type FallbackPriceSource struct {
	sources []PriceSource
}

// NewFallbackPriceSource создает цепочку источников
func NewFallbackPriceSource(sources ...PriceSource) *FallbackPriceSource {
	return &FallbackPriceSource{sources: sources}
}

// GetPrice возвращает цену от первого ответившего источника
func (s *FallbackPriceSource) GetPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := s.GetPrices(ctx, []string{symbol})
	if err != nil {
		return 0, err
	}

	price, ok := prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
	}
	return price, nil
}

// GetPrices опрашивает источники по порядку до первого успеха
func (s *FallbackPriceSource) GetPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	var lastErr error

	for _, source := range s.sources {
		prices, err := source.GetPrices(ctx, symbols)
		if err == nil {
			return prices, nil
		}
		lastErr = err

		// Отмена контекста прекращает цепочку
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if lastErr == nil {
		lastErr = ErrPriceUnavailable
	}
	return nil, lastErr
}

// Интерфейсные проверки
var (
	_ PriceSource = (*HTTPPriceSource)(nil)
	_ PriceSource = (*CachedPriceSource)(nil)
	_ PriceSource = (*FallbackPriceSource)(nil)
)
