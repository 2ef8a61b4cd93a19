package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"hedgewatch/pkg/retry"
)

// HTTPExecutionGateway - HTTP адаптер шлюза исполнения позиций.
//
// Сетевые сбои retry'ятся внутри адаптера (экспоненциальный backoff),
// чтобы ядро мониторинга не содержало retry логики. Отклонение позиции
// шлюзом retry'ем не является и возвращается как Accepted=false.
type HTTPExecutionGateway struct {
	baseURL  string
	apiKey   string
	client   *HTTPClient
	retryCfg retry.Config
}

// NewHTTPExecutionGateway создает адаптер шлюза.
// apiKey передается уже расшифрованным (см. pkg/crypto).
func NewHTTPExecutionGateway(baseURL, apiKey string, client *HTTPClient) *HTTPExecutionGateway {
	if client == nil {
		client = GetGlobalHTTPClient()
	}

	cfg := retry.NetworkConfig()
	cfg.RetryIf = isRetryableGatewayError

	return &HTTPExecutionGateway{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		client:   client,
		retryCfg: cfg,
	}
}

// permanentGatewayError - ошибка которую повторять бессмысленно (4xx)
type permanentGatewayError struct {
	status int
}

func (e *permanentGatewayError) Error() string {
	return fmt.Sprintf("gateway returned status %d", e.status)
}

func isRetryableGatewayError(err error) bool {
	if _, ok := err.(*permanentGatewayError); ok {
		return false
	}
	return true
}

// openResponse - формат ответа шлюза
type openResponse struct {
	Status       string  `json:"status"` // accepted | rejected
	OrderID      string  `json:"order_id"`
	EntryPrice   float64 `json:"entry_price"`
	RejectReason string  `json:"reject_reason"`
}

// OpenPosition открывает позицию через шлюз
func (g *HTTPExecutionGateway) OpenPosition(ctx context.Context, req OpenPositionRequest) (*OpenResult, error) {
	// uuid как client order id: повтор запроса при retry не создаст дубль
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.New().String()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	return retry.DoWithResult(ctx, func() (*OpenResult, error) {
		return g.doOpen(ctx, body)
	}, g.retryCfg)
}

func (g *HTTPExecutionGateway) doOpen(ctx context.Context, body []byte) (*OpenResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/positions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return nil, &permanentGatewayError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var parsed openResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("gateway response decode error: %w", err)
	}

	result := &OpenResult{
		Accepted:     parsed.Status == "accepted",
		OrderID:      parsed.OrderID,
		EntryPrice:   parsed.EntryPrice,
		RejectReason: parsed.RejectReason,
	}

	return result, nil
}

// ClosePosition закрывает позицию по id шлюза
func (g *HTTPExecutionGateway) ClosePosition(ctx context.Context, orderID string) error {
	return retry.Do(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete,
			fmt.Sprintf("%s/v1/positions/%s", g.baseURL, orderID), nil)
		if err != nil {
			return err
		}
		httpReq.Header.Set("X-API-Key", g.apiKey)

		resp, err := g.client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return &permanentGatewayError{status: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}

		return nil
	}, g.retryCfg)
}

// SimulatedGateway - шлюз для режима симуляции: позиции принимаются
// локально без внешних вызовов. Используется при SIMULATION_MODE=true.
type SimulatedGateway struct {
	entryPrices PriceSource // источник цены входа для симулированных позиций
}

// NewSimulatedGateway создает симуляционный шлюз
func NewSimulatedGateway(prices PriceSource) *SimulatedGateway {
	return &SimulatedGateway{entryPrices: prices}
}

// OpenPosition принимает позицию без исполнения
func (g *SimulatedGateway) OpenPosition(ctx context.Context, req OpenPositionRequest) (*OpenResult, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.New().String()
	}

	// Цена входа - текущая цена базового актива
	symbol := strings.TrimSuffix(req.Market, "-PERP")
	entryPrice, err := g.entryPrices.GetPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	return &OpenResult{
		Accepted:   true,
		OrderID:    "sim-" + req.ClientOrderID,
		EntryPrice: entryPrice,
	}, nil
}

// ClosePosition в симуляции всегда успешен
func (g *SimulatedGateway) ClosePosition(ctx context.Context, orderID string) error {
	return nil
}

var (
	_ ExecutionGateway = (*HTTPExecutionGateway)(nil)
	_ ExecutionGateway = (*SimulatedGateway)(nil)
)
