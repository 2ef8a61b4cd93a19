package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hedgewatch/internal/models"
	"hedgewatch/internal/service"
)

// MonitorHandler отвечает за управление циклом риск-мониторинга
//
// Endpoints:
// - POST /api/v1/monitor/start - запуск мониторинга
// - POST /api/v1/monitor/stop - остановка мониторинга
// - GET /api/v1/monitor/status - состояние планировщика
// - POST /api/v1/monitor/portfolios - включить авто-хеджирование портфеля
// - DELETE /api/v1/monitor/portfolios/{id} - выключить авто-хеджирование
// - GET /api/v1/monitor/portfolios/{id}/assessment - последняя оценка риска
// - POST /api/v1/monitor/portfolios/{id}/assess - внеочередная проверка
// - POST /api/v1/monitor/pnl/refresh - внеочередное обновление PnL
type MonitorHandler struct {
	monitorService service.MonitorServiceInterface
}

// NewMonitorHandler создает новый MonitorHandler с внедрением зависимости
func NewMonitorHandler(monitorService service.MonitorServiceInterface) *MonitorHandler {
	return &MonitorHandler{monitorService: monitorService}
}

// StartMonitoring запускает циклы мониторинга
//
// POST /api/v1/monitor/start
//
// Идемпотентен: повторный запуск работающего планировщика - no-op.
//
// HTTP коды:
// - 200 OK: мониторинг запущен (или уже работал)
func (h *MonitorHandler) StartMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitorService.Start(r.Context())
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Monitoring started",
		Data:    h.monitorService.Status(),
	})
}

// StopMonitoring останавливает циклы мониторинга
//
// POST /api/v1/monitor/stop
//
// Дожидается завершения текущих тиков. Идемпотентен.
func (h *MonitorHandler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	h.monitorService.Stop()
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Monitoring stopped",
		Data:    h.monitorService.Status(),
	})
}

// GetStatus возвращает снимок состояния планировщика
//
// GET /api/v1/monitor/status
func (h *MonitorHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.monitorService.Status())
}

// EnablePortfolio включает авто-хеджирование портфеля
//
// POST /api/v1/monitor/portfolios
//
// Body:
//
//	{
//	  "portfolio_id": 1,
//	  "address": "0xabc...",
//	  "risk_threshold": 7,
//	  "max_leverage": 3,
//	  "allowed_assets": ["ETH", "BTC"]
//	}
//
// Повторный вызов для того же портфеля заменяет политику.
//
// HTTP коды:
// - 200 OK: политика принята
// - 400 Bad Request: невалидное тело или политика
func (h *MonitorHandler) EnablePortfolio(w http.ResponseWriter, r *http.Request) {
	var cfg models.AutoHedgeConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.monitorService.EnablePortfolio(&cfg); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Portfolio monitoring enabled",
		Data:    cfg,
	})
}

// DisablePortfolio выключает авто-хеджирование портфеля
//
// DELETE /api/v1/monitor/portfolios/{id}
//
// HTTP коды:
// - 200 OK: мониторинг портфеля выключен
// - 400 Bad Request: невалидный id
// - 404 Not Found: портфель не отслеживался
func (h *MonitorHandler) DisablePortfolio(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	if err := h.monitorService.DisablePortfolio(id); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, SuccessResponse{Message: "Portfolio monitoring disabled"})
}

// GetAssessment возвращает последнюю оценку риска портфеля
//
// GET /api/v1/monitor/portfolios/{id}/assessment
//
// HTTP коды:
// - 200 OK: оценка найдена
// - 404 Not Found: оценки еще нет или портфель не отслеживается
func (h *MonitorHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	assessment, err := h.monitorService.GetAssessment(id)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, assessment)
}

// TriggerAssessment выполняет внеочередную риск-проверку портфеля
//
// POST /api/v1/monitor/portfolios/{id}/assess?address=0xabc
//
// Для отслеживаемого портфеля параметр address не нужен: адрес берется
// из зарегистрированной политики. Для неотслеживаемого портфеля address
// обязателен, оценка выполняется без авто-хеджирования.
//
// Работает и при остановленном планировщике. Если проверка портфеля
// уже идет, возвращается 409 Conflict.
func (h *MonitorHandler) TriggerAssessment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.portfolioID(w, r)
	if !ok {
		return
	}

	address := r.URL.Query().Get("address")

	assessment, err := h.monitorService.TriggerAssessment(r.Context(), id, address)
	if err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, assessment)
}

// RefreshPnl выполняет внеочередное обновление PnL всех активных хеджей
//
// POST /api/v1/monitor/pnl/refresh
func (h *MonitorHandler) RefreshPnl(w http.ResponseWriter, r *http.Request) {
	result, err := h.monitorService.RefreshPnl(r.Context())
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to refresh pnl: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// portfolioID извлекает и валидирует {id} из пути
func (h *MonitorHandler) portfolioID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid portfolio id: "+idStr)
		return 0, false
	}
	return id, true
}
