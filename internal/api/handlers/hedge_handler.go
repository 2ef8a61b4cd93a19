package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"hedgewatch/internal/models"
	"hedgewatch/internal/repository"
	"hedgewatch/internal/service"
)

// HedgeHandler отвечает за управление хеджевыми позициями
//
// Endpoints:
// - GET /api/v1/hedges?status=active - все хеджи по статусу
// - GET /api/v1/hedges?portfolio_id=1&active=true - хеджи портфеля
// - POST /api/v1/hedges - ручное открытие хеджа
// - GET /api/v1/hedges/{id} - один хедж
// - POST /api/v1/hedges/{id}/close - закрытие хеджа
type HedgeHandler struct {
	hedgeService service.HedgeServiceInterface
}

// NewHedgeHandler создает новый HedgeHandler с внедрением зависимости
func NewHedgeHandler(hedgeService service.HedgeServiceInterface) *HedgeHandler {
	return &HedgeHandler{hedgeService: hedgeService}
}

// GetHedgesResponse представляет ответ списка хеджей
type GetHedgesResponse struct {
	Hedges []*models.Hedge `json:"hedges"`
	Total  int             `json:"total"`
}

// GetHedges возвращает список хеджей
//
// GET /api/v1/hedges
//
// Query параметры:
// - portfolio_id (int): хеджи одного портфеля
// - active (bool): только активные (вместе с portfolio_id)
// - status (string): все хеджи со статусом active или closed
//
// Без параметров возвращаются все активные хеджи.
func (h *HedgeHandler) GetHedges(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		hedges []*models.Hedge
		err    error
	)

	switch {
	case query.Get("portfolio_id") != "":
		portfolioID, convErr := strconv.Atoi(query.Get("portfolio_id"))
		if convErr != nil || portfolioID <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid portfolio_id: "+query.Get("portfolio_id"))
			return
		}
		activeOnly := query.Get("active") == "true"
		hedges, err = h.hedgeService.GetHedges(portfolioID, activeOnly)

	case query.Get("status") != "":
		hedges, err = h.hedgeService.GetAllByStatus(query.Get("status"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

	default:
		hedges, err = h.hedgeService.GetAllByStatus(models.HedgeStatusActive)
	}

	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get hedges: "+err.Error())
		return
	}

	// Пустой список вместо null в JSON
	if hedges == nil {
		hedges = []*models.Hedge{}
	}

	respondWithJSON(w, http.StatusOK, GetHedgesResponse{
		Hedges: hedges,
		Total:  len(hedges),
	})
}

// OpenHedge открывает хеджевую позицию вручную
//
// POST /api/v1/hedges
//
// Body:
//
//	{
//	  "portfolio_id": 1,
//	  "symbol": "ETH",
//	  "side": "SHORT",
//	  "notional_value": 1500,
//	  "leverage": 3,
//	  "reason": "manual drawdown hedge"
//	}
//
// HTTP коды:
// - 201 Created: позиция открыта и записана
// - 400 Bad Request: невалидное тело или параметры
// - 422 Unprocessable Entity: шлюз отклонил ордер
// - 500 Internal Server Error: ошибка шлюза или БД
func (h *HedgeHandler) OpenHedge(w http.ResponseWriter, r *http.Request) {
	var req service.OpenHedgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	hedge, err := h.hedgeService.OpenHedge(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrHedgeRejected):
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		case isValidationError(err):
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			respondWithError(w, http.StatusInternalServerError, "Failed to open hedge: "+err.Error())
		}
		return
	}

	respondWithJSON(w, http.StatusCreated, hedge)
}

// GetHedge возвращает один хедж
//
// GET /api/v1/hedges/{id}
func (h *HedgeHandler) GetHedge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hedgeID(w, r)
	if !ok {
		return
	}

	hedge, err := h.hedgeService.GetHedge(id)
	if err != nil {
		if errors.Is(err, repository.ErrHedgeNotFound) {
			respondWithError(w, http.StatusNotFound, "Hedge not found")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to get hedge: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, hedge)
}

// CloseHedge помечает хедж закрытым
//
// POST /api/v1/hedges/{id}/close
//
// HTTP коды:
// - 200 OK: хедж закрыт
// - 404 Not Found: хедж не найден или уже закрыт
func (h *HedgeHandler) CloseHedge(w http.ResponseWriter, r *http.Request) {
	id, ok := h.hedgeID(w, r)
	if !ok {
		return
	}

	hedge, err := h.hedgeService.CloseHedge(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrHedgeNotFound) {
			respondWithError(w, http.StatusNotFound, "Hedge not found or already closed")
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to close hedge: "+err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, hedge)
}

// hedgeID извлекает и валидирует {id} из пути
func (h *HedgeHandler) hedgeID(w http.ResponseWriter, r *http.Request) (int, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid hedge id: "+idStr)
		return 0, false
	}
	return id, true
}

// isValidationError отличает ошибки валидации запроса от
// инфраструктурных: ошибки шлюза и БД обернуты сервисом с контекстом
// "open position" / "record hedge"
func isValidationError(err error) bool {
	msg := err.Error()
	return !strings.Contains(msg, "open position") && !strings.Contains(msg, "record hedge")
}
