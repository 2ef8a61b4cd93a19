package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hedgewatch/internal/api/handlers"
	"hedgewatch/internal/api/middleware"
	"hedgewatch/internal/service"
	"hedgewatch/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	MonitorService      *service.MonitorService
	HedgeService        *service.HedgeService
	NotificationService *service.NotificationService
	Hub                 *websocket.Hub
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /monitor/
//	│   ├── POST /start - запуск мониторинга
//	│   ├── POST /stop - остановка мониторинга
//	│   ├── GET /status - состояние планировщика
//	│   ├── POST /portfolios - включить авто-хеджирование портфеля
//	│   ├── DELETE /portfolios/{id} - выключить авто-хеджирование
//	│   ├── GET /portfolios/{id}/assessment - последняя оценка риска
//	│   ├── POST /portfolios/{id}/assess - внеочередная проверка
//	│   └── POST /pnl/refresh - внеочередное обновление PnL
//	├── /hedges/
//	│   ├── GET / - список хеджей
//	│   ├── POST / - ручное открытие хеджа
//	│   ├── GET /{id} - один хедж
//	│   └── POST /{id}/close - закрытие хеджа
//	└── /notifications/
//	    ├── GET / - журнал событий
//	    └── DELETE / - очистка журнала
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics - Prometheus метрики
// /health - health check
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var monitorHandler *handlers.MonitorHandler
	if deps != nil && deps.MonitorService != nil {
		monitorHandler = handlers.NewMonitorHandler(deps.MonitorService)
	}

	var hedgeHandler *handlers.HedgeHandler
	if deps != nil && deps.HedgeService != nil {
		hedgeHandler = handlers.NewHedgeHandler(deps.HedgeService)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.NotificationService != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.NotificationService)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Monitor routes
	if monitorHandler != nil {
		api.HandleFunc("/monitor/start", monitorHandler.StartMonitoring).Methods("POST")
		api.HandleFunc("/monitor/stop", monitorHandler.StopMonitoring).Methods("POST")
		api.HandleFunc("/monitor/status", monitorHandler.GetStatus).Methods("GET")
		api.HandleFunc("/monitor/portfolios", monitorHandler.EnablePortfolio).Methods("POST")
		api.HandleFunc("/monitor/portfolios/{id}", monitorHandler.DisablePortfolio).Methods("DELETE")
		api.HandleFunc("/monitor/portfolios/{id}/assessment", monitorHandler.GetAssessment).Methods("GET")
		api.HandleFunc("/monitor/portfolios/{id}/assess", monitorHandler.TriggerAssessment).Methods("POST")
		api.HandleFunc("/monitor/pnl/refresh", monitorHandler.RefreshPnl).Methods("POST")
	}

	// Hedge routes
	if hedgeHandler != nil {
		api.HandleFunc("/hedges", hedgeHandler.GetHedges).Methods("GET")
		api.HandleFunc("/hedges", hedgeHandler.OpenHedge).Methods("POST")
		api.HandleFunc("/hedges/{id}", hedgeHandler.GetHedge).Methods("GET")
		api.HandleFunc("/hedges/{id}/close", hedgeHandler.CloseHedge).Methods("POST")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.ClearNotifications).Methods("DELETE")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
