package models

import "time"

// Notification представляет запись журнала событий мониторинга
type Notification struct {
	ID          int       `json:"id" db:"id"`
	PortfolioID *int      `json:"portfolio_id,omitempty" db:"portfolio_id"` // nil для общесистемных событий
	Type        string    `json:"type" db:"type"`                           // AUTO_HEDGE, EXEC_FAIL, SKIP, ERROR
	Severity    string    `json:"severity" db:"severity"`                   // info, warn, error
	Message     string    `json:"message" db:"message"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Типы уведомлений
const (
	NotificationTypeAutoHedge = "AUTO_HEDGE" // контроллер открыл хедж
	NotificationTypeExecFail  = "EXEC_FAIL"  // шлюз исполнения отклонил позицию
	NotificationTypeSkip      = "SKIP"       // тик риск-проверки пропущен (предыдущий не завершен)
	NotificationTypeError     = "ERROR"      // ошибка провайдера/хранилища
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
