package service

import (
	"github.com/sirupsen/logrus"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
)

// WebSocketBroadcaster - интерфейс для отправки WebSocket сообщений.
//
// Позволяет избежать циклических зависимостей между пакетами
// и упрощает тестирование (можно подставить mock)
type WebSocketBroadcaster interface {
	PublishNotification(n *models.Notification)
}

// NotificationService предоставляет бизнес-логику для уведомлений.
//
// Принимает события от цикла мониторинга (реализует monitor.Notifier),
// сохраняет их в БД и рассылает подписчикам через WebSocket.
//
// Типы уведомлений:
// - AUTO_HEDGE: контроллер открыл хедж автоматически
// - EXEC_FAIL: шлюз отклонил или не исполнил ордер
// - SKIP: рекомендация пропущена политикой или in-flight защитой
// - ERROR: ошибка провайдера оценки или записи
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	wsHub            WebSocketBroadcaster
	log              *logrus.Logger
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(notificationRepo NotificationRepositoryInterface, log *logrus.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		log:              log,
	}
}

// SetWebSocketHub устанавливает WebSocket hub для broadcast уведомлений.
//
// Вызывается после инициализации Hub в main.go:
//
//	notifService := service.NewNotificationService(notifRepo, log)
//	notifService.SetWebSocketHub(wsHub)
func (s *NotificationService) SetWebSocketHub(hub WebSocketBroadcaster) {
	s.wsHub = hub
}

// Notify принимает событие мониторинга.
//
// Ошибка записи логируется, но не возвращается: потеря уведомления
// не должна останавливать цикл мониторинга.
func (s *NotificationService) Notify(n *models.Notification) {
	if n == nil {
		return
	}

	if err := s.notificationRepo.Create(n); err != nil {
		s.log.WithError(err).WithField("type", n.Type).Error("failed to store notification")
	}

	if s.wsHub != nil {
		s.wsHub.PublishNotification(n)
	}
}

// GetNotifications возвращает список уведомлений (новые сверху).
//
// При portfolioID > 0 возвращаются только уведомления этого портфеля.
// Лимит по умолчанию 100, максимум 500.
func (s *NotificationService) GetNotifications(portfolioID, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	if portfolioID > 0 {
		return s.notificationRepo.GetByPortfolioID(portfolioID, limit)
	}
	return s.notificationRepo.GetRecent(limit)
}

// ClearNotifications очищает журнал уведомлений.
// Возвращает количество удаленных записей.
func (s *NotificationService) ClearNotifications() (int64, error) {
	return s.notificationRepo.DeleteAll()
}

// GetNotificationCount возвращает общее количество уведомлений
func (s *NotificationService) GetNotificationCount() (int, error) {
	return s.notificationRepo.Count()
}

// Проверяем, что сервис может принимать события цикла мониторинга
var _ monitor.Notifier = (*NotificationService)(nil)
