// Package websocket раздает события мониторинга подключенным клиентам:
// обновления PnL, свежие оценки риска и уведомления.
package websocket

import (
	"bytes"
	"log"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"

	"hedgewatch/internal/models"
	"hedgewatch/internal/monitor"
)

// jsonFast - быстрый сериализатор для broadcast сообщений
var jsonFast = jsoniter.ConfigCompatibleWithStandardLibrary

// Пул JSON буферов: Broadcast вызывается на каждом тике мониторинга
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Типизированные сообщения вместо map[string]interface{}

// AssessmentMessage - свежая оценка риска портфеля
type AssessmentMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PnlTickMessage - итог тика обновления PnL
type PnlTickMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NotificationMessage - новое уведомление
type NotificationMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StatusMessage - изменение состояния планировщика
type StatusMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub управляет всеми активными WebSocket соединениями.
//
// Центральный менеджер broadcast сообщений: фронтенд получает
// обновления мониторинга без polling'а. Реализует monitor.Publisher.
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	// Счетчик потерянных сообщений при переполнении канала
	dropped int64

	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("ws client connected, total: %d", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			// Копия списка под коротким RLock, отправка без блокировки
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать - отключаем
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				h.mu.Unlock()
				log.Printf("removed %d slow ws clients", len(toRemove))
			}
		}
	}
}

// Broadcast сериализует и отправляет сообщение всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := jsonFast.NewEncoder(buf).Encode(message); err != nil {
		log.Printf("ws broadcast marshal error: %v", err)
		jsonBufferPool.Put(buf)
		return
	}

	// Encode добавляет trailing newline
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копия данных, буфер возвращается в пул
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw отправляет уже сериализованные данные всем клиентам.
// Не блокируется: при переполнении канала сообщение теряется.
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		atomic.AddInt64(&h.dropped, 1)
	}
}

// Stop завершает цикл Run и отключает всех клиентов
func (h *Hub) Stop() {
	close(h.stop)
}

// DroppedMessages возвращает количество потерянных сообщений
func (h *Hub) DroppedMessages() int64 {
	return atomic.LoadInt64(&h.dropped)
}

// ============================================================
// monitor.Publisher
// ============================================================

// PublishAssessment отправляет свежую оценку риска
func (h *Hub) PublishAssessment(assessment *models.RiskAssessment) {
	h.Broadcast(&AssessmentMessage{Type: "assessmentUpdate", Data: assessment})
}

// PublishPnlTick отправляет итог тика обновления PnL
func (h *Hub) PublishPnlTick(result *monitor.UpdateResult) {
	h.Broadcast(&PnlTickMessage{Type: "pnlUpdate", Data: result})
}

// PublishStatus отправляет изменение состояния планировщика
func (h *Hub) PublishStatus(status *monitor.EngineStatus) {
	h.Broadcast(&StatusMessage{Type: "statusUpdate", Data: status})
}

// PublishNotification отправляет новое уведомление
func (h *Hub) PublishNotification(n *models.Notification) {
	h.Broadcast(&NotificationMessage{Type: "notification", Data: n})
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ monitor.Publisher = (*Hub)(nil)
