// Package ws рассылает снимки состояния агрегатора подключенным websocket-клиентам.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rssreader/internal/domain"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
	wsReadLimit    = 512
)

type client struct {
	conn *websocket.Conn
	// send хранит не больше одного снимка: медленный клиент получает только последний.
	send chan []byte
}

// Hub реализует наблюдателя хранилища и раздает снимки по websocket.
// OnNotify не блокируется и не обращается к хранилищу.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log: log.With(slog.String("component", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// OnNotify кодирует снимок и ставит его в очередь каждому клиенту.
func (h *Hub) OnNotify(s domain.State) {
	payload, err := json.Marshal(s)
	if err != nil {
		h.log.Error("Failed to encode state", slog.Any("error", err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = payload
	for c := range h.clients {
		offer(c.send, payload)
	}
}

// offer кладет payload в буфер на одно место, вытесняя устаревший снимок.
// Вызывается только под h.mu.
func offer(ch chan []byte, payload []byte) {
	select {
	case ch <- payload:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- payload:
	default:
	}
}

// ServeHTTP принимает websocket-подключение и сразу отправляет последний снимок.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 1)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		offer(c.send, h.latest)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.log.Info("Websocket client connected",
		slog.String("remote_addr", r.RemoteAddr),
		slog.Int("count", count),
	)

	go h.writePump(c)
	h.readPump(c)
}

// ClientCount возвращает число подключенных клиентов.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close отключает всех клиентов.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(wsWriteTimeout),
		)
		c.conn.Close()
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

// readPump читает входящие кадры только ради control-сообщений и обнаружения закрытия.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("Unexpected websocket close", slog.Any("error", err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.log.Debug("Websocket write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		}
	}
}
