package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"EchoJournal/pkg/logger"
)

// StatusEvent 推送给客户端的状态变更
type StatusEvent struct {
	Kind     string `json:"kind"` // entry / summary
	PublicID string `json:"publicId"`
	Status   string `json:"status"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 跨域校验交给网关层
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub 按用户维护 websocket 连接，状态变更时推送。
// 推送尽力而为，客户端掉线就丢，状态以轮询接口为准
type Hub struct {
	mu    sync.RWMutex
	conns map[uint]map[*websocket.Conn]struct{}
}

// NewHub 创建推送中心
func NewHub() *Hub {
	return &Hub{conns: make(map[uint]map[*websocket.Conn]struct{})}
}

// Serve 升级连接并挂到用户名下，阻塞到连接断开
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.add(userID, conn)
	defer h.remove(userID, conn)

	// 只收不处理，读到错误说明连接断了
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Push 向某用户的所有连接推送事件
func (h *Hub) Push(userID uint, event StatusEvent) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteJSON(event); err != nil {
			logger.Debug("websocket push failed", zap.Uint("userId", userID), zap.Error(err))
			h.remove(userID, c)
			c.Close()
		}
	}
}

func (h *Hub) add(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) remove(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
