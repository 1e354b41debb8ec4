package websocket

import (
	"sync"

	"chat-system/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client 代表一个WebSocket连接的用户
// Send 为带缓冲的发送通道，由写协程消费

type Client struct {
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager 管理所有在线用户的WebSocket连接
// 事件推送为尽力而为：缓冲满或用户不在线时直接丢弃，
// 不做离线暂存，掉线客户端靠游标拉取补齐

type Manager struct {
	clients map[uint]*Client // 在线用户
	lock    sync.RWMutex
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{
		clients: make(map[uint]*Client),
	}
}

var manager = NewManager()

// GetManager 获取全局WebSocket管理器
func GetManager() *Manager {
	return manager
}

// AddClient 添加新连接
// 同一用户重复连接时旧连接被替换（其发送通道随之关闭）
func (m *Manager) AddClient(userID uint, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if old, ok := m.clients[userID]; ok {
		close(old.Send)
	}
	m.clients[userID] = client
}

// RemoveClient 移除连接
// 只移除仍登记为当前连接的client，避免误关替换后的新连接
func (m *Manager) RemoveClient(userID uint, client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if c, ok := m.clients[userID]; ok && c == client {
		close(c.Send)
		delete(m.clients, userID)
	}
}

// IsOnline 判断用户是否有活跃连接
func (m *Manager) IsOnline(userID uint) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.clients[userID]
	return ok
}

// OnlineCount 当前连接数
func (m *Manager) OnlineCount() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.clients)
}

// SendToUser 推送事件给指定用户
// 用户不在线或缓冲已满时丢弃
func (m *Manager) SendToUser(userID uint, evt Event) {
	data, err := evt.Encode()
	if err != nil {
		logger.Error("事件序列化失败", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	// 持锁期间发送：close(Send)只发生在写锁内，避免向已关闭通道发送
	m.lock.RLock()
	defer m.lock.RUnlock()
	client, ok := m.clients[userID]
	if !ok {
		return
	}
	select {
	case client.Send <- data:
	default:
		// 缓冲满，丢弃该事件
		logger.Warn("事件推送缓冲已满", zap.Uint("user_id", userID), zap.String("type", evt.Type))
	}
}

// SendToUsers 推送事件给一组用户
func (m *Manager) SendToUsers(userIDs []uint, evt Event) {
	for _, id := range userIDs {
		m.SendToUser(id, evt)
	}
}

// Broadcast 推送事件给除exclude外的所有在线用户
func (m *Manager) Broadcast(evt Event, exclude uint) {
	data, err := evt.Encode()
	if err != nil {
		logger.Error("事件序列化失败", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	for id, client := range m.clients {
		if id == exclude {
			continue
		}
		select {
		case client.Send <- data:
		default:
		}
	}
}
