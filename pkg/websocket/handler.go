package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"chat-system/config"
	"chat-system/pkg/jwt"
	"chat-system/pkg/logger"
	"chat-system/pkg/redis"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// PresenceSetter 在线状态变更回调
// 由用户服务实现：更新数据库状态并广播 user.online/user.offline 事件
type PresenceSetter interface {
	SetPresence(ctx context.Context, userID uint, online bool) error
}

// Handler WebSocket订阅入口
type Handler struct {
	jwtSvc   *jwt.JWTService
	cfg      config.WebSocketConfig
	manager  *Manager
	presence PresenceSetter
}

// NewHandler 创建WebSocket处理器
func NewHandler(jwtSvc *jwt.JWTService, cfg config.WebSocketConfig, manager *Manager, presence PresenceSetter) *Handler {
	return &Handler{jwtSvc: jwtSvc, cfg: cfg, manager: manager, presence: presence}
}

// Subscribe Gin路由处理函数
// 认证通过后升级连接并注册到管理器，连接存续期间用户视为在线
func (h *Handler) Subscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Sec-WebSocket-Protocol"), "Bearer ")
	}
	if token == "" {
		response.Unauthorized(c, "缺少token")
		return
	}

	claims, err := h.jwtSvc.ValidateToken(token)
	if err != nil {
		response.Unauthorized(c, "token无效或已过期")
		return
	}
	userID := claims.UserID()
	if userID == 0 {
		response.Unauthorized(c, "token无效")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, h.cfg.SendBuffer),
	}
	h.manager.AddClient(userID, client)

	// 连接建立即上线（写库 + 广播事件）
	if err := h.presence.SetPresence(c.Request.Context(), userID, true); err != nil {
		logger.Error("设置在线状态失败", zap.Uint("user_id", userID), zap.Error(err))
	}

	defer func() {
		h.manager.RemoveClient(userID, client)
		// 连接关闭即离线；用context.Background，请求context此时已取消
		if err := h.presence.SetPresence(context.Background(), userID, false); err != nil {
			logger.Error("设置离线状态失败", zap.Uint("user_id", userID), zap.Error(err))
		}
	}()

	// 写协程：消费发送通道 + 定时发送ping心跳
	go func() {
		ticker := time.NewTicker(h.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-client.Send:
				if !ok {
					return
				}
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// 读循环：接收心跳，超时未收到任何读事件则断开
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(appData string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var msg map[string]interface{}
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if t, ok := msg["type"].(string); ok && t == "heartbeat" {
			// 刷新在线状态TTL
			_ = redis.RefreshUserPresence(userID)
		}
	}
}
