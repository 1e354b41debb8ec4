package handler

import (
	"chat-system/internal/service"
	"chat-system/pkg/jwt"
	"chat-system/pkg/redis"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// UserHandler 用户相关接口
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler 创建UserHandler实例
func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// Login 登录即注册
// 用户名不存在时自动创建账号
func (h *UserHandler) Login(c *gin.Context) {
	type req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, token, err := h.service.LoginOrRegister(c.Request.Context(), r.Username, r.Password)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, "登录成功", &response.LoginResponse{
		User:        response.NewUserView(user),
		AccessToken: token,
	})
}

// GetProfile 获取用户资料（需要JWT认证）
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.service.GetProfile(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.NewUserView(user))
}

// UpdateProfile 更新昵称/头像（需要JWT认证）
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	type req struct {
		Nickname string `json:"nickname"`
		Avatar   string `json:"avatar"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.service.UpdateProfile(c.Request.Context(), jwt.GetUserID(c), r.Nickname, r.Avatar)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "资料已更新", response.NewUserView(user))
}

// SearchUsers 搜索用户（需要JWT认证，排除自己）
func (h *UserHandler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), jwt.GetUserID(c), c.Query("q"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.NewUserViews(users))
}

// ChattedPeers 与我聊过的用户列表（需要JWT认证）
func (h *UserHandler) ChattedPeers(c *gin.Context) {
	users, err := h.service.ChattedPeers(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.NewUserViews(users))
}

// RecordOnline 客户端在线心跳上报（需要JWT认证）
func (h *UserHandler) RecordOnline(c *gin.Context) {
	type req struct {
		Duration int64 `json:"duration"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.service.RecordOnline(c.Request.Context(), jwt.GetUserID(c), r.Duration); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, nil)
}

// Stats 用户统计（需要JWT认证）
func (h *UserHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, stats)
}

// Logout 用户登出（需要JWT认证）：置离线并广播
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.service.Logout(c.Request.Context(), jwt.GetUserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已离线", nil)
}

// GetOnlineUsers 获取在线用户列表（需要JWT认证）
func (h *UserHandler) GetOnlineUsers(c *gin.Context) {
	presences, err := redis.GetOnlineUsersWithDetails()
	if err != nil {
		response.InternalError(c, "获取在线用户失败")
		return
	}

	views := make([]*response.PresenceView, 0, len(presences))
	for _, p := range presences {
		views = append(views, response.NewPresenceView(p.UserID, p.Username, p.Status, p.LastSeen))
	}
	response.Success(c, gin.H{
		"online_count": len(views),
		"users":        views,
	})
}
