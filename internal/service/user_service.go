package service

import (
	"context"
	"strings"
	"time"

	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/pkg/jwt"
	"chat-system/pkg/password"
	"chat-system/pkg/redis"
	"chat-system/pkg/response"
	"chat-system/pkg/websocket"
)

// UserService 身份与成员关系服务
// 负责登录即注册、资料维护、在线状态转换与用户统计
type UserService struct {
	userRepo       UserRepo
	messageRepo    MessageRepo
	attachmentRepo AttachmentRepo
	jwtService     *jwt.JWTService
	notifier       Notifier
}

// NewUserService 创建UserService实例
func NewUserService(userRepo UserRepo, messageRepo MessageRepo, attachmentRepo AttachmentRepo, jwtService *jwt.JWTService, notifier Notifier) *UserService {
	return &UserService{
		userRepo:       userRepo,
		messageRepo:    messageRepo,
		attachmentRepo: attachmentRepo,
		jwtService:     jwtService,
		notifier:       notifier,
	}
}

// LoginOrRegister 登录即注册
// 用户名不存在则创建新用户（密码存哈希，昵称给默认占位符）；
// 已存在则校验密码，不匹配返回未授权错误
// 成功后置为在线、刷新最近在线时间、记录登录活动并签发令牌
func (s *UserService) LoginOrRegister(ctx context.Context, username, plainPassword string) (*model.User, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || plainPassword == "" {
		return nil, "", apperr.New(apperr.KindValidation, "username and password are required")
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if !password.Verify(plainPassword, user.PasswordHash) {
			return nil, "", apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
	case apperr.IsKind(err, apperr.KindNotFound):
		// 首次登录即注册
		hash, hashErr := password.Hash(plainPassword)
		if hashErr != nil {
			return nil, "", apperr.Wrap(apperr.KindStorage, "hash password failed", hashErr)
		}
		user = &model.User{
			Username:     username,
			Nickname:     model.DefaultNickname(username),
			PasswordHash: hash,
			Status:       model.StatusOffline,
			LastSeen:     time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", err
	}

	if err := s.SetPresence(ctx, user.ID, true); err != nil {
		return nil, "", err
	}
	user.Status = model.StatusOnline
	user.LastSeen = time.Now()

	_ = s.userRepo.RecordActivity(ctx, &model.UserActivity{
		UserID: user.ID,
		Action: model.ActivityLogin,
	})

	token, err := s.jwtService.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindStorage, "generate token failed", err)
	}
	return user, token, nil
}

// SetPresence 在线状态转换
// 更新数据库状态与Redis TTL记录，并广播 user.online/user.offline 事件
// 实现 websocket.PresenceSetter
func (s *UserService) SetPresence(ctx context.Context, userID uint, online bool) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	status := model.StatusOffline
	eventType := websocket.EventUserOffline
	if online {
		status = model.StatusOnline
		eventType = websocket.EventUserOnline
	}

	now := time.Now()
	if err := s.userRepo.UpdateStatus(ctx, userID, status, now); err != nil {
		return err
	}

	// Redis仅作快速查询与TTL兜底，失败不影响主流程
	_ = redis.SetUserPresence(userID, user.Username, status)

	user.Status = status
	user.LastSeen = now
	s.notifier.Broadcast(websocket.NewEvent(eventType, response.NewUserView(user)), userID)
	return nil
}

// Logout 登出：置为离线并广播
func (s *UserService) Logout(ctx context.Context, userID uint) error {
	return s.SetPresence(ctx, userID, false)
}

// UpdateProfile 更新昵称/头像
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, nickname, avatar string) (*model.User, error) {
	fields := make(map[string]interface{})
	if nickname = strings.TrimSpace(nickname); nickname != "" {
		fields["nickname"] = nickname
	}
	if avatar != "" {
		fields["avatar"] = avatar
	}
	if len(fields) == 0 {
		return nil, apperr.New(apperr.KindValidation, "no profile fields to update")
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, fields); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, userID)
}

// GetProfile 获取用户资料
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*model.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// SearchUsers 搜索用户（排除调用者自身）
func (s *UserService) SearchUsers(ctx context.Context, callerID uint, query string) ([]*model.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.KindValidation, "search query is required")
	}
	return s.userRepo.Search(ctx, query, callerID, 50)
}

// ChattedPeers 与调用者有过单聊往来的用户列表
func (s *UserService) ChattedPeers(ctx context.Context, callerID uint) ([]*model.User, error) {
	ids, err := s.messageRepo.ChattedPeerIDs(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByIDs(ctx, ids)
}

// RecordOnline 客户端心跳上报在线时长
func (s *UserService) RecordOnline(ctx context.Context, userID uint, duration int64) error {
	if duration < 0 {
		return apperr.New(apperr.KindValidation, "duration must be non-negative")
	}
	if err := s.userRepo.RecordActivity(ctx, &model.UserActivity{
		UserID:   userID,
		Action:   model.ActivityOnline,
		Duration: duration,
	}); err != nil {
		return err
	}
	_ = redis.RefreshUserPresence(userID)
	return nil
}

// Stats 用户统计视图
func (s *UserService) Stats(ctx context.Context, userID uint) (*response.StatsView, error) {
	messageCount, err := s.messageRepo.CountBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	attachmentCount, err := s.attachmentRepo.CountBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	loginCount, err := s.userRepo.CountActivities(ctx, userID, model.ActivityLogin)
	if err != nil {
		return nil, err
	}
	onlineSeconds, err := s.userRepo.SumOnlineSeconds(ctx, userID)
	if err != nil {
		return nil, err
	}
	unreadCount, err := s.messageRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &response.StatsView{
		MessageCount:    messageCount,
		AttachmentCount: attachmentCount,
		LoginCount:      loginCount,
		OnlineSeconds:   onlineSeconds,
		UnreadCount:     unreadCount,
	}, nil
}
