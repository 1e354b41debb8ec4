package service

import (
	"context"
	"time"

	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/pkg/websocket"
)

// 服务层只通过以下接口访问仓储与事件通道，
// 使核心逻辑可以在没有数据库与传输层的情况下测试

// UserRepo 用户仓储接口
type UserRepo interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*model.User, error)
	UpdateProfile(ctx context.Context, userID uint, fields map[string]interface{}) error
	UpdateStatus(ctx context.Context, userID uint, status string, lastSeen time.Time) error
	Search(ctx context.Context, query string, exclude uint, limit int) ([]*model.User, error)
	RecordActivity(ctx context.Context, activity *model.UserActivity) error
	CountActivities(ctx context.Context, userID uint, action string) (int64, error)
	SumOnlineSeconds(ctx context.Context, userID uint) (int64, error)
}

// GroupRepo 群组仓储接口
type GroupRepo interface {
	Create(ctx context.Context, group *model.Group) error
	GetByID(ctx context.Context, id uint) (*model.Group, error)
	AddMember(ctx context.Context, groupID, userID uint) error
	IsMember(ctx context.Context, groupID, userID uint) (bool, error)
	MemberIDs(ctx context.Context, groupID uint) ([]uint, error)
	Members(ctx context.Context, groupID uint) ([]*model.User, error)
	Search(ctx context.Context, query string, limit int) ([]*model.Group, error)
}

// MessageRepo 消息仓储接口
type MessageRepo interface {
	Create(ctx context.Context, message *model.Message, attachmentIDs []uint) error
	GetByID(ctx context.Context, id uint) (*model.Message, error)
	List(ctx context.Context, q repository.ListQuery) ([]*model.Message, error)
	MarkSeenDirect(ctx context.Context, callerID, peerID uint, now time.Time) ([]*model.Message, error)
	MarkSeenGroup(ctx context.Context, callerID, groupID uint, now time.Time) ([]*model.Message, error)
	UpdateContent(ctx context.Context, messageID uint, content string) error
	Delete(ctx context.Context, messageID uint) ([]string, error)
	ChattedPeerIDs(ctx context.Context, userID uint) ([]uint, error)
	CountBySender(ctx context.Context, userID uint) (int64, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

// AttachmentRepo 附件仓储接口
type AttachmentRepo interface {
	Create(ctx context.Context, attachment *model.Attachment) error
	GetByID(ctx context.Context, id uint) (*model.Attachment, error)
	ListByMessages(ctx context.Context, messageIDs []uint) (map[uint][]*model.Attachment, error)
	CountBySender(ctx context.Context, userID uint) (int64, error)
}

// Notifier 实时事件通道接口（由 websocket.Manager 实现）
type Notifier interface {
	SendToUser(userID uint, evt websocket.Event)
	SendToUsers(userIDs []uint, evt websocket.Event)
	Broadcast(evt websocket.Event, exclude uint)
}

// FileStore 存储文件清理接口（由附件服务实现）
type FileStore interface {
	Remove(fileName string) error
}
