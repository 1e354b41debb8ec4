package response

import (
	"time"

	"chat-system/internal/model"
)

// 所有端点与WebSocket事件载荷统一使用本文件的视图构造函数，
// 避免各调用点自行拼装字典导致序列化形状漂移

const timeLayout = "2006-01-02 15:04:05"

// UserView 用户视图（隐藏敏感字段）
type UserView struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

// NewUserView 构造用户视图
func NewUserView(user *model.User) *UserView {
	if user == nil {
		return nil
	}
	return &UserView{
		ID:       user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
		Avatar:   user.Avatar,
		Status:   user.Status,
		LastSeen: user.LastSeen.Format(timeLayout),
	}
}

// NewUserViews 批量构造用户视图
func NewUserViews(users []*model.User) []*UserView {
	views := make([]*UserView, 0, len(users))
	for _, u := range users {
		views = append(views, NewUserView(u))
	}
	return views
}

// GroupView 群组视图
type GroupView struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Avatar      string `json:"avatar"`
	CreatorID   uint   `json:"creator_id"`
	HasPassword bool   `json:"has_password"`
	CreatedAt   string `json:"created_at"`
}

// NewGroupView 构造群组视图
func NewGroupView(group *model.Group) *GroupView {
	if group == nil {
		return nil
	}
	return &GroupView{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Avatar:      group.Avatar,
		CreatorID:   group.CreatorID,
		HasPassword: group.PasswordHash != "",
		CreatedAt:   group.CreatedAt.Format(timeLayout),
	}
}

// NewGroupViews 批量构造群组视图
func NewGroupViews(groups []*model.Group) []*GroupView {
	views := make([]*GroupView, 0, len(groups))
	for _, g := range groups {
		views = append(views, NewGroupView(g))
	}
	return views
}

// AttachmentView 附件视图
type AttachmentView struct {
	ID           uint   `json:"id"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	FileType     string `json:"file_type"`
	Size         int64  `json:"size"`
}

// NewAttachmentView 构造附件视图
func NewAttachmentView(a *model.Attachment) *AttachmentView {
	if a == nil {
		return nil
	}
	return &AttachmentView{
		ID:           a.ID,
		URL:          "/uploads/" + a.FileName,
		OriginalName: a.OriginalName,
		FileType:     a.FileType,
		Size:         a.Size,
	}
}

// MessageView 消息视图
// DeliveredAt/ReadAt 为空表示尚未送达/已读
type MessageView struct {
	ID          uint              `json:"id"`
	SenderID    uint              `json:"sender_id"`
	RecipientID *uint             `json:"recipient_id,omitempty"`
	GroupID     *uint             `json:"group_id,omitempty"`
	Content     string            `json:"content"`
	Attachments []*AttachmentView `json:"attachments"`
	CreatedAt   string            `json:"created_at"`
	DeliveredAt string            `json:"delivered_at,omitempty"`
	ReadAt      string            `json:"read_at,omitempty"`
}

// NewMessageView 构造消息视图
func NewMessageView(m *model.Message, attachments []*model.Attachment) *MessageView {
	if m == nil {
		return nil
	}
	views := make([]*AttachmentView, 0, len(attachments))
	for _, a := range attachments {
		views = append(views, NewAttachmentView(a))
	}
	return &MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		GroupID:     m.GroupID,
		Content:     m.Content,
		Attachments: views,
		CreatedAt:   m.CreatedAt.Format(timeLayout),
		DeliveredAt: formatNullableTime(m.DeliveredAt),
		ReadAt:      formatNullableTime(m.ReadAt),
	}
}

// SeenNotice 已读事件载荷（message.seen）
// 发往消息发送者，告知哪些消息被谁读过
type SeenNotice struct {
	ReaderID   uint   `json:"reader_id"`
	MessageIDs []uint `json:"message_ids"`
	GroupID    *uint  `json:"group_id,omitempty"`
	ReadAt     string `json:"read_at"`
}

// NewSeenNotice 构造已读事件载荷（时间格式与其他视图一致）
func NewSeenNotice(readerID uint, messageIDs []uint, groupID *uint, readAt time.Time) SeenNotice {
	return SeenNotice{
		ReaderID:   readerID,
		MessageIDs: messageIDs,
		GroupID:    groupID,
		ReadAt:     readAt.Format(timeLayout),
	}
}

// PresenceView 在线用户视图
type PresenceView struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Status   string `json:"status"`
	LastSeen string `json:"last_seen"`
}

// NewPresenceView 构造在线用户视图
func NewPresenceView(userID uint, username, status string, lastSeen time.Time) *PresenceView {
	return &PresenceView{
		UserID:   userID,
		Username: username,
		Status:   status,
		LastSeen: lastSeen.Format(timeLayout),
	}
}

// LoginResponse 登录响应
type LoginResponse struct {
	User        *UserView `json:"user"`
	AccessToken string    `json:"access_token"`
}

// StatsView 用户统计视图
type StatsView struct {
	MessageCount    int64 `json:"message_count"`
	AttachmentCount int64 `json:"attachment_count"`
	LoginCount      int64 `json:"login_count"`
	OnlineSeconds   int64 `json:"online_seconds"`
	UnreadCount     int64 `json:"unread_count"`
}

func formatNullableTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeLayout)
}
