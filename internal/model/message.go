package model

import "time"

// Message 消息模型
// RecipientID/GroupID 恰好设置其一（写入前由 Target 保证）
// ID 自增，兼作会话内单调递增的游标序号；排序只依赖 ID，时间戳仅作展示
// 投递状态不变式：ReadAt 非空则 DeliveredAt 必非空，且 DeliveredAt <= ReadAt
// 仅消息服务的创建与批量已读路径允许推进 DeliveredAt/ReadAt

type Message struct {
	ID          uint       `gorm:"primaryKey"`
	SenderID    uint       `gorm:"not null;index;comment:发送者ID"`
	RecipientID *uint      `gorm:"index;comment:接收者ID(单聊)"`
	GroupID     *uint      `gorm:"index;comment:群组ID(群聊)"`
	Content     string     `gorm:"type:text;comment:消息内容"`
	DeliveredAt *time.Time `gorm:"comment:送达时间"`
	ReadAt      *time.Time `gorm:"comment:已读时间"`
	CreatedAt   time.Time  `gorm:"comment:创建时间"`
	UpdatedAt   time.Time  `gorm:"comment:更新时间"`
}

func (Message) TableName() string { return "message" }

// Target 返回消息的会话目标
func (m *Message) Target() Target {
	if m.GroupID != nil {
		return GroupTarget(*m.GroupID)
	}
	if m.RecipientID != nil {
		return DirectTarget(*m.RecipientID)
	}
	return Target{}
}
