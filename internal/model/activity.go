package model

import "time"

// 活动类型
const (
	ActivityLogin  = "login"
	ActivityOnline = "online"
)

// UserActivity 用户活动记录
// login 在每次登录时写入；online 由客户端心跳上报并携带在线时长
// 仅用于统计视图，不参与消息核心的正确性

type UserActivity struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index;comment:用户ID"`
	Action    string    `gorm:"type:varchar(50);not null;comment:活动类型"`
	Duration  int64     `gorm:"default:0;comment:在线时长(秒)"`
	CreatedAt time.Time `gorm:"comment:记录时间"`
}

func (UserActivity) TableName() string { return "user_activity" }
