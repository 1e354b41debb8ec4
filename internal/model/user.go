package model

import (
	"fmt"
	"time"
)

// User 用户模型
// 用户名唯一；密码仅存储哈希（PasswordHash），不存储明文
// Status 标记在线/离线，LastSeen 为最近在线时间
// 本核心不做硬删除（停用属于外部关注点）

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Username     string    `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Nickname     string    `gorm:"type:varchar(64);comment:昵称"`
	Avatar       string    `gorm:"type:varchar(255);comment:头像URL"`
	PasswordHash string    `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Status       string    `gorm:"type:varchar(32);default:'offline';comment:在线状态"`
	LastSeen     time.Time `gorm:"comment:最近在线时间"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

func (User) TableName() string { return "user" }

// 在线状态常量
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DefaultNickname 生成默认昵称占位符
func DefaultNickname(username string) string {
	return fmt.Sprintf("用户_%s", username)
}
