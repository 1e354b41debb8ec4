package model

import "time"

// Group 群组模型
// PasswordHash 为空表示开放群组，任意凭证均可加入
// 创建者自创建起即为成员（与群组记录同一事务写入成员表）

type Group struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(100);not null;index;comment:群组名称"`
	Description  string    `gorm:"type:text;comment:群组描述"`
	Avatar       string    `gorm:"type:varchar(255);comment:群头像URL"`
	CreatorID    uint      `gorm:"not null;index;comment:创建者ID"`
	PasswordHash string    `gorm:"type:varchar(255);comment:入群密码哈希(空为开放群)"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

func (Group) TableName() string { return "group" }

// GroupMember 群成员关系
// (GroupID, UserID) 唯一索引用于并发加入时的原子去重
type GroupMember struct {
	ID        uint      `gorm:"primaryKey"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_member;comment:群组ID"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_group_member;index;comment:用户ID"`
	CreatedAt time.Time `gorm:"comment:加入时间"`
}

func (GroupMember) TableName() string { return "group_member" }
