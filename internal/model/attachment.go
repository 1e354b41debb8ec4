package model

import (
	"time"

	"chat-system/internal/apperr"
)

// 附件分类类型
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
	FileTypeAudio = "audio"
	FileTypeOther = "other"
)

// Attachment 附件模型
// 上传时独立创建（MessageID 为空），随后最多绑定到一条消息
// 绑定一旦建立不可变更；删除所属消息时级联删除附件记录与存储文件

type Attachment struct {
	ID           uint      `gorm:"primaryKey"`
	MessageID    *uint     `gorm:"index;comment:所属消息ID(未绑定为空)"`
	FileName     string    `gorm:"type:varchar(255);not null;comment:存储文件名"`
	OriginalName string    `gorm:"type:varchar(255);comment:原始文件名"`
	FileType     string    `gorm:"type:varchar(20);not null;comment:附件类型"`
	Size         int64     `gorm:"comment:文件大小(字节)"`
	CreatedAt    time.Time `gorm:"comment:上传时间"`
}

func (Attachment) TableName() string { return "attachment" }

// BindTo 判定附件能否绑定到指定消息
// 返回是否需要写入绑定：重复绑定同一消息为无操作（幂等）
// 已绑定到其他消息则报冲突，禁止附件跨消息复用
func (a *Attachment) BindTo(messageID uint) (bool, error) {
	if a.MessageID == nil {
		return true, nil
	}
	if *a.MessageID == messageID {
		return false, nil
	}
	return false, apperr.Newf(apperr.KindConflict, "attachment %d already bound to message %d", a.ID, *a.MessageID)
}
