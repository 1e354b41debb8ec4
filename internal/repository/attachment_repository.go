package repository

import (
	"context"
	"errors"

	"chat-system/internal/apperr"
	"chat-system/internal/model"

	"gorm.io/gorm"
)

// AttachmentRepository 附件数据仓储
// 绑定写入发生在消息创建事务内（见MessageRepository.Create），
// 这里只负责上传期与查询期的记录管理
type AttachmentRepository struct {
	orm *gorm.DB
}

// NewAttachmentRepository 创建AttachmentRepository实例
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{orm: db}
}

// Create 创建附件记录（上传时，未绑定）
func (r *AttachmentRepository) Create(ctx context.Context, attachment *model.Attachment) error {
	if err := r.orm.WithContext(ctx).Create(attachment).Error; err != nil {
		return apperr.Wrap(apperr.KindStorage, "create attachment failed", err)
	}
	return nil
}

// GetByID 根据ID获取附件
func (r *AttachmentRepository) GetByID(ctx context.Context, id uint) (*model.Attachment, error) {
	var a model.Attachment
	if err := r.orm.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "attachment not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "query attachment failed", err)
	}
	return &a, nil
}

// ListByMessages 批量获取多条消息的附件
func (r *AttachmentRepository) ListByMessages(ctx context.Context, messageIDs []uint) (map[uint][]*model.Attachment, error) {
	result := make(map[uint][]*model.Attachment)
	if len(messageIDs) == 0 {
		return result, nil
	}
	var attachments []*model.Attachment
	if err := r.orm.WithContext(ctx).
		Where("message_id IN ?", messageIDs).
		Order("id ASC").
		Find(&attachments).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query attachments failed", err)
	}
	for _, a := range attachments {
		if a.MessageID == nil {
			continue
		}
		result[*a.MessageID] = append(result[*a.MessageID], a)
	}
	return result, nil
}

// CountBySender 统计用户消息附带的附件数
func (r *AttachmentRepository) CountBySender(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.orm.WithContext(ctx).Model(&model.Attachment{}).
		Joins("JOIN message ON message.id = attachment.message_id").
		Where("message.sender_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "count attachments failed", err)
	}
	return count, nil
}
