package repository

import (
	"context"
	"errors"
	"time"

	"chat-system/internal/apperr"
	"chat-system/internal/model"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
// 投递/已读时间戳只通过 Create 与 MarkSeen* 两条路径写入
type MessageRepository struct {
	orm *gorm.DB
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{orm: db}
}

// ListQuery 消息列表查询参数
// Target 为零值时返回调用者可见的全部消息：
// 自己发送的 + 直接收到的 + 所属群组内的
type ListQuery struct {
	CallerID uint
	SinceID  uint
	Target   model.Target
	Limit    int
}

// Create 创建消息并绑定附件（同一事务）
// 消息落库、附件绑定、初始送达时间戳作为一个原子单元提交，
// 中途失败整体回滚，不会留下声称拥有附件却未绑定成功的消息
func (r *MessageRepository) Create(ctx context.Context, message *model.Message, attachmentIDs []uint) error {
	err := r.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return apperr.Wrap(apperr.KindStorage, "create message failed", err)
		}
		for _, id := range attachmentIDs {
			var att model.Attachment
			if err := tx.First(&att, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.Newf(apperr.KindNotFound, "attachment %d not found", id)
				}
				return apperr.Wrap(apperr.KindStorage, "query attachment failed", err)
			}
			need, err := att.BindTo(message.ID)
			if err != nil {
				return err
			}
			if !need {
				continue
			}
			// 带守卫条件的原子写入：并发发送争抢同一附件时只有一方能绑定成功，
			// 落败方匹配零行（对端已持有或已提交绑定），按冲突处理
			res := tx.Model(&model.Attachment{}).
				Where("id = ? AND message_id IS NULL", att.ID).
				Update("message_id", message.ID)
			if res.Error != nil {
				return apperr.Wrap(apperr.KindStorage, "bind attachment failed", res.Error)
			}
			if res.RowsAffected == 0 {
				return apperr.Newf(apperr.KindConflict, "attachment %d already bound to another message", att.ID)
			}
		}
		return nil
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindStorage {
			return err
		}
		return apperr.Wrap(apperr.KindStorage, "create message failed", err)
	}
	return nil
}

// GetByID 根据ID获取消息
func (r *MessageRepository) GetByID(ctx context.Context, id uint) (*model.Message, error) {
	var message model.Message
	if err := r.orm.WithContext(ctx).First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "message not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "query message failed", err)
	}
	return &message, nil
}

// List 查询消息列表
// 始终按ID升序（单调递增序号），since_id 作为增量拉取游标
func (r *MessageRepository) List(ctx context.Context, q ListQuery) ([]*model.Message, error) {
	db := r.orm.WithContext(ctx).Model(&model.Message{})

	switch q.Target.Kind {
	case model.TargetDirect:
		// 与指定对端之间的双向单聊消息
		db = db.Where(
			"group_id IS NULL AND ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))",
			q.CallerID, q.Target.ID, q.Target.ID, q.CallerID,
		)
	case model.TargetGroup:
		db = db.Where("group_id = ?", q.Target.ID)
	default:
		// 无过滤：自己发送的 + 直接收到的 + 所属群组内的
		db = db.Where(
			"sender_id = ? OR recipient_id = ? OR group_id IN (SELECT group_id FROM group_member WHERE user_id = ?)",
			q.CallerID, q.CallerID, q.CallerID,
		)
	}

	if q.SinceID > 0 {
		db = db.Where("id > ?", q.SinceID)
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var messages []*model.Message
	if err := db.Order("id ASC").Find(&messages).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list messages failed", err)
	}
	return messages, nil
}

// MarkSeenDirect 批量标记来自指定对端的单聊消息为已读
// 单条UPDATE语句保证批次原子性；delivered_at 与 read_at 同步推进，
// 不会出现已读而未送达的中间态。重复调用匹配零行，天然幂等
// 返回本次推进的消息（用于通知发送者）
func (r *MessageRepository) MarkSeenDirect(ctx context.Context, callerID, peerID uint, now time.Time) ([]*model.Message, error) {
	var marked []*model.Message
	err := r.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"group_id IS NULL AND sender_id = ? AND recipient_id = ? AND read_at IS NULL",
			peerID, callerID,
		).Find(&marked).Error; err != nil {
			return err
		}
		if len(marked) == 0 {
			return nil
		}
		ids := messageIDs(marked)
		return tx.Model(&model.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", now),
				"read_at":      now,
			}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "mark seen failed", err)
	}
	applySeen(marked, now)
	return marked, nil
}

// MarkSeenGroup 批量标记群内非本人消息为已读
func (r *MessageRepository) MarkSeenGroup(ctx context.Context, callerID, groupID uint, now time.Time) ([]*model.Message, error) {
	var marked []*model.Message
	err := r.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(
			"group_id = ? AND sender_id <> ? AND read_at IS NULL",
			groupID, callerID,
		).Find(&marked).Error; err != nil {
			return err
		}
		if len(marked) == 0 {
			return nil
		}
		ids := messageIDs(marked)
		return tx.Model(&model.Message{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", now),
				"read_at":      now,
			}).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "mark seen failed", err)
	}
	applySeen(marked, now)
	return marked, nil
}

// UpdateContent 修改消息内容（不触碰投递状态）
func (r *MessageRepository) UpdateContent(ctx context.Context, messageID uint, content string) error {
	if err := r.orm.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("content", content).Error; err != nil {
		return apperr.Wrap(apperr.KindStorage, "update message failed", err)
	}
	return nil
}

// Delete 删除消息并级联删除附件记录（同一事务）
// 返回被删除附件的存储文件名，文件本体由调用方在提交后清理
func (r *MessageRepository) Delete(ctx context.Context, messageID uint) ([]string, error) {
	var fileNames []string
	err := r.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var attachments []*model.Attachment
		if err := tx.Where("message_id = ?", messageID).Find(&attachments).Error; err != nil {
			return err
		}
		for _, a := range attachments {
			fileNames = append(fileNames, a.FileName)
		}
		if err := tx.Where("message_id = ?", messageID).Delete(&model.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Message{}, messageID).Error
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "delete message failed", err)
	}
	return fileNames, nil
}

// ChattedPeerIDs 与调用者有过单聊往来的用户ID集合（双向去重）
func (r *MessageRepository) ChattedPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.orm.WithContext(ctx).Raw(`
		SELECT DISTINCT peer_id FROM (
			SELECT recipient_id AS peer_id FROM message WHERE sender_id = ? AND recipient_id IS NOT NULL
			UNION
			SELECT sender_id AS peer_id FROM message WHERE recipient_id = ?
		) peers ORDER BY peer_id ASC`,
		userID, userID,
	).Scan(&ids).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "query chatted peers failed", err)
	}
	return ids, nil
}

// CountBySender 统计用户发送的消息数
func (r *MessageRepository) CountBySender(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.orm.WithContext(ctx).Model(&model.Message{}).
		Where("sender_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "count messages failed", err)
	}
	return count, nil
}

// CountUnread 统计直接发给用户且未读的消息数
func (r *MessageRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := r.orm.WithContext(ctx).Model(&model.Message{}).
		Where("recipient_id = ? AND read_at IS NULL", userID).
		Count(&count).Error; err != nil {
		return 0, apperr.Wrap(apperr.KindStorage, "count unread failed", err)
	}
	return count, nil
}

func messageIDs(messages []*model.Message) []uint {
	ids := make([]uint, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	return ids
}

// applySeen 将已提交的时间戳回填到内存对象，供调用方构造事件载荷
func applySeen(messages []*model.Message, now time.Time) {
	for _, m := range messages {
		if m.DeliveredAt == nil {
			t := now
			m.DeliveredAt = &t
		}
		t := now
		m.ReadAt = &t
	}
}
