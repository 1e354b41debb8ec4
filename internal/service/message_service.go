package service

import (
	"context"
	"strings"
	"time"

	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/internal/repository"
	"chat-system/pkg/logger"
	"chat-system/pkg/response"
	"chat-system/pkg/websocket"

	"go.uber.org/zap"
)

// 消息列表单次返回上限
const maxListLimit = 200

// MessageService 消息服务
// 汇集会话寻址、投递状态机与附件绑定三块核心逻辑：
//   - 寻址：每个写请求解析为单聊/群聊目标并做授权
//   - 投递状态机：created -> delivered -> read 单向推进，
//     单聊消息在落库的同时标记送达；群聊消息只经批量已读推进
//   - 绑定：附件与消息的关联在消息创建事务内一次性完成
// delivered_at/read_at 只允许本服务的创建与MarkSeen路径修改
type MessageService struct {
	messageRepo    MessageRepo
	userRepo       UserRepo
	groupRepo      GroupRepo
	attachmentRepo AttachmentRepo
	notifier       Notifier
	files          FileStore
}

// NewMessageService 创建MessageService实例
func NewMessageService(messageRepo MessageRepo, userRepo UserRepo, groupRepo GroupRepo, attachmentRepo AttachmentRepo, notifier Notifier, files FileStore) *MessageService {
	return &MessageService{
		messageRepo:    messageRepo,
		userRepo:       userRepo,
		groupRepo:      groupRepo,
		attachmentRepo: attachmentRepo,
		notifier:       notifier,
		files:          files,
	}
}

// resolveWriteTarget 写寻址：校验目标并授权
// 单聊：接收者必须存在且不是发送者本人
// 群聊：发送者必须是群成员
func (s *MessageService) resolveWriteTarget(ctx context.Context, senderID uint, target model.Target) error {
	switch target.Kind {
	case model.TargetDirect:
		if target.ID == senderID {
			return apperr.New(apperr.KindValidation, "cannot send message to yourself")
		}
		if _, err := s.userRepo.GetByID(ctx, target.ID); err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				return apperr.New(apperr.KindNotFound, "recipient not found")
			}
			return err
		}
		return nil
	case model.TargetGroup:
		isMember, err := s.groupRepo.IsMember(ctx, target.ID, senderID)
		if err != nil {
			return err
		}
		if !isMember {
			return apperr.New(apperr.KindForbidden, "not a member of the group")
		}
		return nil
	default:
		return apperr.New(apperr.KindValidation, "message target is required")
	}
}

// SendMessage 发送消息
// 非空校验：内容与附件不能同时为空
// 消息写入、附件绑定与单聊的初始送达时间戳在同一事务提交；
// 提交成功后向目标接收者推送 message.created 事件（尽力而为）
func (s *MessageService) SendMessage(ctx context.Context, senderID uint, target model.Target, content string, attachmentIDs []uint) (*model.Message, []*model.Attachment, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(attachmentIDs) == 0 {
		return nil, nil, apperr.New(apperr.KindValidation, "message must have content or attachments")
	}

	if err := s.resolveWriteTarget(ctx, senderID, target); err != nil {
		return nil, nil, err
	}

	message := &model.Message{
		SenderID: senderID,
		Content:  content,
	}
	switch target.Kind {
	case model.TargetDirect:
		recipientID := target.ID
		message.RecipientID = &recipientID
		// 没有中间排队层，单聊消息在持久化的同时即视为送达
		now := time.Now()
		message.DeliveredAt = &now
	case model.TargetGroup:
		groupID := target.ID
		message.GroupID = &groupID
		// 群聊消息不自动送达，送达只经批量已读推进
	}

	if err := s.messageRepo.Create(ctx, message, attachmentIDs); err != nil {
		return nil, nil, err
	}

	attachments, err := s.attachmentRepo.ListByMessages(ctx, []uint{message.ID})
	if err != nil {
		// 消息已提交，附件视图查询失败只降级不回滚
		logger.Error("查询消息附件失败", zap.Uint("message_id", message.ID), zap.Error(err))
	}

	evt := websocket.NewEvent(websocket.EventMessageCreated, response.NewMessageView(message, attachments[message.ID]))
	switch target.Kind {
	case model.TargetDirect:
		s.notifier.SendToUser(target.ID, evt)
	case model.TargetGroup:
		memberIDs, err := s.groupRepo.MemberIDs(ctx, target.ID)
		if err != nil {
			logger.Error("查询群成员失败", zap.Uint("group_id", target.ID), zap.Error(err))
			break
		}
		recipients := make([]uint, 0, len(memberIDs))
		for _, id := range memberIDs {
			if id != senderID {
				recipients = append(recipients, id)
			}
		}
		s.notifier.SendToUsers(recipients, evt)
	}

	return message, attachments[message.ID], nil
}

// ListMessages 消息列表（增量拉取）
// 按ID升序返回，since_id 为游标；无过滤时返回调用者可见的全部消息
// 该拉取路径与事件推送互为补充：掉线丢失的事件由此补齐
func (s *MessageService) ListMessages(ctx context.Context, callerID, sinceID uint, target model.Target, limit int) ([]*model.Message, map[uint][]*model.Attachment, error) {
	if target.Kind == model.TargetGroup {
		isMember, err := s.groupRepo.IsMember(ctx, target.ID, callerID)
		if err != nil {
			return nil, nil, err
		}
		if !isMember {
			return nil, nil, apperr.New(apperr.KindForbidden, "not a member of the group")
		}
	}

	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	messages, err := s.messageRepo.List(ctx, repository.ListQuery{
		CallerID: callerID,
		SinceID:  sinceID,
		Target:   target,
		Limit:    limit,
	})
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uint, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	attachments, err := s.attachmentRepo.ListByMessages(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return messages, attachments, nil
}

// MarkSeen 批量标记已读
// 单聊：来自指定对端的全部未读消息；群聊：群内非本人的全部未读消息
// delivered_at 与 read_at 在同一批次内一起推进（read非空必有delivered），
// 重复调用为无操作。推进后向相关发送者推送 message.seen 事件
func (s *MessageService) MarkSeen(ctx context.Context, callerID uint, target model.Target) error {
	now := time.Now()

	var marked []*model.Message
	var err error
	switch target.Kind {
	case model.TargetDirect:
		if _, err := s.userRepo.GetByID(ctx, target.ID); err != nil {
			return err
		}
		marked, err = s.messageRepo.MarkSeenDirect(ctx, callerID, target.ID, now)
	case model.TargetGroup:
		isMember, memberErr := s.groupRepo.IsMember(ctx, target.ID, callerID)
		if memberErr != nil {
			return memberErr
		}
		if !isMember {
			return apperr.New(apperr.KindForbidden, "not a member of the group")
		}
		marked, err = s.messageRepo.MarkSeenGroup(ctx, callerID, target.ID, now)
	default:
		return apperr.New(apperr.KindValidation, "mark seen target is required")
	}
	if err != nil {
		return err
	}
	if len(marked) == 0 {
		return nil
	}

	// 按发送者聚合，通知各自的消息被读
	bySender := make(map[uint][]uint)
	for _, m := range marked {
		bySender[m.SenderID] = append(bySender[m.SenderID], m.ID)
	}
	var groupID *uint
	if target.Kind == model.TargetGroup {
		id := target.ID
		groupID = &id
	}
	for senderID, messageIDs := range bySender {
		notice := response.NewSeenNotice(callerID, messageIDs, groupID, now)
		s.notifier.SendToUser(senderID, websocket.NewEvent(websocket.EventMessageSeen, notice))
	}
	return nil
}

// EditMessage 编辑消息内容
// 仅发送者可编辑；编辑不重置投递/已读状态
// 清空内容仅在消息带附件时允许
func (s *MessageService) EditMessage(ctx context.Context, senderID, messageID uint, content string) (*model.Message, error) {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != senderID {
		return nil, apperr.New(apperr.KindForbidden, "only the sender can edit the message")
	}

	content = strings.TrimSpace(content)
	if content == "" {
		attachments, err := s.attachmentRepo.ListByMessages(ctx, []uint{messageID})
		if err != nil {
			return nil, err
		}
		if len(attachments[messageID]) == 0 {
			return nil, apperr.New(apperr.KindValidation, "message must have content or attachments")
		}
	}

	if err := s.messageRepo.UpdateContent(ctx, messageID, content); err != nil {
		return nil, err
	}
	message.Content = content
	return message, nil
}

// DeleteMessage 删除消息
// 仅发送者可删除；消息与其附件记录在同一事务内硬删除，
// 附件存储文件在提交后清理（清理失败仅记日志）
func (s *MessageService) DeleteMessage(ctx context.Context, senderID, messageID uint) error {
	message, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != senderID {
		return apperr.New(apperr.KindForbidden, "only the sender can delete the message")
	}

	fileNames, err := s.messageRepo.Delete(ctx, messageID)
	if err != nil {
		return err
	}
	for _, name := range fileNames {
		if err := s.files.Remove(name); err != nil {
			logger.Error("删除附件文件失败", zap.String("file", name), zap.Error(err))
		}
	}
	return nil
}
