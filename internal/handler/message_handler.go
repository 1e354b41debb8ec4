package handler

import (
	"strconv"

	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/internal/service"
	"chat-system/pkg/jwt"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息相关接口
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler 创建MessageHandler实例
func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// SendMessage 发送消息（需要JWT认证）
// recipient_id 与 group_id 恰好指定其一
func (h *MessageHandler) SendMessage(c *gin.Context) {
	type req struct {
		Content       string `json:"content"`
		RecipientID   *uint  `json:"recipient_id"`
		GroupID       *uint  `json:"group_id"`
		AttachmentIDs []uint `json:"attachment_ids"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	target, err := model.ParseTarget(r.RecipientID, r.GroupID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	message, attachments, err := h.service.SendMessage(c.Request.Context(), jwt.GetUserID(c), target, r.Content, r.AttachmentIDs)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已发送", response.NewMessageView(message, attachments))
}

// ListMessages 消息列表（需要JWT认证）
// 无过滤时返回调用者可见的全部消息；since_id 为增量游标
func (h *MessageHandler) ListMessages(c *gin.Context) {
	var sinceID uint
	if v := c.Query("since_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			response.BadRequest(c, "invalid since_id")
			return
		}
		sinceID = uint(id)
	}

	target, err := parseOptionalTarget(c)
	if err != nil {
		response.FromError(c, err)
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	messages, attachments, err := h.service.ListMessages(c.Request.Context(), jwt.GetUserID(c), sinceID, target, limit)
	if err != nil {
		response.FromError(c, err)
		return
	}

	views := make([]*response.MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, response.NewMessageView(m, attachments[m.ID]))
	}
	response.Success(c, views)
}

// EditMessage 编辑消息（需要JWT认证，仅发送者）
func (h *MessageHandler) EditMessage(c *gin.Context) {
	messageID, err := parseIDParam(c, "message_id")
	if err != nil {
		response.BadRequest(c, "invalid message_id")
		return
	}
	type req struct {
		Content string `json:"content"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	message, err := h.service.EditMessage(c.Request.Context(), jwt.GetUserID(c), messageID, r.Content)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已更新", response.NewMessageView(message, nil))
}

// DeleteMessage 删除消息（需要JWT认证，仅发送者，附件级联删除）
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID, err := parseIDParam(c, "message_id")
	if err != nil {
		response.BadRequest(c, "invalid message_id")
		return
	}
	if err := h.service.DeleteMessage(c.Request.Context(), jwt.GetUserID(c), messageID); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "消息已删除", nil)
}

// MarkSeen 批量标记已读（需要JWT认证）
// peer_id 与 group_id 恰好指定其一
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	type req struct {
		PeerID  *uint `json:"peer_id"`
		GroupID *uint `json:"group_id"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	target, err := model.ParseTarget(r.PeerID, r.GroupID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	if err := h.service.MarkSeen(c.Request.Context(), jwt.GetUserID(c), target); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已标记已读", nil)
}

// parseOptionalTarget 从查询参数解析可选的会话目标
// 两者均未指定时返回零值目标（表示不过滤）
func parseOptionalTarget(c *gin.Context) (model.Target, error) {
	var recipientID, groupID *uint
	if v := c.Query("recipient_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return model.Target{}, apperr.New(apperr.KindValidation, "invalid recipient_id")
		}
		u := uint(id)
		recipientID = &u
	}
	if v := c.Query("group_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return model.Target{}, apperr.New(apperr.KindValidation, "invalid group_id")
		}
		u := uint(id)
		groupID = &u
	}
	if recipientID == nil && groupID == nil {
		return model.Target{}, nil
	}
	return model.ParseTarget(recipientID, groupID)
}
