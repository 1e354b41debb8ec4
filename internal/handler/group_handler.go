package handler

import (
	"strconv"

	"chat-system/internal/service"
	"chat-system/pkg/jwt"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// GroupHandler 群组相关接口
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler 创建GroupHandler实例
func NewGroupHandler(s *service.GroupService) *GroupHandler {
	return &GroupHandler{service: s}
}

// CreateGroup 创建群组（需要JWT认证）
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	type req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Password    string `json:"password"`
		Avatar      string `json:"avatar"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	group, err := h.service.CreateGroup(c.Request.Context(), jwt.GetUserID(c), r.Name, r.Description, r.Password, r.Avatar)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "群组已创建", response.NewGroupView(group))
}

// JoinGroup 加入群组（需要JWT认证）
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	groupID, err := parseIDParam(c, "group_id")
	if err != nil {
		response.BadRequest(c, "invalid group_id")
		return
	}
	type req struct {
		Password string `json:"password"`
	}
	var r req
	// 入群密码可选，空请求体也允许
	_ = c.ShouldBindJSON(&r)

	if err := h.service.JoinGroup(c.Request.Context(), jwt.GetUserID(c), groupID, r.Password); err != nil {
		response.FromError(c, err)
		return
	}
	response.SuccessWithMessage(c, "已加入群组", nil)
}

// SearchGroups 搜索群组（需要JWT认证）
func (h *GroupHandler) SearchGroups(c *gin.Context) {
	groups, err := h.service.SearchGroups(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.NewGroupViews(groups))
}

// Members 群成员列表（需要JWT认证，仅成员可见）
func (h *GroupHandler) Members(c *gin.Context) {
	groupID, err := parseIDParam(c, "group_id")
	if err != nil {
		response.BadRequest(c, "invalid group_id")
		return
	}
	members, err := h.service.Members(c.Request.Context(), jwt.GetUserID(c), groupID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, response.NewUserViews(members))
}

// parseIDParam 解析路径参数中的ID
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, strconv.ErrSyntax
	}
	return uint(id), nil
}
