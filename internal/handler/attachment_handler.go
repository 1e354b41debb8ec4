package handler

import (
	"chat-system/internal/service"
	"chat-system/pkg/response"

	"github.com/gin-gonic/gin"
)

// AttachmentHandler 附件上传接口
type AttachmentHandler struct {
	service *service.AttachmentService
}

// NewAttachmentHandler 创建AttachmentHandler实例
func NewAttachmentHandler(s *service.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{service: s}
}

// Upload 附件上传（需要JWT认证，multipart）
// 支持一次上传多个文件，返回各自的附件ID与分类类型
// 上传得到的附件处于未绑定状态，发送消息时通过 attachment_ids 关联
func (h *AttachmentHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "解析上传表单失败")
		return
	}
	files := form.File["files"]
	if len(files) == 0 {
		response.BadRequest(c, "未选择任何文件")
		return
	}

	views := make([]*response.AttachmentView, 0, len(files))
	for _, fileHeader := range files {
		f, err := fileHeader.Open()
		if err != nil {
			response.BadRequest(c, "读取上传文件失败")
			return
		}
		attachment, err := h.service.Upload(c.Request.Context(), f, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
		f.Close()
		if err != nil {
			response.FromError(c, err)
			return
		}
		views = append(views, response.NewAttachmentView(attachment))
	}

	response.SuccessWithMessage(c, "上传成功", gin.H{"attachments": views})
}
