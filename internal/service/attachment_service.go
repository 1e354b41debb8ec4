package service

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chat-system/config"
	"chat-system/internal/apperr"
	"chat-system/internal/model"
	"chat-system/pkg/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

// AttachmentService 附件服务
// 上传期创建未绑定的附件记录；与消息的绑定在消息创建事务内完成
// 图片在存储前统一重编码为JPEG并限制最长边
type AttachmentService struct {
	repo AttachmentRepo
	cfg  config.UploadConfig
}

// NewAttachmentService 创建AttachmentService实例
func NewAttachmentService(repo AttachmentRepo, cfg config.UploadConfig) *AttachmentService {
	return &AttachmentService{repo: repo, cfg: cfg}
}

// Upload 处理一次文件上传
// 按内容嗅探MIME（声明类型仅作兜底），分类为 image/video/audio/other
// 先写存储文件再落记录，记录失败时清理文件，避免半成品可见
func (s *AttachmentService) Upload(ctx context.Context, r io.Reader, originalName, declaredMIME string) (*model.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.cfg.MaxSize+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "read upload failed", err)
	}
	if len(data) == 0 {
		return nil, apperr.New(apperr.KindValidation, "uploaded file is empty")
	}
	if int64(len(data)) > s.cfg.MaxSize {
		return nil, apperr.Newf(apperr.KindValidation, "file exceeds max size %d bytes", s.cfg.MaxSize)
	}

	// 内容嗅探优先于客户端声明
	mime := mimetype.Detect(data).String()
	if mime == "application/octet-stream" && declaredMIME != "" {
		mime = declaredMIME
	}
	fileType := ClassifyMIME(mime)

	ext := strings.ToLower(filepath.Ext(originalName))
	if fileType == model.FileTypeImage {
		if compressed, ok := s.compressImage(data); ok {
			data = compressed
			ext = ".jpg"
		}
	}

	fileName := uuid.New().String() + ext
	if err := os.MkdirAll(s.cfg.Dir, 0755); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "create upload dir failed", err)
	}
	path := filepath.Join(s.cfg.Dir, fileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "write upload failed", err)
	}

	attachment := &model.Attachment{
		FileName:     fileName,
		OriginalName: originalName,
		FileType:     fileType,
		Size:         int64(len(data)),
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		// 记录失败时清理已写入的文件
		_ = os.Remove(path)
		return nil, err
	}
	return attachment, nil
}

// compressImage 图片重编码：限制最长边并转JPEG
// 无法解码时原样存储（嗅探可能把少见图片格式归为image）
func (s *AttachmentService) compressImage(data []byte) ([]byte, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		logger.Warn("图片解码失败，按原始字节存储", zap.Error(err))
		return nil, false
	}

	bounds := img.Bounds()
	maxEdge := s.cfg.ImageMaxEdge
	if maxEdge > 0 && (bounds.Dx() > maxEdge || bounds.Dy() > maxEdge) {
		img = resize.Thumbnail(uint(maxEdge), uint(maxEdge), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
		logger.Warn("图片编码失败，按原始字节存储", zap.Error(err))
		return nil, false
	}
	return buf.Bytes(), true
}

// GetByID 获取附件记录
func (s *AttachmentService) GetByID(ctx context.Context, id uint) (*model.Attachment, error) {
	return s.repo.GetByID(ctx, id)
}

// Remove 删除存储文件（实现 FileStore）
// 文件不存在视为已清理
func (s *AttachmentService) Remove(fileName string) error {
	// 防止路径穿越：只接受裸文件名
	if fileName != filepath.Base(fileName) {
		return apperr.New(apperr.KindValidation, "invalid file name")
	}
	err := os.Remove(filepath.Join(s.cfg.Dir, fileName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClassifyMIME 按MIME主类型分类附件
func ClassifyMIME(mime string) string {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.FileTypeImage
	case strings.HasPrefix(mime, "video/"):
		return model.FileTypeVideo
	case strings.HasPrefix(mime, "audio/"):
		return model.FileTypeAudio
	default:
		return model.FileTypeOther
	}
}
