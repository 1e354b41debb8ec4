package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chat-system/config"
	"chat-system/internal/apperr"
	"chat-system/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestAttachmentService(t *testing.T, f *fixture) *AttachmentService {
	t.Helper()
	return NewAttachmentService(f.atts, config.UploadConfig{
		Dir:          t.TempDir(),
		MaxSize:      1 << 20,
		ImageMaxEdge: 64,
		JPEGQuality:  85,
	})
}

// pngBytes 生成一张纯色PNG
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUpload_ImageRecompressedToJPEG(t *testing.T) {
	f := newFixture()
	svc := newTestAttachmentService(t, f)

	data := pngBytes(t, 200, 100)
	att, err := svc.Upload(context.Background(), bytes.NewReader(data), "big.png", "image/png")
	require.NoError(t, err)
	require.Equal(t, model.FileTypeImage, att.FileType)
	require.Equal(t, "big.png", att.OriginalName)
	require.True(t, strings.HasSuffix(att.FileName, ".jpg"))
	require.Nil(t, att.MessageID)

	// 存储文件为JPEG且最长边被限制
	stored, err := os.ReadFile(filepath.Join(svc.cfg.Dir, att.FileName))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	require.LessOrEqual(t, img.Bounds().Dx(), 64)
	require.LessOrEqual(t, img.Bounds().Dy(), 64)
	require.Equal(t, int64(len(stored)), att.Size)
}

func TestUpload_SmallImageNotResized(t *testing.T) {
	f := newFixture()
	svc := newTestAttachmentService(t, f)

	att, err := svc.Upload(context.Background(), bytes.NewReader(pngBytes(t, 32, 16)), "small.png", "")
	require.NoError(t, err)

	stored, err := os.ReadFile(filepath.Join(svc.cfg.Dir, att.FileName))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(stored))
	require.NoError(t, err)
	require.Equal(t, 32, img.Bounds().Dx())
	require.Equal(t, 16, img.Bounds().Dy())
}

func TestUpload_NonImageStoredVerbatim(t *testing.T) {
	f := newFixture()
	svc := newTestAttachmentService(t, f)

	data := []byte("%PDF-1.4 not really a pdf but close enough")
	att, err := svc.Upload(context.Background(), bytes.NewReader(data), "report.pdf", "application/pdf")
	require.NoError(t, err)
	require.Equal(t, model.FileTypeOther, att.FileType)
	require.True(t, strings.HasSuffix(att.FileName, ".pdf"))

	stored, err := os.ReadFile(filepath.Join(svc.cfg.Dir, att.FileName))
	require.NoError(t, err)
	require.Equal(t, data, stored)
}

func TestUpload_RejectsEmptyAndOversize(t *testing.T) {
	f := newFixture()
	svc := NewAttachmentService(f.atts, config.UploadConfig{
		Dir:         t.TempDir(),
		MaxSize:     16,
		JPEGQuality: 85,
	})

	_, err := svc.Upload(context.Background(), bytes.NewReader(nil), "empty.bin", "")
	require.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = svc.Upload(context.Background(), bytes.NewReader(make([]byte, 32)), "big.bin", "")
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestRemove(t *testing.T) {
	f := newFixture()
	svc := newTestAttachmentService(t, f)

	att, err := svc.Upload(context.Background(), bytes.NewReader([]byte("some bytes")), "note.txt", "")
	require.NoError(t, err)
	path := filepath.Join(svc.cfg.Dir, att.FileName)
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(att.FileName))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))

	// 文件已不存在视为已清理
	require.NoError(t, svc.Remove(att.FileName))

	// 拒绝带路径的文件名
	err = svc.Remove("../" + att.FileName)
	require.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestClassifyMIME(t *testing.T) {
	require.Equal(t, model.FileTypeImage, ClassifyMIME("image/png"))
	require.Equal(t, model.FileTypeVideo, ClassifyMIME("video/mp4"))
	require.Equal(t, model.FileTypeAudio, ClassifyMIME("audio/mpeg"))
	require.Equal(t, model.FileTypeOther, ClassifyMIME("application/pdf"))
	require.Equal(t, model.FileTypeOther, ClassifyMIME(""))
}
