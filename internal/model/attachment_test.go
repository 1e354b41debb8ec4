package model

import (
	"testing"

	"chat-system/internal/apperr"

	"github.com/stretchr/testify/require"
)

func TestAttachmentBindTo(t *testing.T) {
	// 未绑定：需要写入
	att := &Attachment{ID: 1}
	need, err := att.BindTo(10)
	require.NoError(t, err)
	require.True(t, need)

	// 重复绑定同一消息：幂等，无需写入
	bound := uint(10)
	att.MessageID = &bound
	need, err = att.BindTo(10)
	require.NoError(t, err)
	require.False(t, need)

	// 已绑定到其他消息：冲突
	_, err = att.BindTo(11)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
}
