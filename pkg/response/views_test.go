package response

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"chat-system/internal/model"

	"github.com/stretchr/testify/require"
)

func TestNewUserView_HidesSensitiveFields(t *testing.T) {
	user := &model.User{
		ID:           1,
		Username:     "alice",
		Nickname:     "Alice",
		PasswordHash: "$2a$10$secret",
		Status:       model.StatusOnline,
		LastSeen:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	view := NewUserView(user)
	require.Equal(t, "2025-06-01 12:00:00", view.LastSeen)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "secret"))

	require.Nil(t, NewUserView(nil))
}

func TestNewGroupView_PasswordFlagOnly(t *testing.T) {
	open := NewGroupView(&model.Group{ID: 1, Name: "team"})
	require.False(t, open.HasPassword)

	locked := NewGroupView(&model.Group{ID: 2, Name: "club", PasswordHash: "$2a$10$hash"})
	require.True(t, locked.HasPassword)

	data, err := json.Marshal(locked)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "hash"))
}

func TestNewMessageView_NullableTimestamps(t *testing.T) {
	recipient := uint(2)
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	delivered := created.Add(time.Second)

	msg := &model.Message{
		ID:          10,
		SenderID:    1,
		RecipientID: &recipient,
		Content:     "hello",
		CreatedAt:   created,
		DeliveredAt: &delivered,
	}
	view := NewMessageView(msg, nil)
	require.Equal(t, "2025-06-01 12:00:01", view.DeliveredAt)
	require.Equal(t, "", view.ReadAt)
	require.NotNil(t, view.Attachments)
	require.Empty(t, view.Attachments)

	// 未送达/未读的时间戳不出现在JSON里
	data, err := json.Marshal(view)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "read_at"))
	require.True(t, strings.Contains(string(data), "delivered_at"))
	require.False(t, strings.Contains(string(data), "group_id"))
}

func TestNewSeenNotice_SharesCanonicalTimeFormat(t *testing.T) {
	readAt := time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC)
	groupID := uint(5)

	notice := NewSeenNotice(2, []uint{10, 11}, &groupID, readAt)
	require.Equal(t, uint(2), notice.ReaderID)
	require.Equal(t, []uint{10, 11}, notice.MessageIDs)
	require.Equal(t, "2025-06-01 12:00:01", notice.ReadAt)

	// 与消息视图的时间格式一致
	msg := &model.Message{ID: 10, SenderID: 1, ReadAt: &readAt, CreatedAt: readAt}
	require.Equal(t, NewMessageView(msg, nil).ReadAt, notice.ReadAt)

	// 单聊通知不带群组ID
	direct := NewSeenNotice(2, []uint{10}, nil, readAt)
	data, err := json.Marshal(direct)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(data), "group_id"))
}

func TestNewPresenceView(t *testing.T) {
	view := NewPresenceView(3, "carol", "online", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	require.Equal(t, uint(3), view.UserID)
	require.Equal(t, "carol", view.Username)
	require.Equal(t, "online", view.Status)
	require.Equal(t, "2025-06-01 12:00:00", view.LastSeen)
}

func TestNewMessageView_WithAttachments(t *testing.T) {
	groupID := uint(5)
	msg := &model.Message{ID: 10, SenderID: 1, GroupID: &groupID, Content: "photo"}
	msgID := msg.ID
	atts := []*model.Attachment{
		{ID: 3, MessageID: &msgID, FileName: "abc.jpg", OriginalName: "photo.jpg", FileType: model.FileTypeImage, Size: 1024},
	}

	view := NewMessageView(msg, atts)
	require.Len(t, view.Attachments, 1)
	require.Equal(t, "/uploads/abc.jpg", view.Attachments[0].URL)
	require.Equal(t, "photo.jpg", view.Attachments[0].OriginalName)
}
