package model

import "chat-system/internal/apperr"

// TargetKind 会话目标类型
type TargetKind int

const (
	TargetNone   TargetKind = iota
	TargetDirect            // 单聊：目标为对端用户
	TargetGroup             // 群聊：目标为群组
)

// Target 会话目标（单聊/群聊二选一的标签联合）
// 用类型保证"恰好指定一个目标"，取代两个可空外键的运行时判断
type Target struct {
	Kind TargetKind
	ID   uint // 用户ID或群组ID，取决于Kind
}

// DirectTarget 构造单聊目标
func DirectTarget(userID uint) Target {
	return Target{Kind: TargetDirect, ID: userID}
}

// GroupTarget 构造群聊目标
func GroupTarget(groupID uint) Target {
	return Target{Kind: TargetGroup, ID: groupID}
}

// IsZero 是否未指定目标
func (t Target) IsZero() bool { return t.Kind == TargetNone }

// ParseTarget 从一对可空ID解析目标
// 两者同时指定或均未指定都是校验错误
func ParseTarget(recipientID, groupID *uint) (Target, error) {
	switch {
	case recipientID != nil && groupID != nil:
		return Target{}, apperr.New(apperr.KindValidation, "message target is ambiguous: both recipient_id and group_id given")
	case recipientID != nil:
		if *recipientID == 0 {
			return Target{}, apperr.New(apperr.KindValidation, "recipient_id is invalid")
		}
		return DirectTarget(*recipientID), nil
	case groupID != nil:
		if *groupID == 0 {
			return Target{}, apperr.New(apperr.KindValidation, "group_id is invalid")
		}
		return GroupTarget(*groupID), nil
	default:
		return Target{}, apperr.New(apperr.KindValidation, "message target is required: recipient_id or group_id")
	}
}
