package websocket

import "encoding/json"

// 事件类型
// 事件通道为尽力而为、至多一次投递；客户端掉线期间丢失的事件
// 通过 since_id 游标拉取路径补齐，仓储层始终是权威数据源
const (
	EventUserOnline     = "user.online"
	EventUserOffline    = "user.offline"
	EventMessageCreated = "message.created"
	EventMessageSeen    = "message.seen"
)

// Event 实时事件信封
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NewEvent 构造事件
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload}
}

// Encode 序列化事件
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
