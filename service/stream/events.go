package stream

// EventType tags every frame pushed to subscribed clients.
type EventType string

const (
	// EventConnected acknowledges a new subscription.
	EventConnected EventType = "connected"
	// EventPing is the periodic keep-alive.
	EventPing EventType = "ping"

	EventChannelCreated EventType = "channel_created"
	EventThreadCreated  EventType = "thread_created"
	EventMessageCreated EventType = "message_created"
	EventMessageUpdated EventType = "message_updated"
	EventMessageDeleted EventType = "message_deleted"
	EventReplyCreated   EventType = "reply_created"
	EventReplyUpdated   EventType = "reply_updated"
	EventReplyDeleted   EventType = "reply_deleted"
	EventTaskCreated    EventType = "task_created"
	EventTaskUpdated    EventType = "task_updated"
	EventTaskDeleted    EventType = "task_deleted"
)

// Frame is one event on the push channel. Entity payloads are the
// denormalized view structs owned by the domain modules; deletion frames
// carry bare identifiers so clients can reconcile without a fetch.
type Frame struct {
	Type EventType `json:"type"`

	ConnID string `json:"conn_id,omitempty"`

	Channel interface{} `json:"channel,omitempty"`
	Thread  interface{} `json:"thread,omitempty"`
	Message interface{} `json:"message,omitempty"`
	Reply   interface{} `json:"reply,omitempty"`
	Task    interface{} `json:"task,omitempty"`

	ID        int64 `json:"id,omitempty"`
	MessageID int64 `json:"message_id,omitempty"`
	ChannelID int64 `json:"channel_id,omitempty"`
	ThreadID  int64 `json:"thread_id,omitempty"`
	TaskID    int64 `json:"task_id,omitempty"`
}

// Broadcaster is what the domain services emit through. Emission is
// best-effort: failures never propagate back to the command.
type Broadcaster interface {
	Emit(f Frame)
}

// Nop discards every frame. Handy for tests and the migrate command.
type Nop struct{}

func (Nop) Emit(Frame) {}
