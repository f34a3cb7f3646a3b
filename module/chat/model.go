package chat

import "time"

type Channel struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DefaultThreadTitle is the thread every channel is born with.
const DefaultThreadTitle = "main"

type Thread struct {
	ID        int64     `db:"id" json:"id"`
	ChannelID int64     `db:"channel_id" json:"channel_id"`
	Title     string    `db:"title" json:"title"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Message struct {
	ID         int64     `db:"id" json:"id"`
	ThreadID   int64     `db:"thread_id" json:"thread_id"`
	UserID     int64     `db:"user_id" json:"user_id"`
	Content    string    `db:"content" json:"content"`
	ReplyCount int       `db:"reply_count" json:"reply_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// MessageView is the denormalized shape every message payload and event
// carries, so subscribers can render without a follow-up fetch.
type MessageView struct {
	Message
	UserName    string `db:"user_name" json:"user_name"`
	ChannelID   int64  `db:"channel_id" json:"channel_id"`
	ChannelName string `db:"channel_name" json:"channel_name"`
	ThreadTitle string `db:"thread_title" json:"thread_title"`
}

type Reply struct {
	ID        int64     `db:"id" json:"id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ReplyView struct {
	Reply
	UserName    string `db:"user_name" json:"user_name"`
	ThreadID    int64  `db:"thread_id" json:"thread_id"`
	ChannelID   int64  `db:"channel_id" json:"channel_id"`
	ChannelName string `db:"channel_name" json:"channel_name"`
	ThreadTitle string `db:"thread_title" json:"thread_title"`
}

// ReadCursor is purely advisory; it feeds client-side unread computation.
type ReadCursor struct {
	UserID        int64 `db:"user_id" json:"user_id"`
	ThreadID      int64 `db:"thread_id" json:"thread_id"`
	LastMessageID int64 `db:"last_message_id" json:"last_message_id"`
}
