package task

import "time"

type Status string

const (
	StatusOpen  Status = "open"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Task is derived from exactly one message. updated_at moves on every
// change and doubles as the retention clock for done-task visibility.
type Task struct {
	ID        int64     `db:"id" json:"id"`
	MessageID int64     `db:"message_id" json:"message_id"`
	ChannelID int64     `db:"channel_id" json:"channel_id"`
	ThreadID  int64     `db:"thread_id" json:"thread_id"`
	CreatedBy int64     `db:"created_by" json:"created_by"`
	Title     string    `db:"title" json:"title"`
	Note      string    `db:"note" json:"note"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Filter scopes a dashboard listing. Nil fields mean "any".
type Filter struct {
	Status    *Status
	ChannelID *int64
	ThreadID  *int64
}

// Patch carries a partial task update; at least one field must be set.
type Patch struct {
	Title  *string
	Note   *string
	Status *Status
}
