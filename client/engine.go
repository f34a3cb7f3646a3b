// Package client is the Go client library for the chat server: it dials
// the event stream, keeps a local mirror of the focused views in sync with
// incremental patches, and tracks per-thread unread counters.
package client

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/225715H/chat-app/module/chat"
	"github.com/225715H/chat-app/module/task"
	"github.com/225715H/chat-app/service/stream"
)

// wireFrame mirrors stream.Frame with raw payloads so each event type can
// be decoded into its concrete view struct.
type wireFrame struct {
	Type      stream.EventType `json:"type"`
	Channel   json.RawMessage  `json:"channel"`
	Thread    json.RawMessage  `json:"thread"`
	Message   json.RawMessage  `json:"message"`
	Reply     json.RawMessage  `json:"reply"`
	Task      json.RawMessage  `json:"task"`
	ID        int64            `json:"id"`
	MessageID int64            `json:"message_id"`
	ThreadID  int64            `json:"thread_id"`
	ChannelID int64            `json:"channel_id"`
	TaskID    int64            `json:"task_id"`
}

// Engine applies the event stream to local view state. Creation events
// append (dedup by id, since a snapshot pull may already hold the entity),
// update events replace in place when the entity is in the focused view,
// deletion events remove and clear a focused selection. Task events always
// trigger a full task re-fetch: filter-scope membership can change in ways
// one event cannot encode.
type Engine struct {
	mu sync.Mutex

	Channels []chat.Channel
	Threads  []chat.Thread
	Messages []chat.MessageView
	Replies  []chat.ReplyView
	Tasks    []task.Task

	ActiveChannelID int64
	ActiveThreadID  int64
	ActiveMessageID int64

	Unread       map[int64]int
	LastActivity map[int64]time.Time

	// FetchTasks re-pulls the task list under the caller's current filter.
	FetchTasks func(ctx context.Context) ([]task.Task, error)
	// PersistCursor records the read cursor server-side when a thread is
	// focused.
	PersistCursor func(ctx context.Context, threadID, lastMessageID int64) error
}

func NewEngine() *Engine {
	return &Engine{
		Unread:       make(map[int64]int),
		LastActivity: make(map[int64]time.Time),
	}
}

// HandleEvent applies one raw frame from the push channel.
func (e *Engine) HandleEvent(ctx context.Context, raw []byte) error {
	var f wireFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch f.Type {
	case stream.EventConnected, stream.EventPing:
		// Keep-alive traffic carries no state.
		return nil

	case stream.EventChannelCreated:
		var ch chat.Channel
		if err := json.Unmarshal(f.Channel, &ch); err != nil {
			return err
		}
		if !hasID(e.Channels, ch.ID, func(c chat.Channel) int64 { return c.ID }) {
			e.Channels = append(e.Channels, ch)
		}

	case stream.EventThreadCreated:
		var th chat.Thread
		if err := json.Unmarshal(f.Thread, &th); err != nil {
			return err
		}
		if th.ChannelID == e.ActiveChannelID &&
			!hasID(e.Threads, th.ID, func(t chat.Thread) int64 { return t.ID }) {
			e.Threads = append(e.Threads, th)
		}

	case stream.EventMessageCreated:
		var mv chat.MessageView
		if err := json.Unmarshal(f.Message, &mv); err != nil {
			return err
		}
		e.LastActivity[mv.ThreadID] = mv.CreatedAt
		if mv.ThreadID == e.ActiveThreadID {
			if !hasID(e.Messages, mv.ID, func(m chat.MessageView) int64 { return m.ID }) {
				e.Messages = append(e.Messages, mv)
			}
		} else {
			e.Unread[mv.ThreadID]++
		}

	case stream.EventMessageUpdated:
		var mv chat.MessageView
		if err := json.Unmarshal(f.Message, &mv); err != nil {
			return err
		}
		if mv.ThreadID == e.ActiveThreadID {
			for i := range e.Messages {
				if e.Messages[i].ID == mv.ID {
					e.Messages[i] = mv
					break
				}
			}
		} else {
			e.LastActivity[mv.ThreadID] = time.Now()
		}

	case stream.EventMessageDeleted:
		e.Messages = removeID(e.Messages, f.ID, func(m chat.MessageView) int64 { return m.ID })
		if e.ActiveMessageID == f.ID {
			e.ActiveMessageID = 0
			e.Replies = nil
		}

	case stream.EventReplyCreated:
		var rv chat.ReplyView
		if err := json.Unmarshal(f.Reply, &rv); err != nil {
			return err
		}
		e.LastActivity[rv.ThreadID] = rv.CreatedAt
		e.bumpReplyCount(rv.MessageID, +1)
		if rv.MessageID == e.ActiveMessageID {
			if !hasID(e.Replies, rv.ID, func(r chat.ReplyView) int64 { return r.ID }) {
				e.Replies = append(e.Replies, rv)
			}
		} else if rv.ThreadID != e.ActiveThreadID {
			e.Unread[rv.ThreadID]++
		}

	case stream.EventReplyUpdated:
		var rv chat.ReplyView
		if err := json.Unmarshal(f.Reply, &rv); err != nil {
			return err
		}
		if rv.MessageID == e.ActiveMessageID {
			for i := range e.Replies {
				if e.Replies[i].ID == rv.ID {
					e.Replies[i] = rv
					break
				}
			}
		} else {
			e.LastActivity[rv.ThreadID] = time.Now()
		}

	case stream.EventReplyDeleted:
		e.Replies = removeID(e.Replies, f.ID, func(r chat.ReplyView) int64 { return r.ID })
		e.bumpReplyCount(f.MessageID, -1)

	case stream.EventTaskCreated, stream.EventTaskUpdated, stream.EventTaskDeleted:
		return e.refreshTasksLocked(ctx)
	}
	return nil
}

// LoadChannels seeds channel state from a snapshot pull.
func (e *Engine) LoadChannels(channels []chat.Channel) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Channels = channels
}

// FocusChannel switches the active channel and installs its thread
// snapshot.
func (e *Engine) FocusChannel(channelID int64, threads []chat.Thread) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ActiveChannelID = channelID
	e.Threads = threads
	e.ActiveThreadID = 0
	e.Messages = nil
	e.ActiveMessageID = 0
	e.Replies = nil
}

// FocusThread makes a thread the focused one. Focusing marks it read: the
// unread counter resets and the read cursor is persisted with the newest
// loaded message id.
func (e *Engine) FocusThread(ctx context.Context, threadID int64, messages []chat.MessageView) error {
	e.mu.Lock()
	e.ActiveThreadID = threadID
	e.Messages = messages
	e.ActiveMessageID = 0
	e.Replies = nil
	e.Unread[threadID] = 0
	persist := e.PersistCursor
	var last int64
	for _, m := range messages {
		if m.ID > last {
			last = m.ID
		}
	}
	e.mu.Unlock()

	if persist != nil && last > 0 {
		return persist(ctx, threadID, last)
	}
	return nil
}

// FocusMessage opens a message's reply view.
func (e *Engine) FocusMessage(messageID int64, replies []chat.ReplyView) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ActiveMessageID = messageID
	e.Replies = replies
}

// RefreshTasks re-pulls the task list under the current filter scope.
func (e *Engine) RefreshTasks(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshTasksLocked(ctx)
}

func (e *Engine) refreshTasksLocked(ctx context.Context) error {
	if e.FetchTasks == nil {
		return nil
	}
	tasks, err := e.FetchTasks(ctx)
	if err != nil {
		return err
	}
	e.Tasks = tasks
	return nil
}

// UnreadCount reports the unread counter for a thread.
func (e *Engine) UnreadCount(threadID int64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.Unread[threadID]
}

func (e *Engine) bumpReplyCount(messageID int64, delta int) {
	for i := range e.Messages {
		if e.Messages[i].ID == messageID {
			n := e.Messages[i].ReplyCount + delta
			if n < 0 {
				n = 0
			}
			e.Messages[i].ReplyCount = n
			return
		}
	}
}

func hasID[T any](items []T, id int64, idOf func(T) int64) bool {
	for _, it := range items {
		if idOf(it) == id {
			return true
		}
	}
	return false
}

func removeID[T any](items []T, id int64, idOf func(T) int64) []T {
	for i, it := range items {
		if idOf(it) == id {
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}
