package chat

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/225715H/chat-app/module/taskparse"
	"github.com/225715H/chat-app/module/user"
	"github.com/225715H/chat-app/service/storage"
	"github.com/225715H/chat-app/service/stream"
	"github.com/225715H/chat-app/tools/errs"
)

// Store is the persistence surface of the chat service.
type Store interface {
	CreateChannel(ctx context.Context, name string, createdBy int64) (*Channel, *Thread, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	GetChannel(ctx context.Context, id int64) (*Channel, error)
	CreateThread(ctx context.Context, channelID int64, title string, createdBy int64) (*Thread, error)
	GetThread(ctx context.Context, id int64) (*Thread, error)
	ListThreads(ctx context.Context, channelID int64) ([]Thread, error)
	CreateMessage(ctx context.Context, threadID, userID int64, content string) (*MessageView, error)
	GetMessageView(ctx context.Context, id int64) (*MessageView, error)
	ListMessages(ctx context.Context, threadID int64) ([]MessageView, error)
	UpdateMessageContent(ctx context.Context, id int64, content string) error
	DeleteMessage(ctx context.Context, id int64) error
	CreateReply(ctx context.Context, messageID, userID int64, content string) (*ReplyView, error)
	GetReplyView(ctx context.Context, id int64) (*ReplyView, error)
	ListReplies(ctx context.Context, messageID int64) ([]ReplyView, error)
	UpdateReplyContent(ctx context.Context, id int64, content string) error
	DeleteReply(ctx context.Context, id, messageID int64) error
	GetReadCursor(ctx context.Context, userID, threadID int64) (*ReadCursor, error)
	UpsertReadCursor(ctx context.Context, userID, threadID, lastMessageID int64) error
}

// TaskCreator turns an originating message into a task record. Implemented
// by the task service; created is false when the message already had one
// (idempotent re-trigger).
type TaskCreator interface {
	CreateFromMessage(ctx context.Context, origin *MessageView, title, note string, creator user.Identity) (payload interface{}, created bool, err error)
}

type Service struct {
	store Store
	tasks TaskCreator
	emit  stream.Broadcaster
}

func NewService(store Store, tasks TaskCreator, emit stream.Broadcaster) *Service {
	return &Service{store: store, tasks: tasks, emit: emit}
}

// CreateChannel persists the channel together with its default "main"
// thread and announces both.
func (s *Service) CreateChannel(ctx context.Context, actor user.Identity, name string) (*Channel, *Thread, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, errs.Validation("channel name is required")
	}
	ch, th, err := s.store.CreateChannel(ctx, name, actor.ID)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return nil, nil, errs.Conflict("channel name already exists")
		}
		return nil, nil, err
	}
	s.emit.Emit(stream.Frame{Type: stream.EventChannelCreated, Channel: ch})
	s.emit.Emit(stream.Frame{Type: stream.EventThreadCreated, Thread: th})
	return ch, th, nil
}

func (s *Service) ListChannels(ctx context.Context) ([]Channel, error) {
	return s.store.ListChannels(ctx)
}

func (s *Service) CreateThread(ctx context.Context, actor user.Identity, channelID int64, title string) (*Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.Validation("thread title is required")
	}
	if _, err := s.store.GetChannel(ctx, channelID); err != nil {
		return nil, asNotFound(err, "channel not found")
	}
	th, err := s.store.CreateThread(ctx, channelID, title, actor.ID)
	if err != nil {
		return nil, err
	}
	s.emit.Emit(stream.Frame{Type: stream.EventThreadCreated, Thread: th})
	return th, nil
}

func (s *Service) ListThreads(ctx context.Context, channelID int64) ([]Thread, error) {
	if _, err := s.store.GetChannel(ctx, channelID); err != nil {
		return nil, asNotFound(err, "channel not found")
	}
	return s.store.ListThreads(ctx, channelID)
}

// PostMessage persists the message and, when task extraction fires, the
// linked task. Events go out only after every write for the command has
// succeeded.
func (s *Service) PostMessage(ctx context.Context, actor user.Identity, threadID int64, content string, createTask bool) (*MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("message content is required")
	}
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, asNotFound(err, "thread not found")
	}

	ex := taskparse.Extract(content, createTask)
	mv, err := s.store.CreateMessage(ctx, threadID, actor.ID, ex.Stored)
	if err != nil {
		return nil, err
	}

	var taskPayload interface{}
	if ex.OK {
		payload, created, err := s.tasks.CreateFromMessage(ctx, mv, ex.Title, ex.Note, actor)
		if err != nil {
			return nil, err
		}
		if created {
			taskPayload = payload
		}
	}

	s.emit.Emit(stream.Frame{Type: stream.EventMessageCreated, Message: mv})
	if taskPayload != nil {
		s.emit.Emit(stream.Frame{Type: stream.EventTaskCreated, Task: taskPayload})
	}
	return mv, nil
}

func (s *Service) ListMessages(ctx context.Context, threadID int64) ([]MessageView, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, asNotFound(err, "thread not found")
	}
	return s.store.ListMessages(ctx, threadID)
}

func (s *Service) EditMessage(ctx context.Context, actor user.Identity, id int64, content string) (*MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("message content is required")
	}
	mv, err := s.store.GetMessageView(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "message not found")
	}
	if mv.UserID != actor.ID {
		return nil, errs.Forbidden("only the author may edit this message")
	}
	if err := s.store.UpdateMessageContent(ctx, id, content); err != nil {
		return nil, asNotFound(err, "message not found")
	}
	updated, err := s.store.GetMessageView(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "message vanished after update", err)
	}
	s.emit.Emit(stream.Frame{Type: stream.EventMessageUpdated, Message: updated})
	return updated, nil
}

// DeleteMessage removes the message, its replies, and its linked task in
// one operation (schema cascades).
func (s *Service) DeleteMessage(ctx context.Context, actor user.Identity, id int64) error {
	mv, err := s.store.GetMessageView(ctx, id)
	if err != nil {
		return asNotFound(err, "message not found")
	}
	if mv.UserID != actor.ID {
		return errs.Forbidden("only the author may delete this message")
	}
	if err := s.store.DeleteMessage(ctx, id); err != nil {
		return asNotFound(err, "message not found")
	}
	s.emit.Emit(stream.Frame{
		Type:      stream.EventMessageDeleted,
		ID:        id,
		ThreadID:  mv.ThreadID,
		ChannelID: mv.ChannelID,
	})
	return nil
}

// PostReply mirrors PostMessage, including task extraction. A task born
// from a reply is linked to the reply's parent message, which keeps the
// one-task-per-message invariant intact.
func (s *Service) PostReply(ctx context.Context, actor user.Identity, messageID int64, content string, createTask bool) (*ReplyView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errs.Validation("reply content is required")
	}
	parent, err := s.store.GetMessageView(ctx, messageID)
	if err != nil {
		return nil, asNotFound(err, "message not found")
	}

	ex := taskparse.Extract(content, createTask)
	rv, err := s.store.CreateReply(ctx, messageID, actor.ID, ex.Stored)
	if err != nil {
		return nil, err
	}

	var taskPayload interface{}
	if ex.OK {
		payload, created, err := s.tasks.CreateFromMessage(ctx, parent, ex.Title, ex.Note, actor)
		if err != nil {
			return nil, err
		}
		if created {
			taskPayload = payload
		}
	}

	s.emit.Emit(stream.Frame{Type: stream.EventReplyCreated, Reply: rv})
	if taskPayload != nil {
		s.emit.Emit(stream.Frame{Type: stream.EventTaskCreated, Task: taskPayload})
	}
	return rv, nil
}

func (s *Service) ListReplies(ctx context.Context, messageID int64) ([]ReplyView, error) {
	if _, err := s.store.GetMessageView(ctx, messageID); err != nil {
		return nil, asNotFound(err, "message not found")
	}
	return s.store.ListReplies(ctx, messageID)
}

func (s *Service) EditReply(ctx context.Context, actor user.Identity, id int64, content string) (*ReplyView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errs.Validation("reply content is required")
	}
	rv, err := s.store.GetReplyView(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "reply not found")
	}
	if rv.UserID != actor.ID {
		return nil, errs.Forbidden("only the author may edit this reply")
	}
	if err := s.store.UpdateReplyContent(ctx, id, content); err != nil {
		return nil, asNotFound(err, "reply not found")
	}
	updated, err := s.store.GetReplyView(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "reply vanished after update", err)
	}
	s.emit.Emit(stream.Frame{Type: stream.EventReplyUpdated, Reply: updated})
	return updated, nil
}

func (s *Service) DeleteReply(ctx context.Context, actor user.Identity, id int64) error {
	rv, err := s.store.GetReplyView(ctx, id)
	if err != nil {
		return asNotFound(err, "reply not found")
	}
	if rv.UserID != actor.ID {
		return errs.Forbidden("only the author may delete this reply")
	}
	if err := s.store.DeleteReply(ctx, id, rv.MessageID); err != nil {
		return asNotFound(err, "reply not found")
	}
	s.emit.Emit(stream.Frame{
		Type:      stream.EventReplyDeleted,
		ID:        id,
		MessageID: rv.MessageID,
		ThreadID:  rv.ThreadID,
		ChannelID: rv.ChannelID,
	})
	return nil
}

// ToggleMessageChecklist flips one checklist ordinal inside the message
// content. An unchanged rewrite means the ordinal addressed nothing.
func (s *Service) ToggleMessageChecklist(ctx context.Context, actor user.Identity, id int64, ordinal int, checked bool) (*MessageView, error) {
	mv, err := s.store.GetMessageView(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "message not found")
	}
	next := taskparse.ToggleChecklist(mv.Content, ordinal, checked)
	if next == mv.Content {
		return nil, errs.NotFound("checklist item not found")
	}
	if err := s.store.UpdateMessageContent(ctx, id, next); err != nil {
		return nil, asNotFound(err, "message not found")
	}
	updated, err := s.store.GetMessageView(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "message vanished after update", err)
	}
	s.emit.Emit(stream.Frame{Type: stream.EventMessageUpdated, Message: updated})
	return updated, nil
}

func (s *Service) ToggleReplyChecklist(ctx context.Context, actor user.Identity, id int64, ordinal int, checked bool) (*ReplyView, error) {
	rv, err := s.store.GetReplyView(ctx, id)
	if err != nil {
		return nil, asNotFound(err, "reply not found")
	}
	next := taskparse.ToggleChecklist(rv.Content, ordinal, checked)
	if next == rv.Content {
		return nil, errs.NotFound("checklist item not found")
	}
	if err := s.store.UpdateReplyContent(ctx, id, next); err != nil {
		return nil, asNotFound(err, "reply not found")
	}
	updated, err := s.store.GetReplyView(ctx, id)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "reply vanished after update", err)
	}
	s.emit.Emit(stream.Frame{Type: stream.EventReplyUpdated, Reply: updated})
	return updated, nil
}

// ReadCursor returns the caller's cursor for the thread. A caller who never
// marked the thread read gets a zero cursor rather than an error.
func (s *Service) ReadCursor(ctx context.Context, actor user.Identity, threadID int64) (*ReadCursor, error) {
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return nil, asNotFound(err, "thread not found")
	}
	rc, err := s.store.GetReadCursor(ctx, actor.ID, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ReadCursor{UserID: actor.ID, ThreadID: threadID}, nil
		}
		return nil, err
	}
	return rc, nil
}

// MarkThreadRead records the caller's read cursor; advisory only.
func (s *Service) MarkThreadRead(ctx context.Context, actor user.Identity, threadID, lastMessageID int64) error {
	if lastMessageID <= 0 {
		return errs.Validation("last_message_id is required")
	}
	if _, err := s.store.GetThread(ctx, threadID); err != nil {
		return asNotFound(err, "thread not found")
	}
	return s.store.UpsertReadCursor(ctx, actor.ID, threadID, lastMessageID)
}

func asNotFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.NotFound(msg)
	}
	return err
}
