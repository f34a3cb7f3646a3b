package task

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/225715H/chat-app/module/chat"
	"github.com/225715H/chat-app/module/taskparse"
	"github.com/225715H/chat-app/module/user"
	"github.com/225715H/chat-app/service/stream"
	"github.com/225715H/chat-app/tools/errs"
)

// Store is the task persistence surface.
type Store interface {
	CreateIgnore(ctx context.Context, messageID, channelID, threadID, createdBy int64, title, note string) (*Task, bool, error)
	Get(ctx context.Context, id int64) (*Task, error)
	GetByMessageID(ctx context.Context, messageID int64) (*Task, error)
	Update(ctx context.Context, id int64, p Patch) (*Task, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter, retention time.Duration, limit int) ([]Task, error)
}

// MessageStore is the slice of the chat store the task service needs for
// dashboard-created tasks: every task must have an originating message.
type MessageStore interface {
	GetThread(ctx context.Context, id int64) (*chat.Thread, error)
	CreateMessage(ctx context.Context, threadID, userID int64, content string) (*chat.MessageView, error)
}

// BotProvider supplies the synthetic TaskBot identity.
type BotProvider interface {
	Bot(ctx context.Context) (user.Identity, error)
}

type Service struct {
	store       Store
	messages    MessageStore
	bot         BotProvider
	emit        stream.Broadcaster
	retention   time.Duration
	listLimit   int
	botTemplate string
}

func NewService(store Store, messages MessageStore, bot BotProvider, emit stream.Broadcaster, retention time.Duration, listLimit int, botTemplate string) *Service {
	if retention <= 0 {
		retention = 14 * 24 * time.Hour
	}
	if listLimit <= 0 {
		listLimit = 200
	}
	return &Service{
		store:       store,
		messages:    messages,
		bot:         bot,
		emit:        emit,
		retention:   retention,
		listLimit:   listLimit,
		botTemplate: botTemplate,
	}
}

// CreateFromMessage implements chat.TaskCreator: it persists the task
// derived from an organic message or reply post. The caller owns event
// emission, so the two writes of a post command surface as one atomic
// sequence of events.
func (s *Service) CreateFromMessage(ctx context.Context, origin *chat.MessageView, title, note string, creator user.Identity) (interface{}, bool, error) {
	t, created, err := s.store.CreateIgnore(ctx, origin.ID, origin.ChannelID, origin.ThreadID, creator.ID, title, note)
	if err != nil {
		return nil, false, err
	}
	return t, created, nil
}

// CreateFromBoard services the dashboard's "new task" action. It posts a
// synthetic origin message carrying the title and note, persists the task,
// then posts a TaskBot announcement, so a board-born task is shaped exactly
// like an extracted one.
func (s *Service) CreateFromBoard(ctx context.Context, actor user.Identity, threadID int64, title, note string) (*Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.Validation("task title is required")
	}
	th, err := s.messages.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("thread not found")
		}
		return nil, err
	}

	content := title
	if strings.TrimSpace(note) != "" {
		content = title + "\n" + note
	}
	origin, err := s.messages.CreateMessage(ctx, threadID, actor.ID, content)
	if err != nil {
		return nil, err
	}
	t, _, err := s.store.CreateIgnore(ctx, origin.ID, th.ChannelID, threadID, actor.ID, title, note)
	if err != nil {
		return nil, err
	}

	bot, err := s.bot.Bot(ctx)
	if err != nil {
		return nil, err
	}
	announcement := taskparse.RenderBotMessage(s.botTemplate, title, actor.Name)
	botMsg, err := s.messages.CreateMessage(ctx, threadID, bot.ID, announcement)
	if err != nil {
		return nil, err
	}

	s.emit.Emit(stream.Frame{Type: stream.EventMessageCreated, Message: origin})
	s.emit.Emit(stream.Frame{Type: stream.EventTaskCreated, Task: t})
	s.emit.Emit(stream.Frame{Type: stream.EventMessageCreated, Message: botMsg})
	return t, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("task not found")
		}
		return nil, err
	}
	return t, nil
}

// Update patches status, title, or note. Any status transition is allowed;
// every patch moves updated_at, which restarts the done-visibility clock.
func (s *Service) Update(ctx context.Context, actor user.Identity, id int64, p Patch) (*Task, error) {
	if p.Title == nil && p.Note == nil && p.Status == nil {
		return nil, errs.Validation("at least one of title, note, status is required")
	}
	if p.Title != nil {
		trimmed := strings.TrimSpace(*p.Title)
		if trimmed == "" {
			return nil, errs.Validation("task title cannot be empty")
		}
		p.Title = &trimmed
	}
	if p.Status != nil && !p.Status.Valid() {
		return nil, errs.Validation("status must be one of open, doing, done")
	}
	t, err := s.store.Update(ctx, id, p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("task not found")
		}
		return nil, err
	}
	s.emit.Emit(stream.Frame{Type: stream.EventTaskUpdated, Task: t})
	return t, nil
}

// Delete removes the task record only; the originating message stays. The
// event carries every identifier a client needs to reconcile locally.
func (s *Service) Delete(ctx context.Context, actor user.Identity, id int64) error {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("task not found")
		}
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.NotFound("task not found")
		}
		return err
	}
	s.emit.Emit(stream.Frame{
		Type:      stream.EventTaskDeleted,
		TaskID:    t.ID,
		MessageID: t.MessageID,
		ChannelID: t.ChannelID,
		ThreadID:  t.ThreadID,
	})
	return nil
}

// ToggleNoteChecklist flips a checklist ordinal inside the task note.
func (s *Service) ToggleNoteChecklist(ctx context.Context, actor user.Identity, id int64, ordinal int, checked bool) (*Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("task not found")
		}
		return nil, err
	}
	next := taskparse.ToggleChecklist(t.Note, ordinal, checked)
	if next == t.Note {
		return nil, errs.NotFound("checklist item not found")
	}
	updated, err := s.store.Update(ctx, id, Patch{Note: &next})
	if err != nil {
		return nil, err
	}
	s.emit.Emit(stream.Frame{Type: stream.EventTaskUpdated, Task: updated})
	return updated, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Task, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, errs.Validation("status must be one of open, doing, done")
	}
	return s.store.List(ctx, f, s.retention, s.listLimit)
}
