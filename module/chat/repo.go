package chat

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

const messageViewQuery = `
SELECT m.id, m.thread_id, m.user_id, m.content, m.reply_count, m.created_at,
       u.name  AS user_name,
       c.id    AS channel_id,
       c.name  AS channel_name,
       t.title AS thread_title
FROM messages m
JOIN users u    ON u.id = m.user_id
JOIN threads t  ON t.id = m.thread_id
JOIN channels c ON c.id = t.channel_id`

const replyViewQuery = `
SELECT r.id, r.message_id, r.user_id, r.content, r.created_at,
       u.name  AS user_name,
       t.id    AS thread_id,
       c.id    AS channel_id,
       c.name  AS channel_name,
       t.title AS thread_title
FROM replies r
JOIN users u    ON u.id = r.user_id
JOIN messages m ON m.id = r.message_id
JOIN threads t  ON t.id = m.thread_id
JOIN channels c ON c.id = t.channel_id`

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// CreateChannel persists the channel and its default "main" thread in one
// transaction. A channel without its default thread must never be visible.
func (r *Repo) CreateChannel(ctx context.Context, name string, createdBy int64) (*Channel, *Thread, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "chatRepo.CreateChannel.begin")
	}
	defer func() { _ = tx.Rollback() }()

	var ch Channel
	err = tx.GetContext(ctx, &ch,
		`INSERT INTO channels (name, created_by) VALUES ($1, $2) RETURNING *`,
		name, createdBy)
	if err != nil {
		return nil, nil, err
	}
	var th Thread
	err = tx.GetContext(ctx, &th,
		`INSERT INTO threads (channel_id, title, created_by) VALUES ($1, $2, $3) RETURNING *`,
		ch.ID, DefaultThreadTitle, createdBy)
	if err != nil {
		return nil, nil, errors.Wrap(err, "chatRepo.CreateChannel.thread")
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, errors.Wrap(err, "chatRepo.CreateChannel.commit")
	}
	return &ch, &th, nil
}

func (r *Repo) ListChannels(ctx context.Context) ([]Channel, error) {
	out := []Channel{}
	err := r.db.SelectContext(ctx, &out, `SELECT * FROM channels ORDER BY id`)
	return out, errors.Wrap(err, "chatRepo.ListChannels")
}

func (r *Repo) GetChannel(ctx context.Context, id int64) (*Channel, error) {
	var ch Channel
	err := r.db.GetContext(ctx, &ch, `SELECT * FROM channels WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *Repo) CreateThread(ctx context.Context, channelID int64, title string, createdBy int64) (*Thread, error) {
	var th Thread
	err := r.db.GetContext(ctx, &th,
		`INSERT INTO threads (channel_id, title, created_by) VALUES ($1, $2, $3) RETURNING *`,
		channelID, title, createdBy)
	if err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateThread")
	}
	return &th, nil
}

func (r *Repo) GetThread(ctx context.Context, id int64) (*Thread, error) {
	var th Thread
	err := r.db.GetContext(ctx, &th, `SELECT * FROM threads WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &th, nil
}

func (r *Repo) ListThreads(ctx context.Context, channelID int64) ([]Thread, error) {
	out := []Thread{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM threads WHERE channel_id = $1 ORDER BY id`, channelID)
	return out, errors.Wrap(err, "chatRepo.ListThreads")
}

func (r *Repo) CreateMessage(ctx context.Context, threadID, userID int64, content string) (*MessageView, error) {
	var id int64
	err := r.db.GetContext(ctx, &id,
		`INSERT INTO messages (thread_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		threadID, userID, content)
	if err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateMessage")
	}
	return r.GetMessageView(ctx, id)
}

func (r *Repo) GetMessageView(ctx context.Context, id int64) (*MessageView, error) {
	var mv MessageView
	err := r.db.GetContext(ctx, &mv, messageViewQuery+` WHERE m.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &mv, nil
}

func (r *Repo) ListMessages(ctx context.Context, threadID int64) ([]MessageView, error) {
	out := []MessageView{}
	err := r.db.SelectContext(ctx, &out,
		messageViewQuery+` WHERE m.thread_id = $1 ORDER BY m.id`, threadID)
	return out, errors.Wrap(err, "chatRepo.ListMessages")
}

func (r *Repo) UpdateMessageContent(ctx context.Context, id int64, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return errors.Wrap(err, "chatRepo.UpdateMessageContent")
	}
	return noneToNoRows(res)
}

// DeleteMessage removes the message; replies and any linked task go with it
// through the schema's cascade rules.
func (r *Repo) DeleteMessage(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "chatRepo.DeleteMessage")
	}
	return noneToNoRows(res)
}

// CreateReply inserts the reply and bumps the parent's reply counter in the
// same transaction.
func (r *Repo) CreateReply(ctx context.Context, messageID, userID int64, content string) (*ReplyView, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateReply.begin")
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.GetContext(ctx, &id,
		`INSERT INTO replies (message_id, user_id, content) VALUES ($1, $2, $3) RETURNING id`,
		messageID, userID, content)
	if err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateReply.insert")
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE messages SET reply_count = reply_count + 1 WHERE id = $1`, messageID)
	if err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateReply.count")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "chatRepo.CreateReply.commit")
	}
	return r.GetReplyView(ctx, id)
}

func (r *Repo) GetReplyView(ctx context.Context, id int64) (*ReplyView, error) {
	var rv ReplyView
	err := r.db.GetContext(ctx, &rv, replyViewQuery+` WHERE r.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *Repo) ListReplies(ctx context.Context, messageID int64) ([]ReplyView, error) {
	out := []ReplyView{}
	err := r.db.SelectContext(ctx, &out,
		replyViewQuery+` WHERE r.message_id = $1 ORDER BY r.id`, messageID)
	return out, errors.Wrap(err, "chatRepo.ListReplies")
}

func (r *Repo) UpdateReplyContent(ctx context.Context, id int64, content string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE replies SET content = $2 WHERE id = $1`, id, content)
	if err != nil {
		return errors.Wrap(err, "chatRepo.UpdateReplyContent")
	}
	return noneToNoRows(res)
}

func (r *Repo) DeleteReply(ctx context.Context, id, messageID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "chatRepo.DeleteReply.begin")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM replies WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "chatRepo.DeleteReply.delete")
	}
	if err := noneToNoRows(res); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE messages SET reply_count = GREATEST(reply_count - 1, 0) WHERE id = $1`, messageID)
	if err != nil {
		return errors.Wrap(err, "chatRepo.DeleteReply.count")
	}
	return errors.Wrap(tx.Commit(), "chatRepo.DeleteReply.commit")
}

func (r *Repo) GetReadCursor(ctx context.Context, userID, threadID int64) (*ReadCursor, error) {
	var rc ReadCursor
	err := r.db.GetContext(ctx, &rc,
		`SELECT * FROM thread_read_cursors WHERE user_id = $1 AND thread_id = $2`,
		userID, threadID)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

func (r *Repo) UpsertReadCursor(ctx context.Context, userID, threadID, lastMessageID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO thread_read_cursors (user_id, thread_id, last_message_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, thread_id) DO UPDATE SET last_message_id = EXCLUDED.last_message_id`,
		userID, threadID, lastMessageID)
	return errors.Wrap(err, "chatRepo.UpsertReadCursor")
}

func noneToNoRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
