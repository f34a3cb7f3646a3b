package task

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// CreateIgnore inserts the task unless its originating message already has
// one. The uniqueness constraint on message_id is the idempotency guard;
// created reports whether this call actually inserted the row.
func (r *Repo) CreateIgnore(ctx context.Context, messageID, channelID, threadID, createdBy int64, title, note string) (*Task, bool, error) {
	var t Task
	err := r.db.GetContext(ctx, &t,
		`INSERT INTO tasks (message_id, channel_id, thread_id, created_by, title, note)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (message_id) DO NOTHING
		 RETURNING *`,
		messageID, channelID, threadID, createdBy, title, note)
	if err == nil {
		return &t, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, errors.Wrap(err, "taskRepo.CreateIgnore")
	}
	existing, err := r.GetByMessageID(ctx, messageID)
	if err != nil {
		return nil, false, errors.Wrap(err, "taskRepo.CreateIgnore.refetch")
	}
	return existing, false, nil
}

func (r *Repo) Get(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tasks WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repo) GetByMessageID(ctx context.Context, messageID int64) (*Task, error) {
	var t Task
	err := r.db.GetContext(ctx, &t, `SELECT * FROM tasks WHERE message_id = $1`, messageID)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Update applies the patch and bumps updated_at in the same statement.
func (r *Repo) Update(ctx context.Context, id int64, p Patch) (*Task, error) {
	ub := psql.Update("tasks").
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING *")
	if p.Title != nil {
		ub = ub.Set("title", *p.Title)
	}
	if p.Note != nil {
		ub = ub.Set("note", *p.Note)
	}
	if p.Status != nil {
		ub = ub.Set("status", string(*p.Status))
	}
	query, args, err := ub.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "taskRepo.Update.build")
	}
	var t Task
	if err := r.db.GetContext(ctx, &t, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "taskRepo.Update")
	}
	return &t, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "taskRepo.Delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "taskRepo.Delete.rows")
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List applies the dashboard filter. Retention is a visibility window on
// done tasks, not a deletion policy: the default scope and an explicit done
// filter both hide done tasks older than the window, while explicit
// open/doing filters ignore it.
func (r *Repo) List(ctx context.Context, f Filter, retention time.Duration, limit int) ([]Task, error) {
	b := psql.Select("*").From("tasks")
	if f.ChannelID != nil {
		b = b.Where(squirrel.Eq{"channel_id": *f.ChannelID})
	}
	if f.ThreadID != nil {
		b = b.Where(squirrel.Eq{"thread_id": *f.ThreadID})
	}

	cutoff := time.Now().Add(-retention)
	switch {
	case f.Status == nil:
		b = b.Where(squirrel.Or{
			squirrel.NotEq{"status": string(StatusDone)},
			squirrel.Gt{"updated_at": cutoff},
		})
	case *f.Status == StatusDone:
		b = b.Where(squirrel.Eq{"status": string(StatusDone)}).
			Where(squirrel.Gt{"updated_at": cutoff})
	default:
		b = b.Where(squirrel.Eq{"status": string(*f.Status)})
	}

	b = b.OrderBy("id DESC").Limit(uint64(limit))
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "taskRepo.List.build")
	}
	out := []Task{}
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, errors.Wrap(err, "taskRepo.List")
	}
	return out, nil
}
