package user

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type Repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, name, email, passwordHash string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING *`,
		name, email, passwordHash)
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.Create")
	}
	return &u, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "userRepo.GetByEmail")
	}
	return &u, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.GetByID")
	}
	return &u, nil
}

// EnsureBot inserts the TaskBot row if it does not exist yet and returns it.
// The insert is a no-op on conflict, so concurrent first uses are safe.
func (r *Repo) EnsureBot(ctx context.Context) (*User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, '')
		 ON CONFLICT (email) DO NOTHING`,
		BotName, BotEmail)
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.EnsureBot.insert")
	}
	var u User
	if err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = $1`, BotEmail); err != nil {
		return nil, errors.Wrap(err, "userRepo.EnsureBot.select")
	}
	return &u, nil
}

func (r *Repo) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) (*Session, error) {
	var s Session
	err := r.db.GetContext(ctx, &s,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3) RETURNING *`,
		token, userID, expiresAt)
	if err != nil {
		return nil, errors.Wrap(err, "userRepo.CreateSession")
	}
	return &s, nil
}

// ValidateAndSlide checks the session and extends its expiry in one
// statement, so two concurrent requests on the same session can never see a
// half-updated row. Returns sql.ErrNoRows when the session is absent,
// revoked, or expired.
func (r *Repo) ValidateAndSlide(ctx context.Context, token string, newExpiry time.Time) (int64, error) {
	var userID int64
	err := r.db.GetContext(ctx, &userID,
		`UPDATE sessions SET expires_at = $2
		 WHERE token = $1 AND revoked_at IS NULL AND expires_at > now()
		 RETURNING user_id`,
		token, newExpiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, err
		}
		return 0, errors.Wrap(err, "userRepo.ValidateAndSlide")
	}
	return userID, nil
}

func (r *Repo) RevokeSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET revoked_at = now() WHERE token = $1 AND revoked_at IS NULL`,
		token)
	return errors.Wrap(err, "userRepo.RevokeSession")
}
