package user

import "time"

// BotEmail is the sentinel address of the synthetic TaskBot user. The row
// is created lazily the first time an automated message is posted.
const (
	BotEmail = "taskbot@system.local"
	BotName  = "TaskBot"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session is usable iff revoked_at is null and now < expires_at. Expiry
// slides forward by the full TTL on every successful validation.
type Session struct {
	Token     string     `db:"token" json:"-"`
	UserID    int64      `db:"user_id" json:"user_id"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"-"`
}

// Identity is the authenticated caller, passed explicitly into every
// command instead of riding along in ambient context.
type Identity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// AuthResult is what signup and login hand back to the client: the opaque
// session token, when it lapses, and the identity it maps to.
type AuthResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
