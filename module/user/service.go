package user

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/225715H/chat-app/service/storage"
	"github.com/225715H/chat-app/tools/errs"
	"github.com/225715H/chat-app/tools/ids"
)

// Store is the persistence surface the auth service needs.
type Store interface {
	Create(ctx context.Context, name, email, passwordHash string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	EnsureBot(ctx context.Context) (*User, error)
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) (*Session, error)
	ValidateAndSlide(ctx context.Context, token string, newExpiry time.Time) (int64, error)
	RevokeSession(ctx context.Context, token string) error
}

// PasswordHasher is a pluggable one-way credential hash. Verification must
// be deterministic for a given (hash, password) pair.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

type BcryptHasher struct{}

func (BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(out), err
}

func (BcryptHasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

type Service struct {
	store  Store
	hasher PasswordHasher
	ttl    time.Duration
}

func NewService(store Store, hasher PasswordHasher, sessionTTL time.Duration) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Service{store: store, hasher: hasher, ttl: sessionTTL}
}

func (s *Service) Signup(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	switch {
	case name == "":
		return nil, errs.Validation("name is required")
	case email == "" || !strings.Contains(email, "@"):
		return nil, errs.Validation("a valid email is required")
	case password == "":
		return nil, errs.Validation("password is required")
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, errs.Conflict("email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "hash password", err)
	}
	u, err := s.store.Create(ctx, name, email, hash)
	if err != nil {
		// A concurrent signup can slip past the pre-check; the unique
		// constraint is the real guard.
		if storage.IsUniqueViolation(err) {
			return nil, errs.Conflict("email already registered")
		}
		return nil, err
	}
	return s.issueSession(ctx, u)
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Uniform error: no user-enumeration distinction.
			return nil, errs.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, errs.Unauthorized("invalid credentials")
	}
	return s.issueSession(ctx, u)
}

func (s *Service) issueSession(ctx context.Context, u *User) (*AuthResult, error) {
	token, err := ids.NewSessionToken()
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, "generate session token", err)
	}
	sess, err := s.store.CreateSession(ctx, token, u.ID, time.Now().Add(s.ttl))
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: *u}, nil
}

// Validate authenticates a session token, sliding its expiry forward by the
// full TTL window on success.
func (s *Service) Validate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, errs.Unauthorized("missing session token")
	}
	userID, err := s.store.ValidateAndSlide(ctx, token, time.Now().Add(s.ttl))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Identity{}, errs.Unauthorized("invalid or expired session")
		}
		return Identity{}, err
	}
	u, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: u.ID, Name: u.Name}, nil
}

// ValidateToken adapts Validate to the primitive-typed shape the auth
// middleware consumes.
func (s *Service) ValidateToken(ctx context.Context, token string) (int64, string, error) {
	id, err := s.Validate(ctx, token)
	if err != nil {
		return 0, "", err
	}
	return id.ID, id.Name, nil
}

// Logout revokes the session. Revoking an already-dead session is not an
// error.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return errs.Unauthorized("missing session token")
	}
	return s.store.RevokeSession(ctx, token)
}

// Bot returns the synthetic TaskBot identity, creating it on first use.
func (s *Service) Bot(ctx context.Context) (Identity, error) {
	u, err := s.store.EnsureBot(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{ID: u.ID, Name: u.Name}, nil
}
