package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/225715H/chat-app/tools/errs"
)

// plainHasher keeps the signup/login tests fast; bcrypt itself is covered
// separately.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "h:" + password, nil }
func (plainHasher) Verify(hash, password string) bool    { return hash == "h:"+password }

type session struct {
	userID    int64
	expiresAt time.Time
	revoked   bool
}

type fakeUserStore struct {
	nextID   int64
	byID     map[int64]User
	byEmail  map[string]int64
	sessions map[string]*session
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		byID:     map[int64]User{},
		byEmail:  map[string]int64{},
		sessions: map[string]*session{},
	}
}

func (f *fakeUserStore) Create(_ context.Context, name, email, passwordHash string) (*User, error) {
	f.nextID++
	u := User{ID: f.nextID, Name: name, Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.byID[u.ID] = u
	f.byEmail[email] = u.ID
	return &u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*User, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return nil, sql.ErrNoRows
	}
	u := f.byID[id]
	return &u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (f *fakeUserStore) EnsureBot(ctx context.Context) (*User, error) {
	if u, err := f.GetByEmail(ctx, BotEmail); err == nil {
		return u, nil
	}
	return f.Create(ctx, BotName, BotEmail, "")
}

func (f *fakeUserStore) CreateSession(_ context.Context, token string, userID int64, expiresAt time.Time) (*Session, error) {
	f.sessions[token] = &session{userID: userID, expiresAt: expiresAt}
	return &Session{Token: token, UserID: userID, CreatedAt: time.Now(), ExpiresAt: expiresAt}, nil
}

func (f *fakeUserStore) ValidateAndSlide(_ context.Context, token string, newExpiry time.Time) (int64, error) {
	s, ok := f.sessions[token]
	if !ok || s.revoked || !s.expiresAt.After(time.Now()) {
		return 0, sql.ErrNoRows
	}
	s.expiresAt = newExpiry
	return s.userID, nil
}

func (f *fakeUserStore) RevokeSession(_ context.Context, token string) error {
	if s, ok := f.sessions[token]; ok {
		s.revoked = true
	}
	return nil
}

func newTestService() (*Service, *fakeUserStore) {
	store := newFakeUserStore()
	return NewService(store, plainHasher{}, time.Hour), store
}

func TestSignup(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	res, err := svc.Signup(ctx, "Alice", "Alice@Example.com", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.ExpiresAt.After(time.Now()))
	assert.Equal(t, "Alice", res.User.Name)
	assert.Equal(t, "alice@example.com", res.User.Email)

	// The returned token is immediately usable.
	id, err := svc.Validate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.ID)
	_ = store
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name, email, password string
	}{
		{"", "a@b.com", "pw"},
		{"Alice", "", "pw"},
		{"Alice", "not-an-email", "pw"},
		{"Alice", "a@b.com", ""},
	}
	for _, tc := range cases {
		_, err := svc.Signup(ctx, tc.name, tc.email, tc.password)
		require.Error(t, err)
		assert.Equal(t, errs.CodeValidation, errs.CodeOf(err))
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, "Alice", "a@b.com", "pw")
	require.NoError(t, err)
	_, err = svc.Signup(ctx, "Other Alice", "A@B.com", "pw2")
	require.Error(t, err)
	assert.Equal(t, errs.CodeConflict, errs.CodeOf(err))
}

// racingInsertStore simulates two signups racing: the pre-check sees no row
// but the insert hits the unique constraint.
type racingInsertStore struct {
	*fakeUserStore
}

func (r *racingInsertStore) GetByEmail(context.Context, string) (*User, error) {
	return nil, sql.ErrNoRows
}

func (r *racingInsertStore) Create(context.Context, string, string, string) (*User, error) {
	return nil, &pgconn.PgError{Code: "23505"}
}

func TestSignupInsertRaceIsConflict(t *testing.T) {
	svc := NewService(&racingInsertStore{newFakeUserStore()}, plainHasher{}, time.Hour)

	_, err := svc.Signup(context.Background(), "Alice", "a@b.com", "pw")
	require.Error(t, err)
	assert.Equal(t, errs.CodeConflict, errs.CodeOf(err))
}

func TestLoginUniformError(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	_, err := svc.Signup(ctx, "Alice", "a@b.com", "right")
	require.NoError(t, err)

	// Unknown email and wrong password are indistinguishable.
	_, errUnknown := svc.Login(ctx, "nobody@b.com", "right")
	_, errWrongPw := svc.Login(ctx, "a@b.com", "wrong")
	require.Error(t, errUnknown)
	require.Error(t, errWrongPw)
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(errUnknown))
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(errWrongPw))
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())

	res, err := svc.Login(ctx, "a@b.com", "right")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestValidateSlidesExpiry(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "Alice", "a@b.com", "pw")
	require.NoError(t, err)

	before := store.sessions[res.Token].expiresAt
	time.Sleep(5 * time.Millisecond)
	_, err = svc.Validate(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, store.sessions[res.Token].expiresAt.After(before))
}

func TestValidateRejects(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "Alice", "a@b.com", "pw")
	require.NoError(t, err)

	_, err = svc.Validate(ctx, "")
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(err))

	_, err = svc.Validate(ctx, "no-such-token")
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(err))

	store.sessions[res.Token].expiresAt = time.Now().Add(-time.Minute)
	_, err = svc.Validate(ctx, res.Token)
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(err))
}

func TestLogoutIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Signup(ctx, "Alice", "a@b.com", "pw")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Token))
	_, err = svc.Validate(ctx, res.Token)
	assert.Equal(t, errs.CodeUnauthorized, errs.CodeOf(err))

	// A second revoke of the same token is fine.
	require.NoError(t, svc.Logout(ctx, res.Token))
}

func TestBotLazyCreation(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	bot, err := svc.Bot(ctx)
	require.NoError(t, err)
	assert.Equal(t, BotName, bot.Name)

	again, err := svc.Bot(ctx)
	require.NoError(t, err)
	assert.Equal(t, bot.ID, again.ID)
	assert.Len(t, store.byID, 1)
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{}
	hash, err := h.Hash("hunter2")
	require.NoError(t, err)
	assert.True(t, h.Verify(hash, "hunter2"))
	assert.False(t, h.Verify(hash, "hunter3"))
}
