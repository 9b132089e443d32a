package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stayloop/booking-api/internal/logging"
	"github.com/stayloop/booking-api/internal/otp"
	"github.com/stayloop/booking-api/internal/user"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*user.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, nu user.NewUser) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == nu.Email {
			return nil, user.ErrDuplicateEmail
		}
	}
	u := &user.User{
		ID:           uuid.New(),
		FullName:     nu.FullName,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Phone:        nu.Phone,
		Address:      nu.Address,
		Role:         nu.Role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.users[u.ID] = u
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByEmailAndRole(_ context.Context, email string, role user.Role) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email && u.Role == role {
			return u, nil
		}
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func (r *fakeUserRepo) MarkEmailVerified(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.EmailVerified = true
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, userID uuid.UUID, up user.UpdateProfile) (*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, user.ErrNotFound
	}
	if up.Email != nil {
		for id, other := range r.users {
			if id != userID && other.Email == *up.Email {
				return nil, user.ErrDuplicateEmail
			}
		}
		u.Email = *up.Email
	}
	if up.FullName != nil {
		u.FullName = *up.FullName
	}
	if up.Phone != nil {
		u.Phone = *up.Phone
	}
	if up.PasswordHash != nil {
		u.PasswordHash = *up.PasswordHash
	}
	return u, nil
}

func (r *fakeUserRepo) ListActive(_ context.Context) ([]*user.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role user.Role) ([]*user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*user.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return user.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{tokens: make(map[string]uuid.UUID)}
}

func (r *fakeSessionRepo) Record(_ context.Context, userID uuid.UUID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token] = userID
	return nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tokens[token]; !ok {
		return 0, nil
	}
	delete(r.tokens, token)
	return 1, nil
}

func (r *fakeSessionRepo) Exists(_ context.Context, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tokens[token]
	return ok, nil
}

// recordingNotifier captures sent codes; fails when failWith is set.
type recordingNotifier struct {
	mu       sync.Mutex
	sent     []string
	failWith error
}

func (n *recordingNotifier) SendVerificationCode(_ context.Context, _ string, code string) error {
	if n.failWith != nil {
		return n.failWith
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, code)
	return nil
}

func (n *recordingNotifier) lastCode() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return ""
	}
	return n.sent[len(n.sent)-1]
}

type serviceFixture struct {
	service  *Service
	users    *fakeUserRepo
	sessions *fakeSessionRepo
	notifier *recordingNotifier
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	tokens, err := NewJWTService(testSecret)
	require.NoError(t, err)

	users := newFakeUserRepo()
	sessions := newFakeSessionRepo()
	notifier := &recordingNotifier{}

	svc := NewService(
		users,
		sessions,
		NewPasswordHasher(),
		tokens,
		otp.NewMemoryStore(15*time.Minute),
		notifier,
		logging.NewLogger(true),
	)

	return &serviceFixture{service: svc, users: users, sessions: sessions, notifier: notifier}
}

func guestInput() RegisterInput {
	return RegisterInput{
		FullName:        "Ada Guest",
		Email:           "a@x.com",
		Phone:           "+420123456789",
		Address:         "1 Main St",
		Password:        "p1",
		ConfirmPassword: "p1",
	}
}

func TestRegisterIssuesTokenAndSession(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	newUser, token, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.RoleGuest, newUser.Role)
	assert.False(t, newUser.EmailVerified)

	// Stored digest verifies against the original plaintext only
	hasher := NewPasswordHasher()
	assert.True(t, hasher.Verify("p1", newUser.PasswordHash))
	assert.False(t, hasher.Verify("p2", newUser.PasswordHash))

	// Registration records a session row
	exists, err := f.sessions.Exists(ctx, token)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	missing := guestInput()
	missing.Phone = ""
	_, _, err := f.service.Register(ctx, user.RoleGuest, missing)
	assert.ErrorIs(t, err, ErrFieldsRequired)

	noAddress := guestInput()
	noAddress.Address = ""
	_, _, err = f.service.Register(ctx, user.RoleOwner, noAddress)
	assert.ErrorIs(t, err, ErrFieldsRequired)

	mismatch := guestInput()
	mismatch.ConfirmPassword = "other"
	_, _, err = f.service.Register(ctx, user.RoleGuest, mismatch)
	assert.ErrorIs(t, err, ErrPasswordMismatch)
}

func TestRegisterAdminWithoutAddress(t *testing.T) {
	f := newServiceFixture(t)

	in := guestInput()
	in.Address = ""
	admin, token, err := f.service.Register(context.Background(), user.RoleAdmin, in)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, user.RoleAdmin, admin.Role)
	assert.Nil(t, admin.Address)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	// Same email again, even for another role: uniqueness is global
	_, _, err = f.service.Register(ctx, user.RoleOwner, guestInput())
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)
}

func TestLoginHappyPath(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, registerToken, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	u, loginToken, err := f.service.Login(ctx, user.RoleGuest, "a@x.com", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, loginToken)
	assert.Equal(t, "a@x.com", u.Email)

	// Both tokens stay valid; each login adds its own session row
	exists, _ := f.sessions.Exists(ctx, registerToken)
	assert.True(t, exists)
	exists, _ = f.sessions.Exists(ctx, loginToken)
	assert.True(t, exists)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	// Unknown email and wrong password are indistinguishable
	_, _, err = f.service.Login(ctx, user.RoleGuest, "nobody@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.service.Login(ctx, user.RoleGuest, "a@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// A guest credential does not open an owner session
	_, _, err = f.service.Login(ctx, user.RoleOwner, "a@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginMissingFields(t *testing.T) {
	f := newServiceFixture(t)

	_, _, err := f.service.Login(context.Background(), user.RoleGuest, "", "p1")
	assert.ErrorIs(t, err, ErrFieldsRequired)

	_, _, err = f.service.Login(context.Background(), user.RoleGuest, "a@x.com", "")
	assert.ErrorIs(t, err, ErrFieldsRequired)
}

func TestLogoutIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, token, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	removed, err := f.service.Logout(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	// Unknown token: zero rows removed, still a success
	removed, err = f.service.Logout(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed)
}

func TestSendAndVerifyCode(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	require.NoError(t, f.service.SendVerificationCode(ctx, u.ID, u.Email))
	code := f.notifier.lastCode()
	require.Len(t, code, 6)

	require.NoError(t, f.service.VerifyCode(ctx, u.ID, code))

	updated, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)

	// Single-use: the consumed code no longer validates
	err = f.service.VerifyCode(ctx, u.ID, code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
}

func TestVerifyCodeWrongCode(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	require.NoError(t, f.service.SendVerificationCode(ctx, u.ID, u.Email))

	err = f.service.VerifyCode(ctx, u.ID, "000000")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)

	unchanged, err := f.users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, unchanged.EmailVerified)
}

func TestSendCodeNotifierFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	f.notifier.failWith = errors.New("smtp down")
	err = f.service.SendVerificationCode(ctx, u.ID, u.Email)
	require.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	updated, err := f.service.UpdateProfile(ctx, u.ID, UpdateProfileInput{
		Phone:    "+420999888777",
		Password: "p2",
	})
	require.NoError(t, err)
	assert.Equal(t, "+420999888777", updated.Phone)

	// Old password no longer works, new one does
	_, _, err = f.service.Login(ctx, user.RoleGuest, "a@x.com", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.service.Login(ctx, user.RoleGuest, "a@x.com", "p2")
	require.NoError(t, err)
}

func TestUpdateProfileNothingToDo(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	u, _, err := f.service.Register(ctx, user.RoleGuest, guestInput())
	require.NoError(t, err)

	_, err = f.service.UpdateProfile(ctx, u.ID, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrFieldsRequired)
}
