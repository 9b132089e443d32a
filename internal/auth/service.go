package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/stayloop/booking-api/internal/logging"
	"github.com/stayloop/booking-api/internal/notification"
	"github.com/stayloop/booking-api/internal/otp"
	"github.com/stayloop/booking-api/internal/user"
)

var (
	ErrFieldsRequired       = errors.New("all fields are required")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
)

// UserRepository is the slice of the user store the auth flows need.
type UserRepository interface {
	Create(ctx context.Context, nu user.NewUser) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByEmailAndRole(ctx context.Context, email string, role user.Role) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	MarkEmailVerified(ctx context.Context, userID uuid.UUID) error
	Update(ctx context.Context, userID uuid.UUID, up user.UpdateProfile) (*user.User, error)
	ListActive(ctx context.Context) ([]*user.User, error)
	ListByRole(ctx context.Context, role user.Role) ([]*user.User, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

// RegisterInput is the registration request for any role.
type RegisterInput struct {
	FullName        string
	Email           string
	Phone           string
	Address         string
	Password        string
	ConfirmPassword string
}

// UpdateProfileInput carries the mutable profile fields; empty means keep.
type UpdateProfileInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// Service orchestrates credential checks, token issuance, session
// bookkeeping and OTP verification for all three roles.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   *PasswordHasher
	tokens   TokenService
	codes    otp.Store
	notifier notification.Notifier
	logger   *logging.Logger
}

func NewService(
	users UserRepository,
	sessions SessionRepository,
	hasher *PasswordHasher,
	tokens TokenService,
	codes otp.Store,
	notifier notification.Notifier,
	logger *logging.Logger,
) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		codes:    codes,
		notifier: notifier,
		logger:   logger,
	}
}

// claimsFor builds the canonical claim set every flow issues.
func claimsFor(u *user.User) TokenClaims {
	return TokenClaims{
		UserID:        u.ID.String(),
		Email:         u.Email,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
	}
}

// Register creates a principal with the flow's fixed role and returns the
// new user plus a bearer token. A session row is recorded for every role.
func (s *Service) Register(ctx context.Context, role user.Role, in RegisterInput) (*user.User, string, error) {
	if in.FullName == "" || in.Email == "" || in.Phone == "" || in.Password == "" || in.ConfirmPassword == "" {
		return nil, "", ErrFieldsRequired
	}
	// Admin accounts carry no address; guests and owners must provide one.
	if role != user.RoleAdmin && in.Address == "" {
		return nil, "", ErrFieldsRequired
	}
	if in.Password != in.ConfirmPassword {
		return nil, "", ErrPasswordMismatch
	}

	// Email uniqueness is global across roles. The check races with
	// concurrent registrations; the insert's unique constraint settles it.
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		return nil, "", user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check existing email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	nu := user.NewUser{
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: passwordHash,
		Phone:        in.Phone,
		Role:         role,
	}
	if role != user.RoleAdmin {
		nu.Address = &in.Address
	}

	newUser, err := s.users.Create(ctx, nu)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, "", user.ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(claimsFor(newUser))
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.sessions.Record(ctx, newUser.ID, token); err != nil {
		return nil, "", fmt.Errorf("failed to record session: %w", err)
	}

	return newUser, token, nil
}

// Login verifies credentials for the flow's role and returns the user plus
// a fresh bearer token. The response shape never reveals whether the email
// or the password was wrong.
func (s *Service) Login(ctx context.Context, role user.Role, email, password string) (*user.User, string, error) {
	if email == "" || password == "" {
		return nil, "", ErrFieldsRequired
	}

	existing, err := s.users.GetByEmailAndRole(ctx, email, role)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(password, existing.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(claimsFor(existing))
	if err != nil {
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.sessions.Record(ctx, existing.ID, token); err != nil {
		return nil, "", fmt.Errorf("failed to record session: %w", err)
	}

	return existing, token, nil
}

// Logout removes the session row for the exact token. A token with no row
// is not an error; the count is returned for logging.
func (s *Service) Logout(ctx context.Context, token string) (int64, error) {
	removed, err := s.sessions.Revoke(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke session: %w", err)
	}
	return removed, nil
}

// CurrentUser loads the principal behind an authenticated request.
func (s *Service) CurrentUser(ctx context.Context, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateProfile applies profile changes for the authenticated principal.
// The role is not updatable through any exposed operation.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*user.User, error) {
	up := user.UpdateProfile{}
	if in.FullName != "" {
		up.FullName = &in.FullName
	}
	if in.Email != "" {
		up.Email = &in.Email
	}
	if in.Phone != "" {
		up.Phone = &in.Phone
	}
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		up.PasswordHash = &hash
	}

	if up.FullName == nil && up.Email == nil && up.Phone == nil && up.PasswordHash == nil {
		return nil, ErrFieldsRequired
	}

	updated, err := s.users.Update(ctx, userID, up)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) || errors.Is(err, user.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return updated, nil
}

// SendVerificationCode issues a fresh OTP for the principal and dispatches
// it through the notifier. A new code overwrites any previous one.
func (s *Service) SendVerificationCode(ctx context.Context, userID uuid.UUID, email string) error {
	code, err := otp.GenerateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := s.codes.Set(ctx, userID, code); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	if err := s.notifier.SendVerificationCode(ctx, email, code); err != nil {
		return fmt.Errorf("failed to deliver code: %w", err)
	}

	return nil
}

// VerifyCode checks the submitted OTP and, on success, flips the
// principal's verified flag. The code is consumed on first success.
func (s *Service) VerifyCode(ctx context.Context, userID uuid.UUID, code string) error {
	valid, err := s.codes.Validate(ctx, userID, code)
	if err != nil {
		return fmt.Errorf("failed to validate code: %w", err)
	}
	if !valid {
		return ErrInvalidOrExpiredCode
	}

	if err := s.users.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}

	return nil
}

// ActiveUsers lists users that currently hold at least one session row.
func (s *Service) ActiveUsers(ctx context.Context) ([]*user.User, error) {
	return s.users.ListActive(ctx)
}

// UsersByRole lists users with the given role.
func (s *Service) UsersByRole(ctx context.Context, role user.Role) ([]*user.User, error) {
	return s.users.ListByRole(ctx, role)
}

// User fetches a single principal by id.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

// DeleteUser removes a principal; its session rows cascade away.
func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.users.Delete(ctx, id)
}
