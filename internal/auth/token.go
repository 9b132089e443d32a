package auth

import "errors"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenClaims is the canonical claim set carried by every bearer token,
// whichever flow issued it.
type TokenClaims struct {
	UserID        string `json:"user_id"` // UUID stored as string in token
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

// TokenService defines the interface for token creation and validation.
// Implementations include JWTService (HS256, the default) and
// PasetoService (PASETO v4.local).
//
// Tokens are issued without an expiry claim; the session registry only
// tracks them for logout bookkeeping. Verify still rejects an elapsed
// expiry if one is ever present.
type TokenService interface {
	Issue(claims TokenClaims) (string, error)
	Verify(tokenStr string) (*TokenClaims, error)
}
