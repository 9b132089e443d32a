package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
)

// PasetoService is the PASETO v4.local token backend
// (symmetric encryption with XChaCha20-Poly1305).
type PasetoService struct {
	symmetricKey paseto.V4SymmetricKey
}

func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}

	return &PasetoService{
		symmetricKey: key,
	}, nil
}

// Issue encrypts the claims into a v4.local token. Only issued-at is set;
// tokens carry no expiration.
func (s *PasetoService) Issue(claims TokenClaims) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetString("user_id", claims.UserID)
	token.SetString("email", claims.Email)
	token.SetString("role", claims.Role)
	if err := token.Set("email_verified", claims.EmailVerified); err != nil {
		return "", fmt.Errorf("failed to set claim: %w", err)
	}

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// Verify decrypts and validates a v4.local token and returns the claims.
func (s *PasetoService) Verify(tokenStr string) (*TokenClaims, error) {
	// Expiry is checked by hand below because tokens normally carry none
	parser := paseto.NewParserWithoutExpiryCheck()

	token, err := parser.ParseV4Local(s.symmetricKey, tokenStr, nil)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if exp, err := token.GetExpiration(); err == nil && time.Now().After(exp) {
		return nil, ErrExpiredToken
	}

	userID, err := token.GetString("user_id")
	if err != nil {
		return nil, ErrInvalidToken
	}

	email, err := token.GetString("email")
	if err != nil {
		return nil, ErrInvalidToken
	}

	role, err := token.GetString("role")
	if err != nil {
		return nil, ErrInvalidToken
	}

	var verified bool
	if err := token.Get("email_verified", &verified); err != nil {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:        userID,
		Email:         email,
		Role:          role,
		EmailVerified: verified,
	}, nil
}
