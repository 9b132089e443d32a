// Package otp holds the one-time verification codes used to confirm
// control of an email address.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// Store is the narrow registry of live verification codes. Implementations
// must keep at most one live code per user: Set overwrites any previous
// entry, Validate consumes the entry on the first success and leaves it
// untouched on failure so the user can retry until the TTL runs out.
//
// The in-memory implementation is only correct for a single process; the
// Redis implementation is the one to run behind more than one instance.
type Store interface {
	Set(ctx context.Context, userID uuid.UUID, code string) error
	Validate(ctx context.Context, userID uuid.UUID, code string) (bool, error)
}

// GenerateCode returns a 6-digit numeric code drawn uniformly from
// [000000, 999999], leading zeros included.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
