// Package otp implements the one-time-code lifecycle: issuance, verification,
// regeneration with a bounded retry budget and a cool-down window.
//
// The functions mutate a User in memory and are meant to run inside an atomic
// store mutation, so concurrent transitions for the same account serialize.
// Sending the code to the user happens after the mutation commits.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/example/verifly/internal/models"
)

var (
	// ErrLockedOut means the retry budget is exhausted and the cool-down
	// window has not passed yet.
	ErrLockedOut = errors.New("Max OTP try reached, try after an hour")

	// ErrCodeMismatch means the submitted code does not match the stored one.
	ErrCodeMismatch = errors.New("incorrect OTP")

	// ErrCodeExpired means the stored code exists but is past its expiry.
	ErrCodeExpired = errors.New("OTP expired")

	// ErrNoCode means no code is currently outstanding for the account.
	ErrNoCode = errors.New("no OTP issued")

	// ErrAlreadyActive means the account has already completed verification.
	ErrAlreadyActive = errors.New("user already active")
)

// Policy holds the retry and expiry knobs for one-time codes.
type Policy struct {
	MaxAttempts int
	CodeTTL     time.Duration
	Lockout     time.Duration
}

// GenerateCode returns a random 4-digit numeric code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// Issue stores a fresh code on the user with expiry now+CodeTTL. A stale
// retry budget from a finished lockout cycle is reset to the maximum.
// The code is returned so the caller can send it once the change commits.
func Issue(u *models.User, p Policy, now time.Time) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	if u.OTPAttemptsRemaining <= 0 {
		u.OTPAttemptsRemaining = p.MaxAttempts
	}

	expiry := now.Add(p.CodeTTL)
	u.OTPCode = code
	u.OTPExpiry = &expiry
	return code, nil
}

// Verify checks a submitted code against the stored one. It succeeds only
// while the account is inactive, the code matches and the expiry has not
// passed. Success activates the account, clears the code and expiry, resets
// the retry budget and lifts any lockout. Failed attempts do not shrink the
// retry budget; only regeneration is rate-limited.
func Verify(u *models.User, submitted string, p Policy, now time.Time) error {
	if u.IsActive {
		return ErrAlreadyActive
	}
	if u.OTPCode == "" || u.OTPExpiry == nil {
		return ErrNoCode
	}
	if subtle.ConstantTimeCompare([]byte(u.OTPCode), []byte(submitted)) != 1 {
		return ErrCodeMismatch
	}
	if !now.Before(*u.OTPExpiry) {
		return ErrCodeExpired
	}

	u.IsActive = true
	u.OTPCode = ""
	u.OTPExpiry = nil
	u.OTPAttemptsRemaining = p.MaxAttempts
	u.OTPLockedUntil = nil
	return nil
}

// Regenerate issues a replacement code, spending one attempt from the retry
// budget. Exhausting the budget starts the cool-down; regenerating while the
// cool-down is active fails with ErrLockedOut. The first regeneration after
// the cool-down passes restores the budget to the maximum, so the counter
// never drifts below the -1 sentinel.
func Regenerate(u *models.User, p Policy, now time.Time) (string, error) {
	if u.OTPAttemptsRemaining == 0 && u.OTPLockedUntil != nil && now.Before(*u.OTPLockedUntil) {
		return "", ErrLockedOut
	}

	code, err := GenerateCode()
	if err != nil {
		return "", err
	}

	remaining := u.OTPAttemptsRemaining - 1
	switch {
	case remaining == 0:
		locked := now.Add(p.Lockout)
		u.OTPAttemptsRemaining = 0
		u.OTPLockedUntil = &locked
	case remaining < 0:
		// Budget was already spent and the lockout has passed: start a
		// fresh cycle instead of counting further down.
		u.OTPAttemptsRemaining = p.MaxAttempts
		u.OTPLockedUntil = nil
	default:
		u.OTPAttemptsRemaining = remaining
		u.OTPLockedUntil = nil
	}

	expiry := now.Add(p.CodeTTL)
	u.OTPCode = code
	u.OTPExpiry = &expiry
	return code, nil
}
