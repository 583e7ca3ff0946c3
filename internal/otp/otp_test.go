package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/verifly/internal/models"
)

var testPolicy = Policy{
	MaxAttempts: 3,
	CodeTTL:     10 * time.Minute,
	Lockout:     time.Hour,
}

func TestGenerateCodeIsFourDigits(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 4)
		require.Regexp(t, `^[0-9]{4}$`, code)
	}
}

func TestIssueSetsCodeAndExpiry(t *testing.T) {
	now := time.Now()
	u := &models.User{OTPAttemptsRemaining: testPolicy.MaxAttempts}

	code, err := Issue(u, testPolicy, now)
	require.NoError(t, err)

	assert.Equal(t, code, u.OTPCode)
	require.NotNil(t, u.OTPExpiry)
	assert.Equal(t, now.Add(testPolicy.CodeTTL), *u.OTPExpiry)
	assert.Equal(t, testPolicy.MaxAttempts, u.OTPAttemptsRemaining)
}

func TestIssueRestoresSpentBudget(t *testing.T) {
	now := time.Now()
	u := &models.User{OTPAttemptsRemaining: 0}

	_, err := Issue(u, testPolicy, now)
	require.NoError(t, err)
	assert.Equal(t, testPolicy.MaxAttempts, u.OTPAttemptsRemaining)
}

func TestVerifySuccessClearsState(t *testing.T) {
	now := time.Now()
	expiry := now.Add(5 * time.Minute)
	locked := now.Add(30 * time.Minute)
	u := &models.User{
		OTPCode:              "1234",
		OTPExpiry:            &expiry,
		OTPAttemptsRemaining: 1,
		OTPLockedUntil:       &locked,
	}

	require.NoError(t, Verify(u, "1234", testPolicy, now))

	assert.True(t, u.IsActive)
	assert.Empty(t, u.OTPCode)
	assert.Nil(t, u.OTPExpiry)
	assert.Nil(t, u.OTPLockedUntil)
	assert.Equal(t, testPolicy.MaxAttempts, u.OTPAttemptsRemaining)
}

func TestVerifyFailures(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)
	past := now.Add(-time.Minute)

	tests := []struct {
		name      string
		user      models.User
		submitted string
		wantErr   error
	}{
		{
			name:      "already active",
			user:      models.User{IsActive: true, OTPCode: "1234", OTPExpiry: &future},
			submitted: "1234",
			wantErr:   ErrAlreadyActive,
		},
		{
			name:      "no code issued",
			user:      models.User{},
			submitted: "1234",
			wantErr:   ErrNoCode,
		},
		{
			name:      "wrong code",
			user:      models.User{OTPCode: "1234", OTPExpiry: &future},
			submitted: "9999",
			wantErr:   ErrCodeMismatch,
		},
		{
			name:      "expired code",
			user:      models.User{OTPCode: "1234", OTPExpiry: &past},
			submitted: "1234",
			wantErr:   ErrCodeExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			err := Verify(&u, tt.submitted, testPolicy, now)
			require.ErrorIs(t, err, tt.wantErr)
			// A rejected Verify must leave the record untouched.
			assert.Equal(t, tt.user, u)
		})
	}
}

func TestVerifyFailureDoesNotSpendBudget(t *testing.T) {
	now := time.Now()
	future := now.Add(5 * time.Minute)
	u := &models.User{OTPCode: "1234", OTPExpiry: &future, OTPAttemptsRemaining: 2}

	for i := 0; i < 5; i++ {
		require.ErrorIs(t, Verify(u, "0000", testPolicy, now), ErrCodeMismatch)
	}
	assert.Equal(t, 2, u.OTPAttemptsRemaining)
}

func TestRegenerateSpendsBudgetAndLocksOut(t *testing.T) {
	now := time.Now()
	u := &models.User{OTPAttemptsRemaining: testPolicy.MaxAttempts}

	// Spend the whole budget.
	for want := testPolicy.MaxAttempts - 1; want >= 0; want-- {
		code, err := Regenerate(u, testPolicy, now)
		require.NoError(t, err)
		require.Len(t, code, 4)
		assert.Equal(t, want, u.OTPAttemptsRemaining)
	}

	require.NotNil(t, u.OTPLockedUntil)
	assert.Equal(t, now.Add(testPolicy.Lockout), *u.OTPLockedUntil)

	// One more inside the window must be rejected without a fresh code.
	before := u.OTPCode
	_, err := Regenerate(u, testPolicy, now.Add(time.Minute))
	require.ErrorIs(t, err, ErrLockedOut)
	assert.Equal(t, before, u.OTPCode)
}

func TestRegenerateWithOneAttemptLeft(t *testing.T) {
	now := time.Now()
	u := &models.User{OTPAttemptsRemaining: 1}

	_, err := Regenerate(u, testPolicy, now)
	require.NoError(t, err)
	assert.Equal(t, 0, u.OTPAttemptsRemaining)
	require.NotNil(t, u.OTPLockedUntil)

	_, err = Regenerate(u, testPolicy, now.Add(30*time.Minute))
	require.ErrorIs(t, err, ErrLockedOut)
}

func TestRegenerateResetsAfterLockoutPasses(t *testing.T) {
	now := time.Now()
	expired := now.Add(-time.Minute)
	u := &models.User{OTPAttemptsRemaining: 0, OTPLockedUntil: &expired}

	_, err := Regenerate(u, testPolicy, now)
	require.NoError(t, err)

	// The counter restarts at the maximum instead of drifting below -1.
	assert.Equal(t, testPolicy.MaxAttempts, u.OTPAttemptsRemaining)
	assert.Nil(t, u.OTPLockedUntil)
}

func TestRegenerateBudgetNeverUnbounded(t *testing.T) {
	now := time.Now()
	u := &models.User{OTPAttemptsRemaining: testPolicy.MaxAttempts}

	// Many full cycles, advancing past each lockout window.
	for cycle := 0; cycle < 4; cycle++ {
		for {
			_, err := Regenerate(u, testPolicy, now)
			require.NoError(t, err)
			require.GreaterOrEqual(t, u.OTPAttemptsRemaining, 0)
			if u.OTPAttemptsRemaining == 0 {
				break
			}
		}
		now = now.Add(testPolicy.Lockout + time.Minute)
	}
}
