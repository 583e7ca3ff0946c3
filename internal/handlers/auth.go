package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/middleware"
	"github.com/example/verifly/internal/models"
	"github.com/example/verifly/internal/otp"
	"github.com/example/verifly/internal/services"
	"github.com/example/verifly/internal/store"
	"github.com/example/verifly/internal/utils"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// AuthHandler bundles dependencies for registration and login endpoints.
type AuthHandler struct {
	store *store.Store
	cfg   *config.Config
	mail  *services.EmailService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(st *store.Store, cfg *config.Config, mail *services.EmailService) *AuthHandler {
	return &AuthHandler{store: st, cfg: cfg, mail: mail}
}

type registerRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
}

func (r registerRequest) Validate(minPasswordLength int) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.PhoneNumber,
			validation.Required,
			validation.Match(phonePattern).Error("phone number must be 10 digits only"),
		),
		validation.Field(&r.Password1,
			validation.Required,
			validation.Length(minPasswordLength, 0).
				Error(fmt.Sprintf("password must be longer than %d characters", minPasswordLength)),
		),
		validation.Field(&r.Password2, validation.Required),
	)
}

// Register creates an inactive account and emails a verification link.
// The verification token is never returned to the caller.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := req.Validate(h.cfg.MinPasswordLength); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if req.Password1 != req.Password2 {
		return fiber.NewError(fiber.StatusBadRequest, "passwords do not match")
	}

	if err := h.checkAvailability(c, req.Email, req.PhoneNumber); err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password1)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	token := uuid.NewString()
	expiry := time.Now().Add(h.cfg.VerifyTokenTTL)

	user := models.User{
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		PasswordHash:         passwordHash,
		IsActive:             false,
		OTPCode:              token,
		OTPExpiry:            &expiry,
		OTPAttemptsRemaining: h.cfg.MaxOTPAttempts,
	}

	if err := h.store.Accounts.Create(c.Context(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fiber.NewError(fiber.StatusBadRequest, "email or phone number is already registered")
		}
		return err
	}

	// Best-effort delivery after the account is committed.
	h.mail.SendVerificationEmail(user.Email, token)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Registration successful. Please check your email for verification.",
	})
}

func (h *AuthHandler) checkAvailability(c *fiber.Ctx, email, phone string) error {
	if _, err := h.store.Accounts.ByEmail(c.Context(), email); err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "email is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if _, err := h.store.Accounts.ByPhone(c.Context(), phone); err == nil {
		return fiber.NewError(fiber.StatusBadRequest, "phone number is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	return nil
}

// VerifyEmail activates the account matching the emailed token.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	token := c.Params("token")

	user, err := h.store.Accounts.ByVerificationToken(c.Context(), token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid token")
		}
		return err
	}

	// Re-check token and expiry under the row lock so a concurrent
	// regeneration cannot slip through.
	_, err = h.store.Accounts.Mutate(c.Context(), user.ID, func(u *models.User) error {
		if u.OTPCode != token {
			return store.ErrNotFound
		}
		if u.OTPExpiry == nil || u.OTPExpiry.Before(time.Now()) {
			return otp.ErrCodeExpired
		}
		u.IsActive = true
		u.OTPCode = ""
		u.OTPExpiry = nil
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return fiber.NewError(fiber.StatusBadRequest, "invalid token")
		case errors.Is(err, otp.ErrCodeExpired):
			return fiber.NewError(fiber.StatusBadRequest, "token has expired")
		default:
			return err
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Email verified successfully.",
	})
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PhoneNumber, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login authenticates by phone number and password and mints a credential
// pair. Unknown phone numbers and wrong passwords produce the same message
// so account existence does not leak. Activation status is deliberately not
// checked here; inactive accounts can still obtain tokens.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := req.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	user, err := h.store.Accounts.ByPhone(c.Context(), req.PhoneNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid phone number or password")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid phone number or password")
	}

	pair, err := utils.GenerateTokenPair(h.cfg.JWTSecret, user.ID, h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Refresh exchanges a valid refresh token for a new credential pair. The
// presented refresh token is revoked so each one can be used only once.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Refresh == "" {
		return fiber.NewError(fiber.StatusBadRequest, "refresh token is required")
	}

	claims, err := utils.ParseToken(h.cfg.JWTSecret, req.Refresh, utils.TokenUseRefresh)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	userID, err := claims.SubjectID()
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token")
	}

	// Spend the token by revoking it first; losing the race to another
	// request means it was already used.
	if err := h.store.Tokens.Revoke(c.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fiber.NewError(fiber.StatusUnauthorized, "refresh token revoked")
		}
		return err
	}

	pair, err := utils.GenerateTokenPair(h.cfg.JWTSecret, userID, h.cfg.AccessTokenTTL, h.cfg.RefreshTokenTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate tokens")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"access":  pair.Access,
		"refresh": pair.Refresh,
	})
}

// Logout denylists the presented access token until its natural expiry.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, ok := middleware.GetCurrentClaims(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	// Logging out twice is fine; the token is revoked either way.
	if err := h.store.Tokens.Revoke(c.Context(), claims.ID, claims.ExpiresAt.Time); err != nil && !errors.Is(err, store.ErrConflict) {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}
