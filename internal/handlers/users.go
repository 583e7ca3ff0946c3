package handlers

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/verifly/internal/config"
	"github.com/example/verifly/internal/models"
	"github.com/example/verifly/internal/otp"
	"github.com/example/verifly/internal/services"
	"github.com/example/verifly/internal/store"
	"github.com/example/verifly/internal/utils"
)

// UserHandler manages phone-first signup and the OTP endpoints.
type UserHandler struct {
	store *store.Store
	cfg   *config.Config
	sms   *services.SMSService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(st *store.Store, cfg *config.Config, sms *services.SMSService) *UserHandler {
	return &UserHandler{store: st, cfg: cfg, sms: sms}
}

func (h *UserHandler) policy() otp.Policy {
	return otp.Policy{
		MaxAttempts: h.cfg.MaxOTPAttempts,
		CodeTTL:     h.cfg.OTPTTL,
		Lockout:     h.cfg.OTPLockout,
	}
}

type createUserRequest struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password1   string `json:"password1"`
	Password2   string `json:"password2"`
}

func (r createUserRequest) Validate(minPasswordLength int) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.PhoneNumber,
			validation.Required,
			validation.Match(phonePattern).Error("phone number must be 10 digits only"),
		),
		validation.Field(&r.Password1,
			validation.Required,
			validation.Length(minPasswordLength, 0),
		),
		validation.Field(&r.Password2, validation.Required),
	)
}

// CreateUser registers an account through the phone flow: the account starts
// inactive with a freshly issued OTP that is sent by SMS.
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := req.Validate(h.cfg.MinPasswordLength); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if req.Password1 != req.Password2 {
		return fiber.NewError(fiber.StatusBadRequest, "passwords do not match")
	}

	passwordHash, err := utils.HashPassword(req.Password1)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:                req.Email,
		PhoneNumber:          req.PhoneNumber,
		PasswordHash:         passwordHash,
		IsActive:             false,
		OTPAttemptsRemaining: h.cfg.MaxOTPAttempts,
	}

	code, err := otp.Issue(&user, h.policy(), time.Now())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate OTP")
	}

	if err := h.store.Accounts.Create(c.Context(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return fiber.NewError(fiber.StatusBadRequest, "email or phone number is already registered")
		}
		return err
	}

	// Delivery failures are accepted; the user can regenerate.
	h.sms.SendOTP(user.PhoneNumber, code)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user": fiber.Map{
			"id":           user.ID,
			"phone_number": user.PhoneNumber,
			"email":        user.Email,
		},
	})
}

type verifyOTPRequest struct {
	OTP string `json:"otp"`
}

// VerifyOTP activates the account when the submitted code matches. Failed
// attempts are not rate-limited; only regeneration spends the retry budget.
func (h *UserHandler) VerifyOTP(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "otp is required")
	}

	_, err = h.store.Accounts.Mutate(c.Context(), userID, func(u *models.User) error {
		return otp.Verify(u, req.OTP, h.policy(), time.Now())
	})
	if err != nil {
		return otpError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Successfully verified the user.",
	})
}

// RegenerateOTP issues a replacement code, enforcing the retry budget and
// cool-down, and sends it by SMS after the state change commits.
func (h *UserHandler) RegenerateOTP(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	var code string
	user, err := h.store.Accounts.Mutate(c.Context(), userID, func(u *models.User) error {
		var issueErr error
		code, issueErr = otp.Regenerate(u, h.policy(), time.Now())
		return issueErr
	})
	if err != nil {
		return otpError(err)
	}

	h.sms.SendOTP(user.PhoneNumber, code)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Successfully generated new OTP.",
	})
}

func otpError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	case errors.Is(err, otp.ErrLockedOut),
		errors.Is(err, otp.ErrCodeMismatch),
		errors.Is(err, otp.ErrCodeExpired),
		errors.Is(err, otp.ErrNoCode),
		errors.Is(err, otp.ErrAlreadyActive):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

// ListUsers returns a page of accounts with optional substring filters on
// phone number and email.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	filter := store.UserFilter{
		PhoneNumber: c.Query("phone_number"),
		Email:       c.Query("email"),
	}

	users, total, err := h.store.Accounts.List(c.Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    users,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// ExportUsersCSV streams every account as a CSV attachment. Staff only.
func (h *UserHandler) ExportUsersCSV(c *fiber.Ctx) error {
	users, _, err := h.store.Accounts.List(c.Context(), store.UserFilter{}, -1, 0)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"Phone Number", "Email", "Is Active", "Date Registered"}); err != nil {
		return err
	}
	for _, u := range users {
		record := []string{
			u.PhoneNumber,
			u.Email,
			strconv.FormatBool(u.IsActive),
			u.RegisteredAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="users.csv"`)
	return c.Send(buf.Bytes())
}
