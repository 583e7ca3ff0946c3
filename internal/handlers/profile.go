package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/verifly/internal/middleware"
	"github.com/example/verifly/internal/models"
	"github.com/example/verifly/internal/store"
)

// ProfileHandler manages the caller's own profile. Ownership is implicit:
// every operation acts on the profile belonging to the token subject.
type ProfileHandler struct {
	store *store.Store
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(st *store.Store) *ProfileHandler {
	return &ProfileHandler{store: st}
}

// GetProfile returns the authenticated account's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	profile, err := h.store.Profiles.ByUser(c.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "profile not found")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}

type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Address   *string `json:"address"`
}

// UpdateProfile updates profile fields, creating the profile on first use.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.FirstName == nil && req.LastName == nil && req.Address == nil {
		return fiber.NewError(fiber.StatusBadRequest, "no fields to update")
	}

	profile, err := h.store.Profiles.ByUser(c.Context(), userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		profile = &models.Profile{UserID: userID}
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.Address != nil {
		profile.Address = *req.Address
	}

	if err := h.store.Profiles.Save(c.Context(), profile); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    profile,
	})
}
