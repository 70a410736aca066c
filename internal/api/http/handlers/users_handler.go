package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/bognix/dymek-api/internal/api/dto"
	"github.com/bognix/dymek-api/internal/repository"
	apperrors "github.com/bognix/dymek-api/pkg/util"
)

// UsersHandler manages the user directory surface.
type UsersHandler struct {
	users repository.UserDirectory
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users repository.UserDirectory) *UsersHandler {
	return &UsersHandler{users: users}
}

// UpsertToken PUT /users/:id/token stores a device registration token for
// push delivery.
func (h *UsersHandler) UpsertToken(c *fiber.Ctx) error {
	var req dto.UpsertTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.users.UpdateOrCreateUser(c.UserContext(), c.Params("id"), req.RegistrationToken)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": user})
}
