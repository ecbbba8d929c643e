package utils

import (
	"errors"
	"net/http"

	"courier-assistant/internal/models"

	"github.com/labstack/echo/v4"
)

// RespondWithError writes a JSON error body with the given status.
func RespondWithError(c echo.Context, status int, message string) error {
	return c.JSON(status, models.ErrorResponse{Message: message})
}

// RespondWithJSON writes a JSON response with the given status.
func RespondWithJSON(c echo.Context, status int, payload interface{}) error {
	return c.JSON(status, payload)
}

// HandleServiceError maps service-layer sentinel errors onto HTTP statuses.
func HandleServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return RespondWithError(c, http.StatusNotFound, "resource not found")
	case errors.Is(err, models.ErrConflict):
		return RespondWithError(c, http.StatusConflict, "resource already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		return RespondWithError(c, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, models.ErrInvalidToken):
		return RespondWithError(c, http.StatusUnauthorized, "invalid or expired token")
	case errors.Is(err, models.ErrAccountNotActive):
		return RespondWithError(c, http.StatusForbidden, "account is not activated")
	case errors.Is(err, models.ErrInvalidTransition):
		return RespondWithError(c, http.StatusConflict, "call is not in a state that allows this action")
	default:
		c.Logger().Errorf("internal error: %v", err)
		return RespondWithError(c, http.StatusInternalServerError, "internal server error")
	}
}

// ExtractUserInfo returns the authenticated user's id and email placed in
// the context by the JWT middleware.
func ExtractUserInfo(c echo.Context) (userID, email string, err error) {
	id, ok := c.Get("userID").(string)
	if !ok || id == "" {
		return "", "", RespondWithError(c, http.StatusUnauthorized, "missing authentication context")
	}
	mail, _ := c.Get("userEmail").(string)
	return id, mail, nil
}
