package route

import (
	"net/http"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for routes and start locations.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new route handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) OptimizeRoute(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.OptimizeRouteRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.OptimizeRoute(c.Request().Context(), userID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if !result.Success {
		return utils.RespondWithJSON(c, http.StatusUnprocessableEntity, result)
	}

	return utils.RespondWithJSON(c, http.StatusOK, result)
}

func (h *Handler) GetRoute(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	snap, err := h.svc.GetRoute(c.Request().Context(), userID, date)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, snap)
}

func (h *Handler) SaveStartLocation(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.SaveStartLocationRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	loc, err := h.svc.SaveStartLocation(c.Request().Context(), userID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, loc)
}

func (h *Handler) GetStartLocation(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	loc, err := h.svc.GetStartLocation(c.Request().Context(), userID, date)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, loc)
}
