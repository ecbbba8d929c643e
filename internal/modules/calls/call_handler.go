package call

import (
	"net/http"
	"strconv"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for call statuses.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new call handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) ListCalls(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	calls, err := h.svc.ListCallStatuses(c.Request().Context(), userID, date)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"calls": calls, "total": len(calls)})
}

func (h *Handler) GetCall(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	cs, err := h.svc.GetCallStatus(c.Request().Context(), userID, date, c.Param("orderNumber"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, cs)
}

func (h *Handler) ConfirmCall(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	callID, err := strconv.ParseInt(c.Param("callId"), 10, 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid call ID")
	}

	var req models.ConfirmCallRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	ok, err := h.svc.ConfirmCall(c.Request().Context(), userID, callID, req.Comment)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if !ok {
		return utils.RespondWithError(c, http.StatusNotFound, "call not found or access denied")
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RejectCall(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	callID, err := strconv.ParseInt(c.Param("callId"), 10, 64)
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid call ID")
	}

	ok, err := h.svc.RejectCall(c.Request().Context(), userID, callID)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}
	if !ok {
		return utils.RespondWithError(c, http.StatusNotFound, "call not found or access denied")
	}

	return c.NoContent(http.StatusNoContent)
}

type setManualCallTimeRequest struct {
	CallTime time.Time `json:"call_time" validate:"required"`
}

func (h *Handler) SetManualCallTime(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	var req setManualCallTimeRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	cs, err := h.svc.SetManualCallTime(c.Request().Context(), userID, date, c.Param("orderNumber"), req.CallTime)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, cs)
}
