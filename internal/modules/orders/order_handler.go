package order

import (
	"net/http"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/utils"

	"github.com/labstack/echo/v4"
)

// Handler handles HTTP requests for daily orders.
type Handler struct {
	svc ServiceInterface
}

// NewHandler creates a new order handler.
func NewHandler(svc ServiceInterface) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) AddOrder(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	var req models.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	order, err := h.svc.AddOrder(c.Request().Context(), userID, req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusCreated, order)
}

func (h *Handler) ListOrders(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	orders, err := h.svc.ListOrders(c.Request().Context(), userID, date)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"orders": orders, "total": len(orders)})
}

func (h *Handler) GetOrder(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	order, err := h.svc.GetOrder(c.Request().Context(), userID, date, c.Param("orderNumber"))
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, order)
}

func (h *Handler) UpdateContact(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	var req models.UpdateOrderContactRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	order, err := h.svc.UpdateContact(c.Request().Context(), userID, date, c.Param("orderNumber"), req)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, order)
}

func (h *Handler) MarkDelivered(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	if err := h.svc.MarkDelivered(c.Request().Context(), userID, date, c.Param("orderNumber")); err != nil {
		return utils.HandleServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetManualArrival(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	var req models.SetManualArrivalRequest
	if err := c.Bind(&req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := utils.GetValidator().Validate(req); err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, err.Error())
	}

	if err := h.svc.SetManualArrival(c.Request().Context(), userID, date, c.Param("orderNumber"), req.ArrivalTime); err != nil {
		return utils.HandleServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearManualArrival(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	if err := h.svc.ClearManualArrival(c.Request().Context(), userID, date, c.Param("orderNumber")); err != nil {
		return utils.HandleServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ClearDay(c echo.Context) error {
	userID, _, err := utils.ExtractUserInfo(c)
	if err != nil {
		return err
	}

	date, err := utils.ParseDate(c.QueryParam("date"))
	if err != nil {
		return utils.RespondWithError(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	}

	deleted, err := h.svc.ClearDay(c.Request().Context(), userID, date)
	if err != nil {
		return utils.HandleServiceError(c, err)
	}

	return utils.RespondWithJSON(c, http.StatusOK, map[string]interface{}{"deleted": deleted})
}
