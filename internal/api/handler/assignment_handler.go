package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
)

// AssignmentHandler grants users access to their client's subscriptions.
type AssignmentHandler struct {
	service ports.AssignmentService
}

func NewAssignmentHandler(service ports.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: service}
}

// Assign handles POST /user_service.
//
// @Summary      Assign a user to a subscription
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      assignRequest  true  "Assignment"
// @Success      201   {object}  domain.UserService
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /user_service [post]
func (h *AssignmentHandler) Assign(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req assignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	us, err := h.service.Assign(c.Request().Context(), actor, req.UserID, req.ClientServiceID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, us)
}

// ListByUser handles GET /user_service/user/:user_id.
//
// @Summary      List assignments of a user
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path     string  true  "User ID"
// @Success      200      {array}  domain.UserService
// @Failure      403      {object} errorResponse
// @Failure      404      {object} errorResponse
// @Router       /user_service/user/{user_id} [get]
func (h *AssignmentHandler) ListByUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	list, err := h.service.ListByUser(c.Request().Context(), actor, c.Param("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Revoke handles DELETE /user_service/:id.
//
// @Summary      Revoke an assignment
// @Tags         assignments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Assignment ID"
// @Success      200  {object}  domain.UserService
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /user_service/{id} [delete]
func (h *AssignmentHandler) Revoke(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	us, err := h.service.Revoke(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, us)
}
