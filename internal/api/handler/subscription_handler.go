package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
)

// SubscriptionHandler connects catalog services to clients.
type SubscriptionHandler struct {
	service ports.SubscriptionService
}

func NewSubscriptionHandler(service ports.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// Connect handles POST /clientservices.
//
// @Summary      Subscribe a client to a service
// @Description  Without expires_at the subscription never expires.
// @Tags         subscriptions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      connectRequest  true  "Subscription"
// @Success      201   {object}  domain.ClientService
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /clientservices [post]
func (h *SubscriptionHandler) Connect(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req connectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cs, err := h.service.Connect(c.Request().Context(), actor, ports.ConnectInput{
		ClientID:  req.ClientID,
		ServiceID: req.ServiceID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, cs)
}

// ListByClient handles GET /clientservices/client/:client_id.
//
// @Summary      List subscriptions of a client
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  path     string  true  "Client ID"
// @Success      200        {array}  domain.ClientService
// @Failure      403        {object} errorResponse
// @Failure      404        {object} errorResponse
// @Router       /clientservices/client/{client_id} [get]
func (h *SubscriptionHandler) ListByClient(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	subs, err := h.service.ListByClient(c.Request().Context(), actor, c.Param("client_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subs)
}

// Disconnect handles DELETE /clientservices/:id. Assignments of the
// subscription are removed with it.
//
// @Summary      Disconnect a service from a client
// @Tags         subscriptions
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Subscription ID"
// @Success      200  {object}  domain.ClientService
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /clientservices/{id} [delete]
func (h *SubscriptionHandler) Disconnect(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	cs, err := h.service.Disconnect(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cs)
}
