package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
)

// ClientHandler exposes tenant management.
type ClientHandler struct {
	service ports.TenantService
}

func NewClientHandler(service ports.TenantService) *ClientHandler {
	return &ClientHandler{service: service}
}

// Create handles POST /clients.
//
// @Summary      Create a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      clientRequest  true  "Client"
// @Success      201   {object}  domain.Client
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /clients [post]
func (h *ClientHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req clientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.service.Create(c.Request().Context(), actor, ports.ClientInput{Name: req.Name, TariffID: req.TariffID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, client)
}

// List handles GET /clients.
//
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query     int  false  "Records to skip"
// @Param        limit  query     int  false  "Page size (default 100)"
// @Success      200    {array}   domain.Client
// @Failure      403    {object}  errorResponse
// @Router       /clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}

	clients, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clients)
}

// Mine handles GET /clients/me.
//
// @Summary      Client of the current user
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Client
// @Failure      400  {object}  errorResponse
// @Router       /clients/me [get]
func (h *ClientHandler) Mine(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	client, err := h.service.Mine(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Get handles GET /clients/:id.
//
// @Summary      Get a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  domain.Client
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /clients/{id} [get]
func (h *ClientHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	client, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Update handles PUT /clients/:id.
//
// @Summary      Update a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Client ID"
// @Param        body  body      clientUpdateRequest  true  "Fields to change"
// @Success      200   {object}  domain.Client
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req clientUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), ports.ClientInput{Name: req.Name, TariffID: req.TariffID})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Delete handles DELETE /clients/:id.
//
// @Summary      Delete a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Client ID"
// @Success      200  {object}  domain.Client
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /clients/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	client, err := h.service.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}
