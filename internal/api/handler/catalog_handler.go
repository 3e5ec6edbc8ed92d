package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
)

// ServiceHandler exposes the global service catalog.
type ServiceHandler struct {
	service ports.CatalogService
}

func NewServiceHandler(service ports.CatalogService) *ServiceHandler {
	return &ServiceHandler{service: service}
}

// Create handles POST /services.
//
// @Summary      Create a service
// @Tags         services
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      serviceRequest  true  "Service"
// @Success      201   {object}  domain.Service
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /services [post]
func (h *ServiceHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req serviceRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	svc, err := h.service.Create(c.Request().Context(), actor, ports.ServiceInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, svc)
}

// List handles GET /services.
//
// @Summary      List services
// @Tags         services
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query    int  false  "Records to skip"
// @Param        limit  query    int  false  "Page size (default 100)"
// @Success      200    {array}  domain.Service
// @Router       /services [get]
func (h *ServiceHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	services, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, services)
}

// Get handles GET /services/:id.
//
// @Summary      Get a service
// @Tags         services
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Service ID"
// @Success      200  {object}  domain.Service
// @Failure      404  {object}  errorResponse
// @Router       /services/{id} [get]
func (h *ServiceHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	svc, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// Update handles PUT /services/:id.
//
// @Summary      Update a service
// @Tags         services
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Service ID"
// @Param        body  body      serviceUpdateRequest  true  "Fields to change"
// @Success      200   {object}  domain.Service
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /services/{id} [put]
func (h *ServiceHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req serviceUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	svc, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), ports.ServiceInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// Delete handles DELETE /services/:id.
//
// @Summary      Delete a service
// @Tags         services
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Service ID"
// @Success      200  {object}  domain.Service
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /services/{id} [delete]
func (h *ServiceHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	svc, err := h.service.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, svc)
}

// TariffHandler exposes tariff plans.
type TariffHandler struct {
	service ports.TariffService
}

func NewTariffHandler(service ports.TariffService) *TariffHandler {
	return &TariffHandler{service: service}
}

func (r tariffRequest) toInput() ports.TariffInput {
	return ports.TariffInput{
		Name:               r.Name,
		MaxUsers:           r.MaxUsers,
		MaxServices:        r.MaxServices,
		PeriodDays:         r.PeriodDays,
		Price:              r.Price,
		MaxUsersPerService: r.MaxUsersPerService,
	}
}

// Create handles POST /tariffs.
//
// @Summary      Create a tariff
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      tariffRequest  true  "Tariff"
// @Success      201   {object}  domain.Tariff
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /tariffs [post]
func (h *TariffHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req tariffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tariff, err := h.service.Create(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tariff)
}

// List handles GET /tariffs.
//
// @Summary      List tariffs
// @Tags         tariffs
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query    int  false  "Records to skip"
// @Param        limit  query    int  false  "Page size (default 100)"
// @Success      200    {array}  domain.Tariff
// @Router       /tariffs [get]
func (h *TariffHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	tariffs, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tariffs)
}

// Get handles GET /tariffs/:id.
//
// @Summary      Get a tariff
// @Tags         tariffs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tariff ID"
// @Success      200  {object}  domain.Tariff
// @Failure      404  {object}  errorResponse
// @Router       /tariffs/{id} [get]
func (h *TariffHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	tariff, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tariff)
}

// Update handles PUT /tariffs/:id. Every limit is replaced.
//
// @Summary      Update a tariff
// @Tags         tariffs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Tariff ID"
// @Param        body  body      tariffRequest  true  "Tariff"
// @Success      200   {object}  domain.Tariff
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /tariffs/{id} [put]
func (h *TariffHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req tariffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tariff, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tariff)
}

// Delete handles DELETE /tariffs/:id.
//
// @Summary      Delete a tariff
// @Tags         tariffs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tariff ID"
// @Success      200  {object}  domain.Tariff
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /tariffs/{id} [delete]
func (h *TariffHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	tariff, err := h.service.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tariff)
}
