package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
)

// UserHandler manages portal accounts.
type UserHandler struct {
	service ports.AccountService
}

func NewUserHandler(service ports.AccountService) *UserHandler {
	return &UserHandler{service: service}
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userRequest  true  "User"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req userRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), actor, ports.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		ClientID: req.ClientID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// List handles GET /users. Results are narrowed to what the caller may see.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        skip   query    int  false  "Records to skip"
// @Param        limit  query    int  false  "Page size (default 100)"
// @Success      200    {array}  domain.User
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	users, err := h.service.List(c.Request().Context(), actor, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.User
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	user, err := h.service.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update handles PUT /users/:id.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User ID"
// @Param        body  body      userUpdateRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req userUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), actor, c.Param("id"), ports.UpdateUserInput{
		Email:    req.Email,
		Role:     req.Role,
		ClientID: req.ClientID,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User ID"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	user, err := h.service.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}
