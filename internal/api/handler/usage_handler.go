package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gendalf/services-portal/internal/core/ports"
	"github.com/gendalf/services-portal/internal/infrastructure/queue"
)

const (
	maxBatchSize = 1000
	// enqueueWait bounds how long a batch request waits for queue space
	// before answering 503.
	enqueueWait = 2 * time.Second
)

// UsageQueue accepts usage reports for asynchronous recording.
type UsageQueue interface {
	EnqueueBatch(ctx context.Context, reports []ports.UsageReport) (int, error)
}

// UsageHandler records and reports service usage.
type UsageHandler struct {
	service     ports.UsageService
	queue       UsageQueue
	enqueueWait time.Duration
}

func NewUsageHandler(service ports.UsageService, queue UsageQueue) *UsageHandler {
	return &UsageHandler{service: service, queue: queue, enqueueWait: enqueueWait}
}

func (r usageRequest) toInput() ports.RecordUsageInput {
	return ports.RecordUsageInput{
		ClientServiceID: r.ClientServiceID,
		UserID:          r.UserID,
		UsageAmount:     r.UsageAmount,
		UsageDate:       r.UsageDate,
		ReportID:        r.ReportID,
	}
}

// Record handles POST /usage.
//
// @Summary      Record usage
// @Description  report_id makes the call idempotent per subscription.
// @Tags         usage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      usageRequest  true  "Usage report"
// @Success      201   {object}  domain.Usage
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /usage [post]
func (h *UsageHandler) Record(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req usageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	usage, err := h.service.Record(c.Request().Context(), actor, req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, usage)
}

// Batch handles POST /usage/batch. Reports are validated up front and then
// recorded in the background, in order per subscription.
//
// @Summary      Queue a batch of usage reports
// @Tags         usage
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      []usageRequest  true  "Usage reports"
// @Success      202   {object}  acceptedResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /usage/batch [post]
func (h *UsageHandler) Batch(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	var reqs []usageRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if len(reqs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "batch is empty")
	}
	if len(reqs) > maxBatchSize {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("batch exceeds %d reports", maxBatchSize))
	}

	reports := make([]ports.UsageReport, 0, len(reqs))
	for i, req := range reqs {
		if err := c.Validate(&req); err != nil {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, fmt.Sprintf("usage[%d]: %v", i, err))
		}
		reports = append(reports, ports.UsageReport{Actor: actor, Input: req.toInput()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.enqueueWait)
	defer cancel()
	n, err := h.queue.EnqueueBatch(ctx, reports)
	if errors.Is(err, queue.ErrQueueFull) {
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			fmt.Sprintf("usage queue is full, %d of %d reports accepted", n, len(reports)))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, acceptedResponse{Message: "usage reports queued", Count: n})
}

// ByClient handles GET /usage/client/:client_id.
//
// @Summary      Usage of a client
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Param        client_id  path     string  true  "Client ID"
// @Success      200        {array}  domain.Usage
// @Failure      403        {object} errorResponse
// @Failure      404        {object} errorResponse
// @Router       /usage/client/{client_id} [get]
func (h *UsageHandler) ByClient(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	records, err := h.service.ByClient(c.Request().Context(), actor, c.Param("client_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// ByUser handles GET /usage/user/:user_id.
//
// @Summary      Usage of a user
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  path     string  true  "User ID"
// @Success      200      {array}  domain.Usage
// @Failure      403      {object} errorResponse
// @Failure      404      {object} errorResponse
// @Router       /usage/user/{user_id} [get]
func (h *UsageHandler) ByUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	records, err := h.service.ByUser(c.Request().Context(), actor, c.Param("user_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// ByService handles GET /usage/service/:service_id.
//
// @Summary      Usage of a service
// @Tags         usage
// @Produce      json
// @Security     BearerAuth
// @Param        service_id  path     string  true  "Service ID"
// @Success      200         {array}  domain.Usage
// @Failure      403         {object} errorResponse
// @Failure      404         {object} errorResponse
// @Router       /usage/service/{service_id} [get]
func (h *UsageHandler) ByService(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	records, err := h.service.ByService(c.Request().Context(), actor, c.Param("service_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}
