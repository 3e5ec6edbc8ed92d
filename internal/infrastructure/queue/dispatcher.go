package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gendalf/services-portal/internal/core/domain"
	"github.com/gendalf/services-portal/internal/core/ports"
	"github.com/gendalf/services-portal/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// ErrQueueFull is returned when a worker's buffer stays full until the
// caller's context ends.
var ErrQueueFull = errors.New("usage queue is full")

// Recorder is the part of the usage service the workers call.
type Recorder interface {
	Record(ctx context.Context, actor *domain.User, in ports.RecordUsageInput) (*domain.Usage, error)
}

// Dispatcher routes usage reports to a fixed set of workers using consistent
// hashing on the subscription ID, so reports for one subscription are
// recorded in submission order.
type Dispatcher struct {
	workers   []chan ports.UsageReport
	recorder  Recorder
	log       zerolog.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, recorder Recorder, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:  make([]chan ports.UsageReport, numWorkers),
		recorder: recorder,
		log:      log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.UsageReport, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops intake. Workers record what is already buffered and then
// return. Enqueue must not be called after Close.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		for _, ch := range d.workers {
			close(ch)
		}
	})
}

// Enqueue hands a report to the worker responsible for its subscription. It
// blocks while that worker's buffer is full, up to ctx.
func (d *Dispatcher) Enqueue(ctx context.Context, report ports.UsageReport) error {
	idx := d.shardIndex(report.Input.ClientServiceID)
	select {
	case d.workers[idx] <- report:
		metrics.UsageQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// EnqueueBatch enqueues reports in order and returns how many were accepted.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, reports []ports.UsageReport) (int, error) {
	for i, r := range reports {
		if err := d.Enqueue(ctx, r); err != nil {
			return i, err
		}
	}
	return len(reports), nil
}

// shardIndex maps a subscription ID deterministically to a worker index.
func (d *Dispatcher) shardIndex(clientServiceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(clientServiceID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.UsageReport) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			return
		case report, ok := <-ch:
			if !ok {
				return
			}
			metrics.UsageQueueDepth.WithLabelValues(workerID).Dec()
			d.process(ctx, workerID, report)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID string, report ports.UsageReport) {
	start := time.Now()
	_, err := d.recorder.Record(ctx, report.Actor, report.Input)

	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateReport):
		result = "duplicate"
		d.log.Debug().Str("report_id", report.Input.ReportID).Msg("duplicate usage report skipped")
	default:
		result = "error"
		metrics.UsageErrorsTotal.WithLabelValues(errorReason(err)).Inc()
		d.log.Error().Err(err).
			Str("client_service_id", report.Input.ClientServiceID).
			Str("user_id", report.Input.UserID).
			Str("worker_id", workerID).
			Msg("usage recording failed")
	}
	metrics.UsageProcessingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNotAssigned):
		return "not_assigned"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "internal"
	}
}
