// Package metrics defines and registers all custom Prometheus metrics for the
// services portal. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry through promauto
// on package initialisation; HTTP request metrics come from echoprometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portal"

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// AuthzDenialsTotal counts requests rejected by the policy engine.
// Labels:
//   - method: HTTP method
//   - path:   echo route path (e.g. "/users/:id")
var AuthzDenialsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authz_denials_total",
		Help:      "Total number of authenticated requests denied by the access policy.",
	},
	[]string{"method", "path"},
)

// LimitRejectionsTotal counts mutations blocked by a tariff cap.
// Label:
//   - limit: "max_services", "max_users" or "max_users_per_service"
var LimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tariff_limit_rejections_total",
		Help:      "Total number of mutations rejected because a tariff limit was reached.",
	},
	[]string{"limit"},
)

// ── Usage metrics ─────────────────────────────────────────────────────────────

// UsageRecordedTotal counts usage records written to the ledger.
var UsageRecordedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_recorded_total",
		Help:      "Total number of usage records persisted.",
	},
)

// UsageErrorsTotal counts asynchronous usage reports that failed processing.
// Label:
//   - reason: "forbidden", "not_found", "invalid", "internal"
var UsageErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_errors_total",
		Help:      "Total number of usage reports that failed processing.",
	},
	[]string{"reason"},
)

// UsageDedupTotal counts deduplication decisions on report IDs.
// Label:
//   - result: "hit" (duplicate, skipped) or "miss" (new report, recorded)
var UsageDedupTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "usage_dedup_total",
		Help:      "Total number of usage report deduplication checks, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// UsageQueueDepth tracks the number of reports waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var UsageQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "usage_queue_depth",
		Help:      "Current number of usage reports pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// UsageProcessingDuration measures how long one asynchronous report takes.
// Label:
//   - result: "ok" or "error"
var UsageProcessingDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "usage_processing_duration_seconds",
		Help:      "Duration of usage report processing from dequeue to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)
