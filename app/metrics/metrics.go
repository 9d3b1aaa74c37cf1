// Package metrics records per-run Prometheus metrics and pushes them to a Pushgateway
package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Warning reasons, kept low-cardinality
const (
	ReasonNoPilots       = "no_pilots"
	ReasonPilotInactive  = "pilot_inactive"
	ReasonNoPNAvailable  = "no_pn_available"
	ReasonAttachFailed   = "attach_failed"
	ReasonWindowInverted = "window_inverted"
)

// RunMetrics holds one run's collectors on a private registry.
// A nil *RunMetrics is valid and records nothing.
type RunMetrics struct {
	registry *prometheus.Registry

	tenantsProcessed prometheus.Counter
	tenantErrors     prometheus.Counter
	vnsProcessed     prometheus.Counter
	pnsAssigned      prometheus.Counter
	warnings         *prometheus.CounterVec
	reservationRaces prometheus.Counter
	attachFailures   *prometheus.CounterVec
	persistFailures  prometheus.Counter
	runDuration      prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

func NewRunMetrics() *RunMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &RunMetrics{
		registry: reg,
		tenantsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_tenants_processed_total",
			Help: "Tenants processed without error",
		}),
		tenantErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_tenant_errors_total",
			Help: "Tenants whose processing failed",
		}),
		vnsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_vns_processed_total",
			Help: "Purchased virtual numbers processed",
		}),
		pnsAssigned: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_pns_assigned_total",
			Help: "Physical numbers attached as backups",
		}),
		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pn_backup_warnings_total",
			Help: "Report warnings partitioned by reason",
		}, []string{"reason"}),
		reservationRaces: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_reservation_races_total",
			Help: "Candidates lost to a concurrent claimant",
		}),
		attachFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pn_backup_attach_failures_total",
			Help: "Failed attach calls partitioned by HTTP status or transport",
		}, []string{"status"}),
		persistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "pn_backup_assignment_persist_failures_total",
			Help: "Successful attaches whose assignment row could not be written",
		}),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pn_backup_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pn_backup_last_success_timestamp_seconds",
			Help: "Unix time of the last run that completed setup",
		}),
	}
}

// Registry exposes the run's registry for gathering
func (m *RunMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *RunMetrics) TenantProcessed() {
	if m != nil {
		m.tenantsProcessed.Inc()
	}
}

func (m *RunMetrics) TenantFailed() {
	if m != nil {
		m.tenantErrors.Inc()
	}
}

func (m *RunMetrics) VNProcessed() {
	if m != nil {
		m.vnsProcessed.Inc()
	}
}

func (m *RunMetrics) PNAssigned() {
	if m != nil {
		m.pnsAssigned.Inc()
	}
}

func (m *RunMetrics) Warning(reason string) {
	if m != nil {
		m.warnings.WithLabelValues(reason).Inc()
	}
}

func (m *RunMetrics) ReservationRace() {
	if m != nil {
		m.reservationRaces.Inc()
	}
}

// AttachFailed counts a failed attach; statusCode 0 means the request never got a response
func (m *RunMetrics) AttachFailed(statusCode int) {
	if m == nil {
		return
	}
	label := "transport"
	if statusCode > 0 {
		label = strconv.Itoa(statusCode)
	}
	m.attachFailures.WithLabelValues(label).Inc()
}

func (m *RunMetrics) PersistFailed() {
	if m != nil {
		m.persistFailures.Inc()
	}
}

// ObserveRun records duration and, when the run completed, the success timestamp
func (m *RunMetrics) ObserveRun(start, end time.Time, completed bool) {
	if m == nil {
		return
	}
	m.runDuration.Set(end.Sub(start).Seconds())
	if completed {
		m.lastSuccess.Set(float64(end.Unix()))
	}
}

// Push sends the run's metrics to a Pushgateway, replacing the job's previous group
func (m *RunMetrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
