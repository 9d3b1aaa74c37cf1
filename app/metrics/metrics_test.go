package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/pn-backup/app/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMetrics(t *testing.T) {
	m := metrics.NewRunMetrics()

	m.VNProcessed()
	m.PNAssigned()
	m.PNAssigned()
	m.Warning(metrics.ReasonPilotInactive)
	m.Warning(metrics.ReasonPilotInactive)
	m.Warning(metrics.ReasonNoPNAvailable)
	m.ReservationRace()
	m.AttachFailed(500)
	m.AttachFailed(0)
	m.TenantFailed()

	start := time.Unix(1_700_000_000, 0)
	m.ObserveRun(start, start.Add(3*time.Second), true)

	expected := `
# HELP pn_backup_pns_assigned_total Physical numbers attached as backups
# TYPE pn_backup_pns_assigned_total counter
pn_backup_pns_assigned_total 2
# HELP pn_backup_warnings_total Report warnings partitioned by reason
# TYPE pn_backup_warnings_total counter
pn_backup_warnings_total{reason="no_pn_available"} 1
pn_backup_warnings_total{reason="pilot_inactive"} 2
# HELP pn_backup_attach_failures_total Failed attach calls partitioned by HTTP status or transport
# TYPE pn_backup_attach_failures_total counter
pn_backup_attach_failures_total{status="500"} 1
pn_backup_attach_failures_total{status="transport"} 1
# HELP pn_backup_run_duration_seconds Wall time of the last run
# TYPE pn_backup_run_duration_seconds gauge
pn_backup_run_duration_seconds 3
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"pn_backup_pns_assigned_total",
		"pn_backup_warnings_total",
		"pn_backup_attach_failures_total",
		"pn_backup_run_duration_seconds",
	))
}

func TestRunMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.RunMetrics
	assert.NotPanics(t, func() {
		m.VNProcessed()
		m.Warning(metrics.ReasonNoPilots)
		m.AttachFailed(404)
		m.ObserveRun(time.Now(), time.Now(), true)
	})
	assert.NoError(t, m.Push(context.Background(), "http://unused", "job"))
}

func TestRunMetrics_Push(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := metrics.NewRunMetrics()
	m.PNAssigned()

	require.NoError(t, m.Push(context.Background(), srv.URL, "pn_backup"))
	assert.Equal(t, "/metrics/job/pn_backup", gotPath)
	assert.NotEmpty(t, gotBody)

	assert.NoError(t, m.Push(context.Background(), "", "pn_backup"))
}
