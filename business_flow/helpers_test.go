package businessflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/repository"
	testingutil "github.com/amirphl/pn-backup/testing"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

type attachCall struct {
	VN, PN, TenantID string
}

// fakeAttachGateway records calls and answers from respond, defaulting to success
type fakeAttachGateway struct {
	mu      sync.Mutex
	calls   []attachCall
	respond func(vn, pn string) (bool, map[string]any)
}

func (g *fakeAttachGateway) Attach(_ context.Context, vn, pn, tenantID string) (bool, map[string]any) {
	g.mu.Lock()
	g.calls = append(g.calls, attachCall{VN: vn, PN: pn, TenantID: tenantID})
	g.mu.Unlock()
	if g.respond != nil {
		return g.respond(vn, pn)
	}
	return true, map[string]any{"attached": pn}
}

func (g *fakeAttachGateway) Calls() []attachCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]attachCall(nil), g.calls...)
}

// fakePilotRepository serves pilots from a map and records lookups
type fakePilotRepository struct {
	pilots map[string]*models.Pilot
	err    error
	asked  []string
}

func (r *fakePilotRepository) ByID(_ context.Context, pilotID string) (*models.Pilot, error) {
	r.asked = append(r.asked, pilotID)
	if r.err != nil {
		return nil, r.err
	}
	return r.pilots[pilotID], nil
}

type failingVNRepository struct{}

func (failingVNRepository) ListPurchased(context.Context, string, time.Time, time.Time) ([]*models.VirtualNumber, error) {
	return nil, errStoreDown
}

// racingPNRepository offers candidates that are always lost to another claimant
type racingPNRepository struct {
	candidates []*models.PhysicalNumber
}

func (r *racingPNRepository) ListCandidates(context.Context, string, string, int) ([]*models.PhysicalNumber, error) {
	return r.candidates, nil
}

func (r *racingPNRepository) Reserve(context.Context, string, string, time.Time) (bool, error) {
	return false, nil
}

func (r *racingPNRepository) ListOrphanedReservations(context.Context, string, time.Time) ([]*models.PhysicalNumber, error) {
	return nil, nil
}

type storeHandle struct {
	db       *testingutil.TestDB
	fixtures *testingutil.TestFixtures
	schema   *repository.Schema
}

// setupStore opens a test database with the default schema plus both optional assignment columns
func setupStore(t *testing.T) *storeHandle {
	t.Helper()
	testDB, err := testingutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	schema, err := repository.PresetSchema(repository.SchemaV1)
	require.NoError(t, err)
	schema.AssignmentOptionalColumns = []string{repository.ColumnRunID, repository.ColumnAttachResponse}

	return &storeHandle{db: testDB, fixtures: testingutil.NewTestFixtures(testDB), schema: schema}
}

type failingPNRepository struct {
	racingPNRepository
}

func (failingPNRepository) ListOrphanedReservations(context.Context, string, time.Time) ([]*models.PhysicalNumber, error) {
	return nil, errStoreDown
}

// flakyPNRepository claims the first failAfter candidates and then fails
type flakyPNRepository struct {
	racingPNRepository
	failAfter int
	claims    int
}

func (r *flakyPNRepository) Reserve(context.Context, string, string, time.Time) (bool, error) {
	if r.claims >= r.failAfter {
		return false, errStoreDown
	}
	r.claims++
	return true, nil
}
