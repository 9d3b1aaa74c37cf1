package testing

import (
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/models"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreatePurchasedNumber inserts a virtual number bought by tenantID at createdAt
func (tf *TestFixtures) CreatePurchasedNumber(id, tenantID, number, region string, createdAt time.Time) (*models.VirtualNumber, error) {
	vn := &models.VirtualNumber{
		ID:          id,
		TenantID:    tenantID,
		Number:      number,
		Region:      region,
		DateCreated: createdAt.UTC(),
	}
	if err := tf.DB.DB.Create(vn).Error; err != nil {
		return nil, fmt.Errorf("failed to create virtual number %s: %w", id, err)
	}
	return vn, nil
}

// CreatePilot inserts a pilot row with the given state
func (tf *TestFixtures) CreatePilot(id, state string) (*models.Pilot, error) {
	pilot := &models.Pilot{ID: id, State: state}
	if err := tf.DB.DB.Create(pilot).Error; err != nil {
		return nil, fmt.Errorf("failed to create pilot %s: %w", id, err)
	}
	return pilot, nil
}

// CreateAvailableNumber inserts an available pool number behind pilotID
func (tf *TestFixtures) CreateAvailableNumber(id, number, pilotID, region string) (*models.PhysicalNumber, error) {
	pn := &models.PhysicalNumber{
		ID:      id,
		Number:  number,
		PilotID: pilotID,
		Region:  region,
		State:   models.PhysicalNumberStateAvailable,
	}
	if err := tf.DB.DB.Create(pn).Error; err != nil {
		return nil, fmt.Errorf("failed to create physical number %s: %w", id, err)
	}
	return pn, nil
}

// CreateReservedNumber inserts a number already reserved by reservedBy at reservedAt
func (tf *TestFixtures) CreateReservedNumber(id, number, pilotID, region, reservedBy string, reservedAt time.Time) (*models.PhysicalNumber, error) {
	at := reservedAt.UTC()
	pn := &models.PhysicalNumber{
		ID:         id,
		Number:     number,
		PilotID:    pilotID,
		Region:     region,
		State:      models.PhysicalNumberStateReserved,
		ReservedBy: &reservedBy,
		ReservedAt: &at,
	}
	if err := tf.DB.DB.Create(pn).Error; err != nil {
		return nil, fmt.Errorf("failed to create reserved number %s: %w", id, err)
	}
	return pn, nil
}

// CreateMapping binds a physical number to a pilot as an outgoing caller id
func (tf *TestFixtures) CreateMapping(pilotID, phoneNumber string) error {
	m := &models.PilotNumberMapping{PilotID: pilotID, PhoneNumber: phoneNumber}
	if err := tf.DB.DB.Create(m).Error; err != nil {
		return fmt.Errorf("failed to create mapping %s -> %s: %w", pilotID, phoneNumber, err)
	}
	return nil
}

// FindPhysicalNumber reloads a pool number by id
func (tf *TestFixtures) FindPhysicalNumber(id string) (*models.PhysicalNumber, error) {
	var pn models.PhysicalNumber
	if err := tf.DB.DB.Where("id = ?", id).Take(&pn).Error; err != nil {
		return nil, err
	}
	return &pn, nil
}

// CountAssignments returns the number of assignment rows
func (tf *TestFixtures) CountAssignments() (int64, error) {
	var count int64
	err := tf.DB.DB.Model(&models.Assignment{}).Count(&count).Error
	return count, err
}
