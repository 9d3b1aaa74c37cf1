package utils

import (
	"time"
)

// Run defaults
const (
	// DefaultLookbackMinutes keeps the window end a few minutes behind now so late inserts are picked up next run
	DefaultLookbackMinutes = 5

	// DefaultPNPerPilotPerVN is the number of physical numbers reserved from each pilot for one VN
	DefaultPNPerPilotPerVN = 1

	// DefaultReservedByTag marks pool rows claimed by this job
	DefaultReservedByTag = "auto-backup"

	// DefaultOrphanMinAge is how old a reservation must be before the sweep reports it
	DefaultOrphanMinAge = 24 * time.Hour
)

// Outbound call timeouts
const (
	AttachAPITimeout = 15 * time.Second
	SMTPTimeout      = 20 * time.Second
	DBConnectTimeout = 10 * time.Second
)

// Email subjects
const (
	DefaultSubjectPrefix = "[BackupPNs]"
	TenantReportSubject  = "Backup PN Report"
	AdminErrorSubject    = "Backup PN Job Error"
	OrphanReportSubject  = "Backup PN Orphaned Reservations"
)

// Redis keys
const (
	RunLockKey = "run_lock"
)
