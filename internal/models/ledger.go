package models

import "time"

// UsageLedgerEntry is one remaining-attempts counter, keyed by
// (owner, test type). Remaining never goes below zero: the decrement path
// is a single conditional UPDATE, not a read-then-write.
type UsageLedgerEntry struct {
	ID        uint     `gorm:"primaryKey"`
	OwnerKey  string   `gorm:"uniqueIndex:idx_ledger_owner_type"`
	TestType  TestType `gorm:"uniqueIndex:idx_ledger_owner_type"`
	Remaining int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DeviceFingerprint records that an identity was seen on a device. The
// fingerprint is a derived hash of client-supplied signals, so rows are
// advisory telemetry for the account-per-device cap, never an auth factor.
// Rows are upserted on repeat sightings and never deleted automatically.
type DeviceFingerprint struct {
	ID          uint   `gorm:"primaryKey"`
	Fingerprint string `gorm:"uniqueIndex:idx_fp_owner"`
	OwnerKey    string `gorm:"uniqueIndex:idx_fp_owner"`
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
