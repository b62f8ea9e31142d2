package vault

import (
	"time"

	"gorm.io/datatypes"
)

// Project is one archived body of work. The source paths are kept as a
// json list so a bag can be built (or rebuilt) after the archive
// record is created.
type Project struct {
	ID          string `gorm:"primaryKey;type:char(36)"`
	Name        string `gorm:"index;type:varchar(255);not null"`
	Description string `gorm:"type:text"`

	Organization string `gorm:"type:varchar(255)"`
	ContactName  string `gorm:"type:varchar(255)"`
	ContactEmail string `gorm:"type:varchar(255)"`

	Sources   datatypes.JSON
	FileCount int
	TotalSize int64

	ArchivedAt  time.Time
	PackageID   string `gorm:"type:char(36)"`
	Quarantined bool   `gorm:"default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Package records a built bag: where it is and what it contained when
// it was built.
type Package struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	ProjectID string `gorm:"index;type:char(36);not null"`

	BagPath          string `gorm:"type:text;not null"`
	ManifestSHA256   string `gorm:"type:char(64)"`
	BagSize          int64
	PayloadFileCount int

	Valid       bool
	ValidatedAt *time.Time

	CreatedAt time.Time
}

// QuarantineEntry tracks a soft-deleted project: where its bag came
// from and when it becomes eligible for real deletion.
type QuarantineEntry struct {
	ID        string `gorm:"primaryKey;type:char(36)"`
	ProjectID string `gorm:"uniqueIndex;type:char(36);not null"`

	QuarantinedAt       time.Time
	OriginalBagPath     string `gorm:"type:text;not null"`
	ScheduledDeletionAt *time.Time
	Reason              string `gorm:"type:text"`
}

// Snapshot captures the state of the vault layers at scan time, so the
// next integrity scan can tell whether anything moved underneath us.
type Snapshot struct {
	ID string `gorm:"primaryKey;type:char(36)"`

	SnapshotAt         time.Time
	BagsChecksum       string `gorm:"type:char(64)"`
	QuarantineChecksum string `gorm:"type:char(64)"`
	Anomalies          datatypes.JSON

	CreatedAt time.Time
}

// Event is one entry in the append-only audit trail. Payload holds
// event-specific detail as json.
type Event struct {
	ID          string `gorm:"primaryKey;type:char(36)"`
	Type        string `gorm:"index;type:varchar(100);not null"`
	AggregateID string `gorm:"index;type:char(36)"`
	Payload     datatypes.JSON

	CreatedAt time.Time
}

func (Event) TableName() string {
	return "events"
}
