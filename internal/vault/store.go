package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrPackageNotFound = errors.New("package not found")
	ErrNoSnapshot      = errors.New("no snapshot recorded")
	ErrNotQuarantined  = errors.New("project is not quarantined")
)

// Store wraps the sqlite database holding project records, package
// records, quarantine bookkeeping, snapshots and the audit-event
// trail. The core bag operations never touch it; everything here is
// caller-side persistence layered on top.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the database file and migrates the
// schema.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return NewStoreWithConn(db)
}

// NewStoreWithConn builds a Store over an existing gorm connection.
// Used by tests to run against an in-memory database.
func NewStoreWithConn(db *gorm.DB) (*Store, error) {
	err := db.AutoMigrate(&Project{}, &Package{}, &QuarantineEntry{}, &Snapshot{}, &Event{})
	if err != nil {
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateProject(ctx context.Context, project *Project) error {
	return s.db.WithContext(ctx).Create(project).Error
}

func (s *Store) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (s *Store) ProjectByID(ctx context.Context, id string) (*Project, error) {
	var project Project
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&project).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *Store) SetQuarantined(ctx context.Context, id string, quarantined bool) error {
	result := s.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"quarantined": quarantined,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *Store) AttachPackage(ctx context.Context, projectID, packageID string) error {
	result := s.db.WithContext(ctx).
		Model(&Project{}).
		Where("id = ?", projectID).
		Updates(map[string]any{
			"package_id": packageID,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *Store) SavePackage(ctx context.Context, pkg *Package) error {
	return s.db.WithContext(ctx).Create(pkg).Error
}

func (s *Store) PackageForProject(ctx context.Context, projectID string) (*Package, error) {
	var pkg Package
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		First(&pkg).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (s *Store) PackageByPath(ctx context.Context, bagPath string) (*Package, error) {
	var pkg Package
	err := s.db.WithContext(ctx).
		Where("bag_path = ?", bagPath).
		First(&pkg).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (s *Store) UpdatePackagePath(ctx context.Context, id, bagPath string) error {
	return s.db.WithContext(ctx).
		Model(&Package{}).
		Where("id = ?", id).
		Update("bag_path", bagPath).Error
}

func (s *Store) MarkPackageValidated(ctx context.Context, id string, valid bool) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&Package{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"valid":        valid,
			"validated_at": &now,
		}).Error
}

func (s *Store) AddQuarantineEntry(ctx context.Context, entry *QuarantineEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) QuarantineEntryForProject(ctx context.Context, projectID string) (*QuarantineEntry, error) {
	var entry QuarantineEntry
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotQuarantined
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) RemoveQuarantineEntry(ctx context.Context, projectID string) error {
	return s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&QuarantineEntry{}).Error
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot *Snapshot) error {
	return s.db.WithContext(ctx).Create(snapshot).Error
}

func (s *Store) LatestSnapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot
	err := s.db.WithContext(ctx).
		Order("snapshot_at DESC").
		First(&snapshot).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// LogEvent appends to the audit trail. The payload is marshalled to
// json; it should be a map or struct of event-specific detail.
func (s *Store) LogEvent(ctx context.Context, eventType, aggregateID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	event := Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     datatypes.JSON(data),
	}
	return s.db.WithContext(ctx).Create(&event).Error
}

func (s *Store) EventsFor(ctx context.Context, aggregateID string) ([]Event, error) {
	var events []Event
	err := s.db.WithContext(ctx).
		Where("aggregate_id = ?", aggregateID).
		Order("created_at ASC").
		Find(&events).Error
	return events, err
}
