package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studio1767/bagvault/internal/bagit"
	"github.com/studio1767/bagvault/internal/checksum"
	"github.com/studio1767/bagvault/internal/job"
	"github.com/studio1767/bagvault/internal/pathscan"
)

// Audit event types.
const (
	EventProjectArchived    = "ProjectArchived"
	EventBagCreated         = "BagCreated"
	EventBagValidated       = "BagValidated"
	EventProjectQuarantined = "ProjectQuarantined"
	EventProjectRestored    = "ProjectRestored"
	EventVaultScanned       = "VaultScanned"
)

// quarantineHold is how long a quarantined project sits before it is
// eligible for deletion.
const quarantineHold = 30 * 24 * time.Hour

// Tags are the default descriptive fields stamped into new bags when a
// job doesn't carry its own.
type Tags struct {
	Organization string
	ContactName  string
	ContactEmail string
}

// Service ties the record store to the bag operations. The vault root
// holds two layers: bags/ for live bags and quarantine/ for
// soft-deleted ones, with the database alongside.
type Service struct {
	store *Store
	root  string
	tags  Tags
	log   *slog.Logger
}

func NewService(store *Store, root string, tags Tags) (*Service, error) {
	svc := Service{
		store: store,
		root:  root,
		tags:  tags,
		log:   slog.With("component", "vault"),
	}

	if err := os.MkdirAll(svc.BagsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create bags layer: %w", err)
	}
	if err := os.MkdirAll(svc.QuarantineDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create quarantine layer: %w", err)
	}

	return &svc, nil
}

func (s *Service) BagsDir() string {
	return filepath.Join(s.root, "bags")
}

func (s *Service) QuarantineDir() string {
	return filepath.Join(s.root, "quarantine")
}

func (s *Service) Store() *Store {
	return s.store
}

// Archive validates the job's source paths, measures them, and records
// the project with an audit event. No bag is built yet; that is a
// separate step.
func (s *Service) Archive(ctx context.Context, j *job.Job) (*Project, error) {
	validated, err := pathscan.ValidatePaths(j.Sources)
	if err != nil {
		return nil, err
	}

	var totalSize int64
	var fileCount int
	for _, entry := range validated {
		if entry.IsDir {
			stats, err := pathscan.Analyze(entry.Path)
			if err != nil {
				return nil, err
			}
			totalSize += stats.TotalSize
			fileCount += stats.FileCount
		} else {
			totalSize += entry.Size
			fileCount += 1
		}
	}

	sources, err := json.Marshal(j.Sources)
	if err != nil {
		return nil, err
	}

	project := Project{
		ID:           uuid.NewString(),
		Name:         j.Name,
		Description:  j.Description,
		Organization: fallback(j.Organization, s.tags.Organization),
		ContactName:  fallback(j.ContactName, s.tags.ContactName),
		ContactEmail: fallback(j.ContactEmail, s.tags.ContactEmail),
		Sources:      sources,
		FileCount:    fileCount,
		TotalSize:    totalSize,
		ArchivedAt:   time.Now(),
	}

	if err := s.store.CreateProject(ctx, &project); err != nil {
		return nil, fmt.Errorf("failed to record project: %w", err)
	}

	err = s.store.LogEvent(ctx, EventProjectArchived, project.ID, map[string]any{
		"project_name": project.Name,
		"file_count":   fileCount,
		"total_size":   totalSize,
		"sources":      j.Sources,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project archived",
		"project", project.ID, "name", project.Name,
		"files", fileCount, "bytes", totalSize)

	return &project, nil
}

// BagResult is what a caller gets back from a build: whether the bag
// validated cleanly, where it is, and the full issue list.
type BagResult struct {
	Success bool
	BagPath string
	Issues  []bagit.Issue
}

// CreateBag builds the bag for an archived project: declaration,
// payload copy, manifest, metadata, then an immediate validation of
// the result. The package record and an audit event are written
// whether or not validation was clean.
func (s *Service) CreateBag(ctx context.Context, projectID string) (*BagResult, error) {
	project, err := s.store.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var sources []string
	if err := json.Unmarshal(project.Sources, &sources); err != nil {
		return nil, fmt.Errorf("project %s has malformed sources: %w", projectID, err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("project %s has no recorded sources", projectID)
	}

	validated, err := pathscan.ValidatePaths(sources)
	if err != nil {
		return nil, err
	}
	sourceRoot, err := pathscan.CommonRoot(sources)
	if err != nil {
		return nil, err
	}

	var entries []pathscan.Entry
	for _, entry := range validated {
		if entry.IsDir {
			stats, err := pathscan.Analyze(entry.Path)
			if err != nil {
				return nil, err
			}
			if entry.Path != sourceRoot {
				entries = append(entries, entry)
			}
			entries = append(entries, stats.Entries...)
		} else {
			entries = append(entries, entry)
		}
	}

	bagName := fmt.Sprintf("%s-%s", pathscan.SanitizeName(project.Name), project.ID[:8])
	bagRoot := filepath.Join(s.BagsDir(), bagName)

	bag, err := bagit.Create(bagRoot)
	if err != nil {
		return nil, err
	}
	if err := bag.WriteDeclaration(); err != nil {
		return nil, err
	}

	summary, err := bag.AddPayload(entries, sourceRoot)
	if err != nil {
		return nil, err
	}
	if err := bag.WriteManifest(summary); err != nil {
		return nil, err
	}

	size, err := bag.Size()
	if err != nil {
		return nil, err
	}

	description := project.Description
	if description == "" {
		description = fmt.Sprintf("Archived project: %s", project.Name)
	}

	err = bag.WriteInfo(&bagit.Info{
		SourceOrganization:        project.Organization,
		ContactName:               project.ContactName,
		ContactEmail:              project.ContactEmail,
		ExternalDescription:       description,
		InternalSenderIdentifier:  project.ID,
		InternalSenderDescription: fmt.Sprintf("archived via bagvault on %s", project.ArchivedAt.Format("2006-01-02")),
		BaggingDate:               time.Now(),
		BagSize:                   bagit.FormatBytes(size),
		PayloadOxum:               summary.Oxum(),
	})
	if err != nil {
		return nil, err
	}

	issues, err := bag.Validate()
	if err != nil {
		return nil, err
	}

	manifestSum, err := checksum.FileSHA256(bag.ManifestPath)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pkg := Package{
		ID:               uuid.NewString(),
		ProjectID:        project.ID,
		BagPath:          bagRoot,
		ManifestSHA256:   manifestSum,
		BagSize:          size,
		PayloadFileCount: summary.FileCount,
		Valid:            !bagit.HasErrors(issues),
		ValidatedAt:      &now,
	}
	if err := s.store.SavePackage(ctx, &pkg); err != nil {
		return nil, err
	}
	if err := s.store.AttachPackage(ctx, project.ID, pkg.ID); err != nil {
		return nil, err
	}

	err = s.store.LogEvent(ctx, EventBagCreated, project.ID, map[string]any{
		"bag_path":    bagRoot,
		"oxum":        summary.Oxum(),
		"error_count": countErrors(issues),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("bag created", "project", project.ID, "bag", bagRoot, "oxum", summary.Oxum())

	if len(issues) == 0 {
		issues = append(issues, bagit.Issue{
			Severity: bagit.SeverityInfo,
			Message:  "bag created and validated successfully",
		})
	}

	return &BagResult{
		Success: !bagit.HasErrors(issues),
		BagPath: bagRoot,
		Issues:  issues,
	}, nil
}

// Validate re-validates an existing bag. If the bag belongs to a known
// package the validation outcome is recorded against it.
func (s *Service) Validate(ctx context.Context, bagRoot string) ([]bagit.Issue, error) {
	issues, err := bagit.Open(bagRoot).Validate()
	if err != nil {
		return issues, err
	}

	pkg, err := s.store.PackageByPath(ctx, bagRoot)
	if errors.Is(err, ErrPackageNotFound) {
		// not tracked in the vault; the issue list stands on its own
		return issues, nil
	}
	if err != nil {
		return issues, err
	}

	valid := !bagit.HasErrors(issues)
	if err := s.store.MarkPackageValidated(ctx, pkg.ID, valid); err != nil {
		return issues, err
	}
	err = s.store.LogEvent(ctx, EventBagValidated, pkg.ProjectID, map[string]any{
		"bag_path":    bagRoot,
		"valid":       valid,
		"error_count": countErrors(issues),
	})
	if err != nil {
		return issues, err
	}

	return issues, nil
}

// Quarantine soft-deletes a project: the bag moves into the quarantine
// layer and a deletion date is scheduled. Nothing is destroyed.
func (s *Service) Quarantine(ctx context.Context, projectID, reason string) error {
	project, err := s.store.ProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Quarantined {
		return fmt.Errorf("project %s is already quarantined", projectID)
	}

	pkg, err := s.store.PackageForProject(ctx, projectID)
	if err != nil {
		return err
	}

	dest := filepath.Join(s.QuarantineDir(), filepath.Base(pkg.BagPath))
	if err := os.Rename(pkg.BagPath, dest); err != nil {
		return fmt.Errorf("failed to move bag to quarantine: %w", err)
	}

	if err := s.store.UpdatePackagePath(ctx, pkg.ID, dest); err != nil {
		return err
	}

	deleteAt := time.Now().Add(quarantineHold)
	entry := QuarantineEntry{
		ID:                  uuid.NewString(),
		ProjectID:           projectID,
		QuarantinedAt:       time.Now(),
		OriginalBagPath:     pkg.BagPath,
		ScheduledDeletionAt: &deleteAt,
		Reason:              reason,
	}
	if err := s.store.AddQuarantineEntry(ctx, &entry); err != nil {
		return err
	}
	if err := s.store.SetQuarantined(ctx, projectID, true); err != nil {
		return err
	}

	err = s.store.LogEvent(ctx, EventProjectQuarantined, projectID, map[string]any{
		"reason":                reason,
		"scheduled_deletion_at": deleteAt,
	})
	if err != nil {
		return err
	}

	s.log.Info("project quarantined", "project", projectID, "reason", reason)
	return nil
}

// Restore reverses a quarantine: the bag moves back to its original
// path and the scheduled deletion is dropped.
func (s *Service) Restore(ctx context.Context, projectID string) error {
	project, err := s.store.ProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	if !project.Quarantined {
		return ErrNotQuarantined
	}

	entry, err := s.store.QuarantineEntryForProject(ctx, projectID)
	if err != nil {
		return err
	}
	pkg, err := s.store.PackageForProject(ctx, projectID)
	if err != nil {
		return err
	}

	if err := os.Rename(pkg.BagPath, entry.OriginalBagPath); err != nil {
		return fmt.Errorf("failed to restore bag from quarantine: %w", err)
	}

	if err := s.store.UpdatePackagePath(ctx, pkg.ID, entry.OriginalBagPath); err != nil {
		return err
	}
	if err := s.store.RemoveQuarantineEntry(ctx, projectID); err != nil {
		return err
	}
	if err := s.store.SetQuarantined(ctx, projectID, false); err != nil {
		return err
	}

	err = s.store.LogEvent(ctx, EventProjectRestored, projectID, map[string]any{
		"bag_path": entry.OriginalBagPath,
	})
	if err != nil {
		return err
	}

	s.log.Info("project restored", "project", projectID)
	return nil
}

func fallback(value, def string) string {
	if value != "" {
		return value
	}
	return def
}

func countErrors(issues []bagit.Issue) int {
	count := 0
	for _, issue := range issues {
		if issue.Severity == bagit.SeverityError {
			count++
		}
	}
	return count
}

// BagReport is the validation outcome for one bag in an integrity
// scan.
type BagReport struct {
	Bag    string
	Issues []bagit.Issue
}

// IntegrityReport summarises a whole-vault scan.
type IntegrityReport struct {
	Healthy              bool
	Bags                 []BagReport
	ChangedSinceLastScan bool
	ScannedAt            time.Time
}

// scanWorkers bounds how many bags are validated at once. Each bag is
// still processed strictly sequentially; only independent bags run in
// parallel.
const scanWorkers = 4

// ScanIntegrity validates every bag in the bags layer, fingerprints
// both vault layers, compares against the previous snapshot and
// records a new one.
func (s *Service) ScanIntegrity(ctx context.Context) (*IntegrityReport, error) {
	dirs, err := os.ReadDir(s.BagsDir())
	if err != nil {
		return nil, err
	}

	var bags []string
	for _, dir := range dirs {
		if dir.IsDir() {
			bags = append(bags, dir.Name())
		}
	}

	reports := make([]BagReport, len(bags))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for i, name := range bags {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			issues, err := bagit.Open(filepath.Join(s.BagsDir(), name)).Validate()
			if err != nil {
				return fmt.Errorf("failed to validate bag %s: %w", name, err)
			}
			reports[i] = BagReport{Bag: name, Issues: issues}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var anomalies []string
	for _, report := range reports {
		for _, issue := range report.Issues {
			if issue.Severity == bagit.SeverityError {
				anomalies = append(anomalies, fmt.Sprintf("%s: %s", report.Bag, issue.Message))
			}
		}
	}

	bagsSum, err := layerChecksum(s.BagsDir())
	if err != nil {
		return nil, err
	}
	quarantineSum, err := layerChecksum(s.QuarantineDir())
	if err != nil {
		return nil, err
	}

	changed := false
	previous, err := s.store.LatestSnapshot(ctx)
	switch {
	case err == nil:
		changed = previous.BagsChecksum != bagsSum || previous.QuarantineChecksum != quarantineSum
	case errors.Is(err, ErrNoSnapshot):
		// first scan, nothing to compare against
	default:
		return nil, err
	}

	anomaliesJSON, err := json.Marshal(anomalies)
	if err != nil {
		return nil, err
	}
	snapshot := Snapshot{
		ID:                 uuid.NewString(),
		SnapshotAt:         time.Now(),
		BagsChecksum:       bagsSum,
		QuarantineChecksum: quarantineSum,
		Anomalies:          anomaliesJSON,
	}
	if err := s.store.SaveSnapshot(ctx, &snapshot); err != nil {
		return nil, err
	}

	err = s.store.LogEvent(ctx, EventVaultScanned, "", map[string]any{
		"bags":      len(bags),
		"anomalies": len(anomalies),
		"changed":   changed,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("vault scanned", "bags", len(bags), "anomalies", len(anomalies))

	return &IntegrityReport{
		Healthy:              len(anomalies) == 0,
		Bags:                 reports,
		ChangedSinceLastScan: changed,
		ScannedAt:            snapshot.SnapshotAt,
	}, nil
}
