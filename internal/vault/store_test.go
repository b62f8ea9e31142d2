package vault_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"testing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/studio1767/bagvault/internal/vault"
)

func newTestStore(t *testing.T) *vault.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := vault.NewStoreWithConn(db)
	require.NoError(t, err)

	return store
}

func newTestProject(t *testing.T, name string) *vault.Project {
	t.Helper()

	sources, err := json.Marshal([]string{"/srv/projects/" + name})
	require.NoError(t, err)

	return &vault.Project{
		ID:         uuid.NewString(),
		Name:       name,
		Sources:    sources,
		FileCount:  3,
		TotalSize:  4096,
		ArchivedAt: time.Now(),
	}
}

func TestStoreProjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := newTestProject(t, "alpha")
	require.NoError(t, store.CreateProject(ctx, project))

	found, err := store.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, "alpha", found.Name)
	require.Equal(t, 3, found.FileCount)
	require.False(t, found.Quarantined)

	var sources []string
	require.NoError(t, json.Unmarshal(found.Sources, &sources))
	require.Equal(t, []string{"/srv/projects/alpha"}, sources)
}

func TestStoreProjectNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ProjectByID(context.Background(), uuid.NewString())
	require.ErrorIs(t, err, vault.ErrProjectNotFound)
}

func TestStoreSetQuarantined(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := newTestProject(t, "beta")
	require.NoError(t, store.CreateProject(ctx, project))

	require.NoError(t, store.SetQuarantined(ctx, project.ID, true))

	found, err := store.ProjectByID(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, found.Quarantined)

	err = store.SetQuarantined(ctx, uuid.NewString(), true)
	require.ErrorIs(t, err, vault.ErrProjectNotFound)
}

func TestStorePackageLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := newTestProject(t, "gamma")
	require.NoError(t, store.CreateProject(ctx, project))

	pkg := &vault.Package{
		ID:               uuid.NewString(),
		ProjectID:        project.ID,
		BagPath:          "/vault/bags/gamma-12345678",
		ManifestSHA256:   "deadbeef",
		BagSize:          8192,
		PayloadFileCount: 3,
	}
	require.NoError(t, store.SavePackage(ctx, pkg))
	require.NoError(t, store.AttachPackage(ctx, project.ID, pkg.ID))

	found, err := store.PackageForProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, pkg.ID, found.ID)
	require.False(t, found.Valid)

	byPath, err := store.PackageByPath(ctx, pkg.BagPath)
	require.NoError(t, err)
	require.Equal(t, pkg.ID, byPath.ID)

	require.NoError(t, store.UpdatePackagePath(ctx, pkg.ID, "/vault/quarantine/gamma-12345678"))
	_, err = store.PackageByPath(ctx, pkg.BagPath)
	require.ErrorIs(t, err, vault.ErrPackageNotFound)

	require.NoError(t, store.MarkPackageValidated(ctx, pkg.ID, true))
	found, err = store.PackageForProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, found.Valid)
	require.NotNil(t, found.ValidatedAt)
}

func TestStoreQuarantineEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	project := newTestProject(t, "delta")
	require.NoError(t, store.CreateProject(ctx, project))

	deleteAt := time.Now().Add(30 * 24 * time.Hour)
	entry := &vault.QuarantineEntry{
		ID:                  uuid.NewString(),
		ProjectID:           project.ID,
		QuarantinedAt:       time.Now(),
		OriginalBagPath:     "/vault/bags/delta-12345678",
		ScheduledDeletionAt: &deleteAt,
		Reason:              "client request",
	}
	require.NoError(t, store.AddQuarantineEntry(ctx, entry))

	found, err := store.QuarantineEntryForProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, "client request", found.Reason)
	require.NotNil(t, found.ScheduledDeletionAt)

	require.NoError(t, store.RemoveQuarantineEntry(ctx, project.ID))
	_, err = store.QuarantineEntryForProject(ctx, project.ID)
	require.ErrorIs(t, err, vault.ErrNotQuarantined)
}

func TestStoreSnapshots(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LatestSnapshot(ctx)
	require.ErrorIs(t, err, vault.ErrNoSnapshot)

	anomalies, err := json.Marshal([]string{})
	require.NoError(t, err)

	first := &vault.Snapshot{
		ID:           uuid.NewString(),
		SnapshotAt:   time.Now().Add(-time.Hour),
		BagsChecksum: "aaaa",
		Anomalies:    anomalies,
	}
	second := &vault.Snapshot{
		ID:           uuid.NewString(),
		SnapshotAt:   time.Now(),
		BagsChecksum: "bbbb",
		Anomalies:    anomalies,
	}
	require.NoError(t, store.SaveSnapshot(ctx, first))
	require.NoError(t, store.SaveSnapshot(ctx, second))

	latest, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, "bbbb", latest.BagsChecksum)
}

func TestStoreEventTrail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id := uuid.NewString()
	err := store.LogEvent(ctx, "ProjectArchived", id, map[string]any{"file_count": 3})
	require.NoError(t, err)
	err = store.LogEvent(ctx, "BagCreated", id, map[string]any{"bag_path": "/vault/bags/x"})
	require.NoError(t, err)
	err = store.LogEvent(ctx, "BagCreated", uuid.NewString(), map[string]any{})
	require.NoError(t, err)

	events, err := store.EventsFor(ctx, id)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "ProjectArchived", events[0].Type)
	require.Equal(t, "BagCreated", events[1].Type)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.EqualValues(t, 3, payload["file_count"])
}
