package syncer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/photomirror/photomirror/database"
	"github.com/photomirror/photomirror/mirror"
	"github.com/photomirror/photomirror/source"
	"github.com/photomirror/photomirror/syncer"
)

type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time { return c.now }

func (c *stubClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestDB(t *testing.T) *database.Database {
	t.Helper()
	cli, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
	})
	require.NoError(t, err)
	require.NoError(t, cli.AutoMigrate(database.Models()...))
	return &database.Database{Cli: cli, Logger: zerolog.New(zerolog.NewTestWriter(t))}
}

func sourceAsset(id string, created time.Time) mirror.SourceAsset {
	return mirror.SourceAsset{
		Asset: mirror.Asset{
			ID:        id,
			MediaType: mirror.MediaImage,
			Library:   mirror.LibraryPersonal,
			CreatedAt: created,
			UpdatedAt: created,
		},
		Resources: []mirror.SourceResource{{
			Kind:         mirror.FileImage,
			OriginalName: id + ".jpg",
			Size:         int64(len("bytes-of-" + id)),
		}},
	}
}

type env struct {
	src       *source.Memory
	db        *database.Database
	clock     *stubClock
	mirrorDir string
	logger    zerolog.Logger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return &env{
		src:       source.NewMemory(),
		db:        newTestDB(t),
		clock:     &stubClock{now: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		mirrorDir: t.TempDir(),
		logger:    zerolog.New(zerolog.NewTestWriter(t)),
	}
}

func (e *env) sync(t *testing.T, opts ...syncer.Option) *mirror.ExportResult {
	t.Helper()
	opts = append([]syncer.Option{
		syncer.WithClock(e.clock),
		syncer.WithExpiryWindow(30 * 24 * time.Hour),
	}, opts...)
	res, err := syncer.Sync(context.Background(), syncer.Params{
		Source:    e.src,
		DB:        e.db,
		MirrorDir: e.mirrorDir,
		Logger:    e.logger,
	}, opts...)
	require.NoError(t, err)
	return res
}

func TestSync_FullLifecycle(t *testing.T) {
	e := newEnv(t)
	created := time.Date(2023, 7, 2, 14, 5, 9, 0, time.UTC)
	e.src.Put(sourceAsset("a1", created), []byte("bytes-of-a1"))
	e.src.SetFolders(
		mirror.Folder{ID: "root", Name: "Library"},
	)
	e.src.SetAlbums(
		mirror.Album{ID: "al1", Kind: mirror.AlbumUser, FolderID: "root", Name: "Trip", AssetIDs: []string{"a1"}},
	)

	// Run 1: everything appears and the file is copied.
	res := e.sync(t)
	assert.Equal(t, 1, res.Assets.Inserted)
	assert.Equal(t, 1, res.Files.Inserted)
	assert.Equal(t, 1, res.Links.Inserted)
	assert.Equal(t, 1, res.Folders.Inserted)
	assert.Equal(t, 1, res.Albums.Inserted)
	assert.Equal(t, 1, res.FilesCopied)
	assert.Equal(t, 1, res.LinksCreated)
	assert.Equal(t, int64(1), res.Totals.Assets)

	copied := filepath.Join(e.mirrorDir, syncer.FilesDir, "2023", "2023-07",
		"2023-07-02_140509_a1.jpg")
	require.FileExists(t, copied)
	link := filepath.Join(e.mirrorDir, syncer.AlbumsDir, "Library", "Trip",
		"001_2023-07-02_140509_a1.jpg")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, copied, target)

	// Run 2: nothing changed upstream, nothing changes here.
	res = e.sync(t)
	assert.Equal(t, 1, res.Assets.Unchanged)
	assert.Equal(t, 1, res.Files.Unchanged)
	assert.Zero(t, res.Assets.Inserted)
	assert.Zero(t, res.Assets.Updated)
	assert.Zero(t, res.FilesCopied, "the copy already happened")

	// Run 3: the asset vanished upstream, so it is tombstoned.
	e.src.Remove("a1")
	e.src.SetAlbums()
	res = e.sync(t)
	assert.Equal(t, 1, res.Assets.MarkedForDeletion)
	assert.Equal(t, 1, res.Files.MarkedForDeletion)
	assert.Equal(t, 1, res.Links.MarkedForDeletion)
	assert.Equal(t, 1, res.Albums.MarkedForDeletion)
	assert.Zero(t, res.Assets.Deleted)
	assert.FileExists(t, copied, "tombstoned files keep their copy until expiry")

	// Run 4: past the expiry window, tombstones hard-delete and the copy
	// is removed.
	e.clock.Advance(31 * 24 * time.Hour)
	res = e.sync(t)
	assert.Equal(t, 1, res.Assets.Deleted)
	assert.Equal(t, 1, res.Files.Deleted)
	assert.Equal(t, 1, res.Links.Deleted)
	assert.Equal(t, 1, res.Albums.Deleted)
	assert.Equal(t, 1, res.FilesRemoved)
	assert.NoFileExists(t, copied)
	assert.Zero(t, res.Totals.Assets)
}

func TestSync_IdempotentBackToBack(t *testing.T) {
	e := newEnv(t)
	created := time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)
	e.src.Put(sourceAsset("a1", created), []byte("bytes-of-a1"))
	e.src.Put(sourceAsset("a2", created.Add(time.Hour)), []byte("bytes-of-a2"))
	e.src.SetFolders(mirror.Folder{ID: "root", Name: "Library"})

	first := e.sync(t)
	assert.Equal(t, 2, first.Assets.Inserted)

	second := e.sync(t)
	assert.Zero(t, second.Assets.Inserted)
	assert.Zero(t, second.Assets.Updated)
	assert.Zero(t, second.Assets.MarkedForDeletion)
	assert.Equal(t, 2, second.Assets.Unchanged)
	assert.Equal(t, 2, second.Files.Unchanged)
}

func TestSync_ResurrectionBeforeExpiry(t *testing.T) {
	e := newEnv(t)
	created := time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)
	asset := sourceAsset("a1", created)
	e.src.Put(asset, []byte("bytes-of-a1"))

	e.sync(t)
	e.src.Remove("a1")
	res := e.sync(t)
	require.Equal(t, 1, res.Assets.MarkedForDeletion)

	// Ten days later the asset reappears, well inside the 30-day window.
	e.clock.Advance(10 * 24 * time.Hour)
	e.src.Put(asset, []byte("bytes-of-a1"))
	res = e.sync(t)
	assert.Equal(t, 1, res.Assets.Updated, "resurrection counts as an update")
	assert.Zero(t, res.Assets.Inserted)
	assert.Zero(t, res.Assets.Deleted)

	// The tombstone is gone: thirty more days must not purge it.
	e.clock.Advance(30 * 24 * time.Hour)
	res = e.sync(t)
	assert.Zero(t, res.Assets.Deleted)
	assert.Equal(t, int64(1), res.Totals.Assets)
}

func TestSync_AlbumWithUnknownFolderIsSkipped(t *testing.T) {
	e := newEnv(t)
	e.src.Put(sourceAsset("a1", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)), []byte("x"))
	e.src.SetFolders(mirror.Folder{ID: "root", Name: "Library"})
	e.src.SetAlbums(
		mirror.Album{ID: "good", Kind: mirror.AlbumUser, FolderID: "root", Name: "Good", AssetIDs: []string{"a1"}},
		mirror.Album{ID: "bad", Kind: mirror.AlbumUser, FolderID: "nope", Name: "Bad", AssetIDs: []string{"a1"}},
	)

	res := e.sync(t)
	assert.Equal(t, 1, res.Albums.Inserted)
	assert.Equal(t, 1, res.Albums.Skipped, "an album must never attach to an unknown folder")

	_, found, err := e.db.Albums().Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSync_UnsupportedAssetSkippedWithoutFiles(t *testing.T) {
	e := newEnv(t)
	bad := sourceAsset("weird", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC))
	bad.Asset.MediaType = "document"
	e.src.Put(bad, []byte("x"))

	res := e.sync(t)
	assert.Equal(t, 1, res.Assets.Skipped)
	assert.Zero(t, res.Files.Inserted, "skipped assets contribute no files")
	assert.Zero(t, res.Links.Inserted)
}

func TestSync_SourceUnavailableAborts(t *testing.T) {
	e := newEnv(t)
	e.src.SetUnavailable(true)

	_, err := syncer.Sync(context.Background(), syncer.Params{
		Source:    e.src,
		DB:        e.db,
		MirrorDir: e.mirrorDir,
		Logger:    e.logger,
	}, syncer.WithClock(e.clock))
	assert.ErrorIs(t, err, mirror.ErrSourceUnavailable)
}

func TestSync_DryRunWritesNothing(t *testing.T) {
	e := newEnv(t)
	e.db.DryRun = true
	e.src.Put(sourceAsset("a1", time.Date(2023, 3, 1, 8, 0, 0, 0, time.UTC)), []byte("x"))

	res := e.sync(t, syncer.WithDryRun(true))
	assert.Equal(t, 1, res.Assets.Inserted, "dry run still reports what it would do")

	entries, err := os.ReadDir(e.mirrorDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "dry run must not touch the mirror directory")
	assert.Zero(t, res.Totals.Assets)
}

type stubGeocoder struct{}

func (stubGeocoder) ReverseLookup(_ context.Context, p mirror.GeoPoint) (string, string, error) {
	return "Spain", "Barcelona", nil
}

func TestSync_GeocodedFilesLandInCountrySegment(t *testing.T) {
	e := newEnv(t)
	created := time.Date(2023, 7, 2, 14, 5, 9, 0, time.UTC)
	a := sourceAsset("a1", created)
	a.Asset.Location = &mirror.GeoPoint{Lat: 41.385064, Long: 2.173404}
	e.src.Put(a, []byte("bytes-of-a1"))

	res := e.sync(t, syncer.WithGeocoder(stubGeocoder{}))
	assert.Equal(t, 1, res.FilesCopied)
	assert.FileExists(t, filepath.Join(e.mirrorDir, syncer.FilesDir,
		"2023", "2023-07", "Spain", "2023-07-02_140509_a1.jpg"))
}
