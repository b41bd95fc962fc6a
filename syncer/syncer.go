// Package syncer orchestrates one synchronization run: entity
// reconciliation passes, tombstone expiry, physical copying and symlink-tree
// regeneration, in that order.
package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/database"
	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/mirror"
	"github.com/photomirror/photomirror/physical"
)

// Params are the collaborators of one run.
type Params struct {
	Source    mirror.Source
	DB        *database.Database
	MirrorDir string
	Logger    zerolog.Logger
}

// Subdirectories of the mirror: physical copies and the derived link tree.
const (
	FilesDir  = "files"
	AlbumsDir = "albums"
)

// Sync runs one full synchronization pass and appends its result to the run
// history. Re-running against an unchanged source is a no-op apart from the
// history record.
func Sync(ctx context.Context, params Params, opts ...Option) (*mirror.ExportResult, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &run{
		params: params,
		o:      o,
		fs:     fileutils.OSFilesystem(),
		result: &mirror.ExportResult{
			RunID:     uuid.NewString(),
			StartedAt: o.clock.Now(),
		},
		geoCache: map[string]geoInfo{},
	}
	if o.dryRun {
		r.fs = fileutils.DryRunFilesystem()
	}
	r.logger = params.Logger.With().Str("run_id", r.result.RunID).Logger()

	if !o.dryRun {
		if err := r.fs.MkdirAll(params.MirrorDir); err != nil {
			return nil, fmt.Errorf("create mirror dir: %w", err)
		}
		if err := fileutils.VerifyWritable(params.MirrorDir); err != nil {
			return nil, fmt.Errorf("mirror dir must be writable: %w", err)
		}
	}

	start := time.Now()
	r.logger.Info().Str("mirror", params.MirrorDir).Bool("dry_run", o.dryRun).Msg("starting sync")
	defer func() {
		took := time.Since(start).Seconds()
		if ctx.Err() != nil {
			r.logger.Info().Float64("seconds", took).Msg("sync cancelled")
		} else {
			r.logger.Info().Float64("seconds", took).Msg("sync done")
		}
	}()

	if err := r.assetPass(ctx); err != nil {
		return nil, err
	}
	if o.collectionPass {
		if err := r.collectionPass(ctx); err != nil {
			return nil, err
		}
	}
	if err := r.purgePass(ctx); err != nil {
		return nil, err
	}
	if o.copyPass {
		if err := r.copyPass(ctx); err != nil {
			return nil, err
		}
	}
	if o.treePass {
		if err := r.treePass(ctx); err != nil {
			return nil, err
		}
	}

	totals, err := params.DB.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("compute totals: %w", err)
	}
	r.result.Totals = totals
	r.result.Duration = time.Since(start)

	if err := params.DB.AppendHistory(ctx, *r.result); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	r.logger.Info().Object("result", *r.result).Msg("sync result")
	return r.result, nil
}

type run struct {
	params   Params
	o        options
	fs       fileutils.Filesystem
	logger   zerolog.Logger
	result   *mirror.ExportResult
	geoCache map[string]geoInfo
}

type geoInfo struct {
	country   string
	countryID *int64
	cityID    *int64
}

// assetPass streams the observed assets once, reconciling them while
// collecting the derived files and asset-file links for the two follow-up
// reconciliations of the same pass.
func (r *run) assetPass(ctx context.Context) error {
	started := time.Now()
	defer func() { r.result.AssetPass = time.Since(started) }()

	observed, err := r.params.Source.Assets(ctx)
	if err != nil {
		return fmt.Errorf("enumerate assets: %w", err)
	}

	var (
		files     []mirror.File
		links     []mirror.AssetFile
		seenFiles = map[string]struct{}{}
	)
	assets := func(yield func(mirror.Asset) bool) {
		for sa := range observed {
			if mirror.CheckAsset(sa.Asset) == nil {
				for _, res := range sa.Resources {
					f := r.buildFile(ctx, sa.Asset, res)
					links = append(links, mirror.AssetFile{AssetID: sa.Asset.ID, FileKey: f.Key})
					if _, dup := seenFiles[f.Key]; !dup {
						seenFiles[f.Key] = struct{}{}
						files = append(files, f)
					}
				}
			}
			if !yield(sa.Asset) {
				return
			}
		}
	}

	r.result.Assets, err = mirror.Reconcile(ctx, mirror.Spec[mirror.Asset]{
		Entity: "asset",
		Key:    mirror.Asset.Key,
		Diff:   func(a, b mirror.Asset) mirror.DiffResult { return mirror.DiffAssets(a, b) },
		Check:  mirror.CheckAsset,
	}, r.params.DB.Assets(), assets, r.o.clock, r.logger)
	if err != nil {
		return err
	}

	r.result.Files, err = mirror.Reconcile(ctx, mirror.Spec[mirror.File]{
		Entity: "file",
		Key:    func(f mirror.File) string { return f.Key },
		Diff:   func(a, b mirror.File) mirror.DiffResult { return mirror.DiffFiles(a, b) },
	}, r.params.DB.Files(), sliceSeq(files), r.o.clock, r.logger)
	if err != nil {
		return err
	}

	r.result.Links, err = mirror.Reconcile(ctx, mirror.Spec[mirror.AssetFile]{
		Entity: "link",
		Key:    mirror.AssetFile.Key,
		Diff:   func(a, b mirror.AssetFile) mirror.DiffResult { return mirror.DiffLinks(a, b) },
	}, r.params.DB.Links(), sliceSeq(links), r.o.clock, r.logger)
	return err
}

func (r *run) buildFile(ctx context.Context, a mirror.Asset, res mirror.SourceResource) mirror.File {
	info := r.resolveGeo(ctx, a.Location)
	f := mirror.BuildFile(a, res, info.country)
	f.CountryID = info.countryID
	f.CityID = info.cityID
	return f
}

// resolveGeo reverse-geocodes a location and pins it to the append-only
// country/city lookup tables, caching per distinct point for the run. Any
// failure degrades to an unresolved location.
func (r *run) resolveGeo(ctx context.Context, loc *mirror.GeoPoint) geoInfo {
	if loc == nil || r.o.geocoder == nil {
		return geoInfo{}
	}
	if cached, ok := r.geoCache[loc.String()]; ok {
		return cached
	}

	var info geoInfo
	country, city, err := r.o.geocoder.ReverseLookup(ctx, *loc)
	if err != nil {
		r.logger.Warn().Err(err).Str("location", loc.String()).Msg("could not reverse-geocode")
		r.geoCache[loc.String()] = info
		return info
	}
	if country != "" {
		if id, err := r.params.DB.GetOrCreateCountry(ctx, country); err != nil {
			r.logger.Warn().Err(err).Str("country", country).Msg("could not store country")
		} else {
			info.country = country
			info.countryID = &id
		}
	}
	if city != "" {
		if id, err := r.params.DB.GetOrCreateCity(ctx, city); err != nil {
			r.logger.Warn().Err(err).Str("city", city).Msg("could not store city")
		} else {
			info.cityID = &id
		}
	}
	r.geoCache[loc.String()] = info
	return info
}

// collectionPass reconciles folders parents-first, then albums against the
// folders that ended up live.
func (r *run) collectionPass(ctx context.Context) error {
	started := time.Now()
	defer func() { r.result.CollectionPass = time.Since(started) }()

	folders, err := r.params.Source.Folders(ctx)
	if err != nil {
		return fmt.Errorf("enumerate folders: %w", err)
	}
	ordered, unresolved := mirror.OrderFolders(folders)
	for _, f := range unresolved {
		r.logger.Warn().Object("folder", f).Msg("folder parent cannot be resolved, skipping")
	}

	r.result.Folders, err = mirror.Reconcile(ctx, mirror.Spec[mirror.Folder]{
		Entity: "folder",
		Key:    mirror.Folder.Key,
		Diff:   func(a, b mirror.Folder) mirror.DiffResult { return mirror.DiffFolders(a, b) },
	}, r.params.DB.Folders(), sliceSeq(ordered), r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Folders.Skipped += len(unresolved)

	albums, err := r.params.Source.Albums(ctx)
	if err != nil {
		return fmt.Errorf("enumerate albums: %w", err)
	}
	liveFolders, err := r.params.DB.Folders().LiveKeys(ctx)
	if err != nil {
		return fmt.Errorf("live folders: %w", err)
	}
	folderSet := make(map[string]struct{}, len(liveFolders))
	for _, id := range liveFolders {
		folderSet[id] = struct{}{}
	}

	r.result.Albums, err = mirror.Reconcile(ctx, mirror.Spec[mirror.Album]{
		Entity: "album",
		Key:    mirror.Album.Key,
		Diff:   func(a, b mirror.Album) mirror.DiffResult { return mirror.DiffAlbums(a, b) },
		Check: func(a mirror.Album) error {
			if _, ok := folderSet[a.FolderID]; !ok {
				return fmt.Errorf("%w: album %q references folder %q", mirror.ErrUnknownFolder, a.ID, a.FolderID)
			}
			return nil
		},
	}, r.params.DB.Albums(), sliceSeq(albums), r.o.clock, r.logger)
	return err
}

// purgePass hard-deletes tombstones older than the expiry window and removes
// the physical copies of purged files.
func (r *run) purgePass(ctx context.Context) error {
	db := r.params.DB

	links, err := mirror.PurgeExpired[mirror.AssetFile](ctx, "link", db.Links(), r.o.expiryWindow, r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Links.Deleted = len(links)

	albums, err := mirror.PurgeExpired[mirror.Album](ctx, "album", db.Albums(), r.o.expiryWindow, r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Albums.Deleted = len(albums)

	folders, err := mirror.PurgeExpired[mirror.Folder](ctx, "folder", db.Folders(), r.o.expiryWindow, r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Folders.Deleted = len(folders)

	assets, err := mirror.PurgeExpired[mirror.Asset](ctx, "asset", db.Assets(), r.o.expiryWindow, r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Assets.Deleted = len(assets)

	files, err := mirror.PurgeExpired[mirror.File](ctx, "file", db.Files(), r.o.expiryWindow, r.o.clock, r.logger)
	if err != nil {
		return err
	}
	r.result.Files.Deleted = len(files)
	r.result.FilesRemoved = physical.RemoveFiles(r.filesRoot(), files, r.fs, r.logger)
	return nil
}

func (r *run) copyPass(ctx context.Context) error {
	started := time.Now()
	defer func() { r.result.FilePass = time.Since(started) }()

	copier := physical.NewCopier(
		r.filesRoot(),
		r.params.Source,
		r.params.DB.Files(),
		r.fs,
		r.logger,
		physical.WithWorkers(r.o.workers),
		physical.WithMaxFileBytes(r.o.maxFileBytes),
		physical.WithCopyDryRun(r.o.dryRun),
	)
	stats, err := copier.CopyAll(ctx)
	if err != nil {
		return err
	}
	r.result.FilesCopied = stats.Copied + stats.Existed
	r.result.CopyFailed = stats.Failed
	return nil
}

func (r *run) treePass(ctx context.Context) error {
	started := time.Now()
	defer func() { r.result.SymlinkPass = time.Since(started) }()

	linker := physical.NewLinker(
		filepath.Join(r.params.MirrorDir, AlbumsDir),
		r.filesRoot(),
		r.params.DB.Folders(),
		r.params.DB.Albums(),
		r.params.DB.Files(),
		r.fs,
		r.logger,
	)
	stats, err := linker.Rebuild(ctx)
	if err != nil {
		return err
	}
	r.result.LinksCreated = stats.Created
	r.result.LinkFailed = stats.Failed
	return nil
}

func (r *run) filesRoot() string {
	return filepath.Join(r.params.MirrorDir, FilesDir)
}

func sliceSeq[E any](items []E) func(yield func(E) bool) {
	return func(yield func(E) bool) {
		for _, item := range items {
			if !yield(item) {
				return
			}
		}
	}
}
