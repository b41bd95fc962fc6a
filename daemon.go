package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/config"
	"github.com/photomirror/photomirror/database"
	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/scheduler"
	"github.com/photomirror/photomirror/source"
	"github.com/photomirror/photomirror/syncer"
)

func daemonCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Daemon.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	if args.Daemon.Database == "" {
		return fmt.Errorf("no database specified")
	}

	cfg, err := config.LoadFromFile(args.Daemon.Config)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}

	dbCli, err := newSQLite(args.Daemon.Database, logger)
	if err != nil {
		return fmt.Errorf("could not open database: %w", err)
	}

	db := &database.Database{
		Cli:    dbCli,
		Logger: logger,
		DryRun: args.Daemon.DryRun,
	}

	scheduler := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger: logger,
	})

	err = addSyncJobsFromConfig(ctx, scheduler, cfg, db, logger, args.Daemon.DryRun)
	if err != nil {
		return fmt.Errorf("could not add sync jobs: %w", err)
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	startConfigFileWatcher(ctx, args.Daemon.Config, logger, ticker, func(cfg *config.Config) {
		scheduler.RemoveJobs()
		err := addSyncJobsFromConfig(ctx, scheduler, cfg, db, logger, args.Daemon.DryRun)
		if err != nil {
			logger.Error().Err(err).Msg("failed to add sync jobs")
		}
	})

	scheduler.Start()
	defer scheduler.Stop()

	<-ctx.Done()

	return nil
}

func addSyncJobsFromConfig(
	ctx context.Context,
	scheduler *scheduler.Scheduler,
	cfg *config.Config,
	db *database.Database,
	logger zerolog.Logger,
	dryRun bool,
) error {
	libraryDirs := make(map[string]struct{})
	mirrorDirs := make(map[string]struct{})

	for _, library := range cfg.Libraries {
		job, err := configLibraryToSyncJob(ctx, &library, db, logger, dryRun)
		if err != nil {
			logger.Warn().AnErr("cause", err).Msg("skipping library")
			continue
		}

		if _, ok := libraryDirs[library.LibraryDir]; ok {
			logger.Warn().Str("library", library.LibraryDir).Msg("skipping duplicate library")
			continue
		}
		libraryDirs[library.LibraryDir] = struct{}{}

		if _, ok := mirrorDirs[library.MirrorDir]; ok {
			logger.Warn().Str("mirror", library.MirrorDir).Msg("skipping duplicate mirror")
			continue
		}
		mirrorDirs[library.MirrorDir] = struct{}{}

		if !library.Enable {
			logger.Info().Str("library", library.LibraryDir).Msg("skipping disabled library")
			continue
		}

		if err := scheduler.AddSyncJob(ctx, library.Schedule, job); err != nil {
			logger.Error().Err(err).Str("library", library.LibraryDir).Msg("could not add sync job")
			continue
		}

		logger.Info().
			Object("library", library).
			Msg("added sync job")
	}
	return nil
}

func configLibraryToSyncJob(
	ctx context.Context,
	cfgLibrary *config.ConfigLibrary,
	db *database.Database,
	logger zerolog.Logger,
	dryRun bool,
) (scheduler.SyncJob, error) {
	if cfgLibrary.LibraryDir == "" {
		return nil, fmt.Errorf("library must have a directory")
	}
	if cfgLibrary.MirrorDir == "" {
		return nil, fmt.Errorf("library must have a mirror directory")
	}
	if cfgLibrary.Schedule == "" {
		return nil, fmt.Errorf("library must have a schedule")
	}

	opts := []syncer.Option{
		syncer.WithDryRun(dryRun),
		syncer.WithWorkers(cfgLibrary.Workers),
		syncer.WithMaxFileBytes(cfgLibrary.MaxFileSize.Size),
		syncer.WithCollectionPass(!cfgLibrary.NoCollections),
		syncer.WithCopyPass(!cfgLibrary.NoCopy),
		syncer.WithTreePass(!cfgLibrary.NoTree),
	}
	if cfgLibrary.ExpiryDays > 0 {
		opts = append(opts, syncer.WithExpiryWindow(time.Duration(cfgLibrary.ExpiryDays)*24*time.Hour))
	}

	return &syncJob{
		ctx: ctx,
		params: syncer.Params{
			Source:    source.NewScanner(cfgLibrary.LibraryDir, logger),
			DB:        db,
			MirrorDir: cfgLibrary.MirrorDir,
			Logger:    logger,
		},
		opts:   opts,
		logger: logger.With().Str("library", cfgLibrary.LibraryDir).Logger(),
	}, nil
}

func startConfigFileWatcher(ctx context.Context, cfgPath string, logger zerolog.Logger, ticker *time.Ticker, onChanged func(cfg *config.Config)) {
	logger.Info().Str("path", cfgPath).Msg("watching config file for changes")
	watcher, err := fileutils.WatchFile(ctx, cfgPath, when(ticker.C), func(err error) {
		logger.Error().Err(err).Msg("could not watch config file")
	})
	if err != nil {
		logger.Error().Err(err).Msg("could not watch config file")
		return
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-watcher:
				logger.Info().Str("path", cfgPath).Msg("config file changed, reloading")

				cfg, err := config.LoadFromFile(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("could not load config")
					break
				}

				onChanged(cfg)
			}
		}
	}()
}

func when[T any](ch <-chan T) <-chan struct{} {
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range ch {
			out <- struct{}{}
		}
	}()
	return out
}

type syncJob struct {
	ctx    context.Context
	params syncer.Params
	opts   []syncer.Option
	logger zerolog.Logger
}

func (j *syncJob) Run() {
	if _, err := syncer.Sync(j.ctx, j.params, j.opts...); err != nil {
		j.logger.Error().Err(err).Msg("scheduled sync failed")
	}
}
