package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/database"
	"github.com/photomirror/photomirror/source"
	"github.com/photomirror/photomirror/syncer"
)

func syncCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	if args.Sync.DryRun {
		logger = logger.With().Bool("dryrun", true).Logger()
	}

	dbCli, err := newSQLite(args.Sync.Database, logger)
	if err != nil {
		return err
	}
	db := &database.Database{
		Cli:    dbCli,
		Logger: logger,
		DryRun: args.Sync.DryRun,
	}

	_, err = syncer.Sync(ctx, syncer.Params{
		Source:    source.NewScanner(args.Sync.Library, logger),
		DB:        db,
		MirrorDir: args.Sync.Mirror,
		Logger:    logger,
	},
		syncer.WithDryRun(args.Sync.DryRun),
		syncer.WithWorkers(args.Sync.Workers),
		syncer.WithMaxFileBytes(args.Sync.MaxSize.Size),
		syncer.WithExpiryWindow(time.Duration(args.Sync.ExpiryDays)*24*time.Hour),
		syncer.WithCollectionPass(!args.Sync.NoCollections),
		syncer.WithCopyPass(!args.Sync.NoCopy),
		syncer.WithTreePass(!args.Sync.NoTree),
	)
	return err
}
