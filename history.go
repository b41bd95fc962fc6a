package main

import (
	"context"
	"fmt"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/database"
)

func historyCommand(ctx context.Context, args Command, logger zerolog.Logger) error {
	dbCli, err := newSQLite(args.History.Database, logger)
	if err != nil {
		return err
	}
	db := &database.Database{Cli: dbCli, Logger: logger}

	records, err := db.RecentHistory(ctx, args.History.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no synchronization runs recorded")
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  run %s  took %.1fs\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.RunID,
			rec.Seconds)
		fmt.Printf("  assets:  +%d ~%d =%d -%d\n",
			rec.AssetsInserted, rec.AssetsUpdated, rec.AssetsUnchanged, rec.AssetsDeleted)
		fmt.Printf("  files:   +%d ~%d =%d -%d  copied %d  removed %d\n",
			rec.FilesInserted, rec.FilesUpdated, rec.FilesUnchanged, rec.FilesDeleted,
			rec.FilesCopied, rec.FilesRemoved)
		fmt.Printf("  albums:  +%d ~%d =%d -%d  folders: +%d ~%d =%d -%d\n",
			rec.AlbumsInserted, rec.AlbumsUpdated, rec.AlbumsUnchanged, rec.AlbumsDeleted,
			rec.FoldersInserted, rec.FoldersUpdated, rec.FoldersUnchanged, rec.FoldersDeleted)
		fmt.Printf("  mirror:  %d assets, %d files, %s\n",
			rec.TotalAssets, rec.TotalFiles,
			units.HumanSize(float64(rec.TotalFileBytes)))
	}
	return nil
}
