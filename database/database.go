// Package database is the gorm/sqlite persisted mirror. It implements the
// reconciler's per-entity store contract plus the read surface of the
// physical reconciliation passes.
package database

import (
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Database struct {
	// Lock serializes writes per mirror; counters rely on single-writer
	// access.
	Lock   sync.Mutex
	Cli    *gorm.DB
	Logger zerolog.Logger
	DryRun bool
}

func (d *Database) Assets() *AssetStore   { return &AssetStore{db: d} }
func (d *Database) Files() *FileStore     { return &FileStore{db: d} }
func (d *Database) Links() *LinkStore     { return &LinkStore{db: d} }
func (d *Database) Folders() *FolderStore { return &FolderStore{db: d} }
func (d *Database) Albums() *AlbumStore   { return &AlbumStore{db: d} }
