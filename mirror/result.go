package mirror

import (
	"time"

	"github.com/rs/zerolog"
)

// Counters aggregates reconciliation decisions for one entity type in one
// pass.
type Counters struct {
	Inserted          int
	Updated           int
	Unchanged         int
	Skipped           int
	MarkedForDeletion int
	Deleted           int
}

func (c Counters) MarshalZerologObject(e *zerolog.Event) {
	e.Int("inserted", c.Inserted)
	e.Int("updated", c.Updated)
	e.Int("unchanged", c.Unchanged)
	if c.Skipped > 0 {
		e.Int("skipped", c.Skipped)
	}
	if c.MarkedForDeletion > 0 {
		e.Int("marked_for_deletion", c.MarkedForDeletion)
	}
	if c.Deleted > 0 {
		e.Int("deleted", c.Deleted)
	}
}

// Totals are the mirror-wide live counts after a run.
type Totals struct {
	Assets    int64
	Files     int64
	Albums    int64
	Folders   int64
	FileBytes int64
}

// ExportResult is the aggregate outcome of one synchronization run.
type ExportResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	Assets  Counters
	Files   Counters
	Links   Counters
	Folders Counters
	Albums  Counters

	FilesCopied  int
	FilesRemoved int
	CopyFailed   int
	LinksCreated int
	LinkFailed   int

	Totals Totals

	AssetPass      time.Duration
	CollectionPass time.Duration
	FilePass       time.Duration
	SymlinkPass    time.Duration
}

func (r ExportResult) MarshalZerologObject(e *zerolog.Event) {
	e.Str("run_id", r.RunID)
	e.Object("assets", r.Assets)
	e.Object("files", r.Files)
	e.Object("links", r.Links)
	e.Object("folders", r.Folders)
	e.Object("albums", r.Albums)
	e.Int("files_copied", r.FilesCopied)
	e.Int("files_removed", r.FilesRemoved)
	if r.CopyFailed > 0 {
		e.Int("copy_failed", r.CopyFailed)
	}
	e.Int("links_created", r.LinksCreated)
	if r.LinkFailed > 0 {
		e.Int("link_failed", r.LinkFailed)
	}
	e.Float64("seconds", r.Duration.Seconds())
}
