// Package physical reconciles the filesystem with the persisted mirror:
// copying file bytes from the source library, removing hard-deleted copies,
// and regenerating the disposable symlink tree.
package physical

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/photomirror/photomirror/fileutils"
	"github.com/photomirror/photomirror/mirror"
)

const defaultWorkers = 4

// Fetcher retrieves the bytes of one resource, normally the source library
// provider.
type Fetcher interface {
	FetchResource(ctx context.Context, assetID string, kind mirror.FileKind, name string, destPath string) (mirror.FetchResult, error)
}

// CopyStore is the slice of the persisted mirror the copy pass needs.
type CopyStore interface {
	UncopiedFiles(ctx context.Context) ([]mirror.CopyTask, error)
	MarkCopied(ctx context.Context, key string) error
}

// CopyStats summarizes one copy pass.
type CopyStats struct {
	Copied  int
	Existed int
	Removed int
	Skipped int
	Failed  int
}

func (s CopyStats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("copied", s.Copied)
	e.Int("existed", s.Existed)
	if s.Removed > 0 {
		e.Int("removed_upstream", s.Removed)
	}
	if s.Skipped > 0 {
		e.Int("skipped", s.Skipped)
	}
	if s.Failed > 0 {
		e.Int("failed", s.Failed)
	}
}

// Copier copies every live uncopied file into the mirror directory over a
// bounded worker pool. A file that fails stays uncopied and is retried on
// the next run.
type Copier struct {
	root    string
	fetcher Fetcher
	store   CopyStore
	fs      fileutils.Filesystem
	logger  zerolog.Logger

	workers  int
	maxBytes int64
	dryRun   bool
}

type CopierOption func(c *Copier)

// WithWorkers bounds the copy pool size.
func WithWorkers(n int) CopierOption {
	return func(c *Copier) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxFileBytes skips files larger than max. Zero means no limit.
func WithMaxFileBytes(max int64) CopierOption {
	return func(c *Copier) {
		c.maxBytes = max
	}
}

func WithCopyDryRun(dryRun bool) CopierOption {
	return func(c *Copier) {
		c.dryRun = dryRun
	}
}

func NewCopier(root string, fetcher Fetcher, store CopyStore, fs fileutils.Filesystem, logger zerolog.Logger, opts ...CopierOption) *Copier {
	c := &Copier{
		root:    root,
		fetcher: fetcher,
		store:   store,
		fs:      fs,
		logger:  logger.With().Str("mirror", root).Logger(),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CopyAll drains the uncopied backlog. Individual failures are logged and
// counted; only listing the backlog can fail the pass.
func (c *Copier) CopyAll(ctx context.Context) (CopyStats, error) {
	tasks, err := c.store.UncopiedFiles(ctx)
	if err != nil {
		return CopyStats{}, err
	}

	c.logger.Info().Int("pending", len(tasks)).Msg("start copying files")

	throttled := c.logger.Sample(&zerolog.BurstSampler{
		Burst:  1,
		Period: 1 * time.Second,
	})

	var (
		mu    sync.Mutex
		stats CopyStats
		wg    sync.WaitGroup
	)
	queue := make(chan mirror.CopyTask)

	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range queue {
				outcome := c.copyOne(ctx, task)
				mu.Lock()
				switch outcome {
				case copyDone:
					stats.Copied++
				case copyExisted:
					stats.Existed++
				case copyRemoved:
					stats.Removed++
				case copySkipped:
					stats.Skipped++
				case copyFailed:
					stats.Failed++
				}
				done := stats.Copied + stats.Existed
				mu.Unlock()
				throttled.Info().Int("done", done).Int("pending", len(tasks)).Msg("copying files")
			}
		}()
	}

	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		queue <- task
	}
	close(queue)
	wg.Wait()

	c.logger.Info().Object("stats", stats).Msg("done copying files")
	return stats, ctx.Err()
}

type copyOutcome int

const (
	copyDone copyOutcome = iota
	copyExisted
	copyRemoved
	copySkipped
	copyFailed
)

func (c *Copier) copyOne(ctx context.Context, task mirror.CopyTask) copyOutcome {
	file := task.File
	logger := c.logger.With().Object("file", file).Str("asset", task.AssetID).Logger()

	if c.maxBytes > 0 && file.Size > c.maxBytes {
		logger.Debug().Int64("max_bytes", c.maxBytes).Msg("skipping large file")
		return copySkipped
	}

	dest := filepath.Join(c.root, filepath.FromSlash(file.TargetDir), file.FileName)
	if c.dryRun {
		logger.Info().Str("dest", dest).Msg("would copy file")
		return copyDone
	}

	res, err := c.fetcher.FetchResource(ctx, task.AssetID, file.Kind, file.OriginalName, dest)
	if err != nil {
		logger.Warn().Err(err).Msg("could not copy file")
		return copyFailed
	}

	switch res {
	case mirror.FetchRemoved:
		logger.Debug().Msg("upstream resource removed, leaving for reconciliation")
		return copyRemoved
	case mirror.FetchExists:
		if err := c.store.MarkCopied(ctx, file.Key); err != nil {
			logger.Warn().Err(err).Msg("could not record existing copy")
			return copyFailed
		}
		return copyExisted
	default:
		if err := c.store.MarkCopied(ctx, file.Key); err != nil {
			logger.Warn().Err(err).Msg("could not record copy")
			return copyFailed
		}
		logger.Debug().Str("dest", dest).Msg("copied file")
		return copyDone
	}
}

// RemoveFiles deletes the physical copies of hard-deleted files. A copy that
// is already gone is not an error. Returns the number of paths removed or
// already absent.
func RemoveFiles(root string, files []mirror.File, fs fileutils.Filesystem, logger zerolog.Logger) int {
	removed := 0
	for _, file := range files {
		if !file.WasCopied {
			removed++
			continue
		}
		path := filepath.Join(root, filepath.FromSlash(file.TargetDir), file.FileName)
		if err := fs.Remove(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("could not remove file")
			continue
		}
		logger.Debug().Str("path", path).Msg("removed file")
		removed++
	}
	return removed
}
