package mirror

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
)

// Spec parameterizes the reconciler for one entity type.
type Spec[E any] struct {
	// Entity names the type in logs and errors.
	Entity string
	// Key extracts the identity of an entity.
	Key func(E) string
	// Diff decides changed vs unchanged between an observed and a persisted
	// entity with equal keys.
	Diff func(observed, persisted E) DiffResult
	// Check reports why an observed entity is unusable. A non-nil error
	// skips the entity without counting it as insert or update. Nil Check
	// accepts everything.
	Check func(E) error
}

// DiffResult is the slice of the diff engine's contract the reconciler needs.
type DiffResult interface {
	Changed() bool
	String() string
}

// Persisted wraps a stored entity with its tombstone state.
type Persisted[E any] struct {
	Entity    E
	DeletedAt *time.Time
}

// Store is the persisted-mirror surface for one entity type. Get must return
// soft-deleted rows too, so reappearance before expiry can resurrect them.
type Store[E any] interface {
	Get(ctx context.Context, key string) (Persisted[E], bool, error)
	// Upsert inserts or replaces the entity's field values, preserving
	// identity and clearing any tombstone.
	Upsert(ctx context.Context, e E) error
	MarkDeleted(ctx context.Context, key string, at time.Time) error
	// LiveKeys returns the identities of all rows not currently tombstoned.
	LiveKeys(ctx context.Context) ([]string, error)
}

// Purger hard-deletes tombstoned rows whose deletion timestamp is older than
// the cutoff, returning the purged entities.
type Purger[E any] interface {
	PurgeExpired(ctx context.Context, cutoff time.Time) ([]E, error)
}

// Reconcile merges one pass of observed entities into the persisted store.
//
// Every observed entity is inserted, updated, left unchanged or skipped;
// afterwards every live identity absent from the observed set is tombstoned.
// The observed sequence is fully drained before the absent set is computed,
// since absence is only meaningful against the complete pass. Re-running with
// the same observed set is a no-op.
func Reconcile[E any](
	ctx context.Context,
	spec Spec[E],
	store Store[E],
	observed iter.Seq[E],
	clock Clock,
	logger zerolog.Logger,
) (Counters, error) {
	var c Counters
	logger = logger.With().Str("entity", spec.Entity).Logger()
	logger.Debug().Msg("reconciling entities")

	throttled := logger.Sample(&zerolog.BurstSampler{
		Burst:  1,
		Period: 1 * time.Second,
	})

	seen := make(map[string]struct{})
	for o := range observed {
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		throttled.Info().Str("entity", spec.Entity).Int("observed", len(seen)).Msg("reconciling")

		if spec.Check != nil {
			if err := spec.Check(o); err != nil {
				logger.Warn().Err(err).Str("key", spec.Key(o)).Msg("skipping entity")
				c.Skipped++
				continue
			}
		}

		key := spec.Key(o)
		if _, dup := seen[key]; dup {
			// Same identity observed twice in one pass, e.g. an identical
			// resource shared by two assets. First occurrence wins.
			logger.Debug().Str("key", key).Msg("duplicate observed identity")
			continue
		}
		seen[key] = struct{}{}

		p, found, err := store.Get(ctx, key)
		if err != nil {
			return c, fmt.Errorf("get %s %q: %w", spec.Entity, key, err)
		}

		switch {
		case !found:
			if err := store.Upsert(ctx, o); err != nil {
				return c, fmt.Errorf("insert %s %q: %w", spec.Entity, key, err)
			}
			c.Inserted++
		case p.DeletedAt != nil:
			// Reappeared before expiry: back to live, tombstone cleared.
			if err := store.Upsert(ctx, o); err != nil {
				return c, fmt.Errorf("restore %s %q: %w", spec.Entity, key, err)
			}
			logger.Info().Str("key", key).Msg("entity reappeared before expiry")
			c.Updated++
		default:
			d := spec.Diff(o, p.Entity)
			if !d.Changed() {
				c.Unchanged++
				continue
			}
			if err := store.Upsert(ctx, o); err != nil {
				return c, fmt.Errorf("update %s %q: %w", spec.Entity, key, err)
			}
			logger.Debug().Str("key", key).Str("diff", d.String()).Msg("entity changed")
			c.Updated++
		}
	}
	if ctx.Err() != nil {
		return c, ctx.Err()
	}

	live, err := store.LiveKeys(ctx)
	if err != nil {
		return c, fmt.Errorf("live keys for %s: %w", spec.Entity, err)
	}

	now := clock.Now()
	for _, key := range live {
		if _, ok := seen[key]; ok {
			continue
		}
		if ctx.Err() != nil {
			return c, ctx.Err()
		}
		if err := store.MarkDeleted(ctx, key, now); err != nil {
			return c, fmt.Errorf("mark deleted %s %q: %w", spec.Entity, key, err)
		}
		logger.Info().Str("key", key).Msg("entity no longer observed, tombstoned")
		c.MarkedForDeletion++
	}

	logger.Info().Object("counters", c).Msg("done reconciling entities")
	return c, nil
}

// PurgeExpired promotes tombstones older than the expiry window to hard
// deletion. Hard deletion is irreversible; no entity skips the tombstone
// state on the way out.
func PurgeExpired[E any](
	ctx context.Context,
	entity string,
	purger Purger[E],
	window time.Duration,
	clock Clock,
	logger zerolog.Logger,
) ([]E, error) {
	cutoff := clock.Now().Add(-window)
	purged, err := purger.PurgeExpired(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("purge expired %s: %w", entity, err)
	}
	if len(purged) > 0 {
		logger.Info().Str("entity", entity).Int("purged", len(purged)).Time("cutoff", cutoff).Msg("hard-deleted expired tombstones")
	}
	return purged, nil
}
