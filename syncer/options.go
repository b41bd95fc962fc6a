package syncer

import (
	"time"

	"github.com/photomirror/photomirror/mirror"
)

const (
	defaultExpiryWindow = 30 * 24 * time.Hour
	defaultWorkers      = 4
)

type options struct {
	expiryWindow   time.Duration
	workers        int
	maxFileBytes   int64
	dryRun         bool
	geocoder       mirror.Geocoder
	clock          mirror.Clock
	collectionPass bool
	copyPass       bool
	treePass       bool
}

func defaultOptions() options {
	return options{
		expiryWindow:   defaultExpiryWindow,
		workers:        defaultWorkers,
		clock:          mirror.SystemClock(),
		collectionPass: true,
		copyPass:       true,
		treePass:       true,
	}
}

type Option func(o *options)

// WithExpiryWindow sets how long tombstones survive before hard deletion.
func WithExpiryWindow(window time.Duration) Option {
	return func(o *options) {
		if window > 0 {
			o.expiryWindow = window
		}
	}
}

// WithWorkers bounds the copy worker pool.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithMaxFileBytes skips copying files larger than max. Zero means no limit.
func WithMaxFileBytes(max int64) Option {
	return func(o *options) {
		o.maxFileBytes = max
	}
}

func WithDryRun(dryRun bool) Option {
	return func(o *options) {
		o.dryRun = dryRun
	}
}

// WithGeocoder resolves file locations to country/city lookup entries.
// Without one, locations stay unresolved.
func WithGeocoder(g mirror.Geocoder) Option {
	return func(o *options) {
		o.geocoder = g
	}
}

// WithClock overrides the wall clock, used by expiry tests.
func WithClock(c mirror.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithCollectionPass toggles folder/album reconciliation.
func WithCollectionPass(enabled bool) Option {
	return func(o *options) {
		o.collectionPass = enabled
	}
}

// WithCopyPass toggles the physical copy pass.
func WithCopyPass(enabled bool) Option {
	return func(o *options) {
		o.copyPass = enabled
	}
}

// WithTreePass toggles symlink-tree regeneration.
func WithTreePass(enabled bool) Option {
	return func(o *options) {
		o.treePass = enabled
	}
}
