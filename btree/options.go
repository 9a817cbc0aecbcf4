package btree

import (
	"diskbtree/cache"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// minCacheSize keeps every node an insert step still has to save resident: the
// parent, its child, the child's new sibling and the sibling split off one
// level up.
const minCacheSize = 4

type options struct {
	cacheSize  int
	syncWrites bool
	logger     *zap.Logger
}

// Option configures a BTree.
type Option func(*options)

// WithCacheSize sets how many non-root nodes stay resident. The default is
// cache.DefaultSize.
func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

// WithSyncWrites makes every node save fsync its file.
func WithSyncWrites(sync bool) Option {
	return func(o *options) { o.syncWrites = sync }
}

// WithLogger sets the logger for split and eviction events. A nil logger
// keeps the default, which discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) (options, error) {
	o := options{
		cacheSize: cache.DefaultSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize < minCacheSize {
		return o, newError(KindConfig, "configure", "",
			errors.Newf("cache size %d is below the minimum of %d", o.cacheSize, minCacheSize))
	}
	return o, nil
}

func validateCapacity(capacity int) error {
	if capacity < 3 || capacity%2 == 0 {
		return newError(KindConfig, "configure", "",
			errors.Newf("node capacity %d must be odd and at least 3", capacity))
	}
	return nil
}
