package ml

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// digestResolver is implemented by stores that can report the current digest
// without loading the artifact
type digestResolver interface {
	CurrentDigest(ctx context.Context, name string) (string, error)
}

// Loader caches the current model per name. Stores that resolve digests are
// consulted on every load so a newly published artifact is seen immediately.
type Loader struct {
	store     ArtifactStore
	cache     *cache.Cache
	ttl       time.Duration
	logger    *logrus.Logger
	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewLoader creates a model loader with the given cache TTL
func NewLoader(store ArtifactStore, ttl time.Duration, logger *logrus.Logger) *Loader {
	return &Loader{
		store:  store,
		cache:  cache.New(ttl, ttl*2),
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(name, digest string) string {
	if digest == "" {
		return name
	}
	return name + ":" + digest
}

// Load returns the current model for name
func (l *Loader) Load(ctx context.Context, name string) (*Model, error) {
	var digest string
	if r, ok := l.store.(digestResolver); ok {
		d, err := r.CurrentDigest(ctx, name)
		if err != nil {
			return nil, err
		}
		digest = d
	}

	key := cacheKey(name, digest)
	if cached, found := l.cache.Get(key); found {
		if m, ok := cached.(*Model); ok {
			l.record(true)
			return m, nil
		}
	}
	l.record(false)

	a, err := l.store.Current(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", name, err)
	}
	m, err := NewModel(a)
	if err != nil {
		return nil, err
	}
	l.cache.Set(cacheKey(name, m.Digest()), m, l.ttl)
	l.logger.WithFields(logrus.Fields{
		"model_name": name,
		"digest":     m.Digest(),
	}).Debug("Model loaded into cache")
	return m, nil
}

// Invalidate drops every cached model
func (l *Loader) Invalidate() {
	l.cache.Flush()
}

func (l *Loader) record(hit bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hit {
		l.hitCount++
	} else {
		l.missCount++
	}
}

// Stats returns cache statistics
func (l *Loader) Stats() (hits, misses uint64, ratio float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hits = l.hitCount
	misses = l.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}
