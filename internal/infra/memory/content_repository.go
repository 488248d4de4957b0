package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"winequiz-service/internal/domain"
)

// ContentLoader fetches authored session content from a backing store.
type ContentLoader interface {
	LoadContent(ctx context.Context, sessionID string) (domain.GameContent, error)
	StoreContent(ctx context.Context, content domain.GameContent) error
	ListContent(ctx context.Context) ([]domain.GameContent, error)
}

// ContentRepository caches session content with TTL to avoid repeated
// backing-store hits during play. Writes go through to the loader and
// prime the cache.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedContent
}

type cachedContent struct {
	content   domain.GameContent
	expiresAt time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedContent),
	}
}

func (r *ContentRepository) GetContent(ctx context.Context, sessionID string) (domain.GameContent, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[sessionID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.content, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(sessionID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[sessionID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.content, nil
		}
		r.mu.RUnlock()

		content, err := r.loader.LoadContent(ctx, sessionID)
		if err != nil {
			return domain.GameContent{}, err
		}

		r.mu.Lock()
		r.cache[sessionID] = cachedContent{
			content:   content,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return content, nil
	})
	if err != nil {
		return domain.GameContent{}, err
	}
	return result.(domain.GameContent), nil
}

func (r *ContentRepository) PutContent(ctx context.Context, content domain.GameContent) error {
	if err := r.loader.StoreContent(ctx, content); err != nil {
		return err
	}
	r.mu.Lock()
	r.cache[content.SessionID] = cachedContent{
		content:   content,
		expiresAt: r.clock().Add(r.ttlWithJitter()),
	}
	r.mu.Unlock()
	return nil
}

func (r *ContentRepository) ListContent(ctx context.Context) ([]domain.GameContent, error) {
	return r.loader.ListContent(ctx)
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticContentLoader is a map-backed loader (tests, demos, redis-less runs).
type StaticContentLoader struct {
	mu       sync.RWMutex
	contents map[string]domain.GameContent
}

func NewStaticContentLoader(contents map[string]domain.GameContent) *StaticContentLoader {
	if contents == nil {
		contents = make(map[string]domain.GameContent)
	}
	return &StaticContentLoader{contents: contents}
}

func (l *StaticContentLoader) LoadContent(_ context.Context, sessionID string) (domain.GameContent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if content, ok := l.contents[sessionID]; ok {
		return content, nil
	}
	return domain.GameContent{}, domain.ErrContentNotFound
}

func (l *StaticContentLoader) StoreContent(_ context.Context, content domain.GameContent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.contents[content.SessionID] = content
	return nil
}

func (l *StaticContentLoader) ListContent(_ context.Context) ([]domain.GameContent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.GameContent, 0, len(l.contents))
	for _, content := range l.contents {
		out = append(out, content)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out, nil
}
