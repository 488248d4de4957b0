package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"winequiz-service/internal/domain"
)

// countingLoader wraps a StaticContentLoader and counts backing-store reads.
type countingLoader struct {
	*StaticContentLoader
	mu    sync.Mutex
	loads int
}

func (l *countingLoader) LoadContent(ctx context.Context, sessionID string) (domain.GameContent, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()
	return l.StaticContentLoader.LoadContent(ctx, sessionID)
}

func (l *countingLoader) loadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

func TestGetContentCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{StaticContentLoader: NewStaticContentLoader(map[string]domain.GameContent{
		"s1": {SessionID: "s1", Name: "Harvest Night"},
	})}
	repo := NewContentRepository(loader, time.Minute)

	for i := 0; i < 5; i++ {
		content, err := repo.GetContent(ctx, "s1")
		if err != nil {
			t.Fatalf("get content: %v", err)
		}
		if content.Name != "Harvest Night" {
			t.Fatalf("unexpected content: %+v", content)
		}
	}
	if got := loader.loadCount(); got != 1 {
		t.Fatalf("expected a single backing-store load, got %d", got)
	}
}

func TestGetContentRefreshesAfterExpiry(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{StaticContentLoader: NewStaticContentLoader(map[string]domain.GameContent{
		"s1": {SessionID: "s1", Name: "Harvest Night"},
	})}
	repo := NewContentRepository(loader, time.Minute)

	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetContent(ctx, "s1"); err != nil {
		t.Fatalf("get content: %v", err)
	}

	// Jitter tops out at 10% of the TTL, so two minutes is past any expiry.
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetContent(ctx, "s1"); err != nil {
		t.Fatalf("get content after expiry: %v", err)
	}
	if got := loader.loadCount(); got != 2 {
		t.Fatalf("expected a reload after expiry, got %d loads", got)
	}
}

func TestPutContentPrimesCache(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{StaticContentLoader: NewStaticContentLoader(nil)}
	repo := NewContentRepository(loader, time.Minute)

	if err := repo.PutContent(ctx, domain.GameContent{SessionID: "s1", Name: "Harvest Night"}); err != nil {
		t.Fatalf("put content: %v", err)
	}

	content, err := repo.GetContent(ctx, "s1")
	if err != nil {
		t.Fatalf("get content: %v", err)
	}
	if content.Name != "Harvest Night" {
		t.Fatalf("unexpected content: %+v", content)
	}
	if got := loader.loadCount(); got != 0 {
		t.Fatalf("write-through should have primed the cache, saw %d loads", got)
	}
}

func TestGetContentUnknownSession(t *testing.T) {
	repo := NewContentRepository(NewStaticContentLoader(nil), time.Minute)
	if _, err := repo.GetContent(context.Background(), "missing"); !errors.Is(err, domain.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}

func TestListContentSortedBySession(t *testing.T) {
	loader := NewStaticContentLoader(map[string]domain.GameContent{
		"s2": {SessionID: "s2"},
		"s1": {SessionID: "s1"},
		"s3": {SessionID: "s3"},
	})
	repo := NewContentRepository(loader, time.Minute)

	contents, err := repo.ListContent(context.Background())
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(contents) != 3 || contents[0].SessionID != "s1" || contents[2].SessionID != "s3" {
		t.Fatalf("expected sorted sessions, got %+v", contents)
	}
}
