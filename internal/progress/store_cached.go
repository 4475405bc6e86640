package progress

import (
	"context"
	"log/slog"
	"time"

	"github.com/xzeeeeen/HM/internal/platform/cache"
)

const cacheKeyPrefix = "progress:"

// CachedStore keeps a Redis copy of each record in front of another Store.
// Reads fall through to the inner store on a miss or a cache failure; writes
// go to the inner store first and then refresh the cached copy.
type CachedStore struct {
	inner Store
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedStore wraps inner with a Redis read-through cache.
func NewCachedStore(inner Store, c *cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, cache: c, ttl: ttl}
}

func (s *CachedStore) Get(ctx context.Context, learnerID string) (*Progress, error) {
	var cached Progress
	found, err := s.cache.GetJSON(ctx, cacheKey(learnerID), &cached)
	if err != nil {
		slog.Warn("progress cache read failed", "learner_id", learnerID, "error", err)
	}
	if found {
		normalize(&cached, learnerID)
		return &cached, nil
	}

	p, err := s.inner.Get(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, p)
	return p, nil
}

func (s *CachedStore) Update(ctx context.Context, learnerID string, fn UpdateFunc) (*Progress, error) {
	p, err := s.inner.Update(ctx, learnerID, fn)
	if err != nil {
		return nil, err
	}
	s.refresh(ctx, p)
	return p, nil
}

// refresh writes the record to the cache. If that fails the key is dropped so
// a stale copy is never served.
func (s *CachedStore) refresh(ctx context.Context, p *Progress) {
	key := cacheKey(p.LearnerID)
	if err := s.cache.SetJSON(ctx, key, p, s.ttl); err != nil {
		slog.Warn("progress cache write failed", "learner_id", p.LearnerID, "error", err)
		if err := s.cache.Delete(ctx, key); err != nil {
			slog.Error("progress cache invalidation failed", "learner_id", p.LearnerID, "error", err)
		}
	}
}

func cacheKey(learnerID string) string {
	return cacheKeyPrefix + learnerID
}

func normalize(p *Progress, learnerID string) {
	if p.LearnerID == "" {
		p.LearnerID = learnerID
	}
	if p.Courses == nil {
		p.Courses = make(map[string]*CourseProgress)
	}
	if p.QuizScores == nil {
		p.QuizScores = make(map[string]int)
	}
	for id, cp := range p.Courses {
		if cp == nil {
			delete(p.Courses, id)
			continue
		}
		if cp.CompletedLessonIDs == nil {
			cp.CompletedLessonIDs = make(IDSet)
		}
		if cp.CompletedModuleIDs == nil {
			cp.CompletedModuleIDs = make(IDSet)
		}
	}
}
