package registry

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/nulzo/model-registry/internal/core/domain"
	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/core/services/catalog"
	"github.com/nulzo/model-registry/internal/platform/metrics"
	"go.uber.org/zap"
)

const (
	// generationKey is bumped by every mutation. Listing keys embed the
	// generation they were read under, so bumping it retires every listing.
	generationKey = "catalog:generation"

	fillTimeout = 15 * time.Second
)

// list loads the admin superset for q through the cache and narrows it to q.
// Provider filters are applied in memory and never reach the cache key.
func (s *Service) list(ctx context.Context, q catalog.Query) ([]domain.ModelEntry, error) {
	superset := catalog.Query{HideDefaults: q.HideDefaults, IncludeHidden: true}
	filter := superset.Filter()
	key := catalog.CacheKey(filter)

	cacheable := false
	var gen int64
	if s.cache != nil {
		var err error
		gen, err = s.generation(ctx)
		if err != nil {
			s.logger.Warn("catalog cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
			key += ":g" + strconv.FormatInt(gen, 10)
		}
	}

	if cacheable {
		var cached []domain.ModelEntry
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			metrics.ObserveCacheLookup(true)
			return catalog.Apply(cached, q.Filter()), nil
		}
		if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.ObserveCacheLookup(false)
	}

	// Callers only share a fill started after the last local mutation. The
	// fill outlives any single caller; each caller still stops waiting when
	// its own context ends.
	flight := key + ":l" + strconv.FormatInt(s.mutations.Load(), 10)
	ch := s.group.DoChan(flight, func() (interface{}, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
		defer cancel()

		entries, err := s.store.ListFiltered(fillCtx, filter)
		if err != nil {
			return nil, storeError(err)
		}
		entries = publicFields(entries)

		if cacheable {
			s.fill(fillCtx, key, gen, entries)
		}
		return entries, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return catalog.Apply(res.Val.([]domain.ModelEntry), q.Filter()), nil
	}
}

// fill stores entries read under gen unless a mutation happened meanwhile.
func (s *Service) fill(ctx context.Context, key string, gen int64, entries []domain.ModelEntry) {
	current, err := s.generation(ctx)
	if err != nil || current != gen {
		return
	}
	if err := s.cache.Set(ctx, key, entries, s.cacheTTL); err != nil {
		s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) generation(ctx context.Context) (int64, error) {
	var gen int64
	err := s.cache.Get(ctx, generationKey, &gen)
	if errors.Is(err, ports.ErrCacheMiss) {
		return 0, nil
	}
	return gen, err
}

// invalidate retires every cached listing. Must run after the store write.
func (s *Service) invalidate(ctx context.Context) {
	s.mutations.Add(1)
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Incr(context.WithoutCancel(ctx), generationKey); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

// publicFields strips connection settings and natural keys from listed
// entries; they are never returned by listings.
func publicFields(entries []domain.ModelEntry) []domain.ModelEntry {
	out := make([]domain.ModelEntry, len(entries))
	for i, e := range entries {
		e.Config = domain.ConnectionConfig{}
		e.NaturalKey = ""
		out[i] = e
	}
	return out
}
