package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/aionios/aionios/internal/domain"
)

// ExploreSource is the part of the lifecycle manager serving explore
// listings.
type ExploreSource interface {
	ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error)
	ListFeatured(ctx context.Context) ([]domain.Capsule, error)
	ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error)
	ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error)
}

// ListingService caches the hot explore listings in memcached. A nil
// memcache client or any cache failure degrades to direct reads.
type ListingService struct {
	source ExploreSource
	mc     *memcache.Client
	ttl    int32
}

func NewListingService(source ExploreSource, mc *memcache.Client, ttl time.Duration) *ListingService {
	return &ListingService{
		source: source,
		mc:     mc,
		ttl:    int32(ttl / time.Second),
	}
}

func (s *ListingService) Popular(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return s.cached(ctx, fmt.Sprintf("explore:popular:%d", limit), func(ctx context.Context) ([]domain.Capsule, error) {
		return s.source.ListPopular(ctx, limit)
	})
}

func (s *ListingService) Featured(ctx context.Context) ([]domain.Capsule, error) {
	return s.cached(ctx, "explore:featured", s.source.ListFeatured)
}

func (s *ListingService) RecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return s.cached(ctx, fmt.Sprintf("explore:recent:%d", limit), func(ctx context.Context) ([]domain.Capsule, error) {
		return s.source.ListRecentlyOpened(ctx, limit)
	})
}

func (s *ListingService) MostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return s.cached(ctx, fmt.Sprintf("explore:subscribed:%d", limit), func(ctx context.Context) ([]domain.Capsule, error) {
		return s.source.ListMostSubscribed(ctx, limit)
	})
}

func (s *ListingService) cached(ctx context.Context, key string, load func(context.Context) ([]domain.Capsule, error)) ([]domain.Capsule, error) {
	if s.mc != nil {
		if item, err := s.mc.Get(key); err == nil {
			var capsules []domain.Capsule
			if err := json.Unmarshal(item.Value, &capsules); err == nil {
				return capsules, nil
			}
		}
	}

	capsules, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if s.mc != nil {
		if value, err := json.Marshal(capsules); err == nil {
			_ = s.mc.Set(&memcache.Item{Key: key, Value: value, Expiration: s.ttl})
		}
	}

	return capsules, nil
}
