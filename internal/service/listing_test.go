package service

import (
	"context"
	"testing"
	"time"

	"github.com/aionios/aionios/internal/domain"
)

type fakeExploreSource struct {
	popularCalls int
}

func (s *fakeExploreSource) ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error) {
	s.popularCalls++
	return []domain.Capsule{{ID: 1, Title: "popular"}}, nil
}

func (s *fakeExploreSource) ListFeatured(ctx context.Context) ([]domain.Capsule, error) {
	return []domain.Capsule{{ID: 2, Featured: true}}, nil
}

func (s *fakeExploreSource) ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return nil, nil
}

func (s *fakeExploreSource) ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return nil, nil
}

func TestListingFallsThroughWithoutMemcache(t *testing.T) {
	source := &fakeExploreSource{}
	svc := NewListingService(source, nil, time.Minute)

	capsules, err := svc.Popular(context.Background(), 10)
	if err != nil {
		t.Fatalf("popular failed: %v", err)
	}
	if len(capsules) != 1 || capsules[0].Title != "popular" {
		t.Fatalf("unexpected listing %v", capsules)
	}
	if source.popularCalls != 1 {
		t.Fatalf("expected a direct read, got %d calls", source.popularCalls)
	}

	featured, err := svc.Featured(context.Background())
	if err != nil {
		t.Fatalf("featured failed: %v", err)
	}
	if len(featured) != 1 || !featured[0].Featured {
		t.Fatalf("unexpected featured listing %v", featured)
	}
}
