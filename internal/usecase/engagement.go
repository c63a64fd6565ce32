package usecase

import (
	"context"
	"log/slog"

	"github.com/aionios/aionios/internal/domain"
)

// Engagement counters are unconditional: they apply in any status and only
// ever move up by one. There is no per-caller deduplication here.

func (uc *CapsuleUsecase) IncrementViewCount(ctx context.Context, id int64) (domain.Capsule, error) {
	return uc.repo.UpdateAtomic(ctx, id, func(c *domain.Capsule) error {
		c.ViewCount++
		return nil
	})
}

func (uc *CapsuleUsecase) IncrementShareCount(ctx context.Context, id int64) (domain.Capsule, error) {
	return uc.repo.UpdateAtomic(ctx, id, func(c *domain.Capsule) error {
		c.ShareCount++
		return nil
	})
}

// Subscribe bumps the subscription counter. The subscriber address is logged
// but not persisted; notification delivery is not part of this service yet.
func (uc *CapsuleUsecase) Subscribe(ctx context.Context, id int64, userAddress string) (domain.Capsule, error) {
	capsule, err := uc.repo.UpdateAtomic(ctx, id, func(c *domain.Capsule) error {
		c.SubscriptionCount++
		return nil
	})
	if err != nil {
		return domain.Capsule{}, err
	}

	slog.InfoContext(ctx, "capsule subscription",
		slog.Int64("capsuleId", id),
		slog.String("userAddress", userAddress),
		slog.String("module", "capsule"),
	)

	return capsule, nil
}

// Explore listings. Ordering only; there is no lifecycle logic here.

func (uc *CapsuleUsecase) ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return uc.repo.ListPopular(ctx, limit)
}

func (uc *CapsuleUsecase) ListFeatured(ctx context.Context) ([]domain.Capsule, error) {
	return uc.repo.ListFeatured(ctx)
}

func (uc *CapsuleUsecase) ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return uc.repo.ListRecentlyOpened(ctx, limit)
}

func (uc *CapsuleUsecase) ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error) {
	return uc.repo.ListMostSubscribed(ctx, limit)
}
