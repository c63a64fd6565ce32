package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aionios/aionios/internal/domain"
	"github.com/aionios/aionios/internal/infra/database/models"
)

type CapsuleRepository struct {
	db *gorm.DB
}

func NewCapsuleRepository(db *gorm.DB) *CapsuleRepository {
	return &CapsuleRepository{db: db}
}

func (r *CapsuleRepository) Create(ctx context.Context, capsule domain.Capsule) (domain.Capsule, error) {
	m := capsuleFromDomain(capsule)

	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Capsule{}, err
	}

	return capsuleToDomain(m), nil
}

func (r *CapsuleRepository) GetByID(ctx context.Context, id int64) (domain.Capsule, error) {
	var m models.Capsule
	err := r.db.WithContext(ctx).Preload("Assets").
		Where("id = ?", id).
		Take(&m).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Capsule{}, domain.NotFoundError{Resource: "capsule"}
	}
	if err != nil {
		return domain.Capsule{}, err
	}

	return capsuleToDomain(m), nil
}

func (r *CapsuleRepository) GetByBlockchainID(ctx context.Context, blockchainID string) (domain.Capsule, error) {
	var m models.Capsule
	err := r.db.WithContext(ctx).Preload("Assets").
		Where("blockchain_id = ?", blockchainID).
		Take(&m).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Capsule{}, domain.NotFoundError{Resource: "capsule"}
	}
	if err != nil {
		return domain.Capsule{}, err
	}

	return capsuleToDomain(m), nil
}

func (r *CapsuleRepository) ListByCreator(ctx context.Context, address string) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("creator_address = ?", address).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListByRecipient(ctx context.Context, address string) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("recipient_address = ?", address).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListByAddress(ctx context.Context, address string) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("creator_address = ? OR recipient_address = ?", address, address).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

// UpdateAtomic loads the capsule under a row lock, applies mutate, and
// persists the result, all inside one transaction. Concurrent opens or
// sweeps of the same capsule serialize on the lock and revalidate against
// the committed state.
func (r *CapsuleRepository) UpdateAtomic(ctx context.Context, id int64, mutate func(*domain.Capsule) error) (domain.Capsule, error) {
	var result domain.Capsule

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Capsule
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Assets").
			Where("id = ?", id).
			Take(&m).Error
		if err == gorm.ErrRecordNotFound {
			return domain.NotFoundError{Resource: "capsule"}
		}
		if err != nil {
			return err
		}

		capsule := capsuleToDomain(m)
		if err := mutate(&capsule); err != nil {
			return err
		}

		updated := capsuleFromDomain(capsule)
		updated.CreatedAt = m.CreatedAt

		if err := tx.Omit("Assets").Save(&updated).Error; err != nil {
			return err
		}

		updated.Assets = m.Assets
		result = capsuleToDomain(updated)
		return nil
	})
	if err != nil {
		return domain.Capsule{}, err
	}

	return result, nil
}

func (r *CapsuleRepository) ListDueForOpening(ctx context.Context, now time.Time) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("status = ? AND condition_type = ? AND open_date <= ?",
			string(domain.StatusSealed), string(domain.ConditionTime), now).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(domain.StatusSealed), string(domain.StatusOpened)}).
		Order("view_count DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListFeatured(ctx context.Context) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("featured = ?", true).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusOpened)).
		Order("opened_at DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

func (r *CapsuleRepository) ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error) {
	var ms []models.Capsule
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.StatusSealed)).
		Order("subscription_count DESC").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	return capsulesToDomain(ms), nil
}

// --- converters ---

func capsuleToDomain(m models.Capsule) domain.Capsule {
	assets := make([]domain.CapsuleAsset, 0, len(m.Assets))
	for _, a := range m.Assets {
		assets = append(assets, domain.CapsuleAsset{
			ID:           a.ID,
			CapsuleID:    a.CapsuleID,
			Type:         domain.AssetType(a.Type),
			Value:        a.Value,
			TokenAddress: a.TokenAddress,
			TokenID:      a.TokenID,
			TokenAmount:  a.TokenAmount,
			Transferred:  a.Transferred,
		})
	}

	return domain.Capsule{
		ID:                m.ID,
		Title:             m.Title,
		Description:       m.Description,
		BlockchainID:      m.BlockchainID,
		TransactionHash:   m.TransactionHash,
		CreatorAddress:    m.CreatorAddress,
		RecipientAddress:  m.RecipientAddress,
		ContentHash:       m.ContentHash,
		IPFSHash:          m.IPFSHash,
		Status:            domain.CapsuleStatus(m.Status),
		ConditionType:     domain.ConditionType(m.ConditionType),
		ConditionData:     m.ConditionData,
		CreatedAt:         m.CreatedAt,
		OpenDate:          m.OpenDate,
		OpenedAt:          m.OpenedAt,
		ViewCount:         m.ViewCount,
		ShareCount:        m.ShareCount,
		SubscriptionCount: m.SubscriptionCount,
		Featured:          m.Featured,
		Assets:            assets,
	}
}

func capsulesToDomain(ms []models.Capsule) []domain.Capsule {
	capsules := make([]domain.Capsule, 0, len(ms))
	for _, m := range ms {
		capsules = append(capsules, capsuleToDomain(m))
	}
	return capsules
}

func capsuleFromDomain(c domain.Capsule) models.Capsule {
	assets := make([]models.CapsuleAsset, 0, len(c.Assets))
	for _, a := range c.Assets {
		assets = append(assets, models.CapsuleAsset{
			ID:           a.ID,
			CapsuleID:    a.CapsuleID,
			Type:         string(a.Type),
			Value:        a.Value,
			TokenAddress: a.TokenAddress,
			TokenID:      a.TokenID,
			TokenAmount:  a.TokenAmount,
			Transferred:  a.Transferred,
		})
	}

	return models.Capsule{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		BlockchainID:      c.BlockchainID,
		TransactionHash:   c.TransactionHash,
		CreatorAddress:    c.CreatorAddress,
		RecipientAddress:  c.RecipientAddress,
		ContentHash:       c.ContentHash,
		IPFSHash:          c.IPFSHash,
		Status:            string(c.Status),
		ConditionType:     string(c.ConditionType),
		ConditionData:     c.ConditionData,
		CreatedAt:         c.CreatedAt,
		OpenDate:          c.OpenDate,
		OpenedAt:          c.OpenedAt,
		ViewCount:         c.ViewCount,
		ShareCount:        c.ShareCount,
		SubscriptionCount: c.SubscriptionCount,
		Featured:          c.Featured,
		Assets:            assets,
	}
}
