package usecase

import (
	"context"
	"time"

	"github.com/aionios/aionios/internal/domain"
)

// CapsuleRepository defines storage operations for capsules.
//
// UpdateAtomic is the single mutation primitive: it loads the current capsule
// under a per-record lock, applies mutate, and persists the result in one
// transaction. Concurrent transitions on the same capsule serialize here.
type CapsuleRepository interface {
	Create(ctx context.Context, capsule domain.Capsule) (domain.Capsule, error)
	GetByID(ctx context.Context, id int64) (domain.Capsule, error)
	GetByBlockchainID(ctx context.Context, blockchainID string) (domain.Capsule, error)
	ListByCreator(ctx context.Context, address string) ([]domain.Capsule, error)
	ListByRecipient(ctx context.Context, address string) ([]domain.Capsule, error)
	ListByAddress(ctx context.Context, address string) ([]domain.Capsule, error)
	UpdateAtomic(ctx context.Context, id int64, mutate func(*domain.Capsule) error) (domain.Capsule, error)
	ListDueForOpening(ctx context.Context, now time.Time) ([]domain.Capsule, error)
	ListPopular(ctx context.Context, limit int) ([]domain.Capsule, error)
	ListFeatured(ctx context.Context) ([]domain.Capsule, error)
	ListRecentlyOpened(ctx context.Context, limit int) ([]domain.Capsule, error)
	ListMostSubscribed(ctx context.Context, limit int) ([]domain.Capsule, error)
}

// Ledger is the external system of record for capsule registration and
// opening events.
type Ledger interface {
	Register(ctx context.Context, title, contentRef, creatorAddr, recipientAddr string, conditionType domain.ConditionType, conditionData string) (string, error)
	Open(ctx context.Context, ledgerID, requesterAddr string) (bool, error)
	IsReadyToOpen(ctx context.Context, ledgerID string) (bool, error)
	Status(ctx context.Context, ledgerID string) (domain.CapsuleStatus, error)
}

// ContentStore is the content-addressed store for capsule payloads.
type ContentStore interface {
	Upload(ctx context.Context, content []byte) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
	Exists(ctx context.Context, ref string) (bool, error)
}

// EventPublisher emits capsule lifecycle events. Publishing is best effort;
// the lifecycle never depends on it.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.CapsuleEvent) error
}
