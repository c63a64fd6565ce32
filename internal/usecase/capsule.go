package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/aionios/aionios/internal/domain"
)

var tracer = otel.Tracer("capsule")

// CreateCapsuleInput is the validated input for creating a capsule.
// Content, when present, is uploaded to the content store before the capsule
// is registered anywhere.
type CreateCapsuleInput struct {
	Title            string
	Description      string
	CreatorAddress   string
	RecipientAddress string
	ConditionType    domain.ConditionType
	ConditionData    string
	OpenDate         *time.Time
	Assets           []domain.CapsuleAsset
	Content          []byte
}

// CapsuleUsecase owns the capsule lifecycle: creation, opening, the
// readiness sweep, and the engagement counters.
type CapsuleUsecase struct {
	repo   CapsuleRepository
	ledger Ledger
	store  ContentStore
	signal EventPublisher

	// Now is the clock used for condition evaluation and timestamps.
	Now func() time.Time
}

func NewCapsuleUsecase(
	repo CapsuleRepository,
	ledger Ledger,
	store ContentStore,
	signal EventPublisher,
) *CapsuleUsecase {
	return &CapsuleUsecase{
		repo:   repo,
		ledger: ledger,
		store:  store,
		signal: signal,
		Now:    time.Now,
	}
}

// Create uploads the optional content, registers the capsule on the ledger,
// and only then persists it as SEALED. A failure of either external call
// aborts the whole operation: no partial capsule is written.
//
// The reverse guarantee does not hold. If the local persist fails after the
// ledger registration succeeded, the ledger entry is orphaned; it is logged
// for out-of-band reconciliation, not rolled back.
func (uc *CapsuleUsecase) Create(ctx context.Context, input CreateCapsuleInput) (domain.Capsule, error) {
	ctx, span := tracer.Start(ctx, "Capsule.Usecase.Create")
	defer span.End()

	if err := validateCreateInput(input); err != nil {
		span.RecordError(err)
		return domain.Capsule{}, err
	}

	capsule := domain.Capsule{
		Title:            input.Title,
		Description:      input.Description,
		CreatorAddress:   input.CreatorAddress,
		RecipientAddress: input.RecipientAddress,
		ConditionType:    input.ConditionType,
		ConditionData:    input.ConditionData,
		OpenDate:         input.OpenDate,
		Assets:           input.Assets,
	}

	if len(input.Content) > 0 {
		digest := sha256.Sum256(input.Content)
		capsule.ContentHash = hex.EncodeToString(digest[:])

		hash, err := uc.store.Upload(ctx, input.Content)
		if err != nil {
			wrapped := domain.ContentStoreError{Op: "upload", Err: err}
			span.RecordError(wrapped)
			return domain.Capsule{}, wrapped
		}
		capsule.IPFSHash = hash
	}

	ledgerID, err := uc.ledger.Register(
		ctx,
		capsule.Title,
		capsule.IPFSHash,
		capsule.CreatorAddress,
		capsule.RecipientAddress,
		capsule.ConditionType,
		capsule.ConditionData,
	)
	if err != nil {
		wrapped := domain.LedgerError{Op: "register", Err: err}
		span.RecordError(wrapped)
		return domain.Capsule{}, wrapped
	}

	capsule.BlockchainID = ledgerID
	capsule.Status = domain.StatusSealed
	capsule.CreatedAt = uc.Now()

	created, err := uc.repo.Create(ctx, capsule)
	if err != nil {
		// The ledger registration cannot be undone. Record the orphaned
		// ledger id so it can be reconciled out of band.
		slog.ErrorContext(ctx, "capsule persist failed after ledger registration",
			slog.String("ledgerId", ledgerID),
			slog.String("error", err.Error()),
			slog.String("module", "capsule"),
		)
		wrapped := domain.PersistenceError{Err: err}
		span.RecordError(wrapped)
		return domain.Capsule{}, wrapped
	}

	uc.publish(ctx, domain.CapsuleEvent{
		Type:             domain.EventCreated,
		CapsuleID:        created.ID,
		BlockchainID:     created.BlockchainID,
		RecipientAddress: created.RecipientAddress,
		Status:           created.Status,
	})

	return created, nil
}

func validateCreateInput(input CreateCapsuleInput) error {
	if input.Title == "" {
		return domain.PreconditionError{Reason: "title is required"}
	}
	if input.CreatorAddress == "" {
		return domain.PreconditionError{Reason: "creator address is required"}
	}
	if input.ConditionType == domain.ConditionTime && input.OpenDate == nil {
		return domain.PreconditionError{Reason: "open date is required for time conditions"}
	}
	switch input.ConditionType {
	case domain.ConditionTime, domain.ConditionMultisig, domain.ConditionOracle, domain.ConditionCompound:
	default:
		return domain.PreconditionError{Reason: fmt.Sprintf("unknown condition type %q", input.ConditionType)}
	}
	return nil
}

func (uc *CapsuleUsecase) GetByID(ctx context.Context, id int64) (domain.Capsule, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *CapsuleUsecase) GetByBlockchainID(ctx context.Context, blockchainID string) (domain.Capsule, error) {
	return uc.repo.GetByBlockchainID(ctx, blockchainID)
}

func (uc *CapsuleUsecase) ListByCreator(ctx context.Context, address string) ([]domain.Capsule, error) {
	return uc.repo.ListByCreator(ctx, address)
}

func (uc *CapsuleUsecase) ListByRecipient(ctx context.Context, address string) ([]domain.Capsule, error) {
	return uc.repo.ListByRecipient(ctx, address)
}

func (uc *CapsuleUsecase) ListByAddress(ctx context.Context, address string) ([]domain.Capsule, error) {
	return uc.repo.ListByAddress(ctx, address)
}

// Open transitions a capsule to OPENED on behalf of requesterAddr. It
// succeeds only when the capsule is SEALED or READY_TO_OPEN, the requester is
// the recorded recipient, the opening condition holds right now, and the
// ledger confirms the open. Everything runs inside the per-capsule
// transaction, so two concurrent opens cannot both commit.
func (uc *CapsuleUsecase) Open(ctx context.Context, id int64, requesterAddr string) (domain.Capsule, error) {
	ctx, span := tracer.Start(ctx, "Capsule.Usecase.Open")
	defer span.End()

	now := uc.Now()

	opened, err := uc.repo.UpdateAtomic(ctx, id, func(c *domain.Capsule) error {
		if c.Status != domain.StatusSealed && c.Status != domain.StatusReadyToOpen {
			return domain.PreconditionError{Reason: fmt.Sprintf("capsule is %s", c.Status)}
		}
		if !c.IsRecipient(requesterAddr) {
			return domain.AuthorizationError{Requester: requesterAddr}
		}
		if !domain.ConditionSatisfied(*c, now) {
			return domain.PreconditionError{Reason: "opening condition not satisfied"}
		}

		ok, err := uc.ledger.Open(ctx, c.BlockchainID, requesterAddr)
		if err != nil {
			return domain.LedgerError{Op: "open", Err: err}
		}
		if !ok {
			return domain.LedgerError{Op: "open"}
		}

		openedAt := now
		c.Status = domain.StatusOpened
		c.OpenedAt = &openedAt
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return domain.Capsule{}, err
	}

	uc.publish(ctx, domain.CapsuleEvent{
		Type:             domain.EventOpened,
		CapsuleID:        opened.ID,
		BlockchainID:     opened.BlockchainID,
		RecipientAddress: opened.RecipientAddress,
		Status:           opened.Status,
	})

	return opened, nil
}

// UpdateStatus sets the status directly without checking the transition
// guards. This is an administrative escape hatch: callers can move a capsule
// anywhere in the state machine, including backwards. Setting OPENED stamps
// OpenedAt to now, and re-stamps it on repeat calls.
func (uc *CapsuleUsecase) UpdateStatus(ctx context.Context, id int64, status domain.CapsuleStatus) (domain.Capsule, error) {
	if !domain.ValidStatus(status) {
		return domain.Capsule{}, domain.PreconditionError{Reason: fmt.Sprintf("unknown status %q", status)}
	}

	return uc.repo.UpdateAtomic(ctx, id, func(c *domain.Capsule) error {
		c.Status = status
		if status == domain.StatusOpened {
			openedAt := uc.Now()
			c.OpenedAt = &openedAt
		}
		return nil
	})
}

// Sweep promotes sealed TIME capsules whose open date has passed to
// READY_TO_OPEN and returns how many were promoted. Each promotion is
// independent: a failure on one capsule never blocks the rest. The sweep is
// a discoverability cache only; Open re-evaluates the condition itself, so a
// missed sweep can delay discovery but never permit an early open.
func (uc *CapsuleUsecase) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Capsule.Usecase.Sweep")
	defer span.End()

	now := uc.Now()

	due, err := uc.repo.ListDueForOpening(ctx, now)
	if err != nil {
		span.RecordError(err)
		return 0, errors.Wrap(err, "listing capsules due for opening")
	}

	promoted := 0
	for _, candidate := range due {
		updated, err := uc.repo.UpdateAtomic(ctx, candidate.ID, func(c *domain.Capsule) error {
			// Revalidate under the lock: a concurrent open or sweep may
			// have moved the capsule already.
			if c.Status != domain.StatusSealed || !domain.ConditionSatisfied(*c, now) {
				return domain.PreconditionError{Reason: "no longer eligible"}
			}
			c.Status = domain.StatusReadyToOpen
			return nil
		})
		if err != nil {
			if !errors.Is(err, domain.ErrPrecondition) {
				slog.ErrorContext(ctx, "sweep promotion failed",
					slog.Int64("capsuleId", candidate.ID),
					slog.String("error", err.Error()),
					slog.String("module", "sweep"),
				)
			}
			continue
		}

		promoted++
		uc.publish(ctx, domain.CapsuleEvent{
			Type:             domain.EventReady,
			CapsuleID:        updated.ID,
			BlockchainID:     updated.BlockchainID,
			RecipientAddress: updated.RecipientAddress,
			Status:           updated.Status,
		})
	}

	return promoted, nil
}

// FetchContent returns the stored payload of an opened capsule.
func (uc *CapsuleUsecase) FetchContent(ctx context.Context, id int64) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Capsule.Usecase.FetchContent")
	defer span.End()

	capsule, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if capsule.Status != domain.StatusOpened {
		return nil, domain.PreconditionError{Reason: fmt.Sprintf("capsule is %s", capsule.Status)}
	}
	if capsule.IPFSHash == "" {
		return nil, domain.NotFoundError{Resource: "content"}
	}

	content, err := uc.store.Fetch(ctx, capsule.IPFSHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		wrapped := domain.ContentStoreError{Op: "fetch", Err: err}
		span.RecordError(wrapped)
		return nil, wrapped
	}

	return content, nil
}

// LedgerState reports what the ledger believes about a capsule. It exists for
// reconciliation against the local record; no transition depends on it.
type LedgerState struct {
	BlockchainID string               `json:"blockchainId"`
	Status       domain.CapsuleStatus `json:"status"`
	ReadyToOpen  bool                 `json:"readyToOpen"`
}

func (uc *CapsuleUsecase) GetLedgerState(ctx context.Context, id int64) (LedgerState, error) {
	capsule, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return LedgerState{}, err
	}
	if capsule.BlockchainID == "" {
		return LedgerState{}, domain.NotFoundError{Resource: "ledger entry"}
	}

	status, err := uc.ledger.Status(ctx, capsule.BlockchainID)
	if err != nil {
		return LedgerState{}, domain.LedgerError{Op: "status", Err: err}
	}
	ready, err := uc.ledger.IsReadyToOpen(ctx, capsule.BlockchainID)
	if err != nil {
		return LedgerState{}, domain.LedgerError{Op: "status", Err: err}
	}

	return LedgerState{
		BlockchainID: capsule.BlockchainID,
		Status:       status,
		ReadyToOpen:  ready,
	}, nil
}

func (uc *CapsuleUsecase) publish(ctx context.Context, event domain.CapsuleEvent) {
	if uc.signal == nil {
		return
	}
	if err := uc.signal.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "capsule event publish failed",
			slog.String("type", string(event.Type)),
			slog.Int64("capsuleId", event.CapsuleID),
			slog.String("error", err.Error()),
			slog.String("module", "capsule"),
		)
	}
}
