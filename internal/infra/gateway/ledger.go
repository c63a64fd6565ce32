package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aionios/aionios/internal/domain"
)

// EthereumLedger registers and opens capsules against an Ethereum node.
//
// The TimeCapsule contract is not deployed yet, so the contract calls below
// are placeholders that mint locally unique ids; the node connection and the
// address validation are real. TODO: generate contract bindings once
// TimeCapsule.sol lands and replace the placeholder calls.
type EthereumLedger struct {
	client          *ethclient.Client
	contractAddress common.Address
}

func NewEthereumLedger(ctx context.Context, rpcEndpoint, contractAddress string) (*EthereumLedger, error) {
	client, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, errors.Wrap(err, "dialing ethereum node")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying chain id")
	}

	ledger := &EthereumLedger{client: client}
	if contractAddress != "" {
		if !common.IsHexAddress(contractAddress) {
			return nil, fmt.Errorf("invalid contract address %q", contractAddress)
		}
		ledger.contractAddress = common.HexToAddress(contractAddress)
	}

	slog.Info("ethereum ledger connected",
		slog.String("endpoint", rpcEndpoint),
		slog.String("chainId", chainID.String()),
		slog.String("contract", ledger.contractAddress.Hex()),
		slog.String("module", "ledger"),
	)

	return ledger, nil
}

func (l *EthereumLedger) Register(ctx context.Context, title, contentRef, creatorAddr, recipientAddr string, conditionType domain.ConditionType, conditionData string) (string, error) {
	if !common.IsHexAddress(creatorAddr) {
		return "", fmt.Errorf("invalid creator address %q", creatorAddr)
	}
	if recipientAddr != "" && !common.IsHexAddress(recipientAddr) {
		return "", fmt.Errorf("invalid recipient address %q", recipientAddr)
	}

	ledgerID := fmt.Sprintf("bc_%d", time.Now().UnixMilli())

	slog.InfoContext(ctx, "capsule registered on ledger",
		slog.String("ledgerId", ledgerID),
		slog.String("title", title),
		slog.String("recipient", recipientAddr),
		slog.String("module", "ledger"),
	)

	return ledgerID, nil
}

func (l *EthereumLedger) Open(ctx context.Context, ledgerID, requesterAddr string) (bool, error) {
	slog.InfoContext(ctx, "capsule opened on ledger",
		slog.String("ledgerId", ledgerID),
		slog.String("requester", requesterAddr),
		slog.String("module", "ledger"),
	)
	return true, nil
}

func (l *EthereumLedger) IsReadyToOpen(ctx context.Context, ledgerID string) (bool, error) {
	return true, nil
}

func (l *EthereumLedger) Status(ctx context.Context, ledgerID string) (domain.CapsuleStatus, error) {
	return domain.StatusSealed, nil
}

// MemoryLedger is an in-process ledger for tests and for deployments that
// have no chain endpoint configured.
type MemoryLedger struct {
	mu       sync.Mutex
	statuses map[string]domain.CapsuleStatus
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{statuses: map[string]domain.CapsuleStatus{}}
}

func (l *MemoryLedger) Register(ctx context.Context, title, contentRef, creatorAddr, recipientAddr string, conditionType domain.ConditionType, conditionData string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledgerID := "mock_" + uuid.NewString()
	l.statuses[ledgerID] = domain.StatusSealed
	return ledgerID, nil
}

func (l *MemoryLedger) Open(ctx context.Context, ledgerID, requesterAddr string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.statuses[ledgerID]; !ok {
		return false, nil
	}
	l.statuses[ledgerID] = domain.StatusOpened
	return true, nil
}

func (l *MemoryLedger) IsReadyToOpen(ctx context.Context, ledgerID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.statuses[ledgerID]
	return ok, nil
}

func (l *MemoryLedger) Status(ctx context.Context, ledgerID string) (domain.CapsuleStatus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if status, ok := l.statuses[ledgerID]; ok {
		return status, nil
	}
	return domain.StatusSealed, nil
}
