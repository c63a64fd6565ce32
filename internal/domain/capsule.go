package domain

import (
	"strings"
	"time"
)

type CapsuleStatus string

const (
	StatusDraft       CapsuleStatus = "DRAFT"
	StatusPending     CapsuleStatus = "PENDING"
	StatusSealed      CapsuleStatus = "SEALED"
	StatusReadyToOpen CapsuleStatus = "READY_TO_OPEN"
	StatusOpened      CapsuleStatus = "OPENED"
	StatusFailed      CapsuleStatus = "FAILED"
)

// ValidStatus reports whether s is one of the known capsule statuses.
func ValidStatus(s CapsuleStatus) bool {
	switch s {
	case StatusDraft, StatusPending, StatusSealed, StatusReadyToOpen, StatusOpened, StatusFailed:
		return true
	}
	return false
}

type ConditionType string

const (
	ConditionTime     ConditionType = "TIME"
	ConditionMultisig ConditionType = "MULTISIG"
	ConditionOracle   ConditionType = "ORACLE"
	ConditionCompound ConditionType = "COMPOUND"
)

type AssetType string

const (
	AssetETH     AssetType = "ETH"
	AssetERC20   AssetType = "ERC20"
	AssetERC721  AssetType = "ERC721"
	AssetERC1155 AssetType = "ERC1155"
	AssetData    AssetType = "DATA"
)

// Capsule is the persisted record of one time-locked disclosure.
type Capsule struct {
	ID                int64          `json:"id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	BlockchainID      string         `json:"blockchainId,omitempty"`
	TransactionHash   string         `json:"transactionHash,omitempty"`
	CreatorAddress    string         `json:"creatorAddress"`
	RecipientAddress  string         `json:"recipientAddress"`
	ContentHash       string         `json:"contentHash,omitempty"`
	IPFSHash          string         `json:"ipfsHash,omitempty"`
	Status            CapsuleStatus  `json:"status"`
	ConditionType     ConditionType  `json:"conditionType"`
	ConditionData     string         `json:"conditionData,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	OpenDate          *time.Time     `json:"openDate,omitempty"`
	OpenedAt          *time.Time     `json:"openedAt,omitempty"`
	ViewCount         int            `json:"viewCount"`
	ShareCount        int            `json:"shareCount"`
	SubscriptionCount int            `json:"subscriptionCount"`
	Featured          bool           `json:"featured"`
	Assets            []CapsuleAsset `json:"assets,omitempty"`
}

// CapsuleAsset is a value locked inside a capsule. Assets have no lifecycle of
// their own and are removed together with their capsule.
type CapsuleAsset struct {
	ID           int64     `json:"id"`
	CapsuleID    int64     `json:"capsuleId"`
	Type         AssetType `json:"type"`
	Value        string    `json:"value"`
	TokenAddress string    `json:"tokenAddress,omitempty"`
	TokenID      string    `json:"tokenId,omitempty"`
	TokenAmount  string    `json:"tokenAmount,omitempty"`
	Transferred  bool      `json:"transferred"`
}

// IsRecipient reports whether addr matches the capsule recipient.
// Addresses are opaque identifiers compared case-insensitively.
func (c Capsule) IsRecipient(addr string) bool {
	return c.RecipientAddress != "" && strings.EqualFold(addr, c.RecipientAddress)
}
