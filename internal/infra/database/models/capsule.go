package models

import (
	"time"
)

type Capsule struct {
	ID                int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	Title             string         `json:"title" gorm:"type:text;not null"`
	Description       string         `json:"description" gorm:"type:text"`
	BlockchainID      string         `json:"blockchainId" gorm:"type:text;index:capsule_blockchain_id,unique"`
	TransactionHash   string         `json:"transactionHash" gorm:"type:text"`
	CreatorAddress    string         `json:"creatorAddress" gorm:"type:text;not null;index"`
	RecipientAddress  string         `json:"recipientAddress" gorm:"type:text;index"`
	ContentHash       string         `json:"contentHash" gorm:"type:text"`
	IPFSHash          string         `json:"ipfsHash" gorm:"type:text"`
	Status            string         `json:"status" gorm:"type:text;not null;index"`
	ConditionType     string         `json:"conditionType" gorm:"type:text;not null"`
	ConditionData     string         `json:"conditionData" gorm:"type:text"`
	CreatedAt         time.Time      `json:"createdAt" gorm:"<-:create;type:timestamp with time zone;not null"`
	OpenDate          *time.Time     `json:"openDate" gorm:"type:timestamp with time zone;index"`
	OpenedAt          *time.Time     `json:"openedAt" gorm:"type:timestamp with time zone"`
	ViewCount         int            `json:"viewCount" gorm:"not null;default:0"`
	ShareCount        int            `json:"shareCount" gorm:"not null;default:0"`
	SubscriptionCount int            `json:"subscriptionCount" gorm:"not null;default:0"`
	Featured          bool           `json:"featured" gorm:"type:boolean;not null;default:false;index"`
	Assets            []CapsuleAsset `json:"assets" gorm:"constraint:OnDelete:CASCADE;"`
}

type CapsuleAsset struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	CapsuleID    int64  `json:"capsuleId" gorm:"not null;index"`
	Type         string `json:"type" gorm:"type:text;not null"`
	Value        string `json:"value" gorm:"type:text;not null"`
	TokenAddress string `json:"tokenAddress" gorm:"type:text"`
	TokenID      string `json:"tokenId" gorm:"type:text"`
	TokenAmount  string `json:"tokenAmount" gorm:"type:text"`
	Transferred  bool   `json:"transferred" gorm:"type:boolean;not null;default:false"`
}
