package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ledger entry reasons.
const (
	ReasonCreate    = "create"
	ReasonUpdate    = "update"
	ReasonStatus    = "status"
	ReasonDelete    = "delete"
	ReasonPayment   = "payment"
	ReasonReconcile = "reconcile"
)

// LedgerEntry records one movement of a campaign's collected amount. Rows
// outlive the donation they mention, so DonationID carries no foreign key.
type LedgerEntry struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	CampaignID   uint              `gorm:"not null;index" json:"campaign_id"`
	DonationID   *uint             `gorm:"index" json:"donation_id,omitempty"`
	Delta        int64             `gorm:"not null" json:"delta"`
	BalanceAfter int64             `gorm:"not null" json:"balance_after"`
	Reason       string            `gorm:"type:varchar(16);not null" json:"reason"`
	Meta         datatypes.JSONMap `json:"meta,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
