package models

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodQRIS         PaymentMethod = "qris"
	MethodCash         PaymentMethod = "cash"
)

var paymentMethodAliases = map[string]PaymentMethod{
	"bank_transfer": MethodBankTransfer,
	"e_wallet":      MethodEWallet,
	"ewallet":       MethodEWallet,
	"e-wallet":      MethodEWallet,
	"credit_card":   MethodCreditCard,
	"qris":          MethodQRIS,
	"cash":          MethodCash,
}

// ParsePaymentMethod accepts the spellings used by both surfaces.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	m, ok := paymentMethodAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
	PaymentRefunded   PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentProcessing, PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// DonationStatus is the donation state a payment status drives. ok is false
// for in-flight payment states, which leave the donation alone.
func (s PaymentStatus) DonationStatus() (DonationStatus, bool) {
	switch s {
	case PaymentCompleted:
		return DonationReceived, true
	case PaymentRefunded, PaymentCancelled:
		return DonationCancelled, true
	case PaymentFailed:
		return DonationFailed, true
	}
	return "", false
}

type Payment struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	DonationID    uint          `gorm:"not null;uniqueIndex" json:"donation_id"`
	Reference     string        `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"payment_status"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`

	Donation *Donation `gorm:"foreignKey:DonationID" json:"donation,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
