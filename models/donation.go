package models

import "time"

// MinDonationAmount is the smallest accepted donation in minor units.
const MinDonationAmount int64 = 1000

// DonationStatus is the canonical donation state. Each HTTP surface speaks its
// own vocabulary; see AdminDonationStatuses and PublicDonationStatuses.
type DonationStatus string

const (
	DonationPending   DonationStatus = "pending"
	DonationReceived  DonationStatus = "received"
	DonationFailed    DonationStatus = "failed"
	DonationCancelled DonationStatus = "cancelled"
)

func (s DonationStatus) Valid() bool {
	switch s {
	case DonationPending, DonationReceived, DonationFailed, DonationCancelled:
		return true
	}
	return false
}

// Received reports whether the amount counts toward the campaign total.
func (s DonationStatus) Received() bool {
	return s == DonationReceived
}

// AdminDonationStatuses maps the back-office vocabulary to canonical states.
var AdminDonationStatuses = map[string]DonationStatus{
	"pending":   DonationPending,
	"completed": DonationReceived,
	"failed":    DonationFailed,
	"cancelled": DonationCancelled,
}

// PublicDonationStatuses maps the public site vocabulary to canonical states.
// It has no word for failed.
var PublicDonationStatuses = map[string]DonationStatus{
	"pending":   DonationPending,
	"paid":      DonationReceived,
	"cancelled": DonationCancelled,
}

func ParseAdminStatus(s string) (DonationStatus, bool) {
	st, ok := AdminDonationStatuses[s]
	return st, ok
}

func ParsePublicStatus(s string) (DonationStatus, bool) {
	st, ok := PublicDonationStatuses[s]
	return st, ok
}

func (s DonationStatus) AdminLabel() string {
	if s == DonationReceived {
		return "completed"
	}
	return string(s)
}

func (s DonationStatus) PublicLabel() string {
	switch s {
	case DonationReceived:
		return "paid"
	case DonationFailed:
		return "cancelled"
	}
	return string(s)
}

type Donation struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CampaignID  uint           `gorm:"not null;index" json:"campaign_id"`
	DonorID     *uint          `gorm:"index" json:"donor_id,omitempty"`
	Amount      int64          `gorm:"not null" json:"amount"`
	Status      DonationStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Note        *string        `gorm:"type:text" json:"note,omitempty"`
	DonorName   *string        `gorm:"size:100" json:"donor_name,omitempty"`
	DonorEmail  *string        `gorm:"size:191" json:"donor_email,omitempty"`
	IsAnonymous bool           `gorm:"not null;default:false" json:"is_anonymous"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
	Donor    *User     `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Payment  *Payment  `gorm:"foreignKey:DonationID" json:"payment,omitempty"`
}

func (Donation) TableName() string {
	return "donations"
}

// AssignDonor links a registered donor and clears the guest fields. A nil id
// turns the donation into a guest donation and leaves guest fields untouched.
func (d *Donation) AssignDonor(id *uint) {
	d.DonorID = id
	if id != nil {
		d.DonorName = nil
		d.DonorEmail = nil
	}
}

// DisplayName is the name shown on public feeds.
func (d Donation) DisplayName() string {
	if d.IsAnonymous {
		return "Anonymous"
	}
	if d.Donor != nil && d.Donor.Name != "" {
		return d.Donor.Name
	}
	if d.DonorName != nil && *d.DonorName != "" {
		return *d.DonorName
	}
	return "Guest"
}
