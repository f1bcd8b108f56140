package models

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignCompleted, CampaignCancelled:
		return true
	}
	return false
}

// Campaign amounts are integer minor currency units. CollectedAmount is owned
// by the ledger package and must not be assigned anywhere else.
type Campaign struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	OrganizerID     uint           `gorm:"not null;index" json:"organizer_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text;not null" json:"description"`
	TargetAmount    int64          `gorm:"not null" json:"target_amount"`
	CollectedAmount int64          `gorm:"not null;default:0" json:"collected_amount"`
	Status          CampaignStatus `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	Image           *string        `gorm:"size:255" json:"image,omitempty"`
	StartDate       time.Time      `gorm:"not null" json:"start_date"`
	EndDate         time.Time      `gorm:"not null" json:"end_date"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	// Relations
	Organizer *User `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// Progress returns the collected share of the target as a whole percentage
// capped at 100.
func (c Campaign) Progress() int {
	if c.TargetAmount <= 0 || c.CollectedAmount <= 0 {
		return 0
	}
	p := c.CollectedAmount * 100 / c.TargetAmount
	if p > 100 {
		return 100
	}
	return int(p)
}

// OpenOn reports whether now falls inside the campaign's date window. Both
// ends are whole days.
func (c Campaign) OpenOn(now time.Time) bool {
	day := truncateDay(now)
	return !day.Before(truncateDay(c.StartDate)) && !day.After(truncateDay(c.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
