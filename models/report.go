package models

import "time"

// MinReportContent is the minimum length of a report body in characters.
const MinReportContent = 100

type Report struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	CampaignID  uint       `gorm:"not null;index" json:"campaign_id"`
	AuthorID    uint       `gorm:"not null;index" json:"author_id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Image       *string    `gorm:"size:255" json:"image,omitempty"`
	TotalSpent  int64      `gorm:"not null;default:0" json:"total_spent"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Campaign *Campaign `gorm:"foreignKey:CampaignID" json:"campaign,omitempty"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (Report) TableName() string {
	return "reports"
}

// PublishedBy reports whether the report is public at now.
func (r Report) PublishedBy(now time.Time) bool {
	return r.PublishedAt != nil && !r.PublishedAt.After(now)
}
