// Package views shapes models into the JSON the HTTP surfaces return. Each
// surface speaks its own donation status vocabulary.
package views

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"donamaha/apperr"
	"donamaha/models"
	"donamaha/utils"

	"github.com/gorilla/mux"
)

const DateLayout = "2006-01-02"

// PathID reads a positive integer route variable.
func PathID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Field(name, "ID tidak valid")
	}
	return uint(id), nil
}

type UserBrief struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type User struct {
	ID        uint        `json:"id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	StudentID *string     `json:"student_id"`
	Avatar    *string     `json:"avatar"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func NewUser(ctx context.Context, u models.User) User {
	return User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		StudentID: u.StudentID,
		Avatar:    utils.ImageURL(ctx, u.Avatar),
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type Campaign struct {
	ID              uint                  `json:"id"`
	OrganizerID     uint                  `json:"organizer_id"`
	Organizer       *UserBrief            `json:"organizer,omitempty"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	TargetAmount    int64                 `json:"target_amount"`
	CollectedAmount int64                 `json:"collected_amount"`
	Progress        int                   `json:"progress"`
	Status          models.CampaignStatus `json:"status"`
	Image           *string               `json:"image"`
	StartDate       string                `json:"start_date"`
	EndDate         string                `json:"end_date"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func NewCampaign(ctx context.Context, c models.Campaign) Campaign {
	out := Campaign{
		ID:              c.ID,
		OrganizerID:     c.OrganizerID,
		Title:           c.Title,
		Description:     c.Description,
		TargetAmount:    c.TargetAmount,
		CollectedAmount: c.CollectedAmount,
		Progress:        c.Progress(),
		Status:          c.Status,
		Image:           utils.ImageURL(ctx, c.Image),
		StartDate:       c.StartDate.Format(DateLayout),
		EndDate:         c.EndDate.Format(DateLayout),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.Organizer != nil {
		out.Organizer = &UserBrief{ID: c.Organizer.ID, Name: c.Organizer.Name}
	}
	return out
}

type Payment struct {
	ID            uint                 `json:"id"`
	DonationID    uint                 `json:"donation_id"`
	Reference     string               `json:"reference"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaidAt        *time.Time           `json:"paid_at"`
	CreatedAt     time.Time            `json:"created_at"`
	Donation      *Donation            `json:"donation,omitempty"`
}

func NewPayment(p models.Payment) Payment {
	out := Payment{
		ID:            p.ID,
		DonationID:    p.DonationID,
		Reference:     p.Reference,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
	if p.Donation != nil {
		d := AdminDonation(*p.Donation)
		out.Donation = &d
	}
	return out
}

type Donation struct {
	ID            uint      `json:"id"`
	CampaignID    uint      `json:"campaign_id"`
	CampaignTitle string    `json:"campaign_title,omitempty"`
	DonorID       *uint     `json:"donor_id,omitempty"`
	DonorName     string    `json:"donor_name"`
	DonorEmail    *string   `json:"donor_email,omitempty"`
	Amount        int64     `json:"amount"`
	Status        string    `json:"status"`
	Note          *string   `json:"note,omitempty"`
	IsAnonymous   bool      `json:"is_anonymous"`
	Payment       *Payment  `json:"payment,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func baseDonation(d models.Donation) Donation {
	out := Donation{
		ID:          d.ID,
		CampaignID:  d.CampaignID,
		DonorID:     d.DonorID,
		Amount:      d.Amount,
		Note:        d.Note,
		IsAnonymous: d.IsAnonymous,
		CreatedAt:   d.CreatedAt,
	}
	if d.Campaign != nil {
		out.CampaignTitle = d.Campaign.Title
	}
	if d.Payment != nil {
		p := d.Payment
		out.Payment = &Payment{
			ID:            p.ID,
			DonationID:    p.DonationID,
			Reference:     p.Reference,
			PaymentMethod: p.PaymentMethod,
			PaymentStatus: p.PaymentStatus,
			PaidAt:        p.PaidAt,
			CreatedAt:     p.CreatedAt,
		}
	}
	return out
}

// AdminDonation shows the real donor and the back-office status words.
func AdminDonation(d models.Donation) Donation {
	out := baseDonation(d)
	out.Status = d.Status.AdminLabel()
	switch {
	case d.Donor != nil:
		out.DonorName = d.Donor.Name
		out.DonorEmail = &d.Donor.Email
	default:
		out.DonorName = utils.GetStringValue(d.DonorName)
		out.DonorEmail = d.DonorEmail
	}
	return out
}

// OwnDonation is a donation as its donor sees it.
func OwnDonation(d models.Donation) Donation {
	out := baseDonation(d)
	out.Status = d.Status.PublicLabel()
	out.DonorName = d.DisplayName()
	if d.Donor != nil {
		out.DonorName = d.Donor.Name
	}
	return out
}

// FeedDonation is a donation on a public campaign page. Anonymous donors
// are masked and nobody's email is shown.
func FeedDonation(d models.Donation) Donation {
	out := baseDonation(d)
	out.Status = d.Status.PublicLabel()
	out.DonorName = d.DisplayName()
	out.Payment = nil
	out.Note = d.Note
	if d.IsAnonymous {
		out.DonorID = nil
	}
	return out
}

type Report struct {
	ID          uint       `json:"id"`
	CampaignID  uint       `json:"campaign_id"`
	AuthorID    uint       `json:"author_id"`
	Author      *UserBrief `json:"author,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Image       *string    `json:"image"`
	TotalSpent  int64      `json:"total_spent"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewReport(ctx context.Context, r models.Report) Report {
	out := Report{
		ID:          r.ID,
		CampaignID:  r.CampaignID,
		AuthorID:    r.AuthorID,
		Title:       r.Title,
		Content:     r.Content,
		Image:       utils.ImageURL(ctx, r.Image),
		TotalSpent:  r.TotalSpent,
		PublishedAt: r.PublishedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.Author != nil {
		out.Author = &UserBrief{ID: r.Author.ID, Name: r.Author.Name}
	}
	return out
}
