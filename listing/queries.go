package listing

import (
	"time"

	"donamaha/apperr"
	"donamaha/models"

	"gorm.io/gorm"
)

var (
	campaignSort = Sort{
		Columns: map[string]string{
			"created_at":       "created_at",
			"title":            "title",
			"target_amount":    "target_amount",
			"collected_amount": "collected_amount",
			"start_date":       "start_date",
			"end_date":         "end_date",
		},
		Default: "created_at",
	}
	donationSort = Sort{
		Columns: map[string]string{
			"created_at": "donations.created_at",
			"amount":     "donations.amount",
			"status":     "donations.status",
		},
		Default: "created_at",
		Table:   "donations",
	}
	userSort = Sort{
		Columns: map[string]string{
			"created_at": "created_at",
			"name":       "name",
			"email":      "email",
		},
		Default: "created_at",
	}
	paymentSort = Sort{
		Columns: map[string]string{
			"created_at": "created_at",
			"paid_at":    "paid_at",
		},
		Default: "created_at",
	}
	reportSort = Sort{
		Columns: map[string]string{
			"created_at":   "created_at",
			"published_at": "published_at",
			"total_spent":  "total_spent",
		},
		Default: "created_at",
	}
	ledgerSort = Sort{
		Columns: map[string]string{"created_at": "created_at"},
		Default: "created_at",
	}
)

// Campaigns lists campaigns. Public listings never show drafts. date_from
// and date_to bound start_date, end_from and end_to bound end_date.
func Campaigns(db *gorm.DB, p Params, public bool, organizerID uint) (Page[models.Campaign], error) {
	if p.Status != "" && !models.CampaignStatus(p.Status).Valid() {
		return Page[models.Campaign]{}, apperr.Field("status", "unknown campaign status")
	}
	q := db.Model(&models.Campaign{}).Scopes(
		Search(p.Search, "title", "description"),
		Equals("status", p.Status),
		ID("organizer_id", organizerID),
		DateRange("start_date", p.DateFrom, p.DateTo),
		DateRange("end_date", p.EndFrom, p.EndTo),
	)
	if public {
		q = q.Where("status <> ?", models.CampaignDraft)
	}
	return Find[models.Campaign](q, p, CampaignsPerPage, campaignSort, "Organizer")
}

// DonationScope picks the vocabulary used for the status filter and the rows
// a donation listing may see.
type DonationScope int

const (
	// AdminDonations sees every donation, status filter in admin words.
	AdminDonations DonationScope = iota
	// CampaignFeed sees the received donations of one campaign.
	CampaignFeed
	// DonorDonations sees one donor's donations, status filter in public words.
	DonorDonations
)

// Donations lists donations. Search covers the guest fields, the note and
// the joined donor's name and email.
func Donations(db *gorm.DB, p Params, scope DonationScope, ownerID uint) (Page[models.Donation], error) {
	q := db.Model(&models.Donation{}).
		Joins("LEFT JOIN users donor ON donor.id = donations.donor_id").
		Scopes(
			Search(p.Search, "donations.donor_name", "donations.donor_email", "donations.note", "donor.name", "donor.email"),
			ID("donations.campaign_id", p.CampaignID),
			AmountRange("donations.amount", p.AmountMin, p.AmountMax),
			DateRange("donations.created_at", p.DateFrom, p.DateTo),
			Bool("donations.is_anonymous", p.Anonymous),
		)

	var status models.DonationStatus
	ok := true
	switch scope {
	case AdminDonations:
		if p.Status != "" {
			status, ok = models.ParseAdminStatus(p.Status)
		}
	case CampaignFeed:
		q = q.Where("donations.campaign_id = ? AND donations.status = ?", ownerID, models.DonationReceived)
	case DonorDonations:
		if p.Status != "" {
			status, ok = models.ParsePublicStatus(p.Status)
		}
		q = q.Where("donations.donor_id = ?", ownerID)
	default:
		return Page[models.Donation]{}, apperr.Forbidden("unknown donation listing")
	}
	if !ok {
		return Page[models.Donation]{}, apperr.Field("status", "unknown donation status")
	}
	if status != "" {
		q = q.Where("donations.status = ?", status)
	}
	return Find[models.Donation](q, p, DonationsPerPage, donationSort, "Campaign", "Donor", "Payment")
}

func Users(db *gorm.DB, p Params) (Page[models.User], error) {
	if p.Role != "" {
		if _, ok := models.ParseRole(p.Role); !ok {
			return Page[models.User]{}, apperr.Field("role", "unknown role")
		}
	}
	q := db.Model(&models.User{}).Scopes(
		Search(p.Search, "name", "email", "student_id"),
		Equals("role", p.Role),
		DateRange("created_at", p.DateFrom, p.DateTo),
	)
	return Find[models.User](q, p, UsersPerPage, userSort)
}

// Payments lists payments. Status filters the payment status and the date
// range applies to paid_at.
func Payments(db *gorm.DB, p Params) (Page[models.Payment], error) {
	if p.Status != "" && !models.PaymentStatus(p.Status).Valid() {
		return Page[models.Payment]{}, apperr.Field("status", "unknown payment status")
	}
	var method models.PaymentMethod
	if p.Method != "" {
		m, ok := models.ParsePaymentMethod(p.Method)
		if !ok {
			return Page[models.Payment]{}, apperr.Field("method", "unknown payment method")
		}
		method = m
	}
	q := db.Model(&models.Payment{}).Scopes(
		Search(p.Search, "reference"),
		Equals("payment_status", p.Status),
		Equals("payment_method", string(method)),
		DateRange("paid_at", p.DateFrom, p.DateTo),
	)
	if p.CampaignID != 0 {
		q = q.Where("donation_id IN (?)", db.Model(&models.Donation{}).Select("id").Where("campaign_id = ?", p.CampaignID))
	}
	return Find[models.Payment](q, p, PaymentsPerPage, paymentSort, "Donation")
}

// Reports lists reports of campaignID, or of every campaign when zero.
// publishedOnly hides reports without a past publication date.
func Reports(db *gorm.DB, p Params, campaignID uint, publishedOnly bool) (Page[models.Report], error) {
	q := db.Model(&models.Report{}).Scopes(
		Search(p.Search, "title", "content"),
		ID("campaign_id", campaignID),
		DateRange("created_at", p.DateFrom, p.DateTo),
	)
	if publishedOnly {
		q = q.Where("published_at IS NOT NULL AND published_at <= ?", time.Now())
	}
	return Find[models.Report](q, p, ReportsPerPage, reportSort, "Author")
}

// LedgerEntries lists the movements of one campaign.
func LedgerEntries(db *gorm.DB, p Params, campaignID uint) (Page[models.LedgerEntry], error) {
	q := db.Model(&models.LedgerEntry{}).Scopes(
		ID("campaign_id", campaignID),
		DateRange("created_at", p.DateFrom, p.DateTo),
	)
	return Find[models.LedgerEntry](q, p, LedgerPerPage, ledgerSort)
}
