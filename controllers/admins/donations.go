package admins

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/ledger"
	"donamaha/listing"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

// GET /v1/admin/donations
func GetDonations(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Donations(database.DB.WithContext(r.Context()), p, listing.AdminDonations, 0)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: listing.Map(page, views.AdminDonation)})
}

func findDonation(r *http.Request, id uint) (*models.Donation, error) {
	var d models.Donation
	err := database.DB.WithContext(r.Context()).Preload("Campaign").Preload("Donor").Preload("Payment").First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Donasi tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func writeDonation(w http.ResponseWriter, r *http.Request, status int, msg string, id uint) {
	d, err := findDonation(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, status, utils.APIResponse{Success: true, Message: msg, Data: views.AdminDonation(*d)})
}

// GET /v1/admin/donations/{id}
func GetDonationDetail(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeDonation(w, r, http.StatusOK, "Successfully", id)
}

type DonationPaymentRequest struct {
	PaymentMethod string     `json:"payment_method" validate:"required"`
	PaymentStatus string     `json:"payment_status" validate:"required"`
	Reference     string     `json:"reference,omitempty" validate:"omitempty,max=64"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

type CreateDonationRequest struct {
	CampaignID  uint                    `json:"campaign_id" validate:"required"`
	DonorID     *uint                   `json:"donor_id,omitempty"`
	DonorName   *string                 `json:"donor_name,omitempty" validate:"omitempty,nameok"`
	DonorEmail  *string                 `json:"donor_email,omitempty" validate:"omitempty,email,max=191"`
	Amount      int64                   `json:"amount" validate:"required,gte=1000"`
	Status      string                  `json:"status" validate:"required"`
	Note        *string                 `json:"note,omitempty" validate:"omitempty,max=1000"`
	IsAnonymous bool                    `json:"is_anonymous"`
	Payment     *DonationPaymentRequest `json:"payment,omitempty"`
}

func adminStatus(s string) (models.DonationStatus, error) {
	st, ok := models.ParseAdminStatus(strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return "", apperr.Field("status", "Status harus salah satu dari: pending completed failed cancelled")
	}
	return st, nil
}

func donorExists(r *http.Request, id *uint) error {
	if id == nil {
		return nil
	}
	var n int64
	if err := database.DB.WithContext(r.Context()).Model(&models.User{}).Where("id = ?", *id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return apperr.Field("donor_id", "Donatur tidak ditemukan")
	}
	return nil
}

func paymentFromRequest(req *DonationPaymentRequest) (*models.Payment, error) {
	if req == nil {
		return nil, nil
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return nil, apperr.Field("payment_method", "Metode pembayaran tidak valid")
	}
	status := models.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus)))
	if !status.Valid() {
		return nil, apperr.Field("payment_status", "Status pembayaran tidak valid")
	}
	p := &models.Payment{Reference: strings.TrimSpace(req.Reference), PaymentMethod: method, PaymentStatus: status, PaidAt: req.PaidAt}
	if p.Reference == "" {
		p.Reference = utils.GenerateReference("PAY")
	}
	if status == models.PaymentCompleted && p.PaidAt == nil {
		now := time.Now()
		p.PaidAt = &now
	}
	return p, nil
}

// POST /v1/admin/donations
//
// An attached payment whose status settles the donation overrides the
// requested donation status.
func CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	status, err := adminStatus(req.Status)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := donorExists(r, req.DonorID); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	payment, err := paymentFromRequest(req.Payment)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	d := models.Donation{
		CampaignID:  req.CampaignID,
		Amount:      req.Amount,
		Status:      status,
		Note:        req.Note,
		DonorName:   req.DonorName,
		DonorEmail:  req.DonorEmail,
		IsAnonymous: req.IsAnonymous,
	}
	d.AssignDonor(req.DonorID)
	if payment != nil {
		if settled, ok := payment.PaymentStatus.DonationStatus(); ok {
			d.Status = settled
		}
	}
	if err := ledger.CreateDonation(r.Context(), database.DB, &d, payment); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeDonation(w, r, http.StatusCreated, "Donasi berhasil dibuat", d.ID)
}

type UpdateDonationRequest struct {
	CampaignID  *uint   `json:"campaign_id,omitempty"`
	DonorID     *uint   `json:"donor_id,omitempty"`
	ClearDonor  bool    `json:"clear_donor,omitempty"`
	DonorName   *string `json:"donor_name,omitempty" validate:"omitempty,nameok"`
	DonorEmail  *string `json:"donor_email,omitempty" validate:"omitempty,email,max=191"`
	Amount      *int64  `json:"amount,omitempty" validate:"omitempty,gte=1000"`
	Status      *string `json:"status,omitempty"`
	Note        *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	IsAnonymous *bool   `json:"is_anonymous,omitempty"`
}

// PUT /v1/admin/donations/{id}
func UpdateDonation(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req UpdateDonationRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	var status models.DonationStatus
	if req.Status != nil {
		if status, err = adminStatus(*req.Status); err != nil {
			utils.WriteError(w, r, err)
			return
		}
	}
	if err := donorExists(r, req.DonorID); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	_, err = ledger.UpdateDonation(r.Context(), database.DB, id, func(d *models.Donation) error {
		if req.CampaignID != nil {
			d.CampaignID = *req.CampaignID
		}
		if req.Amount != nil {
			d.Amount = *req.Amount
		}
		if status != "" {
			d.Status = status
		}
		if req.Note != nil {
			d.Note = req.Note
		}
		if req.IsAnonymous != nil {
			d.IsAnonymous = *req.IsAnonymous
		}
		if req.ClearDonor {
			d.AssignDonor(nil)
		}
		if req.DonorName != nil {
			d.DonorName = req.DonorName
		}
		if req.DonorEmail != nil {
			d.DonorEmail = req.DonorEmail
		}
		if req.DonorID != nil {
			d.AssignDonor(req.DonorID)
		}
		return nil
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeDonation(w, r, http.StatusOK, "Donasi berhasil diperbarui", id)
}

type DonationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PUT /v1/admin/donations/{id}/status
func UpdateDonationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req DonationStatusRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	status, err := adminStatus(req.Status)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := ledger.SetStatus(r.Context(), database.DB, id, status); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writeDonation(w, r, http.StatusOK, "Status donasi berhasil diperbarui", id)
}

// DELETE /v1/admin/donations/{id}
//
// A received donation is removed and its amount taken off the campaign.
func DeleteDonation(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := ledger.DeleteDonation(r.Context(), database.DB, id, ledger.DeleteDebit); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Donasi berhasil dihapus"})
}
