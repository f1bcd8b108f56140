package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/ledger"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"

	"gorm.io/gorm"
)

type CreateDonationRequest struct {
	CampaignID    uint    `json:"campaign_id" validate:"required"`
	Amount        int64   `json:"amount" validate:"required,gte=1000"`
	Note          *string `json:"note,omitempty" validate:"omitempty,max=1000"`
	DonorName     *string `json:"donor_name,omitempty" validate:"omitempty,nameok"`
	DonorEmail    *string `json:"donor_email,omitempty" validate:"omitempty,email,max=191"`
	IsAnonymous   bool    `json:"is_anonymous"`
	PaymentMethod string  `json:"payment_method,omitempty"`
}

// POST /v1/donations
//
// Guests and signed-in users donate to active campaigns inside their date
// window. The donation starts pending; a chosen payment method opens a
// pending payment alongside it.
func CreateDonation(w http.ResponseWriter, r *http.Request) {
	var req CreateDonationRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	ctx := r.Context()
	actor := utils.ActorFrom(r)

	var campaign models.Campaign
	err := database.DB.WithContext(ctx).First(&campaign, req.CampaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, apperr.NotFound("Kampanye tidak ditemukan"))
		return
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := policy.Check(actor, policy.DonationCreate, policy.ForCampaign(&campaign)); err != nil {
		utils.WriteError(w, r, apperr.Forbidden("Kampanye tidak sedang menerima donasi"))
		return
	}
	if !campaign.OpenOn(time.Now()) {
		utils.WriteError(w, r, apperr.Field("campaign_id", "Kampanye berada di luar periode donasi"))
		return
	}

	d := models.Donation{
		CampaignID:  campaign.ID,
		Amount:      req.Amount,
		Status:      models.DonationPending,
		Note:        trimmed(req.Note),
		IsAnonymous: req.IsAnonymous,
	}
	if actor.IsGuest() {
		fields := map[string]string{}
		d.DonorName = trimmed(req.DonorName)
		d.DonorEmail = trimmed(req.DonorEmail)
		if d.DonorName == nil {
			fields["donor_name"] = "donor_name wajib diisi"
		}
		if d.DonorEmail == nil {
			fields["donor_email"] = "donor_email wajib diisi"
		}
		if len(fields) > 0 {
			utils.WriteError(w, r, apperr.Validation("Data tidak valid", fields))
			return
		}
	} else {
		id := actor.ID
		d.AssignDonor(&id)
	}

	var payment *models.Payment
	if req.PaymentMethod != "" {
		method, ok := models.ParsePaymentMethod(req.PaymentMethod)
		if !ok {
			utils.WriteError(w, r, apperr.Field("payment_method", "Metode pembayaran tidak valid"))
			return
		}
		payment = &models.Payment{
			Reference:     utils.GenerateReference("DON"),
			PaymentMethod: method,
			PaymentStatus: models.PaymentPending,
		}
	}

	if err := ledger.CreateDonation(ctx, database.DB, &d, payment); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	d.Campaign = &campaign
	d.Payment = payment
	slog.Info("[donations] created", "donation_id", d.ID, "campaign_id", d.CampaignID, "guest", actor.IsGuest())

	redirect := fmt.Sprintf("/v1/campaigns/%d", campaign.ID)
	if !actor.IsGuest() {
		redirect = fmt.Sprintf("/v1/donations/%d", d.ID)
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Donasi berhasil dibuat",
		Data: map[string]interface{}{
			"donation": views.OwnDonation(d),
			"redirect": redirect,
		},
	})
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// loadDonation loads donation id with its campaign and payment and checks
// action against it.
func loadDonation(r *http.Request, id uint, action policy.Action) (*models.Donation, error) {
	var d models.Donation
	err := database.DB.WithContext(r.Context()).Preload("Campaign").Preload("Donor").Preload("Payment").First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Donasi tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if d.Campaign == nil {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	if err := policy.Check(utils.ActorFrom(r), action, policy.ForDonation(&d, d.Campaign)); err != nil {
		return nil, err
	}
	return &d, nil
}

// GET /v1/donations/{id}
func GetDonation(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	d, err := loadDonation(r, id, policy.DonationView)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: views.OwnDonation(*d)})
}

type DonationStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// parseAnyStatus accepts both the public and the back-office status words.
// No word means different states in the two vocabularies.
func parseAnyStatus(s string) (models.DonationStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if st, ok := models.ParsePublicStatus(s); ok {
		return st, true
	}
	return models.ParseAdminStatus(s)
}

// PATCH|PUT /v1/donations/{id}
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
	status, ok := parseAnyStatus(req.Status)
	if !ok {
		utils.WriteError(w, r, apperr.Field("status", "Status donasi tidak valid"))
		return
	}
	if _, err := loadDonation(r, id, policy.DonationStatusChange); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	d, err := ledger.SetStatus(r.Context(), database.DB, id, status)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Status donasi berhasil diperbarui",
		Data:    views.OwnDonation(*d),
	})
}

// DELETE /v1/donations/{id}
func DeleteDonation(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := loadDonation(r, id, policy.DonationDelete); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := ledger.DeleteDonation(r.Context(), database.DB, id, ledger.DeleteRejectReceived); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			utils.WriteError(w, r, apperr.Conflict("Donasi yang sudah diterima tidak dapat dihapus"))
			return
		}
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Donasi berhasil dihapus"})
}
