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

// GET /v1/admin/payments
func GetPayments(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Payments(database.DB.WithContext(r.Context()), p)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: listing.Map(page, views.NewPayment)})
}

func writePayment(w http.ResponseWriter, r *http.Request, status int, msg string, id uint) {
	var p models.Payment
	err := database.DB.WithContext(r.Context()).Preload("Donation").First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, apperr.NotFound("Pembayaran tidak ditemukan"))
		return
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, status, utils.APIResponse{Success: true, Message: msg, Data: views.NewPayment(p)})
}

// GET /v1/admin/payments/{id}
func GetPaymentDetail(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writePayment(w, r, http.StatusOK, "Successfully", id)
}

type CreatePaymentRequest struct {
	DonationID uint `json:"donation_id" validate:"required"`
	DonationPaymentRequest
}

// POST /v1/admin/payments
//
// The payment status drives the donation: completed marks it received,
// refunded and cancelled cancel it, failed fails it.
func CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	p, err := paymentFromRequest(&req.DonationPaymentRequest)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p.DonationID = req.DonationID
	if err := ledger.CreatePayment(r.Context(), database.DB, p); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writePayment(w, r, http.StatusCreated, "Pembayaran berhasil dibuat", p.ID)
}

type UpdatePaymentRequest struct {
	DonationID    *uint      `json:"donation_id,omitempty"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	PaymentStatus *string    `json:"payment_status,omitempty"`
	Reference     *string    `json:"reference,omitempty" validate:"omitempty,max=64"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// PUT /v1/admin/payments/{id}
func UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req UpdatePaymentRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	_, err = ledger.UpdatePayment(r.Context(), database.DB, id, func(p *models.Payment) error {
		if req.DonationID != nil {
			p.DonationID = *req.DonationID
		}
		if req.PaymentMethod != nil {
			method, ok := models.ParsePaymentMethod(*req.PaymentMethod)
			if !ok {
				return apperr.Field("payment_method", "Metode pembayaran tidak valid")
			}
			p.PaymentMethod = method
		}
		if req.PaymentStatus != nil {
			p.PaymentStatus = models.PaymentStatus(strings.ToLower(strings.TrimSpace(*req.PaymentStatus)))
		}
		if req.Reference != nil {
			p.Reference = strings.TrimSpace(*req.Reference)
		}
		if req.PaidAt != nil {
			p.PaidAt = req.PaidAt
		}
		return nil
	})
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	writePayment(w, r, http.StatusOK, "Pembayaran berhasil diperbarui", id)
}

// DELETE /v1/admin/payments/{id}
func DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := ledger.DeletePayment(r.Context(), database.DB, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Pembayaran berhasil dihapus"})
}
