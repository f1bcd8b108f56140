package ledger

import (
	"context"
	"errors"
	"time"

	"donamaha/apperr"
	"donamaha/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreatePayment attaches p to its donation. A donation has at most one
// payment. The payment status is cascaded onto the donation.
func CreatePayment(ctx context.Context, db *gorm.DB, p *models.Payment) error {
	if err := validatePayment(p); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := lockDonation(tx, p.DonationID)
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&models.Payment{}).Where("donation_id = ?", d.ID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return apperr.Conflict("donation already has a payment")
		}
		stampPaidAt(p)
		if err := tx.Omit(clause.Associations).Create(p).Error; err != nil {
			return err
		}
		return cascade(tx, d, p.PaymentStatus)
	})
}

// UpdatePayment loads payment id and lets change edit it. Only a change of
// payment status cascades onto the donation. A payment cannot move to
// another donation.
func UpdatePayment(ctx context.Context, db *gorm.DB, id uint, change func(p *models.Payment) error) (*models.Payment, error) {
	var out models.Payment
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payment not found")
		}
		if err != nil {
			return err
		}
		donationID, statusBefore := out.DonationID, out.PaymentStatus
		if err := change(&out); err != nil {
			return err
		}
		if out.ID != id || out.DonationID != donationID {
			return apperr.Field("donation_id", "the donation of a payment cannot be changed")
		}
		if err := validatePayment(&out); err != nil {
			return err
		}
		d, err := lockDonation(tx, donationID)
		if err != nil {
			return err
		}
		stampPaidAt(&out)
		if err := tx.Omit(clause.Associations).Save(&out).Error; err != nil {
			return err
		}
		if out.PaymentStatus == statusBefore {
			return nil
		}
		return cascade(tx, d, out.PaymentStatus)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePayment removes payment id. The donation keeps its status.
func DeletePayment(ctx context.Context, db *gorm.DB, id uint) error {
	res := db.WithContext(ctx).Delete(&models.Payment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("payment not found")
	}
	return nil
}

func cascade(tx *gorm.DB, d *models.Donation, status models.PaymentStatus) error {
	target, ok := status.DonationStatus()
	if !ok || target == d.Status {
		return nil
	}
	campaign, err := lockCampaign(tx, d.CampaignID)
	if err != nil {
		return err
	}
	before := StateOf(d)
	if err := tx.Model(&models.Donation{}).Where("id = ?", d.ID).Update("status", target).Error; err != nil {
		return err
	}
	d.Status = target
	return apply(tx, campaign, &d.ID, Delta(before, StateOf(d)), models.ReasonPayment, datatypes.JSONMap{
		"payment_status": string(status),
		"from_status":    string(before.Status),
		"to_status":      string(target),
	})
}

func stampPaidAt(p *models.Payment) {
	if p.PaymentStatus == models.PaymentCompleted && p.PaidAt == nil {
		t := time.Now()
		p.PaidAt = &t
	}
}

func validatePayment(p *models.Payment) error {
	fields := map[string]string{}
	if p.DonationID == 0 {
		fields["donation_id"] = "donation is required"
	}
	if p.Reference == "" {
		fields["reference"] = "reference is required"
	}
	if _, ok := models.ParsePaymentMethod(string(p.PaymentMethod)); !ok {
		fields["payment_method"] = "invalid payment method"
	}
	if !p.PaymentStatus.Valid() {
		fields["payment_status"] = "invalid payment status"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid payment", fields)
	}
	return nil
}
