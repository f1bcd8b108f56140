// Package ledger is the only code path that changes a campaign's collected
// amount. Every operation runs in one database transaction that locks the
// campaign row, moves the total with an atomic increment and records a
// ledger entry, so the donation write and the total either both land or
// neither does.
package ledger

import (
	"context"
	"errors"
	"log/slog"

	"donamaha/apperr"
	"donamaha/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var movements = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "donamaha_ledger_movements_total",
	Help: "Changes applied to campaign collected amounts, by direction.",
}, []string{"direction"})

// State is the part of a donation that matters to the campaign total.
type State struct {
	Status models.DonationStatus
	Amount int64
}

func StateOf(d *models.Donation) State {
	return State{Status: d.Status, Amount: d.Amount}
}

func (s State) credit() int64 {
	if s.Status.Received() {
		return s.Amount
	}
	return 0
}

// Delta is the change to the campaign total when a donation goes from before
// to after. A new donation has a zero before, a deleted one a zero after.
func Delta(before, after State) int64 {
	return after.credit() - before.credit()
}

// DeleteMode selects how a received donation is treated on delete.
type DeleteMode int

const (
	// DeleteDebit removes the donation and takes its amount off the total.
	DeleteDebit DeleteMode = iota
	// DeleteRejectReceived refuses to delete a received donation.
	DeleteRejectReceived
)

// CreateDonation inserts d, and payment when non-nil, crediting the campaign
// when d is created received.
func CreateDonation(ctx context.Context, db *gorm.DB, d *models.Donation, payment *models.Payment) error {
	if err := validate(d); err != nil {
		return err
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := lockCampaign(tx, d.CampaignID)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(d).Error; err != nil {
			return err
		}
		if payment != nil {
			payment.DonationID = d.ID
			if err := tx.Omit(clause.Associations).Create(payment).Error; err != nil {
				return err
			}
		}
		return apply(tx, campaign, &d.ID, Delta(State{}, StateOf(d)), models.ReasonCreate, nil)
	})
}

// UpdateDonation loads donation id under lock, lets change edit it and
// settles the difference on the campaign. The campaign of a donation cannot
// be changed.
func UpdateDonation(ctx context.Context, db *gorm.DB, id uint, change func(d *models.Donation) error) (*models.Donation, error) {
	var out *models.Donation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := updateDonationTx(tx, id, change, models.ReasonUpdate)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus changes only the status of donation id.
func SetStatus(ctx context.Context, db *gorm.DB, id uint, status models.DonationStatus) (*models.Donation, error) {
	if !status.Valid() {
		return nil, apperr.Field("status", "invalid donation status")
	}
	var out *models.Donation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := updateDonationTx(tx, id, func(d *models.Donation) error {
			d.Status = status
			return nil
		}, models.ReasonStatus)
		out = d
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDonation removes donation id together with its payment.
func DeleteDonation(ctx context.Context, db *gorm.DB, id uint, mode DeleteMode) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := lockDonation(tx, id)
		if err != nil {
			return err
		}
		if mode == DeleteRejectReceived && d.Status.Received() {
			return apperr.Conflict("a received donation cannot be deleted")
		}
		campaign, err := lockCampaign(tx, d.CampaignID)
		if err != nil {
			return err
		}
		if err := tx.Where("donation_id = ?", d.ID).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Donation{}, d.ID).Error; err != nil {
			return err
		}
		return apply(tx, campaign, &d.ID, Delta(StateOf(d), State{}), models.ReasonDelete, datatypes.JSONMap{
			"amount": d.Amount,
		})
	})
}

func updateDonationTx(tx *gorm.DB, id uint, change func(d *models.Donation) error, reason string) (*models.Donation, error) {
	d, err := lockDonation(tx, id)
	if err != nil {
		return nil, err
	}
	before := StateOf(d)
	campaignID := d.CampaignID

	if err := change(d); err != nil {
		return nil, err
	}
	if d.ID != id {
		return nil, apperr.Field("id", "donation id cannot be changed")
	}
	if d.CampaignID != campaignID {
		return nil, apperr.Field("campaign_id", "the campaign of a donation cannot be changed")
	}
	if err := validate(d); err != nil {
		return nil, err
	}

	campaign, err := lockCampaign(tx, campaignID)
	if err != nil {
		return nil, err
	}
	if err := tx.Omit(clause.Associations).Save(d).Error; err != nil {
		return nil, err
	}

	after := StateOf(d)
	var meta datatypes.JSONMap
	if before != after {
		meta = datatypes.JSONMap{
			"from_status": string(before.Status),
			"to_status":   string(after.Status),
			"from_amount": before.Amount,
			"to_amount":   after.Amount,
		}
	}
	if err := apply(tx, campaign, &d.ID, Delta(before, after), reason, meta); err != nil {
		return nil, err
	}
	return d, nil
}

// apply moves the campaign total by delta and writes the ledger entry.
func apply(tx *gorm.DB, campaign *models.Campaign, donationID *uint, delta int64, reason string, meta datatypes.JSONMap) error {
	if delta == 0 {
		return nil
	}
	if campaign.CollectedAmount+delta < 0 {
		return apperr.Integrity("collected amount would become negative", nil)
	}

	res := tx.Model(&models.Campaign{}).
		Where("id = ?", campaign.ID).
		UpdateColumn("collected_amount", gorm.Expr("collected_amount + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.Integrity("campaign disappeared during ledger update", nil)
	}
	campaign.CollectedAmount += delta

	entry := models.LedgerEntry{
		CampaignID:   campaign.ID,
		DonationID:   donationID,
		Delta:        delta,
		BalanceAfter: campaign.CollectedAmount,
		Reason:       reason,
		Meta:         meta,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return err
	}

	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	movements.WithLabelValues(direction).Inc()
	slog.Debug("[ledger] applied", "campaign_id", campaign.ID, "delta", delta, "balance", campaign.CollectedAmount, "reason", reason)
	return nil
}

func lockCampaign(tx *gorm.DB, id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("campaign not found")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func lockDonation(tx *gorm.DB, id uint) (*models.Donation, error) {
	var d models.Donation
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("donation not found")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func validate(d *models.Donation) error {
	fields := map[string]string{}
	if d.CampaignID == 0 {
		fields["campaign_id"] = "campaign is required"
	}
	if d.Amount < models.MinDonationAmount {
		fields["amount"] = "amount is below the minimum donation"
	}
	if !d.Status.Valid() {
		fields["status"] = "invalid donation status"
	}
	if d.DonorID != nil && (d.DonorName != nil || d.DonorEmail != nil) {
		fields["donor_id"] = "a registered donor cannot carry guest details"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid donation", fields)
	}
	return nil
}
