package ledger

import (
	"context"
	"log/slog"

	"donamaha/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Reconciliation compares a stored campaign total with the sum of its
// received donations.
type Reconciliation struct {
	CampaignID uint  `json:"campaign_id"`
	Stored     int64 `json:"stored"`
	Expected   int64 `json:"expected"`
	Drift      int64 `json:"drift"`
	Fixed      bool  `json:"fixed"`
}

// Recalculate recomputes the collected amount of a campaign from its
// received donations. With fix set, a drifting total is overwritten and a
// reconcile entry is written.
func Recalculate(ctx context.Context, db *gorm.DB, campaignID uint, fix bool) (Reconciliation, error) {
	var rec Reconciliation
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		campaign, err := lockCampaign(tx, campaignID)
		if err != nil {
			return err
		}
		expected, err := receivedSum(tx, campaignID)
		if err != nil {
			return err
		}
		rec = Reconciliation{
			CampaignID: campaignID,
			Stored:     campaign.CollectedAmount,
			Expected:   expected,
			Drift:      campaign.CollectedAmount - expected,
		}
		if rec.Drift == 0 || !fix {
			return nil
		}
		slog.Warn("[ledger] fixing drift", "campaign_id", campaignID, "stored", rec.Stored, "expected", rec.Expected)
		if err := apply(tx, campaign, nil, -rec.Drift, models.ReasonReconcile, datatypes.JSONMap{
			"stored": rec.Stored,
		}); err != nil {
			return err
		}
		rec.Fixed = true
		return nil
	})
	return rec, err
}

// RecalculateAll runs Recalculate over every campaign.
func RecalculateAll(ctx context.Context, db *gorm.DB, fix bool) ([]Reconciliation, error) {
	var ids []uint
	if err := db.WithContext(ctx).Model(&models.Campaign{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	out := make([]Reconciliation, 0, len(ids))
	for _, id := range ids {
		rec, err := Recalculate(ctx, db, id, fix)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func receivedSum(tx *gorm.DB, campaignID uint) (int64, error) {
	var sum int64
	err := tx.Model(&models.Donation{}).
		Where("campaign_id = ? AND status = ?", campaignID, models.DonationReceived).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
