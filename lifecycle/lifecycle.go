// Package lifecycle removes campaigns and users together with what hangs off
// them. Neither operation moves a campaign total: both refuse to run while
// received donations would be affected.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"

	"donamaha/apperr"
	"donamaha/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeleteCampaign removes campaign id with its pending, failed and cancelled
// donations, their payments and the campaign's reports. It returns the image
// keys that were referenced so the caller can drop the blobs after commit.
// A campaign with received donations cannot be deleted.
func DeleteCampaign(ctx context.Context, db *gorm.DB, id uint) ([]string, error) {
	var images []string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Campaign
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("Kampanye tidak ditemukan")
		}
		if err != nil {
			return err
		}

		var received int64
		if err := tx.Model(&models.Donation{}).
			Where("campaign_id = ? AND status = ?", id, models.DonationReceived).
			Count(&received).Error; err != nil {
			return err
		}
		if received > 0 || c.CollectedAmount != 0 {
			return apperr.Conflict("Kampanye yang sudah menerima donasi tidak dapat dihapus")
		}

		donationIDs := tx.Model(&models.Donation{}).Select("id").Where("campaign_id = ?", id)
		if err := tx.Where("donation_id IN (?)", donationIDs).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.Donation{}).Error; err != nil {
			return err
		}

		var reportImages []string
		if err := tx.Model(&models.Report{}).Where("campaign_id = ? AND image IS NOT NULL", id).Pluck("image", &reportImages).Error; err != nil {
			return err
		}
		if err := tx.Where("campaign_id = ?", id).Delete(&models.Report{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Campaign{}, id).Error; err != nil {
			return err
		}

		images = append(images, reportImages...)
		if c.Image != nil && *c.Image != "" {
			images = append(images, *c.Image)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("[lifecycle] campaign deleted", "campaign_id", id)
	return images, nil
}

// DeleteUser removes user id. A user who still organizes campaigns or has
// authored reports cannot be deleted. Their donations stay and become guest
// donations under the user's name and email. It returns the avatar key, if
// any.
func DeleteUser(ctx context.Context, db *gorm.DB, id uint) (*string, error) {
	var avatar *string
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&u, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("User tidak ditemukan")
		}
		if err != nil {
			return err
		}

		var campaigns, reports int64
		if err := tx.Model(&models.Campaign{}).Where("organizer_id = ?", id).Count(&campaigns).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("author_id = ?", id).Count(&reports).Error; err != nil {
			return err
		}
		if campaigns > 0 || reports > 0 {
			return apperr.Conflict("User masih memiliki kampanye atau laporan")
		}

		name, email := u.Name, u.Email
		if err := tx.Model(&models.Donation{}).Where("donor_id = ?", id).Updates(map[string]interface{}{
			"donor_id":    nil,
			"donor_name":  name,
			"donor_email": email,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.User{}, id).Error; err != nil {
			return err
		}
		avatar = u.Avatar
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("[lifecycle] user deleted", "user_id", id)
	return avatar, nil
}
