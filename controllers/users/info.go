package users

import (
	"errors"
	"net/http"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

func currentUser(r *http.Request) (*models.User, error) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		return nil, apperr.Forbidden("Unauthorized")
	}
	var user models.User
	err := database.DB.WithContext(r.Context()).First(&user, uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GET /v1/users/info
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	db := database.DB.WithContext(r.Context())

	var stats struct {
		Count int64
		Total int64
	}
	if err := db.Model(&models.Donation{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount),0) AS total").
		Where("donor_id = ? AND status = ?", user.ID, models.DonationReceived).
		Scan(&stats).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	data := map[string]interface{}{
		"user":            views.NewUser(r.Context(), *user),
		"donation_count":  stats.Count,
		"total_donated":   stats.Total,
		"campaign_count":  int64(0),
		"collected_total": int64(0),
	}
	if user.Role == models.RoleOrganizer || user.Role == models.RoleAdmin {
		var owned struct {
			Count int64
			Total int64
		}
		if err := db.Model(&models.Campaign{}).
			Select("COUNT(*) AS count, COALESCE(SUM(collected_amount),0) AS total").
			Where("organizer_id = ?", user.ID).
			Scan(&owned).Error; err != nil {
			utils.WriteError(w, r, err)
			return
		}
		data["campaign_count"] = owned.Count
		data["collected_total"] = owned.Total
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: data})
}
