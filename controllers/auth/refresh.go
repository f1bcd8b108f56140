package auth

import (
	"errors"
	"net/http"
	"time"

	"donamaha/database"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshHandler exchanges a valid refresh token for a new access token and
// a rotated refresh token. The old refresh token is revoked in the same
// transaction that stores the new one.
func RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	var (
		user    models.User
		rotated string
	)
	err := database.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		rt, err := utils.ValidateRefreshToken(tx, req.RefreshToken)
		if err != nil {
			return err
		}
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", rt.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ErrTokenRevoked
		}
		if err := tx.First(&user, rt.UserID).Error; err != nil {
			return err
		}
		rotated, err = utils.GenerateRefreshToken(tx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, utils.ErrTokenRevoked) || errors.Is(err, utils.ErrTokenExpired) {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Invalid refresh token"})
			return
		}
		utils.WriteError(w, r, err)
		return
	}

	access, exp, err := utils.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"access_token":  access,
			"access_expire": exp.UTC().Format(time.RFC3339),
			"refresh_token": rotated,
		},
	})
}
