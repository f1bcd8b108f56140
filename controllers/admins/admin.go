package admins

import (
	"errors"
	"net/http"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

func currentAdmin(r *http.Request) (*models.User, error) {
	uid, _ := utils.GetUserID(r)
	var admin models.User
	err := database.DB.WithContext(r.Context()).First(&admin, uid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Admin tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// GET /v1/admin/profile
func GetAdminProfile(w http.ResponseWriter, r *http.Request) {
	admin, err := currentAdmin(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    views.NewUser(r.Context(), *admin),
	})
}

type UpdateAdminProfileRequest struct {
	Name            string `json:"name" validate:"required,nameok"`
	Email           string `json:"email" validate:"required,email,max=191"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password,omitempty" validate:"omitempty,pwdmin"`
}

// PUT /v1/admin/profile
func UpdateAdminProfile(w http.ResponseWriter, r *http.Request) {
	var req UpdateAdminProfileRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	admin, err := currentAdmin(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	db := database.DB.WithContext(r.Context())

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != admin.Email {
		var taken int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, admin.ID).Count(&taken).Error; err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if taken > 0 {
			utils.WriteError(w, r, apperr.Conflict("Email sudah terdaftar"))
			return
		}
	}
	admin.Name = strings.TrimSpace(req.Name)
	admin.Email = email
	if req.NewPassword != "" {
		if !admin.ValidatePassword(req.CurrentPassword) {
			utils.WriteError(w, r, apperr.Field("current_password", "Kata sandi saat ini tidak cocok"))
			return
		}
		if err := admin.SetPassword(req.NewPassword); err != nil {
			utils.WriteError(w, r, err)
			return
		}
	}
	if err := db.Model(admin).Select("name", "email", "password").Updates(admin).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Profil berhasil diperbarui",
		Data:    views.NewUser(r.Context(), *admin),
	})
}
