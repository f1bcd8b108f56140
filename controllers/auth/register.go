package auth

import (
	"net/http"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"
)

type RegisterRequest struct {
	Name                 string  `json:"name" validate:"required,nameok"`
	Email                string  `json:"email" validate:"required,email,max=191"`
	Password             string  `json:"password" validate:"required,pwdmin"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"required,eqfield=Password"`
	StudentID            *string `json:"student_id,omitempty" validate:"omitempty,max=30"`
	AsOrganizer          bool    `json:"as_organizer"`
}

// POST /v1/register
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	db := database.DB.WithContext(r.Context())
	var taken int64
	if err := db.Model(&models.User{}).Where("email = ?", req.Email).Count(&taken).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if taken > 0 {
		utils.WriteError(w, r, apperr.Conflict("Email sudah terdaftar"))
		return
	}

	user := models.User{Name: req.Name, Email: req.Email, StudentID: req.StudentID, Role: models.RoleUser}
	if req.AsOrganizer {
		user.Role = models.RoleOrganizer
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := db.Create(&user).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}

	tokens, err := issueTokens(r, user)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Gagal membuat sesi"})
		return
	}
	tokens["user"] = views.NewUser(r.Context(), user)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Registrasi berhasil",
		Data:    tokens,
	})
}
