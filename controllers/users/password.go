package users

import (
	"net/http"

	"donamaha/database"
	"donamaha/middleware"
	"donamaha/utils"
)

type ChangePasswordRequest struct {
	CurrentPassword      string `json:"current_password" validate:"required"`
	Password             string `json:"password" validate:"required,pwdmin"`
	ConfirmationPassword string `json:"confirmation_password" validate:"required,eqfield=Password"`
}

// PUT /v1/users/password
func ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if !user.ValidatePassword(req.CurrentPassword) {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Kata sandi saat ini tidak cocok"})
		return
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := database.DB.WithContext(r.Context()).Model(user).Update("password", user.Password).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Kata sandi berhasil diubah"})
}
