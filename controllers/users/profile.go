package users

import (
	"net/http"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/forms"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"
)

type profileInput struct {
	Name      string  `form:"name" validate:"required,nameok"`
	Email     string  `form:"email" validate:"required,email,max=191"`
	StudentID *string `form:"student_id" validate:"omitempty,max=30"`
}

// PUT /v1/users/profile
//
// Multipart or urlencoded. An avatar file replaces the stored one; role
// cannot be changed here.
func UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user, err := currentUser(r)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	actor := utils.ActorFrom(r)
	if err := policy.Check(actor, policy.UserUpdate, policy.UserRes{ID: user.ID}); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if forms.Has(r, "role") && models.Role(strings.TrimSpace(r.Form.Get("role"))) != user.Role {
		utils.WriteError(w, r, apperr.Forbidden("Role tidak dapat diubah"))
		return
	}

	in := profileInput{Name: user.Name, Email: user.Email, StudentID: user.StudentID}
	if forms.Has(r, "name") {
		in.Name = strings.TrimSpace(r.Form.Get("name"))
	}
	if forms.Has(r, "email") {
		in.Email = strings.ToLower(strings.TrimSpace(r.Form.Get("email")))
	}
	if forms.Has(r, "student_id") {
		in.StudentID = nil
		if v := strings.TrimSpace(r.Form.Get("student_id")); v != "" {
			in.StudentID = &v
		}
	}
	if err := utils.ValidateStruct(in); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	db := database.DB.WithContext(r.Context())
	if in.Email != user.Email {
		var taken int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", in.Email, user.ID).Count(&taken).Error; err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if taken > 0 {
			utils.WriteError(w, r, apperr.Conflict("Email sudah terdaftar"))
			return
		}
	}

	avatar, err := forms.Image(r, "avatar", "avatars")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	old := user.Avatar
	user.Name, user.Email, user.StudentID = in.Name, in.Email, in.StudentID
	if avatar != nil {
		user.Avatar = avatar
	}
	if err := db.Save(user).Error; err != nil {
		utils.DeleteImage(r.Context(), avatar)
		utils.WriteError(w, r, err)
		return
	}
	if avatar != nil {
		utils.DeleteImage(r.Context(), old)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Profil berhasil diperbarui",
		Data:    views.NewUser(r.Context(), *user),
	})
}
