package admins

import (
	"errors"
	"net/http"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/lifecycle"
	"donamaha/listing"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"

	"gorm.io/gorm"
)

// GET /v1/admin/users
func GetUsers(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Users(database.DB.WithContext(r.Context()), p)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    listing.Map(page, func(u models.User) views.User { return views.NewUser(ctx, u) }),
	})
}

func findUser(r *http.Request, id uint) (*models.User, error) {
	var user models.User
	err := database.DB.WithContext(r.Context()).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("User tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GET /v1/admin/users/{id}
func GetUserDetail(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	user, err := findUser(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: views.NewUser(r.Context(), *user)})
}

type CreateUserRequest struct {
	Name      string  `json:"name" validate:"required,nameok"`
	Email     string  `json:"email" validate:"required,email,max=191"`
	Password  string  `json:"password" validate:"required,pwdmin"`
	Role      string  `json:"role" validate:"required,oneof=user organizer admin"`
	StudentID *string `json:"student_id,omitempty" validate:"omitempty,max=30"`
}

func emailTaken(r *http.Request, email string, except uint) error {
	var n int64
	if err := database.DB.WithContext(r.Context()).Model(&models.User{}).Where("email = ? AND id <> ?", email, except).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict("Email sudah terdaftar")
	}
	return nil
}

// POST /v1/admin/users
func CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := emailTaken(r, email, 0); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	user := models.User{Name: strings.TrimSpace(req.Name), Email: email, Role: models.Role(req.Role), StudentID: req.StudentID}
	if err := user.SetPassword(req.Password); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := database.DB.WithContext(r.Context()).Create(&user).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "User berhasil dibuat", Data: views.NewUser(r.Context(), user)})
}

type UpdateUserRequest struct {
	Name      *string `json:"name,omitempty" validate:"omitempty,nameok"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email,max=191"`
	Password  *string `json:"password,omitempty" validate:"omitempty,pwdmin"`
	Role      *string `json:"role,omitempty" validate:"omitempty,oneof=user organizer admin"`
	StudentID *string `json:"student_id,omitempty" validate:"omitempty,max=30"`
}

// PUT /v1/admin/users/{id}
func UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	user, err := findUser(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	actor := utils.ActorFrom(r)
	if err := policy.Check(actor, policy.UserUpdate, policy.UserRes{ID: user.ID}); err != nil {
		utils.WriteError(w, r, err)
		return
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if err := emailTaken(r, email, user.ID); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		user.Email = email
	}
	if req.StudentID != nil {
		user.StudentID = nil
		if v := strings.TrimSpace(*req.StudentID); v != "" {
			user.StudentID = &v
		}
	}
	if req.Role != nil && models.Role(*req.Role) != user.Role {
		if err := policy.Check(actor, policy.UserRoleChange, policy.UserRes{ID: user.ID}); err != nil {
			utils.WriteError(w, r, err)
			return
		}
		if user.ID == actor.ID {
			utils.WriteError(w, r, apperr.Forbidden("Tidak dapat mengubah role akun sendiri"))
			return
		}
		user.Role = models.Role(*req.Role)
	}
	if req.Password != nil {
		if err := user.SetPassword(*req.Password); err != nil {
			utils.WriteError(w, r, err)
			return
		}
	}

	if err := database.DB.WithContext(r.Context()).Model(user).
		Select("name", "email", "student_id", "role", "password").
		Updates(user).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User berhasil diperbarui", Data: views.NewUser(r.Context(), *user)})
}

// DELETE /v1/admin/users/{id}
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := policy.Check(utils.ActorFrom(r), policy.UserDelete, policy.UserRes{ID: id}); err != nil {
		utils.WriteError(w, r, apperr.Forbidden("Tidak dapat menghapus akun sendiri"))
		return
	}
	avatar, err := lifecycle.DeleteUser(r.Context(), database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.DeleteImage(r.Context(), avatar)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "User berhasil dihapus"})
}
