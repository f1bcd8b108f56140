package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// issueTokens creates an access token and a stored refresh token for user.
func issueTokens(r *http.Request, user models.User) (map[string]interface{}, error) {
	access, exp, err := utils.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.GenerateRefreshToken(database.DB.WithContext(r.Context()), user.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"access_token":  access,
		"access_expire": exp.UTC().Format(time.RFC3339),
		"refresh_token": refresh,
	}, nil
}

func login(w http.ResponseWriter, r *http.Request, adminOnly bool) {
	var req LoginRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	ctx := r.Context()

	var user models.User
	err := database.DB.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Email atau password salah"})
		return
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	if locked, retry := middleware.IsAccountLocked(ctx, user.ID); locked {
		utils.WriteJSON(w, http.StatusTooManyRequests, utils.APIResponse{
			Success: false,
			Message: "Terlalu banyak percobaan login. Coba lagi nanti.",
			Data:    map[string]interface{}{"retry_after_seconds": int(retry.Seconds())},
		})
		return
	}

	if !user.ValidatePassword(req.Password) {
		middleware.RecordFailedLogin(ctx, user.ID)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Email atau password salah"})
		return
	}
	if adminOnly && user.Role != models.RoleAdmin {
		middleware.RecordFailedLogin(ctx, user.ID)
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Email atau password salah"})
		return
	}
	middleware.ResetFailedLogin(ctx, user.ID)

	tokens, err := issueTokens(r, user)
	if err != nil {
		slog.Error("[auth] issue tokens", "user_id", user.ID, "error", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Gagal login"})
		return
	}
	tokens["user"] = views.NewUser(ctx, user)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Login berhasil",
		Data:    tokens,
	})
}

// POST /v1/login
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	login(w, r, false)
}

// POST /v1/admin/login
func AdminLoginHandler(w http.ResponseWriter, r *http.Request) {
	login(w, r, true)
}
