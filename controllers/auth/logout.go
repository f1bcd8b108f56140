package auth

import (
	"log/slog"
	"net/http"
	"time"

	"donamaha/database"
	"donamaha/middleware"
	"donamaha/models"
	"donamaha/utils"
)

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func revokeCurrentAccess(r *http.Request) {
	claims, ok := utils.GetClaims(r)
	if !ok {
		return
	}
	if err := utils.RevokeJTI(r.Context(), claims.JTI, time.Until(claims.ExpiresAt)); err != nil {
		slog.Warn("[auth] revoke access token", "user_id", claims.UserID, "error", err)
	}
}

// LogoutHandler revokes the given refresh token of the caller and the access
// token the request was made with.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	var req LogoutRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	revokeCurrentAccess(r)

	// unknown tokens answer the same as known ones
	if err := database.DB.WithContext(r.Context()).Model(&models.RefreshToken{}).
		Where("id = ? AND user_id = ?", req.RefreshToken, uid).
		Update("revoked", true).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Logged out"})
}

// LogoutAllHandler revokes every refresh token of the caller.
func LogoutAllHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	revokeCurrentAccess(r)

	if err := database.DB.WithContext(r.Context()).Model(&models.RefreshToken{}).
		Where("user_id = ?", uid).
		Update("revoked", true).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "All sessions revoked"})
}
