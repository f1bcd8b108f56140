package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"donamaha/database"
	"donamaha/models"
	"donamaha/utils"
)

func bearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	return tok, tok != ""
}

func withClaims(r *http.Request, c *utils.AccessClaims) *http.Request {
	ctx := context.WithValue(r.Context(), utils.UserIDKey, c.UserID)
	ctx = context.WithValue(ctx, utils.UserRoleKey, c.Role)
	ctx = context.WithValue(ctx, utils.TokenClaimsKey, c)
	return r.WithContext(ctx)
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "Invalid token"
	switch {
	case err == nil:
		msg = "Unauthorized"
	case errors.Is(err, utils.ErrTokenExpired):
		msg = "Sesi anda telah habis, silahkan login kembali."
	}
	utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: msg})
}

// currentRole swaps the token's role for the one stored on the user row, so
// role changes apply to tokens already issued.
func currentRole(r *http.Request, claims *utils.AccessClaims) (*utils.AccessClaims, bool) {
	var u models.User
	if err := database.DB.WithContext(r.Context()).Select("id", "role").First(&u, claims.UserID).Error; err != nil {
		return nil, false
	}
	c := *claims
	c.Role = u.Role
	return &c, true
}

// AuthMiddleware requires a valid access token of any role.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			unauthorized(w, nil)
			return
		}
		claims, err := utils.ValidateAccessToken(r.Context(), tok)
		if err != nil {
			unauthorized(w, err)
			return
		}
		claims, ok = currentRole(r, claims)
		if !ok {
			unauthorized(w, nil)
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// OptionalAuthMiddleware lets guests through. A token, when sent, must be valid.
func OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := utils.ValidateAccessToken(r.Context(), tok)
		if err != nil {
			unauthorized(w, err)
			return
		}
		claims, ok = currentRole(r, claims)
		if !ok {
			unauthorized(w, nil)
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// AdminAuthMiddleware requires an admin token whose user still exists with
// the admin role.
func AdminAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized: No token provided"})
			return
		}
		claims, err := utils.ValidateAccessToken(r.Context(), tok)
		if err != nil {
			unauthorized(w, err)
			return
		}
		if claims.Role != models.RoleAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Forbidden: Admin access required"})
			return
		}

		var admin models.User
		if err := database.DB.WithContext(r.Context()).Select("id", "role").First(&admin, claims.UserID).Error; err != nil {
			utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized: Admin not found"})
			return
		}
		if admin.Role != models.RoleAdmin {
			utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Forbidden"})
			return
		}
		next.ServeHTTP(w, withClaims(r, claims))
	})
}
