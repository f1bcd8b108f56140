package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"donamaha/database/dbtest"
	"donamaha/models"
	"donamaha/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func whoAmI() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := utils.ActorFrom(r)
		w.Header().Set("X-Actor-Role", string(a.Role))
		w.WriteHeader(http.StatusOK)
	})
}

func token(t *testing.T, id uint, role models.Role) string {
	t.Helper()
	tok, _, err := utils.GenerateAccessToken(id, role)
	require.NoError(t, err)
	return tok
}

func serve(h http.Handler, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := dbtest.New(t)
	org := models.User{Name: "Organizer", Email: "org@example.com", Password: "x", Role: models.RoleOrganizer}
	require.NoError(t, db.Create(&org).Error)
	h := AuthMiddleware(whoAmI())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, "garbage").Code)

	rec := serve(h, token(t, org.ID, models.RoleOrganizer))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "organizer", rec.Header().Get("X-Actor-Role"))

	assert.Equal(t, http.StatusUnauthorized, serve(h, token(t, 9999, models.RoleOrganizer)).Code)
}

func TestAuthMiddlewareUsesStoredRole(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := dbtest.New(t)
	org := models.User{Name: "Organizer", Email: "org@example.com", Password: "x", Role: models.RoleOrganizer}
	require.NoError(t, db.Create(&org).Error)
	tok := token(t, org.ID, models.RoleOrganizer)

	require.NoError(t, db.Model(&org).Update("role", models.RoleUser).Error)

	for name, h := range map[string]http.Handler{
		"required": AuthMiddleware(whoAmI()),
		"optional": OptionalAuthMiddleware(whoAmI()),
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(h, tok)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "user", rec.Header().Get("X-Actor-Role"))
		})
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	dbtest.New(t)
	tok, _, err := utils.GenerateAccessTokenWithExpiry(7, models.RoleUser, -time.Minute)
	require.NoError(t, err)

	rec := serve(AuthMiddleware(whoAmI()), tok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Sesi anda telah habis")
}

func TestAuthMiddlewareRevokedToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	dbtest.New(t)
	tok := token(t, 7, models.RoleUser)
	claims, err := utils.ValidateAccessToken(context.Background(), tok)
	require.NoError(t, err)
	require.NoError(t, utils.RevokeJTI(context.Background(), claims.JTI, time.Hour))

	assert.Equal(t, http.StatusUnauthorized, serve(AuthMiddleware(whoAmI()), tok).Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := dbtest.New(t)
	donor := models.User{Name: "Donor", Email: "donor@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&donor).Error)
	h := OptionalAuthMiddleware(whoAmI())

	rec := serve(h, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Actor-Role"))

	rec = serve(h, token(t, donor.ID, models.RoleUser))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user", rec.Header().Get("X-Actor-Role"))

	assert.Equal(t, http.StatusUnauthorized, serve(h, "not-a-jwt").Code)
}

func TestAdminAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := dbtest.New(t)
	admin := models.User{Name: "Admin", Email: "admin@example.com", Password: "x", Role: models.RoleAdmin}
	user := models.User{Name: "User", Email: "user@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&admin).Error)
	require.NoError(t, db.Create(&user).Error)
	h := AdminAuthMiddleware(whoAmI())

	assert.Equal(t, http.StatusUnauthorized, serve(h, "").Code)
	assert.Equal(t, http.StatusForbidden, serve(h, token(t, user.ID, models.RoleUser)).Code)
	assert.Equal(t, http.StatusOK, serve(h, token(t, admin.ID, models.RoleAdmin)).Code)

	// a token minted before a demotion no longer opens the back office
	stale := token(t, user.ID, models.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, serve(h, stale).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, token(t, 9999, models.RoleAdmin)).Code)
}

type pingRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestValidateJSON(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantErr     bool
	}{
		{"ok", "application/json", `{"name":"Sari","email":"sari@example.com"}`, http.StatusOK, false},
		{"charset param", "application/json; charset=utf-8", `{"name":"Sari","email":"sari@example.com"}`, http.StatusOK, false},
		{"wrong content type", "text/plain", `{}`, http.StatusUnsupportedMediaType, true},
		{"malformed", "application/json", `{"name":`, http.StatusBadRequest, true},
		{"unknown field", "application/json", `{"name":"Sari","email":"sari@example.com","role":"admin"}`, http.StatusBadRequest, true},
		{"invalid email", "application/json", `{"name":"Sari","email":"nope"}`, http.StatusUnprocessableEntity, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", tc.contentType)
			rec := httptest.NewRecorder()
			var dst pingRequest
			err := ValidateJSON(rec, req, &dst)
			if tc.wantErr {
				require.Error(t, err)
				assert.Equal(t, tc.wantStatus, rec.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Sari", dst.Name)
		})
	}
}

func TestValidateJSONBodyTooLarge(t *testing.T) {
	t.Setenv("MAX_BODY_BYTES", "16")
	var got error
	h := MaxBodyMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var dst pingRequest
		got = ValidateJSON(w, r, &dst)
	}))
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"a very long name indeed","email":"x@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Error(t, got)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
