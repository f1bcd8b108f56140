package routes

import (
	"net/http"
	"time"

	"donamaha/controllers"
	"donamaha/controllers/auth"
	"donamaha/controllers/users"
	"donamaha/middleware"

	"github.com/gorilla/mux"
)

// UsersRoutes registers the auth endpoints and everything a signed-in user,
// donor or organizer does.
func UsersRoutes(api *mux.Router) {
	// login/register: 60 per IP per 5 minutes
	loginLimiter := middleware.NewIPRateLimiter(60, 5*time.Minute)
	// session: 120 reads, 60 writes per user per minute
	userLimiter := middleware.NewUserRateLimiter(120, 60, 60)

	authed := func(h http.HandlerFunc) http.Handler {
		return middleware.AuthMiddleware(userLimiter.Middleware(h))
	}

	api.Handle("/register", loginLimiter.Middleware(http.HandlerFunc(auth.RegisterHandler))).Methods(http.MethodPost)
	api.Handle("/login", loginLimiter.Middleware(http.HandlerFunc(auth.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/refresh", loginLimiter.Middleware(http.HandlerFunc(auth.RefreshHandler))).Methods(http.MethodPost)
	api.Handle("/logout", authed(auth.LogoutHandler)).Methods(http.MethodPost)
	api.Handle("/logout-all", authed(auth.LogoutAllHandler)).Methods(http.MethodPost)

	// Account
	api.Handle("/users/info", authed(users.InfoHandler)).Methods(http.MethodGet)
	api.Handle("/users/profile", authed(users.UpdateProfileHandler)).Methods(http.MethodPut)
	api.Handle("/users/password", authed(users.ChangePasswordHandler)).Methods(http.MethodPut)
	api.Handle("/users/donations", authed(users.MyDonationsHandler)).Methods(http.MethodGet)
	api.Handle("/users/campaigns", authed(users.MyCampaignsHandler)).Methods(http.MethodGet)

	// Donations
	api.Handle("/donations/{id:[0-9]+}", authed(controllers.GetDonation)).Methods(http.MethodGet)
	api.Handle("/donations/{id:[0-9]+}", authed(controllers.UpdateDonationStatus)).Methods(http.MethodPatch, http.MethodPut)
	api.Handle("/donations/{id:[0-9]+}", authed(controllers.DeleteDonation)).Methods(http.MethodDelete)

	// Organizer campaigns
	api.Handle("/campaigns", authed(users.CreateCampaignHandler)).Methods(http.MethodPost)
	api.Handle("/campaigns/{id:[0-9]+}", authed(users.UpdateCampaignHandler)).Methods(http.MethodPut)
	api.Handle("/campaigns/{id:[0-9]+}", authed(users.DeleteCampaignHandler)).Methods(http.MethodDelete)

	// Reports
	api.Handle("/reports", authed(users.CreateReportHandler)).Methods(http.MethodPost)
	api.Handle("/reports/{id:[0-9]+}", authed(users.UpdateReportHandler)).Methods(http.MethodPut)
	api.Handle("/reports/{id:[0-9]+}", authed(users.DeleteReportHandler)).Methods(http.MethodDelete)
}
