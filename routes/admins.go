package routes

import (
	"net/http"
	"time"

	"donamaha/controllers/admins"
	"donamaha/controllers/auth"
	"donamaha/middleware"

	"github.com/gorilla/mux"
)

func SetAdminRoutes(api *mux.Router) {
	// Rate limiter for admin login: 5 attempts per IP per minute
	adminLoginLimiter := middleware.NewIPRateLimiter(5, time.Minute)

	// Public admin routes
	api.Handle("/admin/login", adminLoginLimiter.Middleware(http.HandlerFunc(auth.AdminLoginHandler))).Methods(http.MethodPost)

	// Protected admin routes
	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminAuthMiddleware)

	adminRouter.Handle("/dashboard", http.HandlerFunc(admins.GetDashboardStats)).Methods(http.MethodGet)

	// Admin profile
	adminRouter.Handle("/profile", http.HandlerFunc(admins.GetAdminProfile)).Methods(http.MethodGet)
	adminRouter.Handle("/profile", http.HandlerFunc(admins.UpdateAdminProfile)).Methods(http.MethodPut)

	// User management
	adminRouter.Handle("/users", http.HandlerFunc(admins.GetUsers)).Methods(http.MethodGet)
	adminRouter.Handle("/users", http.HandlerFunc(admins.CreateUser)).Methods(http.MethodPost)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.GetUserDetail)).Methods(http.MethodGet)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.UpdateUser)).Methods(http.MethodPut)
	adminRouter.Handle("/users/{id:[0-9]+}", http.HandlerFunc(admins.DeleteUser)).Methods(http.MethodDelete)

	// Campaign management
	adminRouter.Handle("/campaigns", http.HandlerFunc(admins.GetCampaigns)).Methods(http.MethodGet)
	adminRouter.Handle("/campaigns", http.HandlerFunc(admins.CreateCampaign)).Methods(http.MethodPost)
	adminRouter.Handle("/campaigns/{id:[0-9]+}", http.HandlerFunc(admins.GetCampaignDetail)).Methods(http.MethodGet)
	adminRouter.Handle("/campaigns/{id:[0-9]+}", http.HandlerFunc(admins.UpdateCampaign)).Methods(http.MethodPut)
	adminRouter.Handle("/campaigns/{id:[0-9]+}", http.HandlerFunc(admins.DeleteCampaign)).Methods(http.MethodDelete)
	adminRouter.Handle("/campaigns/{id:[0-9]+}/recalculate", http.HandlerFunc(admins.RecalculateCampaign)).Methods(http.MethodPost)
	adminRouter.Handle("/campaigns/{id:[0-9]+}/ledger", http.HandlerFunc(admins.GetCampaignLedger)).Methods(http.MethodGet)

	// Donation management
	adminRouter.Handle("/donations", http.HandlerFunc(admins.GetDonations)).Methods(http.MethodGet)
	adminRouter.Handle("/donations", http.HandlerFunc(admins.CreateDonation)).Methods(http.MethodPost)
	adminRouter.Handle("/donations/{id:[0-9]+}", http.HandlerFunc(admins.GetDonationDetail)).Methods(http.MethodGet)
	adminRouter.Handle("/donations/{id:[0-9]+}", http.HandlerFunc(admins.UpdateDonation)).Methods(http.MethodPut)
	adminRouter.Handle("/donations/{id:[0-9]+}", http.HandlerFunc(admins.DeleteDonation)).Methods(http.MethodDelete)
	adminRouter.Handle("/donations/{id:[0-9]+}/status", http.HandlerFunc(admins.UpdateDonationStatus)).Methods(http.MethodPut)

	// Payment management
	adminRouter.Handle("/payments", http.HandlerFunc(admins.GetPayments)).Methods(http.MethodGet)
	adminRouter.Handle("/payments", http.HandlerFunc(admins.CreatePayment)).Methods(http.MethodPost)
	adminRouter.Handle("/payments/{id:[0-9]+}", http.HandlerFunc(admins.GetPaymentDetail)).Methods(http.MethodGet)
	adminRouter.Handle("/payments/{id:[0-9]+}", http.HandlerFunc(admins.UpdatePayment)).Methods(http.MethodPut)
	adminRouter.Handle("/payments/{id:[0-9]+}", http.HandlerFunc(admins.DeletePayment)).Methods(http.MethodDelete)
}
