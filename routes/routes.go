package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"donamaha/controllers"
	"donamaha/middleware"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func InitRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	// Health check endpoint for Docker health checks
	r.Handle("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"service":   "donamaha-api",
		})
	})).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// CORS origins from CORS_ALLOWED_ORIGINS (comma-separated) plus local defaults
	origins := []string{"http://localhost:3000", "http://localhost:8080", "http://127.0.0.1:3000", "http://127.0.0.1:8080"}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
			handlers.AllowCredentials(),
		)(next)
	})

	api := r.PathPrefix("/v1").Subrouter()

	// Add catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// Public campaign pages. A token, when sent, lets owners see their drafts.
	api.Handle("/campaigns", http.HandlerFunc(controllers.ListCampaigns)).Methods(http.MethodGet)
	api.Handle("/campaigns/{id:[0-9]+}", middleware.OptionalAuthMiddleware(http.HandlerFunc(controllers.GetCampaign))).Methods(http.MethodGet)
	api.Handle("/campaigns/{id:[0-9]+}/donations", middleware.OptionalAuthMiddleware(http.HandlerFunc(controllers.CampaignDonations))).Methods(http.MethodGet)
	api.Handle("/campaigns/{id:[0-9]+}/reports", middleware.OptionalAuthMiddleware(http.HandlerFunc(controllers.CampaignReports))).Methods(http.MethodGet)
	api.Handle("/reports/{id:[0-9]+}", middleware.OptionalAuthMiddleware(http.HandlerFunc(controllers.GetReport))).Methods(http.MethodGet)

	// Guest or signed-in donation: 30 per IP per 10 minutes
	donationLimiter := middleware.NewIPRateLimiter(30, 10*time.Minute)
	api.Handle("/donations", donationLimiter.Middleware(middleware.OptionalAuthMiddleware(http.HandlerFunc(controllers.CreateDonation)))).Methods(http.MethodPost)

	UsersRoutes(api)
	SetAdminRoutes(api)

	return r
}
