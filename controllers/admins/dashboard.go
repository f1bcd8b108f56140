package admins

import (
	"net/http"
	"time"

	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"
)

type DailyAmount struct {
	Day    string `json:"day"`
	Amount int64  `json:"amount"`
}

type LatestDonation struct {
	views.Donation
	DisplayName string `json:"display_name"`
}

type DashboardStats struct {
	UsersByRole       map[string]int64 `json:"users_by_role"`
	CampaignsByStatus map[string]int64 `json:"campaigns_by_status"`
	DonationsByStatus map[string]int64 `json:"donations_by_status"`
	TotalReceived     int64            `json:"total_received"`
	PendingPayments   int64            `json:"pending_payments"`
	ReceivedLastWeek  []DailyAmount    `json:"received_last_week"`
	LatestDonations   []LatestDonation `json:"latest_donations"`
}

type groupCount struct {
	Grp   string
	Count int64
}

// GET /v1/admin/dashboard
func GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	if err := policy.Check(utils.ActorFrom(r), policy.DashboardView, policy.None{}); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	db := database.DB.WithContext(r.Context())
	stats := DashboardStats{
		UsersByRole:       map[string]int64{},
		CampaignsByStatus: map[string]int64{},
		DonationsByStatus: map[string]int64{},
		ReceivedLastWeek:  make([]DailyAmount, 0, 7),
		LatestDonations:   make([]LatestDonation, 0, 10),
	}
	for _, role := range []models.Role{models.RoleUser, models.RoleOrganizer, models.RoleAdmin} {
		stats.UsersByRole[string(role)] = 0
	}
	for _, s := range []models.CampaignStatus{models.CampaignDraft, models.CampaignActive, models.CampaignCompleted, models.CampaignCancelled} {
		stats.CampaignsByStatus[string(s)] = 0
	}
	for label := range models.AdminDonationStatuses {
		stats.DonationsByStatus[label] = 0
	}

	var rows []groupCount
	if err := db.Model(&models.User{}).Select("role AS grp, COUNT(*) AS count").Group("role").Scan(&rows).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for _, row := range rows {
		stats.UsersByRole[row.Grp] = row.Count
	}

	rows = nil
	if err := db.Model(&models.Campaign{}).Select("status AS grp, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for _, row := range rows {
		stats.CampaignsByStatus[row.Grp] = row.Count
	}

	rows = nil
	if err := db.Model(&models.Donation{}).Select("status AS grp, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for _, row := range rows {
		stats.DonationsByStatus[models.DonationStatus(row.Grp).AdminLabel()] += row.Count
	}

	if err := db.Model(&models.Donation{}).
		Select("COALESCE(SUM(amount),0)").
		Where("status = ?", models.DonationReceived).
		Scan(&stats.TotalReceived).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := db.Model(&models.Payment{}).
		Where("payment_status IN ?", []models.PaymentStatus{models.PaymentPending, models.PaymentProcessing}).
		Count(&stats.PendingPayments).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}

	// bucket by local day in Go so the query stays portable across drivers
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	from := today.AddDate(0, 0, -6)
	var recent []struct {
		Amount    int64
		CreatedAt time.Time
	}
	if err := db.Model(&models.Donation{}).
		Select("amount, created_at").
		Where("status = ? AND created_at >= ?", models.DonationReceived, from).
		Scan(&recent).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	byDay := map[string]int64{}
	for _, d := range recent {
		byDay[d.CreatedAt.In(now.Location()).Format(views.DateLayout)] += d.Amount
	}
	for i := 0; i < 7; i++ {
		day := from.AddDate(0, 0, i).Format(views.DateLayout)
		stats.ReceivedLastWeek = append(stats.ReceivedLastWeek, DailyAmount{Day: day, Amount: byDay[day]})
	}

	var latest []models.Donation
	if err := db.Preload("Campaign").Preload("Donor").
		Order("created_at DESC").Order("id DESC").
		Limit(10).Find(&latest).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for _, d := range latest {
		stats.LatestDonations = append(stats.LatestDonations, LatestDonation{Donation: views.AdminDonation(d), DisplayName: d.DisplayName()})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    stats,
	})
}
