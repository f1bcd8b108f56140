package controllers

import (
	"errors"
	"net/http"
	"time"

	"donamaha/apperr"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/listing"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"

	"gorm.io/gorm"
)

// GET /v1/campaigns
func ListCampaigns(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Campaigns(database.DB.WithContext(r.Context()), p, true, 0)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    listing.Map(page, func(c models.Campaign) views.Campaign { return views.NewCampaign(ctx, c) }),
	})
}

// loadVisibleCampaign loads campaign id and checks the caller may see it.
// Hidden drafts answer as not found.
func loadVisibleCampaign(r *http.Request, id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := database.DB.WithContext(r.Context()).Preload("Organizer").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if !policy.Allowed(utils.ActorFrom(r), policy.CampaignView, policy.ForCampaign(&c)) {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	return &c, nil
}

// GET /v1/campaigns/{id}
func GetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := loadVisibleCampaign(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	var donors, reports int64
	db := database.DB.WithContext(r.Context())
	if err := db.Model(&models.Donation{}).Where("campaign_id = ? AND status = ?", c.ID, models.DonationReceived).Count(&donors).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := db.Model(&models.Report{}).Where("campaign_id = ?", c.ID).Count(&reports).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"campaign":       views.NewCampaign(r.Context(), *c),
			"donation_count": donors,
			"report_count":   reports,
		},
	})
}

// GET /v1/campaigns/{id}/donations
func CampaignDonations(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := loadVisibleCampaign(r, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Donations(database.DB.WithContext(r.Context()), p, listing.CampaignFeed, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    listing.Map(page, views.FeedDonation),
	})
}

// GET /v1/campaigns/{id}/reports
func CampaignReports(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := loadVisibleCampaign(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	drafts := policy.Allowed(utils.ActorFrom(r), policy.CampaignEdit, policy.ForCampaign(c))
	page, err := listing.Reports(database.DB.WithContext(r.Context()), p, id, !drafts)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	ctx := r.Context()
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    listing.Map(page, func(rep models.Report) views.Report { return views.NewReport(ctx, rep) }),
	})
}

// GET /v1/reports/{id}
func GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var rep models.Report
	err = database.DB.WithContext(r.Context()).Preload("Author").First(&rep, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, apperr.NotFound("Laporan tidak ditemukan"))
		return
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := loadVisibleCampaign(r, rep.CampaignID)
	if err != nil {
		utils.WriteError(w, r, apperr.NotFound("Laporan tidak ditemukan"))
		return
	}
	// Unpublished reports are only shown to their author and the campaign's managers.
	actor := utils.ActorFrom(r)
	if !rep.PublishedBy(time.Now()) &&
		!policy.Allowed(actor, policy.ReportEdit, policy.ForReport(&rep, c)) &&
		!policy.Allowed(actor, policy.CampaignEdit, policy.ForCampaign(c)) {
		utils.WriteError(w, r, apperr.NotFound("Laporan tidak ditemukan"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"report":   views.NewReport(r.Context(), rep),
			"campaign": views.NewCampaign(r.Context(), *c),
		},
	})
}
