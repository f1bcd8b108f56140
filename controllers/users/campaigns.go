package users

import (
	"errors"
	"log/slog"
	"net/http"

	"donamaha/apperr"
	"donamaha/controllers/forms"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/lifecycle"
	"donamaha/listing"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"

	"gorm.io/gorm"
)

// editable campaign columns. collected_amount belongs to the ledger.
var campaignColumns = []string{"title", "description", "target_amount", "status", "image", "start_date", "end_date"}

func loadCampaign(r *http.Request, id uint, action policy.Action) (*models.Campaign, error) {
	var c models.Campaign
	err := database.DB.WithContext(r.Context()).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if err := policy.Check(utils.ActorFrom(r), action, policy.ForCampaign(&c)); err != nil {
		return nil, err
	}
	return &c, nil
}

// GET /v1/users/campaigns
func MyCampaignsHandler(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Campaigns(database.DB.WithContext(r.Context()), p, false, uid)
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

// POST /v1/campaigns
func CreateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	actor := utils.ActorFrom(r)
	if err := policy.Check(actor, policy.CampaignCreate, policy.None{}); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c := models.Campaign{OrganizerID: actor.ID, Status: models.CampaignDraft}
	if err := forms.Campaign(r, &c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	image, err := forms.Image(r, "image", "campaigns")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c.Image = image

	if err := database.DB.WithContext(r.Context()).Create(&c).Error; err != nil {
		utils.DeleteImage(r.Context(), image)
		utils.WriteError(w, r, err)
		return
	}
	slog.Info("[campaigns] created", "campaign_id", c.ID, "organizer_id", c.OrganizerID)
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Kampanye berhasil dibuat",
		Data:    views.NewCampaign(r.Context(), c),
	})
}

// PUT /v1/campaigns/{id}
func UpdateCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := loadCampaign(r, id, policy.CampaignEdit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Campaign(r, c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	image, err := forms.Image(r, "image", "campaigns")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	old := c.Image
	if image != nil {
		c.Image = image
	}

	db := database.DB.WithContext(r.Context())
	if err := db.Model(c).Select(campaignColumns).Updates(c).Error; err != nil {
		utils.DeleteImage(r.Context(), image)
		utils.WriteError(w, r, err)
		return
	}
	if image != nil {
		utils.DeleteImage(r.Context(), old)
	}
	if err := db.First(c, id).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Kampanye berhasil diperbarui",
		Data:    views.NewCampaign(r.Context(), *c),
	})
}

// DELETE /v1/campaigns/{id}
func DeleteCampaignHandler(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := loadCampaign(r, id, policy.CampaignDelete); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	images, err := lifecycle.DeleteCampaign(r.Context(), database.DB, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	for i := range images {
		utils.DeleteImage(r.Context(), &images[i])
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Kampanye berhasil dihapus"})
}
