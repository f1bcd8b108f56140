package admins

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/forms"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/ledger"
	"donamaha/lifecycle"
	"donamaha/listing"
	"donamaha/models"
	"donamaha/utils"

	"gorm.io/gorm"
)

var campaignColumns = []string{"organizer_id", "title", "description", "target_amount", "status", "image", "start_date", "end_date"}

// GET /v1/admin/campaigns
func GetCampaigns(w http.ResponseWriter, r *http.Request) {
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	var organizerID uint
	if v := r.URL.Query().Get("organizer_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			utils.WriteError(w, r, apperr.Field("organizer_id", "organizer_id tidak valid"))
			return
		}
		organizerID = uint(n)
	}
	page, err := listing.Campaigns(database.DB.WithContext(r.Context()), p, false, organizerID)
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

func findCampaign(r *http.Request, id uint) (*models.Campaign, error) {
	var c models.Campaign
	err := database.DB.WithContext(r.Context()).Preload("Organizer").First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GET /v1/admin/campaigns/{id}
func GetCampaignDetail(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := findCampaign(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: views.NewCampaign(r.Context(), *c)})
}

// organizerFromForm reads organizer_id and checks it names an organizer or
// admin account.
func organizerFromForm(r *http.Request, c *models.Campaign) error {
	if !forms.Has(r, "organizer_id") {
		return nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(r.Form.Get("organizer_id")), 10, 32)
	if err != nil || n == 0 {
		return apperr.Field("organizer_id", "organizer_id tidak valid")
	}
	var u models.User
	err = database.DB.WithContext(r.Context()).Select("id", "role").First(&u, n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Field("organizer_id", "Organizer tidak ditemukan")
	}
	if err != nil {
		return err
	}
	if u.Role != models.RoleOrganizer && u.Role != models.RoleAdmin {
		return apperr.Field("organizer_id", "User bukan organizer")
	}
	c.OrganizerID = u.ID
	return nil
}

// POST /v1/admin/campaigns
func CreateCampaign(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c := models.Campaign{OrganizerID: uid, Status: models.CampaignDraft}
	if err := organizerFromForm(r, &c); err != nil {
		utils.WriteError(w, r, err)
		return
	}
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
	if err := database.DB.WithContext(r.Context()).Omit("Organizer").Create(&c).Error; err != nil {
		utils.DeleteImage(r.Context(), image)
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Kampanye berhasil dibuat", Data: views.NewCampaign(r.Context(), c)})
}

// PUT /v1/admin/campaigns/{id}
func UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	c, err := findCampaign(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := organizerFromForm(r, c); err != nil {
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
	c, err = findCampaign(r, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Kampanye berhasil diperbarui", Data: views.NewCampaign(r.Context(), *c)})
}

// DELETE /v1/admin/campaigns/{id}
func DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
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

// POST /v1/admin/campaigns/{id}/recalculate
//
// Recomputes collected_amount from received donations. With ?dry_run=true
// the drift is only reported.
func RecalculateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	rec, err := ledger.Recalculate(r.Context(), database.DB, id, !dryRun)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: rec})
}

// GET /v1/admin/campaigns/{id}/ledger
func GetCampaignLedger(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if _, err := findCampaign(r, id); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.LedgerEntries(database.DB.WithContext(r.Context()), p, id)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: page})
}
