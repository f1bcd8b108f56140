package users

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"donamaha/apperr"
	"donamaha/controllers/forms"
	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/models"
	"donamaha/policy"
	"donamaha/utils"

	"gorm.io/gorm"
)

var reportColumns = []string{"title", "content", "image", "total_spent", "published_at"}

func loadReport(r *http.Request, id uint, action policy.Action) (*models.Report, error) {
	var rep models.Report
	err := database.DB.WithContext(r.Context()).Preload("Campaign").First(&rep, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("Laporan tidak ditemukan")
	}
	if err != nil {
		return nil, err
	}
	if rep.Campaign == nil {
		return nil, apperr.NotFound("Kampanye tidak ditemukan")
	}
	if err := policy.Check(utils.ActorFrom(r), action, policy.ForReport(&rep, rep.Campaign)); err != nil {
		return nil, err
	}
	return &rep, nil
}

// POST /v1/reports
//
// Multipart with an optional image. Only the campaign's organizer or an
// admin may report on a campaign.
func CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	actor := utils.ActorFrom(r)
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	campaignID, err := strconv.ParseUint(strings.TrimSpace(r.Form.Get("campaign_id")), 10, 32)
	if err != nil || campaignID == 0 {
		utils.WriteError(w, r, apperr.Field("campaign_id", "campaign_id wajib diisi"))
		return
	}
	var c models.Campaign
	err = database.DB.WithContext(r.Context()).First(&c, campaignID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteError(w, r, apperr.NotFound("Kampanye tidak ditemukan"))
		return
	}
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}

	rep := models.Report{CampaignID: c.ID, AuthorID: actor.ID}
	if err := policy.Check(actor, policy.ReportCreate, policy.ForReport(&rep, &c)); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Report(r, &rep); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	image, err := forms.Image(r, "image", "reports")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	rep.Image = image
	if err := database.DB.WithContext(r.Context()).Omit("Campaign", "Author").Create(&rep).Error; err != nil {
		utils.DeleteImage(r.Context(), image)
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Laporan berhasil dibuat",
		Data:    views.NewReport(r.Context(), rep),
	})
}

// PUT /v1/reports/{id}
func UpdateReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	rep, err := loadReport(r, id, policy.ReportEdit)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Parse(r); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := forms.Report(r, rep); err != nil {
		utils.WriteError(w, r, err)
		return
	}
	image, err := forms.Image(r, "image", "reports")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	old := rep.Image
	if image != nil {
		rep.Image = image
	}
	if err := database.DB.WithContext(r.Context()).Model(rep).Select(reportColumns).Updates(rep).Error; err != nil {
		utils.DeleteImage(r.Context(), image)
		utils.WriteError(w, r, err)
		return
	}
	if image != nil {
		utils.DeleteImage(r.Context(), old)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Laporan berhasil diperbarui",
		Data:    views.NewReport(r.Context(), *rep),
	})
}

// DELETE /v1/reports/{id}
func DeleteReportHandler(w http.ResponseWriter, r *http.Request) {
	id, err := views.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	rep, err := loadReport(r, id, policy.ReportDelete)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	if err := database.DB.WithContext(r.Context()).Delete(&models.Report{}, rep.ID).Error; err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.DeleteImage(r.Context(), rep.Image)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Laporan berhasil dihapus"})
}
