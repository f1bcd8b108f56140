package users

import (
	"net/http"

	"donamaha/controllers/views"
	"donamaha/database"
	"donamaha/listing"
	"donamaha/utils"
)

// GET /v1/users/donations
func MyDonationsHandler(w http.ResponseWriter, r *http.Request) {
	uid, _ := utils.GetUserID(r)
	p, err := listing.Parse(r.URL.Query())
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	page, err := listing.Donations(database.DB.WithContext(r.Context()), p, listing.DonorDonations, uid)
	if err != nil {
		utils.WriteError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data:    listing.Map(page, views.OwnDonation),
	})
}
