package listing

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"donamaha/apperr"
	"donamaha/database/dbtest"
	"donamaha/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	p, err := Parse(url.Values{
		"page":        {"3"},
		"search":      {"  water "},
		"direction":   {"asc"},
		"amount_min":  {"1000"},
		"amount_max":  {"5000"},
		"date_from":   {"2024-01-01"},
		"date_to":     {"2024-01-31"},
		"anonymous":   {"false"},
		"campaign_id": {"7"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, "water", p.Search)
	assert.False(t, p.Desc)
	assert.Equal(t, int64(1000), *p.AmountMin)
	assert.Equal(t, int64(5000), *p.AmountMax)
	assert.Equal(t, 31, p.DateTo.Day())
	require.NotNil(t, p.Anonymous)
	assert.False(t, *p.Anonymous)
	assert.Equal(t, uint(7), p.CampaignID)

	p, err = Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.True(t, p.Desc)
	assert.Nil(t, p.Anonymous)
}

func TestParseRejectsBadValues(t *testing.T) {
	_, err := Parse(url.Values{
		"page":       {"0"},
		"direction":  {"sideways"},
		"amount_min": {"-1"},
		"date_from":  {"01/02/2024"},
		"anonymous":  {"maybe"},
	})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	for _, k := range []string{"page", "direction", "amount_min", "date_from", "anonymous"} {
		assert.Contains(t, ae.Fields, k)
	}

	_, err = Parse(url.Values{"amount_min": {"5000"}, "amount_max": {"1000"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

type fixture struct {
	db       *gorm.DB
	org      models.User
	donor    models.User
	campaign models.Campaign
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := dbtest.New(t)
	f := fixture{db: db}
	f.org = models.User{Name: "Olivia Organizer", Email: "olivia@example.com", Password: "x", Role: models.RoleOrganizer}
	f.donor = models.User{Name: "Dimas Donor", Email: "dimas@example.com", Password: "x", Role: models.RoleUser}
	require.NoError(t, db.Create(&f.org).Error)
	require.NoError(t, db.Create(&f.donor).Error)

	now := time.Now()
	f.campaign = models.Campaign{
		OrganizerID: f.org.ID, Title: "Clean Water", Description: "Wells",
		TargetAmount: 100_000, Status: models.CampaignActive,
		StartDate: now.AddDate(0, 0, -1), EndDate: now.AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(&f.campaign).Error)
	draft := models.Campaign{
		OrganizerID: f.org.ID, Title: "Library books", Description: "A draft",
		TargetAmount: 50_000, Status: models.CampaignDraft,
		StartDate: now, EndDate: now.AddDate(0, 2, 0),
	}
	require.NoError(t, db.Create(&draft).Error)
	return f
}

func (f fixture) donation(t *testing.T, d models.Donation) models.Donation {
	t.Helper()
	d.CampaignID = f.campaign.ID
	if d.Status == "" {
		d.Status = models.DonationPending
	}
	require.NoError(t, f.db.Create(&d).Error)
	return d
}

func TestCampaignsHidesDraftsPublicly(t *testing.T) {
	f := setup(t)

	pub, err := Campaigns(f.db, Params{Page: 1, Desc: true}, true, 0)
	require.NoError(t, err)
	require.Len(t, pub.Items, 1)
	assert.Equal(t, "Clean Water", pub.Items[0].Title)
	require.NotNil(t, pub.Items[0].Organizer)

	all, err := Campaigns(f.db, Params{Page: 1, Desc: true}, false, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	found, err := Campaigns(f.db, Params{Page: 1, Desc: true, Search: "LIBRARY"}, false, 0)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, models.CampaignDraft, found.Items[0].Status)

	_, err = Campaigns(f.db, Params{Page: 1, Status: "archived"}, false, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestCampaignsEndDateRange(t *testing.T) {
	f := setup(t)
	now := time.Now()

	p, err := Parse(url.Values{
		"end_from": {now.AddDate(0, 1, 15).Format(dateLayout)},
		"end_to":   {now.AddDate(0, 3, 0).Format(dateLayout)},
	})
	require.NoError(t, err)
	page, err := Campaigns(f.db, p, false, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Library books", page.Items[0].Title)

	p, err = Parse(url.Values{"end_to": {now.AddDate(0, 1, 0).Format(dateLayout)}})
	require.NoError(t, err)
	page, err = Campaigns(f.db, p, false, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Clean Water", page.Items[0].Title)

	_, err = Parse(url.Values{"end_from": {"2024-02-01"}, "end_to": {"2024-01-01"}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestDonationFilters(t *testing.T) {
	f := setup(t)
	f.donation(t, models.Donation{DonorID: &f.donor.ID, Amount: 1000, Status: models.DonationReceived})
	f.donation(t, models.Donation{DonorName: strptr("Sari Guest"), Amount: 5000, IsAnonymous: true})
	f.donation(t, models.Donation{DonorName: strptr("Budi"), Amount: 9000, Note: strptr("for 100% of wells"), Status: models.DonationCancelled})

	all, err := Donations(f.db, Params{Page: 1, Desc: true}, AdminDonations, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Total)

	byDonorName, err := Donations(f.db, Params{Page: 1, Desc: true, Search: "dimas"}, AdminDonations, 0)
	require.NoError(t, err)
	require.Len(t, byDonorName.Items, 1)
	assert.Equal(t, int64(1000), byDonorName.Items[0].Amount)

	literalPercent, err := Donations(f.db, Params{Page: 1, Desc: true, Search: "100%"}, AdminDonations, 0)
	require.NoError(t, err)
	assert.Len(t, literalPercent.Items, 1)

	lo, hi := int64(1000), int64(5000)
	ranged, err := Donations(f.db, Params{Page: 1, Desc: true, AmountMin: &lo, AmountMax: &hi}, AdminDonations, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ranged.Total)

	yes := true
	anon, err := Donations(f.db, Params{Page: 1, Desc: true, Anonymous: &yes}, AdminDonations, 0)
	require.NoError(t, err)
	require.Len(t, anon.Items, 1)
	assert.Equal(t, int64(5000), anon.Items[0].Amount)

	completed, err := Donations(f.db, Params{Page: 1, Desc: true, Status: "completed"}, AdminDonations, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), completed.Total)

	_, err = Donations(f.db, Params{Page: 1, Status: "paid"}, AdminDonations, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	paid, err := Donations(f.db, Params{Page: 1, Status: "paid"}, DonorDonations, f.donor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), paid.Total)

	feed, err := Donations(f.db, Params{Page: 1, Desc: true}, CampaignFeed, f.campaign.ID)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Dimas Donor", feed.Items[0].DisplayName())
}

func TestPaginationIsDeterministic(t *testing.T) {
	f := setup(t)
	for i := 0; i < 45; i++ {
		f.donation(t, models.Donation{DonorName: strptr(fmt.Sprintf("guest %d", i)), Amount: 1000})
	}

	seen := map[uint]bool{}
	for page := 1; page <= 3; page++ {
		res, err := Donations(f.db, Params{Page: page, Desc: true, Sort: "amount"}, AdminDonations, 0)
		require.NoError(t, err)
		assert.Equal(t, DonationsPerPage, res.PerPage)
		assert.Equal(t, int64(45), res.Total)
		assert.Equal(t, 3, res.LastPage)
		for _, d := range res.Items {
			assert.False(t, seen[d.ID], "donation %d repeated across pages", d.ID)
			seen[d.ID] = true
		}
	}
	assert.Len(t, seen, 45)
}

func TestUsersFilter(t *testing.T) {
	f := setup(t)

	res, err := Users(f.db, Params{Page: 1, Desc: true, Role: "organizer"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, f.org.ID, res.Items[0].ID)

	res, err = Users(f.db, Params{Page: 1, Desc: true, Search: "DIMAS@"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	_, err = Users(f.db, Params{Page: 1, Role: "root"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestPaymentsFilter(t *testing.T) {
	f := setup(t)
	d1 := f.donation(t, models.Donation{DonorName: strptr("A"), Amount: 2000})
	d2 := f.donation(t, models.Donation{DonorName: strptr("B"), Amount: 3000})
	require.NoError(t, f.db.Create(&models.Payment{DonationID: d1.ID, Reference: "R1", PaymentMethod: models.MethodEWallet, PaymentStatus: models.PaymentPending}).Error)
	require.NoError(t, f.db.Create(&models.Payment{DonationID: d2.ID, Reference: "R2", PaymentMethod: models.MethodCash, PaymentStatus: models.PaymentCompleted}).Error)

	res, err := Payments(f.db, Params{Page: 1, Desc: true, Method: "ewallet"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "R1", res.Items[0].Reference)

	res, err = Payments(f.db, Params{Page: 1, Desc: true, Status: "completed", CampaignID: f.campaign.ID})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "R2", res.Items[0].Reference)

	_, err = Payments(f.db, Params{Page: 1, Method: "cheque"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
