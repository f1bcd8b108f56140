package lifecycle

import (
	"context"
	"testing"
	"time"

	"donamaha/apperr"
	"donamaha/database/dbtest"
	"donamaha/ledger"
	"donamaha/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	u := models.User{Name: "User " + string(role), Email: uuid.NewString() + "@example.com", Password: "x", Role: role}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func newCampaign(t *testing.T, db *gorm.DB, organizer uint) *models.Campaign {
	t.Helper()
	img := "campaigns/cover.jpg"
	c := models.Campaign{
		OrganizerID:  organizer,
		Title:        "School books",
		Description:  "Books for the library",
		TargetAmount: 500_000,
		Status:       models.CampaignActive,
		Image:        &img,
		StartDate:    time.Now().AddDate(0, 0, -1),
		EndDate:      time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func TestDeleteCampaignRemovesDependents(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	org := newUser(t, db, models.RoleOrganizer)
	c := newCampaign(t, db, org.ID)

	d := models.Donation{CampaignID: c.ID, Amount: 10_000, Status: models.DonationPending}
	pay := &models.Payment{Reference: "REF-1", PaymentMethod: models.MethodQRIS, PaymentStatus: models.PaymentPending}
	require.NoError(t, ledger.CreateDonation(ctx, db, &d, pay))
	reportImg := "reports/receipt.png"
	rep := models.Report{CampaignID: c.ID, AuthorID: org.ID, Title: "Week 1", Content: "x", Image: &reportImg}
	require.NoError(t, db.Create(&rep).Error)

	images, err := DeleteCampaign(ctx, db, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"campaigns/cover.jpg", "reports/receipt.png"}, images)

	var n int64
	require.NoError(t, db.Model(&models.Campaign{}).Where("id = ?", c.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Donation{}).Where("campaign_id = ?", c.ID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.Report{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteCampaignWithReceivedDonations(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	org := newUser(t, db, models.RoleOrganizer)
	c := newCampaign(t, db, org.ID)
	d := models.Donation{CampaignID: c.ID, Amount: 25_000, Status: models.DonationReceived}
	require.NoError(t, ledger.CreateDonation(ctx, db, &d, nil))

	_, err := DeleteCampaign(ctx, db, c.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	var got models.Campaign
	require.NoError(t, db.First(&got, c.ID).Error)
	assert.Equal(t, int64(25_000), got.CollectedAmount)
}

func TestDeleteCampaignNotFound(t *testing.T) {
	db := dbtest.New(t)
	_, err := DeleteCampaign(context.Background(), db, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteUserKeepsDonationsAsGuest(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	org := newUser(t, db, models.RoleOrganizer)
	c := newCampaign(t, db, org.ID)
	donor := newUser(t, db, models.RoleUser)
	avatar := "avatars/me.jpg"
	require.NoError(t, db.Model(donor).Update("avatar", avatar).Error)

	d := models.Donation{CampaignID: c.ID, Amount: 40_000, Status: models.DonationReceived}
	d.AssignDonor(&donor.ID)
	require.NoError(t, ledger.CreateDonation(ctx, db, &d, nil))
	require.NoError(t, db.Create(models.NewRefreshToken(donor.ID, 7)).Error)

	got, err := DeleteUser(ctx, db, donor.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, avatar, *got)

	var after models.Donation
	require.NoError(t, db.First(&after, d.ID).Error)
	assert.Nil(t, after.DonorID)
	require.NotNil(t, after.DonorName)
	assert.Equal(t, donor.Name, *after.DonorName)
	require.NotNil(t, after.DonorEmail)
	assert.Equal(t, donor.Email, *after.DonorEmail)

	var campaign models.Campaign
	require.NoError(t, db.First(&campaign, c.ID).Error)
	assert.Equal(t, int64(40_000), campaign.CollectedAmount)

	var n int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Where("user_id = ?", donor.ID).Count(&n).Error)
	assert.Zero(t, n)
}

func TestDeleteUserWithCampaigns(t *testing.T) {
	db := dbtest.New(t)
	org := newUser(t, db, models.RoleOrganizer)
	newCampaign(t, db, org.ID)

	_, err := DeleteUser(context.Background(), db, org.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}
