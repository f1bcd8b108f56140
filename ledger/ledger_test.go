package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"donamaha/apperr"
	"donamaha/database/dbtest"
	"donamaha/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedCampaign(t *testing.T, db *gorm.DB) *models.Campaign {
	t.Helper()
	org := models.User{Name: "Org", Email: uuid.NewString() + "@example.com", Password: "x", Role: models.RoleOrganizer}
	require.NoError(t, db.Create(&org).Error)
	c := models.Campaign{
		OrganizerID:  org.ID,
		Title:        "Clean water",
		Description:  "Wells for the village",
		TargetAmount: 1_000_000,
		Status:       models.CampaignActive,
		StartDate:    time.Now().AddDate(0, 0, -1),
		EndDate:      time.Now().AddDate(0, 1, 0),
	}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func collected(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	var c models.Campaign
	require.NoError(t, db.First(&c, id).Error)
	return c.CollectedAmount
}

func receivedTotal(t *testing.T, db *gorm.DB, id uint) int64 {
	t.Helper()
	sum, err := receivedSum(db, id)
	require.NoError(t, err)
	return sum
}

func TestDelta(t *testing.T) {
	cases := []struct {
		name          string
		before, after State
		want          int64
	}{
		{"create pending", State{}, State{models.DonationPending, 5000}, 0},
		{"create received", State{}, State{models.DonationReceived, 5000}, 5000},
		{"pending to received", State{models.DonationPending, 5000}, State{models.DonationReceived, 5000}, 5000},
		{"received to cancelled", State{models.DonationReceived, 5000}, State{models.DonationCancelled, 5000}, -5000},
		{"received amount change", State{models.DonationReceived, 5000}, State{models.DonationReceived, 8000}, 3000},
		{"status and amount change", State{models.DonationPending, 5000}, State{models.DonationReceived, 8000}, 8000},
		{"received to failed with new amount", State{models.DonationReceived, 5000}, State{models.DonationFailed, 9000}, -5000},
		{"pending amount change", State{models.DonationPending, 5000}, State{models.DonationPending, 9000}, 0},
		{"delete received", State{models.DonationReceived, 5000}, State{}, -5000},
		{"delete pending", State{models.DonationPending, 5000}, State{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Delta(tc.before, tc.after))
		})
	}
}

func TestLedgerScenario(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)
	assert.Zero(t, collected(t, db, c.ID))

	a := models.Donation{CampaignID: c.ID, Amount: 200_000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &a, nil))
	assert.Equal(t, int64(200_000), collected(t, db, c.ID))

	b := models.Donation{CampaignID: c.ID, Amount: 150_000, Status: models.DonationPending}
	require.NoError(t, CreateDonation(ctx, db, &b, nil))
	assert.Equal(t, int64(200_000), collected(t, db, c.ID))

	_, err := SetStatus(ctx, db, b.ID, models.DonationReceived)
	require.NoError(t, err)
	assert.Equal(t, int64(350_000), collected(t, db, c.ID))

	_, err = UpdateDonation(ctx, db, a.ID, func(d *models.Donation) error {
		d.Amount = 100_000
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), collected(t, db, c.ID))

	require.NoError(t, DeleteDonation(ctx, db, b.ID, DeleteDebit))
	assert.Equal(t, int64(100_000), collected(t, db, c.ID))
	assert.Equal(t, receivedTotal(t, db, c.ID), collected(t, db, c.ID))

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("campaign_id = ?", c.ID).Order("id").Find(&entries).Error)
	require.Len(t, entries, 4)
	assert.Equal(t, []int64{200_000, 150_000, -100_000, -150_000},
		[]int64{entries[0].Delta, entries[1].Delta, entries[2].Delta, entries[3].Delta})
	assert.Equal(t, int64(100_000), entries[3].BalanceAfter)
}

func TestUpdateWithoutChangeIsNoop(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 50_000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &d, nil))

	for i := 0; i < 3; i++ {
		_, err := SetStatus(ctx, db, d.ID, models.DonationReceived)
		require.NoError(t, err)
		_, err = UpdateDonation(ctx, db, d.ID, func(d *models.Donation) error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, int64(50_000), collected(t, db, c.ID))

	var n int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestInvariantHoldsAcrossSequence(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)
	other := seedCampaign(t, db)

	statuses := []models.DonationStatus{
		models.DonationPending, models.DonationReceived, models.DonationFailed,
		models.DonationCancelled, models.DonationReceived,
	}
	var ids []uint
	for i, st := range statuses {
		d := models.Donation{CampaignID: c.ID, Amount: int64(1000 * (i + 3)), Status: st}
		require.NoError(t, CreateDonation(ctx, db, &d, nil))
		ids = append(ids, d.ID)
	}
	o := models.Donation{CampaignID: other.ID, Amount: 7000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &o, nil))

	steps := []func() error{
		func() error { _, err := SetStatus(ctx, db, ids[0], models.DonationReceived); return err },
		func() error { _, err := SetStatus(ctx, db, ids[1], models.DonationCancelled); return err },
		func() error {
			_, err := UpdateDonation(ctx, db, ids[4], func(d *models.Donation) error {
				d.Amount = 42_000
				d.Status = models.DonationFailed
				return nil
			})
			return err
		},
		func() error { _, err := SetStatus(ctx, db, ids[2], models.DonationReceived); return err },
		func() error { return DeleteDonation(ctx, db, ids[2], DeleteDebit) },
		func() error { return DeleteDonation(ctx, db, ids[3], DeleteDebit) },
	}
	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		assert.Equal(t, receivedTotal(t, db, c.ID), collected(t, db, c.ID), "after step %d", i)
		assert.Equal(t, int64(7000), collected(t, db, other.ID), "other campaign after step %d", i)
	}
}

func TestCreateDonationMissingCampaign(t *testing.T) {
	db := dbtest.New(t)
	d := models.Donation{CampaignID: 999, Amount: 5000, Status: models.DonationReceived}
	err := CreateDonation(context.Background(), db, &d, nil)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var n int64
	require.NoError(t, db.Model(&models.Donation{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateDonationValidation(t *testing.T) {
	db := dbtest.New(t)
	c := seedCampaign(t, db)
	name := "Guest"
	uid := uint(1)

	cases := []struct {
		name  string
		d     models.Donation
		field string
	}{
		{"below minimum", models.Donation{CampaignID: c.ID, Amount: 999, Status: models.DonationPending}, "amount"},
		{"bad status", models.Donation{CampaignID: c.ID, Amount: 5000, Status: "paid"}, "status"},
		{"donor with guest name", models.Donation{CampaignID: c.ID, DonorID: &uid, DonorName: &name, Amount: 5000, Status: models.DonationPending}, "donor_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CreateDonation(context.Background(), db, &tc.d, nil)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, apperr.KindValidation, ae.Kind)
			assert.Contains(t, ae.Fields, tc.field)
		})
	}
	assert.Zero(t, collected(t, db, c.ID))
}

func TestUpdateCannotMoveCampaign(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)
	other := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 5000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &d, nil))

	_, err := UpdateDonation(ctx, db, d.ID, func(d *models.Donation) error {
		d.CampaignID = other.ID
		return nil
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, int64(5000), collected(t, db, c.ID))
	assert.Zero(t, collected(t, db, other.ID))
}

func TestDeleteModes(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	received := models.Donation{CampaignID: c.ID, Amount: 5000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &received, nil))
	pending := models.Donation{CampaignID: c.ID, Amount: 3000, Status: models.DonationPending}
	require.NoError(t, CreateDonation(ctx, db, &pending, nil))

	err := DeleteDonation(ctx, db, received.ID, DeleteRejectReceived)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, int64(5000), collected(t, db, c.ID))

	require.NoError(t, DeleteDonation(ctx, db, pending.ID, DeleteRejectReceived))
	assert.Equal(t, int64(5000), collected(t, db, c.ID))

	require.NoError(t, DeleteDonation(ctx, db, received.ID, DeleteDebit))
	assert.Zero(t, collected(t, db, c.ID))

	err = DeleteDonation(ctx, db, received.ID, DeleteDebit)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestNegativeTotalIsRejected(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 5000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &d, nil))
	// Simulate drift from outside the ledger.
	require.NoError(t, db.Model(&models.Campaign{}).Where("id = ?", c.ID).Update("collected_amount", 1000).Error)

	err := DeleteDonation(ctx, db, d.ID, DeleteDebit)
	assert.True(t, apperr.Is(err, apperr.KindIntegrity))

	var n int64
	require.NoError(t, db.Model(&models.Donation{}).Where("id = ?", d.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n, "donation delete must roll back")
	assert.Equal(t, int64(1000), collected(t, db, c.ID))
}

func TestPaymentCascade(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 25_000, Status: models.DonationPending}
	require.NoError(t, CreateDonation(ctx, db, &d, nil))

	p := models.Payment{DonationID: d.ID, Reference: "PAY-1", PaymentMethod: models.MethodQRIS, PaymentStatus: models.PaymentProcessing}
	require.NoError(t, CreatePayment(ctx, db, &p))
	assert.Zero(t, collected(t, db, c.ID))

	dup := models.Payment{DonationID: d.ID, Reference: "PAY-2", PaymentMethod: models.MethodCash, PaymentStatus: models.PaymentPending}
	assert.True(t, apperr.Is(CreatePayment(ctx, db, &dup), apperr.KindConflict))

	updated, err := UpdatePayment(ctx, db, p.ID, func(p *models.Payment) error {
		p.PaymentStatus = models.PaymentCompleted
		return nil
	})
	require.NoError(t, err)
	assert.NotNil(t, updated.PaidAt)
	assert.Equal(t, int64(25_000), collected(t, db, c.ID))

	_, err = UpdatePayment(ctx, db, p.ID, func(p *models.Payment) error {
		p.PaymentStatus = models.PaymentRefunded
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, collected(t, db, c.ID))

	var got models.Donation
	require.NoError(t, db.First(&got, d.ID).Error)
	assert.Equal(t, models.DonationCancelled, got.Status)

	require.NoError(t, DeletePayment(ctx, db, p.ID))
	require.NoError(t, db.First(&got, d.ID).Error)
	assert.Equal(t, models.DonationCancelled, got.Status)
	assert.True(t, apperr.Is(DeletePayment(ctx, db, p.ID), apperr.KindNotFound))
}

func TestCreateDonationWithCompletedPayment(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 12_000, Status: models.DonationReceived}
	p := models.Payment{Reference: "PAY-9", PaymentMethod: models.MethodBankTransfer, PaymentStatus: models.PaymentCompleted}
	require.NoError(t, CreateDonation(ctx, db, &d, &p))
	assert.Equal(t, d.ID, p.DonationID)
	assert.Equal(t, int64(12_000), collected(t, db, c.ID))

	require.NoError(t, DeleteDonation(ctx, db, d.ID, DeleteDebit))
	var n int64
	require.NoError(t, db.Model(&models.Payment{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRecalculate(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 40_000, Status: models.DonationReceived}
	require.NoError(t, CreateDonation(ctx, db, &d, nil))

	rec, err := Recalculate(ctx, db, c.ID, false)
	require.NoError(t, err)
	assert.Zero(t, rec.Drift)

	require.NoError(t, db.Model(&models.Campaign{}).Where("id = ?", c.ID).Update("collected_amount", 55_000).Error)

	rec, err = Recalculate(ctx, db, c.ID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(15_000), rec.Drift)
	assert.False(t, rec.Fixed)
	assert.Equal(t, int64(55_000), collected(t, db, c.ID))

	all, err := RecalculateAll(ctx, db, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Fixed)
	assert.Equal(t, int64(40_000), collected(t, db, c.ID))

	var entry models.LedgerEntry
	require.NoError(t, db.Where("reason = ?", models.ReasonReconcile).First(&entry).Error)
	assert.Equal(t, int64(-15_000), entry.Delta)
	assert.Nil(t, entry.DonationID)

	_, err = Recalculate(ctx, db, 12345, false)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestPaymentEditWithoutStatusChange(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	d := models.Donation{CampaignID: c.ID, Amount: 200_000, Status: models.DonationReceived}
	p := models.Payment{Reference: "PAY-EDIT", PaymentMethod: models.MethodQRIS, PaymentStatus: models.PaymentCompleted}
	require.NoError(t, CreateDonation(ctx, db, &d, &p))
	require.Equal(t, int64(200_000), collected(t, db, c.ID))

	_, err := SetStatus(ctx, db, d.ID, models.DonationCancelled)
	require.NoError(t, err)
	require.Zero(t, collected(t, db, c.ID))

	_, err = UpdatePayment(ctx, db, p.ID, func(p *models.Payment) error {
		p.PaymentMethod = models.MethodCash
		p.Reference = "PAY-EDIT-2"
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, collected(t, db, c.ID))

	var got models.Donation
	require.NoError(t, db.First(&got, d.ID).Error)
	assert.Equal(t, models.DonationCancelled, got.Status)
}

func TestConcurrentMutationsKeepInvariant(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	c := seedCampaign(t, db)

	const n = 10
	pending := make([]uint, n)
	received := make([]uint, n)
	for i := 0; i < n; i++ {
		a := models.Donation{CampaignID: c.ID, Amount: int64(1000 * (i + 1)), Status: models.DonationPending}
		require.NoError(t, CreateDonation(ctx, db, &a, nil))
		pending[i] = a.ID
		b := models.Donation{CampaignID: c.ID, Amount: int64(2000 * (i + 1)), Status: models.DonationReceived}
		require.NoError(t, CreateDonation(ctx, db, &b, nil))
		received[i] = b.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, 3*n)
	for i := 0; i < n; i++ {
		wg.Add(3)
		go func(i int) {
			defer wg.Done()
			d := models.Donation{CampaignID: c.ID, Amount: int64(500 * (i + 3)), Status: models.DonationReceived}
			if err := CreateDonation(ctx, db, &d, nil); err != nil {
				errs <- fmt.Errorf("create %d: %w", i, err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, err := SetStatus(ctx, db, pending[i], models.DonationReceived); err != nil {
				errs <- fmt.Errorf("status %d: %w", i, err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if err := DeleteDonation(ctx, db, received[i], DeleteDebit); err != nil {
				errs <- fmt.Errorf("delete %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	total := collected(t, db, c.ID)
	assert.Equal(t, receivedTotal(t, db, c.ID), total)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("campaign_id = ?", c.ID).Order("id").Find(&entries).Error)
	var running int64
	for _, e := range entries {
		running += e.Delta
		assert.Equal(t, running, e.BalanceAfter, "entry %d", e.ID)
	}
	assert.Equal(t, total, running)
}
