package policy

import (
	"testing"

	"donamaha/apperr"
	"donamaha/models"

	"github.com/stretchr/testify/assert"
)

var (
	admin     = Actor{ID: 1, Role: models.RoleAdmin}
	organizer = Actor{ID: 2, Role: models.RoleOrganizer}
	otherOrg  = Actor{ID: 3, Role: models.RoleOrganizer}
	donor     = Actor{ID: 4, Role: models.RoleUser}
	stranger  = Actor{ID: 5, Role: models.RoleUser}
)

func uptr(v uint) *uint { return &v }

func TestCampaignRules(t *testing.T) {
	draft := CampaignRes{OrganizerID: organizer.ID, Status: models.CampaignDraft}
	active := CampaignRes{OrganizerID: organizer.ID, Status: models.CampaignActive}

	cases := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   bool
	}{
		{"guest views active", Guest, CampaignView, active, true},
		{"guest cannot view draft", Guest, CampaignView, draft, false},
		{"owner views draft", organizer, CampaignView, draft, true},
		{"admin views draft", admin, CampaignView, draft, true},
		{"other organizer cannot view draft", otherOrg, CampaignView, draft, false},
		{"organizer creates", organizer, CampaignCreate, None{}, true},
		{"admin creates", admin, CampaignCreate, None{}, true},
		{"user cannot create", donor, CampaignCreate, None{}, false},
		{"guest cannot create", Guest, CampaignCreate, None{}, false},
		{"owner edits", organizer, CampaignEdit, active, true},
		{"other organizer cannot edit", otherOrg, CampaignEdit, active, false},
		{"admin edits", admin, CampaignEdit, active, true},
		{"owner deletes", organizer, CampaignDelete, active, true},
		{"user cannot delete", donor, CampaignDelete, active, false},
		{"guest donates to active", Guest, DonationCreate, active, true},
		{"user donates to active", donor, DonationCreate, active, true},
		{"nobody donates to draft", admin, DonationCreate, draft, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Allowed(tc.actor, tc.action, tc.res))
		})
	}
}

func TestDonationRules(t *testing.T) {
	d := DonationRes{DonorID: uptr(donor.ID), Status: models.DonationPending}
	guestDonation := DonationRes{Status: models.DonationPending}

	assert.True(t, Allowed(donor, DonationDelete, d))
	assert.True(t, Allowed(admin, DonationDelete, d))
	assert.False(t, Allowed(stranger, DonationDelete, d))
	assert.False(t, Allowed(Guest, DonationDelete, guestDonation))
	assert.False(t, Allowed(stranger, DonationDelete, guestDonation))

	assert.True(t, Allowed(donor, DonationView, d))
	assert.False(t, Allowed(organizer, DonationView, d))

	for _, action := range []Action{DonationStatusChange, DonationFinancialEdit, PaymentManage, DashboardView} {
		assert.True(t, Allowed(admin, action, d), action.String())
		assert.False(t, Allowed(donor, action, d), action.String())
		assert.False(t, Allowed(organizer, action, d), action.String())
		assert.False(t, Allowed(Guest, action, d), action.String())
	}
}

func TestReportAuthorizationBoundary(t *testing.T) {
	campaign := CampaignRes{OrganizerID: organizer.ID, Status: models.CampaignActive}
	byOrganizer := ReportRes{AuthorID: organizer.ID, Campaign: campaign}
	byAdmin := ReportRes{AuthorID: admin.ID, Campaign: campaign}

	assert.True(t, Allowed(organizer, ReportCreate, ReportRes{Campaign: campaign}))
	assert.True(t, Allowed(admin, ReportCreate, ReportRes{Campaign: campaign}))
	assert.False(t, Allowed(otherOrg, ReportCreate, ReportRes{Campaign: campaign}))
	assert.False(t, Allowed(donor, ReportCreate, ReportRes{Campaign: campaign}))

	for _, action := range []Action{ReportEdit, ReportDelete} {
		assert.True(t, Allowed(organizer, action, byOrganizer))
		assert.False(t, Allowed(admin, action, byOrganizer), "admins cannot touch reports they did not write")
		assert.False(t, Allowed(otherOrg, action, byOrganizer))
		assert.True(t, Allowed(admin, action, byAdmin))
		assert.False(t, Allowed(organizer, action, byAdmin))
		assert.False(t, Allowed(Guest, action, ReportRes{}))
	}
}

func TestUserRules(t *testing.T) {
	assert.False(t, Allowed(admin, UserDelete, UserRes{ID: admin.ID}))
	assert.True(t, Allowed(admin, UserDelete, UserRes{ID: donor.ID}))
	assert.False(t, Allowed(donor, UserDelete, UserRes{ID: donor.ID}))
	assert.False(t, Allowed(donor, UserDelete, UserRes{ID: stranger.ID}))

	assert.True(t, Allowed(donor, UserUpdate, UserRes{ID: donor.ID}))
	assert.False(t, Allowed(donor, UserUpdate, UserRes{ID: stranger.ID}))
	assert.True(t, Allowed(admin, UserUpdate, UserRes{ID: stranger.ID}))

	assert.True(t, Allowed(admin, UserRoleChange, UserRes{ID: donor.ID}))
	assert.False(t, Allowed(donor, UserRoleChange, UserRes{ID: donor.ID}))
}

func TestDefaultDeny(t *testing.T) {
	assert.False(t, Allowed(admin, Action(999), None{}))
	assert.False(t, Allowed(Actor{ID: 9, Role: "superuser"}, CampaignView, CampaignRes{Status: models.CampaignActive}))
	assert.False(t, Allowed(admin, CampaignEdit, UserRes{ID: 1}), "wrong resource type")
	assert.False(t, Allowed(admin, CampaignView, CampaignRes{Status: "archived"}))
	assert.False(t, Allowed(Actor{Role: models.RoleAdmin}, DashboardView, None{}), "guest claiming admin")
}

func TestCheckReturnsAuthorizationError(t *testing.T) {
	err := Check(donor, UserDelete, UserRes{ID: stranger.ID})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.NoError(t, Check(admin, UserDelete, UserRes{ID: stranger.ID}))
}
