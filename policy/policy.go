// Package policy decides whether an actor may perform an action on a
// resource. Rules are closed: anything not explicitly allowed is denied.
package policy

import (
	"donamaha/apperr"
	"donamaha/models"
)

// Actor is the caller. A zero ID is a guest.
type Actor struct {
	ID   uint
	Role models.Role
}

var Guest = Actor{}

func (a Actor) IsGuest() bool { return a.ID == 0 }

func (a Actor) IsAdmin() bool { return a.ID != 0 && a.Role == models.RoleAdmin }

type Action int

const (
	CampaignView Action = iota + 1
	CampaignCreate
	CampaignEdit
	CampaignDelete
	DonationView
	DonationCreate
	DonationStatusChange
	DonationFinancialEdit
	DonationDelete
	ReportCreate
	ReportEdit
	ReportDelete
	UserUpdate
	UserRoleChange
	UserDelete
	PaymentManage
	DashboardView
)

var actionNames = map[Action]string{
	CampaignView:          "campaign.view",
	CampaignCreate:        "campaign.create",
	CampaignEdit:          "campaign.edit",
	CampaignDelete:        "campaign.delete",
	DonationView:          "donation.view",
	DonationCreate:        "donation.create",
	DonationStatusChange:  "donation.status",
	DonationFinancialEdit: "donation.edit",
	DonationDelete:        "donation.delete",
	ReportCreate:          "report.create",
	ReportEdit:            "report.edit",
	ReportDelete:          "report.delete",
	UserUpdate:            "user.update",
	UserRoleChange:        "user.role",
	UserDelete:            "user.delete",
	PaymentManage:         "payment.manage",
	DashboardView:         "dashboard.view",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Resource describes the object an action targets. Only the fields a rule
// reads are carried.
type Resource interface {
	resource()
}

type CampaignRes struct {
	OrganizerID uint
	Status      models.CampaignStatus
}

type DonationRes struct {
	DonorID  *uint
	Status   models.DonationStatus
	Campaign CampaignRes
}

type ReportRes struct {
	AuthorID uint
	Campaign CampaignRes
}

type UserRes struct {
	ID uint
}

// None is the resource for actions that target nothing in particular.
type None struct{}

func (CampaignRes) resource() {}
func (DonationRes) resource() {}
func (ReportRes) resource()   {}
func (UserRes) resource()     {}
func (None) resource()        {}

func ForCampaign(c *models.Campaign) CampaignRes {
	return CampaignRes{OrganizerID: c.OrganizerID, Status: c.Status}
}

func ForDonation(d *models.Donation, c *models.Campaign) DonationRes {
	return DonationRes{DonorID: d.DonorID, Status: d.Status, Campaign: ForCampaign(c)}
}

func ForReport(r *models.Report, c *models.Campaign) ReportRes {
	return ReportRes{AuthorID: r.AuthorID, Campaign: ForCampaign(c)}
}

// Check returns nil when a may perform action on res and an authorization
// error otherwise.
func Check(a Actor, action Action, res Resource) error {
	if Allowed(a, action, res) {
		return nil
	}
	return apperr.Forbidden("not allowed to " + action.String())
}

// Allowed is Check without the error.
func Allowed(a Actor, action Action, res Resource) bool {
	if !a.IsGuest() && !a.Role.Valid() {
		return false
	}
	switch action {
	case CampaignView:
		c, ok := res.(CampaignRes)
		if !ok {
			return false
		}
		switch c.Status {
		case models.CampaignActive, models.CampaignCompleted, models.CampaignCancelled:
			return true
		case models.CampaignDraft:
			return ownsCampaign(a, c) || a.IsAdmin()
		}
		return false

	case CampaignCreate:
		if a.IsGuest() {
			return false
		}
		switch a.Role {
		case models.RoleOrganizer, models.RoleAdmin:
			return true
		}
		return false

	case CampaignEdit, CampaignDelete:
		c, ok := res.(CampaignRes)
		if !ok {
			return false
		}
		return a.IsAdmin() || (a.Role == models.RoleOrganizer && ownsCampaign(a, c))

	case DonationCreate:
		c, ok := res.(CampaignRes)
		if !ok {
			return false
		}
		return c.Status == models.CampaignActive

	case DonationView:
		d, ok := res.(DonationRes)
		if !ok {
			return false
		}
		return a.IsAdmin() || isDonor(a, d)

	case DonationStatusChange, DonationFinancialEdit, PaymentManage, DashboardView, UserRoleChange:
		return a.IsAdmin()

	case DonationDelete:
		d, ok := res.(DonationRes)
		if !ok {
			return false
		}
		return a.IsAdmin() || isDonor(a, d)

	case ReportCreate:
		r, ok := res.(ReportRes)
		if !ok {
			return false
		}
		return a.IsAdmin() || (a.Role == models.RoleOrganizer && ownsCampaign(a, r.Campaign))

	case ReportEdit, ReportDelete:
		r, ok := res.(ReportRes)
		if !ok {
			return false
		}
		return !a.IsGuest() && r.AuthorID == a.ID

	case UserUpdate:
		u, ok := res.(UserRes)
		if !ok {
			return false
		}
		return a.IsAdmin() || (!a.IsGuest() && u.ID == a.ID)

	case UserDelete:
		u, ok := res.(UserRes)
		if !ok {
			return false
		}
		return a.IsAdmin() && u.ID != a.ID
	}
	return false
}

func ownsCampaign(a Actor, c CampaignRes) bool {
	return !a.IsGuest() && c.OrganizerID == a.ID
}

func isDonor(a Actor, d DonationRes) bool {
	return !a.IsGuest() && d.DonorID != nil && *d.DonorID == a.ID
}
