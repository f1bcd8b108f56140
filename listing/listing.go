// Package listing turns query strings into filtered, sorted and paginated
// GORM queries.
package listing

import (
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"donamaha/apperr"

	"gorm.io/gorm"
)

// Page sizes per resource.
const (
	UsersPerPage     = 15
	CampaignsPerPage = 15
	DonationsPerPage = 20
	PaymentsPerPage  = 20
	ReportsPerPage   = 10
	LedgerPerPage    = 50
)

const dateLayout = "2006-01-02"

// Params holds every filter a listing may use. Zero values mean "not set".
type Params struct {
	Page       int
	Search     string
	Status     string
	Sort       string
	Desc       bool
	AmountMin  *int64
	AmountMax  *int64
	DateFrom   *time.Time
	DateTo     *time.Time
	EndFrom    *time.Time
	EndTo      *time.Time
	Anonymous  *bool
	CampaignID uint
	Role       string
	Method     string
}

// Parse reads Params from a query string. Malformed values are reported as
// a validation error keyed by parameter name.
func Parse(q url.Values) (Params, error) {
	p := Params{
		Page:   1,
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.TrimSpace(q.Get("status")),
		Sort:   strings.TrimSpace(q.Get("sort")),
		Role:   strings.TrimSpace(q.Get("role")),
		Method: strings.TrimSpace(q.Get("method")),
		Desc:   true,
	}
	fields := map[string]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["page"] = "page must be a positive integer"
		} else {
			p.Page = n
		}
	}
	switch strings.ToLower(q.Get("direction")) {
	case "", "desc":
	case "asc":
		p.Desc = false
	default:
		fields["direction"] = "direction must be asc or desc"
	}
	p.AmountMin = parseAmount(q, "amount_min", fields)
	p.AmountMax = parseAmount(q, "amount_max", fields)
	if p.AmountMin != nil && p.AmountMax != nil && *p.AmountMin > *p.AmountMax {
		fields["amount_max"] = "amount_max must not be below amount_min"
	}
	p.DateFrom = parseDate(q, "date_from", fields)
	p.DateTo = parseDate(q, "date_to", fields)
	if p.DateFrom != nil && p.DateTo != nil && p.DateTo.Before(*p.DateFrom) {
		fields["date_to"] = "date_to must not be before date_from"
	}
	p.EndFrom = parseDate(q, "end_from", fields)
	p.EndTo = parseDate(q, "end_to", fields)
	if p.EndFrom != nil && p.EndTo != nil && p.EndTo.Before(*p.EndFrom) {
		fields["end_to"] = "end_to must not be before end_from"
	}
	if v := q.Get("anonymous"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["anonymous"] = "anonymous must be true or false"
		} else {
			p.Anonymous = &b
		}
	}
	if v := q.Get("campaign_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			fields["campaign_id"] = "campaign_id must be a positive integer"
		} else {
			p.CampaignID = uint(n)
		}
	}

	if len(fields) > 0 {
		return p, apperr.Validation("invalid query parameters", fields)
	}
	return p, nil
}

func parseAmount(q url.Values, key string, fields map[string]string) *int64 {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		fields[key] = key + " must be a non-negative integer"
		return nil
	}
	return &n
}

func parseDate(q url.Values, key string, fields map[string]string) *time.Time {
	v := q.Get(key)
	if v == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.Local)
	if err != nil {
		fields[key] = key + " must be YYYY-MM-DD"
		return nil
	}
	return &t
}

// Page is one page of a listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

// Map converts the items of p, keeping the paging fields.
func Map[T, U any](p Page[T], f func(T) U) Page[U] {
	out := Page[U]{Items: make([]U, 0, len(p.Items)), Page: p.Page, PerPage: p.PerPage, Total: p.Total, LastPage: p.LastPage}
	for _, it := range p.Items {
		out.Items = append(out.Items, f(it))
	}
	return out
}

// Find counts the rows matched by query, then loads the requested page
// ordered by sort with id as tiebreak. Preloads only apply to the page query.
func Find[T any](query *gorm.DB, p Params, perPage int, sort Sort, preloads ...string) (Page[T], error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Page[T]{}, err
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	items := make([]T, 0, perPage)
	q := query.Session(&gorm.Session{})
	for _, rel := range preloads {
		q = q.Preload(rel)
	}
	err := q.Scopes(sort.Scope(p)).
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&items).Error
	if err != nil {
		return Page[T]{}, err
	}
	last := int(math.Ceil(float64(total) / float64(perPage)))
	if last < 1 {
		last = 1
	}
	return Page[T]{Items: items, Page: page, PerPage: perPage, Total: total, LastPage: last}, nil
}
