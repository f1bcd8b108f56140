// Package forms reads campaign and report form submissions onto models.
// Absent keys leave the model field as it is, so the same readers serve
// create and partial update.
package forms

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"donamaha/apperr"
	"donamaha/models"
	"donamaha/utils"
)

const dateLayout = "2006-01-02"

// Parse parses a multipart or urlencoded body.
func Parse(r *http.Request) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(utils.MaxImageBytes + 1<<20)
	} else {
		err = r.ParseForm()
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Field("image", "Gambar maksimal 2MB")
	}
	if err != nil {
		return apperr.Validation("Form tidak valid", nil)
	}
	return nil
}

// Has reports whether key was submitted.
func Has(r *http.Request, key string) bool {
	if _, ok := r.Form[key]; ok {
		return true
	}
	if r.MultipartForm != nil {
		if _, ok := r.MultipartForm.File[key]; ok {
			return true
		}
	}
	return false
}

func value(r *http.Request, key string) string {
	return strings.TrimSpace(r.Form.Get(key))
}

type campaignInput struct {
	Title        string `form:"title" validate:"required,max=255"`
	Description  string `form:"description" validate:"required"`
	TargetAmount int64  `form:"target_amount" validate:"gt=0"`
	Status       string `form:"status" validate:"required,oneof=draft active completed cancelled"`
}

// Campaign applies the submitted campaign fields to c and validates the
// result. Dates are whole days and end_date must come after start_date.
func Campaign(r *http.Request, c *models.Campaign) error {
	fields := map[string]string{}
	if Has(r, "title") {
		c.Title = value(r, "title")
	}
	if Has(r, "description") {
		c.Description = value(r, "description")
	}
	if Has(r, "target_amount") {
		n, err := strconv.ParseInt(value(r, "target_amount"), 10, 64)
		if err != nil {
			fields["target_amount"] = "Target harus berupa angka"
		} else {
			c.TargetAmount = n
		}
	}
	if Has(r, "status") {
		c.Status = models.CampaignStatus(value(r, "status"))
	}
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	if Has(r, "start_date") {
		if t, err := time.ParseInLocation(dateLayout, value(r, "start_date"), time.Local); err != nil {
			fields["start_date"] = "Format tanggal harus YYYY-MM-DD"
		} else {
			c.StartDate = t
		}
	}
	if Has(r, "end_date") {
		if t, err := time.ParseInLocation(dateLayout, value(r, "end_date"), time.Local); err != nil {
			fields["end_date"] = "Format tanggal harus YYYY-MM-DD"
		} else {
			c.EndDate = t
		}
	}

	in := campaignInput{Title: c.Title, Description: c.Description, TargetAmount: c.TargetAmount, Status: string(c.Status)}
	merge(fields, utils.ValidateStruct(in))
	if c.StartDate.IsZero() {
		setOnce(fields, "start_date", "Tanggal mulai wajib diisi")
	}
	if c.EndDate.IsZero() {
		setOnce(fields, "end_date", "Tanggal selesai wajib diisi")
	}
	if !c.StartDate.IsZero() && !c.EndDate.IsZero() && !c.EndDate.After(c.StartDate) {
		setOnce(fields, "end_date", "Tanggal selesai harus setelah tanggal mulai")
	}
	if len(fields) > 0 {
		return apperr.Validation("Data tidak valid", fields)
	}
	return nil
}

type reportInput struct {
	Title      string `form:"title" validate:"required,max=255"`
	Content    string `form:"content" validate:"required"`
	TotalSpent int64  `form:"total_spent" validate:"gte=0"`
}

// Report applies the submitted report fields to rep. An empty published_at
// clears the publication date.
func Report(r *http.Request, rep *models.Report) error {
	fields := map[string]string{}
	if Has(r, "title") {
		rep.Title = value(r, "title")
	}
	if Has(r, "content") {
		rep.Content = value(r, "content")
	}
	if Has(r, "total_spent") {
		n, err := strconv.ParseInt(value(r, "total_spent"), 10, 64)
		if err != nil {
			fields["total_spent"] = "Total pengeluaran harus berupa angka"
		} else {
			rep.TotalSpent = n
		}
	}
	if Has(r, "published_at") {
		switch v := value(r, "published_at"); v {
		case "":
			rep.PublishedAt = nil
		default:
			t, err := time.ParseInLocation(dateLayout, v, time.Local)
			if err != nil {
				fields["published_at"] = "Format tanggal harus YYYY-MM-DD"
			} else {
				rep.PublishedAt = &t
			}
		}
	}

	merge(fields, utils.ValidateStruct(reportInput{Title: rep.Title, Content: rep.Content, TotalSpent: rep.TotalSpent}))
	if rep.Content != "" && utf8.RuneCountInString(rep.Content) < models.MinReportContent {
		setOnce(fields, "content", "Isi laporan minimal 100 karakter")
	}
	if len(fields) > 0 {
		return apperr.Validation("Data tidak valid", fields)
	}
	return nil
}

// Image stores the file submitted under key, if any. It returns nil when no
// file was sent.
func Image(r *http.Request, key, folder string) (*string, error) {
	file, header, err := r.FormFile(key)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Field(key, "Gagal membaca gambar")
	}
	defer file.Close()
	stored, err := utils.SaveImage(r.Context(), folder, file, header)
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func merge(fields map[string]string, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		for k, v := range ae.Fields {
			setOnce(fields, k, v)
		}
	}
}

func setOnce(fields map[string]string, k, v string) {
	if _, ok := fields[k]; !ok {
		fields[k] = v
	}
}
