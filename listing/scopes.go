package listing

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Sort whitelists the columns a listing may be ordered by. Keys are the
// public names, values the qualified SQL columns.
type Sort struct {
	Columns map[string]string
	Default string
	// Table qualifies the id tiebreak when the query joins other tables.
	Table string
}

func (s Sort) Scope(p Params) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		col, ok := s.Columns[p.Sort]
		if !ok {
			col = s.Columns[s.Default]
		}
		dir := " DESC"
		if !p.Desc {
			dir = " ASC"
		}
		id := "id"
		if s.Table != "" {
			id = s.Table + ".id"
		}
		return db.Order(col + dir).Order(id + dir)
	}
}

// Search matches term case-insensitively as a substring of any of columns.
func Search(term string, columns ...string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if term == "" || len(columns) == 0 {
			return db
		}
		like := "%" + escapeLike(strings.ToLower(term)) + "%"
		conds := make([]string, len(columns))
		args := make([]interface{}, len(columns))
		for i, c := range columns {
			conds[i] = "LOWER(" + c + ") LIKE ? ESCAPE '!'"
			args[i] = like
		}
		return db.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Equals filters column == value when value is non-empty.
func Equals(column, value string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if value == "" {
			return db
		}
		return db.Where(column+" = ?", value)
	}
}

// AmountRange is an inclusive range over column.
func AmountRange(column string, min, max *int64) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if min != nil {
			db = db.Where(column+" >= ?", *min)
		}
		if max != nil {
			db = db.Where(column+" <= ?", *max)
		}
		return db
	}
}

// DateRange is an inclusive range of whole days over column.
func DateRange(column string, from, to *time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if from != nil {
			db = db.Where(column+" >= ?", *from)
		}
		if to != nil {
			db = db.Where(column+" < ?", to.AddDate(0, 0, 1))
		}
		return db
	}
}

// Bool filters column on a tri-state flag. Nil means no filter.
func Bool(column string, v *bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if v == nil {
			return db
		}
		return db.Where(column+" = ?", *v)
	}
}

// ID filters column == id when id is non-zero.
func ID(column string, id uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if id == 0 {
			return db
		}
		return db.Where(column+" = ?", id)
	}
}
