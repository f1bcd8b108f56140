package utils

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"donamaha/apperr"

	"github.com/go-playground/validator/v10"
)

// Project tags on top of the validator/v10 built-ins:
// - nameok (letters, numbers, space, hyphen, apostrophe, dot, 1-100 chars)
// - pwdmin (min length 8)

const MinPasswordLength = 8

var (
	reNameOK = regexp.MustCompile(`^[\p{L}0-9 \-'.]{1,100}$`)

	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				name = strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("nameok", func(fl validator.FieldLevel) bool {
			return reNameOK.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("pwdmin", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) >= MinPasswordLength
		})
		validate = v
	})
	return validate
}

// ValidateStruct runs the `validate` tags of s and returns a validation error
// with one message per failing field, keyed by JSON name.
func ValidateStruct(s interface{}) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return apperr.Validation("Data tidak valid", fields)
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required", "required_without":
		return name + " wajib diisi"
	case "email":
		return name + " harus berupa email yang valid"
	case "nameok":
		return name + " mengandung karakter tidak valid"
	case "pwdmin":
		return name + " minimal 8 karakter"
	case "min":
		return name + " minimal " + fe.Param()
	case "max":
		return name + " maksimal " + fe.Param()
	case "gt":
		return name + " harus lebih besar dari " + fe.Param()
	case "gte":
		return name + " minimal " + fe.Param()
	case "gtfield":
		return name + " harus setelah " + fe.Param()
	case "eqfield":
		return name + " harus sama dengan " + fe.Param()
	case "oneof":
		return name + " harus salah satu dari: " + fe.Param()
	}
	return name + " tidak valid"
}
