// Package validate turns go-playground/validator failures into per-field
// messages for ValidationFailed responses.
package validate

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/lalith-99/bikers/internal/apperr"
)

var aadhaarPattern = regexp.MustCompile(`^[0-9]{12}$`)

// IsAadhaar reports whether s is exactly 12 ASCII digits.
func IsAadhaar(s string) bool {
	return aadhaarPattern.MatchString(s)
}

type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New builds a validator with English messages, JSON field names and the
// custom "aadhaar" tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	english := en.New()
	trans, _ := ut.New(english, english).GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(v, trans); err != nil {
		panic("register validator translations: " + err.Error())
	}

	mustRegister(v, trans, "aadhaar", "{0} must be exactly 12 digits", func(fl validator.FieldLevel) bool {
		return IsAadhaar(fl.Field().String())
	})

	return &Validator{validate: v, trans: trans}
}

func mustRegister(v *validator.Validate, trans ut.Translator, tag, message string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic("register validation " + tag + ": " + err.Error())
	}
	err := v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, _ := ut.T(tag, fe.Field())
			return msg
		},
	)
	if err != nil {
		panic("register translation " + tag + ": " + err.Error())
	}
}

// Fields validates s and returns one message per failing field, in struct
// order. A nil result means s is valid.
func (v *Validator) Fields(s any) []apperr.FieldError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return []apperr.FieldError{apperr.Field("body", err.Error())}
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.Field(fieldPath(fe.Namespace()), fe.Translate(v.trans)))
	}
	return fields
}

// Struct is Fields wrapped as a ValidationFailed error, or nil.
func (v *Validator) Struct(s any) error {
	if fields := v.Fields(s); len(fields) > 0 {
		return apperr.Validation(fields...)
	}
	return nil
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

// fieldPath drops the root struct name: "markSoldInput.customer.name"
// becomes "customer.name".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
