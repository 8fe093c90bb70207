// Package validator provides a unified validation component based on go-playground/validator.
// It offers global validator initialization, custom validation rules, and
// translated, human-readable error messages for HTTP responses.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Validator wraps go-playground/validator with JSON field naming and
// translated error messages.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	globalValidator *Validator
	once            sync.Once
)

// Global returns the global validator instance, initializing it on first use.
func Global() *Validator {
	once.Do(func() {
		globalValidator = New()
	})
	return globalValidator
}

// New creates a new Validator instance with default configuration.
func New() *Validator {
	v := &Validator{
		validate: validator.New(),
	}

	// Use JSON tag names for error field names.
	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	v.trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.trans)

	v.registerCustomRules()

	return v
}

// Validate validates a struct and returns raw validation errors.
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// ValidateStruct validates a struct and returns translated field errors,
// or nil when the struct is valid.
func (v *Validator) ValidateStruct(s interface{}) *ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	return v.Translate(err)
}

// ValidateVar validates a single variable against a tag expression.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validate.Var(field, tag)
}

// Translate converts a validator error into translated field errors.
// Non-validator errors are wrapped as a single opaque entry.
func (v *Validator) Translate(err error) *ValidationErrors {
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationErrors{
			Errors: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}},
		}
	}

	result := &ValidationErrors{
		Errors: make([]FieldError, 0, len(validationErrors)),
	}
	for _, fe := range validationErrors {
		result.Errors = append(result.Errors, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fe.Translate(v.trans),
		})
	}
	return result
}

// Engine returns the underlying validator.Validate instance.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// registerCustomRules installs docchat-specific validation rules.
func (v *Validator) registerCustomRules() {
	// notblank rejects strings that are empty after trimming whitespace;
	// "required" alone accepts strings like "   ".
	_ = v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.validate.RegisterTranslation("notblank", v.trans,
		func(ut ut.Translator) error {
			return ut.Add("notblank", "{0} cannot be blank", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("notblank", fe.Field())
			return t
		},
	)
}
