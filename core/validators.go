package core

import (
	"reflect"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	notBlankTag  = "notblank"
	notBlankText = "this field cannot be blank"
)

// InitValidators readies the shared validator: english error messages,
// JSON tag names in errors and the app-wide custom tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	Validate = validate
	Translator = translator

	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	RegisterCustomTranslation(validate, translator, notBlankTag, notBlankText)
}

// RegisterCustomTranslation registers a static error message for a custom tag.
// a validator.RegisterTranslationsFunc is required for registering the Translator,
// but the default translation has already been registered;
// so a noop func is passed to bypass this requirement.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	registerFn := func(ut.Translator) error { return nil }
	transFn := func(_ ut.Translator, _ validator.FieldError) string { return text }
	_ = validate.RegisterTranslation(tag, translator, registerFn, transFn)
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}
