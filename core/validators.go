package core

import (
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	ianaTZTag  = "iana_tz"
	ianaTZText = "{0} must be a valid IANA time zone"

	slugTag   = "slug"
	slugText  = "only lowercase letters, digits and dashes are allowed"
	slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

	weekdayTag  = "weekday"
	weekdayText = "{0} must be a weekday between 0 (Sunday) and 6 (Saturday)"

	frequencyTag  = "frequency"
	frequencyText = "{0} must be one of NONE, DAILY, WEEKLY or MONTHLY"
	frequencies   = []string{"", "NONE", "DAILY", "WEEKLY", "MONTHLY"}

	scopeTag  = "scope"
	scopeText = "{0} is not a known visibility scope"
	scopes    = []string{"PUBLIC", "PRIVATE", "GROUP", "PARISH", "CHAT", "CLERGY_ONLY", "ADMIN_ALL", "ADMIN_SPECIFIC"}

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredIfTag   = "required_if"
	requiredText    = "this field is required"
)

// NewValidator returns a validator with the english translator and the app validations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	InitValidators(validate, translator)
	return validate, translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(ianaTZTag, ianaTZValidation)
	RegisterCustomTranslation(validate, translator, ianaTZTag, ianaTZText)

	_ = validate.RegisterValidation(slugTag, slugValidation)
	RegisterCustomTranslation(validate, translator, slugTag, slugText)

	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(frequencyTag, frequencyValidation)
	RegisterCustomTranslation(validate, translator, frequencyTag, frequencyText)

	_ = validate.RegisterValidation(scopeTag, scopeValidation)
	RegisterCustomTranslation(validate, translator, scopeTag, scopeText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredIfTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

// ianaTZValidation accepts names the tz database knows. Empty strings are left to `required`.
func ianaTZValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func slugValidation(fl validator.FieldLevel) bool {
	return slugRegex.MatchString(fl.Field().String())
}

func weekdayValidation(fl validator.FieldLevel) bool {
	d := fl.Field().Int()
	return d >= 0 && d <= 6
}

func frequencyValidation(fl validator.FieldLevel) bool {
	return StringIn(fl.Field().String(), frequencies...)
}

func scopeValidation(fl validator.FieldLevel) bool {
	return StringIn(fl.Field().String(), scopes...)
}
