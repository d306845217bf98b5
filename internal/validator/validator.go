package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// domainRule is a binding tag backed by a model enum or parser.
type domainRule struct {
	tag     string
	valid   func(string) bool
	message string
}

var domainRules = []domainRule{
	{
		tag:     "attendance_status",
		valid:   func(s string) bool { return model.AttendanceStatus(s).IsValid() },
		message: "{0} must be one of unmarked, present, absent, late, early_leave",
	},
	{
		tag:     "enrollment_status",
		valid:   func(s string) bool { return model.EnrollmentStatus(s).IsValid() },
		message: "{0} must be one of pending, confirmed, cancelled",
	},
	{
		tag:     "initiated_from",
		valid:   func(s string) bool { return model.InitiatedFrom(s).IsValid() },
		message: "{0} must be one of source, target",
	},
	{
		tag:     "reason_type",
		valid:   func(s string) bool { return model.ReasonType(s).IsValid() },
		message: "{0} is not a known makeup reason",
	},
	{
		tag: "timeofday",
		valid: func(s string) bool {
			_, err := model.ParseTimeOfDay(s)
			return err == nil
		},
		message: "{0} must be a time of day such as 16:30",
	},
}

// Setup registers the validator with English translations and the domain
// tags on Gin's binding engine. Call once during application startup.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	// Field names in errors follow the json tag, then the form tag.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(v, trans)

	for _, r := range domainRules {
		_ = v.RegisterValidation(r.tag, func(fl govalidator.FieldLevel) bool {
			return r.valid(fl.Field().String())
		})
		_ = v.RegisterTranslation(r.tag, trans,
			func(ut ut.Translator) error {
				return ut.Add(r.tag, r.message, true)
			},
			func(ut ut.Translator, fe govalidator.FieldError) string {
				msg, _ := ut.T(r.tag, fe.Field())
				return msg
			},
		)
	}
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name to human-readable message. Anything that is not a validation
// error (malformed JSON, a non-numeric query value) lands under "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the JSON body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery is Bind for query-string parameters, read through form tags.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
