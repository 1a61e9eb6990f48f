package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/model"
)

// tagAnswerRequired is reported when a submission carries neither an option
// nor essay text.
const tagAnswerRequired = "answer_required"

var (
	once      sync.Once
	setupOnce sync.Once
	standard  *govalidator.Validate

	// Each engine owns its translator; registering defaults twice on one
	// translator fails on duplicate keys.
	stdTrans ut.Translator
	ginTrans ut.Translator
)

// Setup registers json tag names, translations and the answer rule on Gin's
// binding engine. Call once before serving requests.
func Setup() {
	setupOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
			ginTrans = newTranslator()
			configure(v, ginTrans)
		}
	})
}

// Struct validates v with the `binding` tags used across the models and
// returns an apierr Validation error carrying translated field messages.
func Struct(v interface{}) error {
	once.Do(func() {
		standard = govalidator.New(govalidator.WithRequiredStructEnabled())
		standard.SetTagName("binding")
		stdTrans = newTranslator()
		configure(standard, stdTrans)
	})
	if err := standard.Struct(v); err != nil {
		return &apierr.Error{
			Kind:    apierr.KindValidation,
			Message: "invalid request",
			Fields:  translate(err, stdTrans),
			Err:     err,
		}
	}
	return nil
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	return translate(err, ginTrans)
}

func translate(err error, tr ut.Translator) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if tr == nil {
				fields[fe.Field()] = fe.Error()
				continue
			}
			fields[fe.Field()] = fe.Translate(tr)
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

func newTranslator() ut.Translator {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	tr, _ := uni.GetTranslator("en")
	return tr
}

func configure(v *govalidator.Validate, tr ut.Translator) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = en_translations.RegisterDefaultTranslations(v, tr)

	v.RegisterStructValidation(answerPresent, model.SubmitAnswerRequest{})
	_ = v.RegisterTranslation(tagAnswerRequired, tr,
		func(u ut.Translator) error {
			return u.Add(tagAnswerRequired, "either mockOptionId or answerText must be provided", true)
		},
		func(u ut.Translator, fe govalidator.FieldError) string {
			msg, _ := u.T(tagAnswerRequired)
			return msg
		},
	)
}

func answerPresent(sl govalidator.StructLevel) {
	req := sl.Current().Interface().(model.SubmitAnswerRequest)
	if req.MockOptionID != nil {
		return
	}
	if req.AnswerText != nil && strings.TrimSpace(*req.AnswerText) != "" {
		return
	}
	sl.ReportError(req.AnswerText, "answerText", "AnswerText", tagAnswerRequired, "")
}
