package school

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
)

var (
	isoDateTag  = "isodate"
	isoDateText = "date must be formatted as YYYY-MM-DD"

	examTypeTag  = "examtype"
	examTypeText = "exam type must be one of quiz, assignment, midterm, final, project"

	attStatusTag  = "attstatus"
	attStatusText = "status must be one of present, absent, late"

	lteFieldTag  = "ltefield"
	lteFieldText = "{0} cannot exceed the total"
)

// InitValidators registers the school form validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(isoDateTag, isoDateValidation)
	core.RegisterCustomTranslation(validate, translator, isoDateTag, isoDateText)

	_ = validate.RegisterValidation(examTypeTag, examTypeValidation)
	core.RegisterCustomTranslation(validate, translator, examTypeTag, examTypeText)

	_ = validate.RegisterValidation(attStatusTag, attStatusValidation)
	core.RegisterCustomTranslation(validate, translator, attStatusTag, attStatusText)

	core.RegisterCustomTranslation(validate, translator, lteFieldTag, lteFieldText, true)
}

func isoDateValidation(fl validator.FieldLevel) bool {
	_, err := time.Parse(DateLayout, fl.Field().String())
	return err == nil
}

func examTypeValidation(fl validator.FieldLevel) bool {
	return ExamType(fl.Field().String()).Valid()
}

func attStatusValidation(fl validator.FieldLevel) bool {
	return AttendanceStatus(fl.Field().String()).Valid()
}
