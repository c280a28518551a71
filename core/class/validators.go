package class

import (
	"regexp"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
)

var (
	weekdayTag  = "weekday"
	weekdayText = "must be a day of the week, e.g. Sunday"

	classTimeTag  = "classtime"
	classTimeText = "must be a time like 10:00 AM"
	classTimeRe   = regexp.MustCompile(`^(0?[1-9]|1[0-2]):[0-5][0-9] (AM|PM)$`)
)

// InitValidators registers the class validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(weekdayTag, weekdayValidation)
	core.RegisterCustomTranslation(validate, translator, weekdayTag, weekdayText)

	_ = validate.RegisterValidation(classTimeTag, classTimeValidation)
	core.RegisterCustomTranslation(validate, translator, classTimeTag, classTimeText)
}

func weekdayValidation(fl validator.FieldLevel) bool {
	day := fl.Field().String()
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == day {
			return true
		}
	}
	return false
}

func classTimeValidation(fl validator.FieldLevel) bool {
	return classTimeRe.MatchString(fl.Field().String())
}
