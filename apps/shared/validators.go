// Package shared holds wiring used by every app binary.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/class"
	"github.com/trezcool/sundayschool/core/user"
)

// NewValidator returns a validator with every custom tag registered,
// and the english translator for its error messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	class.InitValidators(validate, translator)

	return validate, translator
}
