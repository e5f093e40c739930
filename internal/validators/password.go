package validators

import (
	"strings"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const passwordSpecialSet = "!@#$%^&*"

// IsPasswordValid enforces the account password policy: 8 to 16 characters,
// at least one uppercase letter and at least one character from the fixed
// special set.
func IsPasswordValid(pw string) bool {
	if len(pw) < 8 || len(pw) > 16 {
		return false
	}

	hasUpper := false
	hasSpecial := false
	for _, r := range pw {
		if unicode.IsUpper(r) {
			hasUpper = true
		}
		if strings.ContainsRune(passwordSpecialSet, r) {
			hasSpecial = true
		}
	}

	return hasUpper && hasSpecial
}

// RegisterPasswordTag wires the policy into gin's binding engine as the
// `password` tag, so request structs declare it next to required/email.
func RegisterPasswordTag() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return IsPasswordValid(fl.Field().String())
		})
	}
}
