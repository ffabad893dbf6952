package validator

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,29}$`)
	roleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

	// Permissions are stored comma separated, so ',' and whitespace are out.
	permissionPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]{1,100}$`)

	validate *validator.Validate
	once     sync.Once
)

func init() {
	validate = validator.New()
	mustRegister(validate)
}

// RegisterGinValidators installs the custom tags on gin's binding engine so
// `binding:"password"` works in request DTOs. Safe to call more than once.
func RegisterGinValidators() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			mustRegister(v)
		}
	})
}

func mustRegister(v *validator.Validate) {
	if err := v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
		return IsValidRoleName(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	if err := v.RegisterValidation("permission", func(fl validator.FieldLevel) bool {
		return IsValidPermission(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// IsStrongPassword: 8-128 chars with upper, lower, digit and a special character.
func IsStrongPassword(pw string) bool {
	if len(pw) < minPasswordLength || len(pw) > maxPasswordLength {
		return false
	}
	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return upper && lower && digit && special
}

func IsValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

func IsValidRoleName(name string) bool {
	return roleNamePattern.MatchString(name)
}

func IsValidPermission(perm string) bool {
	return permissionPattern.MatchString(perm)
}

// Validate struct fields
func Validate(v interface{}) map[string]string {
	return Errors(validate.Struct(v))
}

// Errors flattens validation failures into field -> tag. Errors that are not
// validation errors (bad JSON, wrong types) come back under "body".
func Errors(err error) map[string]string {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
