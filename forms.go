package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/pkg/errors"
)

const (
	fieldEmail       = "email"
	fieldPassword    = "password"
	fieldPassword1   = "password1"
	fieldPassword2   = "password2"
	fieldOldPassword = "old_password"
)

const (
	msgRequired     = "This field is required."
	msgInvalidEmail = "Enter a valid email address."
	msgTooLong      = "Ensure this value has at most 254 characters."
)

var (
	requiredRule = validation.Required.Error(msgRequired)
	emailRules   = []validation.Rule{
		requiredRule,
		validation.Length(0, 254).Error(msgTooLong),
		is.Email.Error(msgInvalidEmail),
	}
)

// RegisterForm is the registration input
type RegisterForm struct {
	Email     string `form:"email" json:"email"`
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
}

// Validate will run validation rules
func (r RegisterForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Password1, requiredRule),
		validation.Field(&r.Password2, requiredRule),
	)
}

// EmailForm is the input of resend activation and forgot password
type EmailForm struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r EmailForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
	)
}

// LoginForm is the login input
type LoginForm struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
		validation.Field(&r.Password, requiredRule),
	)
}

// SetPasswordForm is the new password pair
type SetPasswordForm struct {
	Password1 string `form:"password1" json:"password1"`
	Password2 string `form:"password2" json:"password2"`
}

// Validate will run validation rules
func (r SetPasswordForm) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Password1, requiredRule),
		validation.Field(&r.Password2, requiredRule),
	)
}

// ChangePasswordForm is the authenticated password change input
type ChangePasswordForm struct {
	OldPassword string `form:"old_password" json:"old_password"`
	Password1   string `form:"password1" json:"password1"`
	Password2   string `form:"password2" json:"password2"`
}

// Validate will run validation rules. The old password is checked by the
// operation because it is only required in some modes.
func (r ChangePasswordForm) Validate() error {
	return SetPasswordForm{Password1: r.Password1, Password2: r.Password2}.Validate()
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(MessagePasswordMismatch)
		}
		return nil
	}
}

// FieldErrorsFromValidation converts ozzo validation errors into FieldErrors.
// Non validation errors are reported under the "form" key.
func FieldErrorsFromValidation(err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		out.AddMessage("form", CodeInvalid, err.Error())
		return out
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		code := CodeInvalid
		if ferr.Error() == msgRequired {
			code = CodeRequired
		}
		out.AddMessage(field, code, ferr.Error())
	}
	return out
}

func validateForm(form validation.Validatable) FieldErrors {
	return FieldErrorsFromValidation(form.Validate())
}
