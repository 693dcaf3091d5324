package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// LoginPayload is the login request body
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will validate the payload
func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupPayload is the registration request body
type SignupPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Name     string `json:"name" form:"name"`
}

// Validate will validate the payload
func (r SignupPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		// Length counts bytes for strings, the unit bcrypt limits
		validation.Field(&r.Password, validation.Required, validation.Length(6, MaxPasswordBytes)),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
	)
}

// ResendVerificationPayload is the resend request body
type ResendVerificationPayload struct {
	Email string `json:"email" form:"email"`
}

// Validate will validate the payload
func (r ResendVerificationPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError wraps ozzo field errors as ErrInvalidPayload, one
// envelope entry per field.
func validationError(err error, errCtx string) error {
	if err == nil {
		return nil
	}

	fields := map[string]string{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			fields[field] = ferr.Error()
		}
	}

	return goerrors.Wrap(err, goerrors.CategoryValidation, ErrInvalidPayload.Message).
		WithTextCode(TextCodeInvalidPayload).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			MetaContext: errCtx,
			"fields":    fields,
		})
}
