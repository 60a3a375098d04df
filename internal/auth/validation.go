package auth

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SignupRequest is the service-provider signup form.
type SignupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	DisplayName     string `json:"displayName" validate:"max=120"`
	Phone           string `json:"phone" validate:"max=40"`
	BusinessName    string `json:"businessName" validate:"required,max=200"`
	ServiceCategory string `json:"serviceCategory" validate:"required,max=100"`
	ContactName     string `json:"contactName" validate:"required,max=120"`
}

// AdminSignupRequest creates an administrator account.
type AdminSignupRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	DisplayName     string `json:"displayName" validate:"required,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidationError lists the user-facing problems with a form. It is returned
// before any external call is made.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, " ")
}

var fieldLabels = map[string]string{
	"Email":           "Email",
	"Password":        "Password",
	"ConfirmPassword": "Password confirmation",
	"DisplayName":     "Name",
	"Phone":           "Phone",
	"BusinessName":    "Business name",
	"ServiceCategory": "Service category",
	"ContactName":     "Contact name",
}

func validateForm(v *validator.Validate, form any) error {
	err := v.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Messages = append(out.Messages, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "min":
		return label + " must be at least " + fe.Param() + " characters."
	case "max":
		return label + " must be at most " + fe.Param() + " characters."
	case "eqfield":
		return "Passwords do not match."
	}
	return label + " is invalid."
}
