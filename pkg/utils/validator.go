package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	slugRegex    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	slugStripper = regexp.MustCompile(`[^a-z0-9]+`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator with the custom "slug" tag registered
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return ValidateSlug(fl.Field().String()) == nil
		})
	})
	return validate
}

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if err := Validator().Var(email, "required,email"); err != nil {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

// ValidateSlug checks an organization slug: lowercase words joined by single hyphens
func ValidateSlug(slug string) error {
	if len(slug) < 3 || len(slug) > 48 {
		return fmt.Errorf("slug must be between 3 and 48 characters: %s", slug)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("slug may only contain lowercase letters, digits and single hyphens: %s", slug)
	}
	return nil
}

// Slugify derives a slug from a display name
func Slugify(name string) string {
	s := slugStripper.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	return s
}

// ValidateAmount validates a reimbursement amount
func ValidateAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %.2f", amount)
	}
	return nil
}

// SanitizeString removes control characters and surrounding whitespace
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ValidationMessages flattens validator errors into "field: problem" strings
func ValidationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+": is required")
		case "email":
			msgs = append(msgs, field+": must be a valid email")
		case "gt", "gte":
			msgs = append(msgs, fmt.Sprintf("%s: must be greater than %s", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s: must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s: must be one of [%s]", field, fe.Param()))
		case "slug":
			msgs = append(msgs, field+": must be a lowercase slug")
		default:
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", field, fe.Tag()))
		}
	}
	return msgs
}
