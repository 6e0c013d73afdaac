// Package inputval validates telemetry payloads and query parameters with
// go-playground/validator and turns failures into short, user-facing messages.
//
// Define an input struct with validate tags, populate it from the request,
// and call Validate:
//
//	type loginAttemptBody struct {
//	    Email  string `json:"email" validate:"required,max=254" label:"Email"`
//	    Status string `json:"status" validate:"required,loginstatus" label:"Status"`
//	}
//
//	if res := inputval.Validate(body); res.HasErrors() {
//	    return secerr.Invalid(res.Errors[0].Field, "%s", res.First())
//	}
package inputval

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/dalemusser/stratashield/internal/domain/models"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// All returns all error messages joined with "; ".
func (r *Result) All() string {
	if len(r.Errors) == 0 {
		return ""
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// getValidator returns the singleton validator with custom rules.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json names so messages and labels line up with the payload.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})

		// severity: low, medium, high or critical (case-insensitive, empty allowed)
		_ = validate.RegisterValidation("severity", func(fl validator.FieldLevel) bool {
			s := strings.ToLower(strings.TrimSpace(fl.Field().String()))
			return s == "" || models.IsSeverity(s)
		})

		// loginstatus: one of the known login attempt statuses
		_ = validate.RegisterValidation("loginstatus", func(fl validator.FieldLevel) bool {
			return IsValidLoginStatus(fl.Field().String())
		})

		// objectid: valid MongoDB ObjectID hex
		_ = validate.RegisterValidation("objectid", func(fl validator.FieldLevel) bool {
			return IsValidObjectID(fl.Field().String())
		})

		// emailaddr: the address shape accepted by the account service
		_ = validate.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return IsValidEmail(fl.Field().String())
		})
	})
	return validate
}

// Validate validates a struct and returns a Result with user-friendly errors.
// The struct should have `validate` tags for rules and optional `label` tags
// for user-friendly field names.
//
// Custom rules registered by this package:
//   - severity: low, medium, high, critical (empty is allowed)
//   - loginstatus: success, failed, error, register_success
//   - objectid: MongoDB ObjectID hex string
//   - emailaddr: local@domain.tld address
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		result.Errors = append(result.Errors, FieldError{Message: "Input is invalid."})
		return result
	}

	labels := getFieldLabels(s)

	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		for _, e := range errs {
			label := labels[e.Field()]
			if label == "" {
				label = e.Field()
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field(),
				Label:   label,
				Message: formatMessage(label, e.Tag(), e.Param(), e.Kind()),
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" && parts[0] != "-" {
				fieldName = parts[0]
			}
		}

		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

// formatMessage creates a user-friendly message for a validation rule.
func formatMessage(label, rule, param string, kind reflect.Kind) string {
	numeric := kind >= reflect.Int && kind <= reflect.Float64
	switch rule {
	case "required":
		return label + " is required."
	case "email", "emailaddr":
		return "A valid email address is required."
	case "oneof":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min", "gte":
		if numeric {
			return label + " must be at least " + param + "."
		}
		return label + " must be at least " + param + " characters."
	case "max", "lte":
		if numeric {
			return label + " must be at most " + param + "."
		}
		return label + " must be at most " + param + " characters."
	case "severity":
		return label + " must be one of: " + strings.Join(models.AllSeverities(), ", ") + "."
	case "loginstatus":
		return label + " must be one of: " + strings.Join(models.AllLoginStatuses(), ", ") + "."
	case "objectid":
		return label + " is not a valid ID."
	case "ip", "ipv4", "ipv6":
		return label + " must be a valid IP address."
	default:
		return label + " is invalid."
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail reports whether email looks like local@domain.tld.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	if strings.Count(email, "@") != 1 {
		return false
	}
	return emailPattern.MatchString(email)
}

// EmailDomain returns the lowercased part after '@', or "" when there is none.
func EmailDomain(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndexByte(email, '@')
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// DefaultAllowedDomains lists the domains the account service accepts at
// registration.
var DefaultAllowedDomains = []string{"gmail.com", "yahoo.com", "charusat.edu.in", "charusat.ac.in"}

// DomainPolicy decides whether an email's domain may register.
// An empty policy allows every domain.
type DomainPolicy struct {
	allowed map[string]struct{}
	order   []string
}

// NewDomainPolicy builds a policy from a domain list; blanks are ignored.
func NewDomainPolicy(domains []string) DomainPolicy {
	p := DomainPolicy{allowed: make(map[string]struct{}, len(domains))}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := p.allowed[d]; dup {
			continue
		}
		p.allowed[d] = struct{}{}
		p.order = append(p.order, d)
	}
	return p
}

// Allows reports whether email's domain is on the list.
func (p DomainPolicy) Allows(email string) bool {
	if len(p.allowed) == 0 {
		return true
	}
	_, ok := p.allowed[EmailDomain(email)]
	return ok
}

// Domains returns the allowed domains in configuration order.
func (p DomainPolicy) Domains() []string {
	return append([]string(nil), p.order...)
}

// Message is the rejection text shown to the registering user.
func (p DomainPolicy) Message() string {
	return "Invalid email domain. Please use one of: " + strings.Join(p.order, ", ")
}

// IsValidLoginStatus checks if status (case-insensitive) is a known login status.
func IsValidLoginStatus(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	for _, s := range models.AllLoginStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
