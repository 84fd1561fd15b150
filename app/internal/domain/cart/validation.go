package cart

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

type ValidationPolicy string

const (
	// PolicyPresence only rejects an empty title or thumbnail URL.
	PolicyPresence ValidationPolicy = "presence"
	// PolicyStrict also rejects blank text and out-of-range numbers.
	PolicyStrict ValidationPolicy = "strict"
)

func ParseValidationPolicy(s string) (ValidationPolicy, error) {
	switch p := ValidationPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyPresence, nil
	case PolicyPresence, PolicyStrict:
		return p, nil
	default:
		return "", fmt.Errorf("unknown validation policy %q", s)
	}
}

var policyRules = map[ValidationPolicy]map[string]string{
	PolicyPresence: {
		"Title":        "required",
		"ThumbnailURL": "required",
	},
	PolicyStrict: {
		"Title":           "required,notblank",
		"ThumbnailURL":    "required,notblank",
		"Price":           "gte=0",
		"DiscountPercent": "gte=0,lte=100",
		"Quantity":        "gte=1",
	},
}

type Validator struct {
	policy   ValidationPolicy
	validate *validator.Validate
}

func NewValidator(policy ValidationPolicy) *Validator {
	rules, ok := policyRules[policy]
	if !ok {
		policy = PolicyPresence
		rules = policyRules[PolicyPresence]
	}

	validate := validator.New()
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("cart: register notblank validation: %v", err))
	}
	validate.RegisterStructValidationMapRules(rules, LineItem{})

	return &Validator{policy: policy, validate: validate}
}

func (v *Validator) Policy() ValidationPolicy {
	return v.policy
}

func (v *Validator) ValidateItem(item LineItem) error {
	if err := v.validate.Struct(item); err != nil {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return nil
}

// ValidateQuantity checks a bare quantity the way ValidateItem checks the
// Quantity field. Only the strict policy constrains it.
func (v *Validator) ValidateQuantity(quantity int64) error {
	if v.policy != PolicyStrict {
		return nil
	}
	if err := v.validate.Var(quantity, "gte=1"); err != nil {
		return fmt.Errorf("%w: quantity: %w", ErrConstraintViolation, err)
	}
	return nil
}
