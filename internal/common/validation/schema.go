package validation

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed submission.json
var submissionSchema string

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

// ValidationError describes one schema violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SubmissionValidator checks application submissions against the embedded
// JSON schema and the contact-format rules.
type SubmissionValidator struct {
	schema *gojsonschema.Schema
}

func NewSubmissionValidator() (*SubmissionValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(submissionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile submission schema: %w", err)
	}
	return &SubmissionValidator{schema: schema}, nil
}

// Validate returns every violation found in doc.
func (v *SubmissionValidator) Validate(doc interface{}) ([]ValidationError, error) {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}

	var errs []ValidationError
	for _, e := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   e.Field(),
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	return errs, nil
}

// ValidateSubmission returns a VALIDATION_ERROR naming the first offending
// field, with all violations attached as metadata.
func (v *SubmissionValidator) ValidateSubmission(doc interface{}) error {
	errs, err := v.Validate(doc)
	if err != nil {
		return apperrors.NewValidationError("body", fmt.Sprintf("document could not be validated: %v", err))
	}

	if p, ok := profileOf(doc); ok {
		errs = append(errs, ValidateContact("applicant", p)...)
	}
	if len(errs) == 0 {
		return nil
	}

	first := errs[0]
	return apperrors.NewValidationError(first.Field, first.Message).
		WithMetadata("violations", errs)
}

// ValidateContact checks the optional email and phone of a profile.
func ValidateContact(prefix string, p models.ApplicantProfile) []ValidationError {
	var errs []ValidationError
	if email := strings.TrimSpace(p.Email); email != "" && !ValidateEmail(email) {
		errs = append(errs, ValidationError{Field: prefix + ".email", Message: "invalid email address", Code: "FORMAT"})
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" && !ValidatePhone(phone) {
		errs = append(errs, ValidationError{Field: prefix + ".phone", Message: "invalid phone number", Code: "FORMAT"})
	}
	return errs
}

func profileOf(doc interface{}) (models.ApplicantProfile, bool) {
	type applicantCarrier interface {
		ApplicantProfile() models.ApplicantProfile
	}
	if c, ok := doc.(applicantCarrier); ok {
		return c.ApplicantProfile(), true
	}
	return models.ApplicantProfile{}, false
}

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
