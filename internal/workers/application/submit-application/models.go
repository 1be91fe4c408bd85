// internal/workers/application/submit-application/models.go
package submitapplication

import "assistance-workflow/internal/workflow"

// Input is the intake form as carried in the process variables.
type Input struct {
	workflow.SubmitRequest
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ReferenceNo       string `json:"referenceNo"`
	ApplicationStatus string `json:"applicationStatus"`
	DuplicateWarning  bool   `json:"duplicateWarning"`
	DuplicateOf       string `json:"duplicateOf,omitempty"`
}
