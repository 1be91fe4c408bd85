// internal/workers/application/transition-application/models.go
package transitionapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	ActorID       string `json:"actorId"`
	Role          string `json:"role"`
	Action        string `json:"action"`
	InterviewDate string `json:"interviewDate,omitempty"`
	InterviewTime string `json:"interviewTime,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type Output struct {
	ApplicationID     string   `json:"applicationId"`
	PreviousStatus    string   `json:"previousStatus"`
	ApplicationStatus string   `json:"applicationStatus"`
	InterviewDate     string   `json:"interviewDate,omitempty"`
	InterviewTime     string   `json:"interviewTime,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}
