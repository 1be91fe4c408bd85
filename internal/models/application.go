package models

import (
	"strings"
	"time"
)

// Application is one citizen's assistance request tracked through the workflow.
type Application struct {
	ID          string `json:"id"`
	ReferenceNo string `json:"referenceNo"`
	Status      Status `json:"status"`
	ServiceType string `json:"serviceType"`

	Applicant       ApplicantProfile       `json:"applicant"`
	Beneficiary     *ApplicantProfile      `json:"beneficiary,omitempty"`
	FamilyMembers   []FamilyMember         `json:"familyMembers"`
	Assessment      string                 `json:"assessment,omitempty"`
	AssistanceTypes []string               `json:"assistanceTypes"`
	Extra           map[string]interface{} `json:"extra,omitempty"`

	SignaturePath         string `json:"signaturePath,omitempty"`
	StaffSignaturePath    string `json:"staffSignaturePath,omitempty"`
	ApproverSignaturePath string `json:"approverSignaturePath,omitempty"`
	MayorSignaturePath    string `json:"mayorSignaturePath,omitempty"`

	Interview       *InterviewSlot `json:"interview,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	DuplicateOf     string         `json:"duplicateOf,omitempty"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ReleasedAt *time.Time `json:"releasedAt,omitempty"`
}

// ApplicantProfile carries the identity and contact details of a client or beneficiary.
type ApplicantProfile struct {
	FirstName   string `json:"firstName"`
	MiddleName  string `json:"middleName,omitempty"`
	LastName    string `json:"lastName"`
	BirthDate   string `json:"birthDate"` // YYYY-MM-DD
	Sex         string `json:"sex,omitempty"`
	CivilStatus string `json:"civilStatus,omitempty"`
	Address     string `json:"address"`
	Barangay    string `json:"barangay,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// FullName renders "First Middle Last" skipping empty parts.
func (p ApplicantProfile) FullName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.FirstName, p.MiddleName, p.LastName} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// Key identifies the same person across submissions.
func (p ApplicantProfile) Key() string {
	return strings.ToLower(strings.Join([]string{
		strings.TrimSpace(p.FirstName),
		strings.TrimSpace(p.LastName),
		strings.TrimSpace(p.BirthDate),
	}, "|"))
}

// FamilyMember is one entry of the household composition, kept in submission order.
type FamilyMember struct {
	Name         string  `json:"name"`
	Relationship string  `json:"relationship"`
	Age          int     `json:"age"`
	Occupation   string  `json:"occupation,omitempty"`
	Income       float64 `json:"income,omitempty"`
}

// InterviewSlot is a reserved (date, time) pair. Date is YYYY-MM-DD and Time is HH:MM.
type InterviewSlot struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (s InterviewSlot) String() string {
	return s.Date + " " + s.Time
}

// SignaturePathFor returns the stored signature slot for a role.
func (a *Application) SignaturePathFor(role Role) string {
	switch role {
	case RoleClient:
		return a.SignaturePath
	case RoleAdmin:
		return a.StaffSignaturePath
	case RoleApprover:
		return a.ApproverSignaturePath
	case RoleCityMayor:
		return a.MayorSignaturePath
	}
	return ""
}

// Summary projects the record onto the dashboard row shape.
func (a *Application) Summary() ApplicationSummary {
	return ApplicationSummary{
		ID:            a.ID,
		ReferenceNo:   a.ReferenceNo,
		ApplicantName: a.Applicant.FullName(),
		ServiceType:   a.ServiceType,
		Status:        a.Status,
		Interview:     a.Interview,
		DuplicateOf:   a.DuplicateOf,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// ApplicationSummary is the dashboard list row.
type ApplicationSummary struct {
	ID            string         `json:"id"`
	ReferenceNo   string         `json:"referenceNo"`
	ApplicantName string         `json:"applicantName"`
	ServiceType   string         `json:"serviceType"`
	Status        Status         `json:"status"`
	Interview     *InterviewSlot `json:"interview,omitempty"`
	DuplicateOf   string         `json:"duplicateOf,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DaysWaiting   int            `json:"daysWaiting"`
	Urgent        bool           `json:"urgent"`
}

// StatusChange is the all-or-nothing write of one transition: a conditional
// status update, an optional slot reservation and the audit entry.
type StatusChange struct {
	ApplicationID   string
	From            Status
	To              Status
	RejectionReason string
	Interview       *InterviewSlot
	ReleasedAt      *time.Time
	At              time.Time
	Audit           AuditEntry
}
