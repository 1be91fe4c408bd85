// internal/workers/application/notify-beneficiary/models.go
package notifybeneficiary

type Input struct {
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID       string `json:"applicationId"`
	BeneficiaryNotified bool   `json:"beneficiaryNotified"`
	NotifiedAt          string `json:"notifiedAt"` // ISO 8601
}
