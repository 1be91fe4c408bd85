// internal/workers/application/attach-signature/models.go
package attachsignature

// Input carries the signature image base64 encoded, as []byte marshals in JSON.
type Input struct {
	ApplicationID string `json:"applicationId"`
	Role          string `json:"role"`
	Signature     []byte `json:"signature"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	SignatureRole     string `json:"signatureRole"`
	SignatureAttached bool   `json:"signatureAttached"`
}
