// internal/workers/application/attach-signature/handler_test.go
package attachsignature

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"assistance-workflow/internal/common/config"
	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"
	"assistance-workflow/internal/workflow"
	"assistance-workflow/internal/workflow/workflowtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), []byte("ink")...)

func createTestHandler(t *testing.T) (*Handler, *workflowtest.Repository) {
	t.Helper()
	cfg := workflow.DefaultConfig()
	repo := workflowtest.NewRepository()
	svc, err := workflow.NewService(cfg, workflow.Deps{
		Repository: repo,
		Signatures: workflowtest.NewSignatures(),
		Clock:      workflowtest.NewClock(time.Date(2025, 3, 3, 9, 0, 0, 0, cfg.Schedule.Location)),
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	created := time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
	repo.Seed(&models.Application{
		ID:          "app-1",
		ReferenceNo: "CSWD-1",
		Status:      models.StatusWaitingHead,
		ServiceType: "medical",
		Applicant:   models.ApplicantProfile{FirstName: "Rosa", LastName: "Lim"},
		CreatedAt:   created,
		UpdatedAt:   created,
	})

	return NewHandler(LoadConfig(config.WorkerConfig{Enabled: true}), svc, nil, logger.NewTestLogger(t)), repo
}

func TestInput_DecodesBase64Signature(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"applicationId": "app-1",
		"role":          "approver",
		"signature":     pngImage,
	})
	require.NoError(t, err)

	var input Input
	require.NoError(t, json.Unmarshal(raw, &input))
	assert.Equal(t, pngImage, input.Signature)
}

func TestHandler_Execute_Success(t *testing.T) {
	h, repo := createTestHandler(t)

	output, err := h.Execute(context.Background(), &Input{ApplicationID: "app-1", Role: "approver", Signature: pngImage})
	require.NoError(t, err)
	assert.True(t, output.SignatureAttached)
	assert.Equal(t, "approver", output.SignatureRole)

	app, err := repo.Get(context.Background(), "app-1")
	require.NoError(t, err)
	assert.NotEmpty(t, app.ApproverSignaturePath)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h, _ := createTestHandler(t)
	ctx := context.Background()

	_, err := h.Execute(ctx, &Input{ApplicationID: "app-1", Role: "mayor", Signature: pngImage})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = h.Execute(ctx, &Input{ApplicationID: "app-1", Role: "client", Signature: pngImage})
	assert.ErrorIs(t, err, apperrors.ErrForbiddenAction)

	_, err = h.Execute(ctx, &Input{ApplicationID: "app-1", Role: "approver", Signature: []byte("plain text")})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = h.Execute(ctx, &Input{ApplicationID: "app-1", Role: "approver", Signature: pngImage})
	require.NoError(t, err)
	_, err = h.Execute(ctx, &Input{ApplicationID: "app-1", Role: "approver", Signature: pngImage})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
