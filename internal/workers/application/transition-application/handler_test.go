// internal/workers/application/transition-application/handler_test.go
package transitionapplication

import (
	"context"
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

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T) (*Handler, *workflowtest.Repository, *workflowtest.Notifier) {
	t.Helper()
	cfg := workflow.DefaultConfig()
	repo := workflowtest.NewRepository()
	notifier := &workflowtest.Notifier{}
	svc, err := workflow.NewService(cfg, workflow.Deps{
		Repository: repo,
		Signatures: workflowtest.NewSignatures(),
		Notifier:   notifier,
		Clock:      workflowtest.NewClock(time.Date(2025, 3, 3, 9, 0, 0, 0, cfg.Schedule.Location)),
	}, logger.NewTestLogger(t))
	require.NoError(t, err)

	h := NewHandler(LoadConfig(config.WorkerConfig{Enabled: true, Timeout: 5000}), svc, nil, logger.NewTestLogger(t))
	return h, repo, notifier
}

func seedApplication(repo *workflowtest.Repository, id string, status models.Status) {
	created := time.Date(2025, 2, 20, 9, 0, 0, 0, time.UTC)
	repo.Seed(&models.Application{
		ID:          id,
		ReferenceNo: "CSWD-" + id,
		Status:      status,
		ServiceType: "medical",
		Applicant: models.ApplicantProfile{
			FirstName: "Liza",
			LastName:  "Mendoza",
			Email:     "liza@example.com",
		},
		CreatedAt: created,
		UpdatedAt: created,
	})
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Approve(t *testing.T) {
	h, repo, notifier := createTestHandler(t)
	seedApplication(repo, "app-1", models.StatusPending)

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-1",
		ActorID:       "staff-9",
		Role:          "admin",
		Action:        "approve",
		InterviewDate: "2025-03-11",
		InterviewTime: "14:30",
	})
	require.NoError(t, err)

	assert.Equal(t, string(models.StatusPending), output.PreviousStatus)
	assert.Equal(t, string(models.StatusApproved), output.ApplicationStatus)
	assert.Equal(t, "2025-03-11", output.InterviewDate)
	assert.Equal(t, "14:30", output.InterviewTime)
	assert.Empty(t, output.Warnings)
	require.Len(t, notifier.Notices(), 1)
}

func TestHandler_Execute_MayorShorthand(t *testing.T) {
	h, repo, _ := createTestHandler(t)
	seedApplication(repo, "app-2", models.StatusWaitingMayor)

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-2",
		Role:          "mayor",
		Action:        "approve",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusReadyForRelease), output.ApplicationStatus)
}

func TestHandler_Execute_Errors(t *testing.T) {
	h, repo, _ := createTestHandler(t)
	seedApplication(repo, "app-3", models.StatusRejected)
	seedApplication(repo, "app-4", models.StatusPending)

	tests := []struct {
		name  string
		input *Input
		want  error
	}{
		{"missing id", &Input{Role: "admin", Action: "approve"}, apperrors.ErrValidation},
		{"unknown application", &Input{ApplicationID: "nope", Role: "admin", Action: "reject", Reason: "x"}, apperrors.ErrNotFound},
		{"terminal", &Input{ApplicationID: "app-3", Role: "admin", Action: "reject", Reason: "x"}, apperrors.ErrInvalidTransition},
		{"unknown role", &Input{ApplicationID: "app-4", Role: "guard", Action: "reject", Reason: "x"}, apperrors.ErrForbiddenAction},
		{"reject without reason", &Input{ApplicationID: "app-4", Role: "admin", Action: "reject"}, apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := h.Execute(context.Background(), tt.input)
			assert.Nil(t, output)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHandler_Execute_SideEffectWarning(t *testing.T) {
	h, repo, notifier := createTestHandler(t)
	seedApplication(repo, "app-5", models.StatusPending)
	notifier.Err = assert.AnError

	output, err := h.Execute(context.Background(), &Input{
		ApplicationID: "app-5",
		Role:          "admin",
		Action:        "reject",
		Reason:        "Not a resident",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.StatusRejected), output.ApplicationStatus)
	assert.NotEmpty(t, output.Warnings)
}
