package workflow_test

import (
	"context"
	"testing"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"
	"assistance-workflow/internal/workflow"
	"assistance-workflow/internal/workflow/workflowtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenario(t *testing.T) (*workflow.Service, *workflowtest.Repository, *workflowtest.Notifier, *workflowtest.Clock) {
	t.Helper()
	cfg := workflow.DefaultConfig()
	repo := workflowtest.NewRepository()
	notifier := &workflowtest.Notifier{}
	clock := workflowtest.NewClock(time.Date(2025, 3, 3, 8, 15, 0, 0, cfg.Schedule.Location))

	svc, err := workflow.NewService(cfg, workflow.Deps{
		Repository: repo,
		Signatures: workflowtest.NewSignatures(),
		Notifier:   notifier,
		Clock:      clock,
	}, logger.NewTestLogger(t))
	require.NoError(t, err)
	return svc, repo, notifier, clock
}

func submitted(t *testing.T, svc *workflow.Service) string {
	t.Helper()
	res, err := svc.Submit(context.Background(), workflow.SubmitRequest{
		ServiceType: "financial",
		Applicant: models.ApplicantProfile{
			FirstName: "Juan",
			LastName:  "Dela Cruz",
			BirthDate: "1975-07-04",
			Address:   "Purok 3",
			Email:     "juan@example.com",
		},
		AssistanceTypes: []string{"burial"},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, res.Status)
	return res.ID
}

func TestScenario_FullApprovalToRelease(t *testing.T) {
	ctx := context.Background()
	svc, repo, notifier, clock := newScenario(t)
	id := submitted(t, svc)

	step := func(role models.Role, action workflow.Action, want models.Status, mutate ...func(*workflow.TransitionRequest)) {
		t.Helper()
		clock.Advance(time.Hour)
		req := workflow.TransitionRequest{ApplicationID: id, ActorID: string(role) + "-1", Role: role, Action: action}
		for _, m := range mutate {
			m(&req)
		}
		res, err := svc.Transition(ctx, req)
		require.NoError(t, err)
		require.Equal(t, want, res.Status)
	}

	step(models.RoleAdmin, workflow.ActionApprove, models.StatusApproved, func(r *workflow.TransitionRequest) {
		r.InterviewDate = "2025-03-10"
		r.InterviewTime = "10:00"
	})
	holder, ok := repo.SlotHolder(models.InterviewSlot{Date: "2025-03-10", Time: "10:00"})
	require.True(t, ok)
	assert.Equal(t, id, holder)

	png := append([]byte("\x89PNG\r\n\x1a\n"), 0x00, 0x01)
	require.NoError(t, svc.AttachSignature(ctx, id, models.RoleAdmin, png))

	step(models.RoleAdmin, workflow.ActionForward, models.StatusWaitingHead)
	step(models.RoleApprover, workflow.ActionApprove, models.StatusWaitingMayor)
	step(models.RoleCityMayor, workflow.ActionApprove, models.StatusReadyForRelease)

	require.NoError(t, svc.NotifyBeneficiary(ctx, id))

	step(models.RoleAdmin, workflow.ActionRelease, models.StatusReleased)

	for _, role := range models.StaffRoles {
		_, err := svc.Transition(ctx, workflow.TransitionRequest{ApplicationID: id, Role: role, Action: workflow.ActionReject, Reason: "too late"})
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	}

	app, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReleased, app.Status)
	assert.NotNil(t, app.ReleasedAt)
	assert.False(t, app.UpdatedAt.Before(app.CreatedAt))

	history, err := svc.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 5)
	var path []models.Status
	for _, h := range history {
		path = append(path, h.ToStatus)
	}
	assert.Equal(t, []models.Status{
		models.StatusApproved,
		models.StatusWaitingHead,
		models.StatusWaitingMayor,
		models.StatusReadyForRelease,
		models.StatusReleased,
	}, path)

	var types []models.NotificationType
	for _, n := range notifier.Notices() {
		types = append(types, n.Type)
	}
	assert.Equal(t, []models.NotificationType{
		models.NotificationInterviewScheduled,
		models.NotificationReadyForRelease,
	}, types)
}

func TestScenario_RejectionAtIntake(t *testing.T) {
	ctx := context.Background()
	svc, repo, notifier, _ := newScenario(t)
	id := submitted(t, svc)

	res, err := svc.Transition(ctx, workflow.TransitionRequest{
		ApplicationID: id,
		ActorID:       "admin-7",
		Role:          models.RoleAdmin,
		Action:        workflow.ActionReject,
		Reason:        "Incomplete documents",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, res.Status)

	app, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Incomplete documents", app.RejectionReason)

	notices := notifier.Notices()
	require.Len(t, notices, 1)
	assert.Equal(t, models.NotificationRejected, notices[0].Type)
	assert.Equal(t, "Incomplete documents", notices[0].Application.RejectionReason)

	logged := repo.Notifications()
	require.Len(t, logged, 1)
	assert.Equal(t, id, logged[0].ApplicationID)
	assert.Equal(t, models.DeliverySent, logged[0].Status)

	_, err = svc.Transition(ctx, workflow.TransitionRequest{ApplicationID: id, Role: models.RoleAdmin, Action: workflow.ActionApprove, InterviewDate: "2025-03-10", InterviewTime: "10:00"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestScenario_DoubleBookingAcrossApplications(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newScenario(t)
	first := submitted(t, svc)
	second := submitted(t, svc)

	approve := func(id string) error {
		_, err := svc.Transition(ctx, workflow.TransitionRequest{
			ApplicationID: id,
			Role:          models.RoleAdmin,
			Action:        workflow.ActionApprove,
			InterviewDate: "2025-06-01",
			InterviewTime: "09:00",
		})
		return err
	}

	require.NoError(t, approve(first))
	assert.ErrorIs(t, approve(second), apperrors.ErrSlotConflict)

	app, err := svc.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.Status)
}
