// internal/workers/application/transition-application/handler.go
package transitionapplication

import (
	"context"
	"encoding/json"
	"time"

	"assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/common/metrics"
	"assistance-workflow/internal/common/observability"
	"assistance-workflow/internal/models"
	"assistance-workflow/internal/workflow"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "transition-application"
)

type Transitioner interface {
	Transition(ctx context.Context, req workflow.TransitionRequest) (*workflow.TransitionResult, error)
}

type Handler struct {
	config       *Config
	service      Transitioner
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, service Transitioner, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		service:      service,
		obs:          obs,
		errorHandler: errors.NewErrorHandler(l),
		logger:       l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewValidationError("variables", err.Error()), startTime)
		return
	}

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":        job.Key,
		"applicationId": input.ApplicationID,
		"action":        input.Action,
		"role":          input.Role,
	})

	output, err := h.execute(ctx, &input)
	if err != nil {
		span.RecordError(err)
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "success")
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationID == "" {
		return nil, errors.NewValidationError("applicationId", "application id is required")
	}

	// Process models may use the "mayor" shorthand.
	role := models.Role(input.Role)
	if parsed, err := models.ParseRole(input.Role); err == nil {
		role = parsed
	}

	res, err := h.service.Transition(ctx, workflow.TransitionRequest{
		ApplicationID: input.ApplicationID,
		ActorID:       input.ActorID,
		Role:          role,
		Action:        workflow.Action(input.Action),
		InterviewDate: input.InterviewDate,
		InterviewTime: input.InterviewTime,
		Reason:        input.Reason,
	})
	if err != nil {
		return nil, err
	}

	output := &Output{
		ApplicationID:     res.ApplicationID,
		PreviousStatus:    string(res.From),
		ApplicationStatus: string(res.Status),
	}
	if res.Interview != nil {
		output.InterviewDate = res.Interview.Date
		output.InterviewTime = res.Interview.Time
	}
	for _, w := range res.Warnings {
		output.Warnings = append(output.Warnings, w.Error())
	}
	if len(output.Warnings) > 0 {
		h.logger.Warn("transition committed with failed side effects", map[string]interface{}{
			"applicationId": res.ApplicationID,
			"warnings":      output.Warnings,
		})
	}
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
