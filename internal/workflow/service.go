package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"assistance-workflow/internal/common/config"
	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/common/metrics"
	"assistance-workflow/internal/models"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxReferenceAttempts = 3

// Config holds the workflow tunables.
type Config struct {
	ReferencePrefix         string
	Schedule                Schedule
	UrgentAfterDays         int
	DuplicateLookbackMonths int
	MaxSignatureBytes       int // 0 means unlimited
}

// DefaultConfig mirrors the configuration loader defaults.
func DefaultConfig() Config {
	return Config{
		ReferencePrefix:         "CSWD",
		Schedule:                DefaultSchedule(),
		UrgentAfterDays:         3,
		DuplicateLookbackMonths: 3,
	}
}

// NewConfig converts loaded settings into a workflow Config.
func NewConfig(wc config.WorkflowConfig, hc config.HTTPConfig) (Config, error) {
	start, err := config.ParseClock(wc.InterviewStart)
	if err != nil {
		return Config{}, fmt.Errorf("interview start: %w", err)
	}
	end, err := config.ParseClock(wc.InterviewEnd)
	if err != nil {
		return Config{}, fmt.Errorf("interview end: %w", err)
	}
	loc, err := time.LoadLocation(wc.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("timezone: %w", err)
	}
	return Config{
		ReferencePrefix:         wc.ReferencePrefix,
		Schedule:                Schedule{Start: start, End: end, Location: loc},
		UrgentAfterDays:         wc.UrgentAfterDays,
		DuplicateLookbackMonths: wc.DuplicateLookbackMonths,
		MaxSignatureBytes:       hc.MaxSignatureKiB * 1024,
	}, nil
}

// Deps are the collaborators of the Service. Repository and Signatures are
// required; the rest are optional.
type Deps struct {
	Repository Repository
	Signatures SignatureStore
	Notifier   Notifier
	Cache      ListCache
	Index      Indexer
	Catalog    ProgramCatalog
	Validator  PayloadValidator
	Clock      Clock
}

// Service applies workflow operations against persistence. Side effects run
// only after the state write commits and never revert it.
type Service struct {
	cfg        Config
	repo       Repository
	signatures SignatureStore
	notifier   Notifier
	cache      ListCache
	index      Indexer
	catalog    ProgramCatalog
	validator  PayloadValidator
	clock      Clock
	logger     logger.Logger
	tracer     trace.Tracer

	newID     func() string
	refSuffix func() string
}

// NewService wires a Service.
func NewService(cfg Config, deps Deps, log logger.Logger) (*Service, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("workflow: repository is required")
	}
	if deps.Signatures == nil {
		return nil, fmt.Errorf("workflow: signature store is required")
	}
	if cfg.Schedule.Location == nil {
		cfg.Schedule = DefaultSchedule()
	}
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = "CSWD"
	}
	if cfg.UrgentAfterDays <= 0 {
		cfg.UrgentAfterDays = 3
	}
	if cfg.DuplicateLookbackMonths <= 0 {
		cfg.DuplicateLookbackMonths = 3
	}

	s := &Service{
		cfg:        cfg,
		repo:       deps.Repository,
		signatures: deps.Signatures,
		notifier:   deps.Notifier,
		cache:      deps.Cache,
		index:      deps.Index,
		catalog:    deps.Catalog,
		validator:  deps.Validator,
		clock:      deps.Clock,
		logger:     log.WithFields(map[string]interface{}{"component": "workflow"}),
		tracer:     otel.Tracer("assistance-workflow/workflow"),
		newID:      uuid.NewString,
		refSuffix:  randomSuffix,
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.notifier == nil {
		s.notifier = disabledNotifier{}
	}
	return s, nil
}

// ==========================
// Submit
// ==========================

// SubmitRequest is a citizen's application as received from the intake form.
type SubmitRequest struct {
	ServiceType     string                   `json:"serviceType"`
	Applicant       models.ApplicantProfile  `json:"applicant"`
	Beneficiary     *models.ApplicantProfile `json:"beneficiary,omitempty"`
	FamilyMembers   []models.FamilyMember    `json:"familyMembers"`
	Assessment      string                   `json:"assessment,omitempty"`
	AssistanceTypes []string                 `json:"assistanceTypes"`
	Extra           map[string]interface{}   `json:"extra,omitempty"`
	TempReference   string                   `json:"tempReference,omitempty"`
	Signature       []byte                   `json:"signature,omitempty"`
}

// ApplicantProfile exposes the applicant to payload validators.
func (r SubmitRequest) ApplicantProfile() models.ApplicantProfile { return r.Applicant }

// DuplicateWarning flags a recent release to the same applicant.
type DuplicateWarning struct {
	ReferenceNo string    `json:"referenceNo"`
	ReleasedAt  time.Time `json:"releasedAt"`
}

// SubmitResult identifies the created application.
type SubmitResult struct {
	ID          string            `json:"id"`
	ReferenceNo string            `json:"referenceNo"`
	Status      models.Status     `json:"status"`
	Duplicate   *DuplicateWarning `json:"duplicateWarning,omitempty"`
}

// Submit creates an application in Pending for approval.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Submit")
	defer span.End()
	timer := prometheus.NewTimer(metrics.WorkflowOperationDuration.WithLabelValues("submit"))
	defer timer.ObserveDuration()

	if err := s.validateSubmission(req); err != nil {
		span.RecordError(err)
		return nil, err
	}

	now := s.clock.Now()
	app := &models.Application{
		ID:              s.newID(),
		Status:          models.StatusPending,
		ServiceType:     strings.TrimSpace(req.ServiceType),
		Applicant:       req.Applicant,
		Beneficiary:     req.Beneficiary,
		FamilyMembers:   req.FamilyMembers,
		Assessment:      req.Assessment,
		AssistanceTypes: req.AssistanceTypes,
		Extra:           req.Extra,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	result := &SubmitResult{Status: models.StatusPending}
	if dup := s.recentRelease(ctx, app.Applicant, now); dup != nil {
		app.DuplicateOf = dup.ReferenceNo
		result.Duplicate = &DuplicateWarning{ReferenceNo: dup.ReferenceNo}
		if dup.ReleasedAt != nil {
			result.Duplicate.ReleasedAt = *dup.ReleasedAt
		}
	}

	if len(req.Signature) > 0 {
		ext, err := s.checkImage(req.Signature)
		if err != nil {
			return nil, err
		}
		path, err := s.signatures.Save(ctx, app.ID, models.RoleClient, req.Signature, ext)
		if err != nil {
			return nil, apperrors.NewDatabaseInsertFailedError(err)
		}
		app.SignaturePath = path
	}

	if err := s.create(ctx, app, strings.TrimSpace(req.TempReference), now); err != nil {
		if app.SignaturePath != "" {
			_ = s.signatures.Remove(ctx, app.SignaturePath)
		}
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("application.id", app.ID), attribute.String("application.reference", app.ReferenceNo))
	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"referenceNo":   app.ReferenceNo,
		"serviceType":   app.ServiceType,
		"duplicate":     app.DuplicateOf != "",
	})

	s.refreshProjections(ctx, app)

	result.ID = app.ID
	result.ReferenceNo = app.ReferenceNo
	return result, nil
}

func (s *Service) validateSubmission(req SubmitRequest) error {
	if s.validator != nil {
		if err := s.validator.ValidateSubmission(req); err != nil {
			return err
		}
	}
	code := strings.TrimSpace(req.ServiceType)
	if code == "" {
		return apperrors.NewValidationError("serviceType", "service type is required")
	}
	if s.catalog != nil && !s.catalog.IsActive(code) {
		return apperrors.NewValidationError("serviceType", fmt.Sprintf("unknown or inactive program %q", code))
	}
	if strings.TrimSpace(req.Applicant.FirstName) == "" || strings.TrimSpace(req.Applicant.LastName) == "" {
		return apperrors.NewValidationError("applicant", "applicant first and last name are required")
	}
	if bd := strings.TrimSpace(req.Applicant.BirthDate); bd != "" {
		if _, err := time.Parse(dateLayout, bd); err != nil {
			return apperrors.NewValidationError("applicant.birthDate", "birth date must be YYYY-MM-DD")
		}
	}
	return nil
}

// recentRelease is a soft guard: lookup failures are logged and submission proceeds.
func (s *Service) recentRelease(ctx context.Context, p models.ApplicantProfile, now time.Time) *models.Application {
	since := now.AddDate(0, -s.cfg.DuplicateLookbackMonths, 0)
	prior, err := s.repo.FindRecentRelease(ctx, p.Key(), since)
	if err != nil {
		s.logger.Warn("duplicate application check failed", map[string]interface{}{"error": err})
		return nil
	}
	return prior
}

func (s *Service) create(ctx context.Context, app *models.Application, tempRef string, now time.Time) error {
	for attempt := 1; ; attempt++ {
		app.ReferenceNo = s.reference(now)
		err := s.repo.Create(ctx, app, tempRef)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, apperrors.ErrDuplicateRef) || attempt == maxReferenceAttempts {
			return err
		}
		s.logger.Warn("reference number collision, regenerating", map[string]interface{}{
			"referenceNo": app.ReferenceNo,
			"attempt":     attempt,
		})
	}
}

// reference formats <prefix>-<YYYYMMDD>-<6 hex>.
func (s *Service) reference(now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", s.cfg.ReferencePrefix, now.In(s.cfg.Schedule.Location).Format("20060102"), s.refSuffix())
}

func randomSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// ==========================
// Transition
// ==========================

// TransitionRequest carries one staff action and its parameters.
type TransitionRequest struct {
	ApplicationID string      `json:"applicationId"`
	ActorID       string      `json:"actorId"`
	Role          models.Role `json:"role"`
	Action        Action      `json:"action"`
	InterviewDate string      `json:"interviewDate,omitempty"`
	InterviewTime string      `json:"interviewTime,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

// TransitionResult reports the committed state change. Warnings lists
// side effects that failed after the commit.
type TransitionResult struct {
	ApplicationID string                     `json:"applicationId"`
	From          models.Status              `json:"from"`
	Status        models.Status              `json:"status"`
	Interview     *models.InterviewSlot      `json:"interview,omitempty"`
	Warnings      []*apperrors.StandardError `json:"warnings,omitempty"`
}

// Transition is the single entry point for status changes.
func (s *Service) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.Transition", trace.WithAttributes(
		attribute.String("application.id", req.ApplicationID),
		attribute.String("workflow.action", string(req.Action)),
		attribute.String("workflow.role", string(req.Role)),
	))
	defer span.End()
	timer := prometheus.NewTimer(metrics.WorkflowOperationDuration.WithLabelValues("transition"))
	defer timer.ObserveDuration()

	res, err := s.transition(ctx, req)
	if err != nil {
		metrics.WorkflowTransitionFailures.WithLabelValues(string(req.Action), string(apperrors.CodeOf(err))).Inc()
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

func (s *Service) transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !req.Role.Valid() {
		return nil, apperrors.NewForbiddenActionError(string(req.Role), string(req.Action))
	}
	if !req.Action.Valid() {
		return nil, apperrors.NewValidationError("action", fmt.Sprintf("unknown action %q", req.Action))
	}

	app, err := s.repo.Get(ctx, req.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app.Status.Terminal() {
		return nil, apperrors.NewInvalidTransitionError(string(req.Action), string(app.Status))
	}
	r, ok := lookup(req.Role, req.Action)
	if !ok {
		return nil, apperrors.NewForbiddenActionError(string(req.Role), string(req.Action))
	}
	if !r.allows(app.Status) {
		return nil, apperrors.NewInvalidTransitionError(string(req.Action), string(app.Status))
	}

	now := s.clock.Now()
	change := models.StatusChange{
		ApplicationID: app.ID,
		From:          app.Status,
		To:            r.to,
		At:            now,
	}

	switch {
	case r.needsReason:
		if strings.TrimSpace(req.Reason) == "" {
			return nil, apperrors.NewValidationError("reason", "a rejection reason is required")
		}
		change.RejectionReason = req.Reason
	case r.needsInterview:
		slot, err := s.cfg.Schedule.Validate(req.InterviewDate, req.InterviewTime, now)
		if err != nil {
			return nil, err
		}
		taken, err := s.repo.IsSlotTaken(ctx, slot)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewSlotConflictError(slot.Date, slot.Time)
		}
		change.Interview = &slot
	case r.needsStaffSignature:
		if app.StaffSignaturePath == "" {
			return nil, apperrors.NewValidationError("staffSignature", "staff signature must be attached before forwarding")
		}
	case r.stampsRelease:
		change.ReleasedAt = &now
	}

	change.Audit = models.AuditEntry{
		ID:            s.newID(),
		ApplicationID: app.ID,
		ActorID:       req.ActorID,
		Role:          req.Role,
		Action:        string(req.Action),
		FromStatus:    app.Status,
		ToStatus:      r.to,
		Reason:        change.RejectionReason,
		CreatedAt:     now,
	}

	if err := s.repo.ApplyTransition(ctx, change); err != nil {
		return nil, err
	}

	metrics.WorkflowTransitions.WithLabelValues(string(req.Action), string(change.From), string(change.To)).Inc()
	s.logger.Info("application transitioned", map[string]interface{}{
		"applicationId": app.ID,
		"from":          string(change.From),
		"to":            string(change.To),
		"actor":         req.ActorID,
		"role":          string(req.Role),
	})

	app.Status = change.To
	app.UpdatedAt = now
	if change.Interview != nil {
		app.Interview = change.Interview
	}
	if change.RejectionReason != "" {
		app.RejectionReason = change.RejectionReason
	}
	if change.ReleasedAt != nil {
		app.ReleasedAt = change.ReleasedAt
	}

	return &TransitionResult{
		ApplicationID: app.ID,
		From:          change.From,
		Status:        change.To,
		Interview:     change.Interview,
		Warnings:      s.afterTransition(ctx, app),
	}, nil
}

// afterTransition runs the best-effort side effects of a committed transition.
func (s *Service) afterTransition(ctx context.Context, app *models.Application) []*apperrors.StandardError {
	warnings := s.refreshProjections(ctx, app)

	var notice *models.Notice
	switch app.Status {
	case models.StatusApproved:
		notice = &models.Notice{Type: models.NotificationInterviewScheduled, Application: app}
	case models.StatusRejected:
		notice = &models.Notice{Type: models.NotificationRejected, Application: app}
	}
	if notice != nil {
		if err := s.notify(ctx, *notice); err != nil {
			warnings = append(warnings, apperrors.NewSideEffectFailureError("notify", err))
		}
	}
	return warnings
}

// refreshProjections invalidates cached dashboard pages and reindexes the summary.
func (s *Service) refreshProjections(ctx context.Context, app *models.Application) []*apperrors.StandardError {
	var warnings []*apperrors.StandardError
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			metrics.WorkflowSideEffectFailures.WithLabelValues("cache").Inc()
			s.logger.Warn("dashboard cache invalidation failed", map[string]interface{}{"applicationId": app.ID, "error": err})
			warnings = append(warnings, apperrors.NewSideEffectFailureError("cache", err))
		}
	}
	if s.index != nil {
		if err := s.index.Index(ctx, app.Summary()); err != nil {
			metrics.WorkflowSideEffectFailures.WithLabelValues("index").Inc()
			s.logger.Warn("search indexing failed", map[string]interface{}{"applicationId": app.ID, "error": err})
			warnings = append(warnings, apperrors.NewSideEffectFailureError("index", err))
		}
	}
	return warnings
}

// notify sends a notice and records every delivery attempt.
func (s *Service) notify(ctx context.Context, notice models.Notice) error {
	records, err := s.notifier.Notify(ctx, notice)
	now := s.clock.Now()
	for _, rec := range records {
		if rec.ID == "" {
			rec.ID = s.newID()
		}
		if rec.ApplicationID == "" {
			rec.ApplicationID = notice.Application.ID
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rerr := s.repo.RecordNotification(ctx, rec); rerr != nil {
			s.logger.Warn("failed to record notification", map[string]interface{}{
				"applicationId": notice.Application.ID,
				"channel":       rec.Channel,
				"error":         rerr,
			})
		}
	}
	if err != nil {
		metrics.WorkflowSideEffectFailures.WithLabelValues("notify").Inc()
		s.logger.Warn("applicant notification failed", map[string]interface{}{
			"applicationId": notice.Application.ID,
			"type":          string(notice.Type),
			"error":         err,
		})
		return err
	}
	return nil
}

// ==========================
// Signatures
// ==========================

// AttachSignature stores role's signature while the application is in the
// state that role signs in. A slot is filled at most once.
func (s *Service) AttachSignature(ctx context.Context, id string, role models.Role, image []byte) error {
	ctx, span := s.tracer.Start(ctx, "workflow.AttachSignature", trace.WithAttributes(
		attribute.String("application.id", id),
		attribute.String("workflow.role", string(role)),
	))
	defer span.End()

	state, ok := SignatureState(role)
	if !ok {
		return apperrors.NewForbiddenActionError(string(role), "sign")
	}

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if app.Status != state {
		return apperrors.NewInvalidTransitionError("sign", string(app.Status))
	}
	if app.SignaturePathFor(role) != "" {
		return apperrors.NewValidationError("signature", fmt.Sprintf("%s signature is already attached", role))
	}

	ext, err := s.checkImage(image)
	if err != nil {
		return err
	}
	path, err := s.signatures.Save(ctx, id, role, image, ext)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	if err := s.repo.SetSignature(ctx, id, role, state, path); err != nil {
		_ = s.signatures.Remove(ctx, path)
		span.RecordError(err)
		return err
	}

	s.logger.Info("signature attached", map[string]interface{}{
		"applicationId": id,
		"role":          string(role),
	})
	return nil
}

// GetSignature returns the stored signature image of role.
func (s *Service) GetSignature(ctx context.Context, id string, role models.Role) ([]byte, error) {
	if role != models.RoleClient && !role.Valid() {
		return nil, apperrors.NewValidationError("role", fmt.Sprintf("unknown role %q", role))
	}
	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	path := app.SignaturePathFor(role)
	if path == "" {
		return nil, apperrors.NewNotFoundError("signature", fmt.Sprintf("%s/%s", id, role))
	}
	data, err := s.signatures.Load(ctx, path)
	if err != nil {
		return nil, apperrors.NewNotFoundError("signature", path)
	}
	return data, nil
}

func (s *Service) checkImage(image []byte) (string, error) {
	if len(image) == 0 {
		return "", apperrors.NewValidationError("signature", "signature image is empty")
	}
	if s.cfg.MaxSignatureBytes > 0 && len(image) > s.cfg.MaxSignatureBytes {
		return "", apperrors.NewValidationError("signature", fmt.Sprintf("signature image exceeds %d bytes", s.cfg.MaxSignatureBytes))
	}
	switch http.DetectContentType(image) {
	case "image/png":
		return "png", nil
	case "image/jpeg":
		return "jpg", nil
	}
	return "", apperrors.NewValidationError("signature", "signature must be a PNG or JPEG image")
}

// ==========================
// Read side
// ==========================

// ListByState returns one page of summaries in the given states.
func (s *Service) ListByState(ctx context.Context, states []models.Status, filter models.ListFilter) (*models.ApplicationPage, error) {
	ctx, span := s.tracer.Start(ctx, "workflow.ListByState")
	defer span.End()
	timer := prometheus.NewTimer(metrics.WorkflowOperationDuration.WithLabelValues("list"))
	defer timer.ObserveDuration()

	if len(states) == 0 {
		return nil, apperrors.NewValidationError("states", "at least one status is required")
	}
	seen := make(map[models.Status]bool, len(states))
	unique := make([]models.Status, 0, len(states))
	for _, st := range states {
		if !st.Valid() {
			return nil, apperrors.NewValidationError("states", fmt.Sprintf("unknown status %q", st))
		}
		if !seen[st] {
			seen[st] = true
			unique = append(unique, st)
		}
	}
	if filter.UpdatedFrom != nil && filter.UpdatedTo != nil && filter.UpdatedTo.Before(*filter.UpdatedFrom) {
		return nil, apperrors.NewValidationError("updatedTo", "updatedTo must not be before updatedFrom")
	}

	q := models.ListQuery{Statuses: unique, ListFilter: filter.Normalize()}
	now := s.clock.Now()

	if strings.TrimSpace(q.Search) != "" && s.index != nil {
		items, total, err := s.index.Search(ctx, q)
		if err == nil {
			return s.page(items, total, q, now), nil
		}
		s.logger.Warn("search index unavailable, falling back to database", map[string]interface{}{"error": err})
	}

	var gen int64
	fill := false
	if s.cache != nil {
		page, g, ok, err := s.cache.GetPage(ctx, q)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", map[string]interface{}{"error": err})
		} else if ok {
			return s.page(page.Items, page.Total, q, now), nil
		} else {
			gen, fill = g, true
		}
	}

	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	page := s.page(items, total, q, now)
	if fill {
		if err := s.cache.PutPage(ctx, q, gen, page); err != nil {
			s.logger.Warn("dashboard cache write failed", map[string]interface{}{"error": err})
		}
	}
	return page, nil
}

func (s *Service) page(items []models.ApplicationSummary, total int, q models.ListQuery, now time.Time) *models.ApplicationPage {
	if items == nil {
		items = []models.ApplicationSummary{}
	}
	decorate(items, now, s.cfg.UrgentAfterDays)
	return &models.ApplicationPage{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}
}

// ListVisible lists the dashboard queue of role.
func (s *Service) ListVisible(ctx context.Context, role models.Role, filter models.ListFilter) (*models.ApplicationPage, error) {
	if !role.Valid() {
		return nil, apperrors.NewForbiddenActionError(string(role), "list")
	}
	return s.ListByState(ctx, VisibleTo(role), filter)
}

// ListUrgent returns the mayor queue entries waiting at least the urgent
// threshold, oldest first.
func (s *Service) ListUrgent(ctx context.Context) ([]models.ApplicationSummary, error) {
	now := s.clock.Now()
	cutoff := now.Add(-time.Duration(s.cfg.UrgentAfterDays) * day)
	items, err := s.repo.ListStale(ctx, models.StatusWaitingMayor, cutoff)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.ApplicationSummary{}
	}
	decorate(items, now, s.cfg.UrgentAfterDays)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.Before(items[j].UpdatedAt)
	})
	return items, nil
}

// NotifyBeneficiary tells the applicant their assistance is ready. It may be
// called any number of times while the application is Ready for release.
func (s *Service) NotifyBeneficiary(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "workflow.NotifyBeneficiary", trace.WithAttributes(attribute.String("application.id", id)))
	defer span.End()

	app, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if app.Status != models.StatusReadyForRelease {
		return apperrors.NewInvalidTransitionError("notify", string(app.Status))
	}
	if err := s.notify(ctx, models.Notice{Type: models.NotificationReadyForRelease, Application: app}); err != nil {
		span.RecordError(err)
		return apperrors.NewSideEffectFailureError("notify", err)
	}
	return nil
}

// Get loads an application by id.
// Location is the office time zone that interview slots and calendar days
// are interpreted in.
func (s *Service) Location() *time.Location {
	return s.cfg.Schedule.Location
}

func (s *Service) Get(ctx context.Context, id string) (*models.Application, error) {
	return s.repo.Get(ctx, id)
}

// GetByReference loads an application by its reference number.
func (s *Service) GetByReference(ctx context.Context, ref string) (*models.Application, error) {
	return s.repo.GetByReference(ctx, strings.TrimSpace(ref))
}

// History returns the audit trail of an application, oldest first.
func (s *Service) History(ctx context.Context, id string) ([]models.AuditEntry, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.History(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return entries, nil
}

// CountByState returns the number of applications per status, zero-filled.
func (s *Service) CountByState(ctx context.Context) (map[models.Status]int, error) {
	counts, err := s.repo.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[models.Status]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		out[st] = counts[st]
	}
	return out, nil
}

type disabledNotifier struct{}

func (disabledNotifier) Notify(_ context.Context, n models.Notice) ([]models.Notification, error) {
	return []models.Notification{{
		ApplicationID: n.Application.ID,
		Type:          n.Type,
		Channel:       models.ChannelEmail,
		Status:        models.DeliveryDisabled,
	}}, nil
}
