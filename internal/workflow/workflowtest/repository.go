// Package workflowtest provides in-memory collaborators for exercising the
// workflow service without Postgres, SES or a filesystem.
package workflowtest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/models"
)

// Repository is a goroutine-safe in-memory workflow repository. It enforces
// the same conditional-update and slot uniqueness rules as the Postgres store.
type Repository struct {
	mu            sync.Mutex
	apps          map[string]*models.Application
	refs          map[string]string
	slots         map[models.InterviewSlot]string
	audit         []models.AuditEntry
	notifications []models.Notification
	reassociated  map[string]string
	failures      map[string]error
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		apps:         make(map[string]*models.Application),
		refs:         make(map[string]string),
		slots:        make(map[models.InterviewSlot]string),
		reassociated: make(map[string]string),
		failures:     make(map[string]error),
	}
}

// FailNext makes the next call of method return err.
func (r *Repository) FailNext(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[method] = err
}

func (r *Repository) failure(method string) error {
	if err, ok := r.failures[method]; ok {
		delete(r.failures, method)
		return err
	}
	return nil
}

// Seed stores app as-is, including any status and slot it carries.
func (r *Repository) Seed(app *models.Application) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := clone(app)
	r.apps[c.ID] = c
	if c.ReferenceNo != "" {
		r.refs[c.ReferenceNo] = c.ID
	}
	if c.Interview != nil {
		r.slots[*c.Interview] = c.ID
	}
}

// BookSlot marks a slot as held by another application.
func (r *Repository) BookSlot(slot models.InterviewSlot, holder string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[slot] = holder
}

func (r *Repository) Create(_ context.Context, app *models.Application, tempReference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("Create"); err != nil {
		return err
	}
	if _, taken := r.refs[app.ReferenceNo]; taken {
		return apperrors.NewDuplicateReferenceError(app.ReferenceNo)
	}
	r.apps[app.ID] = clone(app)
	r.refs[app.ReferenceNo] = app.ID
	if tempReference != "" {
		r.reassociated[tempReference] = app.ReferenceNo
	}
	return nil
}

func (r *Repository) Get(_ context.Context, id string) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("Get"); err != nil {
		return nil, err
	}
	app, ok := r.apps[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	return clone(app), nil
}

func (r *Repository) GetByReference(_ context.Context, ref string) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[ref]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", ref)
	}
	return clone(r.apps[id]), nil
}

func (r *Repository) ApplyTransition(_ context.Context, change models.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("ApplyTransition"); err != nil {
		return err
	}
	app, ok := r.apps[change.ApplicationID]
	if !ok || app.Status != change.From {
		return apperrors.NewInvalidTransitionError(change.Audit.Action, string(change.From))
	}
	if change.Interview != nil {
		if holder, taken := r.slots[*change.Interview]; taken && holder != app.ID {
			return apperrors.NewSlotConflictError(change.Interview.Date, change.Interview.Time)
		}
		r.slots[*change.Interview] = app.ID
		slot := *change.Interview
		app.Interview = &slot
	}
	app.Status = change.To
	app.UpdatedAt = change.At
	if change.RejectionReason != "" {
		app.RejectionReason = change.RejectionReason
	}
	if change.ReleasedAt != nil {
		at := *change.ReleasedAt
		app.ReleasedAt = &at
	}
	r.audit = append(r.audit, change.Audit)
	return nil
}

func (r *Repository) IsSlotTaken(_ context.Context, slot models.InterviewSlot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.slots[slot]
	return taken, nil
}

func (r *Repository) SetSignature(_ context.Context, id string, role models.Role, state models.Status, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("SetSignature"); err != nil {
		return err
	}
	app, ok := r.apps[id]
	if !ok {
		return apperrors.NewNotFoundError("application", id)
	}
	if app.Status != state {
		return apperrors.NewInvalidTransitionError("sign", string(app.Status))
	}
	if app.SignaturePathFor(role) != "" {
		return apperrors.NewValidationError("signature", "signature is already attached")
	}
	switch role {
	case models.RoleAdmin:
		app.StaffSignaturePath = path
	case models.RoleApprover:
		app.ApproverSignaturePath = path
	case models.RoleCityMayor:
		app.MayorSignaturePath = path
	}
	return nil
}

func (r *Repository) List(_ context.Context, q models.ListQuery) ([]models.ApplicationSummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("List"); err != nil {
		return nil, 0, err
	}

	want := make(map[models.Status]bool, len(q.Statuses))
	for _, s := range q.Statuses {
		want[s] = true
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))

	var matched []models.ApplicationSummary
	for _, app := range r.apps {
		if !want[app.Status] {
			continue
		}
		if q.ServiceType != "" && app.ServiceType != q.ServiceType {
			continue
		}
		if q.UpdatedFrom != nil && app.UpdatedAt.Before(*q.UpdatedFrom) {
			continue
		}
		if q.UpdatedTo != nil && app.UpdatedAt.After(*q.UpdatedTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(app.Applicant.FullName()), search) &&
			!strings.Contains(strings.ToLower(app.ReferenceNo), search) {
			continue
		}
		matched = append(matched, app.Summary())
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *Repository) ListStale(_ context.Context, state models.Status, cutoff time.Time) ([]models.ApplicationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ApplicationSummary
	for _, app := range r.apps {
		if app.Status == state && !app.UpdatedAt.After(cutoff) {
			out = append(out, app.Summary())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

func (r *Repository) CountByState(_ context.Context) (map[models.Status]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.Status]int)
	for _, app := range r.apps {
		counts[app.Status]++
	}
	return counts, nil
}

func (r *Repository) FindRecentRelease(_ context.Context, applicantKey string, since time.Time) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("FindRecentRelease"); err != nil {
		return nil, err
	}
	var latest *models.Application
	for _, app := range r.apps {
		if app.Status != models.StatusReleased || app.ReleasedAt == nil || app.Applicant.Key() != applicantKey {
			continue
		}
		if app.ReleasedAt.Before(since) {
			continue
		}
		if latest == nil || app.ReleasedAt.After(*latest.ReleasedAt) {
			latest = app
		}
	}
	if latest == nil {
		return nil, nil
	}
	return clone(latest), nil
}

func (r *Repository) History(_ context.Context, id string) ([]models.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditEntry
	for _, e := range r.audit {
		if e.ApplicationID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Repository) RecordNotification(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failure("RecordNotification"); err != nil {
		return err
	}
	r.notifications = append(r.notifications, n)
	return nil
}

// Notifications returns the recorded notification log.
func (r *Repository) Notifications() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.notifications...)
}

// Audit returns every audit entry in insertion order.
func (r *Repository) Audit() []models.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuditEntry(nil), r.audit...)
}

// Reassociated returns the permanent reference a temp reference was moved to.
func (r *Repository) Reassociated(tempReference string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.reassociated[tempReference]
	return ref, ok
}

// SlotHolder returns the application holding slot.
func (r *Repository) SlotHolder(slot models.InterviewSlot) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.slots[slot]
	return id, ok
}

func clone(app *models.Application) *models.Application {
	c := *app
	if app.Interview != nil {
		slot := *app.Interview
		c.Interview = &slot
	}
	if app.ReleasedAt != nil {
		at := *app.ReleasedAt
		c.ReleasedAt = &at
	}
	if app.Beneficiary != nil {
		b := *app.Beneficiary
		c.Beneficiary = &b
	}
	c.FamilyMembers = append([]models.FamilyMember(nil), app.FamilyMembers...)
	c.AssistanceTypes = append([]string(nil), app.AssistanceTypes...)
	return &c
}
