package workflow

import (
	"context"
	"time"

	"assistance-workflow/internal/models"
)

// Repository is the persistence the workflow depends on. Implementations
// return *errors.StandardError values: NOT_FOUND for unknown records,
// INVALID_TRANSITION when a conditional write matches no row,
// SLOT_CONFLICT when the interview slot is already held and
// DUPLICATE_REFERENCE when a reference number is taken.
type Repository interface {
	Create(ctx context.Context, app *models.Application, tempReference string) error
	Get(ctx context.Context, id string) (*models.Application, error)
	GetByReference(ctx context.Context, ref string) (*models.Application, error)

	// ApplyTransition performs the conditional status update, the optional
	// slot reservation and the audit insert atomically.
	ApplyTransition(ctx context.Context, change models.StatusChange) error
	IsSlotTaken(ctx context.Context, slot models.InterviewSlot) (bool, error)

	// SetSignature fills an empty signature slot while the application is in state.
	SetSignature(ctx context.Context, id string, role models.Role, state models.Status, path string) error

	List(ctx context.Context, q models.ListQuery) ([]models.ApplicationSummary, int, error)
	ListStale(ctx context.Context, state models.Status, cutoff time.Time) ([]models.ApplicationSummary, error)
	CountByState(ctx context.Context) (map[models.Status]int, error)

	// FindRecentRelease returns the latest Released application of the same
	// applicant released at or after since, or nil.
	FindRecentRelease(ctx context.Context, applicantKey string, since time.Time) (*models.Application, error)

	History(ctx context.Context, id string) ([]models.AuditEntry, error)
	RecordNotification(ctx context.Context, n models.Notification) error
}

// Notifier delivers applicant notices. It returns one record per channel
// attempted and a non-nil error when any delivery failed.
type Notifier interface {
	Notify(ctx context.Context, notice models.Notice) ([]models.Notification, error)
}

// SignatureStore keeps signature images outside the database.
type SignatureStore interface {
	Save(ctx context.Context, applicationID string, role models.Role, image []byte, ext string) (string, error)
	Load(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

// ListCache caches dashboard pages between transitions. GetPage reports the
// cache generation it read; PutPage stores under that generation only.
type ListCache interface {
	GetPage(ctx context.Context, q models.ListQuery) (*models.ApplicationPage, int64, bool, error)
	PutPage(ctx context.Context, q models.ListQuery, gen int64, page *models.ApplicationPage) error
	Invalidate(ctx context.Context) error
}

// Indexer mirrors summaries into a full-text index.
type Indexer interface {
	Index(ctx context.Context, summary models.ApplicationSummary) error
	Search(ctx context.Context, q models.ListQuery) ([]models.ApplicationSummary, int, error)
}

// ProgramCatalog answers whether a service type names an active program.
type ProgramCatalog interface {
	IsActive(code string) bool
}

// PayloadValidator checks a submission document before it is persisted.
type PayloadValidator interface {
	ValidateSubmission(doc interface{}) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
