// Package store persists applications, interview slots, the audit trail and
// the notification log in Postgres.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"

	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation     = "23505"
	referenceConstraint = "applications_reference_no_key"
	slotConstraint      = "interview_slots_pkey"
)

const applicationColumns = `id, reference_no, status, service_type, applicant, beneficiary,
	family_members, assessment, assistance_types, extra,
	signature_path, staff_signature_path, approver_signature_path, mayor_signature_path,
	interview_date, interview_time, rejection_reason, duplicate_of,
	created_at, updated_at, released_at`

const summaryColumns = `id, reference_no, applicant_name, service_type, status,
	interview_date, interview_time, duplicate_of, created_at, updated_at`

var signatureColumns = map[models.Role]string{
	models.RoleAdmin:     "staff_signature_path",
	models.RoleApprover:  "approver_signature_path",
	models.RoleCityMayor: "mayor_signature_path",
}

// Store is the Postgres implementation of the workflow repository.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// New returns a Store over db.
func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewDatabaseError("migrate", err)
	}
	return nil
}

// ==========================
// Writes
// ==========================

func (s *Store) Create(ctx context.Context, app *models.Application, tempReference string) error {
	applicant, err := json.Marshal(app.Applicant)
	if err != nil {
		return apperrors.NewValidationError("applicant", err.Error())
	}
	family, err := json.Marshal(nonNilFamily(app.FamilyMembers))
	if err != nil {
		return apperrors.NewValidationError("familyMembers", err.Error())
	}
	beneficiary, err := marshalOptional(app.Beneficiary, app.Beneficiary == nil)
	if err != nil {
		return apperrors.NewValidationError("beneficiary", err.Error())
	}
	extra, err := marshalOptional(app.Extra, len(app.Extra) == 0)
	if err != nil {
		return apperrors.NewValidationError("extra", err.Error())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin create", err)
	}
	defer s.rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO applications (
			id, reference_no, status, service_type, applicant_key, applicant_name,
			applicant, beneficiary, family_members, assessment, assistance_types, extra,
			signature_path, duplicate_of, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $15)`,
		app.ID,
		app.ReferenceNo,
		string(app.Status),
		app.ServiceType,
		app.Applicant.Key(),
		app.Applicant.FullName(),
		applicant,
		beneficiary,
		family,
		nullString(app.Assessment),
		pq.Array(app.AssistanceTypes),
		extra,
		nullString(app.SignaturePath),
		nullString(app.DuplicateOf),
		app.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, referenceConstraint) {
			return apperrors.NewDuplicateReferenceError(app.ReferenceNo)
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	if tempReference != "" {
		res, err := tx.ExecContext(ctx,
			`UPDATE application_documents SET reference_no = $1 WHERE reference_no = $2`,
			app.ReferenceNo, tempReference)
		if err != nil {
			return apperrors.NewDatabaseError("reassociate documents", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			s.logger.Debug("documents re-associated", map[string]interface{}{
				"referenceNo":   app.ReferenceNo,
				"tempReference": tempReference,
				"documents":     n,
			})
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit create", err)
	}
	return nil
}

func (s *Store) ApplyTransition(ctx context.Context, change models.StatusChange) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseError("begin transition", err)
	}
	defer s.rollback(tx)

	var slotDate, slotTime sql.NullString
	if change.Interview != nil {
		slotDate = nullString(change.Interview.Date)
		slotTime = nullString(change.Interview.Time)
	}
	var releasedAt sql.NullTime
	if change.ReleasedAt != nil {
		releasedAt = sql.NullTime{Time: *change.ReleasedAt, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE applications
		SET status = $1,
			updated_at = $2,
			rejection_reason = COALESCE($3, rejection_reason),
			interview_date = COALESCE($4, interview_date),
			interview_time = COALESCE($5, interview_time),
			released_at = COALESCE($6, released_at)
		WHERE id = $7 AND status = $8`,
		string(change.To),
		change.At,
		nullString(change.RejectionReason),
		slotDate,
		slotTime,
		releasedAt,
		change.ApplicationID,
		string(change.From),
	)
	if err != nil {
		return apperrors.NewDatabaseError("update status", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperrors.NewDatabaseError("update status", err)
	} else if n == 0 {
		return apperrors.NewInvalidTransitionError(change.Audit.Action, string(change.From))
	}

	if change.Interview != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO interview_slots (slot_date, slot_time, application_id, reserved_at)
			VALUES ($1, $2, $3, $4)`,
			change.Interview.Date, change.Interview.Time, change.ApplicationID, change.At)
		if err != nil {
			if isUniqueViolation(err, slotConstraint) {
				return apperrors.NewSlotConflictError(change.Interview.Date, change.Interview.Time)
			}
			return apperrors.NewDatabaseInsertFailedError(err)
		}
	}

	a := change.Audit
	_, err = tx.ExecContext(ctx, `
		INSERT INTO application_audit (
			id, application_id, actor_id, role, action, from_status, to_status, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ApplicationID, a.ActorID, string(a.Role), a.Action,
		string(a.FromStatus), string(a.ToStatus), nullString(a.Reason), a.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseError("commit transition", err)
	}
	return nil
}

func (s *Store) SetSignature(ctx context.Context, id string, role models.Role, state models.Status, path string) error {
	column, ok := signatureColumns[role]
	if !ok {
		return apperrors.NewForbiddenActionError(string(role), "sign")
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE applications SET %[1]s = $1 WHERE id = $2 AND status = $3 AND %[1]s IS NULL`, column),
		path, id, string(state))
	if err != nil {
		return apperrors.NewDatabaseError("set signature", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperrors.NewDatabaseError("set signature", err)
	} else if n == 1 {
		return nil
	}

	// classify the miss
	var status string
	var signed bool
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		`SELECT status, %s IS NOT NULL FROM applications WHERE id = $1`, column), id).Scan(&status, &signed)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperrors.NewNotFoundError("application", id)
	case err != nil:
		return apperrors.NewDatabaseError("set signature", err)
	case signed:
		return apperrors.NewValidationError("signature", fmt.Sprintf("%s signature is already attached", role))
	default:
		return apperrors.NewInvalidTransitionError("sign", status)
	}
}

func (s *Store) RecordNotification(ctx context.Context, n models.Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, application_id, type, channel, recipient, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.ApplicationID, string(n.Type), n.Channel, nullString(n.Recipient), n.Status, nullString(n.Error), n.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// ==========================
// Reads
// ==========================

func (s *Store) Get(ctx context.Context, id string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get application", err)
	}
	return app, nil
}

func (s *Store) GetByReference(ctx context.Context, ref string) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE reference_no = $1`, ref)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("application", ref)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get application by reference", err)
	}
	return app, nil
}

func (s *Store) IsSlotTaken(ctx context.Context, slot models.InterviewSlot) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM interview_slots WHERE slot_date = $1 AND slot_time = $2
		)`, slot.Date, slot.Time).Scan(&taken)
	if err != nil {
		return false, apperrors.NewDatabaseError("check slot", err)
	}
	return taken, nil
}

func (s *Store) List(ctx context.Context, q models.ListQuery) ([]models.ApplicationSummary, int, error) {
	where, args := listWhere(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewDatabaseError("count applications", err)
	}

	args = append(args, q.PageSize, q.Offset())
	query := fmt.Sprintf(`SELECT %s FROM applications WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		summaryColumns, where, len(args)-1, len(args))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError("list applications", err)
	}
	defer rows.Close()

	items, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, apperrors.NewDatabaseError("list applications", err)
	}
	return items, total, nil
}

// listWhere builds the filter clause; placeholders are numbered from $1.
func listWhere(q models.ListQuery) (string, []interface{}) {
	statuses := make([]string, len(q.Statuses))
	for i, st := range q.Statuses {
		statuses[i] = string(st)
	}
	clauses := []string{"status = ANY($1)"}
	args := []interface{}{pq.Array(statuses)}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if q.ServiceType != "" {
		add("service_type = $%d", q.ServiceType)
	}
	if q.UpdatedFrom != nil {
		add("updated_at >= $%d", *q.UpdatedFrom)
	}
	if q.UpdatedTo != nil {
		add("updated_at <= $%d", *q.UpdatedTo)
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		add("(applicant_name ILIKE $%[1]d OR reference_no ILIKE $%[1]d)", "%"+escapeLike(term)+"%")
	}
	return strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Store) ListStale(ctx context.Context, state models.Status, cutoff time.Time) ([]models.ApplicationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+summaryColumns+`
		FROM applications
		WHERE status = $1 AND updated_at <= $2
		ORDER BY updated_at ASC, id`, string(state), cutoff)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list stale", err)
	}
	defer rows.Close()

	items, err := scanSummaries(rows)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list stale", err)
	}
	return items, nil
}

func (s *Store) CountByState(ctx context.Context) (map[models.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, apperrors.NewDatabaseError("count by state", err)
	}
	defer rows.Close()

	counts := make(map[models.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.NewDatabaseError("count by state", err)
		}
		counts[models.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("count by state", err)
	}
	return counts, nil
}

func (s *Store) FindRecentRelease(ctx context.Context, applicantKey string, since time.Time) (*models.Application, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+applicationColumns+`
		FROM applications
		WHERE applicant_key = $1 AND status = $2 AND released_at >= $3
		ORDER BY released_at DESC
		LIMIT 1`, applicantKey, string(models.StatusReleased), since)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("find recent release", err)
	}
	return app, nil
}

func (s *Store) History(ctx context.Context, id string) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, application_id, actor_id, role, action, from_status, to_status, reason, created_at
		FROM application_audit
		WHERE application_id = $1
		ORDER BY created_at ASC, id`, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError("history", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var role, from, to string
		var reason sql.NullString
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.ActorID, &role, &e.Action, &from, &to, &reason, &e.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("history", err)
		}
		e.Role = models.Role(role)
		e.FromStatus = models.Status(from)
		e.ToStatus = models.Status(to)
		e.Reason = reason.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("history", err)
	}
	return out, nil
}

// ==========================
// Scanning
// ==========================

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app                                     models.Application
		status                                  string
		applicant, beneficiary, family, extra   []byte
		assessment, clientSig, staffSig         sql.NullString
		approverSig, mayorSig                   sql.NullString
		slotDate, slotTime, reason, duplicateOf sql.NullString
		assistance                              pq.StringArray
		releasedAt                              sql.NullTime
	)
	err := row.Scan(
		&app.ID, &app.ReferenceNo, &status, &app.ServiceType, &applicant, &beneficiary,
		&family, &assessment, &assistance, &extra,
		&clientSig, &staffSig, &approverSig, &mayorSig,
		&slotDate, &slotTime, &reason, &duplicateOf,
		&app.CreatedAt, &app.UpdatedAt, &releasedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Status = models.Status(status)
	if !app.Status.Valid() {
		return nil, fmt.Errorf("application %s has unknown status %q", app.ID, status)
	}
	if err := json.Unmarshal(applicant, &app.Applicant); err != nil {
		return nil, fmt.Errorf("decode applicant: %w", err)
	}
	if len(beneficiary) > 0 {
		app.Beneficiary = &models.ApplicantProfile{}
		if err := json.Unmarshal(beneficiary, app.Beneficiary); err != nil {
			return nil, fmt.Errorf("decode beneficiary: %w", err)
		}
	}
	if len(family) > 0 {
		if err := json.Unmarshal(family, &app.FamilyMembers); err != nil {
			return nil, fmt.Errorf("decode family members: %w", err)
		}
	}
	if len(extra) > 0 {
		if err := json.Unmarshal(extra, &app.Extra); err != nil {
			return nil, fmt.Errorf("decode extra: %w", err)
		}
	}
	app.Assessment = assessment.String
	app.AssistanceTypes = []string(assistance)
	app.SignaturePath = clientSig.String
	app.StaffSignaturePath = staffSig.String
	app.ApproverSignaturePath = approverSig.String
	app.MayorSignaturePath = mayorSig.String
	if slotDate.Valid && slotTime.Valid {
		app.Interview = &models.InterviewSlot{Date: slotDate.String, Time: slotTime.String}
	}
	app.RejectionReason = reason.String
	app.DuplicateOf = duplicateOf.String
	if releasedAt.Valid {
		t := releasedAt.Time
		app.ReleasedAt = &t
	}
	return &app, nil
}

func scanSummaries(rows *sql.Rows) ([]models.ApplicationSummary, error) {
	var out []models.ApplicationSummary
	for rows.Next() {
		var (
			sum                             models.ApplicationSummary
			status                          string
			slotDate, slotTime, duplicateOf sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.ReferenceNo, &sum.ApplicantName, &sum.ServiceType, &status,
			&slotDate, &slotTime, &duplicateOf, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, err
		}
		sum.Status = models.Status(status)
		if slotDate.Valid && slotTime.Valid {
			sum.Interview = &models.InterviewSlot{Date: slotDate.String, Time: slotTime.String}
		}
		sum.DuplicateOf = duplicateOf.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// ==========================
// Helpers
// ==========================

func (s *Store) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.logger.Warn("transaction rollback failed", map[string]interface{}{"error": err})
	}
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == uniqueViolation && (constraint == "" || pqErr.Constraint == constraint)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalOptional(v interface{}, empty bool) ([]byte, error) {
	if empty {
		return nil, nil
	}
	return json.Marshal(v)
}

func nonNilFamily(m []models.FamilyMember) []models.FamilyMember {
	if m == nil {
		return []models.FamilyMember{}
	}
	return m
}
