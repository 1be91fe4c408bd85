package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedTime = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewTestLogger(t)), mock
}

func sampleApplication() *models.Application {
	return &models.Application{
		ID:          "app-1",
		ReferenceNo: "MSWD-20250301-ABC123",
		Status:      models.StatusPending,
		ServiceType: "medical",
		Applicant: models.ApplicantProfile{
			FirstName: "Maria",
			LastName:  "Santos",
			BirthDate: "1980-01-15",
			Email:     "maria@example.com",
		},
		AssistanceTypes: []string{"hospital bill"},
		CreatedAt:       fixedTime,
		UpdatedAt:       fixedTime,
	}
}

func applicationRow() *sqlmock.Rows {
	cols := strings.Split(strings.Join(strings.Fields(applicationColumns), ""), ",")
	return sqlmock.NewRows(cols).AddRow(
		"app-1", "MSWD-20250301-ABC123", "Approved", "medical",
		[]byte(`{"firstName":"Maria","lastName":"Santos","birthDate":"1980-01-15"}`),
		nil,
		[]byte(`[{"name":"Jose","relationship":"son","age":12}]`),
		"needs surgery",
		"{\"hospital bill\"}",
		nil,
		"app-1/client.png", "app-1/admin.png", nil, nil,
		"2025-03-10", "10:00", nil, nil,
		fixedTime, fixedTime.Add(time.Hour), nil,
	)
}

func summaryRows() *sqlmock.Rows {
	cols := strings.Split(strings.Join(strings.Fields(summaryColumns), ""), ",")
	return sqlmock.NewRows(cols)
}

func uniqueErr(constraint string) error {
	return &pq.Error{Code: uniqueViolation, Constraint: constraint}
}

// ==========================
// Create
// ==========================

func TestStore_Create_ReassociatesTemporaryDocuments(t *testing.T) {
	s, mock := newTestStore(t)
	app := sampleApplication()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).
		WithArgs("app-1", app.ReferenceNo, "Pending for approval", "medical",
			"maria|santos|1980-01-15", "Maria Santos",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE application_documents SET reference_no`).
		WithArgs(app.ReferenceNo, "TMP-42").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, s.Create(context.Background(), app, "TMP-42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create_WithoutTemporaryReference(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Create(context.Background(), sampleApplication(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create_DuplicateReference(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).WillReturnError(uniqueErr(referenceConstraint))
	mock.ExpectRollback()

	err := s.Create(context.Background(), sampleApplication(), "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Create_InsertFailure(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.Create(context.Background(), sampleApplication(), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseInsertFailed, apperrors.CodeOf(err))
}

// ==========================
// ApplyTransition
// ==========================

func approveChange() models.StatusChange {
	return models.StatusChange{
		ApplicationID: "app-1",
		From:          models.StatusPending,
		To:            models.StatusApproved,
		Interview:     &models.InterviewSlot{Date: "2025-03-10", Time: "10:00"},
		At:            fixedTime,
		Audit: models.AuditEntry{
			ID:            "audit-1",
			ApplicationID: "app-1",
			ActorID:       "admin-1",
			Role:          models.RoleAdmin,
			Action:        "approve",
			FromStatus:    models.StatusPending,
			ToStatus:      models.StatusApproved,
			CreatedAt:     fixedTime,
		},
	}
}

func TestStore_ApplyTransition_Success(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WithArgs("Approved", fixedTime, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			"app-1", "Pending for approval").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO interview_slots`).
		WithArgs("2025-03-10", "10:00", "app-1", fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO application_audit`).
		WithArgs("audit-1", "app-1", "admin-1", "admin", "approve", "Pending for approval", "Approved", sqlmock.AnyArg(), fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ApplyTransition(context.Background(), approveChange()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ApplyTransition_StaleStatus(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.ApplyTransition(context.Background(), approveChange())
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ApplyTransition_SlotConflictRollsBack(t *testing.T) {
	s, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO interview_slots`).WillReturnError(uniqueErr(slotConstraint))
	mock.ExpectRollback()

	err := s.ApplyTransition(context.Background(), approveChange())
	assert.ErrorIs(t, err, apperrors.ErrSlotConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ApplyTransition_RejectSkipsSlot(t *testing.T) {
	s, mock := newTestStore(t)
	change := models.StatusChange{
		ApplicationID:   "app-1",
		From:            models.StatusWaitingHead,
		To:              models.StatusRejected,
		RejectionReason: "Incomplete documents",
		At:              fixedTime,
		Audit:           models.AuditEntry{ID: "audit-2", ApplicationID: "app-1", Role: models.RoleApprover, Action: "reject", CreatedAt: fixedTime},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE applications`).
		WithArgs("Rejected", fixedTime, sql.NullString{String: "Incomplete documents", Valid: true},
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "app-1", "Waiting for approval of head").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO application_audit`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.ApplyTransition(context.Background(), change))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Signatures
// ==========================

func TestStore_SetSignature(t *testing.T) {
	t.Run("stored", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectExec(`UPDATE applications SET staff_signature_path = \$1`).
			WithArgs("app-1/admin.png", "app-1", "Approved").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, s.SetSignature(context.Background(), "app-1", models.RoleAdmin, models.StatusApproved, "app-1/admin.png"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already signed", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectExec(`UPDATE applications SET mayor_signature_path`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status, mayor_signature_path IS NOT NULL`).
			WithArgs("app-1").
			WillReturnRows(sqlmock.NewRows([]string{"status", "signed"}).AddRow("Waiting for approval of city mayor", true))

		err := s.SetSignature(context.Background(), "app-1", models.RoleCityMayor, models.StatusWaitingMayor, "p")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("moved on", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectExec(`UPDATE applications SET approver_signature_path`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status`).
			WillReturnRows(sqlmock.NewRows([]string{"status", "signed"}).AddRow("Rejected", false))

		err := s.SetSignature(context.Background(), "app-1", models.RoleApprover, models.StatusWaitingHead, "p")
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("missing application", func(t *testing.T) {
		s, mock := newTestStore(t)
		mock.ExpectExec(`UPDATE applications`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT status`).WillReturnError(sql.ErrNoRows)

		err := s.SetSignature(context.Background(), "nope", models.RoleAdmin, models.StatusApproved, "p")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("client role has no staff column", func(t *testing.T) {
		s, _ := newTestStore(t)
		err := s.SetSignature(context.Background(), "app-1", models.RoleClient, models.StatusPending, "p")
		assert.ErrorIs(t, err, apperrors.ErrForbiddenAction)
	})
}

// ==========================
// Reads
// ==========================

func TestStore_Get(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`FROM applications WHERE id = \$1`).WithArgs("app-1").WillReturnRows(applicationRow())

	app, err := s.Get(context.Background(), "app-1")
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, app.Status)
	assert.Equal(t, "Maria Santos", app.Applicant.FullName())
	assert.Nil(t, app.Beneficiary)
	require.Len(t, app.FamilyMembers, 1)
	assert.Equal(t, "son", app.FamilyMembers[0].Relationship)
	assert.Equal(t, []string{"hospital bill"}, app.AssistanceTypes)
	assert.Equal(t, "app-1/admin.png", app.StaffSignaturePath)
	assert.Empty(t, app.ApproverSignaturePath)
	require.NotNil(t, app.Interview)
	assert.Equal(t, "10:00", app.Interview.Time)
	assert.Nil(t, app.ReleasedAt)
}

func TestStore_Get_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`FROM applications WHERE id`).WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_GetByReference_NotFound(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`WHERE reference_no = \$1`).WithArgs("MSWD-X").WillReturnError(sql.ErrNoRows)

	_, err := s.GetByReference(context.Background(), "MSWD-X")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStore_IsSlotTaken(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("2025-03-10", "10:00").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := s.IsSlotTaken(context.Background(), models.InterviewSlot{Date: "2025-03-10", Time: "10:00"})
	require.NoError(t, err)
	assert.True(t, taken)
}

func TestStore_List(t *testing.T) {
	s, mock := newTestStore(t)
	q := models.ListQuery{
		Statuses:   []models.Status{models.StatusPending},
		ListFilter: models.ListFilter{ServiceType: "medical", Page: 2, PageSize: 10},
	}

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM applications WHERE status = ANY\(\$1\) AND service_type = \$2`).
		WithArgs(sqlmock.AnyArg(), "medical").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs(sqlmock.AnyArg(), "medical", 10, 10).
		WillReturnRows(summaryRows().AddRow("app-11", "MSWD-1", "Ana Cruz", "medical", "Pending for approval", nil, nil, nil, fixedTime, fixedTime))

	items, total, err := s.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Ana Cruz", items[0].ApplicantName)
	assert.Nil(t, items[0].Interview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWhere(t *testing.T) {
	from := fixedTime
	to := fixedTime.Add(48 * time.Hour)
	where, args := listWhere(models.ListQuery{
		Statuses: []models.Status{models.StatusApproved, models.StatusReadyForRelease},
		ListFilter: models.ListFilter{
			Search:      " 50%_off ",
			UpdatedFrom: &from,
			UpdatedTo:   &to,
		},
	})

	assert.Equal(t,
		"status = ANY($1) AND updated_at >= $2 AND updated_at <= $3 AND (applicant_name ILIKE $4 OR reference_no ILIKE $4)",
		where)
	require.Len(t, args, 4)
	assert.Equal(t, `%50\%\_off%`, args[3])
}

func TestStore_ListStale(t *testing.T) {
	s, mock := newTestStore(t)
	cutoff := fixedTime.Add(-72 * time.Hour)
	mock.ExpectQuery(`WHERE status = \$1 AND updated_at <= \$2`).
		WithArgs("Waiting for approval of city mayor", cutoff).
		WillReturnRows(summaryRows().
			AddRow("a", "R-1", "A", "medical", "Waiting for approval of city mayor", "2025-02-01", "09:00", nil, cutoff, cutoff.Add(-time.Hour)))

	items, err := s.ListStale(context.Background(), models.StatusWaitingMayor, cutoff)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Interview)
	assert.Equal(t, "2025-02-01", items[0].Interview.Date)
}

func TestStore_CountByState(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("Pending for approval", 4).
			AddRow("Released", 2))

	counts, err := s.CountByState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts[models.StatusPending])
	assert.Equal(t, 2, counts[models.StatusReleased])
}

func TestStore_FindRecentRelease_None(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`WHERE applicant_key = \$1`).
		WithArgs("maria|santos|1980-01-15", "Released", fixedTime).
		WillReturnError(sql.ErrNoRows)

	app, err := s.FindRecentRelease(context.Background(), "maria|santos|1980-01-15", fixedTime)
	assert.NoError(t, err)
	assert.Nil(t, app)
}

func TestStore_History(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectQuery(`FROM application_audit`).
		WithArgs("app-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "actor_id", "role", "action", "from_status", "to_status", "reason", "created_at"}).
			AddRow("a1", "app-1", "admin-1", "admin", "approve", "Pending for approval", "Approved", nil, fixedTime).
			AddRow("a2", "app-1", "head-1", "approver", "reject", "Waiting for approval of head", "Rejected", "No budget", fixedTime.Add(time.Hour)))

	history, err := s.History(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleApprover, history[1].Role)
	assert.Equal(t, models.StatusRejected, history[1].ToStatus)
	assert.Equal(t, "No budget", history[1].Reason)
	assert.Empty(t, history[0].Reason)
}

func TestStore_RecordNotification(t *testing.T) {
	s, mock := newTestStore(t)
	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("n-1", "app-1", "ready_for_release", "sms", sqlmock.AnyArg(), "sent", sqlmock.AnyArg(), fixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.RecordNotification(context.Background(), models.Notification{
		ID:            "n-1",
		ApplicationID: "app-1",
		Type:          models.NotificationReadyForRelease,
		Channel:       models.ChannelSMS,
		Recipient:     "+639171234567",
		Status:        models.DeliverySent,
		CreatedAt:     fixedTime,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(uniqueErr(slotConstraint), slotConstraint))
	assert.False(t, isUniqueViolation(uniqueErr(slotConstraint), referenceConstraint))
	assert.True(t, isUniqueViolation(uniqueErr("anything"), ""))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
}
