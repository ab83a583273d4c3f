package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/hcm-portal/hcm-portal/internal/db/models"
)

var auditCols = []string{"id", "subject", "action", "metadata", "ip_address", "created_at"}

func newAuditRepo(t *testing.T) (*AuditRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAuditRepository(db), mock
}

func TestCreateAuditEvent(t *testing.T) {
	repo, mock := newAuditRepo(t)
	subject := "auth0|emp-1"
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), &subject, "session.bootstrap", []byte(`{"outcome":"active"}`), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.AuditEvent{
		Subject:  &subject,
		Action:   "session.bootstrap",
		Metadata: map[string]interface{}{"outcome": "active"},
	}
	if err := repo.CreateAuditEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.ID == "" {
		t.Error("expected generated ID")
	}
}

func TestCreateAuditEvent_NilMetadata(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectExec("INSERT INTO audit_events").
		WithArgs(sqlmock.AnyArg(), nil, "webhook.employee_status", []byte(nil), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	event := &models.AuditEvent{Action: "webhook.employee_status"}
	if err := repo.CreateAuditEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListAuditEvents_FiltersBySubject(t *testing.T) {
	repo, mock := newAuditRepo(t)
	subject := "auth0|emp-1"

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(subject).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT.*FROM audit_events.*subject").
		WithArgs(subject, 50, 0).
		WillReturnRows(sqlmock.NewRows(auditCols).
			AddRow("evt-1", &subject, "session.bootstrap", []byte(`{"outcome":"active"}`), nil, time.Now()))

	events, total, err := repo.ListAuditEvents(context.Background(), AuditFilters{Subject: &subject}, 50, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Metadata["outcome"] != "active" {
		t.Errorf("metadata outcome = %v, want active", events[0].Metadata["outcome"])
	}
}

func TestListAuditEvents_DBError(t *testing.T) {
	repo, mock := newAuditRepo(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnError(errDB)

	_, _, err := repo.ListAuditEvents(context.Background(), AuditFilters{}, 50, 0)
	if err == nil {
		t.Fatal("expected error")
	}
}
