package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/couchcryptid/marine-report-insights/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportColumns = []string{"id", "report_no", "status", "safety_score", "created_at", "location_data"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
	return NewStore(db), mock
}

func TestStore_GetReport(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2025, 7, 1, 0, 30, 0, 0, time.UTC)
	payload := `{"location":{"name":"Jeju"}}`

	mock.ExpectQuery(regexp.QuoteMeta(selectReport)).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow("r-1", "MR-20250701-0001", "submitted", 85, created, []byte(payload)))

	got, err := store.GetReport(context.Background(), "r-1")
	require.NoError(t, err)

	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "MR-20250701-0001", got.ReportNo)
	assert.Equal(t, "submitted", got.Status)
	require.NotNil(t, got.SafetyScore)
	assert.Equal(t, 85, *got.SafetyScore)
	assert.Equal(t, created, got.CreatedAt)
	assert.JSONEq(t, payload, string(got.LocationData))
}

func TestStore_GetReport_NullColumns(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectReport)).
		WithArgs("r-2").
		WillReturnRows(sqlmock.NewRows(reportColumns).
			AddRow("r-2", nil, nil, nil, time.Now(), nil))

	got, err := store.GetReport(context.Background(), "r-2")
	require.NoError(t, err)
	assert.Empty(t, got.ReportNo)
	assert.Nil(t, got.SafetyScore)
	assert.Empty(t, got.LocationData)
}

func TestStore_GetReport_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectReport)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetReport(context.Background(), "missing")
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestStore_GetReport_QueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectReport)).
		WithArgs("r-3").
		WillReturnError(errors.New("connection reset"))

	_, err := store.GetReport(context.Background(), "r-3")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReportNotFound)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestStore_UpdateLocationData(t *testing.T) {
	store, mock := newMockStore(t)
	payload := domain.ReportPayload{
		Location: &domain.Location{Name: "Busan", Coordinates: domain.Coordinates{Latitude: 35.1, Longitude: 129.0}},
	}
	want, err := json.Marshal(payload)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta(updatePayload)).
		WithArgs(want, "r-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateLocationData(context.Background(), "r-1", payload))
}

func TestStore_UpdateLocationData_NoRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta(updatePayload)).
		WithArgs(sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateLocationData(context.Background(), "gone", domain.ReportPayload{})
	require.ErrorIs(t, err, ErrReportNotFound)
}

func TestStore_CheckReadiness(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectPing()
	require.NoError(t, store.CheckReadiness(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	err := store.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not reachable")
}
