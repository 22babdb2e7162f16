// Package postgres reads and writes report rows.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/marine-report-insights/internal/domain"
	_ "github.com/lib/pq" // postgres driver
)

// ErrReportNotFound is returned when no row has the requested id.
var ErrReportNotFound = errors.New("report not found")

const (
	selectReport  = `SELECT id, report_no, status, safety_score, created_at, location_data FROM reports WHERE id = $1`
	updatePayload = `UPDATE reports SET location_data = $1 WHERE id = $2`
)

// Store is the reports table. Only location_data is ever written.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres with the given URL.
func Open(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return NewStore(db), nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetReport loads one report row.
func (s *Store) GetReport(ctx context.Context, id string) (domain.StoredReport, error) {
	var (
		r           domain.StoredReport
		reportNo    sql.NullString
		status      sql.NullString
		safetyScore sql.NullInt64
		payload     []byte
	)
	err := s.db.QueryRowContext(ctx, selectReport, id).Scan(
		&r.ID,
		&reportNo,
		&status,
		&safetyScore,
		&r.CreatedAt,
		&payload,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StoredReport{}, ErrReportNotFound
	}
	if err != nil {
		return domain.StoredReport{}, fmt.Errorf("get report %s: %w", id, err)
	}

	r.ReportNo = reportNo.String
	r.Status = status.String
	if safetyScore.Valid {
		score := int(safetyScore.Int64)
		r.SafetyScore = &score
	}
	r.LocationData = json.RawMessage(payload)
	return r, nil
}

// UpdateLocationData replaces the payload of one report.
func (s *Store) UpdateLocationData(ctx context.Context, id string, payload domain.ReportPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, updatePayload, data, id)
	if err != nil {
		return fmt.Errorf("update report %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report %s: %w", id, err)
	}
	if n == 0 {
		return ErrReportNotFound
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
