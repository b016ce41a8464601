package storage

import (
	"fmt"

	"github.com/google/uuid"

	"barrel/internal/domain"
)

// RunLogStore implements domain.RunLogStore on SQLite.
type RunLogStore struct {
	db *DB
}

// NewRunLogStore creates a new RunLogStore.
func NewRunLogStore(db *DB) *RunLogStore {
	return &RunLogStore{db: db}
}

// CreateRunLog assigns l an ID and stores it.
func (s *RunLogStore) CreateRunLog(l *domain.RunLog) error {
	l.ID = uuid.New().String()
	_, err := s.db.conn.Exec(
		`INSERT INTO seed_runs (id, plan_path, driver, trigger_type, started_at, finished_at,
		 status, batches, inserted, records, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.PlanPath, l.Driver, l.Trigger, l.StartedAt, l.FinishedAt,
		l.Status, l.Batches, l.Inserted, l.Records, l.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run log: %w", err)
	}
	return nil
}

// ListRunLogs returns the newest runs first. An empty planPath lists every plan.
func (s *RunLogStore) ListRunLogs(planPath string, limit int) ([]domain.RunLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.conn.Query(
		`SELECT id, plan_path, driver, trigger_type, started_at, finished_at,
		 status, batches, inserted, records, error
		 FROM seed_runs WHERE ? = '' OR plan_path = ?
		 ORDER BY started_at DESC LIMIT ?`,
		planPath, planPath, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list run logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.RunLog
	for rows.Next() {
		var l domain.RunLog
		if err := rows.Scan(&l.ID, &l.PlanPath, &l.Driver, &l.Trigger, &l.StartedAt, &l.FinishedAt,
			&l.Status, &l.Batches, &l.Inserted, &l.Records, &l.Error); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
