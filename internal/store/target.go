package store

import (
	"database/sql"
	"errors"
	"time"
)

// Target is a class name the watch pipeline looks for, with its own
// confidence threshold.
type Target struct {
	ID        string
	Label     string
	Threshold float64
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TargetRepository provides CRUD operations for watch targets.
type TargetRepository struct {
	db *sql.DB
}

// Targets returns the target repository for this store.
func (s *Store) Targets() *TargetRepository {
	return &TargetRepository{db: s.db}
}

// Create inserts a new target.
func (r *TargetRepository) Create(t *Target) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO targets (id, label, threshold, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Label, t.Threshold, t.Enabled, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

// GetByID retrieves a target by its ID.
func (r *TargetRepository) GetByID(id string) (*Target, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, label, threshold, enabled, created_at, updated_at
		 FROM targets WHERE id = ?`, id))
}

// GetByLabel retrieves a target by its class name.
func (r *TargetRepository) GetByLabel(label string) (*Target, error) {
	return r.scanOne(r.db.QueryRow(
		`SELECT id, label, threshold, enabled, created_at, updated_at
		 FROM targets WHERE label = ?`, label))
}

func (r *TargetRepository) scanOne(row *sql.Row) (*Target, error) {
	t := &Target{}
	var enabled int
	err := row.Scan(&t.ID, &t.Label, &t.Threshold, &enabled, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Enabled = enabled != 0
	return t, nil
}

// List retrieves all targets, newest first.
func (r *TargetRepository) List() ([]*Target, error) {
	return r.list(
		`SELECT id, label, threshold, enabled, created_at, updated_at
		 FROM targets ORDER BY created_at DESC`)
}

// ListEnabled retrieves the targets the pipeline should watch for, in
// creation order so class indices stay stable between frames.
func (r *TargetRepository) ListEnabled() ([]*Target, error) {
	return r.list(
		`SELECT id, label, threshold, enabled, created_at, updated_at
		 FROM targets WHERE enabled = 1 ORDER BY created_at ASC`)
}

func (r *TargetRepository) list(query string) ([]*Target, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []*Target
	for rows.Next() {
		t := &Target{}
		var enabled int
		if err := rows.Scan(&t.ID, &t.Label, &t.Threshold, &enabled, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Enabled = enabled != 0
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}

// Update updates an existing target.
func (r *TargetRepository) Update(t *Target) error {
	t.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE targets SET label = ?, threshold = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		t.Label, t.Threshold, t.Enabled, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a target by its ID.
func (r *TargetRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// requireRow converts a no-op write into ErrNotFound.
func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
