package store

import (
	"database/sql"
	"errors"
	"image"
	"time"
)

// Sighting is a detection recorded by the watch pipeline or the detect
// API: what was seen, how confidently, and where in the frame.
type Sighting struct {
	ID          string
	Label       string
	Confidence  float64
	Box         image.Rectangle
	MaskArea    int
	FrameWidth  int
	FrameHeight int
	CreatedAt   time.Time
}

// SightingRepository provides operations for recorded sightings.
type SightingRepository struct {
	db *sql.DB
}

// Sightings returns the sighting repository for this store.
func (s *Store) Sightings() *SightingRepository {
	return &SightingRepository{db: s.db}
}

// Create inserts a new sighting.
func (r *SightingRepository) Create(s *Sighting) error {
	s.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO sightings (id, label, confidence, x1, y1, x2, y2, mask_area, frame_width, frame_height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Label, s.Confidence,
		s.Box.Min.X, s.Box.Min.Y, s.Box.Max.X, s.Box.Max.Y,
		s.MaskArea, s.FrameWidth, s.FrameHeight, s.CreatedAt,
	)
	return err
}

// GetByID retrieves a sighting by its ID.
func (r *SightingRepository) GetByID(id string) (*Sighting, error) {
	row := r.db.QueryRow(
		`SELECT id, label, confidence, x1, y1, x2, y2, mask_area, frame_width, frame_height, created_at
		 FROM sightings WHERE id = ?`, id)

	s, err := scanSighting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List retrieves the most recent sightings, up to limit. A non-positive
// limit returns everything.
func (r *SightingRepository) List(limit int) ([]*Sighting, error) {
	query := `SELECT id, label, confidence, x1, y1, x2, y2, mask_area, frame_width, frame_height, created_at
		 FROM sightings ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+` LIMIT ?`, limit)
	} else {
		rows, err = r.db.Query(query)
	}
	if err != nil {
		return nil, err
	}
	return collectSightings(rows)
}

// ListByLabel retrieves the most recent sightings of one class, up to
// limit. A non-positive limit returns everything.
func (r *SightingRepository) ListByLabel(label string, limit int) ([]*Sighting, error) {
	query := `SELECT id, label, confidence, x1, y1, x2, y2, mask_area, frame_width, frame_height, created_at
		 FROM sightings WHERE label = ? ORDER BY created_at DESC`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.Query(query+` LIMIT ?`, label, limit)
	} else {
		rows, err = r.db.Query(query, label)
	}
	if err != nil {
		return nil, err
	}
	return collectSightings(rows)
}

// Purge deletes sightings recorded before the cutoff and returns how
// many were removed.
func (r *SightingRepository) Purge(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sightings WHERE created_at < ?`, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Clear deletes all recorded sightings.
func (r *SightingRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM sightings`)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSighting(row rowScanner) (*Sighting, error) {
	s := &Sighting{}
	var x1, y1, x2, y2 int
	err := row.Scan(&s.ID, &s.Label, &s.Confidence, &x1, &y1, &x2, &y2,
		&s.MaskArea, &s.FrameWidth, &s.FrameHeight, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	s.Box = image.Rect(x1, y1, x2, y2)
	return s, nil
}

func collectSightings(rows *sql.Rows) ([]*Sighting, error) {
	defer rows.Close()

	var sightings []*Sighting
	for rows.Next() {
		s, err := scanSighting(rows)
		if err != nil {
			return nil, err
		}
		sightings = append(sightings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sightings, nil
}
