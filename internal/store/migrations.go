package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Targets table - class names the watch pipeline looks for
		`CREATE TABLE IF NOT EXISTS targets (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL UNIQUE,
			threshold REAL NOT NULL DEFAULT 0.1,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Sightings table - detections recorded by the pipeline or the API
		`CREATE TABLE IF NOT EXISTS sightings (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			x1 INTEGER NOT NULL,
			y1 INTEGER NOT NULL,
			x2 INTEGER NOT NULL,
			y2 INTEGER NOT NULL,
			mask_area INTEGER NOT NULL DEFAULT 0,
			frame_width INTEGER NOT NULL,
			frame_height INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for the common query paths
		`CREATE INDEX IF NOT EXISTS idx_sightings_label ON sightings(label)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_created_at ON sightings(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}
