package store

import (
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial observations schema",
		SQL: `
CREATE TABLE IF NOT EXISTS observations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date_time INTEGER NOT NULL,
    unit_system TEXT NOT NULL,
    station_id INTEGER,
    wind_speed_min REAL,
    wind_speed REAL,
    wind_speed_max REAL,
    wind_dir_min REAL,
    wind_dir REAL,
    wind_dir_max REAL,
    out_temp REAL,
    out_humidity REAL,
    pressure REAL,
    long_term_rain REAL,
    rain_duration REAL,
    rain_intensity REAL,
    rain_peak_intensity REAL,
    hail REAL,
    hail_duration REAL,
    hail_intensity REAL,
    hail_peak_intensity REAL,
    heating_temp REAL,
    heating_voltage REAL,
    supply_voltage REAL,
    reference_voltage REAL,
    in_temp REAL,
    in_humidity REAL,
    daily_rain REAL,
    wind_average REAL,
    day_of_year INTEGER,
    minute_of_day INTEGER,
    rain REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_obs_time ON observations(date_time);
`,
	},
	{
		Version:     2,
		Description: "Add quality flags to observations",
		SQL: `
ALTER TABLE observations ADD COLUMN quality_flags TEXT NOT NULL DEFAULT '';
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
