package store

import (
	"database/sql"
	"time"

	"github.com/lox/solarwall/internal/models"
)

// StartLocationLookup creates a lookup record and returns it.
func (s *Store) StartLocationLookup(provider string) (*models.LocationLookup, error) {
	lookup := &models.LocationLookup{
		StartedAt: time.Now().UTC(),
		Provider:  provider,
	}

	result, err := s.db.Exec(`
		INSERT INTO location_lookups (started_at, provider, success)
		VALUES (?, ?, FALSE)
	`, lookup.StartedAt, lookup.Provider)
	if err != nil {
		return nil, err
	}

	lookup.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return lookup, nil
}

// CompleteLocationLookup stores the outcome of lookup.
func (s *Store) CompleteLocationLookup(lookup *models.LocationLookup) error {
	if lookup == nil {
		return nil
	}

	lookup.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	_, err := s.db.Exec(`
		UPDATE location_lookups SET
			finished_at = ?,
			http_status = ?,
			latitude = ?,
			longitude = ?,
			success = ?,
			error_message = ?
		WHERE id = ?
	`, lookup.FinishedAt, lookup.HTTPStatus, lookup.Latitude, lookup.Longitude,
		lookup.Success, lookup.ErrorMessage, lookup.ID)
	return err
}

// RecentLocationLookups returns up to limit lookups, newest first.
func (s *Store) RecentLocationLookups(limit int) ([]models.LocationLookup, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, provider, http_status, latitude, longitude, success, error_message
		FROM location_lookups
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.LocationLookup
	for rows.Next() {
		var l models.LocationLookup
		if err := rows.Scan(&l.ID, &l.StartedAt, &l.FinishedAt, &l.Provider, &l.HTTPStatus,
			&l.Latitude, &l.Longitude, &l.Success, &l.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, l)
	}
	return results, rows.Err()
}
