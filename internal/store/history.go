package store

import (
	"github.com/lox/solarwall/internal/models"
)

func (s *Store) RecordWallpaperChange(c models.WallpaperChange) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO wallpaper_changes (applied_at, theme_id, image_id, image_path, segment, dark_mode)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.AppliedAt.UTC(), c.ThemeID, c.ImageID, c.ImagePath, c.Segment, c.DarkMode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// RecentWallpaperChanges returns up to limit changes, newest first.
func (s *Store) RecentWallpaperChanges(limit int) ([]models.WallpaperChange, error) {
	rows, err := s.db.Query(`
		SELECT id, applied_at, theme_id, image_id, image_path, segment, dark_mode
		FROM wallpaper_changes
		ORDER BY applied_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []models.WallpaperChange
	for rows.Next() {
		var c models.WallpaperChange
		if err := rows.Scan(&c.ID, &c.AppliedAt, &c.ThemeID, &c.ImageID, &c.ImagePath, &c.Segment, &c.DarkMode); err != nil {
			return nil, err
		}
		c.AppliedAt = c.AppliedAt.In(s.loc)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// LastWallpaperChange returns the most recent change, or nil when none has
// been recorded.
func (s *Store) LastWallpaperChange() (*models.WallpaperChange, error) {
	changes, err := s.RecentWallpaperChanges(1)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, nil
	}
	return &changes[0], nil
}
