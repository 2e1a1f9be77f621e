package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// Settings Queries
// =============================================================================

// LoadSettings returns the settings saved for owner, or DefaultSettings when
// the owner never saved any.
func (db *DB) LoadSettings(ctx context.Context, owner string) (*Settings, error) {
	var data string
	var updatedAt sql.NullString

	err := db.QueryRowContext(ctx,
		"SELECT data, updated_at FROM settings WHERE owner = ?",
		owner,
	).Scan(&data, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := DefaultSettings()
			return &defaults, nil
		}
		return nil, fmt.Errorf("query settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings for %s: %w", owner, err)
	}
	if settings.BadgeFilter == nil {
		settings.BadgeFilter = DefaultSettings().BadgeFilter
	}
	if settings.Theme == "" {
		settings.Theme = ThemeSystem
	}
	settings.UpdatedAt = parseTimestamp(updatedAt)

	return &settings, nil
}

// SaveSettings validates and stores the settings for owner, replacing any
// previous ones. UpdatedAt is set on s.
func (db *DB) SaveSettings(ctx context.Context, owner string, s *Settings) error {
	if owner == "" {
		return errors.New("settings owner is required")
	}
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO settings (owner, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, owner, string(data), now.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	s.UpdatedAt = now
	return nil
}
