package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveSettings persists the connector settings, encrypting the client
// secret. The settings table holds a single row that is replaced on save.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings *Settings) error {
	var encrypted []byte
	if settings.ClientSecret != "" {
		var err error
		encrypted, err = EncryptSecret(settings.ClientSecret, s.encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to encrypt client secret: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO settings
			(id, base_url, client_id, client_secret_encrypted, catalog_id, sync_interval_seconds, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		settings.BaseURL, settings.ClientID, encrypted, settings.CatalogID,
		int64(settings.SyncInterval/time.Second),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// LoadSettings returns the persisted connector settings with the client
// secret decrypted. Returns ErrNotFound when no settings have been saved.
func (s *SQLiteStorage) LoadSettings(ctx context.Context) (*Settings, error) {
	var (
		settings  Settings
		encrypted []byte
		interval  int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT base_url, client_id, client_secret_encrypted, catalog_id, sync_interval_seconds, updated_at
		 FROM settings WHERE id = 1`,
	).Scan(&settings.BaseURL, &settings.ClientID, &encrypted, &settings.CatalogID, &interval, &settings.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	settings.SyncInterval = time.Duration(interval) * time.Second

	if len(encrypted) > 0 {
		secret, err := DecryptSecret(encrypted, s.encryptionKey)
		if err != nil {
			return nil, err
		}
		settings.ClientSecret = secret
	}

	return &settings, nil
}
