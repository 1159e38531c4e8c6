package storage

import "time"

// ActivityRecord is one imported activity: the local row tracking a remote
// content item and the course module created for it.
type ActivityRecord struct {
	ID           int64
	ExternalID   string
	ModuleID     int64
	Title        string
	Language     string
	Duration     string
	Difficulty   string
	Author       string
	Type         string
	CanonicalURL string
	PackageURL   string
	LastSyncedAt time.Time
}

// Settings is the persisted connector configuration.
type Settings struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	CatalogID    string
	SyncInterval time.Duration
	UpdatedAt    time.Time
}
