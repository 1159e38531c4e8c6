// Package api provides the connector's operational HTTP surface: health,
// settings, catalog browsing and manual sync/import endpoints.
package api

import (
	"log/slog"
	"time"

	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/engine"
	"github.com/openlms/edflex-connector/internal/schedule"
	"github.com/openlms/edflex-connector/internal/storage"
)

// catalogCacheTTL is the default cache window for the catalog listing.
const catalogCacheTTL = time.Hour

// Handler carries the dependencies of the ops endpoints.
type Handler struct {
	records        *storage.SQLiteStorage
	engine         *engine.Engine
	provider       edflex.Provider
	trigger        *schedule.Trigger
	logger         *slog.Logger
	adminTokenHash string
}

// NewHandler creates the ops API handler. adminTokenHash is the bcrypt hash
// protected endpoints verify bearer tokens against; when empty, protected
// endpoints refuse all requests.
func NewHandler(records *storage.SQLiteStorage, eng *engine.Engine, provider edflex.Provider, trigger *schedule.Trigger, adminTokenHash string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		records:        records,
		engine:         eng,
		provider:       provider,
		trigger:        trigger,
		logger:         logger,
		adminTokenHash: adminTokenHash,
	}
}
