// Package engine reconciles imported activities against the remote catalog:
// importing new content, diffing and updating previously imported records,
// and cleaning up orphans.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/openlms/edflex-connector/internal/course"
	"github.com/openlms/edflex-connector/internal/storage"
)

// Import-time precondition failures.
var (
	// ErrInvalidCourseID is returned when the import target course does not exist.
	ErrInvalidCourseID = errors.New("engine: course does not exist")

	// ErrMissingPackageURL is returned when a remote record carries no
	// package download URL.
	ErrMissingPackageURL = errors.New("engine: content has no package download URL")
)

// PackageClient downloads raw content packages. Satisfied by *edflex.Client.
type PackageClient interface {
	GetScorm(ctx context.Context, url string) ([]byte, error)
}

// Engine carries no state of its own; everything lives in the record store,
// the course store and the remote API.
type Engine struct {
	records *storage.SQLiteStorage
	courses course.Store
	client  PackageClient
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for last_synced_at stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates a sync engine over the given stores and package client.
func New(records *storage.SQLiteStorage, courses course.Store, client PackageClient, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		records: records,
		courses: courses,
		client:  client,
		logger:  logger,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
