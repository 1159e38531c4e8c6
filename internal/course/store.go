// Package course provides the course content store: the host-side entities
// (courses, modules, stored packages) that imported activities attach to.
// The engine only depends on the Store interface; the SQLite implementation
// here doubles as the reference host for tests and standalone deployments.
package course

import (
	"context"
	"database/sql"
	"time"
)

// Module is an activity module living in a course section.
type Module struct {
	ID              int64
	CourseID        int64
	Section         int
	Title           string
	Intro           string
	IDNumber        string
	PendingDeletion bool
	CreatedAt       time.Time
}

// ActivitySpec describes a module to create.
type ActivitySpec struct {
	CourseID int64
	Section  int
	Title    string
	Intro    string
	IDNumber string
}

// Store is the narrow contract the sync engine consumes.
type Store interface {
	// CourseExists reports whether the target course exists.
	CourseExists(ctx context.Context, courseID int64) (bool, error)

	// CreateActivity creates a module in a course section and returns its id.
	CreateActivity(ctx context.Context, spec ActivitySpec) (int64, error)

	// UpdateActivity updates the module-facing fields of a module.
	UpdateActivity(ctx context.Context, moduleID int64, title, intro string) error

	// UpdateActivityTx is UpdateActivity inside a caller-owned transaction
	// on the shared database handle. Callers must use this whenever a
	// transaction is open: the connector pool holds a single connection, so
	// going through the pool while a transaction is pending blocks forever.
	UpdateActivityTx(ctx context.Context, tx *sql.Tx, moduleID int64, title, intro string) error

	// DeleteActivity removes a module and its stored package.
	DeleteActivity(ctx context.Context, moduleID int64) error

	// StorePackage stores the downloaded content package for a module,
	// replacing any previous payload.
	StorePackage(ctx context.Context, moduleID int64, data []byte) error

	// StorePackageTx is StorePackage inside a caller-owned transaction on
	// the shared database handle.
	StorePackageTx(ctx context.Context, tx *sql.Tx, moduleID int64, data []byte) error

	// ModuleExists reports whether a module still exists.
	ModuleExists(ctx context.Context, moduleID int64) (bool, error)

	// GetModule returns a module by id, or ErrNotFound.
	GetModule(ctx context.Context, moduleID int64) (*Module, error)
}
