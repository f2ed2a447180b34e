package runstore

import "errors"

var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when an internal error occurs
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrAlreadyExists is returned when a unique resource already exists
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotInitialized is returned when a location has no initialized store.
	// Stores are never created implicitly.
	ErrNotInitialized = errors.New("store not initialized")
	// ErrConfiguration is returned when connection parameters are missing or invalid
	ErrConfiguration = errors.New("configuration error")
	// ErrMigration is returned when a schema migration fails
	ErrMigration = errors.New("migration failed")
	// ErrIncompatibleSchema is returned when a store was migrated by a newer release
	ErrIncompatibleSchema = errors.New("incompatible schema version")
	// ErrContractViolation is returned when an API is used against its documented preconditions
	ErrContractViolation = errors.New("contract violation")
	// ErrReadOnly is returned when a write is attempted through a read-only handle
	ErrReadOnly = errors.New("read-only handle")
)
