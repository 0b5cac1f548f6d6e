package database

import "errors"

var (
	// ErrNotReady indicates the database could not be reached.
	ErrNotReady = errors.New("database not ready")
	// ErrUnsupportedDriver indicates a driver other than pgx or sqlite.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)
