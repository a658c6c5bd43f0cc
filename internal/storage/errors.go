package storage

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrStorageInit = errors.New("storage: init failed")
	ErrMigration   = errors.New("storage: migration failed")
)

// StorageInitError reports that the store file or engine could not be
// opened or created. It is fatal for startup.
type StorageInitError struct {
	Path string
	Err  error
}

func (e *StorageInitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("open store %q: %v", e.Path, e.Err)
}

func (e *StorageInitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *StorageInitError) Is(target error) bool {
	return target == ErrStorageInit
}

// MigrationError names the migration step that failed. The surrounding
// transaction has been rolled back when this is returned.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("migration %q: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *MigrationError) Is(target error) bool {
	return target == ErrMigration
}
