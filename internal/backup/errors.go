package backup

import (
	"errors"
	"fmt"
)

var ErrBackupIO = errors.New("backup: io failure")

// BackupIOError reports a failed backup. Existing backups are untouched when
// it is returned.
type BackupIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *BackupIOError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("backup %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("backup %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *BackupIOError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *BackupIOError) Is(target error) bool {
	return target == ErrBackupIO
}
