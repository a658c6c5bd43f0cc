package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jiajunhou/daybook/internal/app"
	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/config"
	"github.com/jiajunhou/daybook/internal/crypto"
	"github.com/jiajunhou/daybook/internal/storage"
)

const (
	ExitCodeSuccess    = 0
	ExitCodeGeneric    = 1
	ExitCodeUsage      = 2
	ExitCodeNotFound   = 3
	ExitCodePermission = 4
	ExitCodeAuthFailed = 5
	ExitCodeIO         = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

// mapCommandError attaches an exit code to err based on what failed.
func mapCommandError(err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}

	switch {
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, app.ErrValidation):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, crypto.ErrDecryption):
		return asExitError(ExitCodeAuthFailed, err)
	case errors.Is(err, storage.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return asExitError(ExitCodePermission, err)
	case errors.Is(err, backup.ErrBackupIO),
		errors.Is(err, storage.ErrStorageInit),
		errors.Is(err, crypto.ErrCorruptKey):
		return asExitError(ExitCodeIO, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) {
		return asExitError(ExitCodeIO, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf(format, args...),
	}
}
