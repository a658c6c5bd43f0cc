package app

import (
	"errors"
	"time"

	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/storage"
)

var (
	ErrValidation = errors.New("app: validation failed")
	ErrClosed     = errors.New("app: runtime closed")
)

type Paths struct {
	StorePath string `json:"store_path"`
	KeyPath   string `json:"key_path"`
	BackupDir string `json:"backup_dir"`
}

type KeyStatus struct {
	Path        string `json:"path"`
	Fingerprint string `json:"fingerprint"`
}

type StatusReport struct {
	Paths        Paths         `json:"paths"`
	Key          KeyStatus     `json:"key"`
	Stats        storage.Stats `json:"stats"`
	Backups      int           `json:"backups"`
	Retain       int           `json:"retain"`
	LatestBackup *backup.Entry `json:"latest_backup,omitempty"`
}

type CheckStatus string

const (
	CheckOK   CheckStatus = "ok"
	CheckWarn CheckStatus = "warn"
	CheckFail CheckStatus = "fail"
)

type DoctorCheck struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail,omitempty"`
}

type DoctorReport struct {
	CheckedAt time.Time     `json:"checked_at"`
	Checks    []DoctorCheck `json:"checks"`
}

// Healthy reports whether no check failed. Warnings do not count.
func (r DoctorReport) Healthy() bool {
	for _, check := range r.Checks {
		if check.Status == CheckFail {
			return false
		}
	}
	return true
}
