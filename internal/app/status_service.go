package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jiajunhou/daybook/internal/backup"
	"github.com/jiajunhou/daybook/internal/crypto"
	"github.com/jiajunhou/daybook/internal/storage"
)

type StatusService struct {
	store   *storage.Store
	key     *crypto.Key
	rotator *backup.Rotator
	now     func() time.Time
}

func NewStatusService(store *storage.Store, key *crypto.Key, rotator *backup.Rotator) *StatusService {
	return &StatusService{store: store, key: key, rotator: rotator, now: time.Now}
}

func (s *StatusService) Report(ctx context.Context) (*StatusReport, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	entries, err := s.rotator.List()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	report := &StatusReport{
		Paths: Paths{
			StorePath: s.store.Path(),
			KeyPath:   s.key.Path(),
			BackupDir: s.rotator.Dir(),
		},
		Key:     KeyStatus{Path: s.key.Path(), Fingerprint: s.key.Fingerprint()},
		Stats:   stats,
		Backups: len(entries),
		Retain:  s.rotator.Retain(),
	}
	if len(entries) > 0 {
		latest := entries[0]
		report.LatestBackup = &latest
	}
	return report, nil
}

// Doctor runs read-only health checks. Only a failed store or key check is
// fatal; backup findings are warnings.
func (s *StatusService) Doctor(ctx context.Context) DoctorReport {
	report := DoctorReport{CheckedAt: s.now().UTC()}

	if err := s.store.IntegrityCheck(ctx); err != nil {
		report.Checks = append(report.Checks, DoctorCheck{Name: "store integrity", Status: CheckFail, Detail: err.Error()})
	} else {
		report.Checks = append(report.Checks, DoctorCheck{Name: "store integrity", Status: CheckOK})
	}

	if len(s.key.Bytes()) != crypto.KeySize {
		report.Checks = append(report.Checks, DoctorCheck{Name: "key", Status: CheckFail, Detail: "key is not loaded"})
	} else if err := roundTrip(s.key); err != nil {
		report.Checks = append(report.Checks, DoctorCheck{Name: "key", Status: CheckFail, Detail: err.Error()})
	} else {
		report.Checks = append(report.Checks, DoctorCheck{Name: "key", Status: CheckOK, Detail: s.key.Fingerprint()})
	}

	entries, err := s.rotator.List()
	switch {
	case err != nil:
		report.Checks = append(report.Checks, DoctorCheck{Name: "backups", Status: CheckWarn, Detail: err.Error()})
	case len(entries) == 0:
		report.Checks = append(report.Checks, DoctorCheck{Name: "backups", Status: CheckWarn, Detail: "no backups yet"})
	default:
		age := s.now().Sub(entries[0].CreatedAt).Round(time.Minute)
		report.Checks = append(report.Checks, DoctorCheck{
			Name:   "backups",
			Status: CheckOK,
			Detail: fmt.Sprintf("%d kept, newest %s old", len(entries), age),
		})
	}
	return report
}

func roundTrip(key *crypto.Key) error {
	probe := []byte("daybook-doctor-probe")
	token, err := key.Encrypt(probe)
	if err != nil {
		return fmt.Errorf("encrypt probe: %w", err)
	}
	got, err := key.Decrypt(token)
	if err != nil {
		return fmt.Errorf("decrypt probe: %w", err)
	}
	if string(got) != string(probe) {
		return fmt.Errorf("probe round trip mismatch")
	}
	return nil
}
