package backup

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Entry struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
	Size      int64     `json:"size"`
}

// listEntries returns the regular files in the backup directory that carry
// the backup name prefix and extension, newest first. Files whose metadata
// cannot be read are left out, so pruning never touches them.
func (r *Rotator) listEntries() ([]Entry, error) {
	dirEntries, err := r.readDir(r.dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !isBackupName(de.Name(), r.ext) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			r.logger.Debug("backup: skip unreadable entry", "name", de.Name(), "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{
			Name:      de.Name(),
			Path:      filepath.Join(r.dir, de.Name()),
			CreatedAt: info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Name > entries[j].Name
	})
	return entries, nil
}

func isBackupName(name, ext string) bool {
	return strings.HasPrefix(name, namePrefix) && filepath.Ext(name) == ext
}

// prune deletes everything beyond the retain newest backups. Failures are
// logged and never returned; a backup that was just written stays valid.
func (r *Rotator) prune() {
	entries, err := r.listEntries()
	if err != nil {
		r.logger.Warn("backup: list for prune", "dir", r.dir, "error", err)
		return
	}
	if len(entries) <= r.retain {
		return
	}
	for _, entry := range entries[r.retain:] {
		if err := os.Remove(entry.Path); err != nil {
			r.logger.Warn("backup: remove old backup", "path", entry.Path, "error", err)
			continue
		}
		r.logger.Debug("backup: pruned", "path", entry.Path)
	}
}
