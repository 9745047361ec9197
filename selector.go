package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"vtcbackup/domain"

	"github.com/djherbis/times"
)

//finds the backup file created today in the backup directory. Candidates are ordered newest first
//(name breaks ties) so the pick never depends on the order the filesystem lists files in
func selectBackupFile(appConfig domain.Config) (*domain.BackupFile, error) {
	logger := appConfig.Logger()
	defer logger.Sync()

	dir := appConfig.BackupDir()
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("unable to read backup directory: %s because: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("backup path is not a directory: %s", dir)
	}

	candidates, err := listBackupFiles(dir, appConfig.Pattern())
	if err != nil {
		return nil, err
	}
	logger.Debugw("backup candidates found", "dir", dir, "pattern", appConfig.Pattern(), "count", len(candidates), "meta", domain.Select)

	bf := pickTodaysBackup(candidates, appConfig.Now())
	if bf != nil {
		logger.Infow("selected today's backup", "path", bf.Path, "size", bf.Size, "created", bf.Created, "meta", domain.Select)
		return bf, nil
	}

	return nil, fmt.Errorf("%w in %s (pattern %s)", domain.ErrNoBackupFoundToday, dir, appConfig.Pattern())
}

//lists regular files in dir matching pattern
func listBackupFiles(dir, pattern string) ([]*domain.BackupFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad backup file pattern: %s because: %w", pattern, err)
	}

	files := make([]*domain.BackupFile, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("unable to stat file: %s because: %w", path, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		created, err := creationTime(path)
		if err != nil {
			return nil, err
		}

		files = append(files, &domain.BackupFile{
			Path:    path,
			Name:    filepath.Base(path),
			Size:    info.Size(),
			Created: created,
		})
	}

	return files, nil
}

//returns the newest file created on the same calendar day as today, or nil. Sorts files in place
func pickTodaysBackup(files []*domain.BackupFile, today time.Time) *domain.BackupFile {
	sort.SliceStable(files, func(i, j int) bool {
		if !files[i].Created.Equal(files[j].Created) {
			return files[i].Created.After(files[j].Created)
		}
		return files[i].Name < files[j].Name
	})

	for _, bf := range files {
		if sameDay(bf.Created, today) {
			return bf
		}
	}
	return nil
}

//birth time when the platform records it, otherwise the inode change time, otherwise mtime
func creationTime(path string) (time.Time, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to read timestamps of file: %s because: %w", path, err)
	}
	switch {
	case ts.HasBirthTime():
		return ts.BirthTime(), nil
	case ts.HasChangeTime():
		return ts.ChangeTime(), nil
	default:
		return ts.ModTime(), nil
	}
}

//compares calendar dates in the location of now
func sameDay(t, now time.Time) bool {
	ty, tm, td := t.In(now.Location()).Date()
	ny, nm, nd := now.Date()
	return ty == ny && tm == nm && td == nd
}
