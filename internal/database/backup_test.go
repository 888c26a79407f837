package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformBackup(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "hearth.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("database bytes"), 0o644))

	backupDir := filepath.Join(dir, "backups")
	svc := NewBackupService(dbPath, BackupConfig{
		Enabled:     true,
		StoragePath: backupDir,
	}, zerolog.New(os.Stderr).Level(zerolog.Disabled))

	require.NoError(t, svc.PerformBackup())

	files, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Name(), "backup_")

	copied, err := os.ReadFile(filepath.Join(backupDir, files[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, []byte("database bytes"), copied)
}

func TestCleanupOldBackups(t *testing.T) {
	dir := t.TempDir()
	oldFile := filepath.Join(dir, "backup_20240101_000000.db")
	newFile := filepath.Join(dir, "backup_now.db")
	require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(newFile, []byte("new"), 0o644))
	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(oldFile, old, old))

	svc := NewBackupService("unused", BackupConfig{
		Enabled:       true,
		StoragePath:   dir,
		RetentionDays: 30,
	}, zerolog.New(os.Stderr).Level(zerolog.Disabled))

	svc.CleanupOldBackups()

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err), "old backup removed")
	_, err = os.Stat(newFile)
	assert.NoError(t, err, "recent backup kept")
}
