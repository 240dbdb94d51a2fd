package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "sqlite3", cfg.Store.Driver)
	require.Equal(t, 18, cfg.Archive.BookingRetentionMonths)
	require.Equal(t, 12, cfg.Archive.MessageRetentionMonths)
	require.Equal(t, 6, cfg.Archive.AuditRetentionMonths)
	require.Equal(t, 1000, cfg.Archive.BatchSize)
	require.Equal(t, "_archive", cfg.Archive.ColdTableSuffix)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.Store.Driver = "pgx"
	cfg.Store.DSN = "postgres://localhost/archon_test"
	cfg.Archive.BookingRetentionMonths = 24
	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, cfg, loaded)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	confDir := filepath.Join(dir, ".archon")
	require.NoError(t, os.MkdirAll(confDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.json"),
		[]byte(`{"archive": {"batch_size": 50}}`), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.Archive.BatchSize)
	// Unspecified fields fall back to the defaults.
	require.Equal(t, "sqlite3", cfg.Store.Driver)
	require.Equal(t, 18, cfg.Archive.BookingRetentionMonths)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	confDir := filepath.Join(dir, ".archon")
	require.NoError(t, os.MkdirAll(confDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.json"), []byte("{not json"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
}

func TestConnMaxLifetimeDuration(t *testing.T) {
	s := StoreConfig{}
	d, err := s.ConnMaxLifetimeDuration()
	require.NoError(t, err)
	require.Zero(t, d)

	s.ConnMaxLifetime = "30m"
	d, err = s.ConnMaxLifetimeDuration()
	require.NoError(t, err)
	require.Equal(t, 30*time.Minute, d)

	s.ConnMaxLifetime = "soon"
	_, err = s.ConnMaxLifetimeDuration()
	require.Error(t, err)
}

func TestLoadPolicies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retention.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`policies:
  auditLog: 90
  messageRead: 30
`), 0644))

	policies, err := LoadPolicies(path)
	require.NoError(t, err)
	require.Equal(t, map[string]time.Duration{
		"auditLog":    90 * 24 * time.Hour,
		"messageRead": 30 * 24 * time.Hour,
	}, policies)
}

func TestLoadPoliciesRejectsNegativeRetention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retention.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies:\n  auditLog: -1\n"), 0644))

	_, err := LoadPolicies(path)
	require.Error(t, err)
}

func TestLoadPoliciesRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retention.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policies: {}\n"), 0644))

	_, err := LoadPolicies(path)
	require.Error(t, err)
}
