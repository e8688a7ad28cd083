package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/osr-alliance/backend-crm/backup"
	"github.com/osr-alliance/backend-crm/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	t.Setenv("REDIS_HOST", mr.Host())
	t.Setenv("REDIS_PORT", mr.Port())
	t.Setenv("LOG_LEVEL", "error")
	return mr
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestPing(t *testing.T) {
	useRedis(t)

	out, err := execute(t, "ping")
	require.NoError(t, err)
	assert.Contains(t, out, "is reachable")
}

func TestExportImport(t *testing.T) {
	useRedis(t)

	doc := `{"export_date":"2024-05-01T00:00:00Z","version":"1.0","data":{
		"contacts":[{"id":7,"name":"Ann","company":"Acme"},{"id":8}],
		"schedules":[],"projects":[{"id":1,"name":"Fund II"}],"opportunities":[]}}`
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := execute(t, "import", path)
	require.NoError(t, err)

	var report backup.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Contacts.Success)
	assert.Equal(t, 1, report.Contacts.Failed)
	require.Len(t, report.Contacts.Errors, 1)
	assert.Equal(t, int64(8), report.Contacts.Errors[0].ID)
	assert.Equal(t, 1, report.Projects.Success)

	exportPath := filepath.Join(t.TempDir(), "out.json")
	_, err = execute(t, "export", "-o", exportPath)
	require.NoError(t, err)
	exportOutput = ""

	f, err := os.Open(exportPath)
	require.NoError(t, err)
	defer f.Close()

	exported, err := backup.Decode(f)
	require.NoError(t, err)
	require.Len(t, exported.Data.Contacts, 1)
	assert.Equal(t, "Ann", exported.Data.Contacts[0].Name)
	require.Len(t, exported.Data.Projects, 1)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	useRedis(t)

	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"9.9","data":{}}`), 0o600))

	_, err := execute(t, "import", path)
	assert.Error(t, err)
}

func TestNewOTPService(t *testing.T) {
	svc, err := newOTPService(&config.Config{})
	require.NoError(t, err)
	assert.NotNil(t, svc)

	// enabled without credentials falls back to logging codes
	svc, err = newOTPService(&config.Config{EnableSMS: true})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestOpenArchiveRequiresURL(t *testing.T) {
	_, err := openArchive(context.Background(), "")
	assert.EqualError(t, err, "database_url is not configured")

	useRedis(t)
	_, err = execute(t, "snapshot", "list")
	assert.Error(t, err)
}
