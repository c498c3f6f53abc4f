package connconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsEmptyMap(t *testing.T) {
	out, err := Load(filepath.Join(t.TempDir(), "connections.toml"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoad_ExpandsEnvAndDecodesSFTPHost(t *testing.T) {
	t.Setenv("ORGANIZER_TEST_SFTP_PASS", "s3cret")

	path := filepath.Join(t.TempDir(), "connections.toml")
	doc := `
[hosts.backup]
type = "sftp"
addr = "backup.example.com:22"
user = "deploy"
password = "${ORGANIZER_TEST_SFTP_PASS}"
home = "/srv/backup"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := Load(path)
	require.NoError(t, err)
	require.Contains(t, out, "backup")
	cfg := out["backup"]
	assert.Equal(t, "backup.example.com:22", cfg.Addr)
	assert.Equal(t, "deploy", cfg.User)
	assert.Equal(t, "s3cret", cfg.Password)
	assert.Equal(t, "/srv/backup", cfg.Home)
}

func TestLoad_RejectsUnknownHostType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connections.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[hosts.weird]
type = "ftp"
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
