package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig("")
	assert.Equal(t, "pairgate", cfg.System.Appid)
	assert.Equal(t, 1897, cfg.Web.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "SESS", cfg.Archive.Tag)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pairgate.yaml")
	data := `
system:
  workdir: /tmp/pgtest
web:
  port: 9090
archive:
  bucket: sessions
  public_host: store.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := LoadConfig(path)
	assert.Equal(t, "/tmp/pgtest", cfg.System.Workdir)
	assert.Equal(t, 9090, cfg.Web.Port)
	assert.Equal(t, "sessions", cfg.Archive.Bucket)
	assert.Equal(t, "store.example.com", cfg.Archive.PublicHost)
	// untouched defaults survive a partial file
	assert.Equal(t, "SESS", cfg.Archive.Tag)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PAIRGATE_WEB_PORT", "1080")
	t.Setenv("PAIRGATE_ARCHIVE_ACCESS_KEY", "AKTEST")
	t.Setenv("PAIRGATE_ARCHIVE_SECRET_KEY", "sk-test")

	cfg := LoadConfig("")
	assert.Equal(t, 1080, cfg.Web.Port)
	assert.Equal(t, "AKTEST", cfg.Archive.AccessKey)
	assert.Equal(t, "sk-test", cfg.Archive.SecretKey)
}
