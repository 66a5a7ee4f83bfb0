package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	old := dotenvFiles
	dotenvFiles = nil
	t.Cleanup(func() { dotenvFiles = old })
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, "/api", c.APIBase)
	assert.Equal(t, 17.385, c.Default.Lat)
	assert.Equal(t, 78.4867, c.Default.Lon)
	assert.Equal(t, 15*time.Second, c.Locate.Timeout())
	assert.Equal(t, time.Second, c.Viewport.Animate())
	assert.Equal(t, "/ambulances/live", c.AssetAPI.Path)
	assert.Equal(t, "postgres://postgres@localhost:5432/tracker?sslmode=disable", c.PG.DSN())
	assert.Equal(t, "127.0.0.1:6379", c.Redis.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("API_BASE", "/v1/")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_PASSWORD", "s3cret")
	t.Setenv("REDIS_ENABLE", "true")
	t.Setenv("ASSET_API_BASE", "https://ops.example.com")
	t.Setenv("LOCATE_TIMEOUT_MS", "2500")
	t.Setenv("ORIGIN_ALLOW_CIDRS", "10.0.0.0/8, 192.168.0.0/16,")
	t.Setenv("RECOVERY_FIX", "retry")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.APIBase)
	assert.Equal(t, "postgres://postgres:s3cret@db:5432/tracker?sslmode=disable", c.PG.DSN())
	assert.True(t, c.Redis.Enable)
	assert.Equal(t, "https://ops.example.com", c.AssetAPI.Base)
	assert.Equal(t, 2500*time.Millisecond, c.Locate.Timeout())
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, SplitList(c.Origin.AllowCIDRs))
	assert.Equal(t, "retry", c.Recovery.Fix)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	f := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(f, []byte("addr: \":9090\"\nviewport:\n  animate_ms: 250\n"), 0o644))
	t.Setenv("CONFIG_FILE", f)
	t.Setenv("ADDR", ":7070")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", c.Addr, "environment wins over file")
	assert.Equal(t, 250*time.Millisecond, c.Viewport.Animate())
}

func TestLoad_Invalid(t *testing.T) {
	isolate(t)
	t.Setenv("DEFAULT_LAT", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_LAT", "17.4")
	t.Setenv("RECOVERY_PERMISSION", "maybe")
	_, err = Load()
	assert.Error(t, err)
}

func TestPostgresConfig_DSNEscapesCredentials(t *testing.T) {
	p := PostgresConfig{User: "ops@tracker", Password: "p@ss/w:rd?#", Host: "db", Port: 5433, DB: "tracker", SSLMode: "require"}
	u, err := url.Parse(p.DSN())
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "ops@tracker", u.User.Username())
	pass, ok := u.User.Password()
	assert.True(t, ok)
	assert.Equal(t, "p@ss/w:rd?#", pass)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/tracker", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}
