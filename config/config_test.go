package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Equal(t, Default(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"httpAddr: \":8080\"\naccessTtl: 5m\nloginBurst: 10\n",
	), 0o644))

	cfg := Load(path)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, 5*time.Minute, cfg.AccessTTL)
	require.Equal(t, 10, cfg.LoginBurst)

	// Untouched fields keep their defaults.
	require.Equal(t, Default().StreamAddr, cfg.StreamAddr)
	require.Equal(t, Default().RefreshTTL, cfg.RefreshTTL)
}

func TestLoadIgnoresMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	cfg := Load(path)
	require.Equal(t, Default(), cfg)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("httpAddr: \":8080\"\n"), 0o644))

	t.Setenv("COURIER_HTTP_ADDR", ":7070")
	t.Setenv("COURIER_ACCESS_TTL", "2m")
	t.Setenv("COURIER_REFRESH_TTL", "not-a-duration")
	t.Setenv("COURIER_SESSION_SWEEP_INTERVAL", "5m")
	t.Setenv("COURIER_LOGIN_RPS", "2.5")
	t.Setenv("COURIER_LOGIN_BURST", "7")

	cfg := Load(path)
	require.Equal(t, ":7070", cfg.HTTPAddr)
	require.Equal(t, 2*time.Minute, cfg.AccessTTL)
	require.Equal(t, Default().RefreshTTL, cfg.RefreshTTL)
	require.Equal(t, 5*time.Minute, cfg.SessionSweepInterval)
	require.Equal(t, 2.5, cfg.LoginRPS)
	require.Equal(t, 7, cfg.LoginBurst)
}
