package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	require.Equal(t, "railgrid", cfg.Server.Name)
	require.Equal(t, 50*time.Millisecond, cfg.Sim.TickRate)
	require.Equal(t, 20, cfg.Cache.LifeTicks)
	require.Equal(t, 15, cfg.Cache.VerifyTicks)
	require.Equal(t, 2, cfg.Cache.DeadTimeoutTicks)
	require.Empty(t, cfg.Database.DSN)
	require.NotZero(t, cfg.Server.StartTime)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
name = "yard-7"
region_id = 7

[cache]
life_ticks = 40
verify_ticks = 30
dead_timeout_ticks = 4
`))
	require.NoError(t, err)
	require.Equal(t, "yard-7", cfg.Server.Name)
	require.Equal(t, int32(7), cfg.Server.RegionID)
	require.Equal(t, 40, cfg.Cache.LifeTicks)
	require.Equal(t, 30, cfg.Cache.VerifyTicks)
	require.Equal(t, 4, cfg.Cache.DeadTimeoutTicks)
}

func TestLoadRejectsBadWindows(t *testing.T) {
	_, err := Load(writeConfig(t, `
[cache]
life_ticks = 10
verify_ticks = 10
dead_timeout_ticks = 2
`))
	require.ErrorContains(t, err, "verify_ticks")

	_, err = Load(writeConfig(t, `
[cache]
life_ticks = 0
`))
	require.ErrorContains(t, err, "life_ticks")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}
