package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltd/feltd/internal/engine"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", config.ListenAddr())
	assert.Equal(t, 15, config.Server.ActionTimeoutSeconds)
	assert.Equal(t, 10, config.Server.GameStartCountdownSeconds)
	assert.Equal(t, 2, config.Server.MinPlayersToStart)
	assert.Equal(t, 9, config.Server.MaxPlayersPerTable)

	require.Len(t, config.Tables, 1)
	assert.Equal(t, 200, config.Tables[0].BuyInMin, "20 big blinds")
	assert.Equal(t, 2000, config.Tables[0].BuyInMax, "200 big blinds")
}

func TestLoadConfigFromHCL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feltd.hcl")
	content := `
server {
  address                = "0.0.0.0"
  port                   = 9090
  action_timeout_seconds = 20
}

table "highroller" {
  small_blind = 50
  big_blind   = 100
  ante        = 10
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", config.ListenAddr())
	assert.Equal(t, 20, config.Server.ActionTimeoutSeconds)
	assert.Equal(t, 10, config.Server.GameStartCountdownSeconds, "unset fields keep defaults")

	require.Len(t, config.Tables, 1)
	tc := config.Tables[0]
	assert.Equal(t, "highroller", tc.Name)
	assert.Equal(t, 10, tc.Ante)
	assert.Equal(t, 2000, tc.BuyInMin)
	assert.Equal(t, 20000, tc.BuyInMax)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("ACTION_TIMEOUT_SECONDS", "30")
	t.Setenv("MIN_PLAYERS_TO_START", "3")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("GAME_START_COUNTDOWN_SECONDS", "junk")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 30, config.Server.ActionTimeoutSeconds)
	assert.Equal(t, 3, config.Server.MinPlayersToStart)
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, 10, config.Server.GameStartCountdownSeconds, "junk values are ignored")

	assert.Equal(t, 30*time.Second, config.LoopConfig().ActionTimeout)
	assert.Equal(t, 3, config.LoopConfig().MinPlayers)
}

func TestLoadConfigClampsTableCap(t *testing.T) {
	t.Setenv("MAX_PLAYERS_PER_TABLE", "12")

	config, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, engine.NumSeats, config.Server.MaxPlayersPerTable,
		"the cap cannot exceed the ring size")
}

func TestLoadConfigRejectsBadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "feltd.hcl")
	content := `
table "broken" {
  small_blind = 5
  big_blind   = 0
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
