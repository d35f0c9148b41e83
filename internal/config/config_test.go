package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 2, cfg.Rules.MinPlayers)
	assert.Equal(t, 3, cfg.Rules.ComboLength)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("MIN_PLAYERS", "4")
	t.Setenv("ROUND_SECONDS", "15")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 4, cfg.Rules.MinPlayers)
	assert.Equal(t, 15, cfg.Rules.RoundSeconds)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	t.Setenv("COMBO_LENGTH", "three")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("COMBO_LENGTH", "0")
	_, err = Load()
	assert.Error(t, err)
}
