package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ProjectTriples(t *testing.T) {
	t.Setenv("PROJECT_KEYS", "rednote, weread")
	t.Setenv("REDNOTE_CLIENT_ID", "rednote-client-id")
	t.Setenv("REDNOTE_CLIENT_SECRET", "rednote-client-secret")
	t.Setenv("REDNOTE_REDIRECT_URL", "https://auth.example.com/auth/callback/rednote")
	t.Setenv("WEREAD_CLIENT_ID", "weread-client-id")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Len(t, cfg.Projects, 2)

	rednote := cfg.Projects[0]
	assert.Equal(t, "rednote", rednote.Key)
	assert.Equal(t, "小红书", rednote.DisplayName)
	assert.Equal(t, "📍", rednote.Icon)
	assert.Equal(t, "rednote-client-id", rednote.ClientID)
	assert.Equal(t, "rednote-client-secret", rednote.ClientSecret)
	assert.True(t, rednote.Complete())

	weread := cfg.Projects[1]
	assert.Equal(t, "weread", weread.Key)
	assert.Equal(t, "weread", weread.DisplayName, "keys without metadata fall back to the key")
	assert.False(t, weread.Complete())
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "/success", cfg.SuccessViewPath)
	assert.Equal(t, "auth-broker", cfg.OtelServiceName)
	assert.Empty(t, cfg.RedisAddr)
}
