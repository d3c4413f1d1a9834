package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGreeting(t *testing.T) {
	lines, err := LoadGreeting()
	require.NoError(t, err)
	assert.Len(t, lines, 3)
}

func TestParseGreeting_Empty(t *testing.T) {
	_, err := parseGreeting([]byte("lines: []\n"))
	assert.Error(t, err)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BACKEND_URL", "http://backend.local")
	t.Setenv("BACKEND_API_KEY", "key")
	t.Setenv("PUBLIC_URL", "https://bot.example.com/")
	t.Setenv("ADMIN_IDS", "1,2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, 3000, cfg.Port)
	assert.True(t, cfg.IsAdmin(2))
	assert.False(t, cfg.IsAdmin(3))
	assert.Equal(t, "https://bot.example.com/return/tok", cfg.ReturnURL("tok"))
	assert.Equal(t, "sqlite3://data/companion.db", cfg.MigrationURL())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "sqlite ok", cfg: Config{StorageDriver: "sqlite", SQLitePath: "x.db"}},
		{name: "sqlite without path", cfg: Config{StorageDriver: "sqlite"}, wantErr: true},
		{name: "postgres ok", cfg: Config{StorageDriver: "postgres", DatabaseURL: "postgres://x"}},
		{name: "postgres without url", cfg: Config{StorageDriver: "postgres"}, wantErr: true},
		{name: "unknown driver", cfg: Config{StorageDriver: "mysql"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
