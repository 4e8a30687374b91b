package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eurotz/tzgate/pkg/log"
)

// writeDotEnv points TZGATE_CONFIG_DIR_PATH at a directory holding a .env
// with vars. godotenv exports them, so they are removed again on cleanup.
func writeDotEnv(t *testing.T, vars map[string]string) {
	t.Helper()

	dir := t.TempDir()
	var lines []string
	for k, v := range vars {
		lines = append(lines, k+"="+v)
		if _, set := os.LookupEnv(k); !set {
			t.Cleanup(func() { os.Unsetenv(k) })
		}
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(strings.Join(lines, "\n")), 0o600))
	t.Setenv(configDirPathEnv, dir)
}

func TestLoadConfig(t *testing.T) {
	logger := log.NewNoopLogger()

	t.Run("Defaults", func(t *testing.T) {
		t.Setenv(configDirPathEnv, t.TempDir())

		config, err := LoadConfig(logger)
		require.NoError(t, err)
		assert.Equal(t, ":8000", config.ListenAddr)
		assert.Equal(t, ":4242", config.MetricsListenAddr)
		assert.Equal(t, "http://localhost:8732", config.Node.URL)
		assert.Equal(t, 10*time.Second, config.Node.Timeout)
		assert.Equal(t, "sqlite", config.DB.Driver)
		assert.Equal(t, 24*time.Hour, config.Auth.TokenTTL)
		assert.Empty(t, config.SecretKey)
	})

	t.Run("From .env file", func(t *testing.T) {
		writeDotEnv(t, map[string]string{
			"TZGATE_LEDGER_BIG_MAP_ID": "12",
			"TZGATE_LEDGER_CONTRACT":   testContract,
			"TZGATE_TOKEN_DECIMALS":    "6",
			"TZGATE_SECRET_KEY":        testSecretKey,
			"TZGATE_LISTEN_ADDR":       ":1111",
		})
		t.Setenv("TZGATE_LISTEN_ADDR", ":9000")

		config, err := LoadConfig(logger)
		require.NoError(t, err)
		assert.Equal(t, int64(12), config.Ledger.BigMapID)
		assert.Equal(t, testContract, config.Ledger.Contract)
		assert.Equal(t, int32(6), config.Ledger.Decimals)
		assert.Equal(t, testSecretKey, config.SecretKey)
		assert.Equal(t, ":9000", config.ListenAddr, "environment wins over .env")
	})

	t.Run("Database URL", func(t *testing.T) {
		t.Setenv(configDirPathEnv, t.TempDir())
		t.Setenv("TZGATE_DATABASE_URL", "postgres://tz:pw@db.local:5433/tzgate?search_path=audit")

		config, err := LoadConfig(logger)
		require.NoError(t, err)
		assert.Equal(t, "postgres", config.DB.Driver)
		assert.Equal(t, "db.local", config.DB.Host)
		assert.Equal(t, "5433", config.DB.Port)
		assert.Equal(t, "tzgate", config.DB.Name)
		assert.Equal(t, "audit", config.DB.Schema)
		assert.Equal(t, "tz", config.DB.Username)
		assert.Equal(t, "pw", config.DB.Password)
	})

	t.Run("Invalid values", func(t *testing.T) {
		tests := map[string]string{
			"TZGATE_DATABASE_DRIVER":   "mysql",
			"TZGATE_TOKEN_DECIMALS":    "40",
			"TZGATE_LEDGER_BIG_MAP_ID": "-1",
			"TEZOS_RPC_URL":            "not a url",
			"TZGATE_DATABASE_URL":      "mysql://localhost/db",
		}
		for name, value := range tests {
			t.Run(name, func(t *testing.T) {
				t.Setenv(configDirPathEnv, t.TempDir())
				t.Setenv(name, value)

				_, err := LoadConfig(logger)
				assert.Error(t, err)
			})
		}
	})
}

func TestConfigDescription(t *testing.T) {
	desc, err := ConfigDescription()
	require.NoError(t, err)

	for _, name := range []string{"TZGATE_SECRET_KEY", "TZGATE_LEDGER_BIG_MAP_ID", "TEZOS_RPC_URL", "TZGATE_DATABASE_URL", "LOG_LEVEL"} {
		assert.Contains(t, desc, name)
	}
}
