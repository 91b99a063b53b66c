package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvConfigDir, EnvTimeout, EnvEmailDomain, EnvServerFilter, EnvDebug} {
		t.Setenv(k, "") // restores the original value on cleanup
		require.NoError(t, os.Unsetenv(k))
	}
}

func Test_Load_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load([]string{"list", "-search", "studio"}, "", nil)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8000", c.APIURL)
	require.Equal(t, 30*time.Second, c.Timeout)
	require.Equal(t, "gmail.com", c.EmailDomain)
	require.True(t, c.ServerFilter)
	require.False(t, c.Debug)
	require.Empty(t, c.ConfigDir)
	require.Equal(t, []string{"list", "-search", "studio"}, c.Args)
}

func Test_Load_Precedence(t *testing.T) {
	clearEnv(t)
	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("SUBLEASE_API_URL=http://dotenv:1\nSUBLEASE_TIMEOUT=5s\nSUBLEASE_SERVER_FILTER=false\n"), 0o600))
	// godotenv does not override variables that are already set
	t.Setenv(EnvTimeout, "7s")

	c, err := Load([]string{"-debug", "me"}, env, nil)
	require.NoError(t, err)
	require.Equal(t, "http://dotenv:1", c.APIURL)
	require.Equal(t, 7*time.Second, c.Timeout)
	require.False(t, c.ServerFilter)
	require.True(t, c.Debug)
	require.Equal(t, []string{"me"}, c.Args)

	c, err = Load([]string{"-api", "https://flag:2", "-timeout", "1s"}, env, nil)
	require.NoError(t, err)
	require.Equal(t, "https://flag:2", c.APIURL)
	require.Equal(t, time.Second, c.Timeout)
}

func Test_Load_Errors(t *testing.T) {
	clearEnv(t)

	t.Setenv(EnvTimeout, "soon")
	_, err := Load(nil, "", nil)
	require.Error(t, err)

	t.Setenv(EnvTimeout, "")
	t.Setenv(EnvServerFilter, "maybe")
	_, err = Load(nil, "", nil)
	require.Error(t, err)

	t.Setenv(EnvServerFilter, "")
	_, err = Load([]string{"-timeout", "0s"}, "", nil)
	require.Error(t, err)

	_, err = Load([]string{"-nope"}, "", nil)
	require.Error(t, err)

	_, err = Load(nil, filepath.Join(t.TempDir(), "missing.env"), nil)
	require.NoError(t, err)
}
