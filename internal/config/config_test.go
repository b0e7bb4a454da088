package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML_AppliesOverDefaults(t *testing.T) {
	in := `
server:
  listen_port: 9000
kvsd:
  root_dir: /var/lib/kvsd
  users:
    - username: alice
      password: secret
`
	cfg, err := Load(strings.NewReader(in), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.ListenPort)
	assert.Equal(t, "127.0.0.1", cfg.Server.ListenHost) // default preserved
	assert.Equal(t, 10240, cfg.Server.MaxTCPConnections)
	assert.Equal(t, "/var/lib/kvsd", cfg.Kvsd.RootDir)
	require.Len(t, cfg.Kvsd.Users, 1)
	assert.Equal(t, "alice", cfg.Kvsd.Users[0].Username)
}

func TestLoad_JSON_AppliesOverDefaults(t *testing.T) {
	in := `{"server": {"disable_tls": true}, "kvsd": {"root_dir": "/data"}}`
	cfg, err := Load(strings.NewReader(in), FormatJSON)
	require.NoError(t, err)

	assert.True(t, cfg.Server.DisableTLS)
	assert.Equal(t, 300, cfg.Server.AuthenticateTimeoutMilliseconds)
	assert.Equal(t, "/data", cfg.Kvsd.RootDir)
}

func TestLoad_MissingRootDirIsAnError(t *testing.T) {
	_, err := Load(strings.NewReader(`server: {}`), FormatYAML)
	assert.Error(t, err)
}

func TestLoad_UnknownFormat(t *testing.T) {
	_, err := Load(strings.NewReader(`{}`), Format(99))
	assert.Error(t, err)
}
