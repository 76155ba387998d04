package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linkforge/claimlink/pkg/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

const validConfig = `
chains:
  "1":
    rpc_endpoint: http://localhost:8545
    gas_limit: 300000
    private_key: 4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318
contracts:
  v4:
    "1": "0xE5C20000000000000000000000000000000000E5"
protocol:
  base_url: https://claim.example.org/redeem
  default_version: v4
`

func TestLoadConfig_Valid(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Contains(t, cfg.Chains, "1")
	require.Equal(t, "http://localhost:8545", cfg.Chains["1"].RPCEndpoint)
	require.EqualValues(t, 300000, cfg.Chains["1"].GasLimit)
	require.Equal(t, "v4", cfg.Protocol.DefaultVersion)

	addr, ok := cfg.EscrowAddress("v4", "1")
	require.True(t, ok)
	require.Equal(t, "0xE5C20000000000000000000000000000000000E5", addr)

	_, ok = cfg.EscrowAddress("v4", "137")
	require.False(t, ok)
	_, ok = cfg.EscrowAddress("v9", "1")
	require.False(t, ok)
}

func TestLoadConfig_MissingRPCEndpoint(t *testing.T) {
	bad := `
chains:
  "1":
    private_key: abc
contracts:
  v4:
    "1": "0xE5C20000000000000000000000000000000000E5"
protocol:
  base_url: https://claim.example.org/redeem
  default_version: v4
`
	_, err := config.LoadConfig(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "rpc_endpoint")
}

func TestLoadConfig_MissingDefaultVersionContracts(t *testing.T) {
	bad := `
chains:
  "1":
    rpc_endpoint: http://localhost:8545
    private_key: abc
contracts:
  v3:
    "1": "0xE5C20000000000000000000000000000000000E5"
protocol:
  base_url: https://claim.example.org/redeem
  default_version: v4
`
	_, err := config.LoadConfig(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "default version")
}

func TestLoadConfig_NoChains(t *testing.T) {
	bad := `
protocol:
  base_url: https://claim.example.org/redeem
  default_version: v4
contracts:
  v4: {}
`
	_, err := config.LoadConfig(writeConfig(t, bad))
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least one chain")
}
