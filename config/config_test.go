package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"quickart/crypto"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Equal(t, ":8080", cfg.RPCAddress)
	require.Equal(t, "quickart-local", cfg.NetworkName)

	operator, err := cfg.Operator()
	require.NoError(t, err)
	require.Len(t, operator.Bytes(), 20)

	fee, err := cfg.ListingFee()
	require.NoError(t, err)
	require.Zero(t, fee.Sign())
}

func TestLoadExistingConfig(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	operator := key.PubKey().Address().String()

	path := filepath.Join(t.TempDir(), "config.toml")
	body := "RPCAddress = \":9090\"\nDataDir = \"/tmp/quickart\"\nOperatorAddress = \"" + operator + "\"\nGenesisListingFee = \"100\"\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.RPCAddress)
	require.Equal(t, "/tmp/quickart", cfg.DataDir)
	require.Equal(t, "quickart-local", cfg.NetworkName, "missing network name falls back to default")

	fee, err := cfg.ListingFee()
	require.NoError(t, err)
	require.Equal(t, int64(100), fee.Int64())

	decoded, err := cfg.Operator()
	require.NoError(t, err)
	require.Equal(t, operator, decoded.String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("GenesisListingFee = \"ten\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("OperatorAddress = \"not-bech32\"\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
