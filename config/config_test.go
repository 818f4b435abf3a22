package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"stakedrop/crypto"
	"stakedrop/native/stake"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key.PubKey().Address().String()
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[Market]
SupplyCap = 100
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8651", cfg.RPCAddress)
	require.Equal(t, "leveldb", cfg.StorageBackend)
	require.Equal(t, uint64(30*24*60*60), cfg.Staking.RewardsDurationSeconds)
	require.Equal(t, "anytime", cfg.Staking.ClaimPolicy)
	require.Equal(t, ".json", cfg.Market.TokenURLSuffix)

	policy, err := cfg.ClaimPolicy()
	require.NoError(t, err)
	require.Equal(t, stake.PolicyClaimAnytime, policy)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", `
StorageBackend = "redis"
[Market]
SupplyCap = 10
`},
		{"unknown policy", `
[Staking]
ClaimPolicy = "never"
[Market]
SupplyCap = 10
`},
		{"afterLock without lock window", `
[Staking]
ClaimPolicy = "afterLock"
[Market]
SupplyCap = 10
`},
		{"zero supply cap", `
[Market]
SupplyCap = 0
`},
		{"fee above denominator", `
[Market]
SupplyCap = 10
PlatformFeeBps = 10001
`},
		{"bad platform address", `
[Market]
SupplyCap = 10
PlatformAddress = "nonsense"
`},
		{"bad collectible price", `
[Staking]
CollectiblePrice = "12x"
[Market]
SupplyCap = 10
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
		})
	}
}

func TestValidateAcceptsFullConfig(t *testing.T) {
	addr := testAddress(t)
	cfg, err := Load(writeConfig(t, `
StorageBackend = "memory"
[Staking]
ClaimPolicy = "afterLock"
LockDurationSeconds = 3600
CollectiblePrice = "1000000000000000000"
CollectibleBeneficiary = "`+addr+`"
[Market]
SupplyCap = 10000
PlatformAddress = "`+addr+`"
PlatformFeeBps = 500
`))
	require.NoError(t, err)

	price, err := cfg.CollectiblePrice()
	require.NoError(t, err)
	expected, _ := new(big.Int).SetString("1000000000000000000", 10)
	require.Equal(t, expected, price)

	decoded, err := DecodeAddr(cfg.Market.PlatformAddress)
	require.NoError(t, err)
	require.NotEqual(t, [20]byte{}, decoded)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, WriteTemplate(path))
	require.Error(t, WriteTemplate(path), "must refuse to overwrite")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, uint64(10000), cfg.Market.SupplyCap)
	require.Equal(t, uint64(500), cfg.Market.PlatformFeeBps)
}
