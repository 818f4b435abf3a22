package config

import (
	"fmt"
	"math/big"
	"strings"

	"stakedrop/crypto"
	"stakedrop/native/stake"
)

const maxFeeBps = 10_000

var validBackends = map[string]bool{"memory": true, "leveldb": true, "bolt": true}

// Validate rejects configurations the node could not run with.
func (c *Config) Validate() error {
	if !validBackends[c.StorageBackend] {
		return fmt.Errorf("config: unknown storage backend %q", c.StorageBackend)
	}
	if c.Staking.RewardsDurationSeconds == 0 {
		return fmt.Errorf("config: RewardsDurationSeconds must be positive")
	}
	policy, err := stake.ParsePolicy(c.Staking.ClaimPolicy)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if policy == stake.PolicyClaimAfterLock && c.Staking.LockDurationSeconds == 0 {
		return fmt.Errorf("config: afterLock policy requires LockDurationSeconds")
	}
	if _, err := c.CollectiblePrice(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Staking.CollectibleBeneficiary) != "" {
		if _, err := DecodeAddr(c.Staking.CollectibleBeneficiary); err != nil {
			return fmt.Errorf("config: CollectibleBeneficiary: %w", err)
		}
	}
	if c.Market.SupplyCap == 0 {
		return fmt.Errorf("config: SupplyCap must be positive")
	}
	if c.Market.PlatformFeeBps > maxFeeBps {
		return fmt.Errorf("config: PlatformFeeBps above %d", maxFeeBps)
	}
	if strings.TrimSpace(c.Market.PlatformAddress) != "" {
		if _, err := DecodeAddr(c.Market.PlatformAddress); err != nil {
			return fmt.Errorf("config: PlatformAddress: %w", err)
		}
	}
	return nil
}

// ClaimPolicy returns the parsed claim policy.
func (c *Config) ClaimPolicy() (stake.Policy, error) {
	return stake.ParsePolicy(c.Staking.ClaimPolicy)
}

// CollectiblePrice parses the configured direct-mint price in base units.
func (c *Config) CollectiblePrice() (*big.Int, error) {
	trimmed := strings.TrimSpace(c.Staking.CollectiblePrice)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	price, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || price.Sign() < 0 {
		return nil, fmt.Errorf("config: invalid CollectiblePrice %q", c.Staking.CollectiblePrice)
	}
	return price, nil
}

// DecodeAddr parses a bech32 account address into its raw 20 bytes.
func DecodeAddr(raw string) ([20]byte, error) {
	var out [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return out, err
	}
	copy(out[:], decoded.Bytes())
	return out, nil
}
