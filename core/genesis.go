package core

import (
	"fmt"
	"math/big"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"stakedrop/config"
	"stakedrop/core/state"
	"stakedrop/core/types"
	"stakedrop/native/market"
	"stakedrop/native/stake"
)

// MintAuthorityStakingModule is the sentinel genesis value that hands the
// collectible minting authority to the staking module's treasury address.
const MintAuthorityStakingModule = "staking-module"

// GenesisAccount seeds one account's balances. Amounts are decimal strings in
// base units; empty strings mean zero.
type GenesisAccount struct {
	Address string `yaml:"address"`
	Native  string `yaml:"native"`
	RWD     string `yaml:"rwd"`
	LP      string `yaml:"lp"`
}

// GenesisRoles seeds the staking authorization table.
type GenesisRoles struct {
	Owner              string `yaml:"owner"`
	RewardsDistributor string `yaml:"rewardsDistributor"`
}

// Genesis describes the initial allocations and role assignments written on
// first boot.
type Genesis struct {
	Accounts      []GenesisAccount `yaml:"accounts"`
	Roles         GenesisRoles     `yaml:"roles"`
	MintAuthority string           `yaml:"mintAuthority"`
}

// LoadGenesis parses a genesis document from disk.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	genesis := &Genesis{}
	if err := yaml.Unmarshal(raw, genesis); err != nil {
		return nil, fmt.Errorf("genesis: parse %s: %w", path, err)
	}
	return genesis, nil
}

func parseGenesisAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("genesis: invalid %s amount %q", field, raw)
	}
	return amount, nil
}

// apply writes the allocations and roles into state. Idempotent across boots:
// the applied marker short-circuits every run after the first.
func (g *Genesis) apply(mgr *state.Manager, stakeModule [20]byte) error {
	applied, err := mgr.GenesisApplied()
	if err != nil {
		return err
	}
	if applied {
		return nil
	}
	for _, seed := range g.Accounts {
		addr, err := config.DecodeAddr(seed.Address)
		if err != nil {
			return fmt.Errorf("genesis: account %q: %w", seed.Address, err)
		}
		native, err := parseGenesisAmount("native", seed.Native)
		if err != nil {
			return err
		}
		rwd, err := parseGenesisAmount("rwd", seed.RWD)
		if err != nil {
			return err
		}
		lp, err := parseGenesisAmount("lp", seed.LP)
		if err != nil {
			return err
		}
		account := (&types.Account{
			BalanceNative: native,
			BalanceRWD:    rwd,
			BalanceLP:     lp,
		}).EnsureDefaults()
		if err := mgr.PutAccount(addr, account); err != nil {
			return err
		}
	}

	roles := &stake.Roles{}
	if strings.TrimSpace(g.Roles.Owner) != "" {
		owner, err := config.DecodeAddr(g.Roles.Owner)
		if err != nil {
			return fmt.Errorf("genesis: owner: %w", err)
		}
		roles.Owner = owner
	}
	if strings.TrimSpace(g.Roles.RewardsDistributor) != "" {
		distributor, err := config.DecodeAddr(g.Roles.RewardsDistributor)
		if err != nil {
			return fmt.Errorf("genesis: rewardsDistributor: %w", err)
		}
		roles.RewardsDistributor = distributor
	}
	if err := mgr.PutStakeRoles(roles); err != nil {
		return err
	}

	authority := [20]byte{}
	switch trimmed := strings.TrimSpace(g.MintAuthority); trimmed {
	case "":
	case MintAuthorityStakingModule:
		authority = stakeModule
	default:
		authority, err = config.DecodeAddr(trimmed)
		if err != nil {
			return fmt.Errorf("genesis: mintAuthority: %w", err)
		}
	}
	if authority != ([20]byte{}) {
		if err := mgr.PutCollectibleRegistry(&market.Registry{Authority: authority}); err != nil {
			return err
		}
	}
	return mgr.MarkGenesisApplied()
}
