package types

import "math/big"

// Account is the fungible-balance record for a single address. The module
// tracks three assets: the native settlement currency used by the collectible
// marketplace, the DROP reward token paid out by the staking ledger, and the
// LP pool token accepted as the staking asset.
type Account struct {
	Nonce         uint64   `json:"nonce"`
	BalanceNative *big.Int `json:"balanceNative"`
	BalanceRWD    *big.Int `json:"balanceRWD"`
	BalanceLP     *big.Int `json:"balanceLP"`
}

// EnsureDefaults replaces nil balances with zero so callers can mutate the
// account without nil checks.
func (a *Account) EnsureDefaults() *Account {
	if a.BalanceNative == nil {
		a.BalanceNative = big.NewInt(0)
	}
	if a.BalanceRWD == nil {
		a.BalanceRWD = big.NewInt(0)
	}
	if a.BalanceLP == nil {
		a.BalanceLP = big.NewInt(0)
	}
	return a
}
