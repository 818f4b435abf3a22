package stake

import "math/big"

// Scale is the fixed-point factor applied to the reward-per-token accumulator.
// All divisions against it truncate, which rounds in favour of pool solvency.
var Scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Position is the checkpointed stake state for a single account. A position is
// created on first stake and zeroed, never deleted, on full withdrawal.
type Position struct {
	Balance            *big.Int
	RewardPerTokenPaid *big.Int
	RewardsAccrued     *big.Int
}

// EnsureDefaults replaces nil fields with zero values.
func (p *Position) EnsureDefaults() *Position {
	if p.Balance == nil {
		p.Balance = big.NewInt(0)
	}
	if p.RewardPerTokenPaid == nil {
		p.RewardPerTokenPaid = big.NewInt(0)
	}
	if p.RewardsAccrued == nil {
		p.RewardsAccrued = big.NewInt(0)
	}
	return p
}

// Ledger is the singleton reward-accounting state shared by all positions.
//
// BankedTotal and PaidWeighted are solvency aggregates maintained alongside
// the per-position checkpoints: BankedTotal sums every position's banked
// RewardsAccrued, PaidWeighted sums Balance*RewardPerTokenPaid. Together they
// bound the total outstanding reward obligation without iterating positions,
// which is what makes the stuck-reward sweep safe.
type Ledger struct {
	RewardRate           *big.Int
	RewardPerTokenStored *big.Int
	LastUpdateTime       uint64
	PeriodFinish         uint64
	TotalStaked          *big.Int
	BankedTotal          *big.Int
	PaidWeighted         *big.Int
}

// EnsureDefaults replaces nil fields with zero values.
func (l *Ledger) EnsureDefaults() *Ledger {
	if l.RewardRate == nil {
		l.RewardRate = big.NewInt(0)
	}
	if l.RewardPerTokenStored == nil {
		l.RewardPerTokenStored = big.NewInt(0)
	}
	if l.TotalStaked == nil {
		l.TotalStaked = big.NewInt(0)
	}
	if l.BankedTotal == nil {
		l.BankedTotal = big.NewInt(0)
	}
	if l.PaidWeighted == nil {
		l.PaidWeighted = big.NewInt(0)
	}
	return l
}

// Roles is the authorization table for the staking module. The owner may
// reassign the rewards distributor; the distributor funds reward periods and
// sweeps stuck balance.
type Roles struct {
	Owner              [20]byte
	RewardsDistributor [20]byte
}
