package stake

import "math/big"

// lastTimeRewardApplicable clamps the clock to the end of the funded period so
// the accumulator never grows past what was promised.
func (l *Ledger) lastTimeRewardApplicable(now uint64) uint64 {
	if now < l.PeriodFinish {
		return now
	}
	return l.PeriodFinish
}

// RewardPerToken projects the cumulative reward issued per staked unit at the
// given time, scaled by Scale. With nothing staked the stored accumulator is
// returned unchanged; rewards for empty intervals are never issued and remain
// sweepable from the module balance.
func (l *Ledger) RewardPerToken(now uint64) *big.Int {
	stored := new(big.Int).Set(l.RewardPerTokenStored)
	if l.TotalStaked.Sign() == 0 {
		return stored
	}
	last := l.lastTimeRewardApplicable(now)
	if last <= l.LastUpdateTime {
		return stored
	}
	elapsed := new(big.Int).SetUint64(last - l.LastUpdateTime)
	delta := new(big.Int).Mul(elapsed, l.RewardRate)
	delta.Mul(delta, Scale)
	delta.Quo(delta, l.TotalStaked)
	return stored.Add(stored, delta)
}

// earnedAt banks a position's accrual against a pre-computed accumulator value.
func (l *Ledger) earnedAt(pos *Position, rewardPerToken *big.Int) *big.Int {
	pending := new(big.Int).Sub(rewardPerToken, pos.RewardPerTokenPaid)
	pending.Mul(pending, pos.Balance)
	pending.Quo(pending, Scale)
	return pending.Add(pending, pos.RewardsAccrued)
}

// Earned reports the claimable reward for a position at the given time.
func (l *Ledger) Earned(pos *Position, now uint64) *big.Int {
	return l.earnedAt(pos.EnsureDefaults(), l.RewardPerToken(now))
}

// EarnedByShare projects the reward a freshly observed share of the given size
// would have accrued, using the same arithmetic as Earned so the two agree for
// any live position balance.
func (l *Ledger) EarnedByShare(amount *big.Int, now uint64) *big.Int {
	if amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	share := &Position{
		Balance:            new(big.Int).Set(amount),
		RewardPerTokenPaid: big.NewInt(0),
		RewardsAccrued:     big.NewInt(0),
	}
	return l.earnedAt(share, l.RewardPerToken(now))
}

// Checkpoint folds elapsed time into the stored accumulator and, when a
// position is supplied, banks its accrual at the new value. Passing a nil
// position performs the global-only checkpoint used by funding and sweeps.
// The solvency aggregates are maintained here so they stay consistent with
// every per-position update.
func (l *Ledger) Checkpoint(pos *Position, now uint64) {
	l.EnsureDefaults()
	rewardPerToken := l.RewardPerToken(now)
	l.RewardPerTokenStored = rewardPerToken
	l.LastUpdateTime = l.lastTimeRewardApplicable(now)
	if pos == nil {
		return
	}
	pos.EnsureDefaults()
	earned := l.earnedAt(pos, rewardPerToken)

	bankedDelta := new(big.Int).Sub(earned, pos.RewardsAccrued)
	l.BankedTotal.Add(l.BankedTotal, bankedDelta)

	paidDelta := new(big.Int).Sub(rewardPerToken, pos.RewardPerTokenPaid)
	paidDelta.Mul(paidDelta, pos.Balance)
	l.PaidWeighted.Add(l.PaidWeighted, paidDelta)

	pos.RewardsAccrued = earned
	pos.RewardPerTokenPaid = new(big.Int).Set(rewardPerToken)
}

// creditStake adjusts the aggregates for a balance increase taken immediately
// after a checkpoint, when the position's paid marker equals the stored
// accumulator.
func (l *Ledger) creditStake(pos *Position, amount *big.Int) {
	pos.Balance.Add(pos.Balance, amount)
	l.TotalStaked.Add(l.TotalStaked, amount)
	weighted := new(big.Int).Mul(amount, l.RewardPerTokenStored)
	l.PaidWeighted.Add(l.PaidWeighted, weighted)
}

// debitStake is the inverse of creditStake; the caller has already verified
// the position covers the amount.
func (l *Ledger) debitStake(pos *Position, amount *big.Int) {
	pos.Balance.Sub(pos.Balance, amount)
	l.TotalStaked.Sub(l.TotalStaked, amount)
	weighted := new(big.Int).Mul(amount, l.RewardPerTokenStored)
	l.PaidWeighted.Sub(l.PaidWeighted, weighted)
}

// Owed upper-bounds the total reward obligation outstanding across all
// positions at the stored accumulator value. Per-position truncation only
// lowers individual claims, so the bound is safe for the stuck-reward sweep.
func (l *Ledger) Owed() *big.Int {
	owed := new(big.Int).Mul(l.TotalStaked, l.RewardPerTokenStored)
	owed.Sub(owed, l.PaidWeighted)
	owed.Quo(owed, Scale)
	owed.Add(owed, l.BankedTotal)
	if owed.Sign() < 0 {
		return big.NewInt(0)
	}
	return owed
}

// NotifyRewardAmount starts or extends a reward period. An unfinished period's
// remaining budget folds into the new rate. The solvency check guarantees the
// promised emission never exceeds the reward balance the module holds at
// funding time.
func (l *Ledger) NotifyRewardAmount(amount *big.Int, duration, now uint64, available *big.Int) error {
	if duration == 0 {
		return ErrZeroDuration
	}
	l.EnsureDefaults()
	budget := new(big.Int).Set(amount)
	if now < l.PeriodFinish {
		remaining := new(big.Int).SetUint64(l.PeriodFinish - now)
		leftover := remaining.Mul(remaining, l.RewardRate)
		budget.Add(budget, leftover)
	}
	rate := budget.Quo(budget, new(big.Int).SetUint64(duration))

	promised := new(big.Int).Mul(rate, new(big.Int).SetUint64(duration))
	if available == nil || promised.Cmp(available) > 0 {
		return ErrInsolventRewardRate
	}
	l.RewardRate = rate
	l.LastUpdateTime = now
	l.PeriodFinish = now + duration
	return nil
}
