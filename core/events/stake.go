package events

import (
	"strconv"

	"math/big"

	"stakedrop/core/types"
)

const (
	// TypeStakeDeposited captures pool tokens entering the staking ledger.
	TypeStakeDeposited = "stake.deposited"
	// TypeStakeWithdrawn captures pool tokens leaving the staking ledger.
	TypeStakeWithdrawn = "stake.withdrawn"
	// TypeRewardPaid is emitted when banked rewards are transferred out.
	TypeRewardPaid = "stake.rewardPaid"
	// TypeRewardAdded is emitted when the distributor funds a reward period.
	TypeRewardAdded = "stake.rewardAdded"
	// TypeDistributionChanged records a rewards-distribution role handover.
	TypeDistributionChanged = "stake.distributionChanged"
	// TypeRewardsRescued records a sweep of unowed reward balance.
	TypeRewardsRescued = "stake.rewardsRescued"
)

// StakeDeposited captures a stake or stakeFor deposit credited to an account.
type StakeDeposited struct {
	Funder      [20]byte
	Beneficiary [20]byte
	Amount      *big.Int
	NewBalance  *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (StakeDeposited) EventType() string { return TypeStakeDeposited }

// Event converts the structured payload into a broadcastable event.
func (e StakeDeposited) Event() *types.Event {
	attrs := map[string]string{
		"beneficiary": renderAddress(e.Beneficiary),
		"amount":      formatAmount(e.Amount),
		"newBalance":  formatAmount(e.NewBalance),
		"totalStaked": formatAmount(e.TotalStaked),
	}
	if !zeroAddress(e.Funder) && e.Funder != e.Beneficiary {
		attrs["funder"] = renderAddress(e.Funder)
	}
	return &types.Event{Type: TypeStakeDeposited, Attributes: attrs}
}

// StakeWithdrawn captures principal returned to a staker.
type StakeWithdrawn struct {
	Account     [20]byte
	Amount      *big.Int
	NewBalance  *big.Int
	TotalStaked *big.Int
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeStakeWithdrawn, Attributes: map[string]string{
		"addr":        renderAddress(e.Account),
		"amount":      formatAmount(e.Amount),
		"newBalance":  formatAmount(e.NewBalance),
		"totalStaked": formatAmount(e.TotalStaked),
	}}
}

// RewardPaid captures a reward payout settling banked accrual.
type RewardPaid struct {
	Account [20]byte
	Amount  *big.Int
}

// EventType satisfies the Event interface.
func (RewardPaid) EventType() string { return TypeRewardPaid }

// Event converts the structured payload into a broadcastable event.
func (e RewardPaid) Event() *types.Event {
	return &types.Event{Type: TypeRewardPaid, Attributes: map[string]string{
		"addr":   renderAddress(e.Account),
		"amount": formatAmount(e.Amount),
	}}
}

// RewardAdded captures a reward-period funding notification.
type RewardAdded struct {
	Amount       *big.Int
	RewardRate   *big.Int
	PeriodFinish uint64
}

// EventType satisfies the Event interface.
func (RewardAdded) EventType() string { return TypeRewardAdded }

// Event converts the structured payload into a broadcastable event.
func (e RewardAdded) Event() *types.Event {
	return &types.Event{Type: TypeRewardAdded, Attributes: map[string]string{
		"amount":       formatAmount(e.Amount),
		"rewardRate":   formatAmount(e.RewardRate),
		"periodFinish": strconv.FormatUint(e.PeriodFinish, 10),
	}}
}

// DistributionChanged records the owner assigning a new rewards distributor.
type DistributionChanged struct {
	Previous [20]byte
	Current  [20]byte
}

// EventType satisfies the Event interface.
func (DistributionChanged) EventType() string { return TypeDistributionChanged }

// Event converts the structured payload into a broadcastable event.
func (e DistributionChanged) Event() *types.Event {
	attrs := map[string]string{"current": renderAddress(e.Current)}
	if !zeroAddress(e.Previous) {
		attrs["previous"] = renderAddress(e.Previous)
	}
	return &types.Event{Type: TypeDistributionChanged, Attributes: attrs}
}

// RewardsRescued records reward balance not owed to any staker being swept.
type RewardsRescued struct {
	Distributor [20]byte
	Amount      *big.Int
	StillOwed   *big.Int
}

// EventType satisfies the Event interface.
func (RewardsRescued) EventType() string { return TypeRewardsRescued }

// Event converts the structured payload into a broadcastable event.
func (e RewardsRescued) Event() *types.Event {
	return &types.Event{Type: TypeRewardsRescued, Attributes: map[string]string{
		"distributor": renderAddress(e.Distributor),
		"amount":      formatAmount(e.Amount),
		"stillOwed":   formatAmount(e.StillOwed),
	}}
}
